// Package driving defines the interfaces external actors use to drive the
// application: the CLI today, an HTTP layer tomorrow. Core services
// implement these ports.
package driving
