// Package services implements the driving port interfaces.
// Services contain the core business logic - the query memory store, the
// ingestion pipeline, content fitting and usefulness filtering - and
// orchestrate calls to driven ports (adapters).
package services
