// Package connectors groups the source connector implementations.
//
// Each subpackage implements ports/driven.SourceConnector for one
// external system and is responsible for its own authentication,
// pagination and rate limiting. Connectors emit uniform raw items; all
// filtering, refinement and indexing policy lives in the ingestion
// pipeline, never here.
package connectors
