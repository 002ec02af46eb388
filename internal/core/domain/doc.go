// Package domain defines the core business entities for RazorSearch.
//
// This package is part of the hexagonal architecture's innermost layer
// and defines the fundamental types:
//
//   - QueryRecord: One saved search query with click-through feedback
//   - PopularQuery: Read-time aggregate over query history
//   - RawItem: One unit of source content emitted by a connector
//   - IngestedDocument: A unit of content made searchable
//   - SearchResult / SearchResponse: The search surface
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import the Go
// standard library and the UUID library (for deterministic storage IDs).
// All other packages depend on domain, never the reverse.
package domain
