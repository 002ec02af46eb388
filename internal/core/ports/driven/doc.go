// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - EmbeddingService: Generates vector embeddings. Search and ingestion
//     are impossible without it.
//   - VectorStore: Vector persistence and nearest-neighbour search
//     (PostgreSQL + pgvector in production, in-memory in tests).
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Language model operations. Without it, query enrichment,
//     usefulness filtering, summarisation and message refinement are
//     disabled; ingestion falls back to truncation and include-everything.
//   - SourceConnector: Only needed for ingestion runs.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
