// Package core provides the foundational domain types and collaborator
// interfaces shared by every chatcore package. It defines:
//
//   - Messages (immutable conversation turns with provenance metadata)
//   - Action descriptors and results (structured requests to act rather than talk)
//   - Portfolio snapshots and auxiliary market signals used for enrichment
//   - Responses and stream chunks returned to callers
//   - Pluggable stores and sources (conversation history, proofs, data feeds)
//
// Implementation concerns (persistence, backend selection, orchestration)
// live in other packages; core only exposes small interfaces so custom
// backends can be supplied without touching the engine.
package core
