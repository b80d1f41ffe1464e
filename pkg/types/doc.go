// Package types defines the core data types for the mindgraph knowledge graph engine.
//
// This package contains the fundamental types used throughout mindgraph:
//   - Node: a deduplicated concept owned by exactly one graph
//   - Edge: a typed, weighted relationship between two nodes of the same graph
//   - Graph: a detached snapshot of a graph with its statistics
//   - Concept/Relationship: raw candidates proposed by an extraction collaborator
//   - Message/Response: the chat exchange used by language model clients
//
// # Validation
//
// Nodes and edges provide Validate() which checks the per-entity invariants
// (non-empty ids, scores within [0,1], no self loops). Invariants that span
// entities, such as dangling edge detection, are enforced by the store.
//
// # Errors
//
// Every failure the engine reports wraps one of the sentinel errors in this
// package so callers can branch with errors.Is. Classify maps an error to its
// ErrorKind (validation, collaborator, construction or internal).
package types
