// Package utils provides utility functions for the mindgraph engine.
//
// This package contains helpers shared by several components:
//   - Vector math and bounded top-K selection (vector.go)
//   - Graph scoped identifier generation (ids.go)
//   - Union-find over string keys (unionfind.go)
//   - Panic recovery and bounded concurrency (recovery.go, concurrent.go)
package utils
