// Package driver persists knowledge graphs outside the process.
//
// The engine keeps every live graph in memory; a GraphDriver stores whole
// graph snapshots so they survive restarts and eviction. Snapshots are
// written and replaced atomically per graph.
//
// # Supported Backends
//
//   - File: one JSON document per graph in a directory
//   - Badger: embedded key/value store, also usable in memory for tests
//   - Neo4j and Memgraph: graphs as Concept nodes joined by RELATES edges
//   - Ladybug: embedded graph database (requires CGO)
//
// # Usage
//
//	d, err := driver.New(ctx, cfg.Storage, logger)
//	if err != nil {
//		return err
//	}
//	defer d.Close()
//
// All drivers are safe for concurrent use.
package driver
