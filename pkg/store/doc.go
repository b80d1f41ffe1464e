// Package store is the authoritative in-memory representation of mindgraph graphs.
//
// A Store is a registry of graphs keyed by graph id. Each graph is guarded by
// its own RWMutex so work on different graphs never contends. All mutation
// goes through Store.Update, which applies a batch to a private copy and swaps
// it in only when the whole batch succeeds; readers therefore observe a graph
// either before or after a batch, never in between.
//
// Callers never receive pointers into a live graph. Get* methods return
// clones, and the *Graph handed to View callbacks must not be retained after
// the callback returns.
package store
