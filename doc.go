// Package taskapi is the query and action dispatch core behind the
// Quillboard forum's public API. It accepts tagged, heterogeneous task
// requests — point lookups, filtered listings, free-text search, mutating
// action batches, and batches of all of the above — decodes them against
// per-kind schemas, routes each task to the right backing store, and folds
// the outcomes back into order-preserving, partial-failure-tolerant
// responses.
//
// taskapi is a library, not a service. Construct a Gateway with a store,
// build an engine.Engine on top of it, and mount the api package's handlers
// (or call the engine directly).
//
//	gw, err := taskapi.New(
//	    taskapi.WithStore(st),
//	    taskapi.WithOrigin("https://forum.example.com"),
//	)
//
// # Architecture
//
// Each retrieval or mutation semantics lives in its own package (get, list,
// search, action), and each of those packages defines the store interface it
// needs. A single backend (store/memory, store/sqlite, store/postgres)
// implements all of them; the search backend is a separate adapter because
// the full-text index is an external collaborator. The engine package sits
// above the subsystem packages and fans multi-task requests out to them,
// merging results back into input order.
package taskapi
