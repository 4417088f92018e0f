// Package chroma provides a ChromaDB-backed implementation of the vector
// store driven port.
//
// Each tenant maps to one Chroma collection named retrieva_<tenant-id>,
// created with the l2 space so reported distances are squared euclidean.
// Chunk fields travel as document metadata and are rebuilt into typed
// hits at query time.
//
// The adapter talks to a Chroma server over HTTP using the v2 API client
// from github.com/amikos-tech/chroma-go.
package chroma
