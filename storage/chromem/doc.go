// Package chromem implements storage.ChunkRepository on chromem-go, an
// embedded vector database with optional gob persistence.
//
// Chunks must arrive embedded; the collection never calls an embedding API.
package chromem
