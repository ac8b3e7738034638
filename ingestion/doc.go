// Package ingestion loads a document resource into a vector store.
//
// Ingest runs three steps in order:
//   - Extract: read documents from the configured resource
//   - Split: cut the documents into token-bounded chunks
//   - Store: embed and persist every chunk in one vector store call
//
// A missing resource is not an error; the run is reported as skipped and the
// store is left untouched. Any other failure is wrapped with ErrIngestionFailed.
package ingestion
