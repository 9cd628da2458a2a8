// Package semantic owns the vector index: Qdrant over gRPC, keyed by
// deterministic content-derived point IDs so re-ingesting unchanged facts
// overwrites rather than duplicates.
package semantic

// VectorRecord is a single fact ready to upsert.
type VectorRecord struct {
	// ID is the Qdrant point UUID, derived deterministically from Hash.
	ID string
	// Hash is the content-addressed identifier (hex SHA-256 of the
	// embedding's fixed-precision serialization).
	Hash      string
	Embedding []float32
	// Text is the factual sentence served back as retrieval context.
	Text string
}

// SearchResult is a single nearest-neighbor hit.
type SearchResult struct {
	ID    string  `json:"id"`
	Hash  string  `json:"hash"`
	Score float32 `json:"score"`
	Text  string  `json:"text"`
}
