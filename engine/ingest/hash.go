package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ContentID returns the content-addressed identifier for an embedding: every
// component serialized to exactly 6 decimal places, joined with commas, then
// SHA-256 hashed. Byte-identical embeddings always produce the same id, so
// re-ingesting an unchanged fact overwrites instead of duplicating.
func ContentID(embedding []float32) string {
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', 6, 64)
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, ",")))
	return hex.EncodeToString(sum[:])
}

// PointID derives the Qdrant point UUID for a content id. Qdrant only
// accepts UUID or integer point ids, so the hex digest maps through a
// name-based UUID; the mapping is deterministic, preserving idempotency.
func PointID(contentID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(contentID)).String()
}
