package tool

import (
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// NewGroupID identifies a completed group in logs, the status API and its
// archive manifest.
func NewGroupID() string {
	return uuid.NewString()
}

// NewSessionID returns the first 8 hex digits of a random UUID, short enough
// for log lines and staging names.
func NewSessionID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:4])
}

// ObjectDigest is the hex BLAKE3 digest recorded for every staged object.
func ObjectDigest(raw []byte) string {
	sum := blake3.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
