package tool

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGroupIDIsUUID(t *testing.T) {
	id := NewGroupID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, NewGroupID())
}

func TestNewSessionIDIsShortHex(t *testing.T) {
	id := NewSessionID()
	assert.Regexp(t, `^[0-9a-f]{8}$`, id)
	assert.NotEqual(t, id, NewSessionID())
}

func TestObjectDigest(t *testing.T) {
	// BLAKE3 of the empty input
	assert.Equal(t, "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262", ObjectDigest(nil))
	assert.NotEqual(t, ObjectDigest([]byte("a")), ObjectDigest([]byte("b")))
}
