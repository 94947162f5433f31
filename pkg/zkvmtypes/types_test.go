package zkvmtypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeInstanceDeterministic(t *testing.T) {
	inst := CredentialInstanceData{
		Details:  `{"b":2,"a":1}`,
		Nonce:    "abc123",
		SchemaID: 7,
	}

	canon1, hash1, err := EncodeInstance(inst)
	require.NoError(t, err)

	canon2, hash2, err := EncodeInstance(inst)
	require.NoError(t, err)

	assert.Equal(t, canon1, canon2)
	assert.Equal(t, hash1, hash2)
}

// TestCanonicalizeFieldOrderInvariant checks the invariant EncodeInstance
// relies on: JCS canonicalization is insensitive to the order fields
// appear in the top-level envelope. Details itself is a string, so its
// content is opaque to JCS and is hashed as whatever bytes it holds.
func TestCanonicalizeFieldOrderInvariant(t *testing.T) {
	a, err := Canonicalize([]byte(`{"nonce":"n","schema_id":1,"details":"{\"age\":30}"}`))
	require.NoError(t, err)
	b, err := Canonicalize([]byte(`{"details":"{\"age\":30}","schema_id":1,"nonce":"n"}`))
	require.NoError(t, err)

	assert.Equal(t, a, b, "canonicalization must be insensitive to top-level field order")
}

func TestParseInstanceRoundTrip(t *testing.T) {
	inst := CredentialInstanceData{
		Details:  `{"age":30}`,
		Nonce:    "deadbeef",
		SchemaID: 3,
	}

	canon, _, err := EncodeInstance(inst)
	require.NoError(t, err)

	parsed, err := ParseInstance(string(canon))
	require.NoError(t, err)

	assert.Equal(t, inst.Nonce, parsed.Nonce)
	assert.Equal(t, inst.SchemaID, parsed.SchemaID)
	assert.Equal(t, inst.Details, parsed.Details)
}

func TestParseInstanceRejectsGarbage(t *testing.T) {
	_, err := ParseInstance("not json")
	assert.Error(t, err)
}

func TestHashCanonicalStable(t *testing.T) {
	data := []byte(`{"x":1}`)
	assert.Equal(t, HashCanonical(data), HashCanonical(data))
}
