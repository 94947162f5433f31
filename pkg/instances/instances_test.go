package instances

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verza/zkcreds/pkg/zkvmtypes"
)

// TestEncodeInstanceDeterministic guards the invariant this package relies
// on: encoding the same details/nonce/schema_id twice produces byte-identical
// canonical output and hash, since the guest re-derives this same hash from
// the materialised string. Details is an opaque string to JCS, so it is
// carried through exactly as given rather than reformatted.
func TestEncodeInstanceDeterministic(t *testing.T) {
	data := zkvmtypes.CredentialInstanceData{
		Details:  `{"age":30,"name":"Ada"}`,
		Nonce:    "fixed-nonce",
		SchemaID: 7,
	}

	a, hashA, err := zkvmtypes.EncodeInstance(data)
	require.NoError(t, err)

	b, hashB, err := zkvmtypes.EncodeInstance(data)
	require.NoError(t, err)

	assert.Equal(t, string(a), string(b))
	assert.Equal(t, hashA, hashB)
}

func TestFreshNonceLengthAndUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		nonce, err := freshNonce()
		require.NoError(t, err)
		assert.False(t, seen[nonce], "nonce collision: %s", nonce)
		seen[nonce] = true

		decoded, err := base64.StdEncoding.DecodeString(nonce)
		require.NoError(t, err)
		assert.Len(t, decoded, nonceSize)
	}
}
