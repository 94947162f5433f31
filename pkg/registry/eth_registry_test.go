package registry

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/stretchr/testify/require"
)

func TestSchemaRegistryABIValid(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(SchemaRegistryABI))
	require.NoError(t, err)

	for _, name := range []string{"getIssuerSchemas", "getSchemas", "addSchema", "getCredentials", "checkCredentials", "modifyCredentials"} {
		_, ok := parsed.Methods[name]
		require.True(t, ok, "expected method %s in ABI", name)
	}
}

func TestABIJSONRejectsMalformedInput(t *testing.T) {
	_, err := abi.JSON(strings.NewReader("not json"))
	require.Error(t, err)
}
