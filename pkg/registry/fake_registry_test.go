package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeRegistrySchemasAppendOnly(t *testing.T) {
	ctx := context.Background()
	r := NewFakeRegistry()

	id0, err := r.AddSchema(ctx, "issuer-a", "schema-0")
	require.NoError(t, err)
	assert.Equal(t, SchemaID(0), id0)

	id1, err := r.AddSchema(ctx, "issuer-a", "schema-1")
	require.NoError(t, err)
	assert.Equal(t, SchemaID(1), id1)

	schemas, err := r.GetSchemas(ctx, []SchemaRef{{Issuer: "issuer-a", SchemaID: 0}, {Issuer: "issuer-a", SchemaID: 1}})
	require.NoError(t, err)
	assert.Equal(t, []string{"schema-0", "schema-1"}, schemas)
}

func TestFakeRegistrySchemaNotFound(t *testing.T) {
	ctx := context.Background()
	r := NewFakeRegistry()

	_, err := r.GetSchemas(ctx, []SchemaRef{{Issuer: "issuer-a", SchemaID: 0}})
	assert.ErrorIs(t, err, ErrSchemaNotFound)
}

func TestFakeRegistryModifyCredentialsFirstWriteMustNotRemove(t *testing.T) {
	ctx := context.Background()
	r := NewFakeRegistry()

	err := r.ModifyCredentials(ctx, "issuer-a", []string{"h1"}, nil)
	assert.Error(t, err)

	err = r.ModifyCredentials(ctx, "issuer-a", nil, []string{"h1", "h2"})
	require.NoError(t, err)

	results, err := r.CheckCredentials(ctx, []CredentialRef{{Issuer: "issuer-a", Hash: "h1"}, {Issuer: "issuer-a", Hash: "h3"}})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, results)
}

func TestFakeRegistryModifyCredentialsRemoveThenAdd(t *testing.T) {
	ctx := context.Background()
	r := NewFakeRegistry()

	require.NoError(t, r.ModifyCredentials(ctx, "issuer-a", nil, []string{"h1", "h2"}))
	require.NoError(t, r.ModifyCredentials(ctx, "issuer-a", []string{"h1"}, []string{"h3"}))

	creds, err := r.GetCredentials(ctx, "issuer-a", nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"h2", "h3"}, creds)
}

func TestFakeRegistryPagination(t *testing.T) {
	ctx := context.Background()
	r := NewFakeRegistry()

	for i := 0; i < 5; i++ {
		_, err := r.AddSchema(ctx, "issuer-a", string(rune('a'+i)))
		require.NoError(t, err)
	}

	page, err := r.GetIssuerSchemas(ctx, "issuer-a", &Page{From: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, page)
}
