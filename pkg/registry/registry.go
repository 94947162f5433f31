// Package registry adapts the on-chain issuer registry the rest of the
// system treats as an external collaborator: a key-value service mapping
// an issuer account to its append-only ordered schema list and its
// unordered credential-hash set.
package registry

import (
	"context"
	"errors"
)

// ErrSchemaNotFound reports "this issuer has no schema at this id".
// FakeRegistry returns it only for an out-of-range id, so an empty schema
// string stays distinct there; EthRegistry returns it for any empty string
// the contract answers with, so it cannot tell the two cases apart.
var ErrSchemaNotFound = errors.New("registry: schema not found")

// SchemaID identifies a schema by its zero-based insertion index.
type SchemaID uint32

// SchemaRef names a schema on one issuer's append-only schema list.
type SchemaRef struct {
	Issuer   string
	SchemaID SchemaID
}

// CredentialRef names a credential-hash commitment on one issuer's set.
type CredentialRef struct {
	Issuer string
	Hash   string
}

// Page bounds a paginated registry read. A nil Page reads from the start
// with no limit, matching the contract's documented defaults (from=0,
// limit=all).
type Page struct {
	From  uint32
	Limit uint32
}

// Registry is the typed view/mutation surface over the issuer registry
// contract. Two implementations exist: EthRegistry (live,
// go-ethereum-backed) and FakeRegistry (in-memory, for tests).
type Registry interface {
	// GetIssuerSchemas returns all schema strings an issuer has appended,
	// in insertion order, honoring pagination if page is non-nil.
	GetIssuerSchemas(ctx context.Context, issuer string, page *Page) ([]string, error)

	// GetSchemas resolves a batch of (issuer, schema_id) pairs to their
	// schema text. If any pair's schema_id has no entry, the call returns
	// an error wrapping ErrSchemaNotFound; the slice returned alongside it
	// is not a usable result.
	GetSchemas(ctx context.Context, refs []SchemaRef) ([]string, error)

	// AddSchema appends a new schema string to issuer's schema list and
	// returns its newly assigned, permanent schema id.
	AddSchema(ctx context.Context, issuer string, schema string) (SchemaID, error)

	// GetCredentials returns all credential hashes committed for issuer,
	// honoring pagination if page is non-nil.
	GetCredentials(ctx context.Context, issuer string, page *Page) ([]string, error)

	// CheckCredentials reports, for each (issuer, hash) pair, whether that
	// hash is a member of issuer's credential set.
	CheckCredentials(ctx context.Context, refs []CredentialRef) ([]bool, error)

	// ModifyCredentials atomically removes then adds credential hashes for
	// issuer. On an issuer's first write, remove must be empty; the
	// contract rejects otherwise.
	ModifyCredentials(ctx context.Context, issuer string, remove, add []string) error
}
