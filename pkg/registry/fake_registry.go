package registry

import (
	"context"
	"fmt"
	"sync"
)

// FakeRegistry is an in-memory Registry, guarded by one mutex the way
// pkg/kms.LocalKMS guards its key map. It exists for tests and for running
// the synchroniser/verifier without a live chain, behind the same
// Registry interface EthRegistry implements.
type FakeRegistry struct {
	mu          sync.RWMutex
	schemas     map[string][]string
	credentials map[string]map[string]struct{}
}

// NewFakeRegistry returns an empty in-memory registry.
func NewFakeRegistry() *FakeRegistry {
	return &FakeRegistry{
		schemas:     make(map[string][]string),
		credentials: make(map[string]map[string]struct{}),
	}
}

func (f *FakeRegistry) GetIssuerSchemas(_ context.Context, issuer string, page *Page) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	all := f.schemas[issuer]
	return paginate(all, page), nil
}

func (f *FakeRegistry) GetSchemas(_ context.Context, refs []SchemaRef) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]string, len(refs))
	for i, ref := range refs {
		list := f.schemas[ref.Issuer]
		if int(ref.SchemaID) >= len(list) {
			return out, fmt.Errorf("%w: issuer=%s schema_id=%d", ErrSchemaNotFound, ref.Issuer, ref.SchemaID)
		}
		out[i] = list[ref.SchemaID]
	}
	return out, nil
}

func (f *FakeRegistry) AddSchema(_ context.Context, issuer string, schema string) (SchemaID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.schemas[issuer] = append(f.schemas[issuer], schema)
	return SchemaID(len(f.schemas[issuer]) - 1), nil
}

func (f *FakeRegistry) GetCredentials(_ context.Context, issuer string, page *Page) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	set := f.credentials[issuer]
	all := make([]string, 0, len(set))
	for h := range set {
		all = append(all, h)
	}
	return paginate(all, page), nil
}

func (f *FakeRegistry) CheckCredentials(_ context.Context, refs []CredentialRef) ([]bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]bool, len(refs))
	for i, ref := range refs {
		set := f.credentials[ref.Issuer]
		_, out[i] = set[ref.Hash]
	}
	return out, nil
}

func (f *FakeRegistry) ModifyCredentials(_ context.Context, issuer string, remove, add []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	set, ok := f.credentials[issuer]
	if !ok {
		if len(remove) != 0 {
			return fmt.Errorf("registry: first write for issuer %s must not remove credentials", issuer)
		}
		set = make(map[string]struct{})
		f.credentials[issuer] = set
	}

	for _, h := range remove {
		delete(set, h)
	}
	for _, h := range add {
		set[h] = struct{}{}
	}
	return nil
}

func paginate(all []string, page *Page) []string {
	if page == nil || page.Limit == 0 {
		if page == nil {
			return all
		}
		if int(page.From) >= len(all) {
			return []string{}
		}
		return all[page.From:]
	}
	from := int(page.From)
	if from >= len(all) {
		return []string{}
	}
	to := from + int(page.Limit)
	if to > len(all) {
		to = len(all)
	}
	return all[from:to]
}
