// Package sync reconciles the issuer's local instance hashes with the
// on-chain registry's credential-hash set, grounded on pkg/registry's
// Registry interface and pkg/store's hash listing.
package sync

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/verza/zkcreds/pkg/registry"
	"github.com/verza/zkcreds/pkg/store"
)

// Synchroniser reconciles one issuer's database-resident instance hashes
// against that issuer's on-chain credential set.
type Synchroniser struct {
	store    *store.Store
	registry registry.Registry
	issuer   string
	logger   *zap.Logger
}

// New builds a Synchroniser for issuer.
func New(s *store.Store, r registry.Registry, issuer string, logger *zap.Logger) *Synchroniser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synchroniser{store: s, registry: r, issuer: issuer, logger: logger}
}

// Sync computes db_set \ reg_set and reg_set \ db_set and submits a single
// ModifyCredentials(remove, add) call reconciling the two. Two back-to-back
// calls with no intervening database changes are a no-op on the second
// call, since both set differences are then empty.
func (s *Synchroniser) Sync(ctx context.Context) error {
	dbHashes, err := s.store.ListAllInstanceHashes(ctx)
	if err != nil {
		return fmt.Errorf("list db instance hashes: %w", err)
	}
	regHashes, err := s.registry.GetCredentials(ctx, s.issuer, nil)
	if err != nil {
		return fmt.Errorf("list registry credential hashes: %w", err)
	}

	dbSet := toSet(dbHashes)
	regSet := toSet(regHashes)

	toAdd := difference(dbSet, regSet)
	toRemove := difference(regSet, dbSet)

	if len(toAdd) == 0 && len(toRemove) == 0 {
		s.logger.Debug("sync is a no-op", zap.String("issuer", s.issuer))
		return nil
	}

	if err := s.registry.ModifyCredentials(ctx, s.issuer, toRemove, toAdd); err != nil {
		return fmt.Errorf("modify credentials: %w", err)
	}

	s.logger.Info("synchronised issuer registry",
		zap.String("issuer", s.issuer),
		zap.Int("added", len(toAdd)),
		zap.Int("removed", len(toRemove)),
	)
	return nil
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// difference returns the elements of a not present in b, as a slice
// (order is unspecified, matching the underlying set semantics).
func difference(a, b map[string]struct{}) []string {
	out := make([]string, 0)
	for v := range a {
		if _, ok := b[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}
