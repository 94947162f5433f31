// Package instances materialises holder-presentable credential instances
// from an issuer's credential template, grounded on pkg/store's CRUD
// surface and pkg/zkvmtypes' canonical encoder so that the hash this
// package computes is bit-for-bit the hash the guest re-derives.
package instances

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verza/zkcreds/pkg/store"
	"github.com/verza/zkcreds/pkg/zkvmtypes"
)

const nonceSize = 16 // 128 bits

// Materialiser implements the replace-and-regenerate workflow an issuer
// uses to refresh a credential's presentable instances.
type Materialiser struct {
	store  *store.Store
	logger *zap.Logger
}

// New builds a Materialiser over s.
func New(s *store.Store, logger *zap.Logger) *Materialiser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Materialiser{store: s, logger: logger}
}

// Refresh removes every instance in remove (filtered so only instances that
// actually belong to credentialID are affected) and then materialises
// numToAdd fresh instances copied from the parent credential's current
// details and schema id.
func (m *Materialiser) Refresh(ctx context.Context, credentialID string, numToAdd int, remove []string) error {
	if len(remove) > 0 {
		if err := m.store.DeleteInstances(ctx, credentialID, remove); err != nil {
			return fmt.Errorf("remove instances: %w", err)
		}
	}
	if numToAdd <= 0 {
		return nil
	}

	cred, err := m.store.GetCredential(ctx, credentialID)
	if err != nil {
		return fmt.Errorf("load parent credential: %w", err)
	}

	fresh := make([]store.CredentialInstance, 0, numToAdd)
	for i := 0; i < numToAdd; i++ {
		nonce, err := freshNonce()
		if err != nil {
			return fmt.Errorf("generate nonce: %w", err)
		}

		canonical, hash, err := zkvmtypes.EncodeInstance(zkvmtypes.CredentialInstanceData{
			Details:  cred.Details,
			Nonce:    nonce,
			SchemaID: zkvmtypes.SchemaID(cred.SchemaID),
		})
		if err != nil {
			return fmt.Errorf("encode instance: %w", err)
		}

		fresh = append(fresh, store.CredentialInstance{
			ID:           uuid.New().String(),
			CredentialID: credentialID,
			Data:         string(canonical),
			Hash:         hash,
		})
	}

	if err := m.store.InsertInstances(ctx, fresh); err != nil {
		return fmt.Errorf("insert instances: %w", err)
	}
	m.logger.Info("materialised credential instances",
		zap.String("credential_id", credentialID),
		zap.Int("added", numToAdd),
		zap.Int("removed", len(remove)),
	)
	return nil
}

// freshNonce generates 16 raw random bytes, base64-encoded, sidestepping
// the native-endian portability hazard a byte-order-encoded u128 would
// carry: there is no integer to encode, only random bytes to transport.
func freshNonce() (string, error) {
	buf := make([]byte, nonceSize)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}
