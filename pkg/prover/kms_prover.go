package prover

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/verza/zkcreds/pkg/guest"
	"github.com/verza/zkcreds/pkg/kms"
	"github.com/verza/zkcreds/pkg/zkvmtypes"
)

// KMSProver works like LocalProver, but its signing identity is held by a KMS
// (github.com/verza/zkcreds/pkg/kms) instead of an in-process ed25519 key.
// This is the production path: the prover's pinned image identity survives
// process restarts and, with VaultKMS, lives outside the proving host
// entirely. It signs through a named KMS key rather than holding key
// material directly.
type KMSProver struct {
	km      kms.KMS
	keyID   string
	imageID string
}

// NewKMSProver binds a prover identity to keyID in km, creating an Ed25519
// key under that ID if one does not already exist.
func NewKMSProver(ctx context.Context, km kms.KMS, keyID string) (*KMSProver, error) {
	if km == nil {
		return nil, fmt.Errorf("kms instance is required")
	}
	if keyID == "" {
		return nil, fmt.Errorf("key id is required")
	}

	info, err := km.GetKeyInfo(ctx, keyID)
	if err != nil {
		info, err = km.CreateKey(ctx, keyID, kms.KeyTypeEd25519)
		if err != nil {
			return nil, fmt.Errorf("create prover key: %w", err)
		}
	}

	pub, ok := info.PublicKey.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("prover key %s is not ed25519", keyID)
	}

	return &KMSProver{
		km:      km,
		keyID:   keyID,
		imageID: base64.StdEncoding.EncodeToString(pub),
	}, nil
}

// ImageID returns the identity this prover seals receipts under.
func (p *KMSProver) ImageID() string {
	return p.imageID
}

// Prove runs the guest predicate evaluator over input and seals its commit
// with a KMS-backed Ed25519 signature.
func (p *KMSProver) Prove(ctx context.Context, input zkvmtypes.ZkvmInput) (*Receipt, error) {
	commit := guest.Run(input)

	journal, err := json.Marshal(commit)
	if err != nil {
		return nil, fmt.Errorf("marshal journal: %w", err)
	}

	resp, err := p.km.Sign(ctx, kms.SignRequest{
		KeyID:     p.keyID,
		Data:      journal,
		Algorithm: kms.AlgEdDSA,
	})
	if err != nil {
		return nil, fmt.Errorf("sign journal: %w", err)
	}

	return &Receipt{
		ImageID: p.imageID,
		Journal: journal,
		Seal:    resp.Signature,
	}, nil
}

// Verify checks the receipt's seal against this prover's pinned image and,
// if valid, returns the committed journal.
func (p *KMSProver) Verify(receipt *Receipt) (*zkvmtypes.ZkCommit, error) {
	if receipt == nil {
		return nil, fmt.Errorf("receipt is nil")
	}
	if receipt.ImageID != p.imageID {
		return nil, fmt.Errorf("receipt image id %q does not match expected %q", receipt.ImageID, p.imageID)
	}

	pub, err := base64.StdEncoding.DecodeString(receipt.ImageID)
	if err != nil {
		return nil, fmt.Errorf("decode image id: %w", err)
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), receipt.Journal, receipt.Seal) {
		return nil, fmt.Errorf("receipt seal verification failed")
	}

	var commit zkvmtypes.ZkCommit
	if err := json.Unmarshal(receipt.Journal, &commit); err != nil {
		return nil, fmt.Errorf("parse journal: %w", err)
	}

	return &commit, nil
}
