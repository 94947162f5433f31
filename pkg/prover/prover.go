// Package prover abstracts over the proving backend that seals a guest
// commit into a receipt the verifier can check without re-running the
// guest. LocalProver stands in for a STARK prover: it signs the committed
// journal with a pinned key instead of producing a succinct proof, but
// exposes the same Prove/Verify contract a real zkVM backend would.
package prover

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/verza/zkcreds/pkg/guest"
	"github.com/verza/zkcreds/pkg/zkvmtypes"
)

// Receipt is the sealed output of a proof run: a journal (the guest's
// commit) plus a seal binding it to a specific image identity.
type Receipt struct {
	ImageID string `json:"image_id"`
	Journal []byte `json:"journal"`
	Seal    []byte `json:"seal"`
}

// Prover runs the guest predicate evaluator and seals its commit, and
// verifies previously sealed receipts.
type Prover interface {
	Prove(ctx context.Context, input zkvmtypes.ZkvmInput) (*Receipt, error)
	Verify(receipt *Receipt) (*zkvmtypes.ZkCommit, error)
}

// LocalProver seals receipts with an Ed25519 signature and verifies them
// against a single pinned public key, the "image ID" of this build.
type LocalProver struct {
	imageID string
	priv    ed25519.PrivateKey
	pub     ed25519.PublicKey
}

// NewLocalProver builds a LocalProver from an existing Ed25519 key pair.
func NewLocalProver(priv ed25519.PrivateKey) (*LocalProver, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid ed25519 private key size: %d", len(priv))
	}
	pub := priv.Public().(ed25519.PublicKey)
	return &LocalProver{
		imageID: base64.StdEncoding.EncodeToString(pub),
		priv:    priv,
		pub:     pub,
	}, nil
}

// GenerateLocalProver creates a LocalProver with a freshly generated key
// pair, for tests and local development.
func GenerateLocalProver() (*LocalProver, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate prover key: %w", err)
	}
	return &LocalProver{
		imageID: base64.StdEncoding.EncodeToString(pub),
		priv:    priv,
		pub:     pub,
	}, nil
}

// ImageID returns the identity this prover seals receipts under.
func (p *LocalProver) ImageID() string {
	return p.imageID
}

// Prove runs the guest predicate evaluator over input and seals its commit.
func (p *LocalProver) Prove(_ context.Context, input zkvmtypes.ZkvmInput) (*Receipt, error) {
	commit := guest.Run(input)

	journal, err := json.Marshal(commit)
	if err != nil {
		return nil, fmt.Errorf("marshal journal: %w", err)
	}

	seal := ed25519.Sign(p.priv, journal)

	return &Receipt{
		ImageID: p.imageID,
		Journal: journal,
		Seal:    seal,
	}, nil
}

// Verify checks the receipt's seal against this prover's pinned image and,
// if valid, returns the committed journal.
func (p *LocalProver) Verify(receipt *Receipt) (*zkvmtypes.ZkCommit, error) {
	if receipt == nil {
		return nil, fmt.Errorf("receipt is nil")
	}
	if receipt.ImageID != p.imageID {
		return nil, fmt.Errorf("receipt image id %q does not match expected %q", receipt.ImageID, p.imageID)
	}
	if !ed25519.Verify(p.pub, receipt.Journal, receipt.Seal) {
		return nil, fmt.Errorf("receipt seal verification failed")
	}

	var commit zkvmtypes.ZkCommit
	if err := json.Unmarshal(receipt.Journal, &commit); err != nil {
		return nil, fmt.Errorf("parse journal: %w", err)
	}

	return &commit, nil
}

// EncodeReceipt serializes a receipt to the wire format: base64 of its JSON
// encoding.
func EncodeReceipt(receipt *Receipt) (string, error) {
	raw, err := json.Marshal(receipt)
	if err != nil {
		return "", fmt.Errorf("marshal receipt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeReceipt parses a receipt from its wire format.
func DecodeReceipt(encoded string) (*Receipt, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode receipt base64: %w", err)
	}
	var receipt Receipt
	if err := json.Unmarshal(raw, &receipt); err != nil {
		return nil, fmt.Errorf("unmarshal receipt: %w", err)
	}
	return &receipt, nil
}
