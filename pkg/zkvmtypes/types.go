// Package zkvmtypes defines the data shared between the proof orchestrator,
// the guest predicate evaluator and the presentation verifier: the zkVM
// input, its committed journal, and the canonical encoding used to hash
// credential instances so the host and guest agree on the same bytes.
package zkvmtypes

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// ScriptLang identifies the language a holder's predicate script is
// written in. Only Rhai is implemented; JavaScript is accepted on the wire
// but rejected at evaluation time.
type ScriptLang string

const (
	ScriptLangRhai       ScriptLang = "Rhai"
	ScriptLangJavaScript ScriptLang = "JavaScript"
)

// SchemaID identifies a credential schema registered by an issuer.
type SchemaID uint32

// CredentialInstanceData is the canonical payload hashed to produce a
// credential instance commitment. Its JSON encoding, run through JCS, must
// be byte-identical between the instance materialiser and the guest.
// Details is stringified JSON, not an embedded object: the credential's
// details are themselves serialized into a JSON string before being
// placed in this envelope, the same shape credential_instances uses on
// the wire.
type CredentialInstanceData struct {
	Details  string   `json:"details"`
	Nonce    string   `json:"nonce"`
	SchemaID SchemaID `json:"schema_id"`
}

// ZkvmInput is the private input supplied to the guest predicate evaluator.
// Credentials are carried as raw JSON strings exactly as materialised, so
// that HashCanonical below reproduces the instance commitment bit-for-bit.
type ZkvmInput struct {
	Credentials []string   `json:"credentials"`
	Lang        ScriptLang `json:"lang"`
	Script      string     `json:"script"`
}

// ZkCommit is the journal the guest commits to the proof receipt. It is the
// only data the verifier learns about a presentation.
type ZkCommit struct {
	HasError    bool       `json:"has_error"`
	ErrMsg      string     `json:"err_msg"`
	CredHashes  []string   `json:"cred_hashes"`
	CredSchemas []SchemaID `json:"cred_schemas"`
	Lang        ScriptLang `json:"lang"`
	Script      string     `json:"script"`
	Result      bool       `json:"result"`
}

// Canonicalize rewrites raw JSON into its JCS canonical form so that two
// semantically identical documents always hash to the same bytes.
func Canonicalize(raw []byte) ([]byte, error) {
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	return out, nil
}

// HashCanonical returns base64(sha256(data)), the commitment format used for
// both credential instance hashes and guest-reported cred_hashes.
func HashCanonical(data []byte) string {
	sum := sha256.Sum256(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// EncodeInstance canonically encodes a credential instance and returns both
// the canonical bytes (to be stored as the credential string) and its hash.
func EncodeInstance(inst CredentialInstanceData) (canonical []byte, hash string, err error) {
	raw, err := json.Marshal(inst)
	if err != nil {
		return nil, "", fmt.Errorf("marshal credential instance: %w", err)
	}
	canonical, err = Canonicalize(raw)
	if err != nil {
		return nil, "", err
	}
	return canonical, HashCanonical(canonical), nil
}

// ParseInstance recovers the CredentialInstanceData embedded in a
// materialised credential string. Returns an error if the string is not a
// well-formed instance, mirroring the guest's own parse step.
func ParseInstance(raw string) (CredentialInstanceData, error) {
	var inst CredentialInstanceData
	if err := json.Unmarshal([]byte(raw), &inst); err != nil {
		return CredentialInstanceData{}, fmt.Errorf("parse credential instance: %w", err)
	}
	return inst, nil
}
