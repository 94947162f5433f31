// Package verifier runs the seven-stage presentation-check pipeline a
// relying party drives: cryptographic verification of a sealed receipt,
// followed by concurrent registry cross-checks, built on
// pkg/prover.Prover and pkg/registry.Registry using
// golang.org/x/sync/errgroup to fan the registry lookups out
// concurrently.
package verifier

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/verza/zkcreds/pkg/prover"
	"github.com/verza/zkcreds/pkg/registry"
	"github.com/verza/zkcreds/pkg/zkvmtypes"
)

// RequestStatus is the lifecycle state of a recorded verification request.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusDenied   RequestStatus = "denied"
)

// Request is a recorded successful presentation, queued for whatever
// downstream consumer polls the verifier for pending decisions.
type Request struct {
	CredHashes  []string
	CredSchemas []string // resolved schema strings, not raw ids
	Lang        zkvmtypes.ScriptLang
	Script      string
	Result      bool
	Status      RequestStatus
}

// CheckInput is the verifier's entry point payload.
type CheckInput struct {
	CredIssuers   []string // one issuer account per credential, positional
	Base64Receipt string
}

// CheckResult is the verifier's entry point output. Journal is populated
// only when the presentation is accepted; every rejection leaves it nil.
type CheckResult struct {
	Verdict bool
	Error   string
	Journal *zkvmtypes.ZkCommit
}

// Verifier runs the presentation-check pipeline and records accepted,
// non-error presentations in an in-memory pending queue.
type Verifier struct {
	prover   prover.Prover
	registry registry.Registry

	mu       sync.Mutex
	requests []Request
}

// New builds a Verifier over p (cryptographic verification) and r
// (registry cross-checks).
func New(p prover.Prover, r registry.Registry) *Verifier {
	return &Verifier{prover: p, registry: r}
}

// Check runs the full pipeline. The verifier never reveals which specific
// credential or schema caused a rejection — only that the check failed —
// so every failure path below returns a generic Error message.
func (v *Verifier) Check(ctx context.Context, input CheckInput) CheckResult {
	receipt, err := prover.DecodeReceipt(input.Base64Receipt)
	if err != nil {
		return CheckResult{Verdict: false, Error: "malformed receipt"}
	}

	// Stage 1: cryptographic verify against the pinned guest image id.
	journal, err := v.prover.Verify(receipt)
	if err != nil {
		return CheckResult{Verdict: false, Error: "receipt verification failed"}
	}

	// Stage 2 (parse) is folded into Verify above: journal is already the
	// parsed, verified ZkCommit.

	// Stage 3: length check.
	n := len(input.CredIssuers)
	if n != len(journal.CredHashes) || n != len(journal.CredSchemas) {
		return CheckResult{Verdict: false, Error: "credential count mismatch"}
	}

	// Stage 4: concurrent registry cross-checks.
	credRefs := make([]registry.CredentialRef, n)
	schemaRefs := make([]registry.SchemaRef, n)
	for i := 0; i < n; i++ {
		credRefs[i] = registry.CredentialRef{Issuer: input.CredIssuers[i], Hash: journal.CredHashes[i]}
		schemaRefs[i] = registry.SchemaRef{Issuer: input.CredIssuers[i], SchemaID: registry.SchemaID(journal.CredSchemas[i])}
	}

	var memberships []bool
	var schemas []string
	var schemaErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result, err := v.registry.CheckCredentials(gctx, credRefs)
		if err != nil {
			return err
		}
		memberships = result
		return nil
	})
	g.Go(func() error {
		// GetSchemas returns ErrSchemaNotFound for a missing schema rather
		// than an empty-string sentinel; that case is stage 6's rejection,
		// not a pipeline-aborting error, so it is captured separately
		// instead of failing the group.
		result, err := v.registry.GetSchemas(gctx, schemaRefs)
		if err != nil {
			if isSchemaNotFound(err) {
				schemaErr = err
				return nil
			}
			return err
		}
		schemas = result
		return nil
	})
	if err := g.Wait(); err != nil {
		return CheckResult{Verdict: false, Error: "registry lookup failed"}
	}

	// Stage 5: credential membership check.
	for _, ok := range memberships {
		if !ok {
			return CheckResult{Verdict: false, Error: "credential not valid for issuer"}
		}
	}

	// Stage 6: schema-presence check.
	if schemaErr != nil {
		return CheckResult{Verdict: false, Error: "schema not found for credential"}
	}

	// Stage 7: conditional pending-request append.
	if !journal.HasError {
		v.mu.Lock()
		v.requests = append(v.requests, Request{
			CredHashes:  journal.CredHashes,
			CredSchemas: schemas,
			Lang:        journal.Lang,
			Script:      journal.Script,
			Result:      journal.Result,
			Status:      RequestStatusPending,
		})
		v.mu.Unlock()
	}

	return CheckResult{Verdict: true, Journal: journal}
}

// isSchemaNotFound reports whether err is (or wraps) ErrSchemaNotFound.
func isSchemaNotFound(err error) bool {
	return errors.Is(err, registry.ErrSchemaNotFound)
}

// PendingRequests returns a snapshot of every request recorded so far.
func (v *Verifier) PendingRequests() []Request {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Request, len(v.requests))
	copy(out, v.requests)
	return out
}

// SetStatus transitions the requests at the given indices (positions in
// the slice PendingRequests returns) to status. Indices outside the
// current slice bounds are skipped rather than erroring, since the
// /verifier/presentations handler may be racing a concurrent Check call
// that appended a new request after the caller last listed them.
func (v *Verifier) SetStatus(indices []int, status RequestStatus) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, i := range indices {
		if i < 0 || i >= len(v.requests) {
			continue
		}
		v.requests[i].Status = status
	}
}
