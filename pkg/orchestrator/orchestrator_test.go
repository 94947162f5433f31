package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verza/zkcreds/pkg/prover"
	"github.com/verza/zkcreds/pkg/zkvmtypes"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, *prover.LocalProver) {
	t.Helper()
	p, err := prover.GenerateLocalProver()
	require.NoError(t, err)
	return New(p, nil, nil), p
}

func sampleInput(t *testing.T) zkvmtypes.ZkvmInput {
	t.Helper()
	canonical, _, err := zkvmtypes.EncodeInstance(zkvmtypes.CredentialInstanceData{
		Details:  `{"age":30}`,
		Nonce:    "abc",
		SchemaID: 1,
	})
	require.NoError(t, err)
	return zkvmtypes.ZkvmInput{
		Credentials: []string{string(canonical)},
		Lang:        zkvmtypes.ScriptLangRhai,
		Script:      "true",
	}
}

func waitForStatus(t *testing.T, o *Orchestrator, id uint64, want Status, timeout time.Duration) StatusResult {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		result := o.Status(context.Background(), id)
		if result.Status == want {
			return result
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for task %d to reach status %s", id, want)
	return StatusResult{}
}

func TestSubmitEventuallyReady(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	id, active := o.Submit(sampleInput(t))
	assert.Equal(t, uint64(0), id)
	assert.Equal(t, uint64(0), active)

	result := waitForStatus(t, o, id, StatusReady, time.Second)
	require.NotNil(t, result.Receipt)
	assert.NotEmpty(t, result.Receipt.Journal)
}

func TestUnknownTaskID(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	result := o.Status(context.Background(), 999)
	assert.Equal(t, StatusUnknown, result.Status)
}

func TestTimeEstimateClampsAtZero(t *testing.T) {
	assert.Equal(t, uint64(0), timeEstimate(1, 5))
	assert.Equal(t, uint64(0), timeEstimate(5, 5))
	assert.Equal(t, uint64(10), timeEstimate(10, 5))
}

func TestSecondSubmitWhileActiveDoesNotSpawnSecondWorker(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	id1, active1 := o.Submit(sampleInput(t))
	id2, active2 := o.Submit(sampleInput(t))

	assert.Equal(t, id1, active1)
	assert.Equal(t, active1, active2, "second submit reports the already-running task as active")

	waitForStatus(t, o, id1, StatusReady, time.Second)
	waitForStatus(t, o, id2, StatusReady, time.Second)
}

type panickingProver struct{}

func (panickingProver) Prove(ctx context.Context, input zkvmtypes.ZkvmInput) (*prover.Receipt, error) {
	panic("boom")
}

func (panickingProver) Verify(receipt *prover.Receipt) (*zkvmtypes.ZkCommit, error) {
	return nil, nil
}

func TestProverPanicMarksTaskFailedAndWorkerContinues(t *testing.T) {
	o := New(panickingProver{}, nil, nil)
	id1, _ := o.Submit(sampleInput(t))

	result := waitForStatus(t, o, id1, StatusFailed, time.Second)
	assert.Contains(t, result.FailureReason, "boom")

	// A later task on the same orchestrator is still picked up and run —
	// the worker loop does not wedge isActive after a panic.
	id2, _ := o.Submit(sampleInput(t))
	result = waitForStatus(t, o, id2, StatusFailed, time.Second)
	assert.Contains(t, result.FailureReason, "boom")
}
