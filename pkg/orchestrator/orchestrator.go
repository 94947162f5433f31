// Package orchestrator runs proof generation on a single dedicated worker
// goroutine behind a FIFO queue: state transitions happen under a short
// lock, and the expensive call (Prover.Prove) happens outside it.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/verza/zkcreds/pkg/prover"
	"github.com/verza/zkcreds/pkg/zkvmtypes"
)

// Status is the tagged result of a status query.
type Status string

const (
	StatusReady   Status = "ready"
	StatusPending Status = "pending"
	StatusUnknown Status = "unknown"
	StatusFailed  Status = "failed"
)

// StatusResult is the full answer to a status(task_id) query.
type StatusResult struct {
	Status            Status
	Receipt           *prover.Receipt // set when Status == StatusReady
	CurrentTask       uint64          // set when Status == StatusPending
	TimeEstimateMins  uint64          // set when Status == StatusPending
	FailureReason     string          // set when Status == StatusFailed
}

const redisCacheTTL = 24 * time.Hour

// Orchestrator serialises proof generation: exactly one worker goroutine
// runs at a time, spawned only on the idle-to-active transition, and the
// mutex is held only across state transitions, never across a Prove call.
type Orchestrator struct {
	mu sync.Mutex

	isActive     bool
	nextID       uint64
	currentTask  *uint64
	tasks        map[uint64]zkvmtypes.ZkvmInput
	pending      []uint64 // push-front (index 0), pop-back (last index)
	results      map[uint64]*prover.Receipt
	failures     map[uint64]string

	prover prover.Prover
	redis  *redis.Client // optional write-behind cache; nil disables it
	logger *zap.Logger
}

// New builds an Orchestrator around p. redisClient may be nil, in which
// case the Redis write-behind cache is simply not used.
func New(p prover.Prover, redisClient *redis.Client, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		tasks:    make(map[uint64]zkvmtypes.ZkvmInput),
		results:  make(map[uint64]*prover.Receipt),
		failures: make(map[uint64]string),
		prover:   p,
		redis:    redisClient,
		logger:   logger,
	}
}

// Submit enqueues a new proof task and returns its id plus the id of the
// task currently being worked (itself, if no worker was already running).
// When a worker is running but has not yet picked up a task, the active
// task reported is the oldest pending one, which the worker takes next.
// Spawning a worker happens only on the idle-to-active transition, and the
// spawn check and the isActive flag set happen under the same lock
// acquisition, so no race can ever launch two workers.
func (o *Orchestrator) Submit(input zkvmtypes.ZkvmInput) (taskID uint64, activeTask uint64) {
	o.mu.Lock()
	taskID = o.nextID
	o.nextID++
	o.tasks[taskID] = input
	o.pending = append([]uint64{taskID}, o.pending...) // push-front

	wasActive := o.isActive
	o.isActive = true
	if wasActive && o.currentTask != nil {
		activeTask = *o.currentTask
	} else if wasActive {
		activeTask = o.pending[len(o.pending)-1] // oldest pending, popped next
	} else {
		activeTask = taskID
	}
	o.mu.Unlock()

	if !wasActive {
		go o.run()
	}
	return taskID, activeTask
}

// Status answers a status query for taskID.
func (o *Orchestrator) Status(ctx context.Context, taskID uint64) StatusResult {
	o.mu.Lock()
	if receipt, ok := o.results[taskID]; ok {
		o.mu.Unlock()
		return StatusResult{Status: StatusReady, Receipt: receipt}
	}
	if reason, ok := o.failures[taskID]; ok {
		o.mu.Unlock()
		return StatusResult{Status: StatusFailed, FailureReason: reason}
	}
	if o.currentTask != nil && *o.currentTask == taskID {
		current := *o.currentTask
		o.mu.Unlock()
		return StatusResult{Status: StatusPending, CurrentTask: current, TimeEstimateMins: 0}
	}
	for _, id := range o.pending {
		if id == taskID {
			current := uint64(0)
			if o.currentTask != nil {
				current = *o.currentTask
			}
			o.mu.Unlock()
			return StatusResult{
				Status:           StatusPending,
				CurrentTask:      current,
				TimeEstimateMins: timeEstimate(taskID, current),
			}
		}
	}
	o.mu.Unlock()

	// Unrecognized in all in-memory state: this is the only case where
	// correctness may fall back to Redis, and only to extend survivability
	// across restarts — a missing or unreachable cache still answers
	// Unknown correctly, it never blocks the in-memory-only guarantee.
	if o.redis != nil {
		if receipt, ok := o.lookupCache(ctx, taskID); ok {
			return StatusResult{Status: StatusReady, Receipt: receipt}
		}
	}
	return StatusResult{Status: StatusUnknown}
}

// timeEstimate computes time_estimate_minutes for a pending task,
// clamped at 0 instead of underflowing when taskID < current.
func timeEstimate(taskID, current uint64) uint64 {
	if taskID <= current {
		return 0
	}
	return (taskID - current) * 2
}

// run is the single dedicated worker: pop-back from pending until empty,
// then clear isActive and exit. A panic or error from Prove marks that
// task Failed and the worker moves on to the next pending task instead of
// wedging isActive forever.
func (o *Orchestrator) run() {
	for {
		o.mu.Lock()
		if len(o.pending) == 0 {
			o.isActive = false
			o.currentTask = nil
			o.mu.Unlock()
			return
		}
		last := len(o.pending) - 1
		taskID := o.pending[last]
		o.pending = o.pending[:last]
		input := o.tasks[taskID]
		o.currentTask = &taskID
		o.mu.Unlock()

		receipt, err := o.proveGuarded(taskID, input)

		o.mu.Lock()
		if err != nil {
			o.failures[taskID] = err.Error()
			o.logger.Error("proof task failed", zap.Uint64("task_id", taskID), zap.Error(err))
		} else {
			o.results[taskID] = receipt
		}
		o.currentTask = nil
		o.mu.Unlock()

		if err == nil && o.redis != nil {
			o.storeCache(context.Background(), taskID, receipt)
		}
	}
}

// proveGuarded runs Prove behind a recover so a panic inside the prover
// (or the guest it drives) surfaces as a Failed task rather than crashing
// the single worker goroutine and wedging every later submission.
func (o *Orchestrator) proveGuarded(taskID uint64, input zkvmtypes.ZkvmInput) (receipt *prover.Receipt, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("prover panicked on task %d: %v", taskID, r)
		}
	}()
	return o.prover.Prove(context.Background(), input)
}

func (o *Orchestrator) storeCache(ctx context.Context, taskID uint64, receipt *prover.Receipt) {
	encoded, err := prover.EncodeReceipt(receipt)
	if err != nil {
		o.logger.Warn("failed to encode receipt for cache", zap.Error(err))
		return
	}
	key := fmt.Sprintf("task:%d", taskID)
	if err := o.redis.Set(ctx, key, encoded, redisCacheTTL).Err(); err != nil {
		o.logger.Warn("failed to write receipt to redis cache", zap.Error(err))
	}
}

func (o *Orchestrator) lookupCache(ctx context.Context, taskID uint64) (*prover.Receipt, bool) {
	key := fmt.Sprintf("task:%d", taskID)
	encoded, err := o.redis.Get(ctx, key).Result()
	if err != nil {
		return nil, false
	}
	receipt, err := prover.DecodeReceipt(encoded)
	if err != nil {
		o.logger.Warn("failed to decode cached receipt", zap.Error(err))
		return nil, false
	}
	return receipt, true
}
