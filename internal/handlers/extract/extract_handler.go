// Package extract orchestrates model availability and extraction runs
package extract

import (
	"context"
	"time"

	"extract-gateway/internal/runtime"
	"extract-gateway/internal/shared"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// Runtime is the subset of the model runtime the orchestrator drives.
type Runtime interface {
	List(ctx context.Context) ([]string, error)
	IsInstalled(ctx context.Context, model string) bool
	Provision(ctx context.Context, model string) bool
	Run(ctx context.Context, model, prompt string) runtime.InvocationResult
}

// Locker serializes provisioning of one model across gateway processes.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type Options struct {
	DefaultModel      string
	MaxConcurrentRuns int64

	SettleMode string
	// SettleDelay is the blind wait used by SettleModeDelay.
	SettleDelay time.Duration
	Settle      Backoff

	// LockWait bounds how long a request waits for another process's pull.
	LockWait time.Duration

	CleanHTML    bool
	MaxHTMLChars int
}

func DefaultOptions() Options {
	return Options{
		DefaultModel:      shared.DefaultModel,
		MaxConcurrentRuns: shared.DefaultMaxConcurrentRuns,
		SettleMode:        shared.SettleModePoll,
		SettleDelay:       shared.DefaultSettleDelay,
		Settle: Backoff{
			Initial:    shared.DefaultSettleInitialDelay,
			Max:        shared.DefaultSettleMaxDelay,
			Multiplier: shared.SettleBackoffMultiplier,
			Deadline:   shared.DefaultSettleDeadline,
		},
		LockWait: shared.ProvisionLockWait,
	}
}

type ExtractHandler struct {
	Runtime Runtime
	Log     *zap.SugaredLogger
	opts    Options
	locker  Locker
	runs    *semaphore.Weighted
	pulls   singleflight.Group
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewExtractHandler builds the orchestrator. locker may be nil, in which
// case pulls are only deduplicated within this process.
func NewExtractHandler(rt Runtime, log *zap.SugaredLogger, opts Options, locker Locker) *ExtractHandler {
	if opts.MaxConcurrentRuns < 1 {
		opts.MaxConcurrentRuns = 1
	}
	if opts.DefaultModel == "" {
		opts.DefaultModel = shared.DefaultModel
	}
	return &ExtractHandler{
		Runtime: rt,
		Log:     log,
		opts:    opts,
		locker:  locker,
		runs:    semaphore.NewWeighted(opts.MaxConcurrentRuns),
		sleep:   sleepContext,
	}
}

// ListModels returns the raw listing lines of the runtime.
func (h *ExtractHandler) ListModels(ctx context.Context) ([]string, error) {
	return h.Runtime.List(ctx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
