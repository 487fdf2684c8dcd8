package extract

import (
	"context"
	"time"

	"extract-gateway/internal/metrics"
	"extract-gateway/internal/shared"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// Backoff bounds the readiness poll after a pull. Deadline caps the total
// time spent polling.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Deadline   time.Duration
}

func (b Backoff) policy() *backoff.ExponentialBackOff {
	initial := b.Initial
	if initial <= 0 {
		initial = b.Deadline
	}
	maxInterval := max(b.Max, initial)
	multiplier := max(b.Multiplier, 1)
	return &backoff.ExponentialBackOff{
		InitialInterval: initial,
		Multiplier:      multiplier,
		MaxInterval:     maxInterval,
	}
}

// ensureProvisioned pulls model and waits for it to show up in the listing.
// Concurrent callers for the same model share one pull. The pull outlives a
// canceled caller so the other waiters still get a result.
func (h *ExtractHandler) ensureProvisioned(ctx context.Context, log *zap.SugaredLogger, model string) bool {
	ch := h.pulls.DoChan(model, func() (any, error) {
		return h.provision(context.WithoutCancel(ctx), log, model), nil
	})
	metrics.ProvisionWaiters.Inc()
	defer metrics.ProvisionWaiters.Dec()
	select {
	case <-ctx.Done():
		log.Warnw("Request canceled while provisioning", "error", ctx.Err().Error())
		return false
	case res := <-ch:
		if res.Shared {
			log.Debugw("Shared in-flight provisioning")
		}
		ok, _ := res.Val.(bool)
		return ok
	}
}

func (h *ExtractHandler) provision(ctx context.Context, log *zap.SugaredLogger, model string) bool {
	if h.locker != nil {
		lockCtx, cancel := context.WithTimeout(ctx, h.opts.LockWait)
		unlock, err := h.locker.Lock(lockCtx, model)
		cancel()
		if err != nil {
			log.Warnw("Provisioning lock unavailable, pulling anyway", "error", err.Error())
		} else {
			defer unlock()
		}
	}

	if !h.Runtime.Provision(ctx, model) {
		return false
	}
	return h.settle(ctx, log, model)
}

func (h *ExtractHandler) settle(ctx context.Context, log *zap.SugaredLogger, model string) bool {
	if h.opts.SettleMode == shared.SettleModeDelay {
		return h.sleep(ctx, h.opts.SettleDelay) == nil
	}
	return h.awaitInstalled(ctx, log, model)
}

func (h *ExtractHandler) awaitInstalled(ctx context.Context, log *zap.SugaredLogger, model string) bool {
	b := h.opts.Settle
	opts := []backoff.RetryOption{
		backoff.WithBackOff(b.policy()),
		backoff.WithNotify(func(_ error, next time.Duration) {
			log.Debugw("Model not listed yet", "retry_in", next)
		}),
	}
	if b.Deadline > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(b.Deadline))
	} else {
		opts = append(opts, backoff.WithMaxTries(1))
	}

	attempts := 0
	_, err := backoff.Retry(ctx, func() (bool, error) {
		attempts++
		if h.Runtime.IsInstalled(ctx, model) {
			return true, nil
		}
		return false, shared.ErrNotReady
	}, opts...)
	if err != nil {
		log.Warnw(shared.ErrNotReady.Msg, "attempts", attempts, "error", err.Error())
		return false
	}
	return true
}
