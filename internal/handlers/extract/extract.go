package extract

import (
	"context"
	"fmt"

	"extract-gateway/internal/metrics"
	"extract-gateway/internal/prompt"
	"extract-gateway/internal/runtime"
	"extract-gateway/internal/shared"

	"go.uber.org/zap"
)

type OutcomeKind string

const (
	OutcomeRejected        OutcomeKind = "rejected"
	OutcomeProvisionFailed OutcomeKind = "provision_failed"
	OutcomeCompleted       OutcomeKind = "completed"
	OutcomeRunFailed       OutcomeKind = "run_failed"
)

type ExtractInput struct {
	Ctx context.Context
	Req shared.ExtractionRequest
	// Log is the request scoped logger, falls back to the handler logger
	Log *zap.SugaredLogger
}

// Outcome is the terminal state of one extraction request.
type Outcome struct {
	Kind        OutcomeKind
	Model       string
	Provisioned bool
	// Text is the model output, the captured error stream, or the rejection
	// message depending on Kind
	Text     string
	ExitCode int
}

// Body is the JSON payload sent back for the outcome. A failed run is
// reported in the same field as a successful one.
func (o *Outcome) Body() any {
	if o.Kind == OutcomeProvisionFailed {
		return shared.ErrorResponse{Error: fmt.Sprintf(shared.MsgDownloadFailed, o.Model)}
	}
	return shared.ExtractionResponse{Response: o.Text}
}

// Extract runs one request through validation, availability checks,
// optional provisioning, prompt building and the model run. It never
// returns an error; every failure is a terminal Outcome.
func (h *ExtractHandler) Extract(input ExtractInput) *Outcome {
	ctx := input.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	log := input.Log
	if log == nil {
		log = h.Log
	}

	model := input.Req.Model
	if model == "" {
		model = h.opts.DefaultModel
	}
	log = log.With("model", model)
	out := &Outcome{Model: model}
	defer func() {
		label := model
		if out.Kind == OutcomeRejected || out.Kind == OutcomeProvisionFailed {
			label = shared.MetricsOtherModel
		}
		metrics.Extractions.WithLabelValues(label, string(out.Kind)).Inc()
	}()

	if input.Req.HTML == "" {
		out.Kind = OutcomeRejected
		out.Text = shared.MsgNoHTML
		return out
	}

	if !h.Runtime.IsInstalled(ctx, model) {
		out.Provisioned = true
		if !h.ensureProvisioned(ctx, log, model) {
			out.Kind = OutcomeProvisionFailed
			return out
		}
	}

	html := input.Req.HTML
	if h.opts.CleanHTML {
		cleaned, err := prompt.Clean(html, h.opts.MaxHTMLChars)
		if err != nil {
			log.Warnw("Failed to clean html, using raw content", "error", err.Error())
		} else {
			html = cleaned
		}
	}

	res := h.run(ctx, model, prompt.Build(input.Req.Message, html))
	out.Text = res.Output
	out.ExitCode = res.ExitCode
	out.Kind = OutcomeCompleted
	if !res.OK {
		out.Kind = OutcomeRunFailed
		log.Warnw("Model run failed", "exit_code", res.ExitCode)
	}
	return out
}

func (h *ExtractHandler) run(ctx context.Context, model, text string) runtime.InvocationResult {
	if err := h.runs.Acquire(ctx, 1); err != nil {
		return runtime.InvocationResult{
			Output:   fmt.Sprintf("%s: %v", shared.ErrRunSlot.Msg, err),
			ExitCode: -1,
		}
	}
	metrics.InflightRuns.Inc()
	defer func() {
		metrics.InflightRuns.Dec()
		h.runs.Release(1)
	}()
	return h.Runtime.Run(ctx, model, text)
}
