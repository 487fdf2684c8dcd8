package runtime

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"extract-gateway/internal/metrics"
	"extract-gateway/internal/shared"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type call struct {
	args  []string
	stdin string
}

type fakeExecutor struct {
	mu      sync.Mutex
	calls   []call
	outputs map[string]Output
	errs    map[string]error
}

func (f *fakeExecutor) Execute(_ context.Context, stdin io.Reader, args ...string) (Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := call{args: args}
	if stdin != nil {
		b, _ := io.ReadAll(stdin)
		c.stdin = string(b)
	}
	f.calls = append(f.calls, c)
	return f.outputs[args[0]], f.errs[args[0]]
}

func newTestClient(f *fakeExecutor) *Client {
	return NewClient(f, zap.NewNop().Sugar(), DefaultTimeouts())
}

func TestList_SplitsLines(t *testing.T) {
	f := &fakeExecutor{outputs: map[string]Output{"list": {Stdout: "line1\nline2\n"}}}
	lines, err := newTestClient(f).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"line1", "line2"}, lines)
}

func TestList_EmptyOutputIsEmptySlice(t *testing.T) {
	f := &fakeExecutor{outputs: map[string]Output{"list": {}}}
	lines, err := newTestClient(f).List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, lines)
	assert.Empty(t, lines)
}

func TestList_NonZeroExit(t *testing.T) {
	f := &fakeExecutor{outputs: map[string]Output{"list": {Stderr: "could not connect to ollama app", ExitCode: 1}}}
	_, err := newTestClient(f).List(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrRuntimeExit)
	assert.Contains(t, err.Error(), "could not connect")
}

func TestIsInstalled(t *testing.T) {
	f := &fakeExecutor{outputs: map[string]Output{"list": {Stdout: "NAME ID\nopenchat:latest abc\nllama3:8b def\n"}}}
	c := newTestClient(f)

	tests := []struct {
		model string
		want  bool
	}{
		{"openchat", true},
		{"openchat:latest", true},
		{"llama3", true},
		{"mistral", false},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsInstalled(context.Background(), tt.model))
		})
	}
}

func TestIsInstalled_ExactNameAlwaysMatches(t *testing.T) {
	for _, name := range []string{"a", "qwen2.5:7b-instruct", "x/y:z"} {
		f := &fakeExecutor{outputs: map[string]Output{"list": {Stdout: name + "\n"}}}
		assert.True(t, newTestClient(f).IsInstalled(context.Background(), name), name)
	}
}

func TestIsInstalled_FailureIsNotInstalled(t *testing.T) {
	f := &fakeExecutor{errs: map[string]error{"list": shared.ErrRuntimeLaunch}}
	assert.False(t, newTestClient(f).IsInstalled(context.Background(), "openchat"))
}

func TestProvision(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := &fakeExecutor{outputs: map[string]Output{"pull": {}}}
		assert.True(t, newTestClient(f).Provision(context.Background(), "testmodel"))
		require.Len(t, f.calls, 1)
		assert.Equal(t, []string{"pull", "--", "testmodel"}, f.calls[0].args)
	})
	t.Run("non-zero exit", func(t *testing.T) {
		f := &fakeExecutor{outputs: map[string]Output{"pull": {Stderr: "not found", ExitCode: 1}}}
		assert.False(t, newTestClient(f).Provision(context.Background(), "testmodel"))
		assert.Len(t, f.calls, 1)
	})
	t.Run("launch failure", func(t *testing.T) {
		f := &fakeExecutor{errs: map[string]error{"pull": errors.Join(shared.ErrRuntimeLaunch, errors.New("no such file"))}}
		assert.False(t, newTestClient(f).Provision(context.Background(), "testmodel"))
	})
}

func TestProvision_FailedModelNotUsedAsLabel(t *testing.T) {
	failed := metrics.Provisions.WithLabelValues(shared.MetricsOtherModel, "failed")
	var before dto.Metric
	require.NoError(t, failed.Write(&before))

	f := &fakeExecutor{outputs: map[string]Output{"pull": {Stderr: "not found", ExitCode: 1}}}
	assert.False(t, newTestClient(f).Provision(context.Background(), "no-such-model-7f3a"))

	var after dto.Metric
	require.NoError(t, failed.Write(&after))
	assert.Equal(t, before.GetCounter().GetValue()+1, after.GetCounter().GetValue())
	assert.False(t, metrics.Provisions.DeleteLabelValues("no-such-model-7f3a", "failed"))
}

func TestRun(t *testing.T) {
	t.Run("success returns stdout verbatim", func(t *testing.T) {
		f := &fakeExecutor{outputs: map[string]Output{"run": {Stdout: "{\"Name\":[\"x\"]}\n", Stderr: "spinner"}}}
		res := newTestClient(f).Run(context.Background(), "m", "prompt text")
		assert.True(t, res.OK)
		assert.Equal(t, "{\"Name\":[\"x\"]}\n", res.Output)
		require.Len(t, f.calls, 1)
		assert.Equal(t, []string{"run", "--", "m"}, f.calls[0].args)
		assert.Equal(t, "prompt text", f.calls[0].stdin)
	})
	t.Run("success with empty stdout", func(t *testing.T) {
		f := &fakeExecutor{outputs: map[string]Output{"run": {Stderr: "warn"}}}
		res := newTestClient(f).Run(context.Background(), "m", "p")
		assert.True(t, res.OK)
		assert.Equal(t, "", res.Output)
	})
	t.Run("failure returns stderr exactly", func(t *testing.T) {
		f := &fakeExecutor{outputs: map[string]Output{"run": {Stdout: "ignored", Stderr: "Error: pull model manifest\n", ExitCode: 1}}}
		res := newTestClient(f).Run(context.Background(), "m", "p")
		assert.False(t, res.OK)
		assert.Equal(t, 1, res.ExitCode)
		assert.Equal(t, "Error: pull model manifest\n", res.Output)
	})
	t.Run("launch failure", func(t *testing.T) {
		f := &fakeExecutor{
			outputs: map[string]Output{"run": {ExitCode: -1}},
			errs:    map[string]error{"run": shared.ErrRuntimeLaunch},
		}
		res := newTestClient(f).Run(context.Background(), "m", "p")
		assert.False(t, res.OK)
		assert.Equal(t, shared.ErrRuntimeLaunch.Error(), res.Output)
	})
}

func TestClient_AgainstCLI(t *testing.T) {
	c := NewClient(helperCLI(), zap.NewNop().Sugar(), DefaultTimeouts())
	ctx := context.Background()

	assert.True(t, c.IsInstalled(ctx, "openchat"))
	assert.False(t, c.IsInstalled(ctx, "mistral"))
	assert.True(t, c.Provision(ctx, "mistral"))
	assert.False(t, c.Provision(ctx, "missing"))

	res := c.Run(ctx, "openchat", "hello")
	assert.True(t, res.OK)
	assert.Equal(t, "openchat:hello", res.Output)

	res = c.Run(ctx, "broken", "hello")
	assert.False(t, res.OK)
	assert.Equal(t, "Error: model crashed", res.Output)
}

func TestClient_FlagLikeModelNameIsPositional(t *testing.T) {
	c := NewClient(helperCLI(), zap.NewNop().Sugar(), DefaultTimeouts())
	ctx := context.Background()

	assert.False(t, c.Provision(ctx, "--help"))

	res := c.Run(ctx, "--help", "hello")
	assert.False(t, res.OK)
	assert.NotContains(t, res.Output, "Usage:")
}
