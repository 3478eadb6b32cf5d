package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataflywheel/chatgate/internal/config"
	"github.com/dataflywheel/chatgate/internal/log"
)

type fakeInvoker struct {
	lastName string
	lastArgs map[string]any
	result   string
	err      error
}

func (f *fakeInvoker) Invoke(_ context.Context, name string, args map[string]any) (string, error) {
	f.lastName = name
	f.lastArgs = args
	return f.result, f.err
}

func TestWithInvoker_Roundtrip(t *testing.T) {
	inv := &fakeInvoker{result: "4"}
	ctx := WithInvoker(context.Background(), inv)

	got, ok := invokerFrom(ctx)
	require.True(t, ok)
	assert.Same(t, inv, got.(*fakeInvoker))
}

func TestInvokerFrom_Unbound(t *testing.T) {
	_, ok := invokerFrom(context.Background())
	assert.False(t, ok)
}

func TestToolSchema(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{name: "nil schema", raw: nil},
		{name: "empty schema", raw: []byte{}},
		{name: "invalid json", raw: []byte(`{"type":`)},
		{name: "json null", raw: []byte(`null`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := toolSchema(tt.raw)
			assert.Equal(t, map[string]any{"type": "object"}, s)
		})
	}
}

func TestToolSchema_Parses(t *testing.T) {
	raw := []byte(`{"type":"object","properties":{"expression":{"type":"string"}},"required":["expression"]}`)

	s := toolSchema(raw)

	assert.Equal(t, "object", s["type"])
	props, ok := s["properties"].(map[string]any)
	require.True(t, ok)
	expr, ok := props["expression"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", expr["type"])
	assert.Equal(t, []any{"expression"}, s["required"])
}

type fakePromptSource struct {
	text string
	err  error

	gotName string
}

func (f *fakePromptSource) Prompt(_ context.Context, name string, _ map[string]string) (string, error) {
	f.gotName = name
	return f.text, f.err
}

func TestSystemPrompt(t *testing.T) {
	cfg := &config.Config{
		SystemPrompt:     "default prompt",
		SystemPromptName: "base-system-prompt",
	}
	logger := log.NewNop()

	t.Run("server prompt wins", func(t *testing.T) {
		src := &fakePromptSource{text: "server prompt"}

		got := SystemPrompt(context.Background(), src, cfg, logger)

		assert.Equal(t, "server prompt", got)
		assert.Equal(t, "base-system-prompt", src.gotName)
	})

	t.Run("fetch failure falls back", func(t *testing.T) {
		src := &fakePromptSource{err: errors.New("boom")}

		got := SystemPrompt(context.Background(), src, cfg, logger)

		assert.Equal(t, "default prompt", got)
	})
}

func TestInitializationError(t *testing.T) {
	cause := errors.New("connection refused")
	err := &InitializationError{Stage: "dial", Err: cause}

	assert.Contains(t, err.Error(), "dial")
	assert.Contains(t, err.Error(), "connection refused")
	assert.ErrorIs(t, err, cause)

	var initErr *InitializationError
	assert.ErrorAs(t, err, &initErr)
}

func TestError(t *testing.T) {
	cause := errors.New("model overloaded")
	err := &Error{Op: "generate", Err: cause}

	assert.Contains(t, err.Error(), "generate")
	assert.ErrorIs(t, err, cause)
}
