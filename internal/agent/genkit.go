package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"

	"github.com/dataflywheel/chatgate/internal/catalog"
	"github.com/dataflywheel/chatgate/internal/config"
	"github.com/dataflywheel/chatgate/internal/log"
)

// Runtime holds the process-wide Genkit instance and the tools registered
// from the tool server's catalog. Construct it once at startup; Genkit's tool
// registry is global, so a second Runtime in the same process would collide.
type Runtime struct {
	g        *genkit.Genkit
	model    string
	maxTurns int
	tools    []ai.ToolRef
	logger   log.Logger
}

// NewRuntime initializes Genkit with the configured AI provider and registers
// one Genkit tool per catalog descriptor. The handlers are connection-free:
// at call time they pull the session's ToolInvoker from the context, so the
// same registration serves every session.
func NewRuntime(ctx context.Context, cfg *config.Config, tools []catalog.ToolDescriptor, logger log.Logger) (*Runtime, error) {
	g, err := initGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, &InitializationError{Stage: "runtime", Err: err}
	}

	rt := &Runtime{
		g:        g,
		model:    cfg.FullModelName(),
		maxTurns: cfg.MaxTurns,
		logger:   logger,
	}

	rt.tools = make([]ai.ToolRef, 0, len(tools))
	for _, td := range tools {
		rt.tools = append(rt.tools, rt.defineTool(td))
	}
	logger.Info("agent runtime ready",
		"provider", cfg.Provider, "model", rt.model, "tools", len(rt.tools))

	return rt, nil
}

// initGenkit initializes Genkit with the configured AI provider.
// Supports gemini (default), ollama, and openai providers.
func initGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		plugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g := genkit.Init(ctx, genkit.WithPlugins(plugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit model registration (no auto-discovery)
		plugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		logger.Info("initialized Genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)
		return g, nil

	case config.ProviderOpenAI:
		g := genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized Genkit with openai provider", "model", cfg.ModelName)
		return g, nil

	default: // gemini
		g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)
		return g, nil
	}
}

// defineTool registers one catalog tool with Genkit, keeping the server's own
// JSON schema so the model sees the same argument contract the server
// advertises.
func (rt *Runtime) defineTool(td catalog.ToolDescriptor) ai.ToolRef {
	name := td.Name
	return genkit.DefineToolWithInputSchema(rt.g, name, td.Description, toolSchema(td.InputSchema),
		func(toolCtx *ai.ToolContext, input any) (any, error) {
			inv, ok := invokerFrom(toolCtx.Context)
			if !ok {
				return nil, fmt.Errorf("no tool invoker bound for %q", name)
			}
			args, _ := input.(map[string]any)
			out, err := inv.Invoke(toolCtx.Context, name, args)
			if err != nil {
				return nil, fmt.Errorf("calling tool %q: %w", name, err)
			}
			return out, nil
		})
}

// toolSchema parses the server-provided schema, falling back to an open
// object when the server sent none or sent something unparseable.
func toolSchema(raw []byte) map[string]any {
	if len(raw) > 0 {
		var s map[string]any
		if err := json.Unmarshal(raw, &s); err == nil && s != nil {
			return s
		}
	}
	return map[string]any{"type": "object"}
}

// Adapter is one session's Responder. It carries the session's catalog
// client, binds it to the context on every Ask, and closes it with the
// session.
type Adapter struct {
	rt     *Runtime
	client *catalog.Client
}

// NewAdapter binds a session's catalog client to the shared runtime.
func (rt *Runtime) NewAdapter(client *catalog.Client) *Adapter {
	return &Adapter{rt: rt, client: client}
}

// Ask runs one generation with the catalog tools available to the model.
func (a *Adapter) Ask(ctx context.Context, prompt string) (string, error) {
	ctx = WithInvoker(ctx, a.client)

	opts := []ai.GenerateOption{
		ai.WithModelName(a.rt.model),
		ai.WithPrompt(prompt),
		ai.WithMaxTurns(a.rt.maxTurns),
	}
	if len(a.rt.tools) > 0 {
		opts = append(opts, ai.WithTools(a.rt.tools...))
	}

	resp, err := genkit.Generate(ctx, a.rt.g, opts...)
	if err != nil {
		return "", &Error{Op: "generate", Err: err}
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		a.rt.logger.Warn("model returned empty response",
			"server", a.client.Server())
		return FallbackResponseMessage, nil
	}
	return text, nil
}

// Close releases the session's tool server connection.
func (a *Adapter) Close() error {
	return a.client.Close()
}
