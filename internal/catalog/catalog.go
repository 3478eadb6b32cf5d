// Package catalog implements the client side of the remote tool server
// protocol (MCP). It discovers tools, prompts, and resources and invokes
// tools over a single persistent connection.
//
// A Client is scoped to its caller: one per Session, or one per CLI
// invocation. It is never shared across Sessions.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dataflywheel/chatgate/internal/config"
	"github.com/dataflywheel/chatgate/internal/log"
)

// clientName identifies this process in the MCP handshake.
const clientName = "chatgate"

// Client is a connected MCP client session against one named tool server.
type Client struct {
	session *mcp.ClientSession
	server  string
	logger  log.Logger
}

// Dial opens a connection to the configured tool server and performs the
// capability handshake. The returned Client must be closed by the caller.
func Dial(ctx context.Context, ts config.ToolServer, version string, logger log.Logger) (*Client, error) {
	transport, err := buildTransport(ts)
	if err != nil {
		return nil, err
	}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    clientName,
		Version: version,
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, remoteErr(ts.Name, "connect", err)
	}

	logger.Debug("connected to tool server",
		"server", ts.Name,
		"transport", ts.Transport)

	return &Client{
		session: session,
		server:  ts.Name,
		logger:  logger,
	}, nil
}

// buildTransport maps the configured transport to an SDK transport.
func buildTransport(ts config.ToolServer) (mcp.Transport, error) {
	switch ts.Transport {
	case config.TransportHTTP:
		return &mcp.StreamableClientTransport{Endpoint: ts.URL}, nil
	case config.TransportSSE:
		return &mcp.SSEClientTransport{Endpoint: ts.URL}, nil
	case config.TransportStdio:
		cmd := exec.Command(ts.Command, ts.Args...)
		return &mcp.CommandTransport{Command: cmd}, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidTransport, ts.Transport)
	}
}

// connect wraps an already established client session. Used by tests with
// in-memory transports.
func connect(session *mcp.ClientSession, server string, logger log.Logger) *Client {
	return &Client{session: session, server: server, logger: logger}
}

// Server returns the configured tool server name.
func (c *Client) Server() string { return c.server }

// Tools lists the server's tools, deduplicated by name (first occurrence
// wins).
func (c *Client) Tools(ctx context.Context) ([]ToolDescriptor, error) {
	res, err := c.session.ListTools(ctx, nil)
	if err != nil {
		return nil, remoteErr(c.server, "list_tools", err)
	}

	tools := dedupeTools(res.Tools)
	c.logger.Debug("listed tools", "server", c.server, "count", len(tools))
	return tools, nil
}

// dedupeTools converts SDK tools to descriptors, deduplicated by name with
// the first occurrence winning.
func dedupeTools(in []*mcp.Tool) []ToolDescriptor {
	seen := make(map[string]bool, len(in))
	tools := make([]ToolDescriptor, 0, len(in))
	for _, t := range in {
		if seen[t.Name] {
			continue
		}
		seen[t.Name] = true
		var schema json.RawMessage
		if t.InputSchema != nil {
			if raw, err := json.Marshal(t.InputSchema); err == nil {
				schema = raw
			}
		}
		tools = append(tools, ToolDescriptor{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}
	return tools
}

// Prompts lists the server's prompts with their argument metadata.
func (c *Client) Prompts(ctx context.Context) ([]PromptDescriptor, error) {
	res, err := c.session.ListPrompts(ctx, nil)
	if err != nil {
		return nil, remoteErr(c.server, "list_prompts", err)
	}

	prompts := make([]PromptDescriptor, 0, len(res.Prompts))
	for _, p := range res.Prompts {
		d := PromptDescriptor{
			Name:        p.Name,
			Description: p.Description,
		}
		for _, a := range p.Arguments {
			d.Arguments = append(d.Arguments, PromptArgument{
				Name:        a.Name,
				Description: a.Description,
				Required:    a.Required,
			})
		}
		prompts = append(prompts, d)
	}

	return prompts, nil
}

// Resources lists the server's resources. Parametric URIs carry their ordered
// placeholder names in the descriptor.
func (c *Client) Resources(ctx context.Context) ([]ResourceDescriptor, error) {
	res, err := c.session.ListResources(ctx, nil)
	if err != nil {
		return nil, remoteErr(c.server, "list_resources", err)
	}

	resources := make([]ResourceDescriptor, 0, len(res.Resources))
	for _, r := range res.Resources {
		resources = append(resources, ResourceDescriptor{
			URI:         r.URI,
			Name:        r.Name,
			Description: r.Description,
			MIMEType:    r.MIMEType,
			Params:      templateParams(r.URI),
		})
	}

	return resources, nil
}

// Prompt fetches the named prompt rendered with the given arguments and
// returns its message text. Returns ErrPromptNotFound when the server does
// not expose the prompt, a RemoteError for any other failure.
func (c *Client) Prompt(ctx context.Context, name string, args map[string]string) (string, error) {
	res, err := c.session.GetPrompt(ctx, &mcp.GetPromptParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		// The wire error for an unknown prompt is server specific; ask the
		// server what it actually has before classifying.
		if listed, listErr := c.Prompts(ctx); listErr == nil {
			for _, p := range listed {
				if p.Name == name {
					return "", remoteErr(c.server, "get_prompt", err)
				}
			}
			return "", fmt.Errorf("%w: %q on server %s", ErrPromptNotFound, name, c.server)
		}
		return "", remoteErr(c.server, "get_prompt", err)
	}

	var sb strings.Builder
	for _, m := range res.Messages {
		if tc, ok := m.Content.(*mcp.TextContent); ok {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(tc.Text)
		}
	}
	return sb.String(), nil
}

// Invoke calls the named tool and returns the concatenated text content of
// the result. A server-side tool failure (IsError) maps to a RemoteError,
// same as a transport failure.
func (c *Client) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	res, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return "", remoteErr(c.server, "call_tool", err)
	}

	text := contentText(res.Content)
	if res.IsError {
		return "", remoteErr(c.server, "call_tool", fmt.Errorf("tool %q: %s", name, text))
	}
	return text, nil
}

// ReadResource reads the given resource URI and returns its text contents.
func (c *Client) ReadResource(ctx context.Context, uri string) (string, error) {
	res, err := c.session.ReadResource(ctx, &mcp.ReadResourceParams{URI: uri})
	if err != nil {
		return "", remoteErr(c.server, "read_resource", err)
	}

	var sb strings.Builder
	for _, rc := range res.Contents {
		if rc.Text != "" {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(rc.Text)
		}
	}
	return sb.String(), nil
}

// Close releases the connection. Safe to call more than once.
func (c *Client) Close() error {
	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}

// contentText concatenates the text parts of an MCP content list.
func contentText(content []mcp.Content) string {
	var sb strings.Builder
	for _, item := range content {
		if tc, ok := item.(*mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}
