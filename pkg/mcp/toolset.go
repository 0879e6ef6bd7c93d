package mcp

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/mark3labs/mcp-go/client"

	"github.com/jllopis/roundtable/pkg/core"
	rterrors "github.com/jllopis/roundtable/pkg/errors"
)

// ServerConfig describes one MCP server to connect to. Command selects the
// stdio transport, URL the streamable HTTP one.
type ServerConfig struct {
	Name    string
	Command string
	Args    []string
	Env     []string
	URL     string
}

// Connect dials the server the config describes and initializes the session.
func Connect(ctx context.Context, cfg ServerConfig, opts ...ClientOption) (*Client, error) {
	switch {
	case cfg.Command != "":
		mc, err := client.NewStdioMCPClient(cfg.Command, cfg.Env, cfg.Args...)
		if err != nil {
			return nil, err
		}
		return initialize(ctx, mc, "", opts)
	case cfg.URL != "":
		mc, err := client.NewStreamableHttpClient(cfg.URL)
		if err != nil {
			return nil, err
		}
		return initialize(ctx, mc, "", opts)
	default:
		return nil, rterrors.New(rterrors.CodeConfiguration,
			fmt.Sprintf("mcp server %q needs a command or a url", cfg.Name), nil)
	}
}

// Toolset holds connections to several MCP servers and the aggregated tools
// they expose. Close closes every connection.
type Toolset struct {
	clients map[string]*Client
	tools   []core.Tool
}

// NewToolset connects to each configured server and collects its tools. On
// name clashes across servers the first server wins. Any connection or
// discovery failure closes what was already opened.
func NewToolset(ctx context.Context, servers []ServerConfig, opts ...ClientOption) (*Toolset, error) {
	ts := &Toolset{clients: make(map[string]*Client, len(servers))}
	seen := make(map[string]bool)

	for _, cfg := range servers {
		if _, dup := ts.clients[cfg.Name]; dup {
			ts.Close()
			return nil, rterrors.New(rterrors.CodeConfiguration,
				fmt.Sprintf("duplicate mcp server %q", cfg.Name), nil)
		}

		cl, err := Connect(ctx, cfg, opts...)
		if err != nil {
			ts.Close()
			return nil, fmt.Errorf("connect mcp server %q: %w", cfg.Name, err)
		}
		ts.clients[cfg.Name] = cl

		tools, err := LoadTools(ctx, cl)
		if err != nil {
			ts.Close()
			return nil, fmt.Errorf("list tools on %q: %w", cfg.Name, err)
		}
		for _, tool := range tools {
			if seen[tool.Name()] {
				continue
			}
			seen[tool.Name()] = true
			ts.tools = append(ts.tools, tool)
		}
	}
	return ts, nil
}

// Tools returns the aggregated tools across all servers.
func (ts *Toolset) Tools() []core.Tool {
	out := make([]core.Tool, len(ts.tools))
	copy(out, ts.tools)
	return out
}

// Servers returns the names of the connected servers.
func (ts *Toolset) Servers() []string {
	names := make([]string, 0, len(ts.clients))
	for name := range ts.clients {
		names = append(names, name)
	}
	return names
}

// Close closes every server connection, joining any errors.
func (ts *Toolset) Close() error {
	var errs []error
	for name, cl := range ts.clients {
		if err := cl.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %q: %w", name, err))
		}
	}
	ts.clients = map[string]*Client{}
	return stderrors.Join(errs...)
}
