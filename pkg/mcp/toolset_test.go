package mcp

import (
	"context"
	"testing"
)

func TestToolsetAggregatesServers(t *testing.T) {
	first := newTestHTTPServer(t, "first", "search", "fetch")
	defer first.Close()
	second := newTestHTTPServer(t, "second", "fetch", "report")
	defer second.Close()

	ts, err := NewToolset(context.Background(), []ServerConfig{
		{Name: "first", URL: first.URL},
		{Name: "second", URL: second.URL},
	})
	if err != nil {
		t.Fatalf("NewToolset() error = %v", err)
	}
	defer ts.Close()

	tools := ts.Tools()
	names := make(map[string]int)
	for _, tool := range tools {
		names[tool.Name()]++
	}
	for _, want := range []string{"search", "fetch", "report"} {
		if names[want] != 1 {
			t.Errorf("tool %q appears %d times, want exactly once", want, names[want])
		}
	}
	if len(tools) != 3 {
		t.Errorf("Tools() returned %d tools, want 3 after dedup", len(tools))
	}

	if got := len(ts.Servers()); got != 2 {
		t.Errorf("Servers() returned %d names, want 2", got)
	}

	output, err := tools[0].Call(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if output != "ok" {
		t.Errorf("Call() = %v, want %q", output, "ok")
	}
}

func TestToolsetRejectsDuplicateServerNames(t *testing.T) {
	srv := newTestHTTPServer(t, "dup", "ping")
	defer srv.Close()

	_, err := NewToolset(context.Background(), []ServerConfig{
		{Name: "dup", URL: srv.URL},
		{Name: "dup", URL: srv.URL},
	})
	if err == nil {
		t.Fatal("NewToolset() error = nil, want duplicate server error")
	}
}

func TestToolsetRequiresTransport(t *testing.T) {
	_, err := NewToolset(context.Background(), []ServerConfig{{Name: "empty"}})
	if err == nil {
		t.Fatal("NewToolset() error = nil, want transport configuration error")
	}
}
