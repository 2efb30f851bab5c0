package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestServeIsDefaultCommand(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}` + "\n" +
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"create_task","arguments":{"title":"Buy milk"}}}` + "\n"
	out, _, err := runCLI(t, input, "--no-journal", "--config", filepath.Join(t.TempDir(), "none.yml"))
	if err != nil {
		t.Fatalf("serve failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 response lines, got %d: %q", len(lines), out)
	}
	if !strings.Contains(lines[0], `"protocolVersion":"2024-11-05"`) {
		t.Fatalf("unexpected handshake: %s", lines[0])
	}
	if !strings.Contains(lines[1], "Task created successfully") {
		t.Fatalf("unexpected create response: %s", lines[1])
	}
}

func TestServeWithJournalThenTail(t *testing.T) {
	dir := t.TempDir()
	journal := filepath.Join(dir, "journal.db")
	input := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"create_task","arguments":{"title":"a"}}}` + "\n" +
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"delete_task","arguments":{"task_id":"1"}}}` + "\n"
	if _, _, err := runCLI(t, input, "serve", "--journal", journal, "--config", filepath.Join(dir, "none.yml")); err != nil {
		t.Fatalf("serve failed: %v", err)
	}

	out, _, err := runCLI(t, "", "log", "tail", "--journal", journal, "--json")
	if err != nil {
		t.Fatalf("log tail failed: %v", err)
	}
	var evts []struct {
		Type     string `json:"type"`
		EntityID string `json:"entity_id"`
	}
	if err := json.Unmarshal([]byte(out), &evts); err != nil {
		t.Fatalf("decode events %q: %v", out, err)
	}
	if len(evts) != 2 || evts[0].Type != "task.deleted" || evts[1].Type != "task.created" {
		t.Fatalf("unexpected events: %+v", evts)
	}

	table, _, err := runCLI(t, "", "log", "tail", "--journal", journal, "--type", "task.created")
	if err != nil {
		t.Fatalf("log tail table failed: %v", err)
	}
	if !strings.Contains(table, "task.created") || strings.Contains(table, "task.deleted") {
		t.Fatalf("unexpected table: %s", table)
	}
}

func TestLogTailRequiresJournalFile(t *testing.T) {
	if _, _, err := runCLI(t, "", "log", "tail"); err == nil {
		t.Fatalf("expected error without --journal")
	}
	if _, _, err := runCLI(t, "", "log", "tail", "--journal", filepath.Join(t.TempDir(), "missing.db")); err == nil {
		t.Fatalf("expected error for missing journal file")
	}
}

func TestToolsTable(t *testing.T) {
	out, _, err := runCLI(t, "", "tools")
	if err != nil {
		t.Fatalf("tools failed: %v", err)
	}
	for _, name := range []string{"create_task", "list_tasks", "update_task", "delete_task", "priority{low|medium|high}"} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in output: %s", name, out)
		}
	}
}

func TestConfigInitAndShow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taskmcp.yml")
	if _, _, err := runCLI(t, "", "config", "init", "--file", path); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if _, _, err := runCLI(t, "", "config", "init", "--file", path); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(data), "quickapi-task-manager") {
		t.Fatalf("unexpected config: %s", data)
	}

	out, _, err := runCLI(t, "", "config", "show", "--config", path, "--log-level", "debug")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(out, "level: debug") {
		t.Fatalf("expected flag override in output: %s", out)
	}
}

func TestConfigShowJSONUsesFileKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskmcp.yml")
	out, _, err := runCLI(t, "", "config", "show", "--json", "--config", path)
	if err != nil {
		t.Fatalf("config show --json failed: %v", err)
	}
	var decoded map[string]map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if decoded["server"]["name"] != "quickapi-task-manager" {
		t.Fatalf("expected server.name key, got %s", out)
	}
	if decoded["server"]["protocol_version"] != "2024-11-05" {
		t.Fatalf("expected server.protocol_version key, got %s", out)
	}
	if _, ok := decoded["journal"]["enabled"]; !ok {
		t.Fatalf("expected journal.enabled key, got %s", out)
	}
}

func TestInvalidConfigFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskmcp.yml")
	if err := os.WriteFile(path, []byte("log:\n  format: xml\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := runCLI(t, "", "--config", path); err == nil {
		t.Fatalf("expected config error")
	}
}
