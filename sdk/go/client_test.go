package taskmcpsdk

import (
	"context"
	"io"
	"testing"

	"taskmcp/internal/app"
	"taskmcp/internal/config"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := config.Default()
	cfg.Journal.Enabled = false
	a, err := app.New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	reqR, reqW := io.Pipe()
	resR, resW := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = a.Serve(ctx, reqR, resW)
		resW.Close()
	}()
	t.Cleanup(func() {
		reqW.Close()
		cancel()
		<-done
		a.Close()
	})
	return New(resR, reqW)
}

func strPtr(s string) *string { return &s }

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	info, err := c.Initialize(ctx)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if info.ProtocolVersion != config.DefaultProtocolVersion || info.ServerInfo.Name != config.DefaultServerName {
		t.Fatalf("unexpected server info: %+v", info)
	}
	tools, err := c.ListTools(ctx)
	if err != nil || len(tools) != 4 {
		t.Fatalf("ListTools: %d tools, %v", len(tools), err)
	}

	milk, err := c.CreateTask(ctx, "Buy milk", "", "")
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if milk.ID != "1" || milk.Status != "pending" || milk.Priority != "medium" {
		t.Fatalf("unexpected task: %+v", milk)
	}
	report, err := c.CreateTask(ctx, "Write report", "quarterly", "high")
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	updated, err := c.UpdateTask(ctx, milk.ID, TaskUpdate{Status: strPtr("completed")})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.Status != "completed" || updated.Title != "Buy milk" {
		t.Fatalf("unexpected update: %+v", updated)
	}

	done, err := c.ListTasks(ctx, "completed")
	if err != nil || len(done) != 1 || done[0].ID != milk.ID {
		t.Fatalf("ListTasks(completed): %+v %v", done, err)
	}

	if err := c.DeleteTask(ctx, report.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if err := c.DeleteTask(ctx, report.ID); !IsNotFound(err) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if _, err := c.UpdateTask(ctx, report.ID, TaskUpdate{}); !IsNotFound(err) {
		t.Fatalf("expected not found on update after delete, got %v", err)
	}

	all, err := c.ListTasks(ctx, "")
	if err != nil || len(all) != 1 {
		t.Fatalf("ListTasks: %+v %v", all, err)
	}
}

func TestClientSurfacesValidationErrors(t *testing.T) {
	c := newTestClient(t)
	_, err := c.CreateTask(context.Background(), "x", "", "urgent")
	if err == nil {
		t.Fatalf("expected error")
	}
	if IsNotFound(err) {
		t.Fatalf("validation error misreported as not found")
	}
}
