package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"taskmcp/internal/db"
	"taskmcp/internal/migrate"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(db.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func TestAppendAndLatest(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	w := NewWriter(conn)
	w.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	if w.RunID == "" {
		t.Fatalf("expected run id")
	}
	if err := w.StartRun(ctx, "srv", "1.0.0"); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := w.Append(ctx, TaskCreated, "1", EventPayload{"title": "Buy milk"}); err != nil {
		t.Fatalf("append created: %v", err)
	}
	if err := w.Append(ctx, TaskDeleted, "1", nil); err != nil {
		t.Fatalf("append deleted: %v", err)
	}

	all, err := Latest(ctx, conn, Filter{})
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 events, got %d", len(all))
	}
	if all[0].Type != TaskDeleted || all[1].Type != TaskCreated {
		t.Fatalf("expected newest first, got %s then %s", all[0].Type, all[1].Type)
	}
	if all[1].RunID != w.RunID || all[1].EntityID != "1" {
		t.Fatalf("unexpected event: %+v", all[1])
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(all[1].Payload), &payload); err != nil {
		t.Fatalf("payload json: %v", err)
	}
	if payload["title"] != "Buy milk" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if all[0].Payload != "{}" {
		t.Fatalf("expected empty object payload, got %q", all[0].Payload)
	}

	created, err := Latest(ctx, conn, Filter{Type: TaskCreated, Limit: 5})
	if err != nil {
		t.Fatalf("Latest filtered: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected 1 created event, got %d", len(created))
	}
	none, err := Latest(ctx, conn, Filter{RunID: "other"})
	if err != nil {
		t.Fatalf("Latest by run: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no events for another run, got %d", len(none))
	}
}
