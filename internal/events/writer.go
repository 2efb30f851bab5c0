package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	TaskCreated = "task.created"
	TaskUpdated = "task.updated"
	TaskDeleted = "task.deleted"
)

// Writer appends journal events stamped with the id of the current run.
type Writer struct {
	DB    *sql.DB
	RunID string
	Now   func() time.Time
}

type EventPayload map[string]any

// NewWriter returns a Writer with a fresh run id.
func NewWriter(db *sql.DB) Writer {
	return Writer{DB: db, RunID: uuid.NewString(), Now: time.Now}
}

func (w Writer) now() string {
	if w.Now == nil {
		w.Now = time.Now
	}
	return w.Now().UTC().Format(time.RFC3339Nano)
}

// StartRun records the server identity for this run.
func (w Writer) StartRun(ctx context.Context, serverName, serverVersion string) error {
	_, err := w.DB.ExecContext(ctx, `INSERT INTO runs(id,server_name,server_version,started_at) VALUES (?,?,?,?)`,
		w.RunID, serverName, serverVersion, w.now())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (w Writer) Append(ctx context.Context, evtType, entityID string, payload EventPayload) error {
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = w.DB.ExecContext(ctx, `INSERT INTO events(ts,run_id,type,entity_id,payload_json) VALUES (?,?,?,?,?)`,
		w.now(), w.RunID, evtType, nullable(entityID), string(data))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
