package events

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"taskmcp/internal/domain"
)

// Filter narrows Latest. Empty fields match everything.
type Filter struct {
	Limit    int
	Type     string
	EntityID string
	RunID    string
}

// Latest returns the newest events first.
func Latest(ctx context.Context, db *sql.DB, f Filter) ([]domain.Event, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	var (
		where []string
		args  []any
	)
	if f.Type != "" {
		where = append(where, "type=?")
		args = append(args, f.Type)
	}
	if f.EntityID != "" {
		where = append(where, "entity_id=?")
		args = append(args, f.EntityID)
	}
	if f.RunID != "" {
		where = append(where, "run_id=?")
		args = append(args, f.RunID)
	}
	q := `SELECT id,ts,run_id,type,COALESCE(entity_id,''),payload_json FROM events`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id DESC LIMIT ?"
	args = append(args, f.Limit)

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.RunID, &e.Type, &e.EntityID, &e.Payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
