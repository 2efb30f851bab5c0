package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"taskmcp/internal/domain"
	"taskmcp/internal/events"
	"taskmcp/internal/store"
)

// Engine validates task operations and applies them to the store. Successful
// mutations are journaled when an events writer is configured.
type Engine struct {
	Store  *store.Store
	Events *events.Writer
	Logger *slog.Logger
}

func New(s *store.Store, w *events.Writer, logger *slog.Logger) Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return Engine{Store: s, Events: w, Logger: logger}
}

func (e Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TaskCreateOptions are parameters for creating a task.
type TaskCreateOptions struct {
	Title       string
	Description string
	Priority    string
}

func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	if opts.Title == "" {
		return domain.Task{}, ValidationError{Field: "title", Reason: "must not be empty"}
	}
	priority := domain.PriorityMedium
	if opts.Priority != "" {
		p, err := parsePriority(opts.Priority)
		if err != nil {
			return domain.Task{}, err
		}
		priority = p
	}
	t := e.Store.Create(opts.Title, opts.Description, priority)
	e.logger().DebugContext(ctx, "task created", "id", t.ID, "priority", t.Priority)
	e.journal(ctx, events.TaskCreated, t.ID, events.EventPayload{
		"title":    t.Title,
		"priority": string(t.Priority),
	})
	return t, nil
}

// GetTask returns a copy of the task with id, or a NotFoundError.
func (e Engine) GetTask(_ context.Context, id string) (domain.Task, error) {
	t, ok := e.Store.Get(id)
	if !ok {
		return domain.Task{}, NotFoundError{ID: id}
	}
	return t, nil
}

// ListTasks returns tasks in creation order, optionally filtered by status.
func (e Engine) ListTasks(_ context.Context, status string) ([]domain.Task, error) {
	tasks := e.Store.List()
	if status == "" {
		return tasks, nil
	}
	want, err := parseStatus(status)
	if err != nil {
		return nil, err
	}
	filtered := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == want {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}

// TaskUpdateOptions encapsulates allowed updates. Nil fields are unchanged.
type TaskUpdateOptions struct {
	ID          string
	Title       *string
	Description *string
	Status      *string
	Priority    *string
}

func (e Engine) UpdateTask(ctx context.Context, opts TaskUpdateOptions) (domain.Task, error) {
	var upd store.TaskUpdate
	changed := make([]string, 0, 4)
	if opts.Title != nil {
		if *opts.Title == "" {
			return domain.Task{}, ValidationError{Field: "title", Reason: "must not be empty"}
		}
		upd.Title = opts.Title
		changed = append(changed, "title")
	}
	if opts.Description != nil {
		upd.Description = opts.Description
		changed = append(changed, "description")
	}
	if opts.Status != nil {
		s, err := parseStatus(*opts.Status)
		if err != nil {
			return domain.Task{}, err
		}
		upd.Status = &s
		changed = append(changed, "status")
	}
	if opts.Priority != nil {
		p, err := parsePriority(*opts.Priority)
		if err != nil {
			return domain.Task{}, err
		}
		upd.Priority = &p
		changed = append(changed, "priority")
	}
	t, ok := e.Store.Update(opts.ID, upd)
	if !ok {
		return domain.Task{}, NotFoundError{ID: opts.ID}
	}
	e.logger().DebugContext(ctx, "task updated", "id", t.ID, "fields", changed)
	e.journal(ctx, events.TaskUpdated, t.ID, events.EventPayload{
		"fields": changed,
		"status": string(t.Status),
	})
	return t, nil
}

func (e Engine) DeleteTask(ctx context.Context, id string) error {
	t, err := e.GetTask(ctx, id)
	if err != nil {
		return err
	}
	e.Store.Delete(id)
	e.logger().DebugContext(ctx, "task deleted", "id", id)
	e.journal(ctx, events.TaskDeleted, id, events.EventPayload{
		"title":  t.Title,
		"status": string(t.Status),
	})
	return nil
}

// journal never fails the caller; the store mutation has already happened.
func (e Engine) journal(ctx context.Context, evtType, entityID string, payload events.EventPayload) {
	if e.Events == nil {
		return
	}
	if err := e.Events.Append(ctx, evtType, entityID, payload); err != nil {
		e.logger().WarnContext(ctx, "journal append failed", "type", evtType, "id", entityID, "err", err)
	}
}

func parseStatus(v string) (domain.Status, error) {
	s := domain.Status(v)
	if !s.Valid() {
		return "", ValidationError{
			Field:  "status",
			Reason: fmt.Sprintf("%q is not one of %s", v, strings.Join(domain.Statuses, ", ")),
		}
	}
	return s, nil
}

func parsePriority(v string) (domain.Priority, error) {
	p := domain.Priority(v)
	if !p.Valid() {
		return "", ValidationError{
			Field:  "priority",
			Reason: fmt.Sprintf("%q is not one of %s", v, strings.Join(domain.Priorities, ", ")),
		}
	}
	return p, nil
}
