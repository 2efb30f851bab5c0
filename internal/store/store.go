// Package store holds the in-memory task records.
//
// A Store is owned by a single goroutine; it does no locking. Read paths
// return copies so callers never alias the stored records.
package store

import (
	"strconv"
	"time"

	"taskmcp/internal/domain"
)

// TaskUpdate carries the fields to overwrite. A nil field is left unchanged.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *domain.Status
	Priority    *domain.Priority
}

type Store struct {
	Now func() time.Time

	tasks  map[string]*domain.Task
	order  []string
	nextID uint64
}

func New() *Store {
	return &Store{
		Now:    time.Now,
		tasks:  make(map[string]*domain.Task),
		nextID: 1,
	}
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Create inserts a new pending task. Enum membership of priority is the
// caller's concern; an empty priority means medium.
func (s *Store) Create(title, description string, priority domain.Priority) domain.Task {
	if priority == "" {
		priority = domain.PriorityMedium
	}
	id := strconv.FormatUint(s.nextID, 10)
	s.nextID++
	now := s.now()
	t := &domain.Task{
		ID:          id,
		Title:       title,
		Description: description,
		Status:      domain.StatusPending,
		Priority:    priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.tasks[id] = t
	s.order = append(s.order, id)
	return *t
}

func (s *Store) Get(id string) (domain.Task, bool) {
	t, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, false
	}
	return *t, true
}

// List returns a snapshot of all tasks in insertion order.
func (s *Store) List() []domain.Task {
	res := make([]domain.Task, 0, len(s.order))
	for _, id := range s.order {
		res = append(res, *s.tasks[id])
	}
	return res
}

// Update overwrites the supplied fields and always refreshes UpdatedAt.
func (s *Store) Update(id string, upd TaskUpdate) (domain.Task, bool) {
	t, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, false
	}
	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	if upd.Priority != nil {
		t.Priority = *upd.Priority
	}
	now := s.now()
	if now.Before(t.CreatedAt) {
		now = t.CreatedAt
	}
	t.UpdatedAt = now
	return *t, true
}

func (s *Store) Delete(id string) bool {
	if _, ok := s.tasks[id]; !ok {
		return false
	}
	delete(s.tasks, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}
