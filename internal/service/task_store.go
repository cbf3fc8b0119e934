package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/cleanops-client/internal/dto"
	"github.com/noah-isme/cleanops-client/internal/models"
)

const (
	msgLoadTasksFailed = "failed to load tasks"
	msgMarkFailed      = "failed to mark task as cleaned"
)

// TaskAPI is the assignee slice of the remote API.
type TaskAPI interface {
	ListMyAssignments(ctx context.Context, filter dto.AssignmentFilter) (*models.Page[models.Assignment], error)
	MarkCleaned(ctx context.Context, id string, req dto.CleanRequest) error
}

// TaskStore is the assignee view over the caller's own assignments.
type TaskStore struct {
	*assignmentStore
	api TaskAPI

	filterMu   sync.Mutex
	lastFilter dto.AssignmentFilter
}

// NewTaskStore constructs an empty TaskStore.
func NewTaskStore(api TaskAPI, logger *zap.Logger, opts ...StoreOption) *TaskStore {
	return &TaskStore{assignmentStore: newAssignmentStore(logger, opts), api: api}
}

// FetchMine replaces the collection with the page matching filter. On failure
// the collection is kept.
func (s *TaskStore) FetchMine(ctx context.Context, filter dto.AssignmentFilter) error {
	s.filterMu.Lock()
	s.lastFilter = filter
	s.filterMu.Unlock()

	s.begin()
	page, err := s.api.ListMyAssignments(ctx, filter)
	if err != nil {
		return s.fail(err, msgLoadTasksFailed)
	}
	s.replace(page)
	return nil
}

// Refresh repeats the last FetchMine.
func (s *TaskStore) Refresh(ctx context.Context) error {
	s.filterMu.Lock()
	filter := s.lastFilter
	s.filterMu.Unlock()
	return s.FetchMine(ctx, filter)
}

// MarkCleaned reports the assignment as done and, once acknowledged, moves the
// local record to cleaned. Blank notes are not sent.
func (s *TaskStore) MarkCleaned(ctx context.Context, id string, notes *string) error {
	req := dto.CleanRequest{}
	if models.HasText(notes) {
		n := *notes
		req.StaffNotes = &n
	}

	s.begin()
	if err := s.api.MarkCleaned(ctx, id, req); err != nil {
		s.metrics.RecordTransition(actionClean, OutcomeFailed)
		return s.fail(err, msgMarkFailed)
	}
	s.patch(actionClean, id, func(a *models.Assignment, at time.Time) error {
		return a.MarkCleaned(at, req.StaffNotes)
	})
	return nil
}
