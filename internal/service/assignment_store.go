package service

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/cleanops-client/internal/models"
	appErrors "github.com/noah-isme/cleanops-client/pkg/errors"
)

// AssignmentSnapshot is the observable state of an assignment store.
type AssignmentSnapshot struct {
	Items      []models.Assignment
	Loading    bool
	Error      string
	Pagination *models.Pagination
}

// StoreOption customises an assignment store.
type StoreOption func(*assignmentStore)

// WithClock overrides the clock used for local completion and review stamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *assignmentStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStoreMetrics records transition outcomes on m.
func WithStoreMetrics(m *MetricsService) StoreOption {
	return func(s *assignmentStore) {
		s.metrics = m
	}
}

// assignmentStore is the state core shared by the assignee and reviewer views.
// Local patches are applied only after the server acknowledged the transition,
// so the collection may trail the server until the next fetch.
type assignmentStore struct {
	mu         sync.RWMutex
	items      []models.Assignment
	loading    bool
	errMsg     string
	pagination *models.Pagination

	now       func() time.Time
	logger    *zap.Logger
	metrics   *MetricsService
	observers notifier[AssignmentSnapshot]
}

func newAssignmentStore(logger *zap.Logger, opts []StoreOption) *assignmentStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &assignmentStore{now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Items returns a deep copy of the collection in server order.
func (s *assignmentStore) Items() []models.Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAssignments(s.items)
}

// ByID finds a record in the loaded collection without a network call.
func (s *assignmentStore) ByID(id string) (models.Assignment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.ID == id {
			return item.Clone(), true
		}
	}
	return models.Assignment{}, false
}

// Loading reports whether a call is in flight.
func (s *assignmentStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// LastError returns the message of the last failed call, "" after a success.
func (s *assignmentStore) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// Pagination returns the metadata of the last loaded page.
func (s *assignmentStore) Pagination() *models.Pagination {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pagination == nil {
		return nil
	}
	p := *s.pagination
	return &p
}

// Snapshot returns a consistent copy of the observable state.
func (s *assignmentStore) Snapshot() AssignmentSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe registers fn for every state change and returns an unsubscribe func.
func (s *assignmentStore) Subscribe(fn func(AssignmentSnapshot)) func() {
	return s.observers.subscribe(fn)
}

func (s *assignmentStore) snapshotLocked() AssignmentSnapshot {
	snap := AssignmentSnapshot{
		Items:   cloneAssignments(s.items),
		Loading: s.loading,
		Error:   s.errMsg,
	}
	if s.pagination != nil {
		p := *s.pagination
		snap.Pagination = &p
	}
	return snap
}

// begin marks a call in flight and clears the previous error.
func (s *assignmentStore) begin() {
	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.observers.publish(snap)
}

// replace swaps the whole collection after a successful fetch.
func (s *assignmentStore) replace(page *models.Page[models.Assignment]) {
	s.mu.Lock()
	s.items = cloneAssignments(page.Items)
	meta := page.Meta()
	s.pagination = &meta
	s.loading = false
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.observers.publish(snap)
}

// fail records the failure message, clears loading and returns err.
func (s *assignmentStore) fail(err error, fallback string) error {
	s.mu.Lock()
	s.errMsg = failureMessage(err, fallback)
	s.loading = false
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.observers.publish(snap)
	return err
}

// patch applies an acknowledged transition to the record with the given id.
// A missing record or one the state machine refuses is left as is.
func (s *assignmentStore) patch(action, id string, apply func(*models.Assignment, time.Time) error) {
	at := s.now()

	s.mu.Lock()
	outcome := OutcomeSkipped
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		next := s.items[i].Clone()
		if err := apply(&next, at); err != nil {
			s.logger.Warn("local record not patched, waiting for next fetch",
				zap.String("action", action),
				zap.String("assignment_id", id),
				zap.String("local_status", string(s.items[i].Status)),
				zap.Error(err),
			)
			break
		}
		s.items[i] = next
		outcome = OutcomeApplied
		break
	}
	s.loading = false
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.metrics.RecordTransition(action, outcome)
	s.observers.publish(snap)
}

func failureMessage(err error, fallback string) string {
	var appErr *appErrors.Error
	if !errors.As(err, &appErr) {
		return fallback
	}
	if appErr.Detail != "" {
		return appErr.Detail
	}
	if errors.Is(err, appErrors.ErrValidation) && appErr.Message != appErrors.ErrValidation.Message {
		return appErr.Message
	}
	return fallback
}

func cloneAssignments(items []models.Assignment) []models.Assignment {
	if items == nil {
		return nil
	}
	out := make([]models.Assignment, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}
