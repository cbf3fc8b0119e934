package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/cleanops-client/internal/dto"
	"github.com/noah-isme/cleanops-client/internal/models"
	appErrors "github.com/noah-isme/cleanops-client/pkg/errors"
)

const (
	actionClean   = "clean"
	actionApprove = "approve"
	actionReject  = "reject"

	msgLoadReviewsFailed = "failed to load reviews"
	msgApproveFailed     = "failed to approve assignment"
	msgRejectFailed      = "failed to reject assignment"
)

// ReviewAPI is the reviewer slice of the remote API.
type ReviewAPI interface {
	ListMyReviews(ctx context.Context, filter dto.ReviewFilter) (*models.Page[models.Assignment], error)
	Approve(ctx context.Context, id string, req dto.ApproveRequest) error
	Reject(ctx context.Context, id string, req dto.RejectRequest) error
}

// ReviewStore is the reviewer view over assignments awaiting the caller.
type ReviewStore struct {
	*assignmentStore
	api       ReviewAPI
	validator *validator.Validate

	filterMu   sync.Mutex
	lastFilter dto.ReviewFilter
}

// NewReviewStore constructs an empty ReviewStore.
func NewReviewStore(api ReviewAPI, validate *validator.Validate, logger *zap.Logger, opts ...StoreOption) *ReviewStore {
	if validate == nil {
		validate = validator.New()
	}
	return &ReviewStore{assignmentStore: newAssignmentStore(logger, opts), api: api, validator: validate}
}

// FetchMine replaces the collection with the matching page. An empty status
// asks for cleaned assignments.
func (s *ReviewStore) FetchMine(ctx context.Context, filter dto.ReviewFilter) error {
	s.filterMu.Lock()
	s.lastFilter = filter
	s.filterMu.Unlock()

	s.begin()
	page, err := s.api.ListMyReviews(ctx, filter)
	if err != nil {
		return s.fail(err, msgLoadReviewsFailed)
	}
	s.replace(page)
	return nil
}

// Refresh repeats the last FetchMine.
func (s *ReviewStore) Refresh(ctx context.Context) error {
	s.filterMu.Lock()
	filter := s.lastFilter
	s.filterMu.Unlock()
	return s.FetchMine(ctx, filter)
}

// Approve accepts a cleaned assignment. Rating and notes left nil (or blank
// notes) keep the record's previous values.
func (s *ReviewStore) Approve(ctx context.Context, id string, rating *int, notes *string) error {
	req := dto.ApproveRequest{Rating: rating}
	if models.HasText(notes) {
		n := *notes
		req.SupervisorNotes = &n
	}
	if err := s.validator.Struct(req); err != nil {
		return s.fail(appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rating must be between 1 and 5"), msgApproveFailed)
	}

	s.begin()
	if err := s.api.Approve(ctx, id, req); err != nil {
		s.metrics.RecordTransition(actionApprove, OutcomeFailed)
		return s.fail(err, msgApproveFailed)
	}
	s.patch(actionApprove, id, func(a *models.Assignment, at time.Time) error {
		return a.Approve(at, req.Rating, req.SupervisorNotes)
	})
	return nil
}

// Reject sends a cleaned assignment back. A blank reason fails before any
// request is made.
func (s *ReviewStore) Reject(ctx context.Context, id string, reason string) error {
	req := dto.RejectRequest{RejectionReason: strings.TrimSpace(reason)}
	if err := s.validator.Struct(req); err != nil {
		return s.fail(appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rejection reason is required"), msgRejectFailed)
	}

	s.begin()
	if err := s.api.Reject(ctx, id, req); err != nil {
		s.metrics.RecordTransition(actionReject, OutcomeFailed)
		return s.fail(err, msgRejectFailed)
	}
	s.patch(actionReject, id, func(a *models.Assignment, at time.Time) error {
		return a.Reject(at, req.RejectionReason)
	})
	return nil
}
