package models

import (
	"fmt"
	"strings"
	"time"

	appErrors "github.com/noah-isme/cleanops-client/pkg/errors"
)

// AssignmentStatus is the workflow state of an assignment.
type AssignmentStatus string

const (
	StatusPending  AssignmentStatus = "pending"
	StatusCleaned  AssignmentStatus = "cleaned"
	StatusApproved AssignmentStatus = "approved"
	StatusRejected AssignmentStatus = "rejected"
)

// Rating bounds accepted on approval.
const (
	MinRating = 1
	MaxRating = 5
)

// Valid reports whether s is a known status.
func (s AssignmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCleaned, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is defined from s.
func (s AssignmentStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransitionTo encodes pending -> cleaned -> {approved, rejected}.
func (s AssignmentStatus) CanTransitionTo(next AssignmentStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusCleaned
	case StatusCleaned:
		return next == StatusApproved || next == StatusRejected
	default:
		return false
	}
}

// Assignment pairs a location, a period, an assignee and a reviewer.
type Assignment struct {
	ID               string `json:"id"`
	LocationID       string `json:"location_id,omitempty"`
	PeriodID         string `json:"period_id,omitempty"`
	StaffUserID      string `json:"staff_user_id,omitempty"`
	SupervisorUserID string `json:"supervisor_user_id,omitempty"`

	Status               AssignmentStatus `json:"status"`
	StaffNotes           *string          `json:"staff_notes,omitempty"`
	SupervisorNotes      *string          `json:"supervisor_notes,omitempty"`
	RejectionReason      *string          `json:"rejection_reason,omitempty"`
	Rating               *int             `json:"rating,omitempty"`
	StaffCompletedAt     *time.Time       `json:"staff_completed_at,omitempty"`
	SupervisorReviewedAt *time.Time       `json:"supervisor_reviewed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Denormalised references, present when the server embeds them.
	Location       *LocationRef `json:"location,omitempty"`
	Period         *PeriodRef   `json:"period,omitempty"`
	StaffUser      *UserRef     `json:"staff_user,omitempty"`
	SupervisorUser *UserRef     `json:"supervisor_user,omitempty"`
}

// Clone returns a deep copy so callers never alias store-owned state.
func (a Assignment) Clone() Assignment {
	out := a
	out.StaffNotes = cloneString(a.StaffNotes)
	out.SupervisorNotes = cloneString(a.SupervisorNotes)
	out.RejectionReason = cloneString(a.RejectionReason)
	if a.Rating != nil {
		r := *a.Rating
		out.Rating = &r
	}
	out.StaffCompletedAt = cloneTime(a.StaffCompletedAt)
	out.SupervisorReviewedAt = cloneTime(a.SupervisorReviewedAt)
	if a.Location != nil {
		loc := a.Location.clone()
		out.Location = &loc
	}
	if a.Period != nil {
		p := *a.Period
		out.Period = &p
	}
	if a.StaffUser != nil {
		u := *a.StaffUser
		out.StaffUser = &u
	}
	if a.SupervisorUser != nil {
		u := *a.SupervisorUser
		out.SupervisorUser = &u
	}
	return out
}

// MarkCleaned moves a pending assignment to cleaned. Notes are applied only
// when non-empty.
func (a *Assignment) MarkCleaned(at time.Time, notes *string) error {
	if err := a.checkTransition(StatusCleaned); err != nil {
		return err
	}
	a.Status = StatusCleaned
	a.StaffCompletedAt = timePtr(at)
	if HasText(notes) {
		a.StaffNotes = cloneString(notes)
	}
	return nil
}

// Approve moves a cleaned assignment to approved. Rating and notes left nil
// keep their previous values.
func (a *Assignment) Approve(at time.Time, rating *int, notes *string) error {
	if err := ValidateRating(rating); err != nil {
		return err
	}
	if err := a.checkTransition(StatusApproved); err != nil {
		return err
	}
	a.Status = StatusApproved
	a.SupervisorReviewedAt = timePtr(at)
	a.RejectionReason = nil
	if rating != nil {
		r := *rating
		a.Rating = &r
	}
	if HasText(notes) {
		a.SupervisorNotes = cloneString(notes)
	}
	return nil
}

// Reject moves a cleaned assignment to rejected with a mandatory reason.
func (a *Assignment) Reject(at time.Time, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}
	if err := a.checkTransition(StatusRejected); err != nil {
		return err
	}
	a.Status = StatusRejected
	a.SupervisorReviewedAt = timePtr(at)
	a.RejectionReason = &reason
	return nil
}

// Validate checks the status/timestamp invariants of a record.
func (a Assignment) Validate() error {
	if !a.Status.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", a.Status))
	}
	if (a.Status == StatusPending) != (a.StaffCompletedAt == nil) {
		return appErrors.Clone(appErrors.ErrValidation, "staff_completed_at must be set exactly when status is past pending")
	}
	if a.Status.Terminal() && a.SupervisorReviewedAt == nil {
		return appErrors.Clone(appErrors.ErrValidation, "supervisor_reviewed_at is required once reviewed")
	}
	if a.Status == StatusRejected && !HasText(a.RejectionReason) {
		return appErrors.Clone(appErrors.ErrValidation, "rejection_reason is required when rejected")
	}
	if a.Status == StatusApproved && a.RejectionReason != nil {
		return appErrors.Clone(appErrors.ErrValidation, "rejection_reason must be empty when approved")
	}
	if a.Rating != nil && a.Status != StatusApproved {
		return appErrors.Clone(appErrors.ErrValidation, "rating is only valid on approved assignments")
	}
	return ValidateRating(a.Rating)
}

func (a Assignment) checkTransition(next AssignmentStatus) error {
	if a.Status.CanTransitionTo(next) {
		return nil
	}
	return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move assignment from %s to %s", a.Status, next))
}

// ValidateRating accepts nil or a value in [MinRating, MaxRating].
func ValidateRating(rating *int) error {
	if rating == nil {
		return nil
	}
	if *rating < MinRating || *rating > MaxRating {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("rating must be between %d and %d", MinRating, MaxRating))
	}
	return nil
}

// HasText reports whether s points at a non-blank string.
func HasText(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func timePtr(t time.Time) *time.Time {
	v := t.UTC()
	return &v
}
