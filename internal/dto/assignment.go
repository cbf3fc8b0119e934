package dto

import (
	"net/url"
	"strconv"

	"github.com/noah-isme/cleanops-client/internal/models"
)

// AssignmentFilter narrows GET /my/assignments.
type AssignmentFilter struct {
	Page     int
	PageSize int
	Status   models.AssignmentStatus
	PeriodID string
}

// Values encodes the filter as query parameters, omitting zero values.
func (f AssignmentFilter) Values() url.Values {
	q := pageValues(f.Page, f.PageSize)
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.PeriodID != "" {
		q.Set("period_id", f.PeriodID)
	}
	return q
}

// ReviewFilter narrows GET /my/reviews. An empty Status is sent as cleaned.
type ReviewFilter struct {
	Page     int
	PageSize int
	Status   models.AssignmentStatus
}

// Values encodes the filter applying the reviewer default status.
func (f ReviewFilter) Values() url.Values {
	q := pageValues(f.Page, f.PageSize)
	status := f.Status
	if status == "" {
		status = models.StatusCleaned
	}
	q.Set("status", string(status))
	return q
}

// CleanRequest is the body of POST /my/assignments/{id}/clean.
type CleanRequest struct {
	StaffNotes *string `json:"staff_notes,omitempty"`
}

// ApproveRequest is the body of POST /my/reviews/{id}/approve.
type ApproveRequest struct {
	Rating          *int    `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	SupervisorNotes *string `json:"supervisor_notes,omitempty"`
}

// RejectRequest is the body of POST /my/reviews/{id}/reject.
type RejectRequest struct {
	RejectionReason string `json:"rejection_reason" validate:"required"`
}

func pageValues(page, pageSize int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}
	return q
}
