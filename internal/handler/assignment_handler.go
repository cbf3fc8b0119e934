package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/cleanops-client/internal/dto"
	"github.com/noah-isme/cleanops-client/internal/models"
	"github.com/noah-isme/cleanops-client/internal/sandbox"
	"github.com/noah-isme/cleanops-client/pkg/response"
)

type workflowService interface {
	MyAssignments(ctx context.Context, staff *models.User, q sandbox.AssignmentQuery) (*models.Page[models.Assignment], error)
	MyReviews(ctx context.Context, supervisor *models.User, q sandbox.AssignmentQuery) (*models.Page[models.Assignment], error)
	MarkCleaned(ctx context.Context, staff *models.User, id string, req dto.CleanRequest) error
	Approve(ctx context.Context, supervisor *models.User, id string, req dto.ApproveRequest) error
	Reject(ctx context.Context, supervisor *models.User, id string, req dto.RejectRequest) error
}

// AssignmentHandler serves the assignee and reviewer workflow endpoints.
type AssignmentHandler struct {
	service workflowService
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(svc workflowService) *AssignmentHandler {
	return &AssignmentHandler{service: svc}
}

// MyAssignments lists the caller's assignments.
func (h *AssignmentHandler) MyAssignments(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	q, err := assignmentQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}
	q.PeriodID = strings.TrimSpace(c.Query("period_id"))

	page, err := h.service.MyAssignments(c.Request.Context(), user, q)
	if err != nil {
		writeError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page)
}

// Clean marks one of the caller's assignments as cleaned.
func (h *AssignmentHandler) Clean(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.CleanRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	if err := h.service.MarkCleaned(c.Request.Context(), user, c.Param("id"), req); err != nil {
		writeError(c, err)
		return
	}
	response.Message(c, "Assignment marked as cleaned successfully")
}

// MyReviews lists assignments awaiting the caller's review.
func (h *AssignmentHandler) MyReviews(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	q, err := assignmentQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}

	page, err := h.service.MyReviews(c.Request.Context(), user, q)
	if err != nil {
		writeError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page)
}

// Approve accepts a cleaned assignment.
func (h *AssignmentHandler) Approve(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.ApproveRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	if err := h.service.Approve(c.Request.Context(), user, c.Param("id"), req); err != nil {
		writeError(c, err)
		return
	}
	response.Message(c, "Assignment approved successfully")
}

// Reject returns a cleaned assignment with a reason.
func (h *AssignmentHandler) Reject(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, invalidBody(err))
		return
	}

	if err := h.service.Reject(c.Request.Context(), user, c.Param("id"), req); err != nil {
		writeError(c, err)
		return
	}
	response.Message(c, "Assignment rejected successfully")
}

func assignmentQuery(c *gin.Context) (sandbox.AssignmentQuery, error) {
	page, err := pageRequest(c)
	if err != nil {
		return sandbox.AssignmentQuery{}, err
	}
	q := sandbox.AssignmentQuery{PageRequest: page}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := models.AssignmentStatus(raw)
		if !status.Valid() {
			return q, invalidQuery("status must be one of: pending cleaned approved rejected")
		}
		q.Status = status
	}
	return q, nil
}

// bindOptionalJSON decodes the body when one was sent.
func bindOptionalJSON(c *gin.Context, dst interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, invalidBody(err))
		return false
	}
	return true
}
