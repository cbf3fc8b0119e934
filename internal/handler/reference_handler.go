package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/cleanops-client/internal/models"
	"github.com/noah-isme/cleanops-client/internal/sandbox"
	"github.com/noah-isme/cleanops-client/pkg/response"
)

const maxBody = 1 << 20

type referenceService interface {
	ListReference(ctx context.Context, kind models.ResourceKind, q sandbox.ReferenceQuery) (interface{}, error)
	CreateReference(ctx context.Context, kind models.ResourceKind, body []byte) (interface{}, error)
	DeleteReference(ctx context.Context, kind models.ResourceKind, id string) error
}

// ReferenceHandler serves list/create/delete for every reference collection.
type ReferenceHandler struct {
	service referenceService
}

// NewReferenceHandler constructs the handler.
func NewReferenceHandler(svc referenceService) *ReferenceHandler {
	return &ReferenceHandler{service: svc}
}

// List returns a handler listing kind. Query keys other than page,
// page_size and search are passed through as filters.
func (h *ReferenceHandler) List(kind models.ResourceKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := pageRequest(c)
		if err != nil {
			writeError(c, err)
			return
		}
		q := sandbox.ReferenceQuery{PageRequest: page, Search: c.Query("search"), Filters: map[string]string{}}
		for key, values := range c.Request.URL.Query() {
			switch key {
			case "page", "page_size", "search":
				continue
			}
			if len(values) > 0 {
				q.Filters[key] = values[0]
			}
		}

		res, err := h.service.ListReference(c.Request.Context(), kind, q)
		if err != nil {
			writeError(c, err)
			return
		}
		response.JSON(c, http.StatusOK, res)
	}
}

// Create returns a handler storing a new kind record.
func (h *ReferenceHandler) Create(kind models.ResourceKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBody))
		if err != nil {
			writeError(c, invalidBody(err))
			return
		}

		res, err := h.service.CreateReference(c.Request.Context(), kind, body)
		if err != nil {
			writeError(c, err)
			return
		}
		response.Created(c, res)
	}
}

// Delete returns a handler removing a kind record by id.
func (h *ReferenceHandler) Delete(kind models.ResourceKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.service.DeleteReference(c.Request.Context(), kind, c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		response.Message(c, sandbox.Singular(kind)+" deleted successfully")
	}
}
