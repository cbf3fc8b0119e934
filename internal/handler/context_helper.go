package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/cleanops-client/internal/middleware"
	"github.com/noah-isme/cleanops-client/internal/models"
	"github.com/noah-isme/cleanops-client/internal/sandbox"
	appErrors "github.com/noah-isme/cleanops-client/pkg/errors"
	"github.com/noah-isme/cleanops-client/pkg/response"
)

// writeError renders err with validator field errors as a detail list.
func writeError(c *gin.Context, err error) {
	response.Error(c, err, sandbox.FieldMessage)
}

// currentUser returns the authenticated user or writes a 401.
func currentUser(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		writeError(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return user, true
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidQuery(key + " must be an integer")
	}
	return v, nil
}

func pageRequest(c *gin.Context) (sandbox.PageRequest, error) {
	page, err := queryInt(c, "page")
	if err != nil {
		return sandbox.PageRequest{}, err
	}
	size, err := queryInt(c, "page_size")
	if err != nil {
		return sandbox.PageRequest{}, err
	}
	return sandbox.PageRequest{Page: page, PageSize: size}, nil
}

func invalidQuery(detail string) *appErrors.Error {
	err := appErrors.Clone(appErrors.ErrValidation, "")
	err.Status = 422
	err.Detail = detail
	return err
}

func invalidBody(err error) *appErrors.Error {
	wrapped := appErrors.Wrap(err, appErrors.ErrValidation.Code, 422, "invalid request body")
	wrapped.Detail = "invalid request body"
	return wrapped
}
