package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/noah-isme/cleanops-client/internal/dto"
	"github.com/noah-isme/cleanops-client/internal/models"
)

// ListResources fetches one page of a reference-entity collection.
func ListResources[T any](ctx context.Context, c *Client, kind models.ResourceKind, query dto.ListQuery) (*models.Page[T], error) {
	var out models.Page[T]
	if err := c.do(ctx, http.MethodGet, "/"+string(kind), query.Values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateResource posts a record and returns the server's copy.
func CreateResource[T any](ctx context.Context, c *Client, kind models.ResourceKind, record interface{}) (*T, error) {
	var out T
	if err := c.do(ctx, http.MethodPost, "/"+string(kind), nil, record, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteResource removes a record by id.
func (c *Client) DeleteResource(ctx context.Context, kind models.ResourceKind, id string) error {
	return c.do(ctx, http.MethodDelete, "/"+string(kind)+"/"+url.PathEscape(id), nil, nil, nil)
}
