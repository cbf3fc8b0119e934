package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/noah-isme/cleanops-client/internal/dto"
	"github.com/noah-isme/cleanops-client/internal/models"
	"github.com/noah-isme/cleanops-client/internal/transport"
	"github.com/noah-isme/cleanops-client/pkg/config"
	appErrors "github.com/noah-isme/cleanops-client/pkg/errors"
)

const maxErrorBody = 1 << 20

// Client talks JSON to the workflow API. Credentials are attached by the
// round tripper it is built with.
type Client struct {
	api    config.APIConfig
	http   *http.Client
	logger *zap.Logger
}

// New constructs a Client over rt.
func New(api config.APIConfig, rt http.RoundTripper, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rt == nil {
		rt = http.DefaultTransport
	}
	return &Client{
		api:    api,
		http:   &http.Client{Transport: rt, Timeout: api.Timeout},
		logger: logger,
	}
}

// Login exchanges credentials for a token. The request is never authenticated.
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	var out models.LoginResponse
	if err := c.do(transport.WithAnonymous(ctx), http.MethodPost, "/auth/login", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the identity behind the current token.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMyAssignments lists assignments where the caller is the assignee.
func (c *Client) ListMyAssignments(ctx context.Context, filter dto.AssignmentFilter) (*models.Page[models.Assignment], error) {
	var out models.Page[models.Assignment]
	if err := c.do(ctx, http.MethodGet, "/my/assignments", filter.Values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkCleaned reports an assignment as done.
func (c *Client) MarkCleaned(ctx context.Context, id string, req dto.CleanRequest) error {
	return c.do(ctx, http.MethodPost, "/my/assignments/"+url.PathEscape(id)+"/clean", nil, req, nil)
}

// ListMyReviews lists assignments where the caller is the reviewer.
func (c *Client) ListMyReviews(ctx context.Context, filter dto.ReviewFilter) (*models.Page[models.Assignment], error) {
	var out models.Page[models.Assignment]
	if err := c.do(ctx, http.MethodGet, "/my/reviews", filter.Values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Approve accepts a cleaned assignment.
func (c *Client) Approve(ctx context.Context, id string, req dto.ApproveRequest) error {
	return c.do(ctx, http.MethodPost, "/my/reviews/"+url.PathEscape(id)+"/approve", nil, req, nil)
}

// Reject sends a cleaned assignment back with a reason.
func (c *Client) Reject(ctx context.Context, id string, req dto.RejectRequest) error {
	return c.do(ctx, http.MethodPost, "/my/reviews/"+url.PathEscape(id)+"/reject", nil, req, nil)
}

// ActivePeriodStats returns per-status counts for the active period.
func (c *Client) ActivePeriodStats(ctx context.Context) (*models.DashboardStats, error) {
	var out models.DashboardStats
	if err := c.do(ctx, http.MethodGet, "/dashboard/active-period-stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	target := c.api.APIURL(path)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, fmt.Sprintf("%s %s failed", method, path))
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := appErrors.FromResponse(resp.StatusCode, raw)
		c.logger.Debug("api error response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("detail", apiErr.Detail),
		)
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode response")
	}
	return nil
}
