package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cleanops-client/internal/dto"
	"github.com/noah-isme/cleanops-client/internal/models"
	"github.com/noah-isme/cleanops-client/internal/transport"
	"github.com/noah-isme/cleanops-client/pkg/config"
	appErrors "github.com/noah-isme/cleanops-client/pkg/errors"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

type captured struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]interface{}
}

func newTestClient(t *testing.T, status int, payload string, got *captured) *Client {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.query = r.URL.RawQuery
		got.auth = r.Header.Get("Authorization")
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			_ = json.Unmarshal(raw, &got.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(payload))
	}))
	t.Cleanup(srv.Close)

	rt := transport.Chain(http.DefaultTransport, transport.BearerToken(staticToken("T1")))
	return New(config.APIConfig{BaseURL: srv.URL, Prefix: "/api/v1"}, rt, nil)
}

func TestLoginIsSentWithoutCredentials(t *testing.T) {
	var got captured
	c := newTestClient(t, http.StatusOK, `{"access_token":"abc","token_type":"bearer","user":{"id":"u1","role":"staff","full_name":"Sam"}}`, &got)

	res, err := c.Login(context.Background(), models.LoginRequest{Email: "s@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "abc", res.AccessToken)
	assert.Equal(t, models.RoleStaff, res.User.Role)
	assert.Equal(t, "/api/v1/auth/login", got.path)
	assert.Empty(t, got.auth)
	assert.Equal(t, "s@example.com", got.body["email"])
}

func TestMeCarriesBearer(t *testing.T) {
	var got captured
	c := newTestClient(t, http.StatusOK, `{"id":"u1","email":"a@example.com","role":"admin","is_active":true}`, &got)

	user, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "Bearer T1", got.auth)
}

func TestListMyReviewsDefaultsStatus(t *testing.T) {
	var got captured
	c := newTestClient(t, http.StatusOK, `{"items":[{"id":"A1","status":"cleaned"}],"page":1,"page_size":20,"total":1}`, &got)

	page, err := c.ListMyReviews(context.Background(), dto.ReviewFilter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, models.StatusCleaned, page.Items[0].Status)
	assert.Equal(t, "status=cleaned", got.query)
	assert.Equal(t, 1, page.Meta().Total)
}

func TestApproveOmitsUnsetFields(t *testing.T) {
	var got captured
	c := newTestClient(t, http.StatusOK, `{"ok":true}`, &got)

	require.NoError(t, c.Approve(context.Background(), "A1", dto.ApproveRequest{}))
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api/v1/my/reviews/A1/approve", got.path)
	assert.NotContains(t, got.body, "rating")
	assert.NotContains(t, got.body, "supervisor_notes")
}

func TestNonSuccessMapsDetail(t *testing.T) {
	var got captured
	c := newTestClient(t, http.StatusConflict, `{"detail":"Assignment must be in pending status to mark as cleaned"}`, &got)

	err := c.MarkCleaned(context.Background(), "A1", dto.CleanRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "Assignment must be in pending status to mark as cleaned", appErr.Detail)
}

func TestTransportFailureIsTyped(t *testing.T) {
	failing := transport.RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	c := New(config.APIConfig{BaseURL: "http://127.0.0.1:1", Prefix: "/api/v1"}, failing, nil)

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrTransport))
}

func TestReferenceCalls(t *testing.T) {
	var got captured
	c := newTestClient(t, http.StatusOK, `{"items":[{"id":"b1","name":"Main"}],"page":1,"page_size":10,"total":1}`, &got)

	page, err := ListResources[models.Building](context.Background(), c, models.ResourceBuildings, dto.ListQuery{PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, "Main", page.Items[0].Name)
	assert.Equal(t, "/api/v1/buildings", got.path)

	require.NoError(t, c.DeleteResource(context.Background(), models.ResourceBuildings, "b1"))
	assert.Equal(t, http.MethodDelete, got.method)
	assert.Equal(t, "/api/v1/buildings/b1", got.path)
}
