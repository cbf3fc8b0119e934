package app

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/cleanops-client/internal/dto"
	"github.com/noah-isme/cleanops-client/internal/handler"
	"github.com/noah-isme/cleanops-client/internal/models"
	"github.com/noah-isme/cleanops-client/internal/sandbox"
	"github.com/noah-isme/cleanops-client/internal/service"
	"github.com/noah-isme/cleanops-client/pkg/config"
	appErrors "github.com/noah-isme/cleanops-client/pkg/errors"
)

const password = "Passw0rd!"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	cfg   *config.Config
	clock *clock
	data  *sandbox.SeedData
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clk := &clock{now: time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)}
	backend := sandbox.New(sandbox.Config{JWTSecret: "app-secret", PasswordCost: bcrypt.MinCost}, nil, nil, sandbox.WithClock(clk.Now))
	data, err := backend.Seed(password)
	require.NoError(t, err)

	srv := httptest.NewServer(handler.NewSandboxRouter(backend, handler.SandboxOptions{Prefix: "/api/v1"}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		API:        config.APIConfig{BaseURL: srv.URL, Prefix: "/api/v1", Timeout: 5 * time.Second},
		TokenStore: config.TokenStoreConfig{Backend: config.TokenStoreFile, Key: "token", Dir: t.TempDir()},
		Reconcile:  config.ReconcileConfig{Schedule: "@every 1m"},
		Export:     config.ExportConfig{Dir: t.TempDir()},
	}
	return &harness{cfg: cfg, clock: clk, data: data}
}

func (h *harness) app(t *testing.T) *App {
	t.Helper()
	a, err := New(context.Background(), h.cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestStaffSessionCleansTask(t *testing.T) {
	h := newHarness(t)
	a := h.app(t)
	ctx := context.Background()

	user, err := a.Session.Login(ctx, sandbox.StaffEmail, password)
	require.NoError(t, err)
	assert.Equal(t, h.data.Staff.ID, user.ID)
	assert.True(t, a.Session.IsAuthenticated())

	require.NoError(t, a.Tasks.FetchMine(ctx, dto.AssignmentFilter{}))
	require.Len(t, a.Tasks.Items(), 3)

	target := h.data.Assignments[0].ID
	notes := "Mopped floor"
	require.NoError(t, a.Tasks.MarkCleaned(ctx, target, &notes))
	got, ok := a.Tasks.ByID(target)
	require.True(t, ok)
	assert.Equal(t, models.StatusCleaned, got.Status)

	err = a.Tasks.MarkCleaned(ctx, target, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Equal(t, "Assignment status is not suitable for cleaning", a.Tasks.LastError())

	snap := a.Metrics.Snapshot()
	assert.GreaterOrEqual(t, snap.RequestsTotal, uint64(4))

	a.Session.Logout(ctx)
	assert.False(t, a.Session.IsAuthenticated())
}

func TestSupervisorApprovesAndExports(t *testing.T) {
	h := newHarness(t)
	a := h.app(t)
	ctx := context.Background()

	_, err := a.Session.Login(ctx, sandbox.SupervisorEmail, password)
	require.NoError(t, err)

	require.NoError(t, a.Reviews.FetchMine(ctx, dto.ReviewFilter{}))
	require.Len(t, a.Reviews.Items(), 1)

	rating := 5
	id := h.data.Assignments[1].ID
	require.NoError(t, a.Reviews.Approve(ctx, id, &rating, nil))
	got, ok := a.Reviews.ByID(id)
	require.True(t, ok)
	assert.Equal(t, models.StatusApproved, got.Status)

	res, err := a.Exports.Assignments("reviews", service.ExportFormatCSV, a.Reviews.Items())
	require.NoError(t, err)
	assert.FileExists(t, res.Path)
}

func TestWrongPasswordIsInvalidCredentials(t *testing.T) {
	h := newHarness(t)
	a := h.app(t)

	_, err := a.Session.Login(context.Background(), sandbox.StaffEmail, "wrong-password")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))
	assert.False(t, a.Session.IsAuthenticated())
}

func TestExpiredTokenEndsSession(t *testing.T) {
	h := newHarness(t)
	a := h.app(t)
	ctx := context.Background()

	_, err := a.Session.Login(ctx, sandbox.StaffEmail, password)
	require.NoError(t, err)

	h.clock.Advance(time.Hour)
	err = a.Tasks.FetchMine(ctx, dto.AssignmentFilter{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	assert.False(t, a.Session.IsAuthenticated())
	assert.Empty(t, a.Session.Token())

	restarted := h.app(t)
	require.NoError(t, <-restarted.Session.Boot(ctx))
	assert.Empty(t, restarted.Session.Token())
}

func TestExpiredTokenOnReviewEndsSession(t *testing.T) {
	h := newHarness(t)
	a := h.app(t)
	ctx := context.Background()

	_, err := a.Session.Login(ctx, sandbox.SupervisorEmail, password)
	require.NoError(t, err)
	require.NoError(t, a.Reviews.FetchMine(ctx, dto.ReviewFilter{}))
	id := h.data.Assignments[1].ID
	before, ok := a.Reviews.ByID(id)
	require.True(t, ok)

	h.clock.Advance(time.Hour)
	rating := 4
	err = a.Reviews.Approve(ctx, id, &rating, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	assert.False(t, a.Session.IsAuthenticated())
	assert.Empty(t, a.Session.Token())
	assert.Nil(t, a.Session.Identity())
	after, _ := a.Reviews.ByID(id)
	assert.Equal(t, before, after)
	assert.NotEmpty(t, a.Reviews.LastError())
}

func TestBootRestoresPersistedSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.app(t)
	_, err := first.Session.Login(ctx, sandbox.AdminEmail, password)
	require.NoError(t, err)

	second := h.app(t)
	require.NoError(t, <-second.Session.Boot(ctx))
	identity := second.Session.Identity()
	require.NotNil(t, identity)
	assert.Equal(t, h.data.Admin.ID, identity.ID)
	assert.Equal(t, models.RoleAdmin, identity.Role)

	stats, err := second.API.ActivePeriodStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, h.data.Active.ID, stats.PeriodID)
}

func TestReconcilerRefreshesRegisteredStores(t *testing.T) {
	h := newHarness(t)
	a := h.app(t)
	ctx := context.Background()

	_, err := a.Session.Login(ctx, sandbox.StaffEmail, password)
	require.NoError(t, err)

	a.Reconciler.Register("tasks", a.Tasks)
	require.NoError(t, a.Reconciler.RunOnce(ctx))
	assert.Len(t, a.Tasks.Items(), 3)
	assert.Equal(t, uint64(1), a.Metrics.Snapshot().ReconcileRuns)
}

func TestUnknownTokenStoreFails(t *testing.T) {
	h := newHarness(t)
	h.cfg.TokenStore.Backend = "floppy"

	_, err := New(context.Background(), h.cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floppy")
}
