package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/cleanops-client/internal/app"
	"github.com/noah-isme/cleanops-client/internal/handler"
	"github.com/noah-isme/cleanops-client/internal/sandbox"
	"github.com/noah-isme/cleanops-client/pkg/config"
	appErrors "github.com/noah-isme/cleanops-client/pkg/errors"
)

const password = "Passw0rd!"

type harness struct {
	cfg  *config.Config
	data *sandbox.SeedData
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	backend := sandbox.New(sandbox.Config{JWTSecret: "cli-secret", PasswordCost: bcrypt.MinCost}, nil, nil)
	data, err := backend.Seed(password)
	require.NoError(t, err)

	srv := httptest.NewServer(handler.NewSandboxRouter(backend, handler.SandboxOptions{Prefix: "/api/v1"}))
	t.Cleanup(srv.Close)

	return &harness{
		cfg: &config.Config{
			API:        config.APIConfig{BaseURL: srv.URL, Prefix: "/api/v1", Timeout: 5 * time.Second},
			TokenStore: config.TokenStoreConfig{Backend: config.TokenStoreFile, Key: "token", Dir: t.TempDir()},
			Reconcile:  config.ReconcileConfig{Schedule: "@every 1m"},
			Export:     config.ExportConfig{Dir: t.TempDir()},
		},
		data: data,
	}
}

// run executes one command line in a fresh process-like App sharing the token
// store with earlier runs.
func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a, err := app.New(context.Background(), h.cfg, nil)
	require.NoError(t, err)
	defer a.Close() //nolint:errcheck

	var out bytes.Buffer
	env := func(key string) string {
		if key == PasswordEnv {
			return password
		}
		return ""
	}
	err = New(a, &out, env).Run(context.Background(), args)
	return out.String(), err
}

func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := h.run(t, args...)
	require.NoError(t, err, out)
	return out
}

func TestHelpPrintsUsage(t *testing.T) {
	h := newHarness(t)
	assert.Contains(t, h.mustRun(t), "Usage: cleanops")

	_, err := h.run(t, "dance")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestCommandsRequireLogin(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "tasks", "list")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
	assert.Contains(t, err.Error(), "cleanops login")

	_, err = h.run(t, "me")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestStaffFlow(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun(t, "login", "--email", sandbox.StaffEmail)
	assert.Contains(t, out, "signed in as Staff Member (staff), home /staff/tasks")

	out = h.mustRun(t, "login", "--email", sandbox.StaffEmail)
	assert.Contains(t, out, "already signed in")

	out = h.mustRun(t, "tasks", "list")
	assert.Contains(t, out, "Room 101")
	assert.Contains(t, out, "page 1, 3 of 3")

	target := h.data.Assignments[0].ID
	out = h.mustRun(t, "tasks", "clean", target, "--notes", "done")
	assert.Contains(t, out, "marked as cleaned")

	_, err := h.run(t, "tasks", "clean", target)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	out = h.mustRun(t, "tasks", "list", "--status", "pending")
	assert.Contains(t, out, "page 1, 1 of 1")

	_, err = h.run(t, "tasks", "list", "--status", "done")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = h.run(t, "reviews", "list")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	out = h.mustRun(t, "tasks", "export", "--format", "csv")
	assert.Contains(t, out, "exported 3 assignments")

	out = h.mustRun(t, "logout")
	assert.Contains(t, out, "signed out")
	_, err = h.run(t, "tasks", "list")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestSupervisorFlow(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "login", "--email", sandbox.SupervisorEmail)

	out := h.mustRun(t, "reviews", "list")
	assert.Contains(t, out, "Restroom 1A")

	_, err := h.run(t, "reviews", "reject", h.data.Assignments[1].ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = h.run(t, "reviews", "approve", h.data.Assignments[1].ID, "--rating", "9")
	require.Error(t, err)

	out = h.mustRun(t, "reviews", "approve", h.data.Assignments[1].ID, "--rating", "4")
	assert.Contains(t, out, "approved")

	out = h.mustRun(t, "reviews", "list", "--status", "approved")
	assert.Contains(t, out, h.data.Assignments[1].ID)
}

func TestAdminReferenceCommands(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "login", "--email", sandbox.AdminEmail)

	out := h.mustRun(t, "stats")
	assert.Contains(t, out, "pending 2, cleaned 1, approved 0, rejected 0")

	out = h.mustRun(t, "ref", "list", "buildings", "--search", "main")
	assert.Contains(t, out, "Main Building")

	out = h.mustRun(t, "ref", "list", "locations", "--filter", "is_leaf=true")
	assert.Contains(t, out, `"total": 3`)

	out = h.mustRun(t, "ref", "create", "departments", "--data", `{"name":"Housekeeping"}`)
	assert.Contains(t, out, "Housekeeping")

	_, err := h.run(t, "ref", "create", "departments", "--data", `{"name":"Housekeeping"}`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	_, err = h.run(t, "ref", "delete", "buildings", h.data.Building.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	_, err = h.run(t, "ref", "list", "spaceships")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = h.run(t, "tasks", "list")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestWatchOnceExports(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "login", "--email", sandbox.StaffEmail)

	out := h.mustRun(t, "watch", "--once", "--export", "csv")
	assert.Contains(t, out, "tasks refreshed at")
	assert.Contains(t, out, "exported 3 assignments")
}

func TestExportPrunesExpiredFiles(t *testing.T) {
	h := newHarness(t)
	h.cfg.Export.TTL = time.Hour
	stale := filepath.Join(h.cfg.Export.Dir, "old_tasks.csv")
	require.NoError(t, os.WriteFile(stale, []byte("id\n"), 0o644))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	h.mustRun(t, "login", "--email", sandbox.StaffEmail)
	out := h.mustRun(t, "tasks", "export", "--format", "csv")
	assert.Contains(t, out, "exported 3 assignments")
	assert.Contains(t, out, "removed 1 exports older than 1h0m0s")

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}
