package sandbox

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/cleanops-client/internal/dto"
	"github.com/noah-isme/cleanops-client/internal/models"
	appErrors "github.com/noah-isme/cleanops-client/pkg/errors"
)

const testPassword = "Passw0rd!"

var seededAt = time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)

func newSeeded(t *testing.T) (*Backend, *SeedData) {
	t.Helper()
	b := New(Config{JWTSecret: "secret", PasswordCost: bcrypt.MinCost}, nil, nil,
		WithClock(func() time.Time { return seededAt }))
	data, err := b.Seed(testPassword)
	require.NoError(t, err)
	return b, data
}

func requireStatus(t *testing.T, err error, status int, detail string) {
	t.Helper()
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected *errors.Error, got %v", err)
	assert.Equal(t, status, appErr.Status)
	if detail != "" {
		assert.Equal(t, detail, appErr.Detail)
	}
}

func TestSeedShape(t *testing.T) {
	_, data := newSeeded(t)

	assert.Equal(t, models.RoleAdmin, data.Admin.Role)
	assert.False(t, data.Inactive.IsActive)
	assert.Equal(t, models.PeriodActive, data.Active.Status)
	assert.Equal(t, models.PeriodPlanned, data.Planned.Status)
	require.Len(t, data.Assignments, 3)
	assert.Equal(t, models.StatusPending, data.Assignments[0].Status)
	assert.Equal(t, models.StatusCleaned, data.Assignments[1].Status)
	assert.NoError(t, data.Assignments[1].Validate())
	assert.Equal(t, "Main Building", data.Assignments[0].Location.Building.Name)
	assert.Equal(t, "Staff Member", data.Assignments[0].StaffUser.FullName)
}

func TestLoginAndAuthenticate(t *testing.T) {
	b, data := newSeeded(t)
	ctx := context.Background()

	res, err := b.Login(ctx, models.LoginRequest{Email: "STAFF@cleanops.local", Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, TokenType, res.TokenType)
	assert.Equal(t, data.Staff.ID, res.User.ID)

	claims, err := b.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, data.Staff.ID, claims.UserID)
	assert.Equal(t, models.RoleStaff, claims.Role)

	user, err := b.Authenticate(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, StaffEmail, user.Email)
}

func TestLoginFailures(t *testing.T) {
	b, _ := newSeeded(t)
	ctx := context.Background()

	_, err := b.Login(ctx, models.LoginRequest{Email: StaffEmail, Password: "wrong-password"})
	requireStatus(t, err, http.StatusUnauthorized, "Incorrect email or password")

	_, err = b.Login(ctx, models.LoginRequest{Email: "ghost@cleanops.local", Password: testPassword})
	requireStatus(t, err, http.StatusUnauthorized, "Incorrect email or password")

	_, err = b.Login(ctx, models.LoginRequest{Email: InactiveEmail, Password: testPassword})
	requireStatus(t, err, http.StatusUnauthorized, "User account is inactive")

	_, err = b.Login(ctx, models.LoginRequest{Email: "not-an-email", Password: testPassword})
	requireStatus(t, err, http.StatusUnprocessableEntity, "email must be a valid email address")
}

func TestValidateTokenRejectsExpiredAndForeign(t *testing.T) {
	b, data := newSeeded(t)

	token, _, err := b.generateAccessToken(data.Admin)
	require.NoError(t, err)

	later := New(Config{JWTSecret: "secret"}, nil, nil, WithClock(func() time.Time { return seededAt.Add(time.Hour) }))
	_, err = later.ValidateToken(token)
	requireStatus(t, err, http.StatusUnauthorized, "Could not validate credentials")

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{UserID: data.Admin.ID, Role: models.RoleAdmin})
	signed, err := foreign.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = b.ValidateToken(signed)
	assert.True(t, appErrors.IsUnauthorized(err))
}

func TestMyAssignmentsDefaultsToActivePeriod(t *testing.T) {
	b, data := newSeeded(t)
	ctx := context.Background()

	_, err := b.CreatePeriod(models.PeriodCreate{Name: "Old", StartDate: "2026-01-01", EndDate: "2026-01-07", Status: models.PeriodCompleted})
	require.NoError(t, err)

	page, err := b.MyAssignments(ctx, &data.Staff, AssignmentQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)

	page, err = b.MyAssignments(ctx, &data.Staff, AssignmentQuery{Status: models.StatusCleaned})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, data.Assignments[1].ID, page.Items[0].ID)

	page, err = b.MyAssignments(ctx, &data.Staff, AssignmentQuery{PeriodID: data.Planned.ID})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	page, err = b.MyAssignments(ctx, &data.Supervisor, AssignmentQuery{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	page, err = b.MyAssignments(ctx, &data.Staff, AssignmentQuery{PageRequest: PageRequest{Page: 2, PageSize: 2}})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 3, page.Total)

	_, err = b.MyAssignments(ctx, &data.Staff, AssignmentQuery{PageRequest: PageRequest{PageSize: 101}})
	requireStatus(t, err, http.StatusUnprocessableEntity, "page_size must be between 1 and 100")
}

func TestMyReviewsDefaultsToCleaned(t *testing.T) {
	b, data := newSeeded(t)
	ctx := context.Background()

	page, err := b.MyReviews(ctx, &data.Supervisor, AssignmentQuery{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, models.StatusCleaned, page.Items[0].Status)

	page, err = b.MyReviews(ctx, &data.Supervisor, AssignmentQuery{Status: models.StatusPending})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
}

func TestWorkflowRules(t *testing.T) {
	b, data := newSeeded(t)
	ctx := context.Background()
	pending := data.Assignments[0].ID
	cleaned := data.Assignments[1].ID

	requireStatus(t, b.MarkCleaned(ctx, &data.Staff, "missing", dto.CleanRequest{}), http.StatusNotFound, "Assignment not found")
	requireStatus(t, b.MarkCleaned(ctx, &data.Admin, pending, dto.CleanRequest{}), http.StatusForbidden, "Not enough permissions")
	requireStatus(t, b.MarkCleaned(ctx, &data.Staff, cleaned, dto.CleanRequest{}), http.StatusConflict, "Assignment status is not suitable for cleaning")

	requireStatus(t, b.Approve(ctx, &data.Supervisor, pending, dto.ApproveRequest{}), http.StatusConflict, "Assignment must be in cleaned status to approve")
	requireStatus(t, b.Reject(ctx, &data.Supervisor, pending, dto.RejectRequest{RejectionReason: "dusty"}), http.StatusConflict, "Assignment must be in cleaned status to reject")
	requireStatus(t, b.Approve(ctx, &data.Staff, cleaned, dto.ApproveRequest{}), http.StatusForbidden, "Not enough permissions")

	rating := 9
	requireStatus(t, b.Approve(ctx, &data.Supervisor, cleaned, dto.ApproveRequest{Rating: &rating}), http.StatusUnprocessableEntity, "")
	requireStatus(t, b.Reject(ctx, &data.Supervisor, cleaned, dto.RejectRequest{}), http.StatusUnprocessableEntity, "rejection_reason is required")

	notes := "spotless"
	require.NoError(t, b.MarkCleaned(ctx, &data.Staff, pending, dto.CleanRequest{StaffNotes: &notes}))
	rating = 5
	require.NoError(t, b.Approve(ctx, &data.Supervisor, pending, dto.ApproveRequest{Rating: &rating}))
	require.NoError(t, b.Reject(ctx, &data.Supervisor, cleaned, dto.RejectRequest{RejectionReason: "missed the mirrors"}))

	page, err := b.MyAssignments(ctx, &data.Staff, AssignmentQuery{})
	require.NoError(t, err)
	byID := map[string]models.Assignment{}
	for _, a := range page.Items {
		byID[a.ID] = a
		assert.NoError(t, a.Validate())
	}
	assert.Equal(t, models.StatusApproved, byID[pending].Status)
	assert.Equal(t, 5, *byID[pending].Rating)
	assert.Equal(t, "spotless", *byID[pending].StaffNotes)
	assert.Equal(t, models.StatusRejected, byID[cleaned].Status)
	assert.Equal(t, "missed the mirrors", *byID[cleaned].RejectionReason)

	requireStatus(t, b.MarkCleaned(ctx, &data.Staff, cleaned, dto.CleanRequest{}), http.StatusConflict, "Assignment status is not suitable for cleaning")
}

func TestActivePeriodStats(t *testing.T) {
	b, data := newSeeded(t)
	ctx := context.Background()

	stats, err := b.ActivePeriodStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DashboardStats{PeriodID: data.Active.ID, Pending: 2, Cleaned: 1}, *stats)

	empty := New(Config{JWTSecret: "secret"}, nil, nil)
	_, err = empty.ActivePeriodStats(ctx)
	requireStatus(t, err, http.StatusNotFound, "No active period found")
}

func TestReferenceListCreateDelete(t *testing.T) {
	b, data := newSeeded(t)
	ctx := context.Background()

	res, err := b.ListReference(ctx, models.ResourceLocations, ReferenceQuery{Filters: map[string]string{"is_leaf": "true"}})
	require.NoError(t, err)
	locations := res.(*models.Page[models.Location])
	assert.Equal(t, 3, locations.Total)

	res, err = b.ListReference(ctx, models.ResourceUsers, ReferenceQuery{Search: "super"})
	require.NoError(t, err)
	users := res.(*models.Page[models.User])
	require.Len(t, users.Items, 1)
	assert.Equal(t, data.Supervisor.ID, users.Items[0].ID)

	_, err = b.CreateReference(ctx, models.ResourceBuildings, []byte(`{"name":"main building"}`))
	requireStatus(t, err, http.StatusConflict, "Building name already exists")

	_, err = b.CreateReference(ctx, models.ResourceBuildings, []byte(`{"code":"X"}`))
	requireStatus(t, err, http.StatusUnprocessableEntity, "name is required")

	created, err := b.CreateReference(ctx, models.ResourceBuildings, []byte(`{"name":"Annex"}`))
	require.NoError(t, err)
	annex := created.(*models.Building)
	assert.True(t, annex.IsActive)

	_, err = b.CreateReference(ctx, models.ResourcePeriods, []byte(`{"name":"Bad","start_date":"2026-02-10","end_date":"2026-02-01"}`))
	requireStatus(t, err, http.StatusBadRequest, "Start date must be before end date")

	_, err = b.CreateReference(ctx, models.ResourceAssignments, []byte(`{"location_id":"`+data.Locations[0].ID+`","period_id":"`+data.Active.ID+`","staff_user_id":"`+data.Staff.ID+`","supervisor_user_id":"`+data.Supervisor.ID+`"}`))
	requireStatus(t, err, http.StatusBadRequest, "Assignment can only be made to leaf locations")

	_, err = b.CreateReference(ctx, models.ResourceAssignments, []byte(`{"location_id":"`+data.Locations[1].ID+`","period_id":"`+data.Active.ID+`","staff_user_id":"`+data.Staff.ID+`","supervisor_user_id":"`+data.Supervisor.ID+`"}`))
	requireStatus(t, err, http.StatusConflict, "Assignment already exists for this location and period")

	requireStatus(t, b.DeleteReference(ctx, models.ResourceLocations, data.Locations[1].ID), http.StatusConflict, "Location has assignments")
	require.NoError(t, b.DeleteReference(ctx, models.ResourceBuildings, annex.ID))
	requireStatus(t, b.DeleteReference(ctx, models.ResourceBuildings, annex.ID), http.StatusNotFound, "Building not found")

	_, err = b.ListReference(ctx, "widgets", ReferenceQuery{})
	requireStatus(t, err, http.StatusNotFound, "")
}

func TestCreatedUserCanLogIn(t *testing.T) {
	b, _ := newSeeded(t)
	ctx := context.Background()

	_, err := b.CreateReference(ctx, models.ResourceUsers, []byte(`{"email":"new@cleanops.local","full_name":"New Hire","role":"staff","password":"short"}`))
	requireStatus(t, err, http.StatusUnprocessableEntity, "password must be at least 8")

	created, err := b.CreateReference(ctx, models.ResourceUsers, []byte(`{"email":"new@cleanops.local","full_name":"New Hire","role":"staff","password":"longenough"}`))
	require.NoError(t, err)
	assert.True(t, created.(*models.User).IsActive)

	_, err = b.Login(ctx, models.LoginRequest{Email: "new@cleanops.local", Password: "longenough"})
	assert.NoError(t, err)
}

func TestSingular(t *testing.T) {
	assert.Equal(t, "Building", Singular(models.ResourceBuildings))
	assert.Equal(t, "Assignment", Singular(models.ResourceAssignments))
}
