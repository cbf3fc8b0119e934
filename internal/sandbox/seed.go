package sandbox

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/cleanops-client/internal/models"
)

// Seeded account emails.
const (
	AdminEmail      = "admin@cleanops.local"
	StaffEmail      = "staff@cleanops.local"
	SupervisorEmail = "supervisor@cleanops.local"
	InactiveEmail   = "inactive@cleanops.local"
)

// SeedData reports the ids created by Seed.
type SeedData struct {
	Admin       models.User
	Staff       models.User
	Supervisor  models.User
	Inactive    models.User
	Building    models.Building
	Department  models.Department
	Active      models.Period
	Planned     models.Period
	Locations   []models.Location
	Assignments []models.Assignment
}

// Seed loads a small demo data set: one user per role plus an inactive one,
// a building with leaf rooms, an active period and assignments for the staff
// and supervisor accounts, one of them already cleaned.
func (b *Backend) Seed(password string) (*SeedData, error) {
	data := &SeedData{}
	inactive := false

	users := []struct {
		dst *models.User
		req models.UserCreate
	}{
		{&data.Admin, models.UserCreate{Email: AdminEmail, FullName: "Admin User", Role: models.RoleAdmin, Password: password}},
		{&data.Staff, models.UserCreate{Email: StaffEmail, FullName: "Staff Member", Role: models.RoleStaff, Password: password}},
		{&data.Supervisor, models.UserCreate{Email: SupervisorEmail, FullName: "Floor Supervisor", Role: models.RoleSupervisor, Password: password}},
		{&data.Inactive, models.UserCreate{Email: InactiveEmail, FullName: "Former Staff", Role: models.RoleStaff, Password: password, IsActive: &inactive}},
	}
	for _, u := range users {
		if err := b.validator.Struct(u.req); err != nil {
			return nil, fmt.Errorf("seed user %s: %w", u.req.Email, b.invalid(err))
		}
		created, err := b.CreateUser(u.req)
		if err != nil {
			return nil, fmt.Errorf("seed user %s: %w", u.req.Email, err)
		}
		*u.dst = *created
	}

	code := "MB"
	building, err := b.CreateBuilding(models.BuildingCreate{Name: "Main Building", Code: &code})
	if err != nil {
		return nil, fmt.Errorf("seed building: %w", err)
	}
	data.Building = *building

	department, err := b.CreateDepartment(models.BuildingCreate{Name: "Facilities"})
	if err != nil {
		return nil, fmt.Errorf("seed department: %w", err)
	}
	data.Department = *department

	today := b.now()
	active, err := b.CreatePeriod(models.PeriodCreate{
		Name:      "Current Week",
		StartDate: today.AddDate(0, 0, -int(today.Weekday())).Format(time.DateOnly),
		EndDate:   today.AddDate(0, 0, 6-int(today.Weekday())).Format(time.DateOnly),
		Status:    models.PeriodActive,
	})
	if err != nil {
		return nil, fmt.Errorf("seed period: %w", err)
	}
	data.Active = *active

	planned, err := b.CreatePeriod(models.PeriodCreate{
		Name:      "Next Week",
		StartDate: today.AddDate(0, 0, 7-int(today.Weekday())).Format(time.DateOnly),
		EndDate:   today.AddDate(0, 0, 13-int(today.Weekday())).Format(time.DateOnly),
	})
	if err != nil {
		return nil, fmt.Errorf("seed period: %w", err)
	}
	data.Planned = *planned

	floor := "1"
	notLeaf := false
	corridor, err := b.CreateLocation(models.LocationCreate{
		Name:         "First Floor Corridor",
		LocationType: "koridor",
		BuildingID:   building.ID,
		IsLeaf:       &notLeaf,
		FloorLabel:   &floor,
	})
	if err != nil {
		return nil, fmt.Errorf("seed location: %w", err)
	}
	data.Locations = append(data.Locations, *corridor)

	for _, leaf := range []struct{ name, kind string }{
		{"Room 101", "derslik"},
		{"Restroom 1A", "tuvalet"},
		{"Office 102", "ofis"},
	} {
		loc, err := b.CreateLocation(models.LocationCreate{
			Name:             leaf.name,
			LocationType:     leaf.kind,
			BuildingID:       building.ID,
			DepartmentID:     &department.ID,
			ParentLocationID: &corridor.ID,
			FloorLabel:       &floor,
		})
		if err != nil {
			return nil, fmt.Errorf("seed location: %w", err)
		}
		data.Locations = append(data.Locations, *loc)

		assignment, err := b.CreateAssignment(models.AssignmentCreate{
			LocationID:       loc.ID,
			PeriodID:         active.ID,
			StaffUserID:      data.Staff.ID,
			SupervisorUserID: data.Supervisor.ID,
		})
		if err != nil {
			return nil, fmt.Errorf("seed assignment: %w", err)
		}
		data.Assignments = append(data.Assignments, *assignment)
	}

	// The restroom starts out cleaned so the reviewer has work on boot.
	notes := "Restocked supplies"
	b.mu.Lock()
	for _, a := range b.assignments {
		if a.ID == data.Assignments[1].ID {
			if err := a.MarkCleaned(today, &notes); err != nil {
				b.mu.Unlock()
				return nil, fmt.Errorf("seed assignment: %w", err)
			}
			data.Assignments[1] = b.embed(*a)
		}
	}
	b.mu.Unlock()

	b.logger.Info("sandbox seeded",
		zap.Int("users", len(users)),
		zap.Int("locations", len(data.Locations)),
		zap.Int("assignments", len(data.Assignments)),
	)
	return data, nil
}
