package sandbox

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/cleanops-client/internal/models"
	appErrors "github.com/noah-isme/cleanops-client/pkg/errors"
)

// ReferenceQuery is the generic list query: paging, a free-text search and
// per-collection equality filters.
type ReferenceQuery struct {
	PageRequest
	Search  string
	Filters map[string]string
}

func (q ReferenceQuery) filter(key string) string {
	return strings.TrimSpace(q.Filters[key])
}

// Kinds lists the reference collections the backend serves.
func Kinds() []models.ResourceKind {
	return []models.ResourceKind{
		models.ResourceBuildings,
		models.ResourceDepartments,
		models.ResourceLocations,
		models.ResourcePeriods,
		models.ResourceUsers,
		models.ResourceAssignments,
	}
}

// Singular returns the display name used in details, e.g. "Building".
func Singular(kind models.ResourceKind) string {
	name := strings.TrimSuffix(string(kind), "s")
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// ListReference returns one page of a reference collection.
func (b *Backend) ListReference(ctx context.Context, kind models.ResourceKind, q ReferenceQuery) (interface{}, error) {
	page, err := b.normalizePage(q.PageRequest)
	if err != nil {
		return nil, err
	}
	search := strings.ToLower(strings.TrimSpace(q.Search))

	b.mu.RLock()
	defer b.mu.RUnlock()

	switch kind {
	case models.ResourceBuildings:
		out := make([]models.Building, 0, len(b.buildings))
		for _, item := range b.buildings {
			if matches(search, item.Name) {
				out = append(out, *item)
			}
		}
		return paginate(out, page), nil
	case models.ResourceDepartments:
		out := make([]models.Department, 0, len(b.departments))
		for _, item := range b.departments {
			if matches(search, item.Name) {
				out = append(out, *item)
			}
		}
		return paginate(out, page), nil
	case models.ResourceLocations:
		return b.listLocations(q, search, page)
	case models.ResourcePeriods:
		status := q.filter("status")
		out := make([]models.Period, 0, len(b.periods))
		for _, item := range b.periods {
			if status == "" || string(item.Status) == status {
				out = append(out, *item)
			}
		}
		return paginate(out, page), nil
	case models.ResourceUsers:
		role := q.filter("role")
		out := make([]models.User, 0, len(b.users))
		for _, acc := range b.users {
			if role != "" && string(acc.user.Role) != role {
				continue
			}
			if matches(search, acc.user.FullName, acc.user.Email) {
				out = append(out, acc.user)
			}
		}
		return paginate(out, page), nil
	case models.ResourceAssignments:
		out := make([]models.Assignment, 0, len(b.assignments))
		for _, a := range b.assignments {
			if !equalOrEmpty(q.filter("period_id"), a.PeriodID) ||
				!equalOrEmpty(q.filter("status"), string(a.Status)) ||
				!equalOrEmpty(q.filter("staff_user_id"), a.StaffUserID) ||
				!equalOrEmpty(q.filter("supervisor_user_id"), a.SupervisorUserID) {
				continue
			}
			out = append(out, b.embed(*a))
		}
		return paginate(out, page), nil
	default:
		return nil, notFound("Not Found")
	}
}

// listLocations expects b.mu to be held.
func (b *Backend) listLocations(q ReferenceQuery, search string, page PageRequest) (interface{}, error) {
	var leaf, active *bool
	for key, target := range map[string]**bool{"is_leaf": &leaf, "active": &active} {
		raw := q.filter(key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, unprocessable(key + " must be a boolean")
		}
		*target = &v
	}

	out := make([]models.Location, 0, len(b.locations))
	for _, loc := range b.locations {
		if !equalOrEmpty(q.filter("building_id"), loc.BuildingID) ||
			!equalOrEmpty(q.filter("location_type"), loc.LocationType) {
			continue
		}
		if dep := q.filter("department_id"); dep != "" && (loc.DepartmentID == nil || *loc.DepartmentID != dep) {
			continue
		}
		if leaf != nil && loc.IsLeaf != *leaf {
			continue
		}
		if active != nil && loc.IsActive != *active {
			continue
		}
		if matches(search, loc.Name) {
			out = append(out, *loc)
		}
	}
	return paginate(out, page), nil
}

// CreateReference decodes body as the collection's create payload, applies
// the collection's rules and returns the stored record.
func (b *Backend) CreateReference(ctx context.Context, kind models.ResourceKind, body []byte) (interface{}, error) {
	switch kind {
	case models.ResourceBuildings:
		var req models.BuildingCreate
		if err := b.decode(ctx, body, &req); err != nil {
			return nil, err
		}
		return b.CreateBuilding(req)
	case models.ResourceDepartments:
		var req models.BuildingCreate
		if err := b.decode(ctx, body, &req); err != nil {
			return nil, err
		}
		return b.CreateDepartment(req)
	case models.ResourceLocations:
		var req models.LocationCreate
		if err := b.decode(ctx, body, &req); err != nil {
			return nil, err
		}
		return b.CreateLocation(req)
	case models.ResourcePeriods:
		var req models.PeriodCreate
		if err := b.decode(ctx, body, &req); err != nil {
			return nil, err
		}
		return b.CreatePeriod(req)
	case models.ResourceUsers:
		var req models.UserCreate
		if err := b.decode(ctx, body, &req); err != nil {
			return nil, err
		}
		return b.CreateUser(req)
	case models.ResourceAssignments:
		var req models.AssignmentCreate
		if err := b.decode(ctx, body, &req); err != nil {
			return nil, err
		}
		return b.CreateAssignment(req)
	default:
		return nil, notFound("Not Found")
	}
}

func (b *Backend) decode(ctx context.Context, body []byte, dst interface{}) error {
	if err := json.Unmarshal(body, dst); err != nil {
		return unprocessable("invalid JSON body: " + err.Error())
	}
	if err := b.validator.StructCtx(ctx, dst); err != nil {
		return b.invalid(err)
	}
	return nil
}

// CreateBuilding stores a building with a unique name.
func (b *Backend) CreateBuilding(req models.BuildingCreate) (*models.Building, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.buildings {
		if strings.EqualFold(existing.Name, req.Name) {
			return nil, conflict("Building name already exists")
		}
	}
	now := b.now()
	item := &models.Building{ID: b.newID(), Name: req.Name, Code: req.Code, IsActive: true, CreatedAt: now, UpdatedAt: now}
	b.buildings = append(b.buildings, item)
	return cloneOf(item), nil
}

// CreateDepartment stores a department with a unique name.
func (b *Backend) CreateDepartment(req models.BuildingCreate) (*models.Department, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.departments {
		if strings.EqualFold(existing.Name, req.Name) {
			return nil, conflict("Department name already exists")
		}
	}
	now := b.now()
	item := &models.Department{ID: b.newID(), Name: req.Name, Code: req.Code, IsActive: true, CreatedAt: now, UpdatedAt: now}
	b.departments = append(b.departments, item)
	return cloneOf(item), nil
}

// CreateLocation stores a location; a parent must exist and must not be a leaf.
func (b *Backend) CreateLocation(req models.LocationCreate) (*models.Location, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.hasBuilding(req.BuildingID) {
		return nil, notFound("Building not found")
	}
	if req.ParentLocationID != nil && *req.ParentLocationID != "" {
		parent, ok := b.locationByID(*req.ParentLocationID)
		if !ok {
			return nil, notFound("Parent location not found")
		}
		if parent.IsLeaf {
			return nil, badRequest("Parent location must not be a leaf")
		}
	}

	now := b.now()
	item := &models.Location{
		ID:                  b.newID(),
		Name:                req.Name,
		LocationType:        req.LocationType,
		LocationSubtype:     req.LocationSubtype,
		BuildingID:          req.BuildingID,
		DepartmentID:        req.DepartmentID,
		ParentLocationID:    req.ParentLocationID,
		IsLeaf:              req.IsLeaf == nil || *req.IsLeaf,
		FloorLabel:          req.FloorLabel,
		AreaSqm:             req.AreaSqm,
		SpecialInstructions: req.SpecialInstructions,
		IsActive:            true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	b.locations = append(b.locations, item)
	return cloneOf(item), nil
}

// CreatePeriod stores a period whose start does not follow its end.
func (b *Backend) CreatePeriod(req models.PeriodCreate) (*models.Period, error) {
	start, err := time.Parse(time.DateOnly, req.StartDate)
	if err != nil {
		return nil, unprocessable("start_date must be a date")
	}
	end, err := time.Parse(time.DateOnly, req.EndDate)
	if err != nil {
		return nil, unprocessable("end_date must be a date")
	}
	if start.After(end) {
		return nil, badRequest("Start date must be before end date")
	}
	status := req.Status
	if status == "" {
		status = models.PeriodPlanned
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	item := &models.Period{ID: b.newID(), Name: req.Name, StartDate: req.StartDate, EndDate: req.EndDate, Status: status, CreatedAt: now, UpdatedAt: now}
	b.periods = append(b.periods, item)
	return cloneOf(item), nil
}

// CreateUser stores a user with a bcrypt password hash and a unique email.
func (b *Backend) CreateUser(req models.UserCreate) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), b.config.PasswordCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.accountByEmail(req.Email); exists {
		return nil, conflict("Email already registered")
	}
	now := b.now()
	acc := &account{
		user: models.User{
			ID:        b.newID(),
			Email:     strings.TrimSpace(req.Email),
			FullName:  req.FullName,
			Role:      req.Role,
			IsActive:  req.IsActive == nil || *req.IsActive,
			CreatedAt: now,
			UpdatedAt: now,
		},
		passwordHash: string(hash),
	}
	b.users = append(b.users, acc)
	return cloneOf(&acc.user), nil
}

// CreateAssignment pairs a leaf location and an active period with an
// assignee and a reviewer. One assignment per location and period.
func (b *Backend) CreateAssignment(req models.AssignmentCreate) (*models.Assignment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	loc, ok := b.locationByID(req.LocationID)
	if !ok {
		return nil, notFound("Location not found")
	}
	if !loc.IsLeaf {
		return nil, badRequest("Assignment can only be made to leaf locations")
	}
	period, ok := b.periodByID(req.PeriodID)
	if !ok {
		return nil, notFound("Period not found")
	}
	if period.Status != models.PeriodActive {
		return nil, badRequest("Assignment can only be made to active periods")
	}
	for _, existing := range b.assignments {
		if existing.LocationID == req.LocationID && existing.PeriodID == req.PeriodID {
			return nil, conflict("Assignment already exists for this location and period")
		}
	}
	if _, ok := b.accountByID(req.StaffUserID); !ok {
		return nil, notFound("Staff user not found")
	}
	if _, ok := b.accountByID(req.SupervisorUserID); !ok {
		return nil, notFound("Supervisor user not found")
	}

	now := b.now()
	item := &models.Assignment{
		ID:               b.newID(),
		LocationID:       req.LocationID,
		PeriodID:         req.PeriodID,
		StaffUserID:      req.StaffUserID,
		SupervisorUserID: req.SupervisorUserID,
		Status:           models.StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	b.assignments = append(b.assignments, item)
	out := b.embed(*item)
	return &out, nil
}

// DeleteReference removes a record. Records still referenced by assignments
// are kept and reported as a conflict.
func (b *Backend) DeleteReference(ctx context.Context, kind models.ResourceKind, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var removed bool
	switch kind {
	case models.ResourceBuildings:
		for _, loc := range b.locations {
			if loc.BuildingID == id {
				return conflict("Building has locations")
			}
		}
		b.buildings, removed = removeByID(b.buildings, id, func(v *models.Building) string { return v.ID })
	case models.ResourceDepartments:
		b.departments, removed = removeByID(b.departments, id, func(v *models.Department) string { return v.ID })
	case models.ResourceLocations:
		if b.referenced(func(a *models.Assignment) bool { return a.LocationID == id }) {
			return conflict("Location has assignments")
		}
		b.locations, removed = removeByID(b.locations, id, func(v *models.Location) string { return v.ID })
	case models.ResourcePeriods:
		if b.referenced(func(a *models.Assignment) bool { return a.PeriodID == id }) {
			return conflict("Period has assignments")
		}
		b.periods, removed = removeByID(b.periods, id, func(v *models.Period) string { return v.ID })
	case models.ResourceUsers:
		if b.referenced(func(a *models.Assignment) bool { return a.StaffUserID == id || a.SupervisorUserID == id }) {
			return conflict("User has assignments")
		}
		b.users, removed = removeByID(b.users, id, func(v *account) string { return v.user.ID })
	case models.ResourceAssignments:
		b.assignments, removed = removeByID(b.assignments, id, func(v *models.Assignment) string { return v.ID })
	default:
		return notFound("Not Found")
	}

	if !removed {
		return notFound(Singular(kind) + " not found")
	}
	b.logger.Info("reference deleted", zap.String("kind", string(kind)), zap.String("id", id))
	return nil
}

func (b *Backend) referenced(match func(*models.Assignment) bool) bool {
	for _, a := range b.assignments {
		if match(a) {
			return true
		}
	}
	return false
}

func (b *Backend) hasBuilding(id string) bool {
	for _, item := range b.buildings {
		if item.ID == id {
			return true
		}
	}
	return false
}

func (b *Backend) locationByID(id string) (*models.Location, bool) {
	for _, item := range b.locations {
		if item.ID == id {
			return item, true
		}
	}
	return nil, false
}

func (b *Backend) periodByID(id string) (*models.Period, bool) {
	for _, item := range b.periods {
		if item.ID == id {
			return item, true
		}
	}
	return nil, false
}

func removeByID[T any](items []T, id string, key func(T) string) ([]T, bool) {
	for i, item := range items {
		if key(item) == id {
			return append(items[:i], items[i+1:]...), true
		}
	}
	return items, false
}

func cloneOf[T any](v *T) *T {
	out := *v
	return &out
}

func matches(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

func equalOrEmpty(want, got string) bool {
	return want == "" || want == got
}
