package models

import "time"

// ResourceKind names a reference-entity collection on the API.
type ResourceKind string

const (
	ResourceBuildings   ResourceKind = "buildings"
	ResourceDepartments ResourceKind = "departments"
	ResourceLocations   ResourceKind = "locations"
	ResourcePeriods     ResourceKind = "periods"
	ResourceUsers       ResourceKind = "users"
	ResourceAssignments ResourceKind = "assignments"
)

// PeriodStatus is the lifecycle of a cleaning period.
type PeriodStatus string

const (
	PeriodPlanned   PeriodStatus = "planned"
	PeriodActive    PeriodStatus = "active"
	PeriodCompleted PeriodStatus = "completed"
)

// Building is a reference entity owned by administrators.
type Building struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      *string   `json:"code,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Department shares the building shape.
type Department Building

// Location is a cleanable place; only leaf locations take assignments.
type Location struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	LocationType        string    `json:"location_type"`
	LocationSubtype     *string   `json:"location_subtype,omitempty"`
	BuildingID          string    `json:"building_id"`
	DepartmentID        *string   `json:"department_id,omitempty"`
	ParentLocationID    *string   `json:"parent_location_id,omitempty"`
	IsLeaf              bool      `json:"is_leaf"`
	FloorLabel          *string   `json:"floor_label,omitempty"`
	AreaSqm             *int      `json:"area_sqm,omitempty"`
	SpecialInstructions *string   `json:"special_instructions,omitempty"`
	IsActive            bool      `json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Period is a cleaning period; dates use YYYY-MM-DD.
type Period struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	StartDate string       `json:"start_date"`
	EndDate   string       `json:"end_date"`
	Status    PeriodStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// AssignmentCreate pairs a location and period with an assignee and reviewer.
type AssignmentCreate struct {
	LocationID       string `json:"location_id" validate:"required"`
	PeriodID         string `json:"period_id" validate:"required"`
	StaffUserID      string `json:"staff_user_id" validate:"required"`
	SupervisorUserID string `json:"supervisor_user_id" validate:"required"`
}

// NamedRef is an id/name embed.
type NamedRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LocationRef is the location embed carried by assignments.
type LocationRef struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	LocationType    string    `json:"location_type"`
	LocationSubtype *string   `json:"location_subtype,omitempty"`
	Building        NamedRef  `json:"building"`
	Department      *NamedRef `json:"department,omitempty"`
	FloorLabel      *string   `json:"floor_label,omitempty"`
}

func (l LocationRef) clone() LocationRef {
	out := l
	out.LocationSubtype = cloneString(l.LocationSubtype)
	out.FloorLabel = cloneString(l.FloorLabel)
	if l.Department != nil {
		d := *l.Department
		out.Department = &d
	}
	return out
}

// PeriodRef is the period embed carried by assignments.
type PeriodRef struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Status PeriodStatus `json:"status"`
}

// DashboardStats counts assignments per status for the active period.
type DashboardStats struct {
	PeriodID string `json:"period_id"`
	Pending  int    `json:"pending"`
	Cleaned  int    `json:"cleaned"`
	Rejected int    `json:"rejected"`
	Approved int    `json:"approved"`
}

// BuildingCreate is the payload for buildings and departments alike.
type BuildingCreate struct {
	Name string  `json:"name" validate:"required"`
	Code *string `json:"code,omitempty"`
}

// LocationCreate is the payload for a new location.
type LocationCreate struct {
	Name                string  `json:"name" validate:"required"`
	LocationType        string  `json:"location_type" validate:"required,oneof=derslik ofis tuvalet koridor diger"`
	LocationSubtype     *string `json:"location_subtype,omitempty"`
	BuildingID          string  `json:"building_id" validate:"required"`
	DepartmentID        *string `json:"department_id,omitempty"`
	ParentLocationID    *string `json:"parent_location_id,omitempty"`
	IsLeaf              *bool   `json:"is_leaf,omitempty"`
	FloorLabel          *string `json:"floor_label,omitempty"`
	AreaSqm             *int    `json:"area_sqm,omitempty" validate:"omitempty,min=0"`
	SpecialInstructions *string `json:"special_instructions,omitempty"`
}

// PeriodCreate is the payload for a new period.
type PeriodCreate struct {
	Name      string       `json:"name" validate:"required"`
	StartDate string       `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string       `json:"end_date" validate:"required,datetime=2006-01-02"`
	Status    PeriodStatus `json:"status,omitempty" validate:"omitempty,oneof=planned active completed"`
}
