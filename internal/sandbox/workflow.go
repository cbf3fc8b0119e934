package sandbox

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/cleanops-client/internal/dto"
	"github.com/noah-isme/cleanops-client/internal/models"
)

// AssignmentQuery filters the own-assignment and own-review listings.
type AssignmentQuery struct {
	PageRequest
	Status   models.AssignmentStatus
	PeriodID string
}

// MyAssignments lists assignments owned by the assignee. Without a period
// filter the active period is used when one exists.
func (b *Backend) MyAssignments(ctx context.Context, staff *models.User, q AssignmentQuery) (*models.Page[models.Assignment], error) {
	page, err := b.normalizePage(q.PageRequest)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	periodID := q.PeriodID
	if periodID == "" {
		if active, ok := b.activePeriod(); ok {
			periodID = active.ID
		}
	}

	matched := make([]models.Assignment, 0)
	for _, a := range b.assignments {
		if a.StaffUserID != staff.ID {
			continue
		}
		if q.Status != "" && a.Status != q.Status {
			continue
		}
		if periodID != "" && a.PeriodID != periodID {
			continue
		}
		matched = append(matched, b.embed(*a))
	}
	return paginate(matched, page), nil
}

// MyReviews lists assignments the reviewer owns in the given status,
// cleaned by default.
func (b *Backend) MyReviews(ctx context.Context, supervisor *models.User, q AssignmentQuery) (*models.Page[models.Assignment], error) {
	page, err := b.normalizePage(q.PageRequest)
	if err != nil {
		return nil, err
	}
	status := q.Status
	if status == "" {
		status = models.StatusCleaned
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	matched := make([]models.Assignment, 0)
	for _, a := range b.assignments {
		if a.SupervisorUserID == supervisor.ID && a.Status == status {
			matched = append(matched, b.embed(*a))
		}
	}
	return paginate(matched, page), nil
}

// MarkCleaned records the assignee's completion.
func (b *Backend) MarkCleaned(ctx context.Context, staff *models.User, id string, req dto.CleanRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	a, err := b.ownedAssignment(id, func(a *models.Assignment) bool { return a.StaffUserID == staff.ID })
	if err != nil {
		return err
	}
	now := b.now()
	if err := a.MarkCleaned(now, req.StaffNotes); err != nil {
		return conflict("Assignment status is not suitable for cleaning")
	}
	a.UpdatedAt = now

	b.logger.Info("assignment cleaned", zap.String("assignment_id", id), zap.String("user_id", staff.ID))
	return nil
}

// Approve accepts a cleaned assignment.
func (b *Backend) Approve(ctx context.Context, supervisor *models.User, id string, req dto.ApproveRequest) error {
	if err := b.validator.StructCtx(ctx, req); err != nil {
		return b.invalid(err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	a, err := b.ownedAssignment(id, func(a *models.Assignment) bool { return a.SupervisorUserID == supervisor.ID })
	if err != nil {
		return err
	}
	now := b.now()
	if err := a.Approve(now, req.Rating, req.SupervisorNotes); err != nil {
		return conflict("Assignment must be in cleaned status to approve")
	}
	a.UpdatedAt = now

	b.logger.Info("assignment approved", zap.String("assignment_id", id), zap.String("user_id", supervisor.ID))
	return nil
}

// Reject sends a cleaned assignment back with a reason.
func (b *Backend) Reject(ctx context.Context, supervisor *models.User, id string, req dto.RejectRequest) error {
	if err := b.validator.StructCtx(ctx, req); err != nil {
		return b.invalid(err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	a, err := b.ownedAssignment(id, func(a *models.Assignment) bool { return a.SupervisorUserID == supervisor.ID })
	if err != nil {
		return err
	}
	if a.Status != models.StatusCleaned {
		return conflict("Assignment must be in cleaned status to reject")
	}
	now := b.now()
	if err := a.Reject(now, req.RejectionReason); err != nil {
		return unprocessable("rejection_reason is required")
	}
	a.UpdatedAt = now

	b.logger.Info("assignment rejected", zap.String("assignment_id", id), zap.String("user_id", supervisor.ID))
	return nil
}

// ActivePeriodStats counts assignments per status in the active period.
func (b *Backend) ActivePeriodStats(ctx context.Context) (*models.DashboardStats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	active, ok := b.activePeriod()
	if !ok {
		return nil, notFound("No active period found")
	}

	stats := &models.DashboardStats{PeriodID: active.ID}
	for _, a := range b.assignments {
		if a.PeriodID != active.ID {
			continue
		}
		switch a.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusCleaned:
			stats.Cleaned++
		case models.StatusRejected:
			stats.Rejected++
		case models.StatusApproved:
			stats.Approved++
		}
	}
	return stats, nil
}

// ownedAssignment expects b.mu to be held for writing.
func (b *Backend) ownedAssignment(id string, owns func(*models.Assignment) bool) (*models.Assignment, error) {
	for _, a := range b.assignments {
		if a.ID != id {
			continue
		}
		if !owns(a) {
			return nil, errNotEnoughPermissions
		}
		return a, nil
	}
	return nil, notFound("Assignment not found")
}

// activePeriod expects b.mu to be held.
func (b *Backend) activePeriod() (*models.Period, bool) {
	for _, p := range b.periods {
		if p.Status == models.PeriodActive {
			return p, true
		}
	}
	return nil, false
}

// embed returns a copy of a with its references denormalised. Expects b.mu
// to be held.
func (b *Backend) embed(a models.Assignment) models.Assignment {
	out := a.Clone()
	for _, loc := range b.locations {
		if loc.ID != a.LocationID {
			continue
		}
		ref := &models.LocationRef{
			ID:              loc.ID,
			Name:            loc.Name,
			LocationType:    loc.LocationType,
			LocationSubtype: loc.LocationSubtype,
			FloorLabel:      loc.FloorLabel,
			Building:        models.NamedRef{ID: loc.BuildingID},
		}
		for _, bld := range b.buildings {
			if bld.ID == loc.BuildingID {
				ref.Building.Name = bld.Name
			}
		}
		if loc.DepartmentID != nil {
			for _, dep := range b.departments {
				if dep.ID == *loc.DepartmentID {
					ref.Department = &models.NamedRef{ID: dep.ID, Name: dep.Name}
				}
			}
		}
		// Clone again so the embed never aliases the stored location.
		cloned := models.Assignment{Location: ref}.Clone()
		out.Location = cloned.Location
	}
	for _, p := range b.periods {
		if p.ID == a.PeriodID {
			out.Period = &models.PeriodRef{ID: p.ID, Name: p.Name, Status: p.Status}
		}
	}
	for _, acc := range b.users {
		switch acc.user.ID {
		case a.StaffUserID:
			out.StaffUser = &models.UserRef{ID: acc.user.ID, FullName: acc.user.FullName}
		case a.SupervisorUserID:
			out.SupervisorUser = &models.UserRef{ID: acc.user.ID, FullName: acc.user.FullName}
		}
	}
	return out
}
