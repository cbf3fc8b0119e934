package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/noah-isme/cleanops-client/internal/apiclient"
	"github.com/noah-isme/cleanops-client/internal/dto"
	"github.com/noah-isme/cleanops-client/internal/models"
	appErrors "github.com/noah-isme/cleanops-client/pkg/errors"
)

const dashboardPath = "/admin/dashboard"

var resourceKinds = map[string]models.ResourceKind{
	string(models.ResourceBuildings):   models.ResourceBuildings,
	string(models.ResourceDepartments): models.ResourceDepartments,
	string(models.ResourceLocations):   models.ResourceLocations,
	string(models.ResourcePeriods):     models.ResourcePeriods,
	string(models.ResourceUsers):       models.ResourceUsers,
	string(models.ResourceAssignments): models.ResourceAssignments,
}

func (c *CLI) stats(ctx context.Context, args []string) error {
	if _, err := positional(newFlagSet("stats"), args); err != nil {
		return err
	}
	if _, err := c.enter(ctx, dashboardPath); err != nil {
		return err
	}
	stats, err := c.app.API.ActivePeriodStats(ctx)
	if err != nil {
		return err
	}
	c.printStats(stats)
	return nil
}

func (c *CLI) printStats(stats *models.DashboardStats) {
	c.printf("period %s: pending %d, cleaned %d, approved %d, rejected %d\n",
		stats.PeriodID, stats.Pending, stats.Cleaned, stats.Approved, stats.Rejected)
}

func (c *CLI) ref(ctx context.Context, args []string) error {
	return c.subcommand(ctx, "ref", args, map[string]command{
		"list":   c.refList,
		"create": c.refCreate,
		"delete": c.refDelete,
	})
}

func (c *CLI) refList(ctx context.Context, args []string) error {
	fs := newFlagSet("ref list")
	search := fs.String("search", "", "name search")
	filters := fs.StringToString("filter", nil, "equality filters, e.g. building_id=ID")
	page := fs.Int("page", 0, "page number")
	pageSize := fs.Int("page-size", 0, "page size")
	rest, err := positional(fs, args, "KIND")
	if err != nil {
		return err
	}
	kind, err := resourceKind(rest[0])
	if err != nil {
		return err
	}
	if _, err := c.enter(ctx, dashboardPath); err != nil {
		return err
	}

	query := dto.ListQuery{Page: *page, PageSize: *pageSize, Filters: map[string]string{}}
	for k, v := range *filters {
		query.Filters[k] = v
	}
	if *search != "" {
		query.Filters["search"] = *search
	}
	res, err := apiclient.ListResources[json.RawMessage](ctx, c.app.API, kind, query)
	if err != nil {
		return err
	}
	return c.printJSON(res)
}

func (c *CLI) refCreate(ctx context.Context, args []string) error {
	fs := newFlagSet("ref create")
	data := fs.String("data", "", "record as a JSON object")
	rest, err := positional(fs, args, "KIND")
	if err != nil {
		return err
	}
	kind, err := resourceKind(rest[0])
	if err != nil {
		return err
	}
	if !json.Valid([]byte(*data)) {
		return usageError("ref create: --data must be a JSON object")
	}
	if _, err := c.enter(ctx, dashboardPath); err != nil {
		return err
	}

	created, err := apiclient.CreateResource[json.RawMessage](ctx, c.app.API, kind, json.RawMessage(*data))
	if err != nil {
		return err
	}
	return c.printJSON(created)
}

func (c *CLI) refDelete(ctx context.Context, args []string) error {
	rest, err := positional(newFlagSet("ref delete"), args, "KIND", "ID")
	if err != nil {
		return err
	}
	kind, err := resourceKind(rest[0])
	if err != nil {
		return err
	}
	if _, err := c.enter(ctx, dashboardPath); err != nil {
		return err
	}
	if err := c.app.API.DeleteResource(ctx, kind, rest[1]); err != nil {
		return err
	}
	c.printf("%s %s deleted\n", kind, rest[1])
	return nil
}

func resourceKind(raw string) (models.ResourceKind, error) {
	kind, ok := resourceKinds[raw]
	if !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown resource %q", raw))
	}
	return kind, nil
}
