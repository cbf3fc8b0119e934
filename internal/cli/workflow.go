package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/noah-isme/cleanops-client/internal/dto"
	"github.com/noah-isme/cleanops-client/internal/models"
	"github.com/noah-isme/cleanops-client/internal/service"
	appErrors "github.com/noah-isme/cleanops-client/pkg/errors"
)

const (
	tasksPath   = "/staff/tasks"
	reviewsPath = "/supervisor/reviews"
)

func (c *CLI) tasks(ctx context.Context, args []string) error {
	return c.subcommand(ctx, "tasks", args, map[string]command{
		"list":   c.tasksList,
		"clean":  c.tasksClean,
		"export": c.tasksExport,
	})
}

func (c *CLI) reviews(ctx context.Context, args []string) error {
	return c.subcommand(ctx, "reviews", args, map[string]command{
		"list":    c.reviewsList,
		"approve": c.reviewsApprove,
		"reject":  c.reviewsReject,
		"export":  c.reviewsExport,
	})
}

func (c *CLI) tasksList(ctx context.Context, args []string) error {
	fs := newFlagSet("tasks list")
	filter := taskFilterFlags(fs)
	if _, err := positional(fs, args); err != nil {
		return err
	}
	if _, err := c.enter(ctx, tasksPath); err != nil {
		return err
	}
	f, err := filter()
	if err != nil {
		return err
	}
	if err := c.app.Tasks.FetchMine(ctx, f); err != nil {
		return err
	}
	c.printAssignments(c.app.Tasks.Snapshot())
	return nil
}

func (c *CLI) tasksClean(ctx context.Context, args []string) error {
	fs := newFlagSet("tasks clean")
	notes := fs.String("notes", "", "staff notes")
	ids, err := positional(fs, args, "ID")
	if err != nil {
		return err
	}
	if _, err := c.enter(ctx, tasksPath+"/"+ids[0]); err != nil {
		return err
	}
	if err := c.app.Tasks.MarkCleaned(ctx, ids[0], notes); err != nil {
		return err
	}
	c.printf("assignment %s marked as cleaned\n", ids[0])
	return nil
}

func (c *CLI) tasksExport(ctx context.Context, args []string) error {
	fs := newFlagSet("tasks export")
	format, title := exportFlags(fs, "my-tasks")
	filter := taskFilterFlags(fs)
	if _, err := positional(fs, args); err != nil {
		return err
	}
	if _, err := c.enter(ctx, tasksPath); err != nil {
		return err
	}
	f, err := filter()
	if err != nil {
		return err
	}
	if err := c.app.Tasks.FetchMine(ctx, f); err != nil {
		return err
	}
	return c.export(*title, *format, c.app.Tasks.Items())
}

func (c *CLI) reviewsList(ctx context.Context, args []string) error {
	fs := newFlagSet("reviews list")
	filter := reviewFilterFlags(fs)
	if _, err := positional(fs, args); err != nil {
		return err
	}
	if _, err := c.enter(ctx, reviewsPath); err != nil {
		return err
	}
	f, err := filter()
	if err != nil {
		return err
	}
	if err := c.app.Reviews.FetchMine(ctx, f); err != nil {
		return err
	}
	c.printAssignments(c.app.Reviews.Snapshot())
	return nil
}

func (c *CLI) reviewsApprove(ctx context.Context, args []string) error {
	fs := newFlagSet("reviews approve")
	rating := fs.Int("rating", 0, "rating from 1 to 5")
	notes := fs.String("notes", "", "supervisor notes")
	ids, err := positional(fs, args, "ID")
	if err != nil {
		return err
	}
	if _, err := c.enter(ctx, reviewsPath+"/"+ids[0]); err != nil {
		return err
	}

	var ratingPtr *int
	if fs.Changed("rating") {
		ratingPtr = rating
	}
	var notesPtr *string
	if fs.Changed("notes") {
		notesPtr = notes
	}
	if err := c.app.Reviews.Approve(ctx, ids[0], ratingPtr, notesPtr); err != nil {
		return err
	}
	c.printf("assignment %s approved\n", ids[0])
	return nil
}

func (c *CLI) reviewsReject(ctx context.Context, args []string) error {
	fs := newFlagSet("reviews reject")
	reason := fs.String("reason", "", "rejection reason")
	ids, err := positional(fs, args, "ID")
	if err != nil {
		return err
	}
	if _, err := c.enter(ctx, reviewsPath+"/"+ids[0]); err != nil {
		return err
	}
	if err := c.app.Reviews.Reject(ctx, ids[0], *reason); err != nil {
		return err
	}
	c.printf("assignment %s rejected\n", ids[0])
	return nil
}

func (c *CLI) reviewsExport(ctx context.Context, args []string) error {
	fs := newFlagSet("reviews export")
	format, title := exportFlags(fs, "my-reviews")
	filter := reviewFilterFlags(fs)
	if _, err := positional(fs, args); err != nil {
		return err
	}
	if _, err := c.enter(ctx, reviewsPath); err != nil {
		return err
	}
	f, err := filter()
	if err != nil {
		return err
	}
	if err := c.app.Reviews.FetchMine(ctx, f); err != nil {
		return err
	}
	return c.export(*title, *format, c.app.Reviews.Items())
}

func (c *CLI) export(title, format string, items []models.Assignment) error {
	res, err := c.app.Exports.Assignments(title, service.ExportFormat(format), items)
	if err != nil {
		return err
	}
	c.printf("exported %d assignments to %s\n", res.Rows, res.Path)

	ttl := c.app.Config.Export.TTL
	removed, err := c.app.Exports.Cleanup(ttl)
	if err != nil {
		c.logger.Warn("export cleanup failed", zap.Error(err))
		return nil
	}
	if len(removed) > 0 {
		c.printf("removed %d exports older than %s\n", len(removed), ttl)
	}
	return nil
}

func (c *CLI) printAssignments(snap service.AssignmentSnapshot) {
	c.outMu.Lock()
	defer c.outMu.Unlock()

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLOCATION\tPERIOD\tSTATUS\tASSIGNEE")
	for _, a := range snap.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.ID, locationName(a), periodName(a), a.Status, staffName(a))
	}
	_ = w.Flush()
	if p := snap.Pagination; p != nil {
		fmt.Fprintf(c.out, "page %d, %d of %d\n", p.Page, len(snap.Items), p.Total)
	}
}

func taskFilterFlags(fs *pflag.FlagSet) func() (dto.AssignmentFilter, error) {
	status := fs.String("status", "", "pending, cleaned, approved or rejected")
	period := fs.String("period", "", "period id (server default: active period)")
	page := fs.Int("page", 0, "page number")
	pageSize := fs.Int("page-size", 0, "page size")
	return func() (dto.AssignmentFilter, error) {
		st, err := parseStatus(*status)
		if err != nil {
			return dto.AssignmentFilter{}, err
		}
		return dto.AssignmentFilter{Page: *page, PageSize: *pageSize, Status: st, PeriodID: *period}, nil
	}
}

func reviewFilterFlags(fs *pflag.FlagSet) func() (dto.ReviewFilter, error) {
	status := fs.String("status", "", "status to review (default cleaned)")
	page := fs.Int("page", 0, "page number")
	pageSize := fs.Int("page-size", 0, "page size")
	return func() (dto.ReviewFilter, error) {
		st, err := parseStatus(*status)
		if err != nil {
			return dto.ReviewFilter{}, err
		}
		return dto.ReviewFilter{Page: *page, PageSize: *pageSize, Status: st}, nil
	}
}

func exportFlags(fs *pflag.FlagSet, defaultTitle string) (format, title *string) {
	format = fs.String("format", string(service.ExportFormatCSV), "csv or pdf")
	title = fs.String("title", defaultTitle, "export title, also the file name stem")
	return format, title
}

func parseStatus(raw string) (models.AssignmentStatus, error) {
	if raw == "" {
		return "", nil
	}
	st := models.AssignmentStatus(raw)
	if !st.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", raw))
	}
	return st, nil
}

func locationName(a models.Assignment) string {
	if a.Location != nil {
		return a.Location.Name
	}
	return a.LocationID
}

func periodName(a models.Assignment) string {
	if a.Period != nil {
		return a.Period.Name
	}
	return a.PeriodID
}

func staffName(a models.Assignment) string {
	if a.StaffUser != nil {
		return a.StaffUser.FullName
	}
	return a.StaffUserID
}
