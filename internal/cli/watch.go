package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/cleanops-client/internal/handler"
	"github.com/noah-isme/cleanops-client/internal/models"
	"github.com/noah-isme/cleanops-client/internal/navigation"
	"github.com/noah-isme/cleanops-client/internal/service"
	appErrors "github.com/noah-isme/cleanops-client/pkg/errors"
	"github.com/noah-isme/cleanops-client/pkg/jobs"
)

type exportJob struct {
	Title  string
	Format service.ExportFormat
	Items  []models.Assignment
}

type assignmentView interface {
	service.Refresher
	Snapshot() service.AssignmentSnapshot
}

func (c *CLI) watch(ctx context.Context, args []string) error {
	fs := newFlagSet("watch")
	format := fs.String("export", "", "render csv or pdf after every refresh")
	once := fs.Bool("once", false, "refresh a single time and exit")
	if _, err := positional(fs, args); err != nil {
		return err
	}
	if err := c.boot(ctx); err != nil {
		return err
	}
	identity := c.app.Session.Identity()
	if identity == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "not signed in, run `cleanops login`")
	}
	home, ok := navigation.HomeFor(identity.Role)
	if !ok {
		return fmt.Errorf("no view for role %s", identity.Role)
	}
	if _, err := c.enter(ctx, home); err != nil {
		return err
	}

	exp := c.exporter(ctx, *once)
	defer exp.stop()

	switch identity.Role {
	case models.RoleStaff:
		c.app.Reconciler.Register("tasks", c.watchView("tasks", c.app.Tasks, *format, exp))
	case models.RoleSupervisor:
		c.app.Reconciler.Register("reviews", c.watchView("reviews", c.app.Reviews, *format, exp))
	case models.RoleAdmin:
		c.app.Reconciler.Register("stats", service.RefresherFunc(func(ctx context.Context) error {
			stats, err := c.app.API.ActivePeriodStats(ctx)
			if err != nil {
				return err
			}
			c.printStats(stats)
			return nil
		}))
	}

	if err := c.app.Reconciler.RunOnce(ctx); err != nil && *once {
		return err
	}
	if *once {
		return nil
	}

	stopMetrics := c.serveMetrics()
	defer stopMetrics()

	if err := c.app.Reconciler.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	c.app.Reconciler.Stop()
	return nil
}

// watchView refreshes a store view, prints it and hands the items to the
// exporter when a format is set.
func (c *CLI) watchView(name string, view assignmentView, format string, exporter *exporter) service.Refresher {
	return service.RefresherFunc(func(ctx context.Context) error {
		if err := view.Refresh(ctx); err != nil {
			return err
		}
		snap := view.Snapshot()
		c.printf("%s refreshed at %s\n", name, time.Now().Format(time.RFC3339))
		c.printAssignments(snap)
		if format == "" {
			return nil
		}
		return exporter.submit(exportJob{Title: name, Format: service.ExportFormat(format), Items: snap.Items})
	})
}

type exporter struct {
	cli   *CLI
	queue *jobs.Queue[exportJob]
}

// exporter renders synchronously for a single run and through a worker queue
// otherwise, so a slow PDF never delays the next refresh.
func (c *CLI) exporter(ctx context.Context, inline bool) *exporter {
	e := &exporter{cli: c}
	if inline {
		return e
	}
	e.queue = jobs.NewQueue[exportJob]("exports", func(_ context.Context, job jobs.Job[exportJob]) error {
		return c.export(job.Payload.Title, string(job.Payload.Format), job.Payload.Items)
	}, jobs.QueueConfig{Workers: 1, MaxRetries: 2, Logger: c.logger})
	e.queue.Start(ctx)
	return e
}

func (e *exporter) submit(job exportJob) error {
	if e.queue == nil {
		return e.cli.export(job.Title, string(job.Format), job.Items)
	}
	return e.queue.Enqueue(jobs.Job[exportJob]{ID: uuid.NewString(), Payload: job})
}

func (e *exporter) stop() {
	if e.queue != nil {
		e.queue.Stop()
	}
}

// serveMetrics exposes client metrics on METRICS_ADDR when configured.
func (c *CLI) serveMetrics() func() {
	addr := c.app.Config.Metrics.Addr
	if addr == "" {
		return func() {}
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler.NewMetricsRouter(c.app.Metrics, c.logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	c.logger.Info("metrics server listening", zap.String("addr", addr))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
