package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/cleanops-client/internal/middleware"
	"github.com/noah-isme/cleanops-client/internal/models"
	"github.com/noah-isme/cleanops-client/internal/sandbox"
	"github.com/noah-isme/cleanops-client/pkg/logger"
	corsmiddleware "github.com/noah-isme/cleanops-client/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/cleanops-client/pkg/middleware/requestid"
)

// SandboxOptions configures the sandbox router.
type SandboxOptions struct {
	Prefix         string
	AllowedOrigins []string
	// LoginPerMinute throttles /auth/login per client IP; zero disables it.
	LoginPerMinute int
	Logger         *zap.Logger
}

// NewSandboxRouter mounts the workflow API served by backend.
func NewSandboxRouter(backend *sandbox.Backend, opts SandboxOptions) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authHandler := NewAuthHandler(backend)
	assignmentHandler := NewAssignmentHandler(backend)
	dashboardHandler := NewDashboardHandler(backend)
	referenceHandler := NewReferenceHandler(backend)

	api := r.Group(opts.Prefix)
	api.POST("/auth/login", middleware.RateLimit(opts.LoginPerMinute, time.Minute), authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.JWT(backend))
	protected.GET("/auth/me", authHandler.Me)

	staff := protected.Group("/my/assignments", middleware.RequireRoles(models.RoleStaff))
	staff.GET("", assignmentHandler.MyAssignments)
	staff.POST("/:id/clean", middleware.Audit(opts.Logger, "clean", "assignment"), assignmentHandler.Clean)

	reviews := protected.Group("/my/reviews", middleware.RequireRoles(models.RoleSupervisor))
	reviews.GET("", assignmentHandler.MyReviews)
	reviews.POST("/:id/approve", middleware.Audit(opts.Logger, "approve", "assignment"), assignmentHandler.Approve)
	reviews.POST("/:id/reject", middleware.Audit(opts.Logger, "reject", "assignment"), assignmentHandler.Reject)

	admin := protected.Group("", middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/dashboard/active-period-stats", dashboardHandler.ActivePeriodStats)
	for _, kind := range sandbox.Kinds() {
		path := "/" + string(kind)
		resource := sandbox.Singular(kind)
		admin.GET(path, referenceHandler.List(kind))
		admin.POST(path, middleware.Audit(opts.Logger, "create", resource), referenceHandler.Create(kind))
		admin.DELETE(path+"/:id", middleware.Audit(opts.Logger, "delete", resource), referenceHandler.Delete(kind))
	}

	return r
}

// NewMetricsRouter serves client metrics for scraping.
func NewMetricsRouter(metrics metricsSource, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	h := NewMetricsHandler(metrics)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(log))
	r.GET("/metrics", h.Prometheus)
	r.GET("/metrics/snapshot", h.Snapshot)
	r.GET("/health", h.Health)
	return r
}
