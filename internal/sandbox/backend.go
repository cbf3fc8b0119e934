package sandbox

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/cleanops-client/internal/models"
	appErrors "github.com/noah-isme/cleanops-client/pkg/errors"
)

// Config tunes the in-memory API.
type Config struct {
	JWTSecret       string
	JWTExpiration   time.Duration
	Issuer          string
	DefaultPageSize int
	MaxPageSize     int
	// PasswordCost is the bcrypt cost for stored passwords.
	PasswordCost int
}

// Option customises a Backend.
type Option func(*Backend)

// WithClock overrides the time source used for audit and workflow timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		if now != nil {
			b.now = now
		}
	}
}

// WithIDs overrides the id generator.
func WithIDs(next func() string) Option {
	return func(b *Backend) {
		if next != nil {
			b.newID = next
		}
	}
}

type account struct {
	user         models.User
	passwordHash string
}

// Backend is an in-memory implementation of the workflow API enforcing the
// same ownership and transition rules as the production server.
type Backend struct {
	mu        sync.RWMutex
	config    Config
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string

	users       []*account
	buildings   []*models.Building
	departments []*models.Department
	locations   []*models.Location
	periods     []*models.Period
	assignments []*models.Assignment
}

// New constructs an empty Backend. Call Seed to load demo data.
func New(cfg Config, validate *validator.Validate, logger *zap.Logger, opts ...Option) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	validate.RegisterTagNameFunc(jsonFieldName)
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}
	if cfg.JWTExpiration <= 0 {
		cfg.JWTExpiration = 30 * time.Minute
	}
	if cfg.PasswordCost == 0 {
		cfg.PasswordCost = bcrypt.DefaultCost
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "cleanops-sandbox"
	}
	b := &Backend{
		config:    cfg,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     newUUID,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// PageRequest is the page/page_size pair shared by list endpoints. Zero
// values fall back to the defaults.
type PageRequest struct {
	Page     int
	PageSize int
}

func (b *Backend) normalizePage(p PageRequest) (PageRequest, error) {
	if p.Page == 0 {
		p.Page = 1
	}
	if p.PageSize == 0 {
		p.PageSize = b.config.DefaultPageSize
	}
	if p.Page < 1 {
		return p, unprocessable("page must be greater than or equal to 1")
	}
	if p.PageSize < 1 || p.PageSize > b.config.MaxPageSize {
		return p, unprocessable(fmt.Sprintf("page_size must be between 1 and %d", b.config.MaxPageSize))
	}
	return p, nil
}

func paginate[T any](items []T, p PageRequest) *models.Page[T] {
	total := len(items)
	start := (p.Page - 1) * p.PageSize
	if start > total {
		start = total
	}
	end := start + p.PageSize
	if end > total {
		end = total
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	return &models.Page[T]{Items: out, Page: p.Page, PageSize: p.PageSize, Total: total}
}

// fail clones base with the status and detail the server reports.
func fail(base *appErrors.Error, status int, detail string) *appErrors.Error {
	err := appErrors.Clone(base, "")
	err.Status = status
	err.Detail = detail
	return err
}

func notFound(detail string) *appErrors.Error {
	return fail(appErrors.ErrNotFound, http.StatusNotFound, detail)
}

func conflict(detail string) *appErrors.Error {
	return fail(appErrors.ErrConflict, http.StatusConflict, detail)
}

func badRequest(detail string) *appErrors.Error {
	return fail(appErrors.ErrValidation, http.StatusBadRequest, detail)
}

func unprocessable(detail string) *appErrors.Error {
	return fail(appErrors.ErrValidation, http.StatusUnprocessableEntity, detail)
}

var errNotEnoughPermissions = fail(appErrors.ErrForbidden, http.StatusForbidden, "Not enough permissions")

// invalid converts validator output into a 422 keeping the field errors
// reachable for the response writer.
func (b *Backend) invalid(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return unprocessable(err.Error())
	}
	out := appErrors.Wrap(fieldErrs, appErrors.ErrValidation.Code, http.StatusUnprocessableEntity, appErrors.ErrValidation.Message)
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, FieldMessage(fe))
	}
	out.Detail = strings.Join(msgs, "; ")
	return out
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}

// FieldMessage renders a validator field error the way list details read.
func FieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must match %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
