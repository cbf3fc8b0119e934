package service

import (
	"context"
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/cleanops-client/internal/models"
	"github.com/noah-isme/cleanops-client/internal/transport"
	appErrors "github.com/noah-isme/cleanops-client/pkg/errors"
)

// SessionAPI is the slice of the remote API the session needs.
type SessionAPI interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Me(ctx context.Context) (*models.User, error)
}

// TokenRepository persists the session token across restarts. Load returns ""
// with a nil error when nothing is stored.
type TokenRepository interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

// SessionService owns the token and the current identity. It is the only
// writer of either.
type SessionService struct {
	mu       sync.RWMutex
	token    string
	identity *models.User
	loading  bool

	api       SessionAPI
	repo      TokenRepository
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	observers notifier[models.SessionSnapshot]
}

// NewSessionService constructs a signed-out session. The API is bound later
// with UseAPI because the transport that carries it reads the session token.
func NewSessionService(repo TokenRepository, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SessionService{repo: repo, validator: validate, logger: logger, metrics: metrics}
}

// UseAPI binds the remote API client.
func (s *SessionService) UseAPI(api SessionAPI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.api = api
}

// Restore loads a persisted token without contacting the server. An in-memory
// token always wins over the persisted one.
func (s *SessionService) Restore(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	token, err := s.repo.Load(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load persisted token")
	}
	if token == "" {
		return nil
	}

	s.mu.Lock()
	if s.token == "" {
		s.token = token
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// Boot restores the persisted token and refreshes the identity in the
// background. The returned channel yields the refresh outcome once.
func (s *SessionService) Boot(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	if err := s.Restore(ctx); err != nil {
		done <- err
		close(done)
		return done
	}
	go func() {
		defer close(done)
		done <- s.RefreshIdentity(ctx)
	}()
	return done
}

// Login authenticates with email and password. On failure the previous
// session state is left untouched.
func (s *SessionService) Login(ctx context.Context, email, password string) (*models.User, error) {
	req := models.LoginRequest{Email: email, Password: password}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}
	api, err := s.remote()
	if err != nil {
		return nil, err
	}

	s.setLoading(true)
	defer s.setLoading(false)

	res, err := api.Login(transport.WithAnonymous(ctx), req)
	if err != nil {
		return nil, loginError(err)
	}
	if res.AccessToken == "" {
		return nil, appErrors.Clone(appErrors.ErrInternal, "login response carried no access token")
	}

	identity := res.User
	s.mu.Lock()
	s.token = res.AccessToken
	s.identity = &identity
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Save(ctx, res.AccessToken); err != nil {
			s.logger.Warn("failed to persist session token", zap.Error(err))
		}
	}
	s.logger.Info("session started", zap.String("user_id", identity.ID), zap.String("role", string(identity.Role)))
	s.notify()

	out := identity
	return &out, nil
}

// RefreshIdentity re-reads the identity behind the current token. It is a
// no-op when signed out. Any failure ends the session.
func (s *SessionService) RefreshIdentity(ctx context.Context) error {
	token := s.Token()
	if token == "" {
		return nil
	}
	api, err := s.remote()
	if err != nil {
		return err
	}

	s.setLoading(true)
	defer s.setLoading(false)

	user, err := api.Me(ctx)
	if err != nil {
		s.logger.Info("identity refresh failed, ending session", zap.Error(err))
		s.logoutIfCurrent(ctx, token)
		return err
	}

	s.mu.Lock()
	if s.token != token {
		s.mu.Unlock()
		s.logger.Debug("session changed during identity refresh, result dropped")
		return nil
	}
	if prev := s.identity; prev != nil && (prev.ID != user.ID || prev.Role != user.Role) {
		s.mu.Unlock()
		s.logger.Warn("identity changed under the same token, ending session",
			zap.String("previous_user_id", prev.ID),
			zap.String("user_id", user.ID),
		)
		s.logoutIfCurrent(ctx, token)
		return appErrors.Clone(appErrors.ErrSessionChanged, "")
	}
	identity := *user
	s.identity = &identity
	s.mu.Unlock()

	s.notify()
	return nil
}

// Logout clears token, identity and the persisted token. Calling it while
// signed out is harmless.
func (s *SessionService) Logout(ctx context.Context) {
	s.mu.Lock()
	changed := s.token != "" || s.identity != nil
	s.token = ""
	s.identity = nil
	s.mu.Unlock()

	s.forget(ctx)
	if changed {
		s.logger.Info("session ended")
		s.notify()
	}
}

// HandleUnauthorized ends the session if token is still the current one.
func (s *SessionService) HandleUnauthorized(ctx context.Context, token string) {
	s.logoutIfCurrent(ctx, token)
}

// Token returns the current bearer token, "" when signed out.
func (s *SessionService) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Identity returns a copy of the current identity or nil.
func (s *SessionService) Identity() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil
	}
	out := *s.identity
	return &out
}

// IsAuthenticated is true only when both token and identity are held.
func (s *SessionService) IsAuthenticated() bool {
	return s.Snapshot().Authenticated()
}

// Loading reports whether a login or identity refresh is in flight.
func (s *SessionService) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Snapshot returns a consistent copy of the observable state.
func (s *SessionService) Snapshot() models.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := models.SessionSnapshot{Token: s.token, Loading: s.loading}
	if s.identity != nil {
		identity := *s.identity
		snap.Identity = &identity
	}
	return snap
}

// Subscribe registers fn for every state change and returns an unsubscribe func.
func (s *SessionService) Subscribe(fn func(models.SessionSnapshot)) func() {
	return s.observers.subscribe(fn)
}

func (s *SessionService) logoutIfCurrent(ctx context.Context, token string) {
	s.mu.Lock()
	if token == "" || s.token != token {
		s.mu.Unlock()
		return
	}
	s.token = ""
	s.identity = nil
	s.mu.Unlock()

	s.forget(ctx)
	s.logger.Info("session ended after authorization failure")
	s.notify()
}

func (s *SessionService) forget(ctx context.Context) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Delete(ctx); err != nil {
		s.logger.Warn("failed to remove persisted token", zap.Error(err))
	}
}

func (s *SessionService) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
	s.notify()
}

func (s *SessionService) notify() {
	snap := s.Snapshot()
	s.metrics.SetAuthenticated(snap.Authenticated())
	s.observers.publish(snap)
}

func (s *SessionService) remote() (SessionAPI, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.api == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "session has no API client")
	}
	return s.api, nil
}

func loginError(err error) error {
	var appErr *appErrors.Error
	if !errors.As(err, &appErr) {
		return err
	}
	var base *appErrors.Error
	switch {
	case errors.Is(err, appErrors.ErrUnauthorized):
		base = appErrors.ErrInvalidCredentials
	case errors.Is(err, appErrors.ErrForbidden):
		base = appErrors.ErrInactiveAccount
	default:
		return err
	}
	mapped := appErrors.Clone(base, "")
	mapped.Detail = appErr.Detail
	mapped.Err = err
	return mapped
}
