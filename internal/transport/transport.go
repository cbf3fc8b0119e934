package transport

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/cleanops-client/pkg/middleware/requestid"
)

// Middleware decorates an outgoing round tripper.
type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper.
func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Chain wraps base with the given middlewares; the first one is outermost.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	rt := base
	for i := len(mws) - 1; i >= 0; i-- {
		rt = mws[i](rt)
	}
	return rt
}

// TokenSource yields the bearer token to attach, or "" when signed out.
type TokenSource interface {
	Token() string
}

// UnauthorizedHandler is told which token the server refused.
type UnauthorizedHandler interface {
	HandleUnauthorized(ctx context.Context, token string)
}

// RequestObserver receives one observation per completed round trip. Status is
// zero when no response was received.
type RequestObserver interface {
	ObserveAPIRequest(method, path string, status int, duration time.Duration)
}

type anonymousKey struct{}

// WithAnonymous marks ctx so BearerToken leaves the request unauthenticated.
func WithAnonymous(ctx context.Context) context.Context {
	return context.WithValue(ctx, anonymousKey{}, true)
}

// IsAnonymous reports whether ctx was marked by WithAnonymous.
func IsAnonymous(ctx context.Context) bool {
	v, _ := ctx.Value(anonymousKey{}).(bool)
	return v
}

// BearerToken attaches "Authorization: Bearer <token>" when a token is held.
func BearerToken(src TokenSource) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if src == nil || IsAnonymous(req.Context()) {
				return next.RoundTrip(req)
			}
			token := src.Token()
			if token == "" {
				return next.RoundTrip(req)
			}
			clone := req.Clone(req.Context())
			clone.Header.Set("Authorization", "Bearer "+token)
			return next.RoundTrip(clone)
		})
	}
}

// LogoutOnUnauthorized notifies h when a request that carried a bearer token
// is answered with 401. The response is passed through untouched. It must sit
// inside BearerToken in the chain so the attached header is visible.
func LogoutOnUnauthorized(h UnauthorizedHandler) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(req)
			if err != nil || resp == nil || h == nil {
				return resp, err
			}
			if resp.StatusCode == http.StatusUnauthorized {
				if token := bearerFrom(req); token != "" {
					h.HandleUnauthorized(req.Context(), token)
				}
			}
			return resp, err
		})
	}
}

// RequestID sets X-Request-ID on requests that do not already carry one.
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get(requestid.Header) != "" {
				return next.RoundTrip(req)
			}
			clone := req.Clone(req.Context())
			clone.Header.Set(requestid.Header, requestid.Generate())
			return next.RoundTrip(clone)
		})
	}
}

// Logging writes one structured entry per outgoing request.
func Logging(l *zap.Logger) Middleware {
	if l == nil {
		l = zap.NewNop()
	}
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Duration("latency", time.Since(start)),
			}
			if reqID := req.Header.Get(requestid.Header); reqID != "" {
				fields = append(fields, zap.String("request_id", reqID))
			}
			if err != nil {
				l.Warn("api_request_failed", append(fields, zap.Error(err))...)
				return resp, err
			}

			fields = append(fields, zap.Int("status", resp.StatusCode))
			if resp.StatusCode >= http.StatusBadRequest {
				l.Info("api_request", fields...)
			} else {
				l.Debug("api_request", fields...)
			}
			return resp, err
		})
	}
}

// Metrics reports every round trip to obs.
func Metrics(obs RequestObserver) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if obs == nil {
				return next.RoundTrip(req)
			}
			start := time.Now()
			resp, err := next.RoundTrip(req)
			status := 0
			if resp != nil {
				status = resp.StatusCode
			}
			obs.ObserveAPIRequest(req.Method, req.URL.Path, status, time.Since(start))
			return resp, err
		})
	}
}

func bearerFrom(req *http.Request) string {
	header := req.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
