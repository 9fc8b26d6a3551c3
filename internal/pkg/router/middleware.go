package router

import (
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
	"github.com/shandysiswandi/otpgate/internal/pkg/stacktrace"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain wraps h with mws so that mws[0] is the outermost layer.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}

const (
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderRequestID     = "X-Request-ID"

	maxCorrelationIDLen = 128
)

func middlewareRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			//nolint:errorlint // sentinel comparison required by net/http
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}

			stack := debug.Stack()
			if frames := stacktrace.InternalPaths(stack); len(frames) > 0 {
				slog.ErrorContext(r.Context(), "handler panicked", "panic", rvr, "stack", frames)
			} else {
				slog.ErrorContext(r.Context(), "handler panicked", "panic", rvr, "stack", string(stack))
			}

			writeFailure(w, "Internal server error", http.StatusInternalServerError, nil)
		}()

		next.ServeHTTP(w, r)
	})
}

// middlewareIP rewrites RemoteAddr to the caller address. The first
// X-Forwarded-For hop wins, then X-Real-IP, then True-Client-IP. Values that
// are not IPs are ignored and the socket peer is kept.
func middlewareIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
		for _, candidate := range []string{first, r.Header.Get("X-Real-IP"), r.Header.Get("True-Client-IP")} {
			if ip := net.ParseIP(strings.TrimSpace(candidate)); ip != nil {
				r.RemoteAddr = ip.String()
				break
			}
		}
		next.ServeHTTP(w, r)
	})
}

// middlewareCorrelationID propagates an inbound correlation id, or mints one,
// and echoes it on the response.
func middlewareCorrelationID(gen uid.StringID) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cID := cleanCorrelationID(r.Header.Get(HeaderCorrelationID))
			if cID == "" {
				cID = cleanCorrelationID(r.Header.Get(HeaderRequestID))
			}
			if cID == "" && gen != nil {
				cID = gen.Generate()
			}

			if cID != "" {
				w.Header().Set(HeaderCorrelationID, cID)
				r = r.WithContext(instrument.SetCorrelationID(r.Context(), cID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func cleanCorrelationID(v string) string {
	if strings.ContainsAny(v, "\r\n") {
		return ""
	}
	v = strings.TrimSpace(v)
	return v[:min(len(v), maxCorrelationIDLen)]
}

// middlewareMaintenance answers 503 for routes listed under
// app.maintenance.endpoints.
func middlewareMaintenance(cfg config.Config) Middleware {
	closed := make(map[string]struct{})
	if cfg != nil {
		for _, route := range cfg.GetArray("app.maintenance.endpoints") {
			closed[route] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := closed[routePattern(r)]; ok {
				writeFailure(w, "Service is under maintenance", http.StatusServiceUnavailable, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// middlewareAuthentication requires a Bearer access token on every route not
// listed in public and stores the verified claims on the request context.
func middlewareAuthentication(verifier jwt.JWT, public map[string]map[string]struct{}) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := public[r.Method][routePattern(r)]; ok {
				next.ServeHTTP(w, r)
				return
			}

			scheme, token, found := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
			if verifier == nil || !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				writeFailure(w, "Authentication required", http.StatusUnauthorized, nil)
				return
			}

			claims, err := verifier.Verify(strings.TrimSpace(token))
			if err != nil {
				writeFailure(w, "Invalid or expired token", http.StatusUnauthorized, nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(jwt.SetAuth(r.Context(), claims)))
		})
	}
}
