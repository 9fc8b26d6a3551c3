package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
)

type stubJWT struct {
	claims jwt.Claims
	err    error
}

func (s stubJWT) Generate(int64, string) (string, error) { return "", nil }

func (s stubJWT) Verify(string) (jwt.Claims, error) { return s.claims, s.err }

type stubUUID struct{}

func (stubUUID) Generate() string { return "cid-test" }

type created struct {
	Name string `json:"name"`
}

func (created) StatusCode() int { return http.StatusCreated }
func (created) Message() string { return "Created" }

type listed struct{ items []string }

func (l listed) Data() any { return l.items }
func (l listed) Meta() map[string]any { return map[string]any{"total": len(l.items)} }

func newTestRouter(t *testing.T, verifier jwt.JWT, check func(context.Context) error) *Router {
	t.Helper()
	return NewRouter(Config{
		UUID:        stubUUID{},
		JWT:         verifier,
		Instrument:  instrument.NewNoop(),
		HealthCheck: check,
	})
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not json: %v (%s)", err, rec.Body.String())
	}
	return body
}

func TestRouter_Health(t *testing.T) {
	tests := []struct {
		name    string
		check   func(context.Context) error
		status  int
		success bool
	}{
		{name: "healthy", check: func(context.Context) error { return nil }, status: http.StatusOK, success: true},
		{name: "no check", check: nil, status: http.StatusOK, success: true},
		{name: "unhealthy", check: func(context.Context) error { return errors.New("redis down") }, status: http.StatusServiceUnavailable, success: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			ro := newTestRouter(t, stubJWT{}, tt.check)
			rec := httptest.NewRecorder()

			// Act
			ro.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			// Assert
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			body := decodeEnvelope(t, rec)
			if body["success"] != tt.success {
				t.Fatalf("success = %v, want %v", body["success"], tt.success)
			}
			if int(body["status_code"].(float64)) != tt.status {
				t.Fatalf("status_code = %v", body["status_code"])
			}
			if rec.Header().Get(HeaderCorrelationID) != "cid-test" {
				t.Fatalf("missing correlation id header")
			}
		})
	}
}

func TestRouter_NotFound(t *testing.T) {
	ro := newTestRouter(t, stubJWT{}, nil)
	rec := httptest.NewRecorder()

	ro.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body["message"] != "Endpoint not found" || body["success"] != false {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestRouter_SuccessEnvelope(t *testing.T) {
	ro := newTestRouter(t, stubJWT{}, nil)
	ro.POST("/api/v1/auth/otp/request", func(*Request) (any, error) {
		return created{Name: "x"}, nil
	})
	rec := httptest.NewRecorder()

	ro.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/otp/request", strings.NewReader("{}")))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body["message"] != "Created" || body["success"] != true {
		t.Fatalf("unexpected body: %v", body)
	}
	data, ok := body["data"].(map[string]any)
	if !ok || data["name"] != "x" {
		t.Fatalf("unexpected data: %v", body["data"])
	}
}

func TestRouter_ErrorEnvelope(t *testing.T) {
	ro := newTestRouter(t, stubJWT{}, nil)
	ro.POST("/api/v1/auth/otp/verify", func(*Request) (any, error) {
		return nil, goerror.NewBusinessWithData("Account locked due to too many failed attempts", goerror.CodeLocked,
			map[string]any{"unlock_eta_seconds": 900})
	})
	rec := httptest.NewRecorder()

	ro.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/otp/verify", nil))

	if rec.Code != http.StatusLocked {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	data := body["data"].(map[string]any)
	if data["unlock_eta_seconds"] != float64(900) {
		t.Fatalf("unexpected data: %v", data)
	}
}

func TestRouter_UnknownErrorIsInternal(t *testing.T) {
	ro := newTestRouter(t, stubJWT{}, nil)
	ro.POST("/api/v1/token/refresh", func(*Request) (any, error) {
		return nil, errors.New("raw")
	})
	rec := httptest.NewRecorder()

	ro.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/token/refresh", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRouter_ProtectedEndpoint(t *testing.T) {
	tests := []struct {
		name   string
		header string
		jwt    stubJWT
		status int
	}{
		{name: "missing header", header: "", status: http.StatusUnauthorized},
		{name: "bad scheme", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer abc", jwt: stubJWT{err: jwt.ErrInvalidToken}, status: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer abc", jwt: stubJWT{claims: jwt.Claims{UserID: 7}}, status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ro := newTestRouter(t, tt.jwt, nil)
			ro.GET("/api/v1/audit", func(r *Request) (any, error) {
				clm := jwt.GetAuth(r.Context())
				if clm == nil {
					return nil, goerror.NewServer(errors.New("missing claims"))
				}
				return listed{items: []string{"a"}}, nil
			})
			req := httptest.NewRequest(http.MethodGet, "/api/v1/audit", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			ro.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if tt.status == http.StatusOK {
				body := decodeEnvelope(t, rec)
				meta := body["meta"].(map[string]any)
				if meta["total"] != float64(1) {
					t.Fatalf("unexpected meta: %v", meta)
				}
			}
		})
	}
}

func TestRouter_RecoversPanic(t *testing.T) {
	ro := newTestRouter(t, stubJWT{}, nil)
	ro.POST("/api/v1/auth/otp/request", func(*Request) (any, error) {
		panic("boom")
	})
	rec := httptest.NewRecorder()

	ro.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/otp/request", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeEnvelope(t, rec); body["message"] != "Internal server error" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestRequest_ClientIP(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{remote: "10.0.0.1:5555", want: "10.0.0.1"},
		{remote: "10.0.0.2", want: "10.0.0.2"},
		{remote: "", want: ""},
		{remote: "garbage", want: ""},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remote
		if got := (&Request{Request: req}).ClientIP(); got != tt.want {
			t.Fatalf("ClientIP(%q) = %q, want %q", tt.remote, got, tt.want)
		}
	}
}

func TestRequest_GetQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&page_size=abc", nil)
	r := &Request{Request: req}

	if got := r.GetQueryInt("page", 1); got != 3 {
		t.Fatalf("page = %d", got)
	}
	if got := r.GetQueryInt("page_size", 10); got != 10 {
		t.Fatalf("page_size = %d", got)
	}
	if got := r.GetQueryInt("missing", 5); got != 5 {
		t.Fatalf("missing = %d", got)
	}
}

func TestRequest_DecodeBody(t *testing.T) {
	var dst struct {
		Email string `json:"email"`
	}

	ok := &Request{Request: httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co"}`))}
	if err := ok.DecodeBody(&dst); err != nil || dst.Email != "a@b.co" {
		t.Fatalf("DecodeBody() = %v, %+v", err, dst)
	}

	extra := &Request{Request: httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"c@d.co","client":"web"}`))}
	if err := extra.DecodeBody(&dst); err != nil || dst.Email != "c@d.co" {
		t.Fatalf("DecodeBody() with extra key = %v, %+v", err, dst)
	}

	array := &Request{Request: httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`["a@b.co"]`))}
	if err := array.DecodeBody(&dst); err == nil {
		t.Fatalf("expected error on non-object body")
	}

	trailing := &Request{Request: httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"x"}{}`))}
	if err := trailing.DecodeBody(&dst); err == nil {
		t.Fatalf("expected error on trailing data")
	}
}

func TestMiddlewareIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "forwarded for first hop", headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1", "X-Real-IP": "198.51.100.1"}, want: "203.0.113.7"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "198.51.100.1"}, want: "198.51.100.1"},
		{name: "true client ip", headers: map[string]string{"True-Client-IP": "2001:db8::1"}, want: "2001:db8::1"},
		{name: "garbage header keeps peer", headers: map[string]string{"X-Forwarded-For": "unknown"}, want: "192.0.2.1"},
		{name: "no headers", want: "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.0.2.1:1234"
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			var got string
			h := middlewareIP(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = (&Request{Request: r}).ClientIP()
			}))

			// Act
			h.ServeHTTP(httptest.NewRecorder(), req)

			// Assert
			if got != tt.want {
				t.Fatalf("client ip = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	// Arrange
	ro := newTestRouter(t, stubJWT{}, nil)
	ro.POST("/api/v1/auth/otp/request", func(*Request) (any, error) { return nil, nil })
	rec := httptest.NewRecorder()

	// Act
	ro.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/auth/otp/request", nil))

	// Assert
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
	if body := decodeEnvelope(t, rec); body["message"] != "Method not allowed" {
		t.Fatalf("unexpected body: %v", body)
	}
}
