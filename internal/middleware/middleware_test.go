package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/slot-reservation/internal/config"
	"github.com/iliyamo/slot-reservation/internal/utils"
)

const testSecret = "test-secret"

func newProtected(roles ...string) *echo.Echo {
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		return c.String(http.StatusOK, UserID(c)+"/"+Role(c))
	}, JWTAuth(testSecret), RequireRole(roles...))
	return e
}

func bearer(t *testing.T, secret, sub, role string, ttl time.Duration) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, sub, role, ttl)
	if err != nil {
		t.Fatalf("NewAccessToken failed: %v", err)
	}
	return "Bearer " + tok.Token
}

func TestJWTAuthAndRole(t *testing.T) {
	cases := []struct {
		name   string
		auth   string
		status int
		body   string
	}{
		{"valid customer", bearer(t, testSecret, "cust-1", RoleCustomer, time.Hour), http.StatusOK, "cust-1/CUSTOMER"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong secret", bearer(t, "other", "cust-1", RoleCustomer, time.Hour), http.StatusUnauthorized, ""},
		{"expired", bearer(t, testSecret, "cust-1", RoleCustomer, -time.Minute), http.StatusUnauthorized, ""},
		{"no subject", bearer(t, testSecret, "", RoleCustomer, time.Hour), http.StatusUnauthorized, ""},
		{"wrong role", bearer(t, testSecret, "m-1", RoleMerchant, time.Hour), http.StatusForbidden, ""},
	}
	e := newProtected(RoleCustomer)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.status, rec.Body.String())
			}
			if tc.body != "" && rec.Body.String() != tc.body {
				t.Fatalf("body = %q, want %q", rec.Body.String(), tc.body)
			}
		})
	}
}

func TestDisabledMiddlewaresPassThrough(t *testing.T) {
	cache := NewAvailabilityCache(config.CacheConfig{Enabled: true}, nil, nil)
	limiter := NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, nil)

	e := echo.New()
	calls := 0
	e.GET("/v1/stores/:storeID/availability", func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "ok")
	}, cache.Middleware(), limiter)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/stores/1/availability", nil))
		if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "" {
			t.Fatalf("unexpected response %d %v", rec.Code, rec.Header())
		}
	}
	if calls != 2 {
		t.Fatalf("handler should run on every request, ran %d times", calls)
	}
	if err := cache.Invalidate(httptest.NewRequest(http.MethodGet, "/", nil).Context(), 1); err != nil {
		t.Fatalf("Invalidate on a disabled cache failed: %v", err)
	}
}

func TestPayloadCodec(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"days":[]}`))
	if err != nil {
		t.Fatalf("encodePayload failed: %v", err)
	}
	status, got, body, ok := decodePayload(bs)
	if !ok || status != http.StatusOK || got.Get("Content-Type") != "application/json" || string(body) != `{"days":[]}` {
		t.Fatalf("decodePayload = %d %v %q %v", status, got, body, ok)
	}
	if _, _, _, ok := decodePayload(bs[:5]); ok {
		t.Fatalf("truncated payload must not decode")
	}
}

func TestCaptureWriterOverflow(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, _ = cw.Write([]byte("abc"))
	_, _ = cw.Write([]byte("def"))
	if !cw.overflowed || cw.buf.Len() != 0 {
		t.Fatalf("oversized body should be dropped from the capture")
	}
	if !bytes.Equal(rec.Body.Bytes(), []byte("abcdef")) {
		t.Fatalf("client must still receive the full body, got %q", rec.Body.String())
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/bookings")
	c.Set(ctxUserID, "cust-1")

	cases := map[string]string{
		"ip":         "rl:ip:10.0.0.1",
		"user_route": "rl:user:cust-1:route:POST /v1/bookings",
		"":           "rl:ip:10.0.0.1:user:cust-1:route:POST /v1/bookings",
	}
	for strategy, want := range cases {
		got := buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}, c)
		if got != want {
			t.Fatalf("strategy %q: key = %q, want %q", strategy, got, want)
		}
	}
}
