package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"blood-donation-api/internal/core/auth"
	"blood-donation-api/internal/domain"
	"blood-donation-api/internal/transport/http/ez"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func message(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return body.Message
}

func TestAuth(t *testing.T) {
	v := &auth.LocalVerifier{Secret: []byte("k"), Issuer: "test", TTL: time.Minute}
	roles := func(_ context.Context, email string) (domain.Role, error) {
		switch email {
		case "admin@x.io":
			return domain.RoleAdmin, nil
		case "broken@x.io":
			return "", errors.New("db down")
		}
		return "", nil
	}
	r := gin.New()
	r.Use(Auth(v, roles, zap.NewNop()))
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"email": c.GetString(ez.KeyEmail), "role": c.GetString(ez.KeyRole)})
	})

	for name, header := range map[string]string{
		"missing":    "",
		"not bearer": "Basic abc",
		"garbage":    "Bearer nope",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := serve(r, req)
			if w.Code != http.StatusUnauthorized || message(t, w) != "unauthorize access" {
				t.Fatalf("got %d %s", w.Code, w.Body.String())
			}
		})
	}

	tok, _ := v.Issue("Admin@X.io")
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := serve(r, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"role":"admin"`) {
		t.Fatalf("valid token: %d %s", w.Code, w.Body.String())
	}

	tok, _ = v.Issue("broken@x.io")
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	if w := serve(r, req); w.Code != http.StatusInternalServerError {
		t.Fatalf("role lookup failure: %d", w.Code)
	}
}

func TestAccessLogRecordsCaller(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	v := &auth.LocalVerifier{Secret: []byte("k"), Issuer: "test", TTL: time.Minute}
	r := gin.New()
	r.Use(RequestID(), AccessLog(zap.New(core)), Auth(v, nil, zap.NewNop()))
	r.GET("/requests/:id", func(c *gin.Context) { c.JSON(http.StatusOK, nil) })

	tok, _ := v.Issue("Ann@X.io")
	req := httptest.NewRequest(http.MethodGet, "/requests/r1?session_id=cs_secret", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	if w := serve(r, req); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	entries := logs.FilterMessage("HTTP").All()
	if len(entries) != 1 {
		t.Fatalf("got %d access log entries", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["caller"] != "ann@x.io" || fields["uid"] != "Ann@X.io" || fields["path"] != "/requests/:id" {
		t.Fatalf("fields = %v", fields)
	}
	if fields["rid"] == "" {
		t.Fatal("missing request id")
	}
	q, _ := fields["query"].(map[string][]string)
	if len(q["session_id"]) != 1 || q["session_id"][0] != "****" {
		t.Fatalf("query = %v", fields["query"])
	}
}

func TestRateLimitPerIP(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitPerIP(0.001, 2, time.Minute))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		return serve(r, req).Code
	}
	for i := 0; i < 2; i++ {
		if code := hit("10.0.0.1"); code != http.StatusNoContent {
			t.Fatalf("request %d: %d", i, code)
		}
	}
	if code := hit("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("over burst: %d", code)
	}
	if code := hit("10.0.0.2"); code != http.StatusNoContent {
		t.Fatalf("other ip: %d", code)
	}
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(zap.NewNop()))
	r.GET("/boom", func(*gin.Context) { panic("boom") })
	w := serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError || message(t, w) != "internal error" {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(10 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) { <-c.Request.Context().Done() })
	w := serve(r, httptest.NewRequest(http.MethodGet, "/slow", nil))
	if w.Code != http.StatusGatewayTimeout || message(t, w) != "timeout" {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(KeyRequestID)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(KeyRequestID, "abc-123")
	if w := serve(r, req); w.Body.String() != "abc-123" || w.Header().Get(KeyRequestID) != "abc-123" {
		t.Fatalf("echo: %q", w.Body.String())
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(KeyRequestID, strings.Repeat("x", 200))
	if w := serve(r, req); len(w.Body.String()) != 36 {
		t.Fatalf("oversized id kept: %q", w.Body.String())
	}
}
