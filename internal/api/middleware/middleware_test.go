package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"jobboard/internal/auth"
	"jobboard/internal/tasks"
)

type stubValidator map[string]uint

func (v stubValidator) ValidateToken(token string) (*auth.TokenClaims, error) {
	id, ok := v[token]
	if !ok {
		return nil, errors.New("bad token")
	}
	return &auth.TokenClaims{UserID: id, RegisteredClaims: jwt.RegisteredClaims{ID: token}}, nil
}

type stubRevocations map[string]bool

func (r stubRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	return r[tokenID], nil
}

func newEngine(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CorrelationIDMiddleware())
	r.GET("/", mw, func(c *gin.Context) {
		id, _ := c.Get(userIDKey)
		c.JSON(http.StatusOK, gin.H{
			"user":        id,
			"correlation": tasks.CorrelationID(c.Request.Context()),
		})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	validator := stubValidator{"good": 7, "revoked": 8}
	revocations := stubRevocations{"revoked": true}
	r := newEngine(AuthMiddleware(validator, revocations))

	cases := []struct {
		name   string
		setup  func(*http.Request)
		status int
	}{
		{"no token", func(*http.Request) {}, http.StatusUnauthorized},
		{"cookie", func(req *http.Request) { req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: "good"}) }, http.StatusOK},
		{"bearer", func(req *http.Request) { req.Header.Set("Authorization", "Bearer good") }, http.StatusOK},
		{"invalid", func(req *http.Request) { req.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"revoked", func(req *http.Request) { req.Header.Set("Authorization", "Bearer revoked") }, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
		})
	}
}

func TestOptionalAuthMiddlewareAllowsAnonymous(t *testing.T) {
	r := newEngine(OptionalAuthMiddleware(stubValidator{}, nil))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCorrelationIDPropagation(t *testing.T) {
	r := newEngine(OptionalAuthMiddleware(stubValidator{}, nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(correlationIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get(correlationIDHeader); got != "abc-123" {
		t.Fatalf("header = %q", got)
	}
	if body := rec.Body.String(); !strings.Contains(body, `"correlation":"abc-123"`) {
		t.Fatalf("context id not propagated: %s", body)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get(correlationIDHeader) == "" {
		t.Fatal("expected generated correlation id")
	}
}
