package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"jobboard/internal/database"
)

func TestRegisterSetsCookieAndRejectsDuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodPost, "/user/register", map[string]string{
		"fullname": "Sam", "email": "Sam@Example.com", "phoneNumber": "1", "password": "secret123", "role": "student",
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	cookie := tokenCookie(rec)
	if cookie == nil || !cookie.HttpOnly || cookie.SameSite != http.SameSiteStrictMode {
		t.Fatalf("unexpected cookie %+v", cookie)
	}
	if strings.Contains(rec.Body.String(), "secret123") || strings.Contains(rec.Body.String(), "$2a$") {
		t.Fatal("password material leaked into response")
	}

	rec = s.do(http.MethodPost, "/user/register", map[string]string{
		"fullname": "Sam", "email": "sam@example.com", "phoneNumber": "1", "password": "secret123", "role": "student",
	}, "")
	expectFailure(t, rec, http.StatusConflict, "Email already exists")
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodPost, "/user/register", map[string]string{
		"fullname": "Ada", "email": "ada@example.com", "phoneNumber": "1", "password": "secret123", "role": "admin",
	}, "")
	expectFailure(t, rec, http.StatusBadRequest, "Some field is missing")
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	s.register("Rita", "rita@example.com", database.RoleRecruiter)

	cases := []struct {
		name     string
		body     map[string]string
		status   int
		message  string
		wantAuth bool
	}{
		{"ok", map[string]string{"email": "rita@example.com", "password": "secret123", "role": "recruiter"}, http.StatusOK, "Welcome back, Rita", true},
		{"wrong password", map[string]string{"email": "rita@example.com", "password": "nope", "role": "recruiter"}, http.StatusBadRequest, "Incorrect email or password", false},
		{"unknown email", map[string]string{"email": "who@example.com", "password": "secret123", "role": "recruiter"}, http.StatusBadRequest, "Incorrect email or password", false},
		{"wrong role", map[string]string{"email": "rita@example.com", "password": "secret123", "role": "student"}, http.StatusBadRequest, "", false},
		{"missing field", map[string]string{"email": "rita@example.com"}, http.StatusBadRequest, "Some field is missing", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/user/login", tc.body, "")
			if rec.Code != tc.status {
				t.Fatalf("status %d, want %d (body %s)", rec.Code, tc.status, rec.Body.String())
			}
			body := decodeBody(t, rec)
			if tc.message != "" && body["message"] != tc.message {
				t.Fatalf("message = %v, want %q", body["message"], tc.message)
			}
			if got := tokenCookie(rec) != nil; got != tc.wantAuth {
				t.Fatalf("cookie set = %v, want %v", got, tc.wantAuth)
			}
		})
	}

	rec := s.do(http.MethodPost, "/user/login", map[string]string{"email": "rita@example.com", "password": "secret123", "role": "student"}, "")
	if decodeBody(t, rec)["actualRole"] != "recruiter" {
		t.Fatalf("expected actualRole hint, got %s", rec.Body.String())
	}
}

func TestLogoutClearsCookieAndRevokesToken(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.register("Sam", "sam@example.com", database.RoleStudent)

	if rec := s.do(http.MethodGet, "/user/me", nil, token); rec.Code != http.StatusOK {
		t.Fatalf("me before logout: status %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/user/logout", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: status %d body %s", rec.Code, rec.Body.String())
	}
	if header := rec.Header().Get("Set-Cookie"); !strings.Contains(header, "token=;") || !strings.Contains(header, "Max-Age=0") {
		t.Fatalf("cookie not cleared: %q", header)
	}

	expectFailure(t, s.do(http.MethodGet, "/user/me", nil, token), http.StatusUnauthorized, "User not authenticated")
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/user/me", "/application/get", "/application/recruiter", "/job/getadminjobs", "/profile/me"} {
		expectFailure(t, s.do(http.MethodGet, path, nil, ""), http.StatusUnauthorized, "User not authenticated")
		expectFailure(t, s.do(http.MethodGet, path, nil, "not-a-jwt"), http.StatusUnauthorized, "User not authenticated")
	}
}

func TestUpdateAccount(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.register("Sam", "sam@example.com", database.RoleStudent)
	s.register("Ann", "ann@example.com", database.RoleStudent)

	rec := s.do(http.MethodPost, "/user/profile/update", map[string]any{"fullname": "Samuel", "skills": []string{"go"}}, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	user := decodeBody(t, rec)["user"].(map[string]any)
	if user["fullname"] != "Samuel" || user["email"] != "sam@example.com" {
		t.Fatalf("unexpected user %v", user)
	}

	rec = s.do(http.MethodPost, "/user/profile/update", map[string]any{"email": "ann@example.com"}, token)
	expectFailure(t, rec, http.StatusConflict, "Email already exists")
}

type memoryCounter struct {
	hits map[string]int64
}

func (m *memoryCounter) Incr(_ context.Context, key string) *redis.IntCmd {
	if m.hits == nil {
		m.hits = map[string]int64{}
	}
	m.hits[key]++
	return redis.NewIntResult(m.hits[key], nil)
}

func (m *memoryCounter) Expire(_ context.Context, _ string, _ time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(true, nil)
}

func TestLoginRateLimit(t *testing.T) {
	h := &AuthHandler{rateCounter: &memoryCounter{}, loginRateLimitPerHour: 2}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if h.loginRateLimited(ctx, "1.2.3.4", "sam@example.com") {
			t.Fatalf("attempt %d limited too early", i+1)
		}
	}
	if !h.loginRateLimited(ctx, "1.2.3.4", "sam@example.com") {
		t.Fatal("third attempt should be limited")
	}
	if h.loginRateLimited(ctx, "1.2.3.4", "ann@example.com") {
		t.Fatal("limit must be per email")
	}
}
