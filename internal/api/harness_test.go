package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"jobboard/internal/auth"
	"jobboard/internal/config"
	"jobboard/internal/database"
	"jobboard/internal/workflow"
)

type fakeStorage struct {
	uploaded map[string][]byte
	deleted  []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploaded: map[string][]byte{}}
}

func (s *fakeStorage) UploadFile(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) (*minio.UploadInfo, error) {
	b, _ := io.ReadAll(reader)
	s.uploaded[objectName] = b
	return &minio.UploadInfo{Key: objectName}, nil
}

func (s *fakeStorage) GeneratePresignedURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return "https://example.invalid/" + objectKey, nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, objectKey string) error {
	s.deleted = append(s.deleted, objectKey)
	delete(s.uploaded, objectKey)
	return nil
}

type fakeRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func (r *fakeRevocations) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.revoked == nil {
		r.revoked = map[string]time.Time{}
	}
	r.revoked[tokenID] = expiresAt
	return nil
}

func (r *fakeRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.revoked[tokenID]
	return ok, nil
}

type testServer struct {
	t           *testing.T
	router      *gin.Engine
	db          *gorm.DB
	storage     *fakeStorage
	revocations *fakeRevocations
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "api.db")), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	authService, err := auth.NewAuthService([]byte("test-secret"), time.Hour)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	storage := newFakeStorage()
	revocations := &fakeRevocations{}

	router := NewRouter(config.APIConfig{AllowedOrigins: "http://localhost:5173"}, logger)
	RegisterRoutes(router, Deps{
		DB:          db,
		AuthService: authService,
		Revocations: revocations,
		Workflow:    workflow.NewService(db, nil, logger),
		Storage:     storage,
		Logger:      logger,
	})

	return &testServer{t: t, router: router, db: db, storage: storage, revocations: revocations}
}

func (s *testServer) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// register 注册账号并返回会话令牌与用户 ID。
func (s *testServer) register(name, email, role string) (string, uint) {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/user/register", map[string]string{
		"fullname":    name,
		"email":       email,
		"phoneNumber": "5550100",
		"password":    "secret123",
		"role":        role,
	}, "")
	if rec.Code != http.StatusCreated {
		s.t.Fatalf("register %s: status %d body %s", email, rec.Code, rec.Body.String())
	}
	token := tokenCookie(rec)
	if token == nil || token.Value == "" {
		s.t.Fatalf("register %s: no token cookie", email)
	}
	body := decodeBody(s.t, rec)
	user := body["user"].(map[string]any)
	return token.Value, uint(user["_id"].(float64))
}

func (s *testServer) postCompanyAndJob(token, company, title string) uint {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/company/register", map[string]string{"companyName": company}, token)
	if rec.Code != http.StatusCreated {
		s.t.Fatalf("register company: status %d body %s", rec.Code, rec.Body.String())
	}
	companyID := decodeBody(s.t, rec)["company"].(map[string]any)["_id"].(float64)

	rec = s.do(http.MethodPost, "/job/post", map[string]any{
		"title":        title,
		"description":  "Build " + title + " services",
		"requirements": []string{"Go", "SQL"},
		"salary":       "120k",
		"location":     "Remote",
		"jobType":      "Full-time",
		"experience":   0,
		"position":     "2",
		"companyId":    companyID,
	}, token)
	if rec.Code != http.StatusCreated {
		s.t.Fatalf("post job: status %d body %s", rec.Code, rec.Body.String())
	}
	return uint(decodeBody(s.t, rec)["job"].(map[string]any)["_id"].(float64))
}

func tokenCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "token" {
			return c
		}
	}
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func expectFailure(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["success"] != false {
		t.Fatalf("expected success=false, got %v", body["success"])
	}
	if message != "" && body["message"] != message {
		t.Fatalf("message = %v, want %q", body["message"], message)
	}
}

func idPath(prefix string, id uint) string {
	return prefix + strconv.FormatUint(uint64(id), 10)
}

func newMultipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return body, writer.FormDataContentType()
}
