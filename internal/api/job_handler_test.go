package api

import (
	"net/http"
	"testing"

	"jobboard/internal/database"
)

func TestPostJobValidation(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.register("Rita", "rita@example.com", database.RoleRecruiter)

	expectFailure(t, s.do(http.MethodPost, "/job/post", map[string]any{"title": "Only a title"}, token),
		http.StatusBadRequest, "Missing job fields")

	rec := s.do(http.MethodPost, "/job/post", map[string]any{
		"title": "Go Dev", "description": "d", "requirements": []string{"go"}, "salary": "1",
		"location": "x", "jobType": "y", "experience": 1, "position": "1", "companyId": 42,
	}, token)
	expectFailure(t, rec, http.StatusNotFound, "Company not found")
}

func TestListJobsKeywordFilter(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.register("Rita", "rita@example.com", database.RoleRecruiter)
	s.postCompanyAndJob(token, "Acme", "Backend Engineer")
	s.postCompanyAndJob(token, "Globex", "Product Designer")

	cases := []struct {
		query string
		want  int
	}{
		{"", 2},
		{"?keyword=backend", 1},
		{"?keyword=DESIGNER", 1},
		{"?keyword=services", 2},
		{"?keyword=100%25", 0},
		{"?keyword=nothing", 0},
	}
	for _, tc := range cases {
		rec := s.do(http.MethodGet, "/job/get"+tc.query, nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%q: status %d body %s", tc.query, rec.Code, rec.Body.String())
		}
		jobs := decodeBody(t, rec)["jobs"].([]any)
		if len(jobs) != tc.want {
			t.Fatalf("%q: got %d jobs, want %d", tc.query, len(jobs), tc.want)
		}
	}

	rec := s.do(http.MethodGet, "/job/get?keyword=backend", nil, "")
	job := decodeBody(t, rec)["jobs"].([]any)[0].(map[string]any)
	if job["company"].(map[string]any)["name"] != "Acme" {
		t.Fatalf("company not expanded: %v", job)
	}
	if job["created_by"].(map[string]any)["fullname"] != "Rita" {
		t.Fatalf("creator not expanded: %v", job)
	}
}

func TestGetJobIncludesApplications(t *testing.T) {
	s := newTestServer(t)
	recruiterToken, _ := s.register("Rita", "rita@example.com", database.RoleRecruiter)
	studentToken, _ := s.register("Sam", "sam@example.com", database.RoleStudent)
	jobID := s.postCompanyAndJob(recruiterToken, "Acme", "Backend Engineer")

	rec := s.do(http.MethodGet, idPath("/job/get/", jobID), nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	if apps := decodeBody(t, rec)["job"].(map[string]any)["applications"].([]any); len(apps) != 0 {
		t.Fatalf("expected no applications, got %d", len(apps))
	}

	s.do(http.MethodGet, idPath("/application/apply/", jobID), nil, studentToken)

	rec = s.do(http.MethodGet, idPath("/job/get/", jobID), nil, "")
	job := decodeBody(t, rec)["job"].(map[string]any)
	apps := job["applications"].([]any)
	if len(apps) != 1 {
		t.Fatalf("expected 1 application, got %d", len(apps))
	}
	if apps[0].(map[string]any)["applicant"].(map[string]any)["email"] != "sam@example.com" {
		t.Fatalf("applicant not expanded: %v", apps[0])
	}
	if reqs := job["requirements"].([]any); len(reqs) != 2 {
		t.Fatalf("requirements = %v", reqs)
	}

	expectFailure(t, s.do(http.MethodGet, "/job/get/999", nil, ""), http.StatusNotFound, "Job not found")
	expectFailure(t, s.do(http.MethodGet, "/job/get/x", nil, ""), http.StatusBadRequest, "Invalid job ID")
}

func TestAdminJobCount(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.register("Rita", "rita@example.com", database.RoleRecruiter)
	other, _ := s.register("Otto", "otto@example.com", database.RoleRecruiter)
	s.postCompanyAndJob(token, "Acme", "Backend Engineer")
	s.postCompanyAndJob(token, "Globex", "Frontend Engineer")
	s.postCompanyAndJob(other, "Initech", "QA Engineer")

	rec := s.do(http.MethodGet, "/job/getadminjobs", nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	if total := decodeBody(t, rec)["totalJobs"]; total != float64(2) {
		t.Fatalf("totalJobs = %v, want 2", total)
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Fatalf("escapeLike = %q", got)
	}
}
