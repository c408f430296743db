package api

import (
	"net/http"
	"strings"
	"testing"

	"jobboard/internal/database"
)

func TestApplyTwiceReturnsConflict(t *testing.T) {
	s := newTestServer(t)
	recruiterToken, _ := s.register("Rita", "rita@example.com", database.RoleRecruiter)
	studentToken, _ := s.register("Sam", "sam@example.com", database.RoleStudent)
	jobID := s.postCompanyAndJob(recruiterToken, "Acme", "Backend Engineer")

	rec := s.do(http.MethodGet, idPath("/application/apply/", jobID), nil, studentToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first apply: status %d body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["success"] != true || body["message"] != "Job applied successfully." {
		t.Fatalf("unexpected body: %v", body)
	}
	if status := body["application"].(map[string]any)["status"]; status != "pending" {
		t.Fatalf("status = %v, want pending", status)
	}

	rec = s.do(http.MethodGet, idPath("/application/apply/", jobID), nil, studentToken)
	expectFailure(t, rec, http.StatusConflict, "")
	if msg, _ := decodeBody(t, rec)["message"].(string); !strings.Contains(msg, "Already applied") {
		t.Fatalf("message = %q", msg)
	}

	var count int64
	s.db.Model(&database.Application{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 application, got %d", count)
	}
}

func TestApplyWithPostedResumeLink(t *testing.T) {
	s := newTestServer(t)
	recruiterToken, _ := s.register("Rita", "rita@example.com", database.RoleRecruiter)
	studentToken, _ := s.register("Sam", "sam@example.com", database.RoleStudent)
	jobID := s.postCompanyAndJob(recruiterToken, "Acme", "Backend Engineer")

	rec := s.do(http.MethodPost, idPath("/application/apply/", jobID), map[string]string{"resumeLink": "https://cv.example.com/sam.pdf"}, studentToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("apply: status %d body %s", rec.Code, rec.Body.String())
	}
	app := decodeBody(t, rec)["application"].(map[string]any)
	if app["resumeLink"] != "https://cv.example.com/sam.pdf" {
		t.Fatalf("resumeLink = %v", app["resumeLink"])
	}
}

func TestApplyErrors(t *testing.T) {
	s := newTestServer(t)
	studentToken, _ := s.register("Sam", "sam@example.com", database.RoleStudent)

	expectFailure(t, s.do(http.MethodGet, "/application/apply/abc", nil, studentToken), http.StatusBadRequest, "Invalid job ID")
	expectFailure(t, s.do(http.MethodGet, "/application/apply/999", nil, studentToken), http.StatusNotFound, "Job not found")
	expectFailure(t, s.do(http.MethodGet, "/application/apply/1", nil, ""), http.StatusUnauthorized, "User not authenticated")
}

func TestApplicantsForMissingJob(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.register("Rita", "rita@example.com", database.RoleRecruiter)

	expectFailure(t, s.do(http.MethodGet, "/application/applicants/999", nil, token), http.StatusNotFound, "Job not found")
}

func TestRecruiterWithoutJobsGetsEmptyList(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.register("Rita", "rita@example.com", database.RoleRecruiter)

	rec := s.do(http.MethodGet, "/application/recruiter", nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	apps, ok := decodeBody(t, rec)["applications"].([]any)
	if !ok || len(apps) != 0 {
		t.Fatalf("expected empty list, got %v", decodeBody(t, rec)["applications"])
	}
}

func TestApplicationWorkflowEndToEnd(t *testing.T) {
	s := newTestServer(t)
	recruiterToken, _ := s.register("Rita", "rita@example.com", database.RoleRecruiter)
	studentToken, studentID := s.register("Sam", "sam@example.com", database.RoleStudent)
	jobID := s.postCompanyAndJob(recruiterToken, "Acme", "Backend Engineer")

	rec := s.do(http.MethodGet, idPath("/application/apply/", jobID), nil, studentToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("apply: status %d body %s", rec.Code, rec.Body.String())
	}
	appID := uint(decodeBody(t, rec)["application"].(map[string]any)["_id"].(float64))

	rec = s.do(http.MethodGet, idPath("/application/applicants/", jobID), nil, recruiterToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("applicants: status %d body %s", rec.Code, rec.Body.String())
	}
	apps := decodeBody(t, rec)["applications"].([]any)
	if len(apps) != 1 {
		t.Fatalf("expected 1 applicant, got %d", len(apps))
	}
	applicant := apps[0].(map[string]any)["applicant"].(map[string]any)
	if uint(applicant["_id"].(float64)) != studentID {
		t.Fatalf("unexpected applicant %v", applicant)
	}
	if _, leaked := applicant["passwordHash"]; leaked {
		t.Fatal("password hash must not be serialised")
	}

	rec = s.do(http.MethodGet, "/application/recruiter", nil, recruiterToken)
	if got := len(decodeBody(t, rec)["applications"].([]any)); got != 1 {
		t.Fatalf("recruiter view: expected 1, got %d", got)
	}

	expectFailure(t, s.do(http.MethodPut, idPath("/application/status/", appID), map[string]string{"status": "hired"}, recruiterToken),
		http.StatusBadRequest, "Invalid status value")
	expectFailure(t, s.do(http.MethodPut, idPath("/application/status/", appID), map[string]string{}, recruiterToken),
		http.StatusBadRequest, "Status is required")
	expectFailure(t, s.do(http.MethodPut, "/application/status/999", map[string]string{"status": "rejected"}, recruiterToken),
		http.StatusNotFound, "Application not found")

	rec = s.do(http.MethodPut, idPath("/application/status/", appID), map[string]string{"status": "Shortlisted"}, recruiterToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status: status %d body %s", rec.Code, rec.Body.String())
	}
	if status := decodeBody(t, rec)["application"].(map[string]any)["status"]; status != "shortlisted" {
		t.Fatalf("status = %v, want shortlisted", status)
	}

	rec = s.do(http.MethodGet, "/application/get", nil, studentToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("my applications: status %d body %s", rec.Code, rec.Body.String())
	}
	mine := decodeBody(t, rec)["applications"].([]any)
	if len(mine) != 1 {
		t.Fatalf("expected 1 application, got %d", len(mine))
	}
	app := mine[0].(map[string]any)
	if app["status"] != "shortlisted" {
		t.Fatalf("status = %v", app["status"])
	}
	job := app["job"].(map[string]any)
	if job["title"] != "Backend Engineer" || job["company"].(map[string]any)["name"] != "Acme" {
		t.Fatalf("unexpected job expansion %v", job)
	}
}
