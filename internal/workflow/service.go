package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"jobboard/internal/database"
	"jobboard/internal/errcode"
	"jobboard/internal/metrics"
)

// 通知事件类型，与 tasks 包中的任务类型保持一致。
const (
	EventApplicationCreated = "application:created"
	EventStatusChanged      = "application:status_changed"
)

// Notifier 投递异步通知。失败只记录日志，不影响请求结果。
type Notifier interface {
	Notify(ctx context.Context, event string, applicationID uint) error
}

// Service 负责投递的创建、查询与状态变更。
type Service struct {
	db       *gorm.DB
	notifier Notifier
	logger   *slog.Logger
}

// NewService 构造 Service，notifier 可以为 nil。
func NewService(db *gorm.DB, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, notifier: notifier, logger: logger}
}

// Apply 为 applicantID 创建对 rawJobID 的投递。
// resumeLink 为空时回退到求职者资料中的简历链接。
func (s *Service) Apply(ctx context.Context, applicantID uint, rawJobID, resumeLink string) (*database.Application, error) {
	jobID, err := ParseID(rawJobID, "Job")
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	var applicant database.User
	if err := db.First(&applicant, applicantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.Unauthorized("User not found")
		}
		return nil, errcode.Internalf(err, "load applicant %d", applicantID)
	}

	var existing database.Application
	err = db.Where("job_id = ? AND applicant_id = ?", jobID, applicantID).Take(&existing).Error
	switch {
	case err == nil:
		return nil, errAlreadyApplied()
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, errcode.Internalf(err, "check existing application")
	}

	var job database.Job
	if err := db.Select("id").First(&job, jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.Missing("Job not found")
		}
		return nil, errcode.Internalf(err, "load job %d", jobID)
	}

	link, err := s.resolveResumeLink(ctx, applicantID, resumeLink)
	if err != nil {
		return nil, err
	}

	app := database.Application{
		JobID:       jobID,
		ApplicantID: applicantID,
		ResumeLink:  link,
		Status:      string(StatusPending),
	}
	if err := db.Create(&app).Error; err != nil {
		// 并发重复投递由唯一索引兜底。
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errAlreadyApplied()
		}
		return nil, errcode.Internalf(err, "create application")
	}

	metrics.ApplicationCreated()
	s.notify(ctx, EventApplicationCreated, app.ID)

	return &app, nil
}

func errAlreadyApplied() *errcode.Error {
	return errcode.Duplicate("Already applied for this job")
}

func (s *Service) resolveResumeLink(ctx context.Context, applicantID uint, explicit string) (string, error) {
	if link := strings.TrimSpace(explicit); link != "" {
		return link, nil
	}

	var profile database.Profile
	err := s.db.WithContext(ctx).Select("resume_link").Where("user_id = ?", applicantID).Take(&profile).Error
	switch {
	case err == nil:
		return profile.ResumeLink, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", nil
	default:
		return "", errcode.Internalf(err, "load profile for user %d", applicantID)
	}
}

// ListByApplicant 返回求职者的全部投递（新的在前），附带职位与公司。
func (s *Service) ListByApplicant(ctx context.Context, applicantID uint) ([]database.Application, error) {
	apps := []database.Application{}
	if err := s.db.WithContext(ctx).
		Where("applicant_id = ?", applicantID).
		Scopes(database.ByNewest).
		Preload("Job.Company").
		Find(&apps).Error; err != nil {
		return nil, errcode.Internalf(err, "list applications of user %d", applicantID)
	}
	return apps, nil
}

// ListByJob 返回某职位的全部投递（新的在前），附带求职者信息。
func (s *Service) ListByJob(ctx context.Context, rawJobID string) ([]database.Application, error) {
	jobID, err := ParseID(rawJobID, "Job")
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	var job database.Job
	if err := db.Select("id").First(&job, jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.Missing("Job not found")
		}
		return nil, errcode.Internalf(err, "load job %d", jobID)
	}

	apps := []database.Application{}
	if err := db.
		Where("job_id = ?", jobID).
		Scopes(database.ByNewest).
		Preload("Applicant").
		Find(&apps).Error; err != nil {
		return nil, errcode.Internalf(err, "list applicants of job %d", jobID)
	}
	return apps, nil
}

// ListByRecruiter 先取招聘者发布的职位 ID，再取这些职位下的全部投递。
func (s *Service) ListByRecruiter(ctx context.Context, recruiterID uint) ([]database.Application, error) {
	db := s.db.WithContext(ctx)

	var jobIDs []uint
	if err := db.Model(&database.Job{}).Where("created_by_id = ?", recruiterID).Pluck("id", &jobIDs).Error; err != nil {
		return nil, errcode.Internalf(err, "list jobs of recruiter %d", recruiterID)
	}

	apps := []database.Application{}
	if len(jobIDs) == 0 {
		return apps, nil
	}

	if err := db.
		Where("job_id IN ?", jobIDs).
		Scopes(database.ByNewest).
		Preload("Job.Company").
		Preload("Applicant").
		Find(&apps).Error; err != nil {
		return nil, errcode.Internalf(err, "list applications of recruiter %d", recruiterID)
	}
	return apps, nil
}

// UpdateStatus 覆盖投递状态，不保留历史；重复设置同一状态是幂等的。
func (s *Service) UpdateStatus(ctx context.Context, rawApplicationID, rawStatus string) (*database.Application, error) {
	if strings.TrimSpace(rawStatus) == "" {
		return nil, errcode.Invalid("Status is required")
	}
	status, ok := ParseStatus(rawStatus)
	if !ok {
		return nil, errcode.Invalid("Invalid status value")
	}

	applicationID, err := ParseID(rawApplicationID, "Application")
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	var app database.Application
	if err := db.First(&app, applicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.Missing("Application not found")
		}
		return nil, errcode.Internalf(err, "load application %d", applicationID)
	}

	app.Status = string(status)
	if err := db.Model(&app).Update("status", app.Status).Error; err != nil {
		return nil, errcode.Internalf(err, "update application %d", applicationID)
	}

	metrics.StatusChanged(string(status))
	s.notify(ctx, EventStatusChanged, app.ID)

	return &app, nil
}

func (s *Service) notify(ctx context.Context, event string, applicationID uint) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event, applicationID); err != nil {
		s.logger.Warn("enqueue application event failed",
			slog.String("event", event),
			slog.Uint64("application_id", uint64(applicationID)),
			slog.Any("error", err),
		)
	}
}
