package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 用户角色。
const (
	RoleStudent   = "student"
	RoleRecruiter = "recruiter"
)

// Model 替代 gorm.Model，统一 JSON 字段名，且不暴露软删除字段。
type Model struct {
	ID        uint      `gorm:"primarykey" json:"_id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// User 表示系统中的账号信息，角色在注册后不可修改。
type User struct {
	Model
	FullName     string `gorm:"size:128" json:"fullname"`
	Email        string `gorm:"uniqueIndex;size:255" json:"email"`
	PhoneNumber  string `gorm:"size:32" json:"phoneNumber"`
	PasswordHash string `gorm:"size:255" json:"-"`
	Role         string `gorm:"size:16;index" json:"role"`
}

// Company 表示招聘方注册的公司。
type Company struct {
	Model
	Name        string `gorm:"uniqueIndex;size:255" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Website     string `gorm:"size:512" json:"website"`
	Location    string `gorm:"size:255" json:"location"`
	Logo        string `gorm:"size:512" json:"logo"`
	UserID      uint   `gorm:"index" json:"userId"`
	User        *User  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Job 表示一条职位。
// Applications 由 applications.job_id 反向关联得出，不单独存储 id 列表。
type Job struct {
	Model
	Title        string                      `gorm:"size:255" json:"title"`
	Description  string                      `gorm:"type:text" json:"description"`
	Requirements datatypes.JSONSlice[string] `json:"requirements"`
	Salary       string                      `gorm:"size:64" json:"salary"`
	Location     string                      `gorm:"size:255" json:"location"`
	JobType      string                      `gorm:"size:64" json:"jobType"`
	Experience   int                         `json:"experience"`
	Position     string                      `gorm:"size:255" json:"position"`
	CompanyID    uint                        `gorm:"index" json:"companyId"`
	Company      *Company                    `json:"company,omitempty"`
	CreatedByID  uint                        `gorm:"index" json:"createdById"`
	CreatedBy    *User                       `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	Applications []Application               `json:"applications"`
}

// Application 表示求职者对某个职位的一次投递。
// (job_id, applicant_id) 上的唯一索引保证同一求职者对同一职位至多一条记录。
type Application struct {
	Model
	JobID       uint   `gorm:"uniqueIndex:idx_applications_job_applicant;not null" json:"jobId"`
	Job         *Job   `gorm:"constraint:OnDelete:CASCADE" json:"job,omitempty"`
	ApplicantID uint   `gorm:"uniqueIndex:idx_applications_job_applicant;index;not null" json:"applicantId"`
	Applicant   *User  `gorm:"foreignKey:ApplicantID;constraint:OnDelete:CASCADE" json:"applicant,omitempty"`
	ResumeLink  string `gorm:"size:512" json:"resumeLink"`
	Status      string `gorm:"size:32;default:pending" json:"status"`
}

// Profile 表示求职者的扩展资料，与 User 一对一。
type Profile struct {
	Model
	UserID      uint                        `gorm:"uniqueIndex;not null" json:"user"`
	FullName    string                      `gorm:"size:128" json:"fullName"`
	Email       string                      `gorm:"size:255" json:"email"`
	PhoneNumber string                      `gorm:"size:32" json:"phoneNumber"`
	Skills      datatypes.JSONSlice[string] `json:"skills"`
	Experience  string                      `gorm:"size:64" json:"experience"`
	Education   string                      `gorm:"type:text" json:"education"`
	ResumeLink  string                      `gorm:"size:512" json:"resumeLink"`
	Bio         string                      `gorm:"type:text" json:"bio"`
	Location    string                      `gorm:"size:255" json:"location"`
	LinkedIn    string                      `gorm:"size:512" json:"linkedin"`
	GitHub      string                      `gorm:"size:512" json:"github"`
	Portfolio   string                      `gorm:"size:512" json:"portfolio"`
}

// ByNewest 按创建时间倒序，时间相同时按主键倒序。
func ByNewest(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC").Order("id DESC")
}
