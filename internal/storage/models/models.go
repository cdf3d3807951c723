package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Candidate 候选人主表。primary_email 是唯一的合并键（已规范化为小写裁剪形式）。
type Candidate struct {
	CandidateID          string    `gorm:"type:char(36);primaryKey"`
	Name                 string    `gorm:"type:varchar(255)"`
	Phone                string    `gorm:"type:varchar(50)"`
	PrimaryEmail         string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_candidates_primary_email_unique"`
	CurrentLocation      string    `gorm:"type:varchar(255)"`
	CareerLevel          string    `gorm:"type:varchar(100)"`
	TotalExperienceYears float64   `gorm:"type:float"`
	ExpectedSalary       string    `gorm:"type:varchar(100)"`
	ProfileSummary       string    `gorm:"type:text"`
	ResumeLanguage       string    `gorm:"type:varchar(10)"`
	CreatedAt            time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt            time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Candidate) TableName() string {
	return "candidates"
}

// CandidateSkill 候选人技能子表，随每次重新抽取整代替换
type CandidateSkill struct {
	ID          uint64  `gorm:"primaryKey;autoIncrement"`
	CandidateID string  `gorm:"type:char(36);not null;index:idx_cs_candidate_id"`
	SkillName   string  `gorm:"type:varchar(255);not null"`
	Proficiency string  `gorm:"type:varchar(50)"`
	Years       float64 `gorm:"type:float"`

	Candidate *Candidate `gorm:"foreignKey:CandidateID;references:CandidateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (CandidateSkill) TableName() string {
	return "candidate_skills"
}

// CandidateWorkExperience 候选人工作经历子表
type CandidateWorkExperience struct {
	ID             uint64     `gorm:"primaryKey;autoIncrement"`
	CandidateID    string     `gorm:"type:char(36);not null;index:idx_cwe_candidate_id"`
	CompanyName    string     `gorm:"type:varchar(255)"`
	Position       string     `gorm:"type:varchar(255)"`
	StartDate      *time.Time `gorm:"type:date"`
	EndDate        *time.Time `gorm:"type:date"`
	IsCurrent      bool       `gorm:"default:false"`
	DurationMonths int        `gorm:"type:int"` // 已夹取到 [0, 600]
	Description    string     `gorm:"type:text"`
	SortOrder      int        `gorm:"type:int"` // 简历中的出现顺序

	Candidate *Candidate `gorm:"foreignKey:CandidateID;references:CandidateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (CandidateWorkExperience) TableName() string {
	return "candidate_work_experiences"
}

// CandidateEducation 候选人教育经历子表
type CandidateEducation struct {
	ID          uint64     `gorm:"primaryKey;autoIncrement"`
	CandidateID string     `gorm:"type:char(36);not null;index:idx_ce_candidate_id"`
	Institution string     `gorm:"type:varchar(255)"`
	Degree      string     `gorm:"type:varchar(100)"`
	Major       string     `gorm:"type:varchar(255)"`
	StartDate   *time.Time `gorm:"type:date"`
	EndDate     *time.Time `gorm:"type:date"`
	SortOrder   int        `gorm:"type:int"`

	Candidate *Candidate `gorm:"foreignKey:CandidateID;references:CandidateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (CandidateEducation) TableName() string {
	return "candidate_educations"
}

// CandidateProject 候选人项目经历子表
type CandidateProject struct {
	ID            uint64         `gorm:"primaryKey;autoIncrement"`
	CandidateID   string         `gorm:"type:char(36);not null;index:idx_cp_candidate_id"`
	ProjectName   string         `gorm:"type:varchar(255)"`
	Role          string         `gorm:"type:varchar(255)"`
	Description   string         `gorm:"type:text"`
	TechStackJSON datatypes.JSON `gorm:"type:json"`

	Candidate *Candidate `gorm:"foreignKey:CandidateID;references:CandidateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (CandidateProject) TableName() string {
	return "candidate_projects"
}

// CandidateCertification 候选人证书子表
type CandidateCertification struct {
	ID          uint64     `gorm:"primaryKey;autoIncrement"`
	CandidateID string     `gorm:"type:char(36);not null;index:idx_cc_candidate_id"`
	CertName    string     `gorm:"type:varchar(255)"`
	Issuer      string     `gorm:"type:varchar(255)"`
	IssueDate   *time.Time `gorm:"type:date"`

	Candidate *Candidate `gorm:"foreignKey:CandidateID;references:CandidateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (CandidateCertification) TableName() string {
	return "candidate_certifications"
}

// CandidateLanguage 候选人语言能力子表
type CandidateLanguage struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	CandidateID  string `gorm:"type:char(36);not null;index:idx_cl_candidate_id"`
	LanguageName string `gorm:"type:varchar(100)"`
	Proficiency  string `gorm:"type:varchar(100)"`

	Candidate *Candidate `gorm:"foreignKey:CandidateID;references:CandidateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (CandidateLanguage) TableName() string {
	return "candidate_languages"
}

// Job 岗位信息表
type Job struct {
	JobID               string         `gorm:"type:char(36);primaryKey"`
	Title               string         `gorm:"type:varchar(255);not null"`
	Location            string         `gorm:"type:varchar(255)"`
	JobType             string         `gorm:"type:varchar(50)"` // full-time / part-time / contract
	Description         string         `gorm:"type:text"`
	RequiredSkillsJSON  datatypes.JSON `gorm:"type:json"`
	PreferredSkillsJSON datatypes.JSON `gorm:"type:json"`
	MinExperienceYears  float64        `gorm:"type:float"`
	MaxExperienceYears  float64        `gorm:"type:float"`
	SalaryMin           int            `gorm:"type:int"`
	SalaryMax           int            `gorm:"type:int"`
	Status              string         `gorm:"type:varchar(50);default:'ACTIVE';index:idx_jobs_status"`
	CreatedAt           time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt           time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Job) TableName() string {
	return "jobs"
}

// Resume 简历提交表。每次抽取请求一行；失败的行保留原文路径以便重试。
type Resume struct {
	SubmissionUUID   string    `gorm:"type:char(36);primaryKey"`
	CandidateID      *string   `gorm:"type:char(36);index:idx_resumes_candidate_id"`
	RawTextPathOSS   string    `gorm:"type:varchar(1024)"` // MinIO中的原文对象路径
	RawTextMD5       string    `gorm:"type:char(32);index:idx_resumes_raw_text_md5"`
	ProcessingStatus string    `gorm:"type:varchar(50);default:'PENDING';index:idx_resumes_processing_status"`
	ErrorMessage     string    `gorm:"type:text"`
	CreatedAt        time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt        time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Candidate *Candidate `gorm:"foreignKey:CandidateID;references:CandidateID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (Resume) TableName() string {
	return "resumes"
}

// ChatConversation 会话轮次表，写入后不可变
type ChatConversation struct {
	TurnID              string         `gorm:"type:char(36);primaryKey"`
	SessionID           string         `gorm:"type:varchar(128);index:idx_cc_session_id"`
	UserID              string         `gorm:"type:varchar(128)"`
	QueryText           string         `gorm:"type:text"`
	ContextChars        int            `gorm:"type:int"` // 注入提示词的数据上下文长度
	ResponseText        string         `gorm:"type:text"`
	Language            string         `gorm:"type:varchar(10)"`
	MatchedCandidateIDs datatypes.JSON `gorm:"type:json"` // 接地校验通过的候选人ID列表
	MatchedJobIDs       datatypes.JSON `gorm:"type:json"`
	ModelName           string         `gorm:"type:varchar(100)"`
	LatencyMS           int64          `gorm:"type:bigint"`
	Failed              bool           `gorm:"default:false"`
	CreatedAt           time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
}

func (ChatConversation) TableName() string {
	return "chat_conversations"
}

// Setting 键值设置表，供 SettingProvider 消费
type Setting struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	SettingKey   string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_settings_key_unique"`
	SettingValue string    `gorm:"type:text"`
	UpdatedAt    time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Setting) TableName() string {
	return "settings"
}

// StringSliceToJSON Helper function to convert []string to datatypes.JSON
func StringSliceToJSON(s []string) (datatypes.JSON, error) {
	if s == nil {
		s = []string{}
	}
	bytes, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}

// JSONToStringSlice Helper function to decode a datatypes.JSON string array
func JSONToStringSlice(j datatypes.JSON) []string {
	if len(j) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(j, &out); err != nil {
		return nil
	}
	return out
}
