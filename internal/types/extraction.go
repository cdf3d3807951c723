package types

import "time"

// CandidateProfile 是模型输出经过字段清洗后的规范化中间表示。
// 这里的字段已经通过了宽松值提取与日期规范化，可以直接映射到数据库模型。
type CandidateProfile struct {
	Name                 string
	Phone                string
	Email                string // 已小写、已裁剪；可能是占位邮箱
	Location             string
	CareerLevel          string
	ExpectedSalary       string
	ProfileSummary       string
	ResumeLanguage       string
	TotalExperienceYears float64

	Skills          []SkillEntry
	WorkExperiences []WorkExperienceEntry
	Educations      []EducationEntry
	Projects        []ProjectEntry
	Certifications  []CertificationEntry
	Languages       []LanguageEntry
}

// SkillEntry 单项技能
type SkillEntry struct {
	Name        string
	Proficiency string
	Years       float64
}

// WorkExperienceEntry 单段工作经历
type WorkExperienceEntry struct {
	Company        string
	Position       string
	StartDate      *time.Time
	EndDate        *time.Time
	IsCurrent      bool
	DurationMonths int // 已夹取到 [0, 600]
	Description    string
}

// EducationEntry 单段教育经历
type EducationEntry struct {
	Institution string
	Degree      string
	Major       string
	StartDate   *time.Time
	EndDate     *time.Time
}

// ProjectEntry 单个项目经历
type ProjectEntry struct {
	Name        string
	Role        string
	Description string
	TechStack   []string
}

// CertificationEntry 单项证书
type CertificationEntry struct {
	Name      string
	Issuer    string
	IssueDate *time.Time
}

// LanguageEntry 单项语言能力
type LanguageEntry struct {
	Name        string
	Proficiency string
}
