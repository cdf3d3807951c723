package types

// CandidateView 是会话引擎消费的候选人只读视图，由存储层从候选人图拼装。
type CandidateView struct {
	ID              string
	Name            string
	Email           string
	Phone           string
	Location        string
	CareerLevel     string
	Summary         string
	ExperienceYears float64
	Skills          []string
	WorkHistory     []WorkView
	Educations      []EducationView
}

// WorkView 候选人视图中的一段工作经历
type WorkView struct {
	Company        string
	Position       string
	DurationMonths int
	IsCurrent      bool
}

// EducationView 候选人视图中的一段教育经历
type EducationView struct {
	Institution string
	Degree      string
	Major       string
}

// JobView 开放岗位的只读视图
type JobView struct {
	ID                 string
	Title              string
	Location           string
	JobType            string
	Description        string
	RequiredSkills     []string
	PreferredSkills    []string
	MinExperienceYears float64
	MaxExperienceYears float64
	SalaryMin          int
	SalaryMax          int
}

// EntityRef 响应中返回的实体引用（已通过名称接地校验）
type EntityRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
