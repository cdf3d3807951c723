// Package processor 实现简历抽取流水线：原文落库、模型调用、
// 载荷解析与候选人图的事务性提交。
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"hr-agent-go/internal/agent"
	"hr-agent-go/internal/config"
	"hr-agent-go/internal/constants"
	"hr-agent-go/internal/logger"
	"hr-agent-go/internal/parser"
	"hr-agent-go/internal/storage"
	"hr-agent-go/internal/storage/models"
	"hr-agent-go/internal/types"

	"github.com/google/uuid"
)

// defaultExtractionPrompt 设置项缺省时使用的抽取系统提示词
const defaultExtractionPrompt = `你是一个专业的简历信息抽取助手。请从用户提供的简历原文中抽取结构化信息，并以JSON格式返回。
要求：
1. 只返回一个JSON对象，放在` + "```json" + `代码块中；
2. 顶层字段：name, phone, email, location, career_level, expected_salary, profile_summary, resume_language, total_experience_years；
3. 列表字段：skills（skill_name, proficiency, years）、work_experiences（company, position, start_date, end_date, is_current, description）、educations（institution, degree, major, start_date, end_date）、projects（project_name, role, description, tech_stack）、certifications（cert_name, issuer, issue_date）、languages（language, proficiency）；
4. 日期使用 YYYY-MM-DD 或 YYYY-MM 格式，至今的经历 end_date 填 "至今"；
5. 原文中不存在的信息填 null，不要编造。`

// ExtractionStore 抽取流水线需要的关系库能力
type ExtractionStore interface {
	CreateResume(ctx context.Context, resume *models.Resume) error
	UpdateResumeStatus(ctx context.Context, submissionUUID, status, errMsg string) error
	FindCandidateByEmail(ctx context.Context, email string) (*models.Candidate, error)
	FindCandidateByID(ctx context.Context, candidateID string) (*models.Candidate, error)
	CommitCandidateGraph(ctx context.Context, commit *storage.CandidateGraphCommit) error
}

var _ ExtractionStore = (*storage.MySQL)(nil)

// RawTextArchive 简历原文归档能力
type RawTextArchive interface {
	StoreRawText(ctx context.Context, submissionUUID string, text string) (string, string, error)
}

// DedupIndex 原文MD5去重能力
type DedupIndex interface {
	AddRawTextMD5(ctx context.Context, md5Hex string) (bool, error)
}

// ExtractorOptions 抽取器的可选依赖与参数
type ExtractorOptions struct {
	// Archive 原文归档；为nil时跳过归档（原文仅保留在数据库状态机中）
	Archive RawTextArchive
	// Dedup 原文去重索引；为nil时跳过去重检查
	Dedup DedupIndex
	// MaxRawTextChars 发送给模型的原文字符上限；<=0时使用默认值
	MaxRawTextChars int
	// Timeout 单次模型调用超时；<=0时不额外限制
	Timeout time.Duration
	// EventExchange / EventRoutingKey 抽取完成事件的投递目标
	EventExchange   string
	EventRoutingKey string
}

// Extractor 简历抽取器
type Extractor struct {
	store    ExtractionStore
	gateway  agent.ModelGateway
	settings config.SettingProvider
	opts     ExtractorOptions
}

// NewExtractor 创建抽取器
func NewExtractor(store ExtractionStore, gateway agent.ModelGateway, settings config.SettingProvider, opts ExtractorOptions) *Extractor {
	if opts.MaxRawTextChars <= 0 {
		opts.MaxRawTextChars = constants.MaxRawTextChars
	}
	if settings == nil {
		settings = config.NewStaticSettings(nil)
	}
	return &Extractor{
		store:    store,
		gateway:  gateway,
		settings: settings,
		opts:     opts,
	}
}

// ExtractRequest 一次抽取请求
type ExtractRequest struct {
	RawText string
	// TargetCandidateID 非空时跳过邮箱匹配，强制合并到指定候选人
	TargetCandidateID string
}

// ExtractResult 抽取结果
type ExtractResult struct {
	SubmissionUUID string
	CandidateID    string
	Merged         bool // 是否合并到已有候选人
	Duplicate      bool // 原文MD5此前已出现
}

// ExtractResume 执行完整抽取流程。简历行的状态机：
// PENDING → EXTRACTING → COMPLETED / EXTRACTION_FAILED / PAYLOAD_INVALID。
// 失败路径下简历行保留原文引用，可据此重试。
func (e *Extractor) ExtractResume(ctx context.Context, req *ExtractRequest) (*ExtractResult, error) {
	rawText := strings.TrimSpace(req.RawText)
	if rawText == "" {
		return nil, &ExtractionError{Op: "validate", BaseErr: ErrEmptyRawText}
	}

	submissionUUID := newUUIDv7()
	result := &ExtractResult{SubmissionUUID: submissionUUID}

	// 原文归档先行：失败不阻断抽取，只丢失重试用的原文副本
	var rawTextPath, rawTextMD5 string
	if e.opts.Archive != nil {
		var err error
		rawTextPath, rawTextMD5, err = e.opts.Archive.StoreRawText(ctx, submissionUUID, rawText)
		if err != nil {
			logger.Warn().Err(err).Str("submission_uuid", submissionUUID).Msg("归档简历原文失败")
			rawTextPath, rawTextMD5 = "", ""
		}
	}

	resume := &models.Resume{
		SubmissionUUID:   submissionUUID,
		RawTextPathOSS:   rawTextPath,
		RawTextMD5:       rawTextMD5,
		ProcessingStatus: constants.ResumeStatusPending,
	}
	if err := e.store.CreateResume(ctx, resume); err != nil {
		return nil, NewDatabaseError(submissionUUID, err.Error())
	}

	// 去重只做标记，不拦截：重复提交会把抽取结果合并到同一候选人
	if e.opts.Dedup != nil && rawTextMD5 != "" {
		firstSeen, err := e.opts.Dedup.AddRawTextMD5(ctx, rawTextMD5)
		if err != nil {
			logger.Warn().Err(err).Str("submission_uuid", submissionUUID).Msg("写入去重索引失败")
		} else if !firstSeen {
			result.Duplicate = true
			logger.Info().Str("submission_uuid", submissionUUID).Str("md5", rawTextMD5).Msg("简历原文此前已出现")
		}
	}

	if err := e.store.UpdateResumeStatus(ctx, submissionUUID, constants.ResumeStatusExtracting, ""); err != nil {
		return nil, NewDatabaseError(submissionUUID, err.Error())
	}

	// 调用模型
	systemPrompt := e.settings.GetSetting(ctx, config.SettingExtractionPrompt, defaultExtractionPrompt)
	userPrompt := truncateRunes(rawText, e.opts.MaxRawTextChars)

	invokeCtx := ctx
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		invokeCtx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	response, err := e.gateway.Invoke(invokeCtx, systemPrompt, userPrompt)
	if err != nil {
		e.markFailed(ctx, submissionUUID, constants.ResumeStatusExtractionFailed, err.Error())
		return nil, NewGatewayError(submissionUUID, err.Error())
	}

	envelope, err := parser.ExtractEnvelope(response)
	if err != nil {
		e.markFailed(ctx, submissionUUID, constants.ResumeStatusPayloadInvalid, err.Error())
		return nil, NewPayloadError(submissionUUID, err.Error())
	}

	profile := BuildProfile(envelope, time.Now())
	if profile.Email == "" {
		// 占位邮箱保证唯一索引约束成立，同时不会与真实邮箱冲突
		profile.Email = fmt.Sprintf("no-email-%s@%s", submissionUUID, constants.PlaceholderEmailDomain)
	}

	// 合并目标解析：指定ID优先，其次按规范化邮箱匹配
	var existing *models.Candidate
	if req.TargetCandidateID != "" {
		existing, err = e.store.FindCandidateByID(ctx, req.TargetCandidateID)
		if err != nil {
			e.markFailed(ctx, submissionUUID, constants.ResumeStatusExtractionFailed, err.Error())
			return nil, NewDatabaseError(submissionUUID, err.Error())
		}
		if existing == nil {
			detail := fmt.Sprintf("指定的合并目标候选人不存在: %s", req.TargetCandidateID)
			e.markFailed(ctx, submissionUUID, constants.ResumeStatusExtractionFailed, detail)
			return nil, NewDatabaseError(submissionUUID, detail)
		}
	} else {
		existing, err = e.store.FindCandidateByEmail(ctx, profile.Email)
		if err != nil {
			e.markFailed(ctx, submissionUUID, constants.ResumeStatusExtractionFailed, err.Error())
			return nil, NewDatabaseError(submissionUUID, err.Error())
		}
	}

	commit := e.buildCommit(submissionUUID, profile, existing)
	if err := e.store.CommitCandidateGraph(ctx, commit); err != nil {
		e.markFailed(ctx, submissionUUID, constants.ResumeStatusExtractionFailed, err.Error())
		return nil, NewStoreGraphError(submissionUUID, err.Error())
	}

	if existing != nil {
		result.CandidateID = existing.CandidateID
		result.Merged = true
	} else {
		result.CandidateID = commit.Candidate.CandidateID
	}

	logger.Info().
		Str("submission_uuid", submissionUUID).
		Str("candidate_id", result.CandidateID).
		Bool("merged", result.Merged).
		Msg("简历抽取完成")
	return result, nil
}

// markFailed 尽力将简历行置为失败终态，失败本身只记日志
func (e *Extractor) markFailed(ctx context.Context, submissionUUID, status, detail string) {
	if err := e.store.UpdateResumeStatus(ctx, submissionUUID, status, detail); err != nil {
		logger.Error().Err(err).Str("submission_uuid", submissionUUID).Msg("更新简历失败状态时出错")
	}
}

// buildCommit 将规范化画像映射为一次事务提交。
// 新建路径生成完整候选人记录；合并路径只覆盖本次抽取中非空的顶层字段，
// 子表始终整代替换。合并时不修改主邮箱，避免破坏唯一索引匹配语义。
func (e *Extractor) buildCommit(submissionUUID string, profile *types.CandidateProfile, existing *models.Candidate) *storage.CandidateGraphCommit {
	commit := &storage.CandidateGraphCommit{
		SubmissionUUID: submissionUUID,
	}

	var candidateID string
	if existing != nil {
		candidateID = existing.CandidateID
		commit.ExistingCandidateID = candidateID

		updates := map[string]interface{}{}
		if profile.Name != "" {
			updates["name"] = profile.Name
		}
		if profile.Phone != "" {
			updates["phone"] = profile.Phone
		}
		if profile.Location != "" {
			updates["current_location"] = profile.Location
		}
		if profile.CareerLevel != "" {
			updates["career_level"] = profile.CareerLevel
		}
		if profile.ExpectedSalary != "" {
			updates["expected_salary"] = profile.ExpectedSalary
		}
		if profile.ProfileSummary != "" {
			updates["profile_summary"] = profile.ProfileSummary
		}
		if profile.ResumeLanguage != "" {
			updates["resume_language"] = profile.ResumeLanguage
		}
		if profile.TotalExperienceYears > 0 {
			updates["total_experience_years"] = profile.TotalExperienceYears
		}
		commit.TopLevelUpdates = updates
	} else {
		candidateID = newUUIDv7()
		commit.Candidate = &models.Candidate{
			CandidateID:          candidateID,
			Name:                 profile.Name,
			Phone:                profile.Phone,
			PrimaryEmail:         profile.Email,
			CurrentLocation:      profile.Location,
			CareerLevel:          profile.CareerLevel,
			TotalExperienceYears: profile.TotalExperienceYears,
			ExpectedSalary:       profile.ExpectedSalary,
			ProfileSummary:       profile.ProfileSummary,
			ResumeLanguage:       profile.ResumeLanguage,
		}
	}

	for _, s := range profile.Skills {
		commit.Skills = append(commit.Skills, models.CandidateSkill{
			SkillName:   s.Name,
			Proficiency: s.Proficiency,
			Years:       s.Years,
		})
	}
	for i, w := range profile.WorkExperiences {
		commit.WorkExperiences = append(commit.WorkExperiences, models.CandidateWorkExperience{
			CompanyName:    w.Company,
			Position:       w.Position,
			StartDate:      w.StartDate,
			EndDate:        w.EndDate,
			IsCurrent:      w.IsCurrent,
			DurationMonths: w.DurationMonths,
			Description:    w.Description,
			SortOrder:      i,
		})
	}
	for i, ed := range profile.Educations {
		commit.Educations = append(commit.Educations, models.CandidateEducation{
			Institution: ed.Institution,
			Degree:      ed.Degree,
			Major:       ed.Major,
			StartDate:   ed.StartDate,
			EndDate:     ed.EndDate,
			SortOrder:   i,
		})
	}
	for _, p := range profile.Projects {
		techJSON, err := models.StringSliceToJSON(p.TechStack)
		if err != nil {
			techJSON = nil
		}
		commit.Projects = append(commit.Projects, models.CandidateProject{
			ProjectName:   p.Name,
			Role:          p.Role,
			Description:   p.Description,
			TechStackJSON: techJSON,
		})
	}
	for _, c := range profile.Certifications {
		commit.Certifications = append(commit.Certifications, models.CandidateCertification{
			CertName:  c.Name,
			Issuer:    c.Issuer,
			IssueDate: c.IssueDate,
		})
	}
	for _, l := range profile.Languages {
		commit.Languages = append(commit.Languages, models.CandidateLanguage{
			LanguageName: l.Name,
			Proficiency:  l.Proficiency,
		})
	}

	commit.OutboxEvent = e.buildOutboxEvent(submissionUUID, candidateID, existing != nil)
	return commit
}

// buildOutboxEvent 构造与候选人图同事务落库的领域事件
func (e *Extractor) buildOutboxEvent(submissionUUID, candidateID string, merged bool) *models.OutboxMessage {
	if e.opts.EventExchange == "" {
		return nil
	}

	payload, err := json.Marshal(map[string]interface{}{
		"event_type":      constants.EventResumeExtracted,
		"submission_uuid": submissionUUID,
		"candidate_id":    candidateID,
		"merged":          merged,
		"emitted_at":      time.Now().Format(time.RFC3339),
	})
	if err != nil {
		logger.Error().Err(err).Str("submission_uuid", submissionUUID).Msg("序列化领域事件失败")
		return nil
	}

	return &models.OutboxMessage{
		AggregateID:      candidateID,
		EventType:        constants.EventResumeExtracted,
		Payload:          string(payload),
		TargetExchange:   e.opts.EventExchange,
		TargetRoutingKey: e.opts.EventRoutingKey,
		Status:           "PENDING",
	}
}

// BuildProfile 将模型输出的信封映射为规范化画像。
// 单条子记录格式异常时跳过该条并记录日志，不中断整体抽取。
func BuildProfile(envelope map[string]interface{}, now time.Time) *types.CandidateProfile {
	profile := &types.CandidateProfile{
		Name:                 firstString(envelope, "", "name", "candidate_name"),
		Phone:                firstString(envelope, "", "phone", "phone_number", "mobile"),
		Email:                parser.FirstEmail(envelope, "email"),
		Location:             firstString(envelope, "", "location", "current_location", "city"),
		CareerLevel:          firstString(envelope, "", "career_level", "level"),
		ExpectedSalary:       firstString(envelope, "", "expected_salary", "salary_expectation"),
		ProfileSummary:       firstString(envelope, "", "profile_summary", "summary"),
		ResumeLanguage:       firstString(envelope, "", "resume_language", "language"),
		TotalExperienceYears: parser.SafeFloat(envelope, "total_experience_years", 0),
	}

	for _, item := range parser.ObjectList(envelope, "skills") {
		name := firstString(item, "", "skill_name", "name", "skill")
		if name == "" {
			logger.Warn().Interface("entry", item).Msg("跳过缺少名称的技能条目")
			continue
		}
		profile.Skills = append(profile.Skills, types.SkillEntry{
			Name:        name,
			Proficiency: firstString(item, "", "proficiency", "level"),
			Years:       parser.SafeFloat(item, "years", 0),
		})
	}

	for _, item := range parser.ObjectList(envelope, "work_experiences") {
		entry, ok := buildWorkEntry(item, now)
		if !ok {
			logger.Warn().Interface("entry", item).Msg("跳过格式异常的工作经历条目")
			continue
		}
		profile.WorkExperiences = append(profile.WorkExperiences, entry)
	}

	for _, item := range parser.ObjectList(envelope, "educations") {
		institution := firstString(item, "", "institution", "school", "university")
		degree := firstString(item, "", "degree")
		if institution == "" && degree == "" {
			logger.Warn().Interface("entry", item).Msg("跳过格式异常的教育经历条目")
			continue
		}
		entry := types.EducationEntry{
			Institution: institution,
			Degree:      degree,
			Major:       firstString(item, "", "major", "field_of_study"),
		}
		if t, ok := parseDateField(item, now, "start_date"); ok {
			entry.StartDate = &t
		}
		if t, ok := parseDateField(item, now, "end_date"); ok {
			entry.EndDate = &t
		}
		profile.Educations = append(profile.Educations, entry)
	}

	for _, item := range parser.ObjectList(envelope, "projects") {
		name := firstString(item, "", "project_name", "name")
		if name == "" {
			logger.Warn().Interface("entry", item).Msg("跳过缺少名称的项目条目")
			continue
		}
		profile.Projects = append(profile.Projects, types.ProjectEntry{
			Name:        name,
			Role:        firstString(item, "", "role"),
			Description: firstString(item, "", "description"),
			TechStack:   parser.SafeStringList(item, "tech_stack"),
		})
	}

	for _, item := range parser.ObjectList(envelope, "certifications") {
		name := firstString(item, "", "cert_name", "name", "certification")
		if name == "" {
			logger.Warn().Interface("entry", item).Msg("跳过缺少名称的证书条目")
			continue
		}
		entry := types.CertificationEntry{
			Name:   name,
			Issuer: firstString(item, "", "issuer", "organization"),
		}
		if t, ok := parseDateField(item, now, "issue_date"); ok {
			entry.IssueDate = &t
		}
		profile.Certifications = append(profile.Certifications, entry)
	}

	for _, item := range parser.ObjectList(envelope, "languages") {
		name := firstString(item, "", "language", "language_name", "name")
		if name == "" {
			continue
		}
		profile.Languages = append(profile.Languages, types.LanguageEntry{
			Name:        name,
			Proficiency: firstString(item, "", "proficiency", "level"),
		})
	}

	return profile
}

// buildWorkEntry 解析单段工作经历；公司与职位同时缺失视为格式异常
func buildWorkEntry(item map[string]interface{}, now time.Time) (types.WorkExperienceEntry, bool) {
	company := firstString(item, "", "company", "company_name", "employer")
	position := firstString(item, "", "position", "title", "job_title")
	if company == "" && position == "" {
		return types.WorkExperienceEntry{}, false
	}

	entry := types.WorkExperienceEntry{
		Company:     company,
		Position:    position,
		Description: firstString(item, "", "description", "responsibilities"),
		IsCurrent:   parser.SafeBool(item, "is_current", false),
	}

	if t, ok := parseDateField(item, now, "start_date"); ok {
		entry.StartDate = &t
	}

	endRaw := firstString(item, "", "end_date")
	if parser.IsPresentSentinel(endRaw) {
		entry.IsCurrent = true
	} else if t, ok := parseDateField(item, now, "end_date"); ok {
		entry.EndDate = &t
	}

	var start time.Time
	if entry.StartDate != nil {
		start = *entry.StartDate
	}
	entry.DurationMonths = parser.MonthsBetween(start, entry.EndDate, entry.IsCurrent, now)
	return entry, true
}

// firstString 依次尝试多个键名，返回第一个非空字符串
func firstString(m map[string]interface{}, defaultValue string, keys ...string) string {
	for _, key := range keys {
		if v := parser.SafeString(m, key, ""); v != "" {
			return v
		}
	}
	return defaultValue
}

// parseDateField 读取并解析日期字段
func parseDateField(m map[string]interface{}, now time.Time, key string) (time.Time, bool) {
	raw := parser.SafeString(m, key, "")
	if raw == "" || parser.IsPresentSentinel(raw) {
		return time.Time{}, false
	}
	return parser.ParseFlexibleDate(raw, now)
}

// truncateRunes 按字符数截断，避免切断多字节字符
func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

// newUUIDv7 生成时间有序UUID，极端情况下回退到v4
func newUUIDv7() string {
	u, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return u.String()
}
