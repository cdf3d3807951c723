package processor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"hr-agent-go/internal/agent"
	"hr-agent-go/internal/config"
	"hr-agent-go/internal/constants"
	"hr-agent-go/internal/storage"
	"hr-agent-go/internal/storage/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore 内存版抽取存储，记录状态迁移与提交内容
type fakeStore struct {
	resumes           map[string]*models.Resume
	statusLog         []string
	candidatesByEmail map[string]*models.Candidate
	candidatesByID    map[string]*models.Candidate
	commits           []*storage.CandidateGraphCommit
	commitErr         error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		resumes:           make(map[string]*models.Resume),
		candidatesByEmail: make(map[string]*models.Candidate),
		candidatesByID:    make(map[string]*models.Candidate),
	}
}

func (s *fakeStore) CreateResume(_ context.Context, resume *models.Resume) error {
	s.resumes[resume.SubmissionUUID] = resume
	s.statusLog = append(s.statusLog, constants.ResumeStatusPending)
	return nil
}

func (s *fakeStore) UpdateResumeStatus(_ context.Context, submissionUUID, status, errMsg string) error {
	if r, ok := s.resumes[submissionUUID]; ok {
		r.ProcessingStatus = status
		r.ErrorMessage = errMsg
	}
	s.statusLog = append(s.statusLog, status)
	return nil
}

func (s *fakeStore) FindCandidateByEmail(_ context.Context, email string) (*models.Candidate, error) {
	return s.candidatesByEmail[email], nil
}

func (s *fakeStore) FindCandidateByID(_ context.Context, candidateID string) (*models.Candidate, error) {
	return s.candidatesByID[candidateID], nil
}

func (s *fakeStore) CommitCandidateGraph(_ context.Context, commit *storage.CandidateGraphCommit) error {
	if s.commitErr != nil {
		return s.commitErr
	}
	s.commits = append(s.commits, commit)
	if r, ok := s.resumes[commit.SubmissionUUID]; ok {
		r.ProcessingStatus = constants.ResumeStatusCompleted
	}
	s.statusLog = append(s.statusLog, constants.ResumeStatusCompleted)
	return nil
}

type fakeArchive struct {
	failed bool
}

func (a *fakeArchive) StoreRawText(_ context.Context, submissionUUID string, text string) (string, string, error) {
	if a.failed {
		return "", "", errors.New("对象存储不可用")
	}
	return "raw/test/" + submissionUUID + ".txt", "d41d8cd98f00b204e9800998ecf8427e", nil
}

type fakeDedup struct {
	seen map[string]bool
}

func (d *fakeDedup) AddRawTextMD5(_ context.Context, md5Hex string) (bool, error) {
	if d.seen == nil {
		d.seen = make(map[string]bool)
	}
	first := !d.seen[md5Hex]
	d.seen[md5Hex] = true
	return first, nil
}

const extractionPayload = "```json\n" + `{
  "name": "张三",
  "phone": "13800138000",
  "email": "ZHANG.SAN@example.com, backup@qq.com",
  "location": "上海",
  "career_level": "高级",
  "profile_summary": "资深后端工程师",
  "resume_language": "zh",
  "total_experience_years": 6.5,
  "skills": [
    {"skill_name": "Go", "proficiency": "精通", "years": 5},
    {"skill_name": "MySQL", "proficiency": "熟练"}
  ],
  "work_experiences": [
    {"company": "甲公司", "position": "后端工程师", "start_date": "2020-03", "end_date": "至今", "description": "核心服务开发"},
    {"description": "公司与职位都缺失的脏数据"}
  ],
  "educations": [
    {"institution": "某大学", "degree": "本科", "major": "计算机科学", "start_date": "2014-09", "end_date": "2018-06"}
  ],
  "projects": [
    {"project_name": "订单系统重构", "role": "负责人", "tech_stack": ["Go", "Kafka"]}
  ],
  "languages": [
    {"language": "英语", "proficiency": "CET-6"}
  ]
}` + "\n```"

func newTestExtractor(store *fakeStore, gateway agent.ModelGateway) *Extractor {
	return NewExtractor(store, gateway, config.NewStaticSettings(nil), ExtractorOptions{
		Archive:         &fakeArchive{},
		Dedup:           &fakeDedup{},
		EventExchange:   "hr.domain.events",
		EventRoutingKey: "resume.extracted",
	})
}

func TestExtractResumeCreatesCandidate(t *testing.T) {
	store := newFakeStore()
	gateway := &agent.MockGateway{FixedResponse: extractionPayload}
	extractor := newTestExtractor(store, gateway)

	result, err := extractor.ExtractResume(context.Background(), &ExtractRequest{RawText: "张三的简历原文"})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.SubmissionUUID)
	assert.NotEmpty(t, result.CandidateID)
	assert.False(t, result.Merged)

	require.Len(t, store.commits, 1)
	commit := store.commits[0]
	require.NotNil(t, commit.Candidate)
	assert.Equal(t, "张三", commit.Candidate.Name)
	// 多邮箱字段取第一个有效地址并小写
	assert.Equal(t, "zhang.san@example.com", commit.Candidate.PrimaryEmail)
	assert.InDelta(t, 6.5, commit.Candidate.TotalExperienceYears, 0.001)

	assert.Len(t, commit.Skills, 2)
	// 脏的工作经历条目被跳过，不中断整体抽取
	require.Len(t, commit.WorkExperiences, 1)
	assert.Equal(t, "甲公司", commit.WorkExperiences[0].CompanyName)
	assert.True(t, commit.WorkExperiences[0].IsCurrent)
	assert.Greater(t, commit.WorkExperiences[0].DurationMonths, 0)

	require.Len(t, commit.Educations, 1)
	assert.Equal(t, "某大学", commit.Educations[0].Institution)

	require.NotNil(t, commit.OutboxEvent)
	assert.Equal(t, constants.EventResumeExtracted, commit.OutboxEvent.EventType)
	assert.Equal(t, "hr.domain.events", commit.OutboxEvent.TargetExchange)

	// 状态机: PENDING → EXTRACTING → COMPLETED
	assert.Equal(t, []string{
		constants.ResumeStatusPending,
		constants.ResumeStatusExtracting,
		constants.ResumeStatusCompleted,
	}, store.statusLog)
}

func TestExtractResumeMergesByEmail(t *testing.T) {
	store := newFakeStore()
	store.candidatesByEmail["zhang.san@example.com"] = &models.Candidate{
		CandidateID:  "existing-id",
		Name:         "张三",
		Phone:        "13900000000",
		PrimaryEmail: "zhang.san@example.com",
	}
	gateway := &agent.MockGateway{FixedResponse: extractionPayload}
	extractor := newTestExtractor(store, gateway)

	result, err := extractor.ExtractResume(context.Background(), &ExtractRequest{RawText: "张三更新后的简历"})
	require.NoError(t, err)
	assert.True(t, result.Merged)
	assert.Equal(t, "existing-id", result.CandidateID)

	require.Len(t, store.commits, 1)
	commit := store.commits[0]
	assert.Nil(t, commit.Candidate)
	assert.Equal(t, "existing-id", commit.ExistingCandidateID)

	// 非空字段覆盖，主邮箱不参与合并更新
	assert.Equal(t, "张三", commit.TopLevelUpdates["name"])
	assert.Equal(t, "13800138000", commit.TopLevelUpdates["phone"])
	assert.NotContains(t, commit.TopLevelUpdates, "primary_email")
	assert.NotContains(t, commit.TopLevelUpdates, "expected_salary")
}

func TestExtractResumeMergesByTargetID(t *testing.T) {
	store := newFakeStore()
	store.candidatesByID["target-id"] = &models.Candidate{
		CandidateID:  "target-id",
		PrimaryEmail: "other@example.com",
	}
	gateway := &agent.MockGateway{FixedResponse: extractionPayload}
	extractor := newTestExtractor(store, gateway)

	result, err := extractor.ExtractResume(context.Background(), &ExtractRequest{
		RawText:           "简历原文",
		TargetCandidateID: "target-id",
	})
	require.NoError(t, err)
	assert.True(t, result.Merged)
	assert.Equal(t, "target-id", result.CandidateID)
}

func TestExtractResumeTargetIDNotFound(t *testing.T) {
	store := newFakeStore()
	gateway := &agent.MockGateway{FixedResponse: extractionPayload}
	extractor := newTestExtractor(store, gateway)

	_, err := extractor.ExtractResume(context.Background(), &ExtractRequest{
		RawText:           "简历原文",
		TargetCandidateID: "missing-id",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDatabaseFailed)
}

func TestExtractResumePlaceholderEmail(t *testing.T) {
	payload := "```json\n" + `{"name": "无邮箱候选人", "skills": []}` + "\n```"
	store := newFakeStore()
	gateway := &agent.MockGateway{FixedResponse: payload}
	extractor := newTestExtractor(store, gateway)

	result, err := extractor.ExtractResume(context.Background(), &ExtractRequest{RawText: "没有邮箱的简历"})
	require.NoError(t, err)

	require.Len(t, store.commits, 1)
	email := store.commits[0].Candidate.PrimaryEmail
	assert.True(t, strings.HasPrefix(email, "no-email-"+result.SubmissionUUID))
	assert.True(t, strings.HasSuffix(email, "@"+constants.PlaceholderEmailDomain))
}

func TestExtractResumeGatewayFailure(t *testing.T) {
	store := newFakeStore()
	gateway := &agent.MockGateway{Err: errors.New("上游超时")}
	extractor := newTestExtractor(store, gateway)

	_, err := extractor.ExtractResume(context.Background(), &ExtractRequest{RawText: "简历原文"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGatewayFailed)

	// 简历行进入可重试的失败终态
	assert.Contains(t, store.statusLog, constants.ResumeStatusExtractionFailed)
	assert.NotContains(t, store.statusLog, constants.ResumeStatusCompleted)
}

func TestExtractResumePayloadInvalid(t *testing.T) {
	store := newFakeStore()
	gateway := &agent.MockGateway{FixedResponse: "抱歉，我无法处理这份简历。"}
	extractor := newTestExtractor(store, gateway)

	_, err := extractor.ExtractResume(context.Background(), &ExtractRequest{RawText: "简历原文"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPayloadInvalid)
	assert.Contains(t, store.statusLog, constants.ResumeStatusPayloadInvalid)
}

func TestExtractResumeEmptyRawText(t *testing.T) {
	store := newFakeStore()
	extractor := newTestExtractor(store, &agent.MockGateway{})

	_, err := extractor.ExtractResume(context.Background(), &ExtractRequest{RawText: "   \n  "})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyRawText)
	assert.Empty(t, store.statusLog)
}

func TestExtractResumeDuplicateFlag(t *testing.T) {
	store := newFakeStore()
	gateway := &agent.MockGateway{FixedResponse: extractionPayload}
	dedup := &fakeDedup{}
	extractor := NewExtractor(store, gateway, config.NewStaticSettings(nil), ExtractorOptions{
		Archive: &fakeArchive{},
		Dedup:   dedup,
	})

	first, err := extractor.ExtractResume(context.Background(), &ExtractRequest{RawText: "同一份简历"})
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	// 第二次提交相同原文被标记为重复，但仍正常合并
	second, err := extractor.ExtractResume(context.Background(), &ExtractRequest{RawText: "同一份简历"})
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
}

func TestExtractResumeArchiveFailureDoesNotBlock(t *testing.T) {
	store := newFakeStore()
	gateway := &agent.MockGateway{FixedResponse: extractionPayload}
	extractor := NewExtractor(store, gateway, config.NewStaticSettings(nil), ExtractorOptions{
		Archive: &fakeArchive{failed: true},
	})

	result, err := extractor.ExtractResume(context.Background(), &ExtractRequest{RawText: "简历原文"})
	require.NoError(t, err)

	resume := store.resumes[result.SubmissionUUID]
	require.NotNil(t, resume)
	assert.Empty(t, resume.RawTextPathOSS)
}

func TestBuildProfileDateClamps(t *testing.T) {
	now := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	envelope := map[string]interface{}{
		"name": "日期测试",
		"work_experiences": []interface{}{
			map[string]interface{}{
				"company":    "乙公司",
				"position":   "工程师",
				"start_date": "2020/03",
				"end_date":   "present",
			},
			map[string]interface{}{
				"company":    "丙公司",
				"position":   "实习生",
				"start_date": "2024-05",
				"end_date":   "2023-01",
			},
		},
	}

	profile := BuildProfile(envelope, now)
	require.Len(t, profile.WorkExperiences, 2)

	// "present" 哨兵 → 在职，时长按 now 截断
	assert.True(t, profile.WorkExperiences[0].IsCurrent)
	assert.Equal(t, 75, profile.WorkExperiences[0].DurationMonths)

	// 结束早于开始 → 时长夹取为0
	assert.Equal(t, 0, profile.WorkExperiences[1].DurationMonths)
}
