package chat

import (
	"strings"
	"testing"
	"unicode/utf8"

	"hr-agent-go/internal/constants"
	"hr-agent-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCandidates() []types.CandidateView {
	return []types.CandidateView{
		{
			ID:              "cand-1",
			Name:            "张三",
			Email:           "zhang.san@example.com",
			Location:        "上海",
			CareerLevel:     "高级",
			ExperienceYears: 6.5,
			Skills:          []string{"Go", "MySQL"},
			WorkHistory: []types.WorkView{
				{Company: "甲公司", Position: "后端工程师", DurationMonths: 64, IsCurrent: true},
			},
		},
		{
			ID:     "cand-2",
			Name:   "Alice Zhang",
			Email:  "alice@example.com",
			Skills: []string{"Python"},
		},
	}
}

func sampleJobs() []types.JobView {
	return []types.JobView{
		{
			ID: "job-1", Title: "后端工程师", Location: "上海", JobType: "full-time",
			RequiredSkills: []string{"Go"}, PreferredSkills: []string{"Kubernetes"},
			MinExperienceYears: 3, MaxExperienceYears: 5, SalaryMin: 25000, SalaryMax: 40000,
		},
	}
}

func TestTriageNameNarrowsContext(t *testing.T) {
	result := Triage("张三现在在哪家公司?", sampleCandidates(), sampleJobs())
	assert.True(t, result.InScope)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "cand-1", result.Candidates[0].ID)
	assert.Empty(t, result.Jobs)
}

func TestTriageEnglishNamePart(t *testing.T) {
	result := Triage("Tell me about Alice's experience", sampleCandidates(), sampleJobs())
	assert.True(t, result.InScope)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "cand-2", result.Candidates[0].ID)
}

func TestTriageKeywordExpandsToAll(t *testing.T) {
	result := Triage("目前有哪些候选人?", sampleCandidates(), sampleJobs())
	assert.True(t, result.InScope)
	assert.Len(t, result.Candidates, 2)
	assert.Len(t, result.Jobs, 1)
}

// 只命中岗位词汇（不在通用词表中）的查询也属于招聘域，注入全量上下文
func TestTriageVacancyOnlyQueryIsInScope(t *testing.T) {
	result := Triage("Any vacancies right now?", sampleCandidates(), sampleJobs())
	assert.True(t, result.InScope)
	assert.True(t, result.MentionsJobs)
	require.Len(t, result.Jobs, 1)

	resultZH := Triage("你们现在在招人吗?", sampleCandidates(), sampleJobs())
	assert.True(t, resultZH.InScope)
	require.Len(t, resultZH.Jobs, 1)
}

func TestTriageOutOfScope(t *testing.T) {
	result := Triage("今天天气怎么样", sampleCandidates(), sampleJobs())
	assert.False(t, result.InScope)
	assert.Empty(t, result.Candidates)
	assert.Empty(t, result.Jobs)
}

func TestBuildContextChineseLabels(t *testing.T) {
	triage := Triage("有哪些候选人和岗位?", sampleCandidates(), sampleJobs())
	ctx := BuildContext(constants.LanguageChinese, triage, 0)

	assert.Contains(t, ctx, "姓名: 张三")
	assert.Contains(t, ctx, "姓名: Alice Zhang")
	assert.Contains(t, ctx, "岗位: 后端工程师")
	assert.Contains(t, ctx, "技能: Go, MySQL")
	assert.Contains(t, ctx, "在职, 64个月")
}

func TestBuildContextEnglishLabels(t *testing.T) {
	triage := Triage("which candidates and jobs do we have?", sampleCandidates(), sampleJobs())
	ctx := BuildContext(constants.LanguageEnglish, triage, 0)

	assert.Contains(t, ctx, "Name: 张三")
	assert.Contains(t, ctx, "Name: Alice Zhang")
	assert.Contains(t, ctx, "Job: 后端工程师")
}

func TestBuildContextNoOpenJobsStatement(t *testing.T) {
	triage := Triage("现在有哪些开放岗位?", sampleCandidates(), nil)
	ctx := BuildContext(constants.LanguageChinese, triage, 0)
	assert.Contains(t, ctx, "当前没有开放中的岗位")

	ctxEN := BuildContext(constants.LanguageEnglish, triage, 0)
	assert.Contains(t, ctxEN, "no open jobs at the moment")
}

// 存在开放岗位时绝不输出"无开放岗位"的陈述
func TestBuildContextOpenJobsNeverDenied(t *testing.T) {
	triage := Triage("Any vacancies right now?", nil, sampleJobs())
	ctx := BuildContext(constants.LanguageEnglish, triage, 0)

	assert.Contains(t, ctx, "Job: 后端工程师")
	assert.NotContains(t, ctx, "no open jobs")
}

func TestBuildContextJobBands(t *testing.T) {
	triage := TriageResult{Jobs: sampleJobs(), InScope: true}

	ctx := BuildContext(constants.LanguageChinese, triage, 0)
	assert.Contains(t, ctx, "经验: 3-5年")
	assert.Contains(t, ctx, "薪资: 25000-40000")
	assert.Contains(t, ctx, "加分技能: Kubernetes")

	ctxEN := BuildContext(constants.LanguageEnglish, triage, 0)
	assert.Contains(t, ctxEN, "Experience: 3-5 years")
	assert.Contains(t, ctxEN, "Salary: 25000-40000")
	assert.Contains(t, ctxEN, "Preferred skills: Kubernetes")

	// 只有下限时渲染为开区间
	open := TriageResult{Jobs: []types.JobView{{ID: "job-2", Title: "架构师", MinExperienceYears: 8}}, InScope: true}
	assert.Contains(t, BuildContext(constants.LanguageChinese, open, 0), "经验: 8年以上")
	assert.Contains(t, BuildContext(constants.LanguageEnglish, open, 0), "Experience: 8+ years")
}

func TestBuildContextCandidateContact(t *testing.T) {
	triage := TriageResult{Candidates: sampleCandidates()[:1], InScope: true}

	ctx := BuildContext(constants.LanguageChinese, triage, 0)
	assert.Contains(t, ctx, "邮箱: zhang.san@example.com")

	ctxEN := BuildContext(constants.LanguageEnglish, triage, 0)
	assert.Contains(t, ctxEN, "Email: zhang.san@example.com")
}

func TestBuildContextBudgetTruncatesWholeBlocks(t *testing.T) {
	var many []types.CandidateView
	for i := 0; i < 50; i++ {
		many = append(many, types.CandidateView{
			ID:      "id",
			Name:    "候选人" + strings.Repeat("甲", 10),
			Summary: strings.Repeat("经验丰富", 20),
		})
	}
	triage := TriageResult{Candidates: many, InScope: true}

	budget := 500
	ctx := BuildContext(constants.LanguageChinese, triage, budget)
	assert.LessOrEqual(t, utf8.RuneCountInString(ctx), budget)
	// 截断发生在整条记录的边界上
	assert.False(t, strings.HasSuffix(ctx, "经验"))
}

func TestGroundEntities(t *testing.T) {
	candidates := sampleCandidates()
	jobs := sampleJobs()

	candidateIDs, jobIDs := GroundEntities("根据现有数据，张三比较符合后端工程师的要求。", candidates, jobs)
	assert.Equal(t, []string{"cand-1"}, candidateIDs)
	assert.Equal(t, []string{"job-1"}, jobIDs)

	// 回复只提到其中一人
	candidateIDs, jobIDs = GroundEntities("The best match is alice zhang.", candidates, jobs)
	assert.Equal(t, []string{"cand-2"}, candidateIDs)
	assert.Empty(t, jobIDs)

	// 回复未提及任何实体
	candidateIDs, jobIDs = GroundEntities("资料中没有符合条件的人选。", candidates, jobs)
	assert.Empty(t, candidateIDs)
	assert.Empty(t, jobIDs)
}
