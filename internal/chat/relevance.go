package chat

import (
	"strings"

	"hr-agent-go/internal/types"
)

// recruitingKeywords 判定查询是否属于招聘域的双语词表
var recruitingKeywords = []string{
	// 中文
	"候选人", "简历", "岗位", "职位", "招聘", "应聘", "面试",
	"工作经历", "技能", "学历", "经验", "人选", "求职",
	// 英文（小写比较）
	"candidate", "candidates", "resume", "resumes", "cv",
	"job", "jobs", "position", "positions", "opening", "openings",
	"hiring", "recruit", "skill", "skills", "experience", "interview",
}

// jobVocabulary 专指岗位的子词表，用于"无开放岗位"的明确答复
var jobVocabulary = []string{
	"岗位", "职位", "招聘", "开放", "在招",
	"job", "jobs", "position", "positions", "opening", "openings", "vacancy", "vacancies",
}

// TriageResult 相关性筛选结果
type TriageResult struct {
	Candidates []types.CandidateView
	Jobs       []types.JobView
	// InScope 为false表示闲聊或与招聘无关的查询，不注入数据上下文
	InScope bool
	// MentionsJobs 查询中出现岗位词汇，用于无开放岗位时的明确答复
	MentionsJobs bool
}

// Triage 对查询做相关性筛选：
// 命中具体候选人姓名或岗位名时收窄到命中子集；
// 命中招聘域词汇时注入全量上下文；两者都未命中视为域外查询。
func Triage(query string, candidates []types.CandidateView, jobs []types.JobView) TriageResult {
	lowered := strings.ToLower(query)
	result := TriageResult{MentionsJobs: containsAny(lowered, jobVocabulary)}

	// 实体名命中优先，得到最小上下文
	for _, c := range candidates {
		if nameMentioned(lowered, c.Name) {
			result.Candidates = append(result.Candidates, c)
		}
	}
	for _, j := range jobs {
		if j.Title != "" && strings.Contains(lowered, strings.ToLower(j.Title)) {
			result.Jobs = append(result.Jobs, j)
		}
	}
	if len(result.Candidates) > 0 || len(result.Jobs) > 0 {
		result.InScope = true
		return result
	}

	// 岗位词表命中同样属于招聘域，保证"无开放岗位"的答复只在岗位真的为空时出现
	if result.MentionsJobs || containsAny(lowered, recruitingKeywords) {
		result.Candidates = candidates
		result.Jobs = jobs
		result.InScope = true
		return result
	}

	return result
}

// nameMentioned 判断查询是否提及候选人：全名或长度足够的名字片段
func nameMentioned(loweredQuery, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	if strings.Contains(loweredQuery, strings.ToLower(name)) {
		return true
	}
	// 西文姓名按词切分后逐段匹配，单字符片段噪声太大不参与
	for _, part := range strings.Fields(name) {
		if len([]rune(part)) >= 2 && strings.Contains(loweredQuery, strings.ToLower(part)) {
			return true
		}
	}
	return false
}

func containsAny(loweredQuery string, words []string) bool {
	for _, w := range words {
		if strings.Contains(loweredQuery, w) {
			return true
		}
	}
	return false
}
