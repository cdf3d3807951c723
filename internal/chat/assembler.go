package chat

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"hr-agent-go/internal/constants"
	"hr-agent-go/internal/types"
)

// BuildContext 将筛选出的候选人与岗位渲染为注入提示词的数据上下文。
// 渲染使用固定的标签格式（"姓名:"/"Name:"、"岗位:"/"Job:"），
// 下游的接地校验与离线网关都依赖这些标签。
// 超出字符预算时整条截断，不输出半条记录。
func BuildContext(lang string, triage TriageResult, budget int) string {
	if budget <= 0 {
		budget = constants.MaxContextChars
	}
	zh := lang == constants.LanguageChinese

	var blocks []string
	if len(triage.Candidates) > 0 {
		if zh {
			blocks = append(blocks, "候选人资料:")
		} else {
			blocks = append(blocks, "Candidate profiles:")
		}
		for _, c := range triage.Candidates {
			blocks = append(blocks, renderCandidate(zh, c))
		}
	}

	if len(triage.Jobs) > 0 {
		if zh {
			blocks = append(blocks, "岗位信息:")
		} else {
			blocks = append(blocks, "Job listings:")
		}
		for _, j := range triage.Jobs {
			blocks = append(blocks, renderJob(zh, j))
		}
	} else if triage.MentionsJobs {
		// 查询问到岗位但没有开放岗位时给出明确事实，避免模型臆造
		if zh {
			blocks = append(blocks, "岗位信息: 当前没有开放中的岗位。")
		} else {
			blocks = append(blocks, "Job listings: there are no open jobs at the moment.")
		}
	}

	var sb strings.Builder
	used := 0
	for _, block := range blocks {
		blockLen := utf8.RuneCountInString(block) + 1
		if used+blockLen > budget {
			break
		}
		sb.WriteString(block)
		sb.WriteString("\n")
		used += blockLen
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderCandidate(zh bool, c types.CandidateView) string {
	var sb strings.Builder
	if zh {
		sb.WriteString(fmt.Sprintf("- 姓名: %s", c.Name))
		if c.Email != "" {
			sb.WriteString(" | 邮箱: " + c.Email)
		}
		if c.Phone != "" {
			sb.WriteString(" | 电话: " + c.Phone)
		}
		if c.Location != "" {
			sb.WriteString(" | 地点: " + c.Location)
		}
		if c.CareerLevel != "" {
			sb.WriteString(" | 级别: " + c.CareerLevel)
		}
		if c.ExperienceYears > 0 {
			sb.WriteString(fmt.Sprintf(" | 经验: %.1f年", c.ExperienceYears))
		}
		if len(c.Skills) > 0 {
			sb.WriteString("\n  技能: " + strings.Join(c.Skills, ", "))
		}
		for _, w := range c.WorkHistory {
			line := fmt.Sprintf("\n  经历: %s %s", w.Company, w.Position)
			if w.IsCurrent {
				line += fmt.Sprintf(" (在职, %d个月)", w.DurationMonths)
			} else if w.DurationMonths > 0 {
				line += fmt.Sprintf(" (%d个月)", w.DurationMonths)
			}
			sb.WriteString(line)
		}
		for _, e := range c.Educations {
			sb.WriteString(fmt.Sprintf("\n  学历: %s %s %s", e.Institution, e.Degree, e.Major))
		}
		if c.Summary != "" {
			sb.WriteString("\n  简介: " + c.Summary)
		}
	} else {
		sb.WriteString(fmt.Sprintf("- Name: %s", c.Name))
		if c.Email != "" {
			sb.WriteString(" | Email: " + c.Email)
		}
		if c.Phone != "" {
			sb.WriteString(" | Phone: " + c.Phone)
		}
		if c.Location != "" {
			sb.WriteString(" | Location: " + c.Location)
		}
		if c.CareerLevel != "" {
			sb.WriteString(" | Level: " + c.CareerLevel)
		}
		if c.ExperienceYears > 0 {
			sb.WriteString(fmt.Sprintf(" | Experience: %.1f years", c.ExperienceYears))
		}
		if len(c.Skills) > 0 {
			sb.WriteString("\n  Skills: " + strings.Join(c.Skills, ", "))
		}
		for _, w := range c.WorkHistory {
			line := fmt.Sprintf("\n  History: %s, %s", w.Company, w.Position)
			if w.IsCurrent {
				line += fmt.Sprintf(" (current, %d months)", w.DurationMonths)
			} else if w.DurationMonths > 0 {
				line += fmt.Sprintf(" (%d months)", w.DurationMonths)
			}
			sb.WriteString(line)
		}
		for _, e := range c.Educations {
			sb.WriteString(fmt.Sprintf("\n  Education: %s, %s, %s", e.Institution, e.Degree, e.Major))
		}
		if c.Summary != "" {
			sb.WriteString("\n  Summary: " + c.Summary)
		}
	}
	return sb.String()
}

func renderJob(zh bool, j types.JobView) string {
	var sb strings.Builder
	if zh {
		sb.WriteString(fmt.Sprintf("- 岗位: %s", j.Title))
		if j.Location != "" {
			sb.WriteString(" | 地点: " + j.Location)
		}
		if j.JobType != "" {
			sb.WriteString(" | 类型: " + j.JobType)
		}
		if j.MaxExperienceYears > 0 {
			sb.WriteString(fmt.Sprintf(" | 经验: %.0f-%.0f年", j.MinExperienceYears, j.MaxExperienceYears))
		} else if j.MinExperienceYears > 0 {
			sb.WriteString(fmt.Sprintf(" | 经验: %.0f年以上", j.MinExperienceYears))
		}
		if j.SalaryMax > 0 {
			sb.WriteString(fmt.Sprintf(" | 薪资: %d-%d", j.SalaryMin, j.SalaryMax))
		}
		if len(j.RequiredSkills) > 0 {
			sb.WriteString("\n  要求技能: " + strings.Join(j.RequiredSkills, ", "))
		}
		if len(j.PreferredSkills) > 0 {
			sb.WriteString("\n  加分技能: " + strings.Join(j.PreferredSkills, ", "))
		}
		if j.Description != "" {
			sb.WriteString("\n  描述: " + j.Description)
		}
	} else {
		sb.WriteString(fmt.Sprintf("- Job: %s", j.Title))
		if j.Location != "" {
			sb.WriteString(" | Location: " + j.Location)
		}
		if j.JobType != "" {
			sb.WriteString(" | Type: " + j.JobType)
		}
		if j.MaxExperienceYears > 0 {
			sb.WriteString(fmt.Sprintf(" | Experience: %.0f-%.0f years", j.MinExperienceYears, j.MaxExperienceYears))
		} else if j.MinExperienceYears > 0 {
			sb.WriteString(fmt.Sprintf(" | Experience: %.0f+ years", j.MinExperienceYears))
		}
		if j.SalaryMax > 0 {
			sb.WriteString(fmt.Sprintf(" | Salary: %d-%d", j.SalaryMin, j.SalaryMax))
		}
		if len(j.RequiredSkills) > 0 {
			sb.WriteString("\n  Required skills: " + strings.Join(j.RequiredSkills, ", "))
		}
		if len(j.PreferredSkills) > 0 {
			sb.WriteString("\n  Preferred skills: " + strings.Join(j.PreferredSkills, ", "))
		}
		if j.Description != "" {
			sb.WriteString("\n  Description: " + j.Description)
		}
	}
	return sb.String()
}

// GroundEntities 对模型回复做接地校验：大小写不敏感地扫描回复文本，
// 返回确实被提及的候选人与岗位ID。姓名按全名与长度>=2的片段匹配。
func GroundEntities(response string, candidates []types.CandidateView, jobs []types.JobView) ([]string, []string) {
	lowered := strings.ToLower(response)

	var candidateIDs []string
	for _, c := range candidates {
		if nameMentioned(lowered, c.Name) {
			candidateIDs = append(candidateIDs, c.ID)
		}
	}

	var jobIDs []string
	for _, j := range jobs {
		if j.Title != "" && strings.Contains(lowered, strings.ToLower(j.Title)) {
			jobIDs = append(jobIDs, j.ID)
		}
	}
	return candidateIDs, jobIDs
}
