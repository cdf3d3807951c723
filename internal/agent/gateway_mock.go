package agent

import (
	"context"
	"strings"
	"unicode"
)

// MockGateway 是 ModelGateway 的离线替身：不依赖任何外部服务，
// 从用户提示词中解析出渲染进去的候选人/岗位名称，生成提及这些实体的
// 固定格式回复，保证下游的名称接地校验在无凭证环境下照样被完整执行。
type MockGateway struct {
	// FixedResponse 非空时直接返回该文本，便于测试注入任意回复
	FixedResponse string
	// Err 非nil时模拟网关失败
	Err error

	// 记录收到的调用，供测试断言
	ReceivedSystemMsgs []string
	ReceivedUserMsgs   []string
}

// NewMockGateway 创建一个会解析提示词的离线网关
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// ModelName 实现 ModelGateway 接口
func (m *MockGateway) ModelName() string {
	return "mock-offline"
}

// Invoke 实现 ModelGateway 接口
func (m *MockGateway) Invoke(_ context.Context, systemMsg string, userMsg string) (string, error) {
	m.ReceivedSystemMsgs = append(m.ReceivedSystemMsgs, systemMsg)
	m.ReceivedUserMsgs = append(m.ReceivedUserMsgs, userMsg)

	if m.Err != nil {
		return "", m.Err
	}
	if m.FixedResponse != "" {
		return m.FixedResponse, nil
	}

	candidates := scanLabeledLines(userMsg, "姓名:", "姓名：", "Name:")
	jobs := scanLabeledLines(userMsg, "岗位:", "岗位：", "Job:")
	chinese := containsHan(userMsg)

	var b strings.Builder
	if len(candidates) == 0 && len(jobs) == 0 {
		if chinese {
			b.WriteString("你好，我是招聘助手，可以回答关于候选人和岗位的问题。")
		} else {
			b.WriteString("Hello, I am the recruiting assistant. Ask me about candidates and jobs.")
		}
		return b.String(), nil
	}

	if chinese {
		if len(candidates) > 0 {
			b.WriteString("根据现有数据，相关候选人包括：")
			b.WriteString(strings.Join(candidates, "、"))
			b.WriteString("。")
		}
		if len(jobs) > 0 {
			b.WriteString("开放岗位有：")
			b.WriteString(strings.Join(jobs, "、"))
			b.WriteString("。")
		}
		b.WriteString("如需进一步筛选，请补充条件。")
	} else {
		if len(candidates) > 0 {
			b.WriteString("Based on the available data, the relevant candidates are: ")
			b.WriteString(strings.Join(candidates, ", "))
			b.WriteString(". ")
		}
		if len(jobs) > 0 {
			b.WriteString("Open jobs include: ")
			b.WriteString(strings.Join(jobs, ", "))
			b.WriteString(". ")
		}
		b.WriteString("Let me know if you want to narrow this down.")
	}
	return b.String(), nil
}

// scanLabeledLines 按行扫描提示词，收集指定标签后面的值。
// 标签可以出现在行内任意位置，值在 " | " 分隔符处截断。
func scanLabeledLines(text string, labels ...string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(text, "\n") {
		for _, label := range labels {
			idx := strings.Index(line, label)
			if idx < 0 {
				continue
			}
			value := line[idx+len(label):]
			if sep := strings.Index(value, " | "); sep >= 0 {
				value = value[:sep]
			}
			value = strings.TrimSpace(value)
			if value != "" && !seen[value] {
				seen[value] = true
				out = append(out, value)
			}
			break
		}
	}
	return out
}

// containsHan 判断文本中是否出现汉字
func containsHan(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

var _ ModelGateway = (*MockGateway)(nil)
