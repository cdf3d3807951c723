package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// 模型返回的内容经常不是纯JSON：可能带markdown代码围栏、前后缀说明文字。
// 这里先走围栏正则，再退回大括号配对扫描。

var jsonFenceRe = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")

// ExtractEnvelope 从模型响应文本中提取并反序列化JSON对象。
// 提取不到或反序列化失败都返回错误，由调用方转为PAYLOAD_INVALID。
func ExtractEnvelope(response string) (map[string]interface{}, error) {
	jsonStr := extractJSON(response)
	if jsonStr == "" {
		return nil, fmt.Errorf("无法从模型响应中提取有效的JSON")
	}

	var envelope map[string]interface{}
	if err := json.Unmarshal([]byte(jsonStr), &envelope); err != nil {
		return nil, fmt.Errorf("解析JSON失败: %w", err)
	}
	return envelope, nil
}

// extractJSON 从文本中提取JSON部分
func extractJSON(text string) string {
	// 尝试使用正则表达式提取 ```json ... ``` 代码块中的内容
	matches := jsonFenceRe.FindStringSubmatch(text)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	// 如果正则没有匹配到，尝试寻找 JSON 的开始和结束位置作为回退
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}

	// 查找匹配的}
	level := 0
	for i := start; i < len(text); i++ {
		if text[i] == '{' {
			level++
		} else if text[i] == '}' {
			level--
			if level == 0 {
				return strings.TrimSpace(text[start : i+1])
			}
		}
	}
	return ""
}

// ObjectList 将envelope中的字段规整为对象列表。
// 单个对象包装为单元素列表；非对象元素被丢弃；null或缺失返回nil。
func ObjectList(m map[string]interface{}, key string) []map[string]interface{} {
	if m == nil {
		return nil
	}
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}

	switch val := v.(type) {
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(val))
		for _, elem := range val {
			if obj, ok := elem.(map[string]interface{}); ok {
				out = append(out, obj)
			}
		}
		return out
	case map[string]interface{}:
		return []map[string]interface{}{val}
	default:
		return nil
	}
}

// ObjectField 取envelope中的嵌套对象字段
func ObjectField(m map[string]interface{}, key string) map[string]interface{} {
	if m == nil {
		return nil
	}
	if obj, ok := m[key].(map[string]interface{}); ok {
		return obj
	}
	return nil
}
