package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// 本文件处理模型输出JSON的信任边界：所有取值都必须容忍类型漂移
// （标量变列表、数字变字符串、字段缺失或为null），绝不panic。

// SafeString 从map中取字符串字段。
// null或缺失返回默认值；列表取第一个非空元素的字符串化结果；数字和布尔值字符串化。
func SafeString(m map[string]interface{}, key string, defaultValue string) string {
	if m == nil {
		return defaultValue
	}
	v, ok := m[key]
	if !ok || v == nil {
		return defaultValue
	}

	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return defaultValue
		}
		return s
	case []interface{}:
		for _, elem := range val {
			if s := stringify(elem); s != "" {
				return s
			}
		}
		return defaultValue
	default:
		if s := stringify(v); s != "" {
			return s
		}
		return defaultValue
	}
}

// SafeStringList 从map中取字符串列表字段。
// 序列过滤掉空白元素；裸标量包装为单元素切片；null或缺失返回nil。
func SafeStringList(m map[string]interface{}, key string) []string {
	if m == nil {
		return nil
	}
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}

	switch val := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, elem := range val {
			if s := stringify(elem); s != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		if s := stringify(v); s != "" {
			return []string{s}
		}
		return nil
	}
}

// SafeFloat 从map中取数值字段，接受float64、整数和数字字符串。
func SafeFloat(m map[string]interface{}, key string, defaultValue float64) float64 {
	if m == nil {
		return defaultValue
	}
	v, ok := m[key]
	if !ok || v == nil {
		return defaultValue
	}

	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case string:
		s := strings.TrimSpace(val)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return defaultValue
	default:
		return defaultValue
	}
}

// SafeBool 从map中取布尔字段，接受布尔值和常见的真值字符串。
func SafeBool(m map[string]interface{}, key string, defaultValue bool) bool {
	if m == nil {
		return defaultValue
	}
	v, ok := m[key]
	if !ok || v == nil {
		return defaultValue
	}
	switch val := v.(type) {
	case bool:
		return val
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "yes", "1", "是":
			return true
		case "false", "no", "0", "否":
			return false
		}
		return defaultValue
	default:
		return defaultValue
	}
}

// FirstEmail 从字段值中提取第一个形如邮箱的地址。
// 原始值可能是逗号/分号/空白分隔的多个地址；第一个同时包含@和.的token胜出，
// 返回前做小写与裁剪。提取不到返回空串。
func FirstEmail(m map[string]interface{}, key string) string {
	raw := SafeString(m, key, "")
	if raw == "" {
		return ""
	}

	tokens := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n'
	})
	for _, token := range tokens {
		token = strings.Trim(token, "<>\"'")
		if strings.Contains(token, "@") && strings.Contains(token, ".") {
			return strings.ToLower(strings.TrimSpace(token))
		}
	}
	return ""
}

// stringify 将标量值转为裁剪后的字符串；map和nil返回空串
func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		// 整数值不带小数点输出
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case map[string]interface{}:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", val))
	}
}
