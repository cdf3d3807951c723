// Package chat 实现会话查询引擎：语言检测、相关性筛选、
// 有界数据上下文拼装、模型调用与实体接地校验。
package chat

import (
	"strings"
	"unicode"

	"hr-agent-go/internal/constants"
)

// DetectLanguage 基于汉字与拉丁字母占比检测查询语言。
// 两类字符都缺失（纯数字、纯符号）或数量完全持平时回退到 fallback。
func DetectLanguage(text, fallback string) string {
	han, latin := 0, 0
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			han++
		case r < 128 && unicode.IsLetter(r):
			latin++
		}
	}

	// 空输入与字符数完全持平都没有倾向信号，回退到 fallback
	if han == latin {
		return normalizeLanguage(fallback)
	}
	// 汉字信息密度高，出现少量汉字即判定为中文
	if han*4 >= latin {
		return constants.LanguageChinese
	}
	return constants.LanguageEnglish
}

func normalizeLanguage(lang string) string {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case constants.LanguageEnglish, "english", "en-us", "en-gb":
		return constants.LanguageEnglish
	default:
		return constants.LanguageChinese
	}
}
