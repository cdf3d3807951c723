package chat

import (
	"testing"

	"hr-agent-go/internal/constants"

	"github.com/stretchr/testify/assert"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		fallback string
		want     string
	}{
		{"纯中文", "有哪些候选人会Go语言?", "en", constants.LanguageChinese},
		{"纯英文", "Which candidates know Go?", "zh", constants.LanguageEnglish},
		{"中英混合偏中文", "张三的resume里有什么技能", "en", constants.LanguageChinese},
		{"纯数字回退默认", "12345", "zh", constants.LanguageChinese},
		{"字符数持平回退英文", "张三 ok", "en", constants.LanguageEnglish},
		{"字符数持平回退中文", "张三 ok", "zh", constants.LanguageChinese},
		{"纯符号回退英文", "???", "en", constants.LanguageEnglish},
		{"回退值大小写不敏感", "!!!", "English", constants.LanguageEnglish},
		{"回退值非法时默认中文", "...", "fr", constants.LanguageChinese},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLanguage(tt.query, tt.fallback))
		})
	}
}
