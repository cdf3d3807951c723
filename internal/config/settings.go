package config

import "context"

// 可被设置表覆盖的配置项键名。
// 命名规范: {module}.{name}[.{lang}]
const (
	// SettingSharedModelKey 共享的模型API密钥（个人密钥缺失时的第二级回退）
	SettingSharedModelKey = "model.shared_api_key"

	// SettingExtractionPrompt 简历抽取的系统提示词
	SettingExtractionPrompt = "extraction.system_prompt"

	// 会话引擎的人设与领域指引，按语言区分
	SettingChatPersonaZH  = "chat.persona.zh"
	SettingChatPersonaEN  = "chat.persona.en"
	SettingChatGuidanceZH = "chat.guidance.zh"
	SettingChatGuidanceEN = "chat.guidance.en"

	// 模型调用失败时的兜底回复
	SettingChatFallbackZH = "chat.fallback.zh"
	SettingChatFallbackEN = "chat.fallback.en"

	// 凭证缺失时的指引回复
	SettingChatNoCredentialZH = "chat.no_credential.zh"
	SettingChatNoCredentialEN = "chat.no_credential.en"

	// SettingChatFallbackLanguage 语言检测失败时的兜底语言
	SettingChatFallbackLanguage = "chat.fallback_language"
)

// SettingProvider 按键读取可运行时覆盖的设置项。
// 查不到时返回调用方给出的默认值，不产生错误，设置项永远有可用值。
type SettingProvider interface {
	GetSetting(ctx context.Context, key string, defaultValue string) string
}

// StaticSettings 基于内存map的SettingProvider实现，用于测试和无数据库的场景
type StaticSettings struct {
	values map[string]string
}

// NewStaticSettings 创建一个静态设置提供者
func NewStaticSettings(values map[string]string) *StaticSettings {
	if values == nil {
		values = make(map[string]string)
	}
	return &StaticSettings{values: values}
}

// GetSetting 实现 SettingProvider 接口
func (s *StaticSettings) GetSetting(_ context.Context, key string, defaultValue string) string {
	if v, ok := s.values[key]; ok && v != "" {
		return v
	}
	return defaultValue
}

var _ SettingProvider = (*StaticSettings)(nil)
