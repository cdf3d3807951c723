package constants

import "time"

// 简历抽取流水线的处理状态
const (
	ResumeStatusPending          = "PENDING"           // 已落库，等待抽取
	ResumeStatusExtracting       = "EXTRACTING"        // 模型调用进行中
	ResumeStatusCompleted        = "COMPLETED"         // 抽取并提交成功
	ResumeStatusExtractionFailed = "EXTRACTION_FAILED" // 模型调用失败，原文保留可重试
	ResumeStatusPayloadInvalid   = "PAYLOAD_INVALID"   // 模型输出无法解析为有效JSON
)

// 岗位状态
const (
	JobStatusActive = "ACTIVE"
	JobStatusClosed = "CLOSED"
)

// 领域事件类型（通过 outbox 发布）
const (
	EventResumeExtracted  = "resume.extracted"
	EventChatTurnRecorded = "chat.turn_recorded"
)

// 语言代码：语言检测只做二元路由
const (
	LanguageChinese = "zh"
	LanguageEnglish = "en"
)

const (
	// MaxDurationMonths 单段工作时长的上限（50年），超过视为解析异常被截断
	MaxDurationMonths = 600

	// MaxRawTextChars 发送给模型的简历原文上限，超出部分截断
	MaxRawTextChars = 30000

	// MaxContextChars 会话引擎注入提示词的数据上下文上限
	MaxContextChars = 6000

	// MaxHistoryTurns 折叠进提示词的最近历史轮数
	MaxHistoryTurns = 10

	// PlaceholderEmailDomain 无邮箱候选人的占位邮箱域名
	PlaceholderEmailDomain = "placeholder.invalid"

	// ChatMemoryTTL 会话历史在Redis中的保留时间
	ChatMemoryTTL = 24 * time.Hour

	// RawTextMD5ExpireDays 原文MD5去重记录的保留天数
	RawTextMD5ExpireDays = 365
)
