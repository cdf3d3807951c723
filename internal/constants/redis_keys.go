package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// SettingModulePrefix 设置模块
	SettingModulePrefix = "setting"
	// ResumeModulePrefix 简历模块
	ResumeModulePrefix = "resume"
	// ChatModulePrefix 会话模块
	ChatModulePrefix = "chat"

	// EntityText 文本实体
	EntityText = "text"
	// EntityDedupSet 去重集合实体
	EntityDedupSet = "dedup_set"
	// EntitySession 会话实体
	EntitySession = "session"

	// KeySettingCache 设置项缓存 (STRING)
	// 格式: app:setting:text:{setting_key}
	KeySettingCache = AppPrefix + ":" + SettingModulePrefix + ":" + EntityText + ":%s"

	// KeyRawTextMD5Set 简历原文MD5去重集合 (SET)
	// 格式: app:resume:dedup_set
	KeyRawTextMD5Set = AppPrefix + ":" + ResumeModulePrefix + ":" + EntityDedupSet

	// ChatMemoryKeyPrefix 会话历史键前缀 (LIST)
	// 格式: app:chat:session:{session_id}
	ChatMemoryKeyPrefix = AppPrefix + ":" + ChatModulePrefix + ":" + EntitySession + ":"
)
