package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"hr-agent-go/internal/agent"
	"hr-agent-go/internal/config"
	"hr-agent-go/internal/constants"
	"hr-agent-go/internal/logger"
	"hr-agent-go/internal/storage"
	"hr-agent-go/internal/storage/models"
	"hr-agent-go/internal/types"

	"github.com/cloudwego/eino/schema"
	"github.com/gofrs/uuid/v5"
)

// 各设置项缺省时使用的内置文案
const (
	defaultPersonaZH = "你是一名专业的招聘助手，负责回答关于候选人与开放岗位的问题。"
	defaultPersonaEN = "You are a professional recruiting assistant answering questions about candidates and open jobs."

	defaultGuidanceZH = "回答要简洁准确，基于提供的资料作答，资料中没有的信息明确说明不知道。"
	defaultGuidanceEN = "Answer concisely and accurately based on the provided data. If something is not in the data, say you do not know."

	defaultFallbackZH = "抱歉，系统暂时无法回答您的问题，请稍后再试。"
	defaultFallbackEN = "Sorry, the system is temporarily unable to answer your question. Please try again later."

	defaultNoCredentialZH = "当前未配置模型访问凭证。请在请求中携带个人API密钥，或联系管理员配置共享凭证后重试。"
	defaultNoCredentialEN = "No model credential is configured. Please provide a personal API key in the request, or ask an administrator to configure a shared credential."

	groundingConstraintZH = "回答时只能引用上述资料中出现的候选人与岗位，不要编造资料之外的人名或岗位。"
	groundingConstraintEN = "Only reference candidates and jobs that appear in the data above. Do not invent names or jobs that are not in the data."

	languageRuleZH = "请务必使用中文回答。"
	languageRuleEN = "You must answer in English."
)

// Directory 会话引擎需要的只读数据视图
type Directory interface {
	ListCandidateViews(ctx context.Context) ([]types.CandidateView, error)
	ListOpenJobs(ctx context.Context) ([]types.JobView, error)
}

// TurnRecorder 会话轮次的持久化能力
type TurnRecorder interface {
	RecordChatTurn(ctx context.Context, turn *models.ChatConversation, event *models.OutboxMessage) error
}

var (
	_ Directory    = (*storage.MySQL)(nil)
	_ TurnRecorder = (*storage.MySQL)(nil)
)

// GatewayFactory 按请求构造模型网关。个人密钥缺失且共享凭证也不可用时
// 返回 agent.ErrNoCredential。
type GatewayFactory func(ctx context.Context, personalAPIKey string) (agent.ModelGateway, error)

// EngineOptions 会话引擎参数
type EngineOptions struct {
	FallbackLanguage string
	MaxHistoryTurns  int
	MaxContextChars  int
	EventExchange    string
	EventRoutingKey  string
}

// Engine 会话查询引擎
type Engine struct {
	directory  Directory
	recorder   TurnRecorder
	memory     agent.ChatMemory
	settings   config.SettingProvider
	newGateway GatewayFactory
	opts       EngineOptions
}

// NewEngine 创建会话引擎
func NewEngine(directory Directory, recorder TurnRecorder, memory agent.ChatMemory,
	settings config.SettingProvider, newGateway GatewayFactory, opts EngineOptions) *Engine {
	if opts.MaxHistoryTurns <= 0 {
		opts.MaxHistoryTurns = constants.MaxHistoryTurns
	}
	if opts.MaxContextChars <= 0 {
		opts.MaxContextChars = constants.MaxContextChars
	}
	if opts.FallbackLanguage == "" {
		opts.FallbackLanguage = constants.LanguageChinese
	}
	if settings == nil {
		settings = config.NewStaticSettings(nil)
	}
	if memory == nil {
		memory = agent.NewInMemoryChatMemory()
	}
	return &Engine{
		directory:  directory,
		recorder:   recorder,
		memory:     memory,
		settings:   settings,
		newGateway: newGateway,
		opts:       opts,
	}
}

// ChatRequest 一次会话查询
type ChatRequest struct {
	SessionID      string
	UserID         string
	Query          string
	PersonalAPIKey string
}

// ChatReply 会话回复
type ChatReply struct {
	TurnID              string   `json:"turn_id"`
	Answer              string   `json:"answer"`
	Language            string   `json:"language"`
	MatchedCandidateIDs []string `json:"matched_candidate_ids"`
	MatchedJobIDs       []string `json:"matched_job_ids"`
	Degraded            bool     `json:"degraded"`
	Failed              bool     `json:"failed"`
}

// Answer 处理一轮会话查询：语言检测、相关性筛选、上下文拼装、
// 模型调用、接地校验与轮次落库。模型侧失败降级为本地化兜底文案，
// 不向调用方返回错误；只有数据读取失败才返回错误。
func (e *Engine) Answer(ctx context.Context, req *ChatRequest) (*ChatReply, error) {
	started := time.Now()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("查询内容不能为空")
	}

	fallbackLang := e.settings.GetSetting(ctx, config.SettingChatFallbackLanguage, e.opts.FallbackLanguage)
	lang := DetectLanguage(query, fallbackLang)

	candidates, err := e.directory.ListCandidateViews(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取候选人视图失败: %w", err)
	}
	jobs, err := e.directory.ListOpenJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取开放岗位失败: %w", err)
	}

	triage := Triage(query, candidates, jobs)
	dataContext := ""
	if triage.InScope || triage.MentionsJobs {
		dataContext = BuildContext(lang, triage, e.opts.MaxContextChars)
	}

	// 凭证链：个人密钥 → 共享设置 → 环境变量
	gateway, err := e.newGateway(ctx, req.PersonalAPIKey)
	if err != nil {
		if errors.Is(err, agent.ErrNoCredential) {
			return e.finishTurn(ctx, req, &turnOutcome{
				lang:         lang,
				answer:       e.localized(ctx, lang, config.SettingChatNoCredentialZH, config.SettingChatNoCredentialEN, defaultNoCredentialZH, defaultNoCredentialEN),
				contextChars: utf8.RuneCountInString(dataContext),
				failed:       true,
				started:      started,
			}), nil
		}
		return nil, fmt.Errorf("构造模型网关失败: %w", err)
	}

	systemMsg := e.buildSystemMessage(ctx, lang)
	userMsg := e.buildUserMessage(ctx, req.SessionID, lang, dataContext, query)

	response, err := gateway.Invoke(ctx, systemMsg, userMsg)
	if err != nil {
		logger.Warn().Err(err).Str("session_id", req.SessionID).Msg("模型调用失败，返回兜底回复")
		return e.finishTurn(ctx, req, &turnOutcome{
			lang:         lang,
			answer:       e.localized(ctx, lang, config.SettingChatFallbackZH, config.SettingChatFallbackEN, defaultFallbackZH, defaultFallbackEN),
			contextChars: utf8.RuneCountInString(dataContext),
			modelName:    gateway.ModelName(),
			failed:       true,
			started:      started,
		}), nil
	}

	outcome := &turnOutcome{
		lang:         lang,
		answer:       response,
		contextChars: utf8.RuneCountInString(dataContext),
		modelName:    gateway.ModelName(),
		started:      started,
	}

	if response == agent.DegradedReply {
		outcome.degraded = true
	} else {
		// 只对进入本轮上下文的实体做接地，域外实体不可能被合法提及
		outcome.candidateIDs, outcome.jobIDs = GroundEntities(response, triage.Candidates, triage.Jobs)
	}

	reply := e.finishTurn(ctx, req, outcome)

	// 成功轮次进入会话记忆，供后续轮次折叠历史
	if !outcome.degraded {
		if err := e.memory.Append(ctx, req.SessionID,
			schema.UserMessage(query),
			schema.AssistantMessage(response, nil)); err != nil {
			logger.Warn().Err(err).Str("session_id", req.SessionID).Msg("写入会话记忆失败")
		}
	}

	return reply, nil
}

// ClearSession 清空会话历史
func (e *Engine) ClearSession(ctx context.Context, sessionID string) error {
	return e.memory.Clear(ctx, sessionID)
}

type turnOutcome struct {
	lang         string
	answer       string
	contextChars int
	modelName    string
	candidateIDs []string
	jobIDs       []string
	degraded     bool
	failed       bool
	started      time.Time
}

// finishTurn 组装回复并持久化轮次。失败轮次同样落库，带failed标记，保证审计轨迹完整。
func (e *Engine) finishTurn(ctx context.Context, req *ChatRequest, outcome *turnOutcome) *ChatReply {
	turnID := newUUIDv7()
	reply := &ChatReply{
		TurnID:              turnID,
		Answer:              outcome.answer,
		Language:            outcome.lang,
		MatchedCandidateIDs: outcome.candidateIDs,
		MatchedJobIDs:       outcome.jobIDs,
		Degraded:            outcome.degraded,
		Failed:              outcome.failed,
	}

	if e.recorder == nil {
		return reply
	}

	candidateJSON, _ := models.StringSliceToJSON(outcome.candidateIDs)
	jobJSON, _ := models.StringSliceToJSON(outcome.jobIDs)
	turn := &models.ChatConversation{
		TurnID:              turnID,
		SessionID:           req.SessionID,
		UserID:              req.UserID,
		QueryText:           req.Query,
		ContextChars:        outcome.contextChars,
		ResponseText:        outcome.answer,
		Language:            outcome.lang,
		MatchedCandidateIDs: candidateJSON,
		MatchedJobIDs:       jobJSON,
		ModelName:           outcome.modelName,
		LatencyMS:           time.Since(outcome.started).Milliseconds(),
		Failed:              outcome.failed,
	}

	if err := e.recorder.RecordChatTurn(ctx, turn, e.buildTurnEvent(turnID, req.SessionID, outcome.failed)); err != nil {
		logger.Error().Err(err).Str("turn_id", turnID).Msg("持久化会话轮次失败")
	}
	return reply
}

// buildTurnEvent 构造轮次落库事件
func (e *Engine) buildTurnEvent(turnID, sessionID string, failed bool) *models.OutboxMessage {
	if e.opts.EventExchange == "" {
		return nil
	}
	payload := fmt.Sprintf(`{"event_type":%q,"turn_id":%q,"session_id":%q,"failed":%t,"emitted_at":%q}`,
		constants.EventChatTurnRecorded, turnID, sessionID, failed, time.Now().Format(time.RFC3339))
	return &models.OutboxMessage{
		AggregateID:      turnID,
		EventType:        constants.EventChatTurnRecorded,
		Payload:          payload,
		TargetExchange:   e.opts.EventExchange,
		TargetRoutingKey: e.opts.EventRoutingKey,
		Status:           "PENDING",
	}
}

// buildSystemMessage 人设与回答准则放在系统消息中
func (e *Engine) buildSystemMessage(ctx context.Context, lang string) string {
	persona := e.localized(ctx, lang, config.SettingChatPersonaZH, config.SettingChatPersonaEN, defaultPersonaZH, defaultPersonaEN)
	guidance := e.localized(ctx, lang, config.SettingChatGuidanceZH, config.SettingChatGuidanceEN, defaultGuidanceZH, defaultGuidanceEN)
	return persona + "\n" + guidance
}

// buildUserMessage 用户消息的拼装顺序固定：
// 折叠的会话历史 → 数据上下文 → 接地约束 → 原始问题 → 语言要求。
// 语言要求放在最后，距离模型生成位置最近、约束力最强。
func (e *Engine) buildUserMessage(ctx context.Context, sessionID, lang, dataContext, query string) string {
	zh := lang == constants.LanguageChinese
	var sb strings.Builder

	if history := e.foldHistory(ctx, sessionID, zh); history != "" {
		sb.WriteString(history)
		sb.WriteString("\n\n")
	}

	if dataContext != "" {
		sb.WriteString(dataContext)
		sb.WriteString("\n\n")
		if zh {
			sb.WriteString(groundingConstraintZH)
		} else {
			sb.WriteString(groundingConstraintEN)
		}
		sb.WriteString("\n\n")
	}

	if zh {
		sb.WriteString("问题: " + query)
		sb.WriteString("\n\n" + languageRuleZH)
	} else {
		sb.WriteString("Question: " + query)
		sb.WriteString("\n\n" + languageRuleEN)
	}
	return sb.String()
}

// foldHistory 读取最近N轮历史并折叠为文本
func (e *Engine) foldHistory(ctx context.Context, sessionID string, zh bool) string {
	if sessionID == "" {
		return ""
	}
	messages, err := e.memory.GetRecent(ctx, sessionID, e.opts.MaxHistoryTurns*2)
	if err != nil {
		logger.Warn().Err(err).Str("session_id", sessionID).Msg("读取会话历史失败")
		return ""
	}
	if len(messages) == 0 {
		return ""
	}

	var sb strings.Builder
	if zh {
		sb.WriteString("对话历史:\n")
	} else {
		sb.WriteString("Conversation history:\n")
	}
	for _, msg := range messages {
		var role string
		switch msg.Role {
		case schema.User:
			if zh {
				role = "用户"
			} else {
				role = "User"
			}
		case schema.Assistant:
			if zh {
				role = "助手"
			} else {
				role = "Assistant"
			}
		default:
			continue
		}
		sb.WriteString(fmt.Sprintf("%s: %s\n", role, msg.Content))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// localized 按语言取本地化文案，设置项缺省时使用内置默认值
func (e *Engine) localized(ctx context.Context, lang, keyZH, keyEN, defaultZH, defaultEN string) string {
	if lang == constants.LanguageChinese {
		return e.settings.GetSetting(ctx, keyZH, defaultZH)
	}
	return e.settings.GetSetting(ctx, keyEN, defaultEN)
}

// newUUIDv7 生成时间有序UUID，极端情况下回退到v4
func newUUIDv7() string {
	u, err := uuid.NewV7()
	if err != nil {
		return uuid.Must(uuid.NewV4()).String()
	}
	return u.String()
}
