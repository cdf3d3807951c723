package chat

import (
	"context"
	"errors"
	"testing"

	"hr-agent-go/internal/agent"
	"hr-agent-go/internal/config"
	"hr-agent-go/internal/constants"
	"hr-agent-go/internal/storage/models"
	"hr-agent-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	candidates []types.CandidateView
	jobs       []types.JobView
	listErr    error
}

func (d *fakeDirectory) ListCandidateViews(_ context.Context) ([]types.CandidateView, error) {
	return d.candidates, d.listErr
}

func (d *fakeDirectory) ListOpenJobs(_ context.Context) ([]types.JobView, error) {
	return d.jobs, d.listErr
}

type fakeRecorder struct {
	turns  []*models.ChatConversation
	events []*models.OutboxMessage
}

func (r *fakeRecorder) RecordChatTurn(_ context.Context, turn *models.ChatConversation, event *models.OutboxMessage) error {
	r.turns = append(r.turns, turn)
	r.events = append(r.events, event)
	return nil
}

func mockFactory(gateway agent.ModelGateway) GatewayFactory {
	return func(_ context.Context, _ string) (agent.ModelGateway, error) {
		return gateway, nil
	}
}

func newTestEngine(directory *fakeDirectory, recorder *fakeRecorder, gateway agent.ModelGateway) *Engine {
	return NewEngine(directory, recorder, agent.NewInMemoryChatMemory(),
		config.NewStaticSettings(nil), mockFactory(gateway), EngineOptions{
			EventExchange:   "hr.domain.events",
			EventRoutingKey: "chat.turn_recorded",
		})
}

func TestAnswerChineseGrounded(t *testing.T) {
	directory := &fakeDirectory{candidates: sampleCandidates(), jobs: sampleJobs()}
	recorder := &fakeRecorder{}
	engine := newTestEngine(directory, recorder, agent.NewMockGateway())

	reply, err := engine.Answer(context.Background(), &ChatRequest{
		SessionID: "s1",
		UserID:    "u1",
		Query:     "目前有哪些候选人和开放岗位?",
	})
	require.NoError(t, err)
	require.NotNil(t, reply)

	assert.Equal(t, constants.LanguageChinese, reply.Language)
	assert.False(t, reply.Failed)
	// 离线网关从上下文标签中回显实体名，接地校验应命中
	assert.Contains(t, reply.Answer, "张三")
	assert.Contains(t, reply.MatchedCandidateIDs, "cand-1")
	assert.Contains(t, reply.MatchedJobIDs, "job-1")

	// 轮次已落库且带事件
	require.Len(t, recorder.turns, 1)
	assert.Equal(t, "s1", recorder.turns[0].SessionID)
	assert.Greater(t, recorder.turns[0].ContextChars, 0)
	require.NotNil(t, recorder.events[0])
	assert.Equal(t, constants.EventChatTurnRecorded, recorder.events[0].EventType)
}

func TestAnswerEnglishQuery(t *testing.T) {
	directory := &fakeDirectory{candidates: sampleCandidates(), jobs: sampleJobs()}
	engine := newTestEngine(directory, &fakeRecorder{}, agent.NewMockGateway())

	reply, err := engine.Answer(context.Background(), &ChatRequest{
		SessionID: "s2",
		Query:     "Which candidates do we have right now?",
	})
	require.NoError(t, err)
	assert.Equal(t, constants.LanguageEnglish, reply.Language)
	assert.Contains(t, reply.MatchedCandidateIDs, "cand-2")
}

func TestAnswerOutOfScopeNoContext(t *testing.T) {
	directory := &fakeDirectory{candidates: sampleCandidates(), jobs: sampleJobs()}
	recorder := &fakeRecorder{}
	gateway := agent.NewMockGateway()
	engine := newTestEngine(directory, recorder, gateway)

	reply, err := engine.Answer(context.Background(), &ChatRequest{
		SessionID: "s3",
		Query:     "今天天气怎么样",
	})
	require.NoError(t, err)
	assert.Empty(t, reply.MatchedCandidateIDs)
	assert.Empty(t, reply.MatchedJobIDs)

	// 域外查询不注入任何实体数据
	require.Len(t, gateway.ReceivedUserMsgs, 1)
	assert.NotContains(t, gateway.ReceivedUserMsgs[0], "张三")
	assert.Zero(t, recorder.turns[0].ContextChars)
}

func TestAnswerNoCredential(t *testing.T) {
	directory := &fakeDirectory{candidates: sampleCandidates()}
	recorder := &fakeRecorder{}
	factory := func(_ context.Context, _ string) (agent.ModelGateway, error) {
		return nil, agent.ErrNoCredential
	}
	engine := NewEngine(directory, recorder, nil, nil, factory, EngineOptions{})

	reply, err := engine.Answer(context.Background(), &ChatRequest{
		SessionID: "s4",
		Query:     "有哪些候选人?",
	})
	require.NoError(t, err)
	assert.True(t, reply.Failed)
	assert.Contains(t, reply.Answer, "凭证")
	assert.Empty(t, reply.MatchedCandidateIDs)

	// 失败轮次无条件落库，审计轨迹不丢失
	require.Len(t, recorder.turns, 1)
	assert.True(t, recorder.turns[0].Failed)
}

func TestAnswerGatewayFailureFallback(t *testing.T) {
	directory := &fakeDirectory{candidates: sampleCandidates()}
	recorder := &fakeRecorder{}
	gateway := &agent.MockGateway{Err: errors.New("上游不可用")}
	engine := newTestEngine(directory, recorder, gateway)

	reply, err := engine.Answer(context.Background(), &ChatRequest{
		SessionID: "s5",
		Query:     "有哪些候选人?",
	})
	require.NoError(t, err)
	assert.True(t, reply.Failed)
	assert.Equal(t, defaultFallbackZH, reply.Answer)

	// 网关失败的轮次同样落库
	require.Len(t, recorder.turns, 1)
	assert.True(t, recorder.turns[0].Failed)
	assert.Equal(t, defaultFallbackZH, recorder.turns[0].ResponseText)
}

func TestAnswerDegradedReply(t *testing.T) {
	directory := &fakeDirectory{candidates: sampleCandidates()}
	gateway := &agent.MockGateway{FixedResponse: agent.DegradedReply}
	engine := newTestEngine(directory, &fakeRecorder{}, gateway)

	reply, err := engine.Answer(context.Background(), &ChatRequest{
		SessionID: "s6",
		Query:     "有哪些候选人?",
	})
	require.NoError(t, err)
	assert.True(t, reply.Degraded)
	assert.False(t, reply.Failed)
	// 降级回复不做实体接地
	assert.Empty(t, reply.MatchedCandidateIDs)
}

func TestAnswerFoldsHistory(t *testing.T) {
	directory := &fakeDirectory{candidates: sampleCandidates()}
	gateway := agent.NewMockGateway()
	engine := newTestEngine(directory, &fakeRecorder{}, gateway)

	_, err := engine.Answer(context.Background(), &ChatRequest{SessionID: "s7", Query: "有哪些候选人?"})
	require.NoError(t, err)

	_, err = engine.Answer(context.Background(), &ChatRequest{SessionID: "s7", Query: "他们的技能呢?"})
	require.NoError(t, err)

	// 第二轮的提示词折叠了第一轮历史
	require.Len(t, gateway.ReceivedUserMsgs, 2)
	assert.Contains(t, gateway.ReceivedUserMsgs[1], "对话历史")
	assert.Contains(t, gateway.ReceivedUserMsgs[1], "有哪些候选人?")
}

func TestAnswerEmptyQuery(t *testing.T) {
	engine := newTestEngine(&fakeDirectory{}, &fakeRecorder{}, agent.NewMockGateway())
	_, err := engine.Answer(context.Background(), &ChatRequest{Query: "  "})
	require.Error(t, err)
}

func TestAnswerLanguageRuleLast(t *testing.T) {
	directory := &fakeDirectory{candidates: sampleCandidates()}
	gateway := agent.NewMockGateway()
	engine := newTestEngine(directory, &fakeRecorder{}, gateway)

	_, err := engine.Answer(context.Background(), &ChatRequest{SessionID: "s8", Query: "有哪些候选人?"})
	require.NoError(t, err)

	require.Len(t, gateway.ReceivedUserMsgs, 1)
	userMsg := gateway.ReceivedUserMsgs[0]
	// 语言要求位于提示词末尾
	assert.True(t, len(userMsg) > 0)
	assert.Contains(t, userMsg, languageRuleZH)
	assert.Equal(t, languageRuleZH, userMsg[len(userMsg)-len(languageRuleZH):])
}
