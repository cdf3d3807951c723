package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCredentialChain(t *testing.T) {
	// 个人密钥优先
	key, err := ResolveCredential("personal-key", "shared-key", "HR_AGENT_TEST_KEY_UNSET")
	require.NoError(t, err)
	assert.Equal(t, "personal-key", key)

	// 个人为空回退到共享设置
	key, err = ResolveCredential("  ", "shared-key", "HR_AGENT_TEST_KEY_UNSET")
	require.NoError(t, err)
	assert.Equal(t, "shared-key", key)

	// 共享也为空回退到环境变量
	t.Setenv("HR_AGENT_TEST_KEY", "env-key")
	key, err = ResolveCredential("", "", "HR_AGENT_TEST_KEY")
	require.NoError(t, err)
	assert.Equal(t, "env-key", key)

	// 三级全空 → ErrNoCredential
	_, err = ResolveCredential("", "", "HR_AGENT_TEST_KEY_UNSET")
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestOpenAIGatewayInvoke(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", string(req.Messages[0].Role))
		assert.Equal(t, "user", string(req.Messages[1].Role))

		content := "模型回复"
		resp := ChatCompletionResponse{
			Choices: []ChatChoice{{Message: ChatMessage{Role: "assistant", Content: &content}}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	gw, err := NewOpenAIGateway("test-key", "test-model", server.URL, 5*time.Second)
	require.NoError(t, err)

	out, err := gw.Invoke(context.Background(), "你是招聘助手", "你好")
	require.NoError(t, err)
	assert.Equal(t, "模型回复", out)
}

// 429不报错，返回明确标记的降级回复
func TestOpenAIGatewayRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	gw, err := NewOpenAIGateway("test-key", "test-model", server.URL, 5*time.Second)
	require.NoError(t, err)

	out, err := gw.Invoke(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, DegradedReply, out)
}

func TestOpenAIGatewayServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	gw, err := NewOpenAIGateway("test-key", "test-model", server.URL, 5*time.Second)
	require.NoError(t, err)

	_, err = gw.Invoke(context.Background(), "sys", "user")
	assert.Error(t, err)
}

func TestNewOpenAIGatewayRequiresKey(t *testing.T) {
	_, err := NewOpenAIGateway("  ", "m", "", time.Second)
	assert.ErrorIs(t, err, ErrNoCredential)
}

// 离线网关从提示词中解析实体名并在回复中提及，保证接地校验可用
func TestMockGatewayEchoesEntities(t *testing.T) {
	mock := NewMockGateway()

	userMsg := "数据上下文:\n姓名: 张三\n姓名: 李四\n岗位: 后端工程师\n\n问题: 谁最适合这个岗位？"
	out, err := mock.Invoke(context.Background(), "persona", userMsg)
	require.NoError(t, err)

	assert.Contains(t, out, "张三")
	assert.Contains(t, out, "李四")
	assert.Contains(t, out, "后端工程师")
}

func TestMockGatewayEnglishAndSmallTalk(t *testing.T) {
	mock := NewMockGateway()

	out, err := mock.Invoke(context.Background(), "persona", "Context:\nName: Alice Wang\n\nQuestion: who is available?")
	require.NoError(t, err)
	assert.Contains(t, out, "Alice Wang")

	// 没有实体行的闲聊提示词 → 不捏造任何名字
	out, err = mock.Invoke(context.Background(), "persona", "Question: how is the weather today?")
	require.NoError(t, err)
	assert.NotContains(t, out, "Name:")
}

func TestInMemoryChatMemoryRecentWindow(t *testing.T) {
	mem := NewInMemoryChatMemory()
	ctx := context.Background()

	for _, text := range []string{"a", "b", "c", "d"} {
		require.NoError(t, mem.Append(ctx, "s1", schema.UserMessage(text)))
	}

	recent, err := mem.GetRecent(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].Content)
	assert.Equal(t, "d", recent[1].Content)

	require.NoError(t, mem.Clear(ctx, "s1"))
	recent, err = mem.GetRecent(ctx, "s1", 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}
