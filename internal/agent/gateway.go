package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"hr-agent-go/internal/logger"

	"github.com/cloudwego/eino/schema"
)

const (
	// OpenAI兼容端点的默认值
	defaultAPIURL    = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	defaultModelName = "qwen-plus"

	// DefaultCredentialEnvVar 凭证回退链的最后一级：环境变量
	DefaultCredentialEnvVar = "HR_AGENT_API_KEY"
)

// ErrNoCredential 三级凭证（个人密钥、共享设置、环境变量）全部为空时返回
var ErrNoCredential = errors.New("模型凭证缺失")

// DegradedReply 模型限流(429)时返回的降级占位回复，调用方按正常响应处理
const DegradedReply = "【降级回复 / degraded】模型请求频率受限，暂时无法生成完整回答，请稍后重试。" +
	" The model is currently rate limited; please retry shortly."

// ModelGateway 是对话模型的最小调用面：一条系统消息加一条用户消息换一段文本。
type ModelGateway interface {
	Invoke(ctx context.Context, systemMsg string, userMsg string) (string, error)
	ModelName() string
}

// ResolveCredential 按 个人密钥 → 共享设置 → 环境变量 的顺序解析模型凭证。
// 只有三级全部为空才返回 ErrNoCredential。
func ResolveCredential(personal, shared, envVar string) (string, error) {
	if key := strings.TrimSpace(personal); key != "" {
		return key, nil
	}
	if key := strings.TrimSpace(shared); key != "" {
		return key, nil
	}
	if envVar == "" {
		envVar = DefaultCredentialEnvVar
	}
	if key := strings.TrimSpace(os.Getenv(envVar)); key != "" {
		return key, nil
	}
	return "", ErrNoCredential
}

// --- OpenAI Compatible Request/Response Structures ---

type ChatCompletionRequest struct {
	Model    string            `json:"model"`
	Messages []*schema.Message `json:"messages"` // Eino schema.Message is compatible enough for role/content
}

type ChatMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type ChatCompletionResponse struct {
	Id      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
}

// OpenAIGateway 通过OpenAI兼容的HTTP接口调用对话模型
type OpenAIGateway struct {
	apiKey     string
	modelName  string
	apiURL     string
	httpClient *http.Client
}

// NewOpenAIGateway 创建一个新的 OpenAIGateway 实例
func NewOpenAIGateway(apiKey, modelName, apiURL string, timeout time.Duration) (*OpenAIGateway, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNoCredential
	}

	mn := modelName
	if strings.TrimSpace(mn) == "" {
		mn = defaultModelName
	}

	url := apiURL
	if strings.TrimSpace(url) == "" {
		url = defaultAPIURL
	}

	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &OpenAIGateway{
		apiKey:     apiKey,
		modelName:  mn,
		apiURL:     url,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// ModelName 实现 ModelGateway 接口
func (g *OpenAIGateway) ModelName() string {
	return g.modelName
}

// Invoke 实现 ModelGateway 接口。
// 429返回降级占位回复而非错误；其余非200状态和传输错误都包装后返回。
func (g *OpenAIGateway) Invoke(ctx context.Context, systemMsg string, userMsg string) (string, error) {
	reqPayload := ChatCompletionRequest{
		Model: g.modelName,
		Messages: []*schema.Message{
			schema.SystemMessage(systemMsg),
			schema.UserMessage(userMsg),
		},
	}

	jsonData, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("读取响应体失败: %w", err)
	}

	// 限流不是失败：返回明确标记的降级回复，让上层正常走完流程
	if httpResp.StatusCode == http.StatusTooManyRequests {
		logger.Warn().Str("model", g.modelName).Msg("模型请求被限流(429)，返回降级回复")
		return DegradedReply, nil
	}

	if httpResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API 请求失败，状态 %s: %s", httpResp.Status, string(bodyBytes))
	}

	var resp ChatCompletionResponse
	if err := json.Unmarshal(bodyBytes, &resp); err != nil {
		return "", fmt.Errorf("反序列化 API 响应失败: %w。响应体: %s", err, string(bodyBytes))
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("从 API 收到空选项: %s", string(bodyBytes))
	}

	content := ""
	if resp.Choices[0].Message.Content != nil {
		content = *resp.Choices[0].Message.Content
	}
	return content, nil
}

var _ ModelGateway = (*OpenAIGateway)(nil)
