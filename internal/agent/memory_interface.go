package agent

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"
)

// ChatMemory 会话历史存储。引擎只需要最近N轮的role/content对。
type ChatMemory interface {
	// GetRecent 返回会话最近的n条消息（按时间正序）
	GetRecent(ctx context.Context, sessionID string, n int) ([]*schema.Message, error)

	// Append 向会话追加若干条消息
	Append(ctx context.Context, sessionID string, messages ...*schema.Message) error

	// Clear 清空会话历史
	Clear(ctx context.Context, sessionID string) error
}

// InMemoryChatMemory 进程内的 ChatMemory 实现，用于测试和单机离线运行
type InMemoryChatMemory struct {
	mu       sync.Mutex
	sessions map[string][]*schema.Message
}

// NewInMemoryChatMemory 创建进程内会话历史
func NewInMemoryChatMemory() *InMemoryChatMemory {
	return &InMemoryChatMemory{
		sessions: make(map[string][]*schema.Message),
	}
}

// GetRecent 实现 ChatMemory 接口
func (m *InMemoryChatMemory) GetRecent(_ context.Context, sessionID string, n int) ([]*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := m.sessions[sessionID]
	if n <= 0 || len(history) <= n {
		out := make([]*schema.Message, len(history))
		copy(out, history)
		return out, nil
	}
	out := make([]*schema.Message, n)
	copy(out, history[len(history)-n:])
	return out, nil
}

// Append 实现 ChatMemory 接口
func (m *InMemoryChatMemory) Append(_ context.Context, sessionID string, messages ...*schema.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = append(m.sessions[sessionID], messages...)
	return nil
}

// Clear 实现 ChatMemory 接口
func (m *InMemoryChatMemory) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

var _ ChatMemory = (*InMemoryChatMemory)(nil)
