// Package outbox 实现发件箱模式：领域事件与业务数据同事务落库，
// 由中继轮询发件箱表并投递到消息代理。
package outbox

import (
	"context"
	"time"

	"hr-agent-go/internal/logger"
	"hr-agent-go/internal/storage"
	"hr-agent-go/internal/storage/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultPollingInterval = 5 * time.Second // 轮询发件箱表的间隔
	defaultBatchSize       = 10              // 每次轮询处理的消息批量大小
	maxRetryCount          = 5               // 发布失败的最大重试次数，超过后标记FAILED
)

// MessageRelay 轮询发件箱表并将消息发布到消息代理。
type MessageRelay struct {
	db              *gorm.DB
	publisher       *storage.RabbitMQ
	pollingInterval time.Duration
	batchSize       int
	done            chan struct{}
	tracer          trace.Tracer
}

// NewMessageRelay 创建消息中继实例。
func NewMessageRelay(db *gorm.DB, publisher *storage.RabbitMQ) *MessageRelay {
	return &MessageRelay{
		db:              db,
		publisher:       publisher,
		pollingInterval: defaultPollingInterval,
		batchSize:       defaultBatchSize,
		done:            make(chan struct{}),
		tracer:          otel.Tracer("outbox-relay"),
	}
}

// Start 启动后台轮询。
func (r *MessageRelay) Start() {
	logger.Info().Dur("interval", r.pollingInterval).Msg("消息中继启动")
	ticker := time.NewTicker(r.pollingInterval)

	go func() {
		for {
			select {
			case <-r.done:
				ticker.Stop()
				logger.Info().Msg("消息中继已停止")
				return
			case <-ticker.C:
				if err := r.processPendingMessages(context.Background()); err != nil {
					logger.Error().Err(err).Msg("处理待投递消息失败")
				}
			}
		}
	}()
}

// Stop 优雅地停止消息中继。
func (r *MessageRelay) Stop() {
	close(r.done)
}

// processPendingMessages 在一个事务内取出并处理一批待投递消息。
// FOR UPDATE SKIP LOCKED 使多实例水平扩展时互不争抢同一批行。
func (r *MessageRelay) processPendingMessages(ctx context.Context) error {
	var messages []models.OutboxMessage

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer tx.Rollback()

	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", "PENDING").
		Order("created_at asc").
		Limit(r.batchSize).
		Find(&messages).Error
	if err != nil {
		return err
	}

	// 空轮询不创建追踪Span
	if len(messages) == 0 {
		return tx.Commit().Error
	}

	ctx, span := r.tracer.Start(ctx, "outbox.ProcessBatch",
		trace.WithAttributes(
			attribute.Int("messaging.batch.message_count", len(messages)),
		),
	)
	defer span.End()

	for _, msg := range messages {
		err := r.publisher.PublishMessage(
			ctx,
			msg.TargetExchange,
			msg.TargetRoutingKey,
			[]byte(msg.Payload),
			true, // 持久化投递
		)

		if err != nil {
			logger.Warn().Err(err).
				Uint64("message_id", msg.ID).
				Str("aggregate_id", msg.AggregateID).
				Int("retry_count", msg.RetryCount+1).
				Msg("发布发件箱消息失败")
			msg.RetryCount++
			msg.ErrorMessage = err.Error()
			if msg.RetryCount >= maxRetryCount {
				msg.Status = "FAILED"
			}
		} else {
			msg.Status = "SENT"
			now := time.Now()
			msg.ProcessedAt = &now
			msg.ErrorMessage = ""
		}

		// 更新失败时整个事务回滚，该批消息下次轮询重新拾取
		if err := tx.Save(&msg).Error; err != nil {
			return err
		}
	}

	return tx.Commit().Error
}
