package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/jackyeh168/loyalty_crm/src/internal/domain/shared"
	"github.com/jackyeh168/loyalty_crm/src/internal/infrastructure/config"
	"go.uber.org/zap"
)

const defaultMaxRetry = 5

// taskEnqueuer asynq.Client 中發布器用到的部分
type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ===========================
// AsynqPublisher
// ===========================

// AsynqPublisher 將領域事件投遞到 asynq 佇列
type AsynqPublisher struct {
	client   taskEnqueuer
	closer   func() error
	queue    string
	maxRetry int
}

// NewAsynqPublisher 依佇列設定建立發布器
func NewAsynqPublisher(cfg config.QueueConfig) *AsynqPublisher {
	client := asynq.NewClient(BuildRedisOpt(cfg))
	return &AsynqPublisher{
		client:   client,
		closer:   client.Close,
		queue:    QueueLedger,
		maxRetry: defaultMaxRetry,
	}
}

var _ shared.EventPublisher = (*AsynqPublisher)(nil)

// Publish 以事件類型為任務類型投遞
func (p *AsynqPublisher) Publish(ctx context.Context, event shared.DomainEvent) error {
	payload, err := BuildPayload(event)
	if err != nil {
		return err
	}
	task, err := NewLedgerEventTask(payload)
	if err != nil {
		return fmt.Errorf("build task %s: %w", payload.EventType, err)
	}
	_, err = p.client.EnqueueContext(ctx, task,
		asynq.Queue(p.queue),
		asynq.MaxRetry(p.maxRetry),
		asynq.TaskID(payload.EventID),
	)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", payload.EventType, err)
	}
	return nil
}

// Close 關閉底層 Redis 連線
func (p *AsynqPublisher) Close() error {
	if p == nil || p.closer == nil {
		return nil
	}
	return p.closer()
}

// ===========================
// LogPublisher
// ===========================

// LogPublisher 只寫日誌的發布器（佇列未啟用時使用）
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher 建立日誌發布器
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

var _ shared.EventPublisher = (*LogPublisher)(nil)

func (p *LogPublisher) Publish(_ context.Context, event shared.DomainEvent) error {
	payload, err := BuildPayload(event)
	if err != nil {
		return err
	}
	p.logger.Info("ledger_event",
		zap.String("event_id", payload.EventID),
		zap.String("event_type", payload.EventType),
		zap.String("card_id", payload.CardID),
		zap.String("transaction_id", payload.TransactionID),
		zap.Time("occurred_at", payload.OccurredAt),
	)
	return nil
}

// BuildRedisOpt asynq Redis 連線設定
func BuildRedisOpt(cfg config.QueueConfig) asynq.RedisClientOpt {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// BuildServerConfig asynq worker 設定
func BuildServerConfig(cfg config.QueueConfig) asynq.Config {
	concurrency := 10
	if cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{QueueLedger: 1}
	if len(cfg.Queues) > 0 {
		queues = cfg.Queues
	}
	return asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}
