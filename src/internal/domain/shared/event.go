package shared

import (
	"context"
	"time"
)

// DomainEvent 領域事件基礎介面
type DomainEvent interface {
	EventID() string       // 事件唯一標識
	EventType() string     // 事件類型，如 "loyalty.stamps_issued"
	OccurredAt() time.Time // 發生時間（UTC）
	AggregateID() string   // 聚合根 ID
}

// EventPublisher 事件發布器介面
//
// 行為約定：
// - 在帳本提交（commit）之後才調用
// - 盡力而為（best-effort）：發布失敗只記錄日誌，不影響已提交的帳本寫入
// - 實作不得長時間阻塞調用者
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
}

// EventPublisherFunc 函數適配器，方便測試與組合
type EventPublisherFunc func(ctx context.Context, event DomainEvent) error

// Publish 實現 EventPublisher 介面
func (f EventPublisherFunc) Publish(ctx context.Context, event DomainEvent) error {
	return f(ctx, event)
}
