package ledger

import (
	"context"
	"sync"

	"github.com/jackyeh168/loyalty_crm/src/internal/domain/shared"
	"go.uber.org/zap"
)

// eventDispatcher 背景投遞領域事件
//
// 單一 goroutine 依入列順序呼叫 publisher；入列不阻塞，
// 緩衝區已滿或已關閉時丟棄事件並記 ledger_event_dropped。
type eventDispatcher struct {
	publisher shared.EventPublisher
	logger    *zap.Logger
	queue     chan pendingEvent
	done      chan struct{}

	mu     sync.RWMutex
	closed bool
}

type pendingEvent struct {
	op    string
	event shared.DomainEvent
}

func newEventDispatcher(publisher shared.EventPublisher, logger *zap.Logger, size int) *eventDispatcher {
	d := &eventDispatcher{
		publisher: publisher,
		logger:    logger,
		queue:     make(chan pendingEvent, size),
		done:      make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *eventDispatcher) enqueue(op string, events []shared.DomainEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, event := range events {
		if d.closed {
			d.drop(op, event, "dispatcher closed")
			continue
		}
		select {
		case d.queue <- pendingEvent{op: op, event: event}:
		default:
			d.drop(op, event, "buffer full")
		}
	}
}

func (d *eventDispatcher) run() {
	defer close(d.done)
	for item := range d.queue {
		d.deliver(item)
	}
}

// deliver 每個事件最多等待 publishTimeout
func (d *eventDispatcher) deliver(item pendingEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := d.publisher.Publish(ctx, item.event); err != nil {
		d.logger.Warn("ledger_event_publish_failed",
			zap.String("operation", item.op),
			zap.String("card_id", item.event.AggregateID()),
			zap.String("event_type", item.event.EventType()),
			zap.String("event_id", item.event.EventID()),
			zap.Error(err),
		)
	}
}

func (d *eventDispatcher) drop(op string, event shared.DomainEvent, reason string) {
	d.logger.Warn("ledger_event_dropped",
		zap.String("operation", op),
		zap.String("card_id", event.AggregateID()),
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID()),
		zap.String("reason", reason),
	)
}

// close 可重複呼叫；ctx 到期時返回 ctx.Err()，剩餘事件仍由背景 goroutine 繼續投遞
func (d *eventDispatcher) close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
