// Package events 領域事件投遞
//
// 帳本命令提交後發布的事件在此轉為 asynq 任務（JSON 載荷），
// 由 Consumer 在 worker 端接收並轉交下游通知。
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackyeh168/loyalty_crm/src/internal/domain/loyalty"
	"github.com/jackyeh168/loyalty_crm/src/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// QueueLedger 帳本事件佇列名稱
const QueueLedger = "ledger"

// TaskTypes 所有帳本事件任務類型（任務類型即事件類型）
var TaskTypes = []string{
	loyalty.EventTypeCardEnrolled,
	loyalty.EventTypeStampsIssued,
	loyalty.EventTypePointsAdded,
	loyalty.EventTypeRewardRedeemed,
	loyalty.EventTypeStampsVoided,
	loyalty.EventTypePointsVoided,
	loyalty.EventTypeCardStatusChanged,
}

// LedgerEventPayload 帳本事件任務載荷
type LedgerEventPayload struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	CardID     string    `json:"card_id"`
	OccurredAt time.Time `json:"occurred_at"`

	TransactionID string `json:"transaction_id,omitempty"`
	StoreID       string `json:"store_id,omitempty"`

	// 開卡
	ProgramID  string `json:"program_id,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
	CardType   string `json:"card_type,omitempty"`

	// 集點卡
	Quantity        int `json:"quantity,omitempty"`
	StampBalance    int `json:"stamp_balance,omitempty"`
	RemainingStamps int `json:"remaining_stamps,omitempty"`

	// 積分卡
	PointsAmount      *decimal.Decimal `json:"points_amount,omitempty"`
	TransactionAmount *decimal.Decimal `json:"transaction_amount,omitempty"`
	PointsBalance     *decimal.Decimal `json:"points_balance,omitempty"`
	RemainingPoints   *decimal.Decimal `json:"remaining_points,omitempty"`

	// 兌換
	RewardID      string `json:"reward_id,omitempty"`
	RedeemedValue int    `json:"redeemed_value,omitempty"`

	// 狀態變更
	FromStatus string `json:"from_status,omitempty"`
	ToStatus   string `json:"to_status,omitempty"`
}

// BuildPayload 將領域事件轉為任務載荷
func BuildPayload(event shared.DomainEvent) (LedgerEventPayload, error) {
	if event == nil {
		return LedgerEventPayload{}, fmt.Errorf("nil domain event")
	}
	p := LedgerEventPayload{
		EventID:    event.EventID(),
		EventType:  event.EventType(),
		CardID:     event.AggregateID(),
		OccurredAt: event.OccurredAt(),
	}

	switch e := event.(type) {
	case *loyalty.CardEnrolledEvent:
		p.ProgramID = e.ProgramID().String()
		p.CustomerID = e.CustomerID().String()
		p.CardType = e.CardType().String()
	case *loyalty.StampsIssuedEvent:
		p.TransactionID = e.TransactionID().String()
		p.StoreID = e.StoreID().String()
		p.Quantity = e.Quantity()
		p.StampBalance = e.Balance()
	case *loyalty.PointsAddedEvent:
		p.TransactionID = e.TransactionID().String()
		p.StoreID = e.StoreID().String()
		p.PointsAmount = decimalPtr(e.PointsAmount())
		p.TransactionAmount = decimalPtr(e.TransactionAmount())
		p.PointsBalance = decimalPtr(e.Balance())
	case *loyalty.RewardRedeemedEvent:
		p.TransactionID = e.TransactionID().String()
		p.StoreID = e.StoreID().String()
		p.RewardID = e.RewardID().String()
		p.RedeemedValue = e.RedeemedValue()
		p.RemainingStamps = e.RemainingStamps()
		p.RemainingPoints = decimalPtr(e.RemainingPoints())
	case *loyalty.StampsVoidedEvent:
		p.TransactionID = e.TransactionID().String()
		p.Quantity = e.Quantity()
		p.StampBalance = e.Balance()
	case *loyalty.PointsVoidedEvent:
		p.TransactionID = e.TransactionID().String()
		p.PointsAmount = decimalPtr(e.PointsAmount())
		p.PointsBalance = decimalPtr(e.Balance())
	case *loyalty.CardStatusChangedEvent:
		p.FromStatus = e.From().String()
		p.ToStatus = e.To().String()
	default:
		return LedgerEventPayload{}, fmt.Errorf("unsupported domain event type %q", event.EventType())
	}
	return p, nil
}

// NewLedgerEventTask 建立帳本事件任務
func NewLedgerEventTask(payload LedgerEventPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(payload.EventType, body), nil
}

func decimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
