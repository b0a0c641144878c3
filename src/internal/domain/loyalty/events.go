package loyalty

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// 事件類型（也作為佇列任務類型名稱）
const (
	EventTypeCardEnrolled      = "loyalty.card_enrolled"
	EventTypeStampsIssued      = "loyalty.stamps_issued"
	EventTypePointsAdded       = "loyalty.points_added"
	EventTypeRewardRedeemed    = "loyalty.reward_redeemed"
	EventTypeStampsVoided      = "loyalty.stamps_voided"
	EventTypePointsVoided      = "loyalty.points_voided"
	EventTypeCardStatusChanged = "loyalty.card_status_changed"
)

// ===========================
// 共用欄位
// ===========================

// cardEvent 所有卡片事件共用的欄位，實現 shared.DomainEvent 的前三個方法
type cardEvent struct {
	eventID    string
	cardID     CardID
	occurredAt time.Time
}

func newCardEvent(cardID CardID, at time.Time) cardEvent {
	return cardEvent{
		eventID:    uuid.New().String(),
		cardID:     cardID,
		occurredAt: at,
	}
}

// EventID 實現 DomainEvent 介面
func (e cardEvent) EventID() string { return e.eventID }

// OccurredAt 實現 DomainEvent 介面
func (e cardEvent) OccurredAt() time.Time { return e.occurredAt }

// AggregateID 實現 DomainEvent 介面
func (e cardEvent) AggregateID() string { return e.cardID.String() }

// CardID 獲取卡片 ID
func (e cardEvent) CardID() CardID { return e.cardID }

// ===========================
// CardEnrolled 顧客入會
// ===========================

// CardEnrolledEvent 顧客加入方案並取得卡片
type CardEnrolledEvent struct {
	cardEvent
	programID  ProgramID
	customerID CustomerID
	cardType   ProgramType
}

func (e *CardEnrolledEvent) EventType() string      { return EventTypeCardEnrolled }
func (e *CardEnrolledEvent) ProgramID() ProgramID   { return e.programID }
func (e *CardEnrolledEvent) CustomerID() CustomerID { return e.customerID }
func (e *CardEnrolledEvent) CardType() ProgramType  { return e.cardType }

// ===========================
// 餘額異動事件
// ===========================

// StampsIssuedEvent 印章已發放
type StampsIssuedEvent struct {
	cardEvent
	transactionID TransactionID
	quantity      int
	balance       int
	storeID       StoreID
}

func (e *StampsIssuedEvent) EventType() string            { return EventTypeStampsIssued }
func (e *StampsIssuedEvent) TransactionID() TransactionID { return e.transactionID }
func (e *StampsIssuedEvent) Quantity() int                { return e.quantity }
func (e *StampsIssuedEvent) Balance() int                 { return e.balance }
func (e *StampsIssuedEvent) StoreID() StoreID             { return e.storeID }

// PointsAddedEvent 積分已入帳
type PointsAddedEvent struct {
	cardEvent
	transactionID     TransactionID
	pointsAmount      decimal.Decimal
	transactionAmount decimal.Decimal
	balance           decimal.Decimal
	storeID           StoreID
}

func (e *PointsAddedEvent) EventType() string                  { return EventTypePointsAdded }
func (e *PointsAddedEvent) TransactionID() TransactionID       { return e.transactionID }
func (e *PointsAddedEvent) PointsAmount() decimal.Decimal      { return e.pointsAmount }
func (e *PointsAddedEvent) TransactionAmount() decimal.Decimal { return e.transactionAmount }
func (e *PointsAddedEvent) Balance() decimal.Decimal           { return e.balance }
func (e *PointsAddedEvent) StoreID() StoreID                   { return e.storeID }

// RewardRedeemedEvent 獎勵已兌換
//
// remainingStamps / remainingPoints 只有與卡片類型對應的一個有意義。
type RewardRedeemedEvent struct {
	cardEvent
	transactionID   TransactionID
	rewardID        RewardID
	redeemedValue   int
	remainingStamps int
	remainingPoints decimal.Decimal
	storeID         StoreID
}

func (e *RewardRedeemedEvent) EventType() string                { return EventTypeRewardRedeemed }
func (e *RewardRedeemedEvent) TransactionID() TransactionID     { return e.transactionID }
func (e *RewardRedeemedEvent) RewardID() RewardID               { return e.rewardID }
func (e *RewardRedeemedEvent) RedeemedValue() int               { return e.redeemedValue }
func (e *RewardRedeemedEvent) RemainingStamps() int             { return e.remainingStamps }
func (e *RewardRedeemedEvent) RemainingPoints() decimal.Decimal { return e.remainingPoints }
func (e *RewardRedeemedEvent) StoreID() StoreID                 { return e.storeID }

// StampsVoidedEvent 印章已作廢
type StampsVoidedEvent struct {
	cardEvent
	transactionID TransactionID
	quantity      int
	balance       int
}

func (e *StampsVoidedEvent) EventType() string            { return EventTypeStampsVoided }
func (e *StampsVoidedEvent) TransactionID() TransactionID { return e.transactionID }
func (e *StampsVoidedEvent) Quantity() int                { return e.quantity }
func (e *StampsVoidedEvent) Balance() int                 { return e.balance }

// PointsVoidedEvent 積分已作廢
type PointsVoidedEvent struct {
	cardEvent
	transactionID TransactionID
	pointsAmount  decimal.Decimal
	balance       decimal.Decimal
}

func (e *PointsVoidedEvent) EventType() string             { return EventTypePointsVoided }
func (e *PointsVoidedEvent) TransactionID() TransactionID  { return e.transactionID }
func (e *PointsVoidedEvent) PointsAmount() decimal.Decimal { return e.pointsAmount }
func (e *PointsVoidedEvent) Balance() decimal.Decimal      { return e.balance }

// ===========================
// CardStatusChanged 狀態變更
// ===========================

// CardStatusChangedEvent 卡片狀態變更（停用、恢復、到期）
type CardStatusChangedEvent struct {
	cardEvent
	from CardStatus
	to   CardStatus
}

func (e *CardStatusChangedEvent) EventType() string { return EventTypeCardStatusChanged }
func (e *CardStatusChangedEvent) From() CardStatus  { return e.from }
func (e *CardStatusChangedEvent) To() CardStatus    { return e.to }
