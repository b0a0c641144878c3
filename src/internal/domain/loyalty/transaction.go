package loyalty

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ===========================
// Transaction 交易紀錄
// ===========================

// Transaction 卡片的一筆餘額異動紀錄（不可變）
//
// 只由 LoyaltyCard 的命令方法建立；建立後不更新、不刪除。
// 卡片的交易紀錄從零重放必須得到目前餘額（見 ReplayBalance）。
//
// 欄位語義：
// - 印章發放 / 作廢：quantity 為印章數
// - 積分發放 / 作廢：pointsAmount 為積分，transactionAmount 為消費金額
// - 兌換：redeemedValue 為扣除的 RequiredValue，
//   並依卡片類型寫入 quantity（集點卡）或 pointsAmount（積分卡）
type Transaction struct {
	transactionID     TransactionID
	cardID            CardID
	transactionType   TransactionType
	quantity          int
	pointsAmount      decimal.Decimal
	transactionAmount decimal.Decimal
	rewardID          RewardID // 零值表示非兌換交易
	redeemedValue     int
	storeID           StoreID
	staffID           StaffID // 選填
	posTransactionID  string  // 選填，外部 POS 單號
	timestamp         time.Time
}

// transactionDraft 卡片命令組裝交易用的參數
type transactionDraft struct {
	transactionType   TransactionType
	quantity          int
	pointsAmount      decimal.Decimal
	transactionAmount decimal.Decimal
	rewardID          RewardID
	redeemedValue     int
	storeID           StoreID
	staffID           StaffID
	posTransactionID  string
}

func newTransaction(cardID CardID, d transactionDraft, at time.Time) *Transaction {
	return &Transaction{
		transactionID:     NewTransactionID(),
		cardID:            cardID,
		transactionType:   d.transactionType,
		quantity:          d.quantity,
		pointsAmount:      d.pointsAmount,
		transactionAmount: d.transactionAmount,
		rewardID:          d.rewardID,
		redeemedValue:     d.redeemedValue,
		storeID:           d.storeID,
		staffID:           d.staffID,
		posTransactionID:  strings.TrimSpace(d.posTransactionID),
		timestamp:         at,
	}
}

// ReconstructTransaction 從持久化存儲重建交易紀錄
//
// 只做損壞檢查（ID、類型、負值），不重跑業務驗證。
func ReconstructTransaction(
	transactionID TransactionID,
	cardID CardID,
	transactionType TransactionType,
	quantity int,
	pointsAmount decimal.Decimal,
	transactionAmount decimal.Decimal,
	rewardID RewardID,
	redeemedValue int,
	storeID StoreID,
	staffID StaffID,
	posTransactionID string,
	timestamp time.Time,
) (*Transaction, error) {
	if transactionID.IsEmpty() {
		return nil, ErrInvalidTransactionID.WithContext("reason", "invalid transaction id in database")
	}
	if cardID.IsEmpty() {
		return nil, ErrCorruptedCard.WithContext(
			"transaction_id", transactionID.String(),
			"reason", "transaction without card id",
		)
	}
	if _, err := ParseTransactionType(string(transactionType)); err != nil {
		return nil, ErrCorruptedCard.WithContext(
			"transaction_id", transactionID.String(),
			"transaction_type", string(transactionType),
		)
	}
	if quantity < 0 || redeemedValue < 0 || pointsAmount.IsNegative() || transactionAmount.IsNegative() {
		return nil, ErrCorruptedCard.WithContext(
			"transaction_id", transactionID.String(),
			"quantity", quantity,
			"points_amount", pointsAmount.String(),
			"transaction_amount", transactionAmount.String(),
			"redeemed_value", redeemedValue,
		)
	}

	return &Transaction{
		transactionID:     transactionID,
		cardID:            cardID,
		transactionType:   transactionType,
		quantity:          quantity,
		pointsAmount:      pointsAmount,
		transactionAmount: transactionAmount,
		rewardID:          rewardID,
		redeemedValue:     redeemedValue,
		storeID:           storeID,
		staffID:           staffID,
		posTransactionID:  posTransactionID,
		timestamp:         timestamp,
	}, nil
}

func (t *Transaction) TransactionID() TransactionID       { return t.transactionID }
func (t *Transaction) CardID() CardID                     { return t.cardID }
func (t *Transaction) Type() TransactionType              { return t.transactionType }
func (t *Transaction) Quantity() int                      { return t.quantity }
func (t *Transaction) PointsAmount() decimal.Decimal      { return t.pointsAmount }
func (t *Transaction) TransactionAmount() decimal.Decimal { return t.transactionAmount }
func (t *Transaction) RewardID() RewardID                 { return t.rewardID }
func (t *Transaction) RedeemedValue() int                 { return t.redeemedValue }
func (t *Transaction) StoreID() StoreID                   { return t.storeID }
func (t *Transaction) StaffID() StaffID                   { return t.staffID }
func (t *Transaction) PosTransactionID() string           { return t.posTransactionID }
func (t *Transaction) Timestamp() time.Time               { return t.timestamp }

// IsRedemption 是否為兌換交易
func (t *Transaction) IsRedemption() bool {
	return t.transactionType == TransactionTypeRewardRedemption
}
