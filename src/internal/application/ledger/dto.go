package ledger

import (
	"time"

	"github.com/jackyeh168/loyalty_crm/src/internal/domain/loyalty"
	"github.com/shopspring/decimal"
)

// ===========================
// Commands
// ===========================
//
// ID 一律為字串（UUID），由 Service 解析；形狀驗證在 HTTP 層，
// 業務規則只在 LoyaltyCard / LoyaltyProgram 內檢查。

// EnrollCustomerCommand 顧客加入方案（開卡）
type EnrollCustomerCommand struct {
	ProgramID  string
	CustomerID string
}

// IssueStampsCommand 發放印章
type IssueStampsCommand struct {
	CardID           string
	Quantity         int
	StoreID          string
	StaffID          string // 選填
	PosTransactionID string // 選填
}

// AddPointsCommand 累積積分
//
// PointsAmount 為零時由方案轉換率計算（CalculatePoints(TransactionAmount)）。
type AddPointsCommand struct {
	CardID            string
	TransactionAmount decimal.Decimal
	PointsAmount      decimal.Decimal
	StoreID           string
	StaffID           string
	PosTransactionID  string
}

// RedeemRewardCommand 兌換獎勵
type RedeemRewardCommand struct {
	CardID   string
	RewardID string
	StoreID  string
	StaffID  string
}

// VoidStampsCommand 作廢印章
type VoidStampsCommand struct {
	CardID           string
	Quantity         int
	StoreID          string
	StaffID          string
	PosTransactionID string
}

// VoidPointsCommand 作廢積分
type VoidPointsCommand struct {
	CardID           string
	PointsAmount     decimal.Decimal
	StoreID          string
	StaffID          string
	PosTransactionID string
}

// SetCardExpirationCommand 設定卡片到期日
type SetCardExpirationCommand struct {
	CardID    string
	ExpiresAt time.Time
}

// GetCardQuery 查詢卡片
//
// HistoryLimit <= 0 表示返回全部交易紀錄（新到舊）。
type GetCardQuery struct {
	CardID       string
	HistoryLimit int
}

// ===========================
// Results
// ===========================

// TransactionResult 交易紀錄
type TransactionResult struct {
	TransactionID     string
	Type              string
	Quantity          int
	PointsAmount      decimal.Decimal
	TransactionAmount decimal.Decimal
	RewardID          string
	RedeemedValue     int
	StoreID           string
	StaffID           string
	PosTransactionID  string
	Timestamp         time.Time
}

// CardResult 命令執行後的卡片狀態
//
// Transaction 為本次命令新增的交易（開卡、狀態變更時為 nil）。
type CardResult struct {
	CardID          string
	ProgramID       string
	CustomerID      string
	Type            string
	StampsCollected int
	PointsBalance   decimal.Decimal
	Status          string
	QRCode          string
	ExpiresAt       *time.Time
	Version         int
	Transaction     *TransactionResult
}

// TierResult 目前等級
type TierResult struct {
	TierID          string
	Name            string
	PointThreshold  int
	PointMultiplier decimal.Decimal
}

// CardDetailResult 卡片查詢結果
type CardDetailResult struct {
	CardResult
	Tier              *TierResult
	StampsIssuedToday int
	LedgerConsistent  bool
	History           []TransactionResult
}

func toCardResult(card *loyalty.LoyaltyCard, tx *loyalty.Transaction) *CardResult {
	result := &CardResult{
		CardID:          card.CardID().String(),
		ProgramID:       card.ProgramID().String(),
		CustomerID:      card.CustomerID().String(),
		Type:            card.Type().String(),
		StampsCollected: card.StampsCollected(),
		PointsBalance:   card.PointsBalance(),
		Status:          card.Status().String(),
		QRCode:          card.QRCode(),
		ExpiresAt:       card.ExpiresAt(),
		Version:         card.Version(),
	}
	if tx != nil {
		r := toTransactionResult(tx)
		result.Transaction = &r
	}
	return result
}

// toTransactionResult 兌換欄位只在兌換交易輸出
func toTransactionResult(tx *loyalty.Transaction) TransactionResult {
	result := TransactionResult{
		TransactionID:     tx.TransactionID().String(),
		Type:              tx.Type().String(),
		Quantity:          tx.Quantity(),
		PointsAmount:      tx.PointsAmount(),
		TransactionAmount: tx.TransactionAmount(),
		StoreID:           tx.StoreID().String(),
		StaffID:           tx.StaffID().String(),
		PosTransactionID:  tx.PosTransactionID(),
		Timestamp:         tx.Timestamp(),
	}
	if tx.IsRedemption() {
		result.RewardID = tx.RewardID().String()
		result.RedeemedValue = tx.RedeemedValue()
	}
	return result
}

func toTierResult(tier *loyalty.LoyaltyTier) *TierResult {
	if tier == nil {
		return nil
	}
	return &TierResult{
		TierID:          tier.TierID().String(),
		Name:            tier.Name(),
		PointThreshold:  tier.PointThreshold(),
		PointMultiplier: tier.PointMultiplier(),
	}
}
