package persistence

import (
	"time"

	"github.com/shopspring/decimal"
)

// ===========================
// GORM Model 定義
// ===========================
//
// ID 一律存為 varchar(36) 字串；選填 ID（staff、reward）以空字串表示未設定。
// 數值欄位使用 decimal.Decimal（實作 sql.Scanner / driver.Valuer）。

// LoyaltyProgramModel 會員方案
type LoyaltyProgramModel struct {
	ID                   string          `gorm:"type:varchar(36);primaryKey"`
	BrandID              string          `gorm:"type:varchar(36);index;not null"`
	Name                 string          `gorm:"type:varchar(255);not null"`
	Type                 string          `gorm:"type:varchar(16);not null"`
	PointsConversionRate decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	HasTiers             bool            `gorm:"not null;default:false"`
	StartDate            *time.Time
	EndDate              *time.Time
	IsActive             bool      `gorm:"not null"`
	CreatedAt            time.Time `gorm:"not null"`
	UpdatedAt            time.Time `gorm:"not null"`

	Tiers   []LoyaltyTierModel `gorm:"foreignKey:ProgramID"`
	Rewards []RewardModel      `gorm:"foreignKey:ProgramID"`
}

// TableName 指定表名
func (LoyaltyProgramModel) TableName() string {
	return "loyalty_programs"
}

// LoyaltyTierModel 會員等級
type LoyaltyTierModel struct {
	ID              string          `gorm:"type:varchar(36);primaryKey"`
	ProgramID       string          `gorm:"type:varchar(36);index;not null"`
	Name            string          `gorm:"type:varchar(255);not null"`
	PointThreshold  int             `gorm:"not null;default:0"`
	PointMultiplier decimal.Decimal `gorm:"type:decimal(10,4);not null"`
	TierOrder       int             `gorm:"not null;default:0"`
}

// TableName 指定表名
func (LoyaltyTierModel) TableName() string {
	return "loyalty_tiers"
}

// RewardModel 獎勵
type RewardModel struct {
	ID            string `gorm:"type:varchar(36);primaryKey"`
	ProgramID     string `gorm:"type:varchar(36);index;not null"`
	Title         string `gorm:"type:varchar(255);not null"`
	Description   string `gorm:"type:text"`
	RequiredValue int    `gorm:"not null"`
	ValidFrom     *time.Time
	ValidTo       *time.Time
	IsActive      bool `gorm:"not null"`
}

// TableName 指定表名
func (RewardModel) TableName() string {
	return "loyalty_rewards"
}

// LoyaltyCardModel 會員卡
//
// (customer_id, program_id) 唯一：一位顧客在一個方案只有一張卡。
// Version 為樂觀鎖版本號，每次 Update 成功 +1。
type LoyaltyCardModel struct {
	ID              string          `gorm:"type:varchar(36);primaryKey"`
	ProgramID       string          `gorm:"type:varchar(36);not null;uniqueIndex:idx_card_customer_program,priority:2"`
	CustomerID      string          `gorm:"type:varchar(36);not null;uniqueIndex:idx_card_customer_program,priority:1"`
	Type            string          `gorm:"type:varchar(16);not null"`
	StampsCollected int             `gorm:"not null;default:0"`
	PointsBalance   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	Status          string          `gorm:"type:varchar(16);not null;index"`
	QRCode          string          `gorm:"type:varchar(64);uniqueIndex"`
	ExpiresAt       *time.Time
	Version         int       `gorm:"not null;default:1"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// TableName 指定表名
func (LoyaltyCardModel) TableName() string {
	return "loyalty_cards"
}

// LoyaltyTransactionModel 交易紀錄（只新增，不更新、不刪除）
//
// Sequence 為卡片內的流水號（從 1 開始），(card_id, sequence) 唯一，
// 確保同一張卡的交易順序與提交順序一致。
type LoyaltyTransactionModel struct {
	ID                string          `gorm:"type:varchar(36);primaryKey"`
	CardID            string          `gorm:"type:varchar(36);not null;uniqueIndex:idx_tx_card_sequence,priority:1"`
	Sequence          int             `gorm:"not null;uniqueIndex:idx_tx_card_sequence,priority:2"`
	Type              string          `gorm:"type:varchar(32);not null"`
	Quantity          int             `gorm:"not null;default:0"`
	PointsAmount      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	TransactionAmount decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	RewardID          string          `gorm:"type:varchar(36)"`
	RedeemedValue     int             `gorm:"not null;default:0"`
	StoreID           string          `gorm:"type:varchar(36);index"`
	StaffID           string          `gorm:"type:varchar(36)"`
	PosTransactionID  string          `gorm:"type:varchar(128)"`
	Timestamp         time.Time       `gorm:"not null;index"`
}

// TableName 指定表名
func (LoyaltyTransactionModel) TableName() string {
	return "loyalty_transactions"
}

// allModels AutoMigrate 的模型清單
func allModels() []interface{} {
	return []interface{}{
		&LoyaltyProgramModel{},
		&LoyaltyTierModel{},
		&RewardModel{},
		&LoyaltyCardModel{},
		&LoyaltyTransactionModel{},
	}
}
