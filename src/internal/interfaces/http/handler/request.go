package handler

import (
	"time"

	"github.com/shopspring/decimal"
)

// ===========================
// 卡片請求
// ===========================

type enrollRequest struct {
	CustomerID string `json:"customer_id" binding:"required,uuid"`
}

type stampsRequest struct {
	Quantity         int    `json:"quantity" binding:"required,min=1"`
	StoreID          string `json:"store_id" binding:"required,uuid"`
	StaffID          string `json:"staff_id" binding:"omitempty,uuid"`
	PosTransactionID string `json:"pos_transaction_id" binding:"max=64"`
}

// addPointsRequest points_amount 省略時由方案轉換率計算
type addPointsRequest struct {
	TransactionAmount decimal.Decimal  `json:"transaction_amount"`
	PointsAmount      *decimal.Decimal `json:"points_amount"`
	StoreID           string           `json:"store_id" binding:"required,uuid"`
	StaffID           string           `json:"staff_id" binding:"omitempty,uuid"`
	PosTransactionID  string           `json:"pos_transaction_id" binding:"max=64"`
}

type voidPointsRequest struct {
	PointsAmount     decimal.Decimal `json:"points_amount"`
	StoreID          string          `json:"store_id" binding:"required,uuid"`
	StaffID          string          `json:"staff_id" binding:"omitempty,uuid"`
	PosTransactionID string          `json:"pos_transaction_id" binding:"max=64"`
}

type redeemRequest struct {
	RewardID string `json:"reward_id" binding:"required,uuid"`
	StoreID  string `json:"store_id" binding:"required,uuid"`
	StaffID  string `json:"staff_id" binding:"omitempty,uuid"`
}

type expirationRequest struct {
	ExpiresAt time.Time `json:"expires_at" binding:"required"`
}

type historyQuery struct {
	HistoryLimit int `form:"history_limit" binding:"min=0,max=1000"`
}

// ===========================
// 方案請求
// ===========================

type tierRequest struct {
	Name            string          `json:"name" binding:"required,max=50"`
	PointThreshold  int             `json:"point_threshold" binding:"min=0"`
	PointMultiplier decimal.Decimal `json:"point_multiplier"`
	TierOrder       int             `json:"tier_order"`
}

type rewardRequest struct {
	Title         string     `json:"title" binding:"required,max=100"`
	Description   string     `json:"description" binding:"max=500"`
	RequiredValue int        `json:"required_value" binding:"required,min=1"`
	ValidFrom     *time.Time `json:"valid_from"`
	ValidTo       *time.Time `json:"valid_to"`
}

type createProgramRequest struct {
	BrandID        string          `json:"brand_id" binding:"required,uuid"`
	Name           string          `json:"name" binding:"required,max=100"`
	Type           string          `json:"type" binding:"required,oneof=stamp points"`
	ConversionRate decimal.Decimal `json:"points_conversion_rate"`
	HasTiers       bool            `json:"has_tiers"`
	StartDate      *time.Time      `json:"start_date"`
	EndDate        *time.Time      `json:"end_date"`
	Tiers          []tierRequest   `json:"tiers" binding:"dive"`
	Rewards        []rewardRequest `json:"rewards" binding:"dive"`
}
