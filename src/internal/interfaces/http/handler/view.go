package handler

import (
	"time"

	"github.com/jackyeh168/loyalty_crm/src/internal/application/ledger"
	"github.com/shopspring/decimal"
)

// ===========================
// 回應資料
// ===========================

type transactionView struct {
	TransactionID     string          `json:"transaction_id"`
	Type              string          `json:"type"`
	Quantity          int             `json:"quantity"`
	PointsAmount      decimal.Decimal `json:"points_amount"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	RewardID          string          `json:"reward_id,omitempty"`
	RedeemedValue     int             `json:"redeemed_value"`
	StoreID           string          `json:"store_id"`
	StaffID           string          `json:"staff_id,omitempty"`
	PosTransactionID  string          `json:"pos_transaction_id,omitempty"`
	Timestamp         time.Time       `json:"timestamp"`
}

type cardView struct {
	CardID          string           `json:"card_id"`
	ProgramID       string           `json:"program_id"`
	CustomerID      string           `json:"customer_id"`
	Type            string           `json:"type"`
	StampsCollected int              `json:"stamps_collected"`
	PointsBalance   decimal.Decimal  `json:"points_balance"`
	Status          string           `json:"status"`
	QRCode          string           `json:"qr_code"`
	ExpiresAt       *time.Time       `json:"expires_at,omitempty"`
	Version         int              `json:"version"`
	Transaction     *transactionView `json:"transaction,omitempty"`
}

type tierView struct {
	TierID          string          `json:"tier_id"`
	Name            string          `json:"name"`
	PointThreshold  int             `json:"point_threshold"`
	PointMultiplier decimal.Decimal `json:"point_multiplier"`
}

type cardDetailView struct {
	cardView
	Tier              *tierView         `json:"tier,omitempty"`
	StampsIssuedToday int               `json:"stamps_issued_today"`
	LedgerConsistent  bool              `json:"ledger_consistent"`
	History           []transactionView `json:"history"`
}

type rewardView struct {
	RewardID      string     `json:"reward_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	RequiredValue int        `json:"required_value"`
	ValidFrom     *time.Time `json:"valid_from,omitempty"`
	ValidTo       *time.Time `json:"valid_to,omitempty"`
	IsActive      bool       `json:"is_active"`
}

type programView struct {
	ProgramID      string          `json:"program_id"`
	BrandID        string          `json:"brand_id"`
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	ConversionRate decimal.Decimal `json:"points_conversion_rate"`
	HasTiers       bool            `json:"has_tiers"`
	IsActive       bool            `json:"is_active"`
	StartDate      *time.Time      `json:"start_date,omitempty"`
	EndDate        *time.Time      `json:"end_date,omitempty"`
	Tiers          []tierView      `json:"tiers"`
	Rewards        []rewardView    `json:"rewards"`
}

func newTransactionView(r ledger.TransactionResult) transactionView {
	return transactionView{
		TransactionID:     r.TransactionID,
		Type:              r.Type,
		Quantity:          r.Quantity,
		PointsAmount:      r.PointsAmount,
		TransactionAmount: r.TransactionAmount,
		RewardID:          r.RewardID,
		RedeemedValue:     r.RedeemedValue,
		StoreID:           r.StoreID,
		StaffID:           r.StaffID,
		PosTransactionID:  r.PosTransactionID,
		Timestamp:         r.Timestamp,
	}
}

func newCardView(r *ledger.CardResult) cardView {
	view := cardView{
		CardID:          r.CardID,
		ProgramID:       r.ProgramID,
		CustomerID:      r.CustomerID,
		Type:            r.Type,
		StampsCollected: r.StampsCollected,
		PointsBalance:   r.PointsBalance,
		Status:          r.Status,
		QRCode:          r.QRCode,
		ExpiresAt:       r.ExpiresAt,
		Version:         r.Version,
	}
	if r.Transaction != nil {
		tx := newTransactionView(*r.Transaction)
		view.Transaction = &tx
	}
	return view
}

func newTierView(r ledger.TierResult) tierView {
	return tierView{
		TierID:          r.TierID,
		Name:            r.Name,
		PointThreshold:  r.PointThreshold,
		PointMultiplier: r.PointMultiplier,
	}
}

func newCardDetailView(r *ledger.CardDetailResult) cardDetailView {
	view := cardDetailView{
		cardView:          newCardView(&r.CardResult),
		StampsIssuedToday: r.StampsIssuedToday,
		LedgerConsistent:  r.LedgerConsistent,
		History:           make([]transactionView, 0, len(r.History)),
	}
	if r.Tier != nil {
		tier := newTierView(*r.Tier)
		view.Tier = &tier
	}
	for _, tx := range r.History {
		view.History = append(view.History, newTransactionView(tx))
	}
	return view
}

func newProgramView(r *ledger.ProgramResult) programView {
	view := programView{
		ProgramID:      r.ProgramID,
		BrandID:        r.BrandID,
		Name:           r.Name,
		Type:           r.Type,
		ConversionRate: r.ConversionRate,
		HasTiers:       r.HasTiers,
		IsActive:       r.IsActive,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		Tiers:          make([]tierView, 0, len(r.Tiers)),
		Rewards:        make([]rewardView, 0, len(r.Rewards)),
	}
	for _, t := range r.Tiers {
		view.Tiers = append(view.Tiers, newTierView(t))
	}
	for _, rw := range r.Rewards {
		view.Rewards = append(view.Rewards, rewardView{
			RewardID:      rw.RewardID,
			Title:         rw.Title,
			Description:   rw.Description,
			RequiredValue: rw.RequiredValue,
			ValidFrom:     rw.ValidFrom,
			ValidTo:       rw.ValidTo,
			IsActive:      rw.IsActive,
		})
	}
	return view
}
