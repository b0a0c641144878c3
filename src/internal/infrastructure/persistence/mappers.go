package persistence

import (
	"github.com/jackyeh168/loyalty_crm/src/internal/domain/loyalty"
)

// ===========================
// Domain ↔ GORM Model 轉換函數
// ===========================
//
// toXxxDomain 一律經由 loyalty.ReconstructXxx 重建：
// 不重跑業務驗證、不發布事件，只檢查資料損壞。
// toXxxModel 為單向轉換，聚合已保證資料有效。

// ---------- Card ----------

func toCardDomain(model *LoyaltyCardModel, txModels []LoyaltyTransactionModel) (*loyalty.LoyaltyCard, error) {
	cardID, err := loyalty.CardIDFromString(model.ID)
	if err != nil {
		return nil, err
	}
	programID, err := loyalty.ProgramIDFromString(model.ProgramID)
	if err != nil {
		return nil, loyalty.ErrCorruptedCard.WithContext("card_id", model.ID, "program_id", model.ProgramID)
	}
	customerID, err := loyalty.CustomerIDFromString(model.CustomerID)
	if err != nil {
		return nil, loyalty.ErrCorruptedCard.WithContext("card_id", model.ID, "customer_id", model.CustomerID)
	}

	txs := make([]*loyalty.Transaction, 0, len(txModels))
	for i := range txModels {
		tx, err := toTransactionDomain(&txModels[i])
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}

	return loyalty.ReconstructLoyaltyCard(
		cardID,
		programID,
		customerID,
		loyalty.ProgramType(model.Type),
		model.StampsCollected,
		model.PointsBalance,
		loyalty.CardStatus(model.Status),
		model.QRCode,
		model.ExpiresAt,
		model.CreatedAt,
		model.UpdatedAt,
		model.Version,
		txs,
	)
}

func toCardModel(card *loyalty.LoyaltyCard) *LoyaltyCardModel {
	return &LoyaltyCardModel{
		ID:              card.CardID().String(),
		ProgramID:       card.ProgramID().String(),
		CustomerID:      card.CustomerID().String(),
		Type:            card.Type().String(),
		StampsCollected: card.StampsCollected(),
		PointsBalance:   card.PointsBalance(),
		Status:          card.Status().String(),
		QRCode:          card.QRCode(),
		ExpiresAt:       card.ExpiresAt(),
		Version:         card.Version(),
		CreatedAt:       card.CreatedAt(),
		UpdatedAt:       card.UpdatedAt(),
	}
}

// cardUpdateColumns Update 使用的欄位（map 形式，零值也會寫入）
func cardUpdateColumns(card *loyalty.LoyaltyCard, nextVersion int) map[string]interface{} {
	return map[string]interface{}{
		"stamps_collected": card.StampsCollected(),
		"points_balance":   card.PointsBalance(),
		"status":           card.Status().String(),
		"expires_at":       card.ExpiresAt(),
		"version":          nextVersion,
		"updated_at":       card.UpdatedAt(),
	}
}

// ---------- Transaction ----------

func toTransactionDomain(model *LoyaltyTransactionModel) (*loyalty.Transaction, error) {
	txID, err := loyalty.TransactionIDFromString(model.ID)
	if err != nil {
		return nil, err
	}
	cardID, err := loyalty.CardIDFromString(model.CardID)
	if err != nil {
		return nil, loyalty.ErrCorruptedCard.WithContext("transaction_id", model.ID, "card_id", model.CardID)
	}
	rewardID, err := loyalty.OptionalRewardIDFromString(model.RewardID)
	if err != nil {
		return nil, loyalty.ErrCorruptedCard.WithContext("transaction_id", model.ID, "reward_id", model.RewardID)
	}
	storeID, err := loyalty.StoreIDFromString(model.StoreID)
	if err != nil {
		return nil, loyalty.ErrCorruptedCard.WithContext("transaction_id", model.ID, "store_id", model.StoreID)
	}
	staffID, err := loyalty.StaffIDFromString(model.StaffID)
	if err != nil {
		return nil, loyalty.ErrCorruptedCard.WithContext("transaction_id", model.ID, "staff_id", model.StaffID)
	}

	return loyalty.ReconstructTransaction(
		txID,
		cardID,
		loyalty.TransactionType(model.Type),
		model.Quantity,
		model.PointsAmount,
		model.TransactionAmount,
		rewardID,
		model.RedeemedValue,
		storeID,
		staffID,
		model.PosTransactionID,
		model.Timestamp,
	)
}

func toTransactionModel(tx *loyalty.Transaction, sequence int) *LoyaltyTransactionModel {
	return &LoyaltyTransactionModel{
		ID:                tx.TransactionID().String(),
		CardID:            tx.CardID().String(),
		Sequence:          sequence,
		Type:              tx.Type().String(),
		Quantity:          tx.Quantity(),
		PointsAmount:      tx.PointsAmount(),
		TransactionAmount: tx.TransactionAmount(),
		RewardID:          tx.RewardID().String(),
		RedeemedValue:     tx.RedeemedValue(),
		StoreID:           tx.StoreID().String(),
		StaffID:           tx.StaffID().String(),
		PosTransactionID:  tx.PosTransactionID(),
		Timestamp:         tx.Timestamp(),
	}
}

// ---------- Program ----------

func toProgramDomain(model *LoyaltyProgramModel) (*loyalty.LoyaltyProgram, error) {
	programID, err := loyalty.ProgramIDFromString(model.ID)
	if err != nil {
		return nil, err
	}
	brandID, err := loyalty.BrandIDFromString(model.BrandID)
	if err != nil {
		return nil, err
	}

	tiers := make([]*loyalty.LoyaltyTier, 0, len(model.Tiers))
	for i := range model.Tiers {
		tier, err := toTierDomain(&model.Tiers[i])
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, tier)
	}
	rewards := make([]*loyalty.Reward, 0, len(model.Rewards))
	for i := range model.Rewards {
		reward, err := toRewardDomain(&model.Rewards[i])
		if err != nil {
			return nil, err
		}
		rewards = append(rewards, reward)
	}

	return loyalty.ReconstructLoyaltyProgram(
		programID,
		brandID,
		model.Name,
		loyalty.ProgramType(model.Type),
		model.PointsConversionRate,
		model.HasTiers,
		model.StartDate,
		model.EndDate,
		model.IsActive,
		model.CreatedAt,
		model.UpdatedAt,
		tiers,
		rewards,
	)
}

// toProgramModel 方案欄位（不含子集合，子集合由 toTierModels / toRewardModels 轉換）
func toProgramModel(program *loyalty.LoyaltyProgram) *LoyaltyProgramModel {
	return &LoyaltyProgramModel{
		ID:                   program.ProgramID().String(),
		BrandID:              program.BrandID().String(),
		Name:                 program.Name(),
		Type:                 program.Type().String(),
		PointsConversionRate: program.PointsConversionRate(),
		HasTiers:             program.HasTiers(),
		StartDate:            program.StartDate(),
		EndDate:              program.EndDate(),
		IsActive:             program.IsActive(),
		CreatedAt:            program.CreatedAt(),
		UpdatedAt:            program.UpdatedAt(),
	}
}

func toTierDomain(model *LoyaltyTierModel) (*loyalty.LoyaltyTier, error) {
	tierID, err := loyalty.TierIDFromString(model.ID)
	if err != nil {
		return nil, err
	}
	programID, err := loyalty.ProgramIDFromString(model.ProgramID)
	if err != nil {
		return nil, err
	}
	return loyalty.ReconstructLoyaltyTier(
		tierID, programID, model.Name, model.PointThreshold, model.PointMultiplier, model.TierOrder,
	)
}

func toTierModels(program *loyalty.LoyaltyProgram) []LoyaltyTierModel {
	tiers := program.Tiers()
	out := make([]LoyaltyTierModel, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, LoyaltyTierModel{
			ID:              t.TierID().String(),
			ProgramID:       t.ProgramID().String(),
			Name:            t.Name(),
			PointThreshold:  t.PointThreshold(),
			PointMultiplier: t.PointMultiplier(),
			TierOrder:       t.TierOrder(),
		})
	}
	return out
}

func toRewardDomain(model *RewardModel) (*loyalty.Reward, error) {
	rewardID, err := loyalty.RewardIDFromString(model.ID)
	if err != nil {
		return nil, err
	}
	programID, err := loyalty.ProgramIDFromString(model.ProgramID)
	if err != nil {
		return nil, err
	}
	return loyalty.ReconstructReward(
		rewardID, programID, model.Title, model.Description, model.RequiredValue,
		model.ValidFrom, model.ValidTo, model.IsActive,
	)
}

func toRewardModels(program *loyalty.LoyaltyProgram) []RewardModel {
	rewards := program.Rewards()
	out := make([]RewardModel, 0, len(rewards))
	for _, r := range rewards {
		out = append(out, RewardModel{
			ID:            r.RewardID().String(),
			ProgramID:     r.ProgramID().String(),
			Title:         r.Title(),
			Description:   r.Description(),
			RequiredValue: r.RequiredValue(),
			ValidFrom:     r.ValidFrom(),
			ValidTo:       r.ValidTo(),
			IsActive:      r.IsActive(),
		})
	}
	return out
}
