package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackyeh168/loyalty_crm/src/internal/domain/loyalty"
	"github.com/jackyeh168/loyalty_crm/src/internal/domain/shared"
	"go.uber.org/zap"
)

// ===========================
// 開卡
// ===========================

// EnrollCustomer 顧客加入方案
//
// 錯誤：
// - ErrProgramNotFound / ErrProgramInactive
// - ErrCardAlreadyExists: 同一顧客在同一方案已有卡片（由唯一約束保證，不做 check-then-insert）
func (s *Service) EnrollCustomer(ctx context.Context, cmd EnrollCustomerCommand) (*CardResult, error) {
	const op = "enroll customer"

	programID, err := loyalty.ProgramIDFromString(cmd.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	customerID, err := loyalty.CustomerIDFromString(cmd.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var card *loyalty.LoyaltyCard
	err = s.txManager.InTransaction(ctx, func(txCtx shared.TransactionContext) error {
		program, err := s.programRepo.FindByID(txCtx, programID)
		if err != nil {
			return err
		}
		c, err := loyalty.NewLoyaltyCard(program, customerID)
		if err != nil {
			return err
		}
		if err := s.cardRepo.Save(txCtx, c); err != nil {
			return err
		}
		card = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Info("ledger_command_committed",
		zap.String("operation", op),
		zap.String("card_id", card.CardID().String()),
		zap.String("program_id", programID.String()),
	)
	s.dispatch(op, card.PullEvents())
	return toCardResult(card, nil), nil
}

// ===========================
// 餘額命令
// ===========================

// IssueStamps 發放印章
//
// 所有卡片命令在呼叫卡片方法前確認卡片與方案類型一致，否則 ErrProgramTypeMismatch。
func (s *Service) IssueStamps(ctx context.Context, cmd IssueStampsCommand) (*CardResult, error) {
	const op = "issue stamps"

	cardID, refs, err := parseCardRefs(cmd.CardID, cmd.StoreID, cmd.StaffID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.mutateCard(ctx, op, cardID, func(card *loyalty.LoyaltyCard, _ *loyalty.LoyaltyProgram) (*loyalty.Transaction, error) {
		return card.IssueStamps(cmd.Quantity, refs.storeID, refs.staffID, cmd.PosTransactionID)
	})
}

// AddPoints 累積積分
//
// 積分卡的方案必須為啟用狀態（IsValidForPointsIssuance），否則 ErrProgramInactive。
// 未指定 PointsAmount 時以 CalculatePoints(TransactionAmount) 計算（無條件捨去），
// 計算結果為 0 時由卡片返回 ErrInvalidPointsAmount。
func (s *Service) AddPoints(ctx context.Context, cmd AddPointsCommand) (*CardResult, error) {
	const op = "add points"

	cardID, refs, err := parseCardRefs(cmd.CardID, cmd.StoreID, cmd.StaffID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.mutateCard(ctx, op, cardID, func(card *loyalty.LoyaltyCard, program *loyalty.LoyaltyProgram) (*loyalty.Transaction, error) {
		points := cmd.PointsAmount
		if card.Type() == loyalty.ProgramTypePoints {
			if !program.IsValidForPointsIssuance(cmd.TransactionAmount) {
				return nil, loyalty.ErrProgramInactive.WithContext(
					"card_id", card.CardID().String(),
					"program_id", program.ProgramID().String(),
				)
			}
			if points.IsZero() {
				points = program.CalculatePoints(cmd.TransactionAmount)
			}
		}
		return card.AddPoints(points, cmd.TransactionAmount, refs.storeID, refs.staffID, cmd.PosTransactionID)
	})
}

// RedeemReward 兌換獎勵
//
// 獎勵只在卡片所屬方案中查找，找不到返回 ErrRewardNotFound。
func (s *Service) RedeemReward(ctx context.Context, cmd RedeemRewardCommand) (*CardResult, error) {
	const op = "redeem reward"

	cardID, refs, err := parseCardRefs(cmd.CardID, cmd.StoreID, cmd.StaffID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rewardID, err := loyalty.RewardIDFromString(cmd.RewardID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.mutateCard(ctx, op, cardID, func(card *loyalty.LoyaltyCard, program *loyalty.LoyaltyProgram) (*loyalty.Transaction, error) {
		reward, ok := program.FindReward(rewardID)
		if !ok {
			return nil, loyalty.ErrRewardNotFound.WithContext(
				"card_id", card.CardID().String(),
				"reward_id", rewardID.String(),
			)
		}
		return card.RedeemReward(reward, refs.storeID, refs.staffID)
	})
}

// VoidStamps 作廢印章（更正誤發）
func (s *Service) VoidStamps(ctx context.Context, cmd VoidStampsCommand) (*CardResult, error) {
	const op = "void stamps"

	cardID, refs, err := parseCardRefs(cmd.CardID, cmd.StoreID, cmd.StaffID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.mutateCard(ctx, op, cardID, func(card *loyalty.LoyaltyCard, _ *loyalty.LoyaltyProgram) (*loyalty.Transaction, error) {
		return card.VoidStamps(cmd.Quantity, refs.storeID, refs.staffID, cmd.PosTransactionID)
	})
}

// VoidPoints 作廢積分
func (s *Service) VoidPoints(ctx context.Context, cmd VoidPointsCommand) (*CardResult, error) {
	const op = "void points"

	cardID, refs, err := parseCardRefs(cmd.CardID, cmd.StoreID, cmd.StaffID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.mutateCard(ctx, op, cardID, func(card *loyalty.LoyaltyCard, _ *loyalty.LoyaltyProgram) (*loyalty.Transaction, error) {
		return card.VoidPoints(cmd.PointsAmount, refs.storeID, refs.staffID, cmd.PosTransactionID)
	})
}

// ===========================
// 狀態命令
// ===========================

// SuspendCard 停用卡片
func (s *Service) SuspendCard(ctx context.Context, cardID string) (*CardResult, error) {
	return s.changeStatus(ctx, "suspend card", cardID, func(card *loyalty.LoyaltyCard) error {
		return card.Suspend()
	})
}

// ReactivateCard 恢復停用中的卡片
func (s *Service) ReactivateCard(ctx context.Context, cardID string) (*CardResult, error) {
	return s.changeStatus(ctx, "reactivate card", cardID, func(card *loyalty.LoyaltyCard) error {
		return card.Reactivate()
	})
}

// ExpireCard 使卡片到期（終態）
func (s *Service) ExpireCard(ctx context.Context, cardID string) (*CardResult, error) {
	return s.changeStatus(ctx, "expire card", cardID, func(card *loyalty.LoyaltyCard) error {
		card.Expire()
		return nil
	})
}

// SetCardExpiration 設定到期日（必須晚於現在）
func (s *Service) SetCardExpiration(ctx context.Context, cmd SetCardExpirationCommand) (*CardResult, error) {
	return s.changeStatus(ctx, "set card expiration", cmd.CardID, func(card *loyalty.LoyaltyCard) error {
		return card.SetExpirationDate(cmd.ExpiresAt)
	})
}

func (s *Service) changeStatus(ctx context.Context, op, rawCardID string, apply func(*loyalty.LoyaltyCard) error) (*CardResult, error) {
	cardID, err := loyalty.CardIDFromString(rawCardID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.mutateCard(ctx, op, cardID, func(card *loyalty.LoyaltyCard, _ *loyalty.LoyaltyProgram) (*loyalty.Transaction, error) {
		return nil, apply(card)
	})
}

// ===========================
// 查詢
// ===========================

// GetCard 查詢卡片餘額、狀態、等級、今日印章數與交易紀錄
//
// LedgerConsistent 為交易重放與儲存餘額是否一致；不一致時仍返回資料，由呼叫端決定如何處理。
func (s *Service) GetCard(ctx context.Context, query GetCardQuery) (*CardDetailResult, error) {
	cardID, err := loyalty.CardIDFromString(query.CardID)
	if err != nil {
		return nil, fmt.Errorf("get card: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	card, err := s.cardRepo.FindByID(nil, cardID)
	if err != nil {
		return nil, fmt.Errorf("get card: %w", err)
	}
	return s.describe(card, query.HistoryLimit)
}

// GetCardByQRCode 以卡片 QR Code 查詢（門市掃碼）
//
// QR Code 格式錯誤返回 ErrInvalidCardID；與卡片重新推導的結果不符視為不存在。
func (s *Service) GetCardByQRCode(ctx context.Context, qrCode string, historyLimit int) (*CardDetailResult, error) {
	cardID, err := loyalty.CardIDFromQRCode(qrCode)
	if err != nil {
		return nil, fmt.Errorf("get card by qr code: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	card, err := s.cardRepo.FindByID(nil, cardID)
	if err != nil {
		return nil, fmt.Errorf("get card by qr code: %w", err)
	}
	if !card.VerifyQRCode(strings.TrimSpace(qrCode)) {
		return nil, fmt.Errorf("get card by qr code: %w", loyalty.ErrCardNotFound.WithContext("qr_code", qrCode))
	}
	return s.describe(card, historyLimit)
}

// GetCardByCustomer 依顧客與方案查詢卡片
func (s *Service) GetCardByCustomer(ctx context.Context, programID, customerID string, historyLimit int) (*CardDetailResult, error) {
	pid, err := loyalty.ProgramIDFromString(programID)
	if err != nil {
		return nil, fmt.Errorf("get card by customer: %w", err)
	}
	cid, err := loyalty.CustomerIDFromString(customerID)
	if err != nil {
		return nil, fmt.Errorf("get card by customer: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	card, err := s.cardRepo.FindByCustomerAndProgram(nil, cid, pid)
	if err != nil {
		return nil, fmt.Errorf("get card by customer: %w", err)
	}
	return s.describe(card, historyLimit)
}

func (s *Service) describe(card *loyalty.LoyaltyCard, historyLimit int) (*CardDetailResult, error) {
	result := &CardDetailResult{
		CardResult:        *toCardResult(card, nil),
		StampsIssuedToday: card.GetStampsIssuedToday(),
		LedgerConsistent:  card.VerifyLedger() == nil,
	}
	if !result.LedgerConsistent {
		s.logger.Error("ledger_mismatch_detected",
			zap.String("card_id", card.CardID().String()),
			zap.Int("stamps_collected", card.StampsCollected()),
			zap.String("points_balance", card.PointsBalance().String()),
		)
	}

	if card.Type() == loyalty.ProgramTypePoints {
		program, err := s.programRepo.FindByID(nil, card.ProgramID())
		if err != nil {
			return nil, fmt.Errorf("get card: %w", err)
		}
		result.Tier = toTierResult(program.GetTierForPoints(card.PointsBalance()))
	}

	txs := card.Transactions()
	result.History = make([]TransactionResult, 0, len(txs))
	for i := len(txs) - 1; i >= 0; i-- {
		if historyLimit > 0 && len(result.History) >= historyLimit {
			break
		}
		result.History = append(result.History, toTransactionResult(txs[i]))
	}
	return result, nil
}

// ===========================
// 輔助
// ===========================

type storeRefs struct {
	storeID loyalty.StoreID
	staffID loyalty.StaffID
}

// parseCardRefs 解析卡片、門市、員工 ID
//
// 門市 ID 空字串不在此擋下，交給卡片回報 ErrMissingStore（含操作與卡片上下文）。
func parseCardRefs(rawCardID, rawStoreID, rawStaffID string) (loyalty.CardID, storeRefs, error) {
	cardID, err := loyalty.CardIDFromString(rawCardID)
	if err != nil {
		return loyalty.CardID{}, storeRefs{}, err
	}
	storeID, err := loyalty.StoreIDFromString(rawStoreID)
	if err != nil {
		return loyalty.CardID{}, storeRefs{}, err
	}
	staffID, err := loyalty.StaffIDFromString(rawStaffID)
	if err != nil {
		return loyalty.CardID{}, storeRefs{}, err
	}
	return cardID, storeRefs{storeID: storeID, staffID: staffID}, nil
}
