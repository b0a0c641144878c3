package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackyeh168/loyalty_crm/src/internal/domain/loyalty"
	"github.com/jackyeh168/loyalty_crm/src/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ===========================
// 方案維護
// ===========================
//
// 帳本核心只讀方案；以下為讓服務可獨立運作的最小維護入口
// （建立方案、加入等級 / 獎勵、啟用切換）。品牌與門市管理不在此處。

// TierSpec 等級設定
type TierSpec struct {
	Name            string
	PointThreshold  int
	PointMultiplier decimal.Decimal
	TierOrder       int
}

// RewardSpec 獎勵設定
type RewardSpec struct {
	Title         string
	Description   string
	RequiredValue int
	ValidFrom     *time.Time
	ValidTo       *time.Time
}

// CreateProgramCommand 建立方案
type CreateProgramCommand struct {
	BrandID        string
	Name           string
	Type           string // stamp / points
	ConversionRate decimal.Decimal
	HasTiers       bool
	StartDate      *time.Time
	EndDate        *time.Time
	Tiers          []TierSpec
	Rewards        []RewardSpec
}

// RewardResult 獎勵
type RewardResult struct {
	RewardID      string
	Title         string
	Description   string
	RequiredValue int
	ValidFrom     *time.Time
	ValidTo       *time.Time
	IsActive      bool
}

// ProgramResult 方案
type ProgramResult struct {
	ProgramID      string
	BrandID        string
	Name           string
	Type           string
	ConversionRate decimal.Decimal
	HasTiers       bool
	IsActive       bool
	StartDate      *time.Time
	EndDate        *time.Time
	Tiers          []TierResult
	Rewards        []RewardResult
}

// CreateProgram 建立方案（含初始等級與獎勵）
//
// 啟用等級制度時檢查等級階梯（門檻依 TierOrder 嚴格遞增）。
func (s *Service) CreateProgram(ctx context.Context, cmd CreateProgramCommand) (*ProgramResult, error) {
	const op = "create program"

	brandID, err := loyalty.BrandIDFromString(cmd.BrandID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	program, err := loyalty.NewLoyaltyProgram(
		brandID, cmd.Name, loyalty.ProgramType(cmd.Type), cmd.ConversionRate,
		cmd.HasTiers, cmd.StartDate, cmd.EndDate,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := applySpecs(program, cmd.Tiers, cmd.Rewards); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err = s.txManager.InTransaction(ctx, func(txCtx shared.TransactionContext) error {
		return s.programRepo.Save(txCtx, program)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Info("program_created",
		zap.String("program_id", program.ProgramID().String()),
		zap.String("program_type", program.Type().String()),
	)
	return toProgramResult(program), nil
}

// GetProgram 查詢方案
func (s *Service) GetProgram(ctx context.Context, programID string) (*ProgramResult, error) {
	id, err := loyalty.ProgramIDFromString(programID)
	if err != nil {
		return nil, fmt.Errorf("get program: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	program, err := s.programRepo.FindByID(nil, id)
	if err != nil {
		return nil, fmt.Errorf("get program: %w", err)
	}
	return toProgramResult(program), nil
}

// AddProgramTier 加入等級
func (s *Service) AddProgramTier(ctx context.Context, programID string, spec TierSpec) (*ProgramResult, error) {
	return s.updateProgram(ctx, "add program tier", programID, func(p *loyalty.LoyaltyProgram) error {
		return applySpecs(p, []TierSpec{spec}, nil)
	})
}

// AddProgramReward 加入獎勵
func (s *Service) AddProgramReward(ctx context.Context, programID string, spec RewardSpec) (*ProgramResult, error) {
	return s.updateProgram(ctx, "add program reward", programID, func(p *loyalty.LoyaltyProgram) error {
		return applySpecs(p, nil, []RewardSpec{spec})
	})
}

// SetProgramActive 啟用 / 停用方案
func (s *Service) SetProgramActive(ctx context.Context, programID string, active bool) (*ProgramResult, error) {
	return s.updateProgram(ctx, "set program active", programID, func(p *loyalty.LoyaltyProgram) error {
		if active {
			p.Activate()
		} else {
			p.Deactivate()
		}
		return nil
	})
}

// SetTiersEnabled 啟用 / 停用等級制度
//
// 停用時保留等級資料，GetCard 不再回報等級；重新啟用時檢查門檻是否遞增。
func (s *Service) SetTiersEnabled(ctx context.Context, programID string, enabled bool) (*ProgramResult, error) {
	return s.updateProgram(ctx, "set tiers enabled", programID, func(p *loyalty.LoyaltyProgram) error {
		if !enabled {
			p.DisableTiers()
			return nil
		}
		p.EnableTiers()
		return p.ValidateTierLadder()
	})
}

// SetRewardActive 啟用 / 停用獎勵
func (s *Service) SetRewardActive(ctx context.Context, programID, rewardID string, active bool) (*ProgramResult, error) {
	rid, err := loyalty.RewardIDFromString(rewardID)
	if err != nil {
		return nil, fmt.Errorf("set reward active: %w", err)
	}
	return s.updateProgram(ctx, "set reward active", programID, func(p *loyalty.LoyaltyProgram) error {
		reward, ok := p.FindReward(rid)
		if !ok {
			return loyalty.ErrRewardNotFound.WithContext("program_id", programID, "reward_id", rewardID)
		}
		if active {
			reward.Activate()
		} else {
			reward.Deactivate()
		}
		return nil
	})
}

func (s *Service) updateProgram(ctx context.Context, op, programID string, apply func(*loyalty.LoyaltyProgram) error) (*ProgramResult, error) {
	id, err := loyalty.ProgramIDFromString(programID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var program *loyalty.LoyaltyProgram
	err = s.txManager.InTransaction(ctx, func(txCtx shared.TransactionContext) error {
		p, err := s.programRepo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		if err := apply(p); err != nil {
			return err
		}
		if err := s.programRepo.Update(txCtx, p); err != nil {
			return err
		}
		program = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Info("program_updated", zap.String("operation", op), zap.String("program_id", programID))
	return toProgramResult(program), nil
}

func applySpecs(program *loyalty.LoyaltyProgram, tiers []TierSpec, rewards []RewardSpec) error {
	for _, t := range tiers {
		if _, err := program.CreateTier(t.Name, t.PointThreshold, t.PointMultiplier, t.TierOrder); err != nil {
			return err
		}
	}
	if program.HasTiers() && len(tiers) > 0 {
		if err := program.ValidateTierLadder(); err != nil {
			return err
		}
	}
	for _, r := range rewards {
		if _, err := program.CreateReward(r.Title, r.Description, r.RequiredValue, r.ValidFrom, r.ValidTo); err != nil {
			return err
		}
	}
	return nil
}

func toProgramResult(program *loyalty.LoyaltyProgram) *ProgramResult {
	result := &ProgramResult{
		ProgramID:      program.ProgramID().String(),
		BrandID:        program.BrandID().String(),
		Name:           program.Name(),
		Type:           program.Type().String(),
		ConversionRate: program.PointsConversionRate(),
		HasTiers:       program.HasTiers(),
		IsActive:       program.IsActive(),
		StartDate:      program.StartDate(),
		EndDate:        program.EndDate(),
	}
	for _, tier := range program.Tiers() {
		result.Tiers = append(result.Tiers, *toTierResult(tier))
	}
	for _, r := range program.Rewards() {
		result.Rewards = append(result.Rewards, RewardResult{
			RewardID:      r.RewardID().String(),
			Title:         r.Title(),
			Description:   r.Description(),
			RequiredValue: r.RequiredValue(),
			ValidFrom:     r.ValidFrom(),
			ValidTo:       r.ValidTo(),
			IsActive:      r.IsActive(),
		})
	}
	return result
}
