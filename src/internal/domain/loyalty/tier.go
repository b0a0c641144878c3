package loyalty

import (
	"strings"

	"github.com/shopspring/decimal"
)

// LoyaltyTier 會員等級
//
// 等級存在於方案的集合中；programID 只是歸屬參照。
// TierOrder 決定門檻相同時的優先順序（數值大者優先）。
type LoyaltyTier struct {
	tierID          TierID
	programID       ProgramID
	name            string
	pointThreshold  int
	pointMultiplier decimal.Decimal
	tierOrder       int
}

// NewLoyaltyTier 建立新等級
//
// 建構約束：name 非空、pointThreshold >= 0、pointMultiplier > 0
func NewLoyaltyTier(
	programID ProgramID,
	name string,
	pointThreshold int,
	pointMultiplier decimal.Decimal,
	tierOrder int,
) (*LoyaltyTier, error) {
	return ReconstructLoyaltyTier(NewTierID(), programID, name, pointThreshold, pointMultiplier, tierOrder)
}

// ReconstructLoyaltyTier 從持久化存儲重建等級
func ReconstructLoyaltyTier(
	tierID TierID,
	programID ProgramID,
	name string,
	pointThreshold int,
	pointMultiplier decimal.Decimal,
	tierOrder int,
) (*LoyaltyTier, error) {
	if tierID.IsEmpty() {
		return nil, ErrInvalidTierID.WithContext("reason", "tier id cannot be empty")
	}
	if programID.IsEmpty() {
		return nil, ErrInvalidProgramID.WithContext("reason", "tier must belong to a program")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidTier.WithContext("reason", "name cannot be empty")
	}
	if pointThreshold < 0 {
		return nil, ErrInvalidTier.WithContext("point_threshold", pointThreshold)
	}
	if !pointMultiplier.IsPositive() {
		return nil, ErrInvalidTier.WithContext("point_multiplier", pointMultiplier.String())
	}

	return &LoyaltyTier{
		tierID:          tierID,
		programID:       programID,
		name:            name,
		pointThreshold:  pointThreshold,
		pointMultiplier: pointMultiplier,
		tierOrder:       tierOrder,
	}, nil
}

func (t *LoyaltyTier) TierID() TierID                   { return t.tierID }
func (t *LoyaltyTier) ProgramID() ProgramID             { return t.programID }
func (t *LoyaltyTier) Name() string                     { return t.name }
func (t *LoyaltyTier) PointThreshold() int              { return t.pointThreshold }
func (t *LoyaltyTier) PointMultiplier() decimal.Decimal { return t.pointMultiplier }
func (t *LoyaltyTier) TierOrder() int                   { return t.tierOrder }
