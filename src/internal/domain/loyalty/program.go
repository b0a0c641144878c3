package loyalty

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ===========================
// LoyaltyProgram 會員方案
// ===========================

// LoyaltyProgram 品牌定義的會員方案
//
// 職責：
// - 定義方案類型（集點 / 積分）與積分轉換率
// - 持有等級（Tiers）與獎勵（Rewards）集合
// - 消費金額換算積分、積分對應等級
//
// 方案以讀取為主：日常操作不修改方案；
// 非法的修改（如加入其他方案的等級）保持原狀，不返回錯誤。
type LoyaltyProgram struct {
	programID            ProgramID
	brandID              BrandID
	name                 string
	programType          ProgramType
	pointsConversionRate decimal.Decimal // 每單位消費金額可得積分，僅積分制有意義
	hasTiers             bool
	tiers                []*LoyaltyTier // 依 TierOrder 排序
	rewards              []*Reward
	startDate            *time.Time
	endDate              *time.Time
	isActive             bool
	createdAt            time.Time
	updatedAt            time.Time
}

// NewLoyaltyProgram 建立新方案（預設啟用）
//
// 建構約束：
// - brandID 不可為空
// - programType 必須為 stamp 或 points
// - 積分制的 conversionRate 必須 > 0；集點制忽略轉換率（存為 0）
// - startDate 不得晚於 endDate
func NewLoyaltyProgram(
	brandID BrandID,
	name string,
	programType ProgramType,
	conversionRate decimal.Decimal,
	hasTiers bool,
	startDate *time.Time,
	endDate *time.Time,
) (*LoyaltyProgram, error) {
	if brandID.IsEmpty() {
		return nil, ErrInvalidBrandID.WithContext("reason", "brand id cannot be empty")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidProgram.WithContext("reason", "name cannot be empty")
	}
	if !programType.IsValid() {
		return nil, ErrInvalidProgram.WithContext("program_type", string(programType))
	}
	if programType == ProgramTypePoints && !conversionRate.IsPositive() {
		return nil, ErrInvalidProgram.WithContext("points_conversion_rate", conversionRate.String())
	}
	if programType == ProgramTypeStamp {
		conversionRate = decimal.Zero
	}
	if startDate != nil && endDate != nil && startDate.After(*endDate) {
		return nil, ErrInvalidProgram.WithContext(
			"start_date", startDate.Format(time.RFC3339),
			"end_date", endDate.Format(time.RFC3339),
		)
	}

	ts := now()
	return &LoyaltyProgram{
		programID:            NewProgramID(),
		brandID:              brandID,
		name:                 name,
		programType:          programType,
		pointsConversionRate: conversionRate,
		hasTiers:             hasTiers,
		tiers:                make([]*LoyaltyTier, 0),
		rewards:              make([]*Reward, 0),
		startDate:            copyTime(startDate),
		endDate:              copyTime(endDate),
		isActive:             true,
		createdAt:            ts,
		updatedAt:            ts,
	}, nil
}

// ReconstructLoyaltyProgram 從持久化存儲重建方案
//
// 僅檢查 ID 與類型，不重跑 NewLoyaltyProgram 的業務驗證。
// 不屬於此方案的等級 / 獎勵會被忽略。
func ReconstructLoyaltyProgram(
	programID ProgramID,
	brandID BrandID,
	name string,
	programType ProgramType,
	conversionRate decimal.Decimal,
	hasTiers bool,
	startDate *time.Time,
	endDate *time.Time,
	isActive bool,
	createdAt time.Time,
	updatedAt time.Time,
	tiers []*LoyaltyTier,
	rewards []*Reward,
) (*LoyaltyProgram, error) {
	if programID.IsEmpty() {
		return nil, ErrInvalidProgramID.WithContext("reason", "invalid program id in database")
	}
	if !programType.IsValid() {
		return nil, ErrInvalidProgram.WithContext(
			"program_id", programID.String(),
			"program_type", string(programType),
		)
	}

	p := &LoyaltyProgram{
		programID:            programID,
		brandID:              brandID,
		name:                 name,
		programType:          programType,
		pointsConversionRate: conversionRate,
		hasTiers:             hasTiers,
		tiers:                make([]*LoyaltyTier, 0, len(tiers)),
		rewards:              make([]*Reward, 0, len(rewards)),
		startDate:            copyTime(startDate),
		endDate:              copyTime(endDate),
		isActive:             isActive,
		createdAt:            createdAt,
		updatedAt:            updatedAt,
	}
	for _, t := range tiers {
		p.AddTier(t)
	}
	for _, r := range rewards {
		p.AddReward(r)
	}
	return p, nil
}

// ===========================
// 查詢方法
// ===========================

func (p *LoyaltyProgram) ProgramID() ProgramID                  { return p.programID }
func (p *LoyaltyProgram) BrandID() BrandID                      { return p.brandID }
func (p *LoyaltyProgram) Name() string                          { return p.name }
func (p *LoyaltyProgram) Type() ProgramType                     { return p.programType }
func (p *LoyaltyProgram) PointsConversionRate() decimal.Decimal { return p.pointsConversionRate }
func (p *LoyaltyProgram) HasTiers() bool                        { return p.hasTiers }
func (p *LoyaltyProgram) IsActive() bool                        { return p.isActive }
func (p *LoyaltyProgram) StartDate() *time.Time                 { return copyTime(p.startDate) }
func (p *LoyaltyProgram) EndDate() *time.Time                   { return copyTime(p.endDate) }
func (p *LoyaltyProgram) CreatedAt() time.Time                  { return p.createdAt }
func (p *LoyaltyProgram) UpdatedAt() time.Time                  { return p.updatedAt }

// Tiers 依 TierOrder 排序的等級（返回副本切片）
func (p *LoyaltyProgram) Tiers() []*LoyaltyTier {
	out := make([]*LoyaltyTier, len(p.tiers))
	copy(out, p.tiers)
	return out
}

// Rewards 獎勵列表（返回副本切片）
func (p *LoyaltyProgram) Rewards() []*Reward {
	out := make([]*Reward, len(p.rewards))
	copy(out, p.rewards)
	return out
}

// FindReward 依 ID 查找獎勵
func (p *LoyaltyProgram) FindReward(rewardID RewardID) (*Reward, bool) {
	for _, r := range p.rewards {
		if r.rewardID.Equals(rewardID) {
			return r, true
		}
	}
	return nil, false
}

// ===========================
// 業務計算
// ===========================

// CalculatePoints 消費金額換算積分
//
// 業務規則：points = floor(amount × PointsConversionRate)
// - 一律向下截斷，不四捨五入（避免多給積分）
// - 負數金額返回 0
// - 集點制方案返回 0
func (p *LoyaltyProgram) CalculatePoints(amount decimal.Decimal) decimal.Decimal {
	if p.programType != ProgramTypePoints || !amount.IsPositive() {
		return decimal.Zero
	}
	return amount.Mul(p.pointsConversionRate).Floor()
}

// GetTierForPoints 積分對應的等級
//
// 規則：
// - 取 PointThreshold <= points 中門檻最高者
// - 門檻相同時 TierOrder 較大者優先
// - HasTiers = false 或低於最低門檻時返回 nil（調用者必須處理）
func (p *LoyaltyProgram) GetTierForPoints(points decimal.Decimal) *LoyaltyTier {
	if !p.hasTiers {
		return nil
	}

	var best *LoyaltyTier
	for _, t := range p.tiers {
		if decimal.NewFromInt(int64(t.pointThreshold)).GreaterThan(points) {
			continue
		}
		if best == nil ||
			t.pointThreshold > best.pointThreshold ||
			(t.pointThreshold == best.pointThreshold && t.tierOrder > best.tierOrder) {
			best = t
		}
	}
	return best
}

// IsValidForPointsIssuance 方案是否允許發放積分
//
// 目前只檢查啟用狀態；StartDate / EndDate 不參與判斷。
func (p *LoyaltyProgram) IsValidForPointsIssuance(_ decimal.Decimal) bool {
	return p.isActive
}

// ValidateTierLadder 檢查等級門檻是否依 TierOrder 嚴格遞增
//
// AddTier / CreateTier 不做去重，此方法供管理流程在發布方案前檢查。
func (p *LoyaltyProgram) ValidateTierLadder() error {
	for i := 1; i < len(p.tiers); i++ {
		prev, cur := p.tiers[i-1], p.tiers[i]
		if cur.pointThreshold <= prev.pointThreshold {
			return ErrInvalidTierLadder.WithContext(
				"program_id", p.programID.String(),
				"tier", cur.name,
				"threshold", cur.pointThreshold,
				"previous_threshold", prev.pointThreshold,
			)
		}
	}
	return nil
}

// ===========================
// 集合維護
// ===========================

// CreateTier 建立並加入新等級
func (p *LoyaltyProgram) CreateTier(
	name string,
	pointThreshold int,
	pointMultiplier decimal.Decimal,
	tierOrder int,
) (*LoyaltyTier, error) {
	tier, err := NewLoyaltyTier(p.programID, name, pointThreshold, pointMultiplier, tierOrder)
	if err != nil {
		return nil, err
	}
	p.AddTier(tier)
	return tier, nil
}

// AddTier 加入既有等級
//
// nil 或屬於其他方案的等級不會加入（返回 false）。
// 不做去重：名稱或門檻重複都允許。
func (p *LoyaltyProgram) AddTier(tier *LoyaltyTier) bool {
	if tier == nil || !tier.programID.Equals(p.programID) {
		return false
	}
	p.tiers = append(p.tiers, tier)
	sort.SliceStable(p.tiers, func(i, j int) bool {
		return p.tiers[i].tierOrder < p.tiers[j].tierOrder
	})
	p.touch()
	return true
}

// CreateReward 建立並加入新獎勵
func (p *LoyaltyProgram) CreateReward(
	title string,
	description string,
	requiredValue int,
	validFrom *time.Time,
	validTo *time.Time,
) (*Reward, error) {
	reward, err := NewReward(p.programID, title, description, requiredValue, validFrom, validTo)
	if err != nil {
		return nil, err
	}
	p.AddReward(reward)
	return reward, nil
}

// AddReward 加入既有獎勵（規則同 AddTier）
func (p *LoyaltyProgram) AddReward(reward *Reward) bool {
	if reward == nil || !reward.programID.Equals(p.programID) {
		return false
	}
	p.rewards = append(p.rewards, reward)
	p.touch()
	return true
}

// ===========================
// 狀態切換
// ===========================

// Activate 啟用方案
func (p *LoyaltyProgram) Activate() {
	if p.isActive {
		return
	}
	p.isActive = true
	p.touch()
}

// Deactivate 停用方案（方案不刪除，只停用）
func (p *LoyaltyProgram) Deactivate() {
	if !p.isActive {
		return
	}
	p.isActive = false
	p.touch()
}

// EnableTiers 啟用等級制度
func (p *LoyaltyProgram) EnableTiers() {
	p.hasTiers = true
	p.touch()
}

// DisableTiers 停用等級制度（等級資料保留）
func (p *LoyaltyProgram) DisableTiers() {
	p.hasTiers = false
	p.touch()
}

func (p *LoyaltyProgram) touch() {
	p.updatedAt = now()
}
