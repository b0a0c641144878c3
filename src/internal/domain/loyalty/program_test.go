package loyalty_test

import (
	"testing"
	"time"

	"github.com/jackyeh168/loyalty_crm/src/internal/domain/loyalty"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===========================
// 測試輔助
// ===========================

func newPointsProgram(t *testing.T, rate string) *loyalty.LoyaltyProgram {
	t.Helper()
	program, err := loyalty.NewLoyaltyProgram(
		loyalty.NewBrandID(), "咖啡積分", loyalty.ProgramTypePoints,
		decimal.RequireFromString(rate), true, nil, nil,
	)
	require.NoError(t, err)
	return program
}

func newStampProgram(t *testing.T) *loyalty.LoyaltyProgram {
	t.Helper()
	program, err := loyalty.NewLoyaltyProgram(
		loyalty.NewBrandID(), "集點卡", loyalty.ProgramTypeStamp,
		decimal.Zero, false, nil, nil,
	)
	require.NoError(t, err)
	return program
}

// ===========================
// NewLoyaltyProgram 建構測試
// ===========================

func TestNewLoyaltyProgram_Validation(t *testing.T) {
	brandID := loyalty.NewBrandID()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		brandID     loyalty.BrandID
		programName string
		programType loyalty.ProgramType
		rate        decimal.Decimal
		start, end  *time.Time
		wantErr     error
	}{
		{"品牌為空", loyalty.BrandID{}, "方案", loyalty.ProgramTypePoints, decimal.NewFromInt(1), nil, nil, loyalty.ErrInvalidBrandID},
		{"名稱為空", brandID, "  ", loyalty.ProgramTypePoints, decimal.NewFromInt(1), nil, nil, loyalty.ErrInvalidProgram},
		{"未知類型", brandID, "方案", loyalty.ProgramType("cash"), decimal.NewFromInt(1), nil, nil, loyalty.ErrInvalidProgram},
		{"積分制轉換率為 0", brandID, "方案", loyalty.ProgramTypePoints, decimal.Zero, nil, nil, loyalty.ErrInvalidProgram},
		{"開始晚於結束", brandID, "方案", loyalty.ProgramTypeStamp, decimal.Zero, &start, &end, loyalty.ErrInvalidProgram},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program, err := loyalty.NewLoyaltyProgram(tt.brandID, tt.programName, tt.programType, tt.rate, false, tt.start, tt.end)
			assert.Nil(t, program)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewLoyaltyProgram_StampProgramIgnoresRate(t *testing.T) {
	program, err := loyalty.NewLoyaltyProgram(
		loyalty.NewBrandID(), "集點卡", loyalty.ProgramTypeStamp,
		decimal.NewFromInt(5), false, nil, nil,
	)

	require.NoError(t, err)
	assert.True(t, program.PointsConversionRate().IsZero())
	assert.True(t, program.IsActive())
	assert.False(t, program.ProgramID().IsEmpty())
}

// ===========================
// CalculatePoints 測試
// ===========================

func TestCalculatePoints_TruncatesTowardZero(t *testing.T) {
	program := newPointsProgram(t, "0.1")

	tests := []struct {
		amount string
		want   int64
	}{
		{"100", 10},
		{"25", 2},
		{"5", 0},
		{"19.99", 1},
		{"0", 0},
		{"-50", 0},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			got := program.CalculatePoints(decimal.RequireFromString(tt.amount))
			assert.True(t, got.Equal(decimal.NewFromInt(tt.want)), "got %s", got)
		})
	}
}

func TestCalculatePoints_StampProgramReturnsZero(t *testing.T) {
	program := newStampProgram(t)

	got := program.CalculatePoints(decimal.NewFromInt(1000))

	assert.True(t, got.IsZero())
}

// ===========================
// GetTierForPoints 測試
// ===========================

func TestGetTierForPoints_Monotonic(t *testing.T) {
	program := newPointsProgram(t, "1")
	for i, threshold := range []int{0, 500, 1000, 2000} {
		_, err := program.CreateTier("tier", threshold, decimal.NewFromInt(1), i)
		require.NoError(t, err)
	}
	require.NoError(t, program.ValidateTierLadder())

	tests := []struct {
		points        int64
		wantThreshold int
	}{
		{0, 0},
		{100, 0},
		{500, 500},
		{999, 500},
		{1000, 1000},
		{5000, 2000},
	}

	for _, tt := range tests {
		tier := program.GetTierForPoints(decimal.NewFromInt(tt.points))
		require.NotNil(t, tier, "points=%d", tt.points)
		assert.Equal(t, tt.wantThreshold, tier.PointThreshold(), "points=%d", tt.points)
	}
}

func TestGetTierForPoints_EdgeCases(t *testing.T) {
	t.Run("低於最低門檻返回 nil", func(t *testing.T) {
		program := newPointsProgram(t, "1")
		_, err := program.CreateTier("銀卡", 100, decimal.NewFromInt(1), 1)
		require.NoError(t, err)

		assert.Nil(t, program.GetTierForPoints(decimal.NewFromInt(99)))
	})

	t.Run("未啟用等級制度返回 nil", func(t *testing.T) {
		program := newPointsProgram(t, "1")
		_, err := program.CreateTier("基本", 0, decimal.NewFromInt(1), 1)
		require.NoError(t, err)
		program.DisableTiers()

		assert.Nil(t, program.GetTierForPoints(decimal.NewFromInt(5000)))
	})

	t.Run("門檻相同時 TierOrder 大者優先", func(t *testing.T) {
		program := newPointsProgram(t, "1")
		_, err := program.CreateTier("金卡", 1000, decimal.RequireFromString("1.5"), 5)
		require.NoError(t, err)
		_, err = program.CreateTier("金卡 Plus", 1000, decimal.NewFromInt(2), 7)
		require.NoError(t, err)

		tier := program.GetTierForPoints(decimal.NewFromInt(1200))

		require.NotNil(t, tier)
		assert.Equal(t, "金卡 Plus", tier.Name())
	})
}

func TestValidateTierLadder_RejectsNonIncreasingThresholds(t *testing.T) {
	program := newPointsProgram(t, "1")
	_, err := program.CreateTier("金卡", 1000, decimal.NewFromInt(2), 2)
	require.NoError(t, err)
	_, err = program.CreateTier("銀卡", 1000, decimal.NewFromInt(1), 1)
	require.NoError(t, err)

	err = program.ValidateTierLadder()

	assert.ErrorIs(t, err, loyalty.ErrInvalidTierLadder)
	tiers := program.Tiers()
	require.Len(t, tiers, 2)
	assert.Equal(t, "銀卡", tiers[0].Name(), "tiers kept ordered by TierOrder")
}

// ===========================
// 集合維護測試
// ===========================

func TestAddTier_ForeignOrNilIsIgnored(t *testing.T) {
	program := newPointsProgram(t, "1")
	other := newPointsProgram(t, "1")
	foreign, err := loyalty.NewLoyaltyTier(other.ProgramID(), "外來", 0, decimal.NewFromInt(1), 1)
	require.NoError(t, err)

	assert.False(t, program.AddTier(nil))
	assert.False(t, program.AddTier(foreign))
	assert.Empty(t, program.Tiers())
}

func TestAddReward_AllowsDuplicates(t *testing.T) {
	program := newStampProgram(t)
	reward, err := loyalty.NewReward(program.ProgramID(), "免費咖啡", "", 10, nil, nil)
	require.NoError(t, err)

	assert.True(t, program.AddReward(reward))
	_, err = program.CreateReward("免費咖啡", "", 10, nil, nil)
	require.NoError(t, err)

	assert.Len(t, program.Rewards(), 2)
	found, ok := program.FindReward(reward.RewardID())
	assert.True(t, ok)
	assert.Equal(t, reward, found)

	_, ok = program.FindReward(loyalty.NewRewardID())
	assert.False(t, ok)
}

func TestAddReward_ForeignIsIgnored(t *testing.T) {
	program := newStampProgram(t)
	other := newStampProgram(t)
	reward, err := loyalty.NewReward(other.ProgramID(), "外來獎勵", "", 1, nil, nil)
	require.NoError(t, err)

	assert.False(t, program.AddReward(reward))
	assert.False(t, program.AddReward(nil))
	assert.Empty(t, program.Rewards())
}

// ===========================
// 狀態切換測試
// ===========================

func TestIsValidForPointsIssuance_FollowsActiveFlag(t *testing.T) {
	program := newPointsProgram(t, "1")
	amount := decimal.NewFromInt(100)

	assert.True(t, program.IsValidForPointsIssuance(amount))

	program.Deactivate()
	assert.False(t, program.IsActive())
	assert.False(t, program.IsValidForPointsIssuance(amount))

	program.Activate()
	assert.True(t, program.IsValidForPointsIssuance(amount))
}

func TestReconstructLoyaltyProgram_SkipsForeignChildren(t *testing.T) {
	programID := loyalty.NewProgramID()
	own, err := loyalty.NewLoyaltyTier(programID, "基本", 0, decimal.NewFromInt(1), 1)
	require.NoError(t, err)
	foreign, err := loyalty.NewLoyaltyTier(loyalty.NewProgramID(), "外來", 0, decimal.NewFromInt(1), 1)
	require.NoError(t, err)
	ts := time.Now().UTC()

	program, err := loyalty.ReconstructLoyaltyProgram(
		programID, loyalty.NewBrandID(), "方案", loyalty.ProgramTypePoints,
		decimal.NewFromInt(1), true, nil, nil, false, ts, ts,
		[]*loyalty.LoyaltyTier{own, foreign}, nil,
	)

	require.NoError(t, err)
	assert.False(t, program.IsActive())
	assert.Len(t, program.Tiers(), 1)
}
