package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackyeh168/loyalty_crm/src/internal/application/ledger"
	"github.com/jackyeh168/loyalty_crm/src/internal/domain/loyalty"
	"github.com/jackyeh168/loyalty_crm/src/internal/domain/shared"
	"github.com/jackyeh168/loyalty_crm/src/internal/infrastructure/persistence/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// ===========================
// 測試輔助
// ===========================

// recordingPublisher 記錄所有發布的事件
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

// mockPublisher testify mock 版事件發布器
type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event shared.DomainEvent) error {
	return m.Called(ctx, event).Error(0)
}

type testEnv struct {
	svc       *ledger.Service
	store     *memory.Store
	cards     *memory.CardRepository
	programs  *memory.ProgramRepository
	txManager *memory.TransactionManager
	publisher *recordingPublisher
	storeID   string
}

func newTestEnv(t *testing.T, opts ...ledger.Option) *testEnv {
	t.Helper()
	store := memory.NewStore()
	env := &testEnv{
		store:     store,
		cards:     memory.NewCardRepository(store),
		programs:  memory.NewProgramRepository(store),
		txManager: memory.NewTransactionManager(store),
		publisher: &recordingPublisher{},
		storeID:   loyalty.NewStoreID().String(),
	}
	opts = append([]ledger.Option{ledger.WithPublisher(env.publisher)}, opts...)
	env.svc = ledger.NewService(env.cards, env.programs, env.txManager, opts...)
	t.Cleanup(func() { _ = env.svc.Close(context.Background()) })
	return env
}

// drain 等待背景投遞完成；之後的命令不再投遞事件
func (e *testEnv) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.svc.Close(ctx))
}

func (e *testEnv) pointsProgram(t *testing.T) *ledger.ProgramResult {
	t.Helper()
	program, err := e.svc.CreateProgram(context.Background(), ledger.CreateProgramCommand{
		BrandID:        loyalty.NewBrandID().String(),
		Name:           "咖啡積分",
		Type:           "points",
		ConversionRate: decimal.RequireFromString("0.1"),
		HasTiers:       true,
		Tiers: []ledger.TierSpec{
			{Name: "一般", PointThreshold: 0, PointMultiplier: decimal.NewFromInt(1), TierOrder: 1},
			{Name: "銀卡", PointThreshold: 500, PointMultiplier: decimal.RequireFromString("1.2"), TierOrder: 2},
			{Name: "金卡", PointThreshold: 1000, PointMultiplier: decimal.RequireFromString("1.5"), TierOrder: 3},
			{Name: "白金", PointThreshold: 2000, PointMultiplier: decimal.NewFromInt(2), TierOrder: 4},
		},
		Rewards: []ledger.RewardSpec{{Title: "免費蛋糕", RequiredValue: 500}},
	})
	require.NoError(t, err)
	return program
}

func (e *testEnv) stampProgram(t *testing.T) *ledger.ProgramResult {
	t.Helper()
	program, err := e.svc.CreateProgram(context.Background(), ledger.CreateProgramCommand{
		BrandID: loyalty.NewBrandID().String(),
		Name:    "集點卡",
		Type:    "stamp",
		Rewards: []ledger.RewardSpec{{Title: "免費咖啡", RequiredValue: 5}},
	})
	require.NoError(t, err)
	return program
}

func (e *testEnv) enroll(t *testing.T, programID string) *ledger.CardResult {
	t.Helper()
	card, err := e.svc.EnrollCustomer(context.Background(), ledger.EnrollCustomerCommand{
		ProgramID:  programID,
		CustomerID: loyalty.NewCustomerID().String(),
	})
	require.NoError(t, err)
	return card
}

func (e *testEnv) addPoints(t *testing.T, cardID string, amount int64) *ledger.CardResult {
	t.Helper()
	result, err := e.svc.AddPoints(context.Background(), ledger.AddPointsCommand{
		CardID:            cardID,
		TransactionAmount: decimal.NewFromInt(amount),
		StoreID:           e.storeID,
	})
	require.NoError(t, err)
	return result
}

// ===========================
// 開卡
// ===========================

func TestEnrollCustomer_Success(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	program := env.stampProgram(t)
	customerID := loyalty.NewCustomerID().String()

	// Act
	card, err := env.svc.EnrollCustomer(context.Background(), ledger.EnrollCustomerCommand{
		ProgramID:  program.ProgramID,
		CustomerID: customerID,
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, customerID, card.CustomerID)
	assert.Equal(t, "stamp", card.Type)
	assert.Equal(t, "active", card.Status)
	assert.Equal(t, 1, card.Version)
	assert.NotEmpty(t, card.QRCode)
	assert.Nil(t, card.Transaction)
	env.drain(t)
	assert.Equal(t, []string{loyalty.EventTypeCardEnrolled}, env.publisher.types())
}

func TestEnrollCustomer_Errors(t *testing.T) {
	env := newTestEnv(t)
	program := env.stampProgram(t)
	existing := env.enroll(t, program.ProgramID)

	t.Run("重複開卡", func(t *testing.T) {
		_, err := env.svc.EnrollCustomer(context.Background(), ledger.EnrollCustomerCommand{
			ProgramID:  program.ProgramID,
			CustomerID: existing.CustomerID,
		})
		assert.ErrorIs(t, err, loyalty.ErrCardAlreadyExists)
	})

	t.Run("方案不存在", func(t *testing.T) {
		_, err := env.svc.EnrollCustomer(context.Background(), ledger.EnrollCustomerCommand{
			ProgramID:  loyalty.NewProgramID().String(),
			CustomerID: loyalty.NewCustomerID().String(),
		})
		assert.ErrorIs(t, err, loyalty.ErrProgramNotFound)
	})

	t.Run("方案已停用", func(t *testing.T) {
		_, err := env.svc.SetProgramActive(context.Background(), program.ProgramID, false)
		require.NoError(t, err)

		_, err = env.svc.EnrollCustomer(context.Background(), ledger.EnrollCustomerCommand{
			ProgramID:  program.ProgramID,
			CustomerID: loyalty.NewCustomerID().String(),
		})
		assert.ErrorIs(t, err, loyalty.ErrProgramInactive)
	})

	t.Run("顧客 ID 格式錯誤", func(t *testing.T) {
		_, err := env.svc.EnrollCustomer(context.Background(), ledger.EnrollCustomerCommand{
			ProgramID:  program.ProgramID,
			CustomerID: "not-a-uuid",
		})
		assert.ErrorIs(t, err, loyalty.ErrInvalidCustomerID)
	})
}

// ===========================
// 印章
// ===========================

func TestIssueStamps_PersistsAndPublishes(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	card := env.enroll(t, env.stampProgram(t).ProgramID)

	// Act
	result, err := env.svc.IssueStamps(context.Background(), ledger.IssueStampsCommand{
		CardID:           card.CardID,
		Quantity:         3,
		StoreID:          env.storeID,
		PosTransactionID: "POS-001",
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 3, result.StampsCollected)
	assert.Equal(t, 2, result.Version)
	require.NotNil(t, result.Transaction)
	assert.Equal(t, "stamp_issuance", result.Transaction.Type)
	assert.Equal(t, "POS-001", result.Transaction.PosTransactionID)
	assert.Empty(t, result.Transaction.StaffID)
	assert.Empty(t, result.Transaction.RewardID)

	env.drain(t)
	assert.Equal(t, []string{loyalty.EventTypeCardEnrolled, loyalty.EventTypeStampsIssued}, env.publisher.types())
}

func TestIssueStamps_ValidationFailuresPersistNothing(t *testing.T) {
	env := newTestEnv(t)
	stampCard := env.enroll(t, env.stampProgram(t).ProgramID)
	pointsCard := env.enroll(t, env.pointsProgram(t).ProgramID)

	tests := []struct {
		name    string
		cmd     ledger.IssueStampsCommand
		wantErr error
	}{
		{"數量為 0", ledger.IssueStampsCommand{CardID: stampCard.CardID, Quantity: 0, StoreID: env.storeID}, loyalty.ErrInvalidQuantity},
		{"未指定門市", ledger.IssueStampsCommand{CardID: stampCard.CardID, Quantity: 1}, loyalty.ErrMissingStore},
		{"積分卡", ledger.IssueStampsCommand{CardID: pointsCard.CardID, Quantity: 1, StoreID: env.storeID}, loyalty.ErrWrongCardType},
		{"卡片不存在", ledger.IssueStampsCommand{CardID: loyalty.NewCardID().String(), Quantity: 1, StoreID: env.storeID}, loyalty.ErrCardNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.IssueStamps(context.Background(), tt.cmd)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	detail, err := env.svc.GetCard(context.Background(), ledger.GetCardQuery{CardID: stampCard.CardID})
	require.NoError(t, err)
	assert.Equal(t, 0, detail.StampsCollected)
	assert.Empty(t, detail.History)
	assert.Equal(t, 1, detail.Version)
}

func TestVoidStamps(t *testing.T) {
	env := newTestEnv(t)
	card := env.enroll(t, env.stampProgram(t).ProgramID)
	_, err := env.svc.IssueStamps(context.Background(), ledger.IssueStampsCommand{CardID: card.CardID, Quantity: 4, StoreID: env.storeID})
	require.NoError(t, err)

	result, err := env.svc.VoidStamps(context.Background(), ledger.VoidStampsCommand{CardID: card.CardID, Quantity: 3, StoreID: env.storeID})
	require.NoError(t, err)
	assert.Equal(t, 1, result.StampsCollected)

	_, err = env.svc.VoidStamps(context.Background(), ledger.VoidStampsCommand{CardID: card.CardID, Quantity: 2, StoreID: env.storeID})
	assert.ErrorIs(t, err, loyalty.ErrInsufficientBalance)
}

// ===========================
// 積分
// ===========================

func TestAddPoints_UsesProgramConversionRate(t *testing.T) {
	env := newTestEnv(t)
	card := env.enroll(t, env.pointsProgram(t).ProgramID)

	tests := []struct {
		amount     int64
		wantPoints string
	}{
		{100, "10"},
		{25, "2"},
	}
	for _, tt := range tests {
		result, err := env.svc.AddPoints(context.Background(), ledger.AddPointsCommand{
			CardID:            card.CardID,
			TransactionAmount: decimal.NewFromInt(tt.amount),
			StoreID:           env.storeID,
		})
		require.NoError(t, err)
		require.NotNil(t, result.Transaction)
		assert.Equal(t, tt.wantPoints, result.Transaction.PointsAmount.String())
		assert.True(t, result.Transaction.TransactionAmount.Equal(decimal.NewFromInt(tt.amount)))
	}

	// 5 × 0.1 捨去為 0：不產生交易
	_, err := env.svc.AddPoints(context.Background(), ledger.AddPointsCommand{
		CardID:            card.CardID,
		TransactionAmount: decimal.NewFromInt(5),
		StoreID:           env.storeID,
	})
	assert.ErrorIs(t, err, loyalty.ErrInvalidPointsAmount)

	detail, err := env.svc.GetCard(context.Background(), ledger.GetCardQuery{CardID: card.CardID})
	require.NoError(t, err)
	assert.Equal(t, "12", detail.PointsBalance.String())
	assert.Len(t, detail.History, 2)
}

func TestAddPoints_ExplicitPointsAmount(t *testing.T) {
	env := newTestEnv(t)
	card := env.enroll(t, env.pointsProgram(t).ProgramID)

	result, err := env.svc.AddPoints(context.Background(), ledger.AddPointsCommand{
		CardID:            card.CardID,
		TransactionAmount: decimal.NewFromInt(100),
		PointsAmount:      decimal.RequireFromString("42.5"),
		StoreID:           env.storeID,
	})

	require.NoError(t, err)
	assert.Equal(t, "42.5", result.PointsBalance.String())
}

func TestAddPoints_InactiveProgram(t *testing.T) {
	env := newTestEnv(t)
	program := env.pointsProgram(t)
	card := env.enroll(t, program.ProgramID)
	_, err := env.svc.SetProgramActive(context.Background(), program.ProgramID, false)
	require.NoError(t, err)

	_, err = env.svc.AddPoints(context.Background(), ledger.AddPointsCommand{
		CardID:            card.CardID,
		TransactionAmount: decimal.NewFromInt(100),
		StoreID:           env.storeID,
	})

	assert.ErrorIs(t, err, loyalty.ErrProgramInactive)
}

func TestAddPoints_StampCardIsWrongType(t *testing.T) {
	env := newTestEnv(t)
	card := env.enroll(t, env.stampProgram(t).ProgramID)

	_, err := env.svc.AddPoints(context.Background(), ledger.AddPointsCommand{
		CardID:            card.CardID,
		TransactionAmount: decimal.NewFromInt(100),
		StoreID:           env.storeID,
	})

	assert.ErrorIs(t, err, loyalty.ErrWrongCardType)
}

func TestVoidPoints(t *testing.T) {
	env := newTestEnv(t)
	card := env.enroll(t, env.pointsProgram(t).ProgramID)
	env.addPoints(t, card.CardID, 1000)

	result, err := env.svc.VoidPoints(context.Background(), ledger.VoidPointsCommand{
		CardID:       card.CardID,
		PointsAmount: decimal.NewFromInt(30),
		StoreID:      env.storeID,
	})
	require.NoError(t, err)
	assert.Equal(t, "70", result.PointsBalance.String())

	_, err = env.svc.VoidPoints(context.Background(), ledger.VoidPointsCommand{
		CardID:       card.CardID,
		PointsAmount: decimal.NewFromInt(71),
		StoreID:      env.storeID,
	})
	assert.ErrorIs(t, err, loyalty.ErrInsufficientBalance)
}

// ===========================
// 兌換
// ===========================

func TestRedeemReward_EndToEnd(t *testing.T) {
	// Arrange: 600 點，獎勵需 500 點
	env := newTestEnv(t)
	program := env.pointsProgram(t)
	card := env.enroll(t, program.ProgramID)
	env.addPoints(t, card.CardID, 6000)
	rewardID := program.Rewards[0].RewardID

	// Act
	result, err := env.svc.RedeemReward(context.Background(), ledger.RedeemRewardCommand{
		CardID:   card.CardID,
		RewardID: rewardID,
		StoreID:  env.storeID,
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "100", result.PointsBalance.String())
	require.NotNil(t, result.Transaction)
	assert.Equal(t, "reward_redemption", result.Transaction.Type)
	assert.Equal(t, rewardID, result.Transaction.RewardID)
	assert.Equal(t, 500, result.Transaction.RedeemedValue)

	// Act: 餘額 100 再兌換一次
	_, err = env.svc.RedeemReward(context.Background(), ledger.RedeemRewardCommand{
		CardID:   card.CardID,
		RewardID: rewardID,
		StoreID:  env.storeID,
	})

	// Assert
	assert.ErrorIs(t, err, loyalty.ErrInsufficientBalance)
	detail, err := env.svc.GetCard(context.Background(), ledger.GetCardQuery{CardID: card.CardID})
	require.NoError(t, err)
	assert.Equal(t, "100", detail.PointsBalance.String())
	assert.Len(t, detail.History, 2)
	assert.True(t, detail.LedgerConsistent)
}

func TestRedeemReward_RewardRules(t *testing.T) {
	env := newTestEnv(t)
	program := env.stampProgram(t)
	card := env.enroll(t, program.ProgramID)
	_, err := env.svc.IssueStamps(context.Background(), ledger.IssueStampsCommand{CardID: card.CardID, Quantity: 10, StoreID: env.storeID})
	require.NoError(t, err)

	t.Run("獎勵不在卡片方案中", func(t *testing.T) {
		other := env.stampProgram(t)
		_, err := env.svc.RedeemReward(context.Background(), ledger.RedeemRewardCommand{
			CardID:   card.CardID,
			RewardID: other.Rewards[0].RewardID,
			StoreID:  env.storeID,
		})
		assert.ErrorIs(t, err, loyalty.ErrRewardNotFound)
	})

	t.Run("獎勵已停用", func(t *testing.T) {
		_, err := env.svc.SetRewardActive(context.Background(), program.ProgramID, program.Rewards[0].RewardID, false)
		require.NoError(t, err)

		_, err = env.svc.RedeemReward(context.Background(), ledger.RedeemRewardCommand{
			CardID:   card.CardID,
			RewardID: program.Rewards[0].RewardID,
			StoreID:  env.storeID,
		})
		assert.ErrorIs(t, err, loyalty.ErrRewardInactive)
	})

	t.Run("獎勵尚未開始", func(t *testing.T) {
		from := time.Now().Add(24 * time.Hour)
		updated, err := env.svc.AddProgramReward(context.Background(), program.ProgramID, ledger.RewardSpec{
			Title: "明日限定", RequiredValue: 1, ValidFrom: &from,
		})
		require.NoError(t, err)

		_, err = env.svc.RedeemReward(context.Background(), ledger.RedeemRewardCommand{
			CardID:   card.CardID,
			RewardID: updated.Rewards[1].RewardID,
			StoreID:  env.storeID,
		})
		assert.ErrorIs(t, err, loyalty.ErrRewardNotValidAtTime)
	})

	detail, err := env.svc.GetCard(context.Background(), ledger.GetCardQuery{CardID: card.CardID})
	require.NoError(t, err)
	assert.Equal(t, 10, detail.StampsCollected)
}

// ===========================
// 狀態
// ===========================

func TestCardStatusLifecycle(t *testing.T) {
	env := newTestEnv(t)
	card := env.enroll(t, env.stampProgram(t).ProgramID)
	ctx := context.Background()

	suspended, err := env.svc.SuspendCard(ctx, card.CardID)
	require.NoError(t, err)
	assert.Equal(t, "suspended", suspended.Status)

	_, err = env.svc.IssueStamps(ctx, ledger.IssueStampsCommand{CardID: card.CardID, Quantity: 1, StoreID: env.storeID})
	assert.ErrorIs(t, err, loyalty.ErrCardNotActive)

	reactivated, err := env.svc.ReactivateCard(ctx, card.CardID)
	require.NoError(t, err)
	assert.Equal(t, "active", reactivated.Status)

	_, err = env.svc.ReactivateCard(ctx, card.CardID)
	assert.ErrorIs(t, err, loyalty.ErrInvalidStatusTransition)

	expired, err := env.svc.ExpireCard(ctx, card.CardID)
	require.NoError(t, err)
	assert.Equal(t, "expired", expired.Status)

	_, err = env.svc.SuspendCard(ctx, card.CardID)
	assert.ErrorIs(t, err, loyalty.ErrInvalidStatusTransition)

	env.drain(t)
	assert.Contains(t, env.publisher.types(), loyalty.EventTypeCardStatusChanged)
}

func TestSetCardExpiration(t *testing.T) {
	env := newTestEnv(t)
	card := env.enroll(t, env.stampProgram(t).ProgramID)

	_, err := env.svc.SetCardExpiration(context.Background(), ledger.SetCardExpirationCommand{
		CardID:    card.CardID,
		ExpiresAt: time.Now().Add(-time.Hour),
	})
	assert.ErrorIs(t, err, loyalty.ErrInvalidExpirationDate)

	future := time.Now().Add(30 * 24 * time.Hour)
	result, err := env.svc.SetCardExpiration(context.Background(), ledger.SetCardExpirationCommand{
		CardID:    card.CardID,
		ExpiresAt: future,
	})
	require.NoError(t, err)
	require.NotNil(t, result.ExpiresAt)
	assert.True(t, result.ExpiresAt.Equal(future))
}

// ===========================
// 查詢
// ===========================

func TestGetCard_TierAndHistory(t *testing.T) {
	env := newTestEnv(t)
	card := env.enroll(t, env.pointsProgram(t).ProgramID)
	env.addPoints(t, card.CardID, 3000)
	env.addPoints(t, card.CardID, 4000)
	env.addPoints(t, card.CardID, 5000)

	detail, err := env.svc.GetCard(context.Background(), ledger.GetCardQuery{CardID: card.CardID, HistoryLimit: 2})

	require.NoError(t, err)
	assert.Equal(t, "1200", detail.PointsBalance.String())
	require.NotNil(t, detail.Tier)
	assert.Equal(t, "金卡", detail.Tier.Name)
	assert.Equal(t, 0, detail.StampsIssuedToday)
	assert.True(t, detail.LedgerConsistent)
	require.Len(t, detail.History, 2)
	assert.Equal(t, "500", detail.History[0].PointsAmount.String(), "newest first")

	byCustomer, err := env.svc.GetCardByCustomer(context.Background(), detail.ProgramID, detail.CustomerID, 0)
	require.NoError(t, err)
	assert.Equal(t, card.CardID, byCustomer.CardID)
	assert.Len(t, byCustomer.History, 3)
}

func TestGetCard_StampsIssuedToday(t *testing.T) {
	env := newTestEnv(t)
	card := env.enroll(t, env.stampProgram(t).ProgramID)
	for _, qty := range []int{2, 3} {
		_, err := env.svc.IssueStamps(context.Background(), ledger.IssueStampsCommand{CardID: card.CardID, Quantity: qty, StoreID: env.storeID})
		require.NoError(t, err)
	}

	detail, err := env.svc.GetCard(context.Background(), ledger.GetCardQuery{CardID: card.CardID})

	require.NoError(t, err)
	assert.Equal(t, 5, detail.StampsIssuedToday)
	assert.Nil(t, detail.Tier)
}

// ===========================
// 事件發布失敗
// ===========================

func TestPublishFailure_DoesNotFailCommand(t *testing.T) {
	// Arrange
	core, logs := observer.New(zap.InfoLevel)
	publisher := &mockPublisher{}
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("queue unavailable"))

	env := newTestEnv(t, ledger.WithPublisher(publisher), ledger.WithLogger(zap.New(core)))
	card := env.enroll(t, env.stampProgram(t).ProgramID)

	// Act
	result, err := env.svc.IssueStamps(context.Background(), ledger.IssueStampsCommand{CardID: card.CardID, Quantity: 1, StoreID: env.storeID})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, result.StampsCollected)
	env.drain(t)
	publisher.AssertNumberOfCalls(t, "Publish", 2)
	assert.Equal(t, 2, logs.FilterMessage("ledger_event_publish_failed").Len())
}

func TestGetCardByQRCode(t *testing.T) {
	env := newTestEnv(t)
	card := env.enroll(t, env.stampProgram(t).ProgramID)
	ctx := context.Background()

	detail, err := env.svc.GetCardByQRCode(ctx, " "+card.QRCode+" ", 0)
	require.NoError(t, err)
	assert.Equal(t, card.CardID, detail.CardID)

	_, err = env.svc.GetCardByQRCode(ctx, "LC-NOT-A-CARD", 0)
	assert.ErrorIs(t, err, loyalty.ErrInvalidCardID)

	_, err = env.svc.GetCardByQRCode(ctx, loyalty.QRCodeFor(loyalty.NewCardID()), 0)
	assert.ErrorIs(t, err, loyalty.ErrCardNotFound)
}

// ===========================
// 卡片與方案類型一致性
// ===========================

// 卡片類型與方案類型分歧時，任何卡片命令都不得執行
func TestCardCommands_RejectProgramTypeMismatch(t *testing.T) {
	// Arrange: 集點卡指向積分方案
	env := newTestEnv(t)
	program := env.pointsProgram(t)
	programID, err := loyalty.ProgramIDFromString(program.ProgramID)
	require.NoError(t, err)
	ts := time.Now().UTC()
	diverged, err := loyalty.ReconstructLoyaltyCard(
		loyalty.NewCardID(), programID, loyalty.NewCustomerID(), loyalty.ProgramTypeStamp,
		0, decimal.Zero, loyalty.CardStatusActive, "", nil, ts, ts, 0, nil,
	)
	require.NoError(t, err)
	require.NoError(t, env.cards.Save(nil, diverged))
	cardID := diverged.CardID().String()
	ctx := context.Background()

	commands := map[string]func() error{
		"發放印章": func() error {
			_, err := env.svc.IssueStamps(ctx, ledger.IssueStampsCommand{CardID: cardID, Quantity: 600, StoreID: env.storeID})
			return err
		},
		"累積積分": func() error {
			_, err := env.svc.AddPoints(ctx, ledger.AddPointsCommand{CardID: cardID, TransactionAmount: decimal.NewFromInt(100), StoreID: env.storeID})
			return err
		},
		"兌換獎勵": func() error {
			_, err := env.svc.RedeemReward(ctx, ledger.RedeemRewardCommand{CardID: cardID, RewardID: program.Rewards[0].RewardID, StoreID: env.storeID})
			return err
		},
		"作廢印章": func() error {
			_, err := env.svc.VoidStamps(ctx, ledger.VoidStampsCommand{CardID: cardID, Quantity: 1, StoreID: env.storeID})
			return err
		},
		"暫停卡片": func() error {
			_, err := env.svc.SuspendCard(ctx, cardID)
			return err
		},
	}

	for name, run := range commands {
		t.Run(name, func(t *testing.T) {
			err := run()

			require.Error(t, err)
			assert.ErrorIs(t, err, loyalty.ErrProgramTypeMismatch)
			var domainErr *loyalty.DomainError
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, "stamp", domainErr.Context["card_type"])
			assert.Equal(t, "points", domainErr.Context["program_type"])
		})
	}

	// Assert: 沒有任何寫入
	detail, err := env.svc.GetCard(ctx, ledger.GetCardQuery{CardID: cardID})
	require.NoError(t, err)
	assert.Equal(t, 0, detail.StampsCollected)
	assert.Equal(t, "active", detail.Status)
	assert.Equal(t, 1, detail.Version)
	assert.Empty(t, detail.History)
}

// ===========================
// 等級制度開關
// ===========================

func TestSetTiersEnabled(t *testing.T) {
	env := newTestEnv(t)
	program := env.pointsProgram(t)
	card := env.enroll(t, program.ProgramID)
	env.addPoints(t, card.CardID, 6000)
	ctx := context.Background()

	disabled, err := env.svc.SetTiersEnabled(ctx, program.ProgramID, false)
	require.NoError(t, err)
	assert.False(t, disabled.HasTiers)
	assert.Len(t, disabled.Tiers, 4, "tiers kept")

	detail, err := env.svc.GetCard(ctx, ledger.GetCardQuery{CardID: card.CardID})
	require.NoError(t, err)
	assert.Nil(t, detail.Tier)

	enabled, err := env.svc.SetTiersEnabled(ctx, program.ProgramID, true)
	require.NoError(t, err)
	assert.True(t, enabled.HasTiers)

	detail, err = env.svc.GetCard(ctx, ledger.GetCardQuery{CardID: card.CardID})
	require.NoError(t, err)
	require.NotNil(t, detail.Tier)
	assert.Equal(t, "銀卡", detail.Tier.Name)
}

func TestSetTiersEnabled_InvalidLadderIsNotSaved(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	program, err := env.svc.CreateProgram(ctx, ledger.CreateProgramCommand{
		BrandID:        loyalty.NewBrandID().String(),
		Name:           "草稿方案",
		Type:           "points",
		ConversionRate: decimal.NewFromInt(1),
		Tiers: []ledger.TierSpec{
			{Name: "銀卡", PointThreshold: 500, PointMultiplier: decimal.NewFromInt(1), TierOrder: 1},
			{Name: "金卡", PointThreshold: 500, PointMultiplier: decimal.NewFromInt(2), TierOrder: 2},
		},
	})
	require.NoError(t, err)
	require.False(t, program.HasTiers)

	_, err = env.svc.SetTiersEnabled(ctx, program.ProgramID, true)
	assert.ErrorIs(t, err, loyalty.ErrInvalidTierLadder)

	reloaded, err := env.svc.GetProgram(ctx, program.ProgramID)
	require.NoError(t, err)
	assert.False(t, reloaded.HasTiers)
}
