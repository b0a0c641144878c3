package persistence

import (
	"errors"
	"testing"

	"github.com/jackyeh168/loyalty_crm/src/internal/domain/loyalty"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ===========================
// 測試輔助
// ===========================

func newTestStampProgram(t *testing.T) *loyalty.LoyaltyProgram {
	t.Helper()
	program, err := loyalty.NewLoyaltyProgram(
		loyalty.NewBrandID(), "集點卡", loyalty.ProgramTypeStamp,
		decimal.Zero, false, nil, nil,
	)
	require.NoError(t, err)
	_, err = program.CreateReward("免費咖啡", "集滿 5 點", 5, nil, nil)
	require.NoError(t, err)
	return program
}

func newTestPointsProgram(t *testing.T) *loyalty.LoyaltyProgram {
	t.Helper()
	program, err := loyalty.NewLoyaltyProgram(
		loyalty.NewBrandID(), "積分方案", loyalty.ProgramTypePoints,
		decimal.RequireFromString("0.1"), true, nil, nil,
	)
	require.NoError(t, err)
	_, err = program.CreateTier("一般", 0, decimal.NewFromInt(1), 1)
	require.NoError(t, err)
	_, err = program.CreateTier("金卡", 1000, decimal.RequireFromString("1.5"), 2)
	require.NoError(t, err)
	_, err = program.CreateReward("折價券", "", 100, nil, nil)
	require.NoError(t, err)
	return program
}

func saveTestCard(t *testing.T, repo *GORMCardRepository, program *loyalty.LoyaltyProgram) *loyalty.LoyaltyCard {
	t.Helper()
	card, err := loyalty.NewLoyaltyCard(program, loyalty.NewCustomerID())
	require.NoError(t, err)
	require.NoError(t, repo.Save(nil, card))
	return card
}

// ===========================
// Test Group 1: 錯誤映射測試
// ===========================

func TestGORMCardRepository_FindByID_NotFound_MapsToErrCardNotFound(t *testing.T) {
	// Arrange
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewCardRepository(db)

	// Act
	card, err := repo.FindByID(nil, loyalty.NewCardID())

	// Assert
	assert.Nil(t, card)
	assert.ErrorIs(t, err, loyalty.ErrCardNotFound)
	assert.NotErrorIs(t, err, gorm.ErrRecordNotFound)

	var domainErr *loyalty.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, loyalty.ErrCodeCardNotFound, domainErr.Code)
}

func TestGORMCardRepository_Save_DuplicateCustomerProgram_MapsToErrCardAlreadyExists(t *testing.T) {
	// Arrange
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewCardRepository(db)
	program := newTestStampProgram(t)
	customerID := loyalty.NewCustomerID()

	first, err := loyalty.NewLoyaltyCard(program, customerID)
	require.NoError(t, err)
	require.NoError(t, repo.Save(nil, first))

	// Act
	second, err := loyalty.NewLoyaltyCard(program, customerID)
	require.NoError(t, err)
	err = repo.Save(nil, second)

	// Assert
	assert.ErrorIs(t, err, loyalty.ErrCardAlreadyExists)
	assert.Equal(t, 0, second.Version(), "failed save must not bump version")
}

func TestGORMCardRepository_Update_NotSaved_MapsToErrCardNotFound(t *testing.T) {
	// Arrange
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewCardRepository(db)
	card, err := loyalty.NewLoyaltyCard(newTestStampProgram(t), loyalty.NewCustomerID())
	require.NoError(t, err)

	// Act
	err = repo.Update(nil, card, nil)

	// Assert
	assert.ErrorIs(t, err, loyalty.ErrCardNotFound)
}

// ===========================
// Test Group 2: 樂觀鎖測試
// ===========================

func TestGORMCardRepository_Update_StaleVersion_ReturnsVersionConflict(t *testing.T) {
	// Arrange
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewCardRepository(db)
	card := saveTestCard(t, repo, newTestStampProgram(t))
	storeID := loyalty.NewStoreID()

	copyA, err := repo.FindByID(nil, card.CardID())
	require.NoError(t, err)
	copyB, err := repo.FindByID(nil, card.CardID())
	require.NoError(t, err)

	// Act: A 先寫入
	txA, err := copyA.IssueStamps(2, storeID, loyalty.StaffID{}, "")
	require.NoError(t, err)
	require.NoError(t, repo.Update(nil, copyA, txA))

	// Act: B 以舊版本寫入
	txB, err := copyB.IssueStamps(3, storeID, loyalty.StaffID{}, "")
	require.NoError(t, err)
	err = repo.Update(nil, copyB, txB)

	// Assert
	assert.ErrorIs(t, err, loyalty.ErrVersionConflict)
	assert.Equal(t, 2, copyA.Version())

	stored, err := repo.FindByID(nil, card.CardID())
	require.NoError(t, err)
	assert.Equal(t, 2, stored.StampsCollected(), "stale write must not be applied")
	assert.Len(t, stored.Transactions(), 1)
	assert.Equal(t, 2, stored.Version())
}

func TestGORMCardRepository_Update_VersionIncrementsPerCommit(t *testing.T) {
	// Arrange
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewCardRepository(db)
	card := saveTestCard(t, repo, newTestStampProgram(t))
	require.Equal(t, 1, card.Version())

	// Act
	for i := 0; i < 3; i++ {
		tx, err := card.IssueStamps(1, loyalty.NewStoreID(), loyalty.StaffID{}, "")
		require.NoError(t, err)
		require.NoError(t, repo.Update(nil, card, tx))
	}
	require.NoError(t, card.Suspend())
	require.NoError(t, repo.Update(nil, card, nil))

	// Assert
	assert.Equal(t, 5, card.Version())
	stored, err := repo.FindByID(nil, card.CardID())
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Version())
	assert.Equal(t, loyalty.CardStatusSuspended, stored.Status())
	assert.Equal(t, 3, stored.StampsCollected())
}

// ===========================
// Test Group 3: 完整流程測試
// ===========================

func TestGORMCardRepository_RoundTrip_PreservesLedger(t *testing.T) {
	// Arrange
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewCardRepository(db)
	program := newTestPointsProgram(t)
	card := saveTestCard(t, repo, program)
	storeID := loyalty.NewStoreID()
	staffID := loyalty.NewStaffID()
	reward := program.Rewards()[0]

	// Act
	tx, err := card.AddPoints(decimal.RequireFromString("150.5"), decimal.NewFromInt(1505), storeID, staffID, "POS-1")
	require.NoError(t, err)
	require.NoError(t, repo.Update(nil, card, tx))

	tx, err = card.RedeemReward(reward, storeID, staffID)
	require.NoError(t, err)
	require.NoError(t, repo.Update(nil, card, tx))

	tx, err = card.VoidPoints(decimal.NewFromInt(10), storeID, loyalty.StaffID{}, "")
	require.NoError(t, err)
	require.NoError(t, repo.Update(nil, card, tx))

	// Assert
	stored, err := repo.FindByCustomerAndProgram(nil, card.CustomerID(), card.ProgramID())
	require.NoError(t, err)
	assert.Equal(t, card.CardID(), stored.CardID())
	assert.True(t, stored.PointsBalance().Equal(decimal.RequireFromString("40.5")), "got %s", stored.PointsBalance())
	assert.Equal(t, card.QRCode(), stored.QRCode())
	assert.NoError(t, stored.VerifyLedger())

	txs := stored.Transactions()
	require.Len(t, txs, 3)
	assert.Equal(t, loyalty.TransactionTypePointsIssuance, txs[0].Type())
	assert.Equal(t, "POS-1", txs[0].PosTransactionID())
	assert.Equal(t, staffID, txs[0].StaffID())
	assert.Equal(t, loyalty.TransactionTypeRewardRedemption, txs[1].Type())
	assert.Equal(t, reward.RewardID(), txs[1].RewardID())
	assert.Equal(t, 100, txs[1].RedeemedValue())
	assert.Equal(t, loyalty.TransactionTypePointsVoid, txs[2].Type())
	assert.True(t, txs[2].StaffID().IsEmpty())
}

func TestGORMCardRepository_FindByCustomerAndProgram_OtherProgram_NotFound(t *testing.T) {
	// Arrange
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewCardRepository(db)
	card := saveTestCard(t, repo, newTestStampProgram(t))

	// Act
	found, err := repo.FindByCustomerAndProgram(nil, card.CustomerID(), loyalty.NewProgramID())

	// Assert
	assert.Nil(t, found)
	assert.ErrorIs(t, err, loyalty.ErrCardNotFound)
}

func TestGORMCardRepository_FindByID_CorruptedBalance_ReturnsErrCorruptedCard(t *testing.T) {
	// Arrange
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewCardRepository(db)
	card := saveTestCard(t, repo, newTestStampProgram(t))

	require.NoError(t, db.Model(&LoyaltyCardModel{}).
		Where("id = ?", card.CardID().String()).
		Update("stamps_collected", -3).Error)

	// Act
	_, err := repo.FindByID(nil, card.CardID())

	// Assert
	assert.ErrorIs(t, err, loyalty.ErrCorruptedCard)
}
