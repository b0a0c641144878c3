package persistence

import (
	"testing"
	"time"

	"github.com/jackyeh168/loyalty_crm/src/internal/domain/loyalty"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGORMProgramRepository_FindByID_NotFound_MapsToErrProgramNotFound(t *testing.T) {
	// Arrange
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewProgramRepository(db)

	// Act
	program, err := repo.FindByID(nil, loyalty.NewProgramID())

	// Assert
	assert.Nil(t, program)
	assert.ErrorIs(t, err, loyalty.ErrProgramNotFound)
}

func TestGORMProgramRepository_SaveAndFind_LoadsTiersAndRewards(t *testing.T) {
	// Arrange
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewProgramRepository(db)
	program := newTestPointsProgram(t)

	// Act
	require.NoError(t, repo.Save(nil, program))
	found, err := repo.FindByID(nil, program.ProgramID())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, program.Name(), found.Name())
	assert.Equal(t, loyalty.ProgramTypePoints, found.Type())
	assert.True(t, found.PointsConversionRate().Equal(decimal.RequireFromString("0.1")))
	assert.True(t, found.HasTiers())

	tiers := found.Tiers()
	require.Len(t, tiers, 2)
	assert.Equal(t, "一般", tiers[0].Name())
	assert.Equal(t, "金卡", tiers[1].Name())
	assert.True(t, tiers[1].PointMultiplier().Equal(decimal.RequireFromString("1.5")))

	require.Len(t, found.Rewards(), 1)
	reward, ok := found.FindReward(program.Rewards()[0].RewardID())
	require.True(t, ok)
	assert.Equal(t, 100, reward.RequiredValue())
}

func TestGORMProgramRepository_Update_PersistsFlagsAndNewChildren(t *testing.T) {
	// Arrange
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewProgramRepository(db)
	program := newTestStampProgram(t)
	require.NoError(t, repo.Save(nil, program))

	from := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	_, err := program.CreateReward("聖誕限定", "", 8, &from, &to)
	require.NoError(t, err)
	program.Rewards()[0].Deactivate()
	program.Deactivate()

	// Act
	require.NoError(t, repo.Update(nil, program))
	found, err := repo.FindByID(nil, program.ProgramID())

	// Assert
	require.NoError(t, err)
	assert.False(t, found.IsActive())
	require.Len(t, found.Rewards(), 2)

	first, ok := found.FindReward(program.Rewards()[0].RewardID())
	require.True(t, ok)
	assert.False(t, first.IsActive(), "existing reward should be upserted")

	seasonal, ok := found.FindReward(program.Rewards()[1].RewardID())
	require.True(t, ok)
	require.NotNil(t, seasonal.ValidFrom())
	assert.True(t, seasonal.ValidFrom().Equal(from))
}

func TestGORMProgramRepository_Update_NotSaved_MapsToErrProgramNotFound(t *testing.T) {
	// Arrange
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewProgramRepository(db)

	// Act
	err := repo.Update(nil, newTestStampProgram(t))

	// Assert
	assert.ErrorIs(t, err, loyalty.ErrProgramNotFound)
}
