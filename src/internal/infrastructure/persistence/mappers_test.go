package persistence

import (
	"testing"
	"time"

	"github.com/jackyeh168/loyalty_crm/src/internal/domain/loyalty"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===========================
// Model 轉換測試
// ===========================

func validCardModel() *LoyaltyCardModel {
	cardID := loyalty.NewCardID()
	now := time.Now().UTC()
	return &LoyaltyCardModel{
		ID:              cardID.String(),
		ProgramID:       loyalty.NewProgramID().String(),
		CustomerID:      loyalty.NewCustomerID().String(),
		Type:            loyalty.ProgramTypeStamp.String(),
		StampsCollected: 2,
		PointsBalance:   decimal.Zero,
		Status:          loyalty.CardStatusActive.String(),
		QRCode:          loyalty.QRCodeFor(cardID),
		Version:         3,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestToCardDomain_ValidModel_Success(t *testing.T) {
	// Arrange
	model := validCardModel()
	tx := LoyaltyTransactionModel{
		ID:        loyalty.NewTransactionID().String(),
		CardID:    model.ID,
		Sequence:  1,
		Type:      loyalty.TransactionTypeStampIssuance.String(),
		Quantity:  2,
		StoreID:   loyalty.NewStoreID().String(),
		Timestamp: time.Now().UTC(),
	}

	// Act
	card, err := toCardDomain(model, []LoyaltyTransactionModel{tx})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, model.ID, card.CardID().String())
	assert.Equal(t, 2, card.StampsCollected())
	assert.Equal(t, 3, card.Version())
	assert.NoError(t, card.VerifyLedger())
	assert.Empty(t, card.PullEvents(), "reconstruction must not raise events")
}

func TestToCardDomain_CorruptedRows_ReturnsError(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m *LoyaltyCardModel)
		wantErr error
	}{
		{"卡片 ID 無效", func(m *LoyaltyCardModel) { m.ID = "not-a-uuid" }, loyalty.ErrInvalidCardID},
		{"未知狀態", func(m *LoyaltyCardModel) { m.Status = "frozen" }, loyalty.ErrCorruptedCard},
		{"未知類型", func(m *LoyaltyCardModel) { m.Type = "cash" }, loyalty.ErrCorruptedCard},
		{"集點卡持有積分", func(m *LoyaltyCardModel) { m.PointsBalance = decimal.NewFromInt(5) }, loyalty.ErrCorruptedCard},
		{"QR Code 不符", func(m *LoyaltyCardModel) { m.QRCode = "LC-DEADBEEF" }, loyalty.ErrCorruptedCard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := validCardModel()
			tt.mutate(model)

			card, err := toCardDomain(model, nil)

			assert.Nil(t, card)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestToTransactionDomain_InvalidStoreID_ReturnsErrCorruptedCard(t *testing.T) {
	// Arrange
	model := &LoyaltyTransactionModel{
		ID:        loyalty.NewTransactionID().String(),
		CardID:    loyalty.NewCardID().String(),
		Type:      loyalty.TransactionTypeStampIssuance.String(),
		Quantity:  1,
		StoreID:   "store-1",
		Timestamp: time.Now().UTC(),
	}

	// Act
	tx, err := toTransactionDomain(model)

	// Assert
	assert.Nil(t, tx)
	assert.ErrorIs(t, err, loyalty.ErrCorruptedCard)
}

func TestCardUpdateColumns_WritesZeroValues(t *testing.T) {
	// Arrange
	card, err := toCardDomain(validCardModel(), nil)
	require.NoError(t, err)

	// Act
	cols := cardUpdateColumns(card, 4)

	// Assert
	assert.Equal(t, 4, cols["version"])
	assert.Equal(t, 2, cols["stamps_collected"])
	assert.Contains(t, cols, "expires_at", "nil expiration must still be written")
}
