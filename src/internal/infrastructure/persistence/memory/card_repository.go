package memory

import (
	"github.com/jackyeh168/loyalty_crm/src/internal/domain/loyalty"
	"github.com/jackyeh168/loyalty_crm/src/internal/domain/shared"
)

// CardRepository 記憶體版 loyalty.CardRepository
type CardRepository struct {
	store *Store
}

// NewCardRepository 建立會員卡倉儲
func NewCardRepository(store *Store) *CardRepository {
	return &CardRepository{store: store}
}

var _ loyalty.CardRepository = (*CardRepository)(nil)

// Save 新增卡片，版本號設為 1
func (r *CardRepository) Save(ctx shared.TransactionContext, card *loyalty.LoyaltyCard) error {
	snap, err := snapshotCard(card, 1)
	if err != nil {
		return err
	}
	tx := r.store.txFrom(ctx)

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.existsLocked(tx, card) {
		return loyalty.ErrCardAlreadyExists.WithContext(
			"customer_id", card.CustomerID().String(),
			"program_id", card.ProgramID().String(),
		)
	}
	if tx != nil {
		tx.cards[card.CardID()] = &pendingCard{card: snap, isNew: true}
	} else {
		r.store.cards[card.CardID()] = snap
		r.store.cardIndex[keyOf(card)] = card.CardID()
	}
	card.SyncVersion(1)
	return nil
}

// FindByID 依 ID 載入卡片快照
func (r *CardRepository) FindByID(ctx shared.TransactionContext, cardID loyalty.CardID) (*loyalty.LoyaltyCard, error) {
	tx := r.store.txFrom(ctx)

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	current, ok := r.lookupLocked(tx, cardID)
	if !ok {
		return nil, loyalty.ErrCardNotFound.WithContext("card_id", cardID.String())
	}
	return snapshotCard(current, current.Version())
}

// FindByCustomerAndProgram 依顧客與方案查找
func (r *CardRepository) FindByCustomerAndProgram(
	ctx shared.TransactionContext,
	customerID loyalty.CustomerID,
	programID loyalty.ProgramID,
) (*loyalty.LoyaltyCard, error) {
	tx := r.store.txFrom(ctx)
	key := cardKey{customerID: customerID, programID: programID}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if tx != nil {
		for _, p := range tx.cards {
			if keyOf(p.card) == key {
				return snapshotCard(p.card, p.card.Version())
			}
		}
	}
	id, ok := r.store.cardIndex[key]
	if !ok {
		return nil, loyalty.ErrCardNotFound.WithContext(
			"customer_id", customerID.String(),
			"program_id", programID.String(),
		)
	}
	current := r.store.cards[id]
	return snapshotCard(current, current.Version())
}

// Update 以樂觀鎖寫入卡片（newTx 已包含在卡片交易紀錄中）
func (r *CardRepository) Update(ctx shared.TransactionContext, card *loyalty.LoyaltyCard, _ *loyalty.Transaction) error {
	tx := r.store.txFrom(ctx)
	nextVersion := card.Version() + 1
	snap, err := snapshotCard(card, nextVersion)
	if err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.lookupLocked(tx, card.CardID())
	if !ok {
		return loyalty.ErrCardNotFound.WithContext("card_id", card.CardID().String())
	}
	if current.Version() != card.Version() {
		return loyalty.ErrVersionConflict.WithContext(
			"card_id", card.CardID().String(),
			"expected_version", card.Version(),
		)
	}

	if tx != nil {
		p, staged := tx.cards[card.CardID()]
		if !staged {
			p = &pendingCard{baseVersion: current.Version()}
			tx.cards[card.CardID()] = p
		}
		p.card = snap
	} else {
		r.store.cards[card.CardID()] = snap
	}
	card.SyncVersion(nextVersion)
	return nil
}

func (r *CardRepository) lookupLocked(tx *txContext, cardID loyalty.CardID) (*loyalty.LoyaltyCard, bool) {
	if tx != nil {
		if p, ok := tx.cards[cardID]; ok {
			return p.card, true
		}
	}
	card, ok := r.store.cards[cardID]
	return card, ok
}

func (r *CardRepository) existsLocked(tx *txContext, card *loyalty.LoyaltyCard) bool {
	if _, ok := r.lookupLocked(tx, card.CardID()); ok {
		return true
	}
	if _, ok := r.store.cardIndex[keyOf(card)]; ok {
		return true
	}
	if tx != nil {
		for _, p := range tx.cards {
			if keyOf(p.card) == keyOf(card) {
				return true
			}
		}
	}
	return false
}
