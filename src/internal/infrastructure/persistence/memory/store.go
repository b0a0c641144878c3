// Package memory 記憶體版帳本儲存
//
// 與 GORM 實作遵守相同的樂觀鎖契約（版本比對、成功後 +1、回寫聚合根），
// 供測試與不接資料庫的單機部署使用。
//
// 讀出的一律是快照：呼叫端修改聚合不會影響儲存內容，直到 Update。
package memory

import (
	"context"
	"sync"

	"github.com/jackyeh168/loyalty_crm/src/internal/domain/loyalty"
	"github.com/jackyeh168/loyalty_crm/src/internal/domain/shared"
)

type cardKey struct {
	customerID loyalty.CustomerID
	programID  loyalty.ProgramID
}

// Store 記憶體資料集（卡片與方案）
type Store struct {
	mu        sync.RWMutex
	cards     map[loyalty.CardID]*loyalty.LoyaltyCard
	cardIndex map[cardKey]loyalty.CardID
	programs  map[loyalty.ProgramID]*loyalty.LoyaltyProgram
}

// NewStore 建立空的記憶體資料集
func NewStore() *Store {
	return &Store{
		cards:     make(map[loyalty.CardID]*loyalty.LoyaltyCard),
		cardIndex: make(map[cardKey]loyalty.CardID),
		programs:  make(map[loyalty.ProgramID]*loyalty.LoyaltyProgram),
	}
}

// ===========================
// 事務
// ===========================

type pendingCard struct {
	card        *loyalty.LoyaltyCard
	baseVersion int
	isNew       bool
}

type pendingProgram struct {
	program *loyalty.LoyaltyProgram
	isNew   bool
}

// txContext 暫存事務內的寫入，提交時才套用到 Store
type txContext struct {
	store    *Store
	cards    map[loyalty.CardID]*pendingCard
	programs map[loyalty.ProgramID]*pendingProgram
}

func (s *Store) txFrom(ctx shared.TransactionContext) *txContext {
	if tx, ok := ctx.(*txContext); ok && tx != nil && tx.store == s {
		return tx
	}
	return nil
}

// TransactionManager 記憶體版 shared.TransactionManager
//
// fn 的寫入先暫存；fn 成功且 ctx 未取消才在鎖內重新比對版本並一次套用。
// fn 返回錯誤或 panic 時暫存直接丟棄。
type TransactionManager struct {
	store *Store
}

// NewTransactionManager 建立事務管理器
func NewTransactionManager(store *Store) *TransactionManager {
	return &TransactionManager{store: store}
}

var _ shared.TransactionManager = (*TransactionManager)(nil)

// InTransaction 在暫存事務中執行 fn
func (m *TransactionManager) InTransaction(ctx context.Context, fn func(txCtx shared.TransactionContext) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &txContext{
		store:    m.store,
		cards:    make(map[loyalty.CardID]*pendingCard),
		programs: make(map[loyalty.ProgramID]*pendingProgram),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.store.commit(tx)
}

func (s *Store) commit(tx *txContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range tx.cards {
		stored, exists := s.cards[id]
		if p.isNew {
			if exists {
				return loyalty.ErrCardAlreadyExists.WithContext("card_id", id.String())
			}
			if _, taken := s.cardIndex[keyOf(p.card)]; taken {
				return loyalty.ErrCardAlreadyExists.WithContext(
					"customer_id", p.card.CustomerID().String(),
					"program_id", p.card.ProgramID().String(),
				)
			}
			continue
		}
		if !exists {
			return loyalty.ErrCardNotFound.WithContext("card_id", id.String())
		}
		if stored.Version() != p.baseVersion {
			return loyalty.ErrVersionConflict.WithContext(
				"card_id", id.String(),
				"expected_version", p.baseVersion,
			)
		}
	}
	for id, p := range tx.programs {
		_, exists := s.programs[id]
		if p.isNew && exists {
			return loyalty.ErrRepositoryError.WithContext("program_id", id.String(), "reason", "duplicate program id")
		}
		if !p.isNew && !exists {
			return loyalty.ErrProgramNotFound.WithContext("program_id", id.String())
		}
	}

	for id, p := range tx.cards {
		s.cards[id] = p.card
		s.cardIndex[keyOf(p.card)] = id
	}
	for id, p := range tx.programs {
		s.programs[id] = p.program
	}
	return nil
}

func keyOf(card *loyalty.LoyaltyCard) cardKey {
	return cardKey{customerID: card.CustomerID(), programID: card.ProgramID()}
}

// ===========================
// 快照
// ===========================

func snapshotCard(card *loyalty.LoyaltyCard, version int) (*loyalty.LoyaltyCard, error) {
	// 交易紀錄不可變，直接共用指標
	return loyalty.ReconstructLoyaltyCard(
		card.CardID(),
		card.ProgramID(),
		card.CustomerID(),
		card.Type(),
		card.StampsCollected(),
		card.PointsBalance(),
		card.Status(),
		card.QRCode(),
		card.ExpiresAt(),
		card.CreatedAt(),
		card.UpdatedAt(),
		version,
		card.Transactions(),
	)
}

func snapshotProgram(program *loyalty.LoyaltyProgram) (*loyalty.LoyaltyProgram, error) {
	tiers := program.Tiers()
	rewards := make([]*loyalty.Reward, 0, len(program.Rewards()))
	for _, r := range program.Rewards() {
		clone, err := loyalty.ReconstructReward(
			r.RewardID(), r.ProgramID(), r.Title(), r.Description(), r.RequiredValue(),
			r.ValidFrom(), r.ValidTo(), r.IsActive(),
		)
		if err != nil {
			return nil, err
		}
		rewards = append(rewards, clone)
	}
	return loyalty.ReconstructLoyaltyProgram(
		program.ProgramID(),
		program.BrandID(),
		program.Name(),
		program.Type(),
		program.PointsConversionRate(),
		program.HasTiers(),
		program.StartDate(),
		program.EndDate(),
		program.IsActive(),
		program.CreatedAt(),
		program.UpdatedAt(),
		tiers,
		rewards,
	)
}
