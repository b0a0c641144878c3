package persistence

import (
	"github.com/jackyeh168/loyalty_crm/src/internal/domain/loyalty"
	"github.com/jackyeh168/loyalty_crm/src/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ===========================
// GORMCardRepository
// ===========================

// GORMCardRepository GORM 實作的會員卡倉儲
//
// 職責：
// - 卡片列與交易紀錄列的讀寫（同一事務內）
// - 樂觀鎖：UPDATE ... WHERE id = ? AND version = ?
// - GORM 錯誤映射為 Domain 錯誤
//
// 不包含業務邏輯。
type GORMCardRepository struct {
	db *gorm.DB
}

// NewCardRepository 建立會員卡倉儲
func NewCardRepository(db *gorm.DB) *GORMCardRepository {
	return &GORMCardRepository{db: db}
}

var _ loyalty.CardRepository = (*GORMCardRepository)(nil)

// Save 新增卡片與其既有交易紀錄，版本號設為 1
func (r *GORMCardRepository) Save(ctx shared.TransactionContext, card *loyalty.LoyaltyCard) error {
	db := getDB(ctx, r.db)

	model := toCardModel(card)
	model.Version = 1
	if err := db.Create(model).Error; err != nil {
		return mapError(err, nil, loyalty.ErrCardAlreadyExists)
	}

	for i, tx := range card.Transactions() {
		if err := db.Create(toTransactionModel(tx, i+1)).Error; err != nil {
			return mapError(err, nil, nil)
		}
	}

	card.SyncVersion(1)
	return nil
}

// FindByID 依 ID 載入卡片與交易紀錄
//
// 在事務中呼叫時對卡片列加 FOR UPDATE（PostgreSQL）；SQLite 忽略行鎖。
func (r *GORMCardRepository) FindByID(ctx shared.TransactionContext, cardID loyalty.CardID) (*loyalty.LoyaltyCard, error) {
	db := getDB(ctx, r.db)
	query := db
	if db != r.db {
		query = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var model LoyaltyCardModel
	if err := query.First(&model, "id = ?", cardID.String()).Error; err != nil {
		return nil, mapError(err, loyalty.ErrCardNotFound, nil)
	}
	return r.hydrate(db, &model)
}

// FindByCustomerAndProgram 依顧客與方案查找卡片
func (r *GORMCardRepository) FindByCustomerAndProgram(
	ctx shared.TransactionContext,
	customerID loyalty.CustomerID,
	programID loyalty.ProgramID,
) (*loyalty.LoyaltyCard, error) {
	db := getDB(ctx, r.db)

	var model LoyaltyCardModel
	err := db.Where("customer_id = ? AND program_id = ?", customerID.String(), programID.String()).
		First(&model).Error
	if err != nil {
		return nil, mapError(err, loyalty.ErrCardNotFound, nil)
	}
	return r.hydrate(db, &model)
}

// Update 以樂觀鎖寫入卡片，並附加新交易紀錄
//
// 步驟：
// 1. UPDATE loyalty_cards SET ..., version = version+1 WHERE id = ? AND version = ?
// 2. RowsAffected = 0 → 卡片不存在（ErrCardNotFound）或版本已變（ErrVersionConflict）
// 3. 新增交易列，Sequence = 卡片交易數（(card_id, sequence) 唯一索引再擋一次並發寫入）
// 4. 回寫聚合根版本號
//
// 必須在 TransactionManager.InTransaction 內呼叫，步驟 1 與 3 才會一起提交或回滾。
func (r *GORMCardRepository) Update(ctx shared.TransactionContext, card *loyalty.LoyaltyCard, newTx *loyalty.Transaction) error {
	db := getDB(ctx, r.db)
	nextVersion := card.Version() + 1

	result := db.Model(&LoyaltyCardModel{}).
		Where("id = ? AND version = ?", card.CardID().String(), card.Version()).
		Updates(cardUpdateColumns(card, nextVersion))
	if result.Error != nil {
		return mapError(result.Error, nil, nil)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := db.Model(&LoyaltyCardModel{}).Where("id = ?", card.CardID().String()).Count(&count).Error; err != nil {
			return mapError(err, nil, nil)
		}
		if count == 0 {
			return loyalty.ErrCardNotFound.WithContext("card_id", card.CardID().String())
		}
		return loyalty.ErrVersionConflict.WithContext(
			"card_id", card.CardID().String(),
			"expected_version", card.Version(),
		)
	}

	if newTx != nil {
		sequence := len(card.Transactions())
		if err := db.Create(toTransactionModel(newTx, sequence)).Error; err != nil {
			if isUniqueViolation(err) {
				return loyalty.ErrVersionConflict.WithContext(
					"card_id", card.CardID().String(),
					"sequence", sequence,
				)
			}
			return mapError(err, nil, nil)
		}
	}

	card.SyncVersion(nextVersion)
	return nil
}

func (r *GORMCardRepository) hydrate(db *gorm.DB, model *LoyaltyCardModel) (*loyalty.LoyaltyCard, error) {
	var txModels []LoyaltyTransactionModel
	if err := db.Where("card_id = ?", model.ID).Order("sequence ASC").Find(&txModels).Error; err != nil {
		return nil, mapError(err, nil, nil)
	}
	return toCardDomain(model, txModels)
}
