package persistence

import (
	"github.com/jackyeh168/loyalty_crm/src/internal/domain/loyalty"
	"github.com/jackyeh168/loyalty_crm/src/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMProgramRepository GORM 實作的會員方案倉儲（含等級與獎勵）
type GORMProgramRepository struct {
	db *gorm.DB
}

// NewProgramRepository 建立會員方案倉儲
func NewProgramRepository(db *gorm.DB) *GORMProgramRepository {
	return &GORMProgramRepository{db: db}
}

var _ loyalty.ProgramRepository = (*GORMProgramRepository)(nil)

// Save 新增方案與其等級、獎勵
func (r *GORMProgramRepository) Save(ctx shared.TransactionContext, program *loyalty.LoyaltyProgram) error {
	db := getDB(ctx, r.db)

	if err := db.Omit(clause.Associations).Create(toProgramModel(program)).Error; err != nil {
		return mapError(err, nil, nil)
	}
	return r.upsertChildren(db, program)
}

// FindByID 載入方案（Tiers 依 tier_order 排序）
func (r *GORMProgramRepository) FindByID(ctx shared.TransactionContext, programID loyalty.ProgramID) (*loyalty.LoyaltyProgram, error) {
	db := getDB(ctx, r.db)

	var model LoyaltyProgramModel
	err := db.
		Preload("Tiers", func(tx *gorm.DB) *gorm.DB { return tx.Order("tier_order ASC") }).
		Preload("Rewards").
		First(&model, "id = ?", programID.String()).Error
	if err != nil {
		return nil, mapError(err, loyalty.ErrProgramNotFound, nil)
	}
	return toProgramDomain(&model)
}

// Update 更新方案欄位，等級與獎勵以 upsert 寫入
func (r *GORMProgramRepository) Update(ctx shared.TransactionContext, program *loyalty.LoyaltyProgram) error {
	db := getDB(ctx, r.db)
	model := toProgramModel(program)

	result := db.Model(&LoyaltyProgramModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"name":                   model.Name,
			"points_conversion_rate": model.PointsConversionRate,
			"has_tiers":              model.HasTiers,
			"start_date":             model.StartDate,
			"end_date":               model.EndDate,
			"is_active":              model.IsActive,
			"updated_at":             model.UpdatedAt,
		})
	if result.Error != nil {
		return mapError(result.Error, nil, nil)
	}
	if result.RowsAffected == 0 {
		return loyalty.ErrProgramNotFound.WithContext("program_id", model.ID)
	}
	return r.upsertChildren(db, program)
}

func (r *GORMProgramRepository) upsertChildren(db *gorm.DB, program *loyalty.LoyaltyProgram) error {
	if tiers := toTierModels(program); len(tiers) > 0 {
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&tiers).Error
		if err != nil {
			return mapError(err, nil, nil)
		}
	}
	if rewards := toRewardModels(program); len(rewards) > 0 {
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&rewards).Error
		if err != nil {
			return mapError(err, nil, nil)
		}
	}
	return nil
}
