package persistence

import (
	"context"

	"github.com/jackyeh168/loyalty_crm/src/internal/domain/shared"
	"gorm.io/gorm"
)

// ===========================
// GORM TransactionContext 實作
// ===========================

// gormTransactionContext 封裝事務中的 *gorm.DB
//
// 只實作 shared.TransactionContext 標記介面，
// Domain / Application Layer 拿不到 *gorm.DB。
type gormTransactionContext struct {
	db *gorm.DB
}

// NewGORMTransactionContext 以既有連線（通常是事務中的 tx）建立事務上下文
func NewGORMTransactionContext(db *gorm.DB) shared.TransactionContext {
	return &gormTransactionContext{db: db}
}

// GetDB 僅供 Infrastructure Layer 使用
func (c *gormTransactionContext) GetDB() *gorm.DB {
	return c.db
}

// ===========================
// GORMTransactionManager
// ===========================

// GORMTransactionManager 以 gorm.DB.Transaction 實作 shared.TransactionManager
//
// 行為：
// - fn 返回錯誤 → 回滾並返回該錯誤
// - fn panic → 回滾並重新 panic
// - ctx 在提交前被取消 → 回滾並返回 ctx.Err()
type GORMTransactionManager struct {
	db *gorm.DB
}

// NewGORMTransactionManager 建立事務管理器
func NewGORMTransactionManager(db *gorm.DB) *GORMTransactionManager {
	return &GORMTransactionManager{db: db}
}

// InTransaction 在單一資料庫事務中執行 fn
func (m *GORMTransactionManager) InTransaction(ctx context.Context, fn func(txCtx shared.TransactionContext) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := fn(NewGORMTransactionContext(tx)); err != nil {
			return err
		}
		// 提交前最後一次檢查：已取消的命令不得留下任何寫入
		return ctx.Err()
	})
}

// getDB 從 TransactionContext 取出 *gorm.DB；非 GORM 上下文（含 nil）使用預設連線
func getDB(ctx shared.TransactionContext, fallback *gorm.DB) *gorm.DB {
	if gormCtx, ok := ctx.(*gormTransactionContext); ok && gormCtx != nil {
		return gormCtx.GetDB()
	}
	return fallback
}
