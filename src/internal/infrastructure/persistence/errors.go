package persistence

import (
	"errors"
	"strings"

	"github.com/jackyeh168/loyalty_crm/src/internal/domain/loyalty"
	"gorm.io/gorm"
)

// uniqueViolationMarkers 各資料庫唯一約束錯誤訊息片段
//
// SQLite: "UNIQUE constraint failed"
// PostgreSQL: "duplicate key value violates unique constraint"（SQLSTATE 23505）
var uniqueViolationMarkers = []string{"UNIQUE constraint", "duplicate key", "23505"}

// mapError 將 GORM 錯誤映射為 Domain 錯誤
//
//   gorm.ErrRecordNotFound → notFound
//   唯一約束違反            → duplicate（可為 nil，表示不預期重複）
//   其他                    → loyalty.ErrRepositoryError
func mapError(err error, notFound, duplicate *loyalty.DomainError) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) && notFound != nil {
		return notFound
	}
	if duplicate != nil && isUniqueViolation(err) {
		return duplicate.WithContext("database_error", err.Error())
	}
	return loyalty.ErrRepositoryError.WithContext("database_error", err.Error())
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	for _, marker := range uniqueViolationMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
