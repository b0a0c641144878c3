package shared

import (
	"strings"

	"github.com/google/uuid"
)

// ===========================
// EntityID[T] 泛型實體 ID
// ===========================

// EntityID 泛型實體 ID 值對象
//
// 泛型參數 T 僅作為標記類型（marker type）：
//   type CardMarker struct{}
//   type CardID = shared.EntityID[CardMarker]
//
// CardID 與 ProgramID 底層都是 UUID，但在編譯期是不同類型，無法混用。
// 零值代表「未設定」，可用於選填欄位（如 StaffID）。
type EntityID[T any] struct {
	value uuid.UUID
}

// NewEntityID 生成新的實體 ID（UUID v4）
func NewEntityID[T any]() EntityID[T] {
	return EntityID[T]{value: uuid.New()}
}

// EntityIDFromString 從字串解析實體 ID
//
// errTemplate 由各 bounded context 提供（如 loyalty.ErrInvalidCardID），
// 若支持 WithContext 則附加輸入值與解析錯誤。
func EntityIDFromString[T any](s string, errTemplate error) (EntityID[T], error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		if domainErr, ok := errTemplate.(interface {
			WithContext(keyValues ...interface{}) error
		}); ok {
			return EntityID[T]{}, domainErr.WithContext(
				"input", s,
				"parse_error", err.Error(),
			)
		}
		return EntityID[T]{}, errTemplate
	}
	return EntityID[T]{value: id}, nil
}

// OptionalEntityIDFromString 解析選填 ID
//
// 空字串返回零值（未設定），非空但格式錯誤時返回 errTemplate。
func OptionalEntityIDFromString[T any](s string, errTemplate error) (EntityID[T], error) {
	if strings.TrimSpace(s) == "" {
		return EntityID[T]{}, nil
	}
	return EntityIDFromString[T](s, errTemplate)
}

// String 小寫 UUID 字串；零值返回空字串，方便持久化選填欄位
func (e EntityID[T]) String() string {
	if e.IsEmpty() {
		return ""
	}
	return e.value.String()
}

// Equals 比較兩個同類型 ID
func (e EntityID[T]) Equals(other EntityID[T]) bool {
	return e.value == other.value
}

// IsEmpty 是否為零值
func (e EntityID[T]) IsEmpty() bool {
	return e.value == uuid.Nil
}
