package loyalty

import (
	"fmt"
	"strings"
	"time"
)

// now 統一的時間來源（UTC）
var now = func() time.Time {
	return time.Now().UTC()
}

// ===========================
// ProgramType 方案類型
// ===========================

// ProgramType 會員方案類型：集點卡（印章）或積分制
type ProgramType string

const (
	ProgramTypeStamp  ProgramType = "stamp"
	ProgramTypePoints ProgramType = "points"
)

// ParseProgramType 從字串解析方案類型（大小寫不敏感）
func ParseProgramType(s string) (ProgramType, error) {
	switch ProgramType(strings.ToLower(strings.TrimSpace(s))) {
	case ProgramTypeStamp:
		return ProgramTypeStamp, nil
	case ProgramTypePoints:
		return ProgramTypePoints, nil
	default:
		return "", ErrInvalidProgram.WithContext("program_type", s)
	}
}

// IsValid 是否為已知類型
func (t ProgramType) IsValid() bool {
	return t == ProgramTypeStamp || t == ProgramTypePoints
}

// String 實現 fmt.Stringer
func (t ProgramType) String() string {
	return string(t)
}

// ===========================
// CardStatus 卡片狀態
// ===========================

// CardStatus 卡片狀態
//
// 狀態機：
//   Active    → Suspended, Expired
//   Suspended → Active, Expired
//   Expired   → （終態）
type CardStatus string

const (
	CardStatusActive    CardStatus = "active"
	CardStatusSuspended CardStatus = "suspended"
	CardStatusExpired   CardStatus = "expired"
)

// ParseCardStatus 從字串解析卡片狀態
func ParseCardStatus(s string) (CardStatus, error) {
	switch CardStatus(strings.ToLower(strings.TrimSpace(s))) {
	case CardStatusActive:
		return CardStatusActive, nil
	case CardStatusSuspended:
		return CardStatusSuspended, nil
	case CardStatusExpired:
		return CardStatusExpired, nil
	default:
		return "", fmt.Errorf("%w: unknown card status %q", ErrCorruptedCard, s)
	}
}

// CanTransitionTo 判斷是否允許轉換到目標狀態（不含相同狀態的冪等情況）
func (s CardStatus) CanTransitionTo(target CardStatus) bool {
	switch s {
	case CardStatusActive:
		return target == CardStatusSuspended || target == CardStatusExpired
	case CardStatusSuspended:
		return target == CardStatusActive || target == CardStatusExpired
	default:
		return false
	}
}

// String 實現 fmt.Stringer
func (s CardStatus) String() string {
	return string(s)
}

// ===========================
// TransactionType 交易類型
// ===========================

// TransactionType 交易紀錄類型
type TransactionType string

const (
	TransactionTypeStampIssuance    TransactionType = "stamp_issuance"
	TransactionTypePointsIssuance   TransactionType = "points_issuance"
	TransactionTypeRewardRedemption TransactionType = "reward_redemption"
	TransactionTypeStampVoid        TransactionType = "stamp_void"
	TransactionTypePointsVoid       TransactionType = "points_void"
)

// ParseTransactionType 從字串解析交易類型
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(strings.ToLower(strings.TrimSpace(s))); t {
	case TransactionTypeStampIssuance,
		TransactionTypePointsIssuance,
		TransactionTypeRewardRedemption,
		TransactionTypeStampVoid,
		TransactionTypePointsVoid:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown transaction type %q", ErrCorruptedCard, s)
	}
}

// String 實現 fmt.Stringer
func (t TransactionType) String() string {
	return string(t)
}
