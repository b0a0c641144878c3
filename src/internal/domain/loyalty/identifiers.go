package loyalty

import (
	"github.com/jackyeh168/loyalty_crm/src/internal/domain/shared"
)

// ===========================
// 實體 ID 類型定義
// ===========================
//
// 所有 ID 都是 shared.EntityID[T] 的類型別名，
// 彼此之間是不同類型（CardID 不能當作 ProgramID 傳入）。
//
// 卡片對方案、顧客的關聯一律以 ID 表示，不持有對方的指標。

type (
	CardMarker        struct{}
	ProgramMarker     struct{}
	RewardMarker      struct{}
	TierMarker        struct{}
	TransactionMarker struct{}
	CustomerMarker    struct{}
	BrandMarker       struct{}
	StoreMarker       struct{}
	StaffMarker       struct{}
)

// CardID 會員卡 ID
type CardID = shared.EntityID[CardMarker]

// ProgramID 會員方案 ID
type ProgramID = shared.EntityID[ProgramMarker]

// RewardID 獎勵 ID
type RewardID = shared.EntityID[RewardMarker]

// TierID 會員等級 ID
type TierID = shared.EntityID[TierMarker]

// TransactionID 交易紀錄 ID
type TransactionID = shared.EntityID[TransactionMarker]

// CustomerID 顧客 ID（顧客資料由外部會員系統管理）
type CustomerID = shared.EntityID[CustomerMarker]

// BrandID 品牌 ID
type BrandID = shared.EntityID[BrandMarker]

// StoreID 門市 ID
type StoreID = shared.EntityID[StoreMarker]

// StaffID 員工 ID（選填，零值代表未指定）
type StaffID = shared.EntityID[StaffMarker]

func NewCardID() CardID               { return shared.NewEntityID[CardMarker]() }
func NewProgramID() ProgramID         { return shared.NewEntityID[ProgramMarker]() }
func NewRewardID() RewardID           { return shared.NewEntityID[RewardMarker]() }
func NewTierID() TierID               { return shared.NewEntityID[TierMarker]() }
func NewTransactionID() TransactionID { return shared.NewEntityID[TransactionMarker]() }
func NewCustomerID() CustomerID       { return shared.NewEntityID[CustomerMarker]() }
func NewBrandID() BrandID             { return shared.NewEntityID[BrandMarker]() }
func NewStoreID() StoreID             { return shared.NewEntityID[StoreMarker]() }
func NewStaffID() StaffID             { return shared.NewEntityID[StaffMarker]() }

// CardIDFromString 從字串解析卡片 ID
func CardIDFromString(s string) (CardID, error) {
	return shared.EntityIDFromString[CardMarker](s, ErrInvalidCardID)
}

// ProgramIDFromString 從字串解析方案 ID
func ProgramIDFromString(s string) (ProgramID, error) {
	return shared.EntityIDFromString[ProgramMarker](s, ErrInvalidProgramID)
}

// RewardIDFromString 從字串解析獎勵 ID
func RewardIDFromString(s string) (RewardID, error) {
	return shared.EntityIDFromString[RewardMarker](s, ErrInvalidRewardID)
}

// TierIDFromString 從字串解析等級 ID
func TierIDFromString(s string) (TierID, error) {
	return shared.EntityIDFromString[TierMarker](s, ErrInvalidTierID)
}

// TransactionIDFromString 從字串解析交易 ID
func TransactionIDFromString(s string) (TransactionID, error) {
	return shared.EntityIDFromString[TransactionMarker](s, ErrInvalidTransactionID)
}

// CustomerIDFromString 從字串解析顧客 ID
func CustomerIDFromString(s string) (CustomerID, error) {
	return shared.EntityIDFromString[CustomerMarker](s, ErrInvalidCustomerID)
}

// BrandIDFromString 從字串解析品牌 ID
func BrandIDFromString(s string) (BrandID, error) {
	return shared.EntityIDFromString[BrandMarker](s, ErrInvalidBrandID)
}

// StoreIDFromString 從字串解析門市 ID
//
// 空字串返回零值而非錯誤：「缺少門市」是業務規則（ErrMissingStore），
// 由 LoyaltyCard 的命令方法判斷，不屬於格式錯誤。
func StoreIDFromString(s string) (StoreID, error) {
	return shared.OptionalEntityIDFromString[StoreMarker](s, ErrInvalidStoreID)
}

// StaffIDFromString 從字串解析員工 ID（選填）
func StaffIDFromString(s string) (StaffID, error) {
	return shared.OptionalEntityIDFromString[StaffMarker](s, ErrInvalidStaffID)
}

// OptionalRewardIDFromString 解析選填獎勵 ID（持久化層使用）
func OptionalRewardIDFromString(s string) (RewardID, error) {
	return shared.OptionalEntityIDFromString[RewardMarker](s, ErrInvalidRewardID)
}
