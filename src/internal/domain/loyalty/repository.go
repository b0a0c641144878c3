package loyalty

import "github.com/jackyeh168/loyalty_crm/src/internal/domain/shared"

// ===========================
// Repository 介面
// ===========================

// CardRepository 會員卡倉儲介面
//
// 設計原則：
// 1. Domain Layer 定義介面，Infrastructure Layer 實作（GORM、記憶體）
// 2. 卡片與其交易紀錄一起載入、一起寫入
// 3. 寫入使用樂觀鎖：以載入時的 Version 比對，成功後版本號 +1 並回寫到聚合根
//
// 事務使用範例：
//   txManager.InTransaction(ctx, func(txCtx shared.TransactionContext) error {
//       card, _ := cardRepo.FindByID(txCtx, cardID)
//       tx, err := card.IssueStamps(2, storeID, staffID, "")
//       if err != nil {
//           return err
//       }
//       return cardRepo.Update(txCtx, card, tx)
//   })
type CardRepository interface {
	// Save 保存新卡片（Version 0 → 1）
	// 錯誤：ErrCardAlreadyExists（同一顧客在同一方案已有卡片）
	Save(ctx shared.TransactionContext, card *LoyaltyCard) error

	// FindByID 依卡片 ID 載入（含交易紀錄）
	// 錯誤：ErrCardNotFound
	FindByID(ctx shared.TransactionContext, cardID CardID) (*LoyaltyCard, error)

	// FindByCustomerAndProgram 依顧客與方案查找（一位顧客在一個方案只有一張卡）
	// 錯誤：ErrCardNotFound
	FindByCustomerAndProgram(ctx shared.TransactionContext, customerID CustomerID, programID ProgramID) (*LoyaltyCard, error)

	// Update 寫入卡片狀態與新交易紀錄（newTx 可為 nil，如狀態變更）
	// 前置條件：卡片的 Version 等於儲存中的版本
	// 錯誤：ErrVersionConflict（版本不符）、ErrCardNotFound
	Update(ctx shared.TransactionContext, card *LoyaltyCard, newTx *Transaction) error
}

// ProgramRepository 會員方案倉儲介面（讀取為主，含等級與獎勵）
type ProgramRepository interface {
	// Save 保存新方案（連同等級與獎勵）
	Save(ctx shared.TransactionContext, program *LoyaltyProgram) error

	// FindByID 載入方案（含等級與獎勵）
	// 錯誤：ErrProgramNotFound
	FindByID(ctx shared.TransactionContext, programID ProgramID) (*LoyaltyProgram, error)

	// Update 更新方案欄位，並新增尚未保存的等級與獎勵
	// 錯誤：ErrProgramNotFound
	Update(ctx shared.TransactionContext, program *LoyaltyProgram) error
}

// ===========================
// Repository 錯誤定義
// ===========================

const (
	ErrCodeCardNotFound      ErrorCode = "CARD_NOT_FOUND"
	ErrCodeCardAlreadyExists ErrorCode = "CARD_ALREADY_EXISTS"
	ErrCodeProgramNotFound   ErrorCode = "PROGRAM_NOT_FOUND"
	ErrCodeRewardNotFound    ErrorCode = "REWARD_NOT_FOUND"
	ErrCodeRepositoryError   ErrorCode = "REPOSITORY_ERROR"
)

var (
	// ErrCardNotFound 卡片不存在
	ErrCardNotFound = newDomainError(ErrCodeCardNotFound, "會員卡不存在")

	// ErrCardAlreadyExists 顧客已加入此方案
	ErrCardAlreadyExists = newDomainError(ErrCodeCardAlreadyExists, "顧客已持有此方案的會員卡")

	// ErrProgramNotFound 方案不存在
	ErrProgramNotFound = newDomainError(ErrCodeProgramNotFound, "會員方案不存在")

	// ErrRewardNotFound 獎勵不存在於卡片所屬方案
	ErrRewardNotFound = newDomainError(ErrCodeRewardNotFound, "獎勵不存在")

	// ErrRepositoryError 倉儲操作錯誤（通用）
	ErrRepositoryError = newDomainError(ErrCodeRepositoryError, "倉儲操作失敗")
)
