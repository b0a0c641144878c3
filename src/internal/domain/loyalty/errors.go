package loyalty

import "fmt"

// ===========================
// 錯誤代碼定義
// ===========================

// ErrorCode 錯誤代碼類型（用於 HTTP 狀態碼映射與日誌聚合）
type ErrorCode string

// 卡片命令相關
const (
	ErrCodeWrongCardType            ErrorCode = "CARD_WRONG_TYPE"
	ErrCodeCardNotActive            ErrorCode = "CARD_NOT_ACTIVE"
	ErrCodeInvalidQuantity          ErrorCode = "STAMP_QUANTITY_INVALID"
	ErrCodeInvalidPointsAmount      ErrorCode = "POINTS_AMOUNT_INVALID"
	ErrCodeInvalidTransactionAmount ErrorCode = "TRANSACTION_AMOUNT_INVALID"
	ErrCodeMissingStore             ErrorCode = "STORE_MISSING"
	ErrCodeInsufficientBalance      ErrorCode = "BALANCE_INSUFFICIENT"
	ErrCodeInvalidStatusTransition  ErrorCode = "CARD_STATUS_TRANSITION_INVALID"
	ErrCodeInvalidExpirationDate    ErrorCode = "CARD_EXPIRATION_INVALID"
	ErrCodeVersionConflict          ErrorCode = "CARD_VERSION_CONFLICT"
	ErrCodeLedgerMismatch           ErrorCode = "LEDGER_MISMATCH"
	ErrCodeCorruptedCard            ErrorCode = "CARD_CORRUPTED"
)

// 獎勵相關
const (
	ErrCodeRewardProgramMismatch ErrorCode = "REWARD_PROGRAM_MISMATCH"
	ErrCodeRewardInactive        ErrorCode = "REWARD_INACTIVE"
	ErrCodeRewardNotValidAtTime  ErrorCode = "REWARD_NOT_VALID_AT_TIME"
	ErrCodeInvalidReward         ErrorCode = "REWARD_INVALID"
)

// 方案 / 等級相關
const (
	ErrCodeInvalidProgram      ErrorCode = "PROGRAM_INVALID"
	ErrCodeProgramInactive     ErrorCode = "PROGRAM_INACTIVE"
	ErrCodeProgramTypeMismatch ErrorCode = "PROGRAM_TYPE_MISMATCH"
	ErrCodeInvalidTier         ErrorCode = "TIER_INVALID"
	ErrCodeInvalidTierLadder   ErrorCode = "TIER_LADDER_INVALID"
)

// ID 相關
const (
	ErrCodeInvalidCardID        ErrorCode = "CARD_ID_INVALID"
	ErrCodeInvalidProgramID     ErrorCode = "PROGRAM_ID_INVALID"
	ErrCodeInvalidRewardID      ErrorCode = "REWARD_ID_INVALID"
	ErrCodeInvalidTierID        ErrorCode = "TIER_ID_INVALID"
	ErrCodeInvalidTransactionID ErrorCode = "TRANSACTION_ID_INVALID"
	ErrCodeInvalidCustomerID    ErrorCode = "CUSTOMER_ID_INVALID"
	ErrCodeInvalidBrandID       ErrorCode = "BRAND_ID_INVALID"
	ErrCodeInvalidStoreID       ErrorCode = "STORE_ID_INVALID"
	ErrCodeInvalidStaffID       ErrorCode = "STAFF_ID_INVALID"
)

// ===========================
// DomainError 結構
// ===========================

// DomainError 領域錯誤
//
// Code 用於判斷錯誤種類（errors.Is 以 Code 比較），
// Context 攜帶卡片 ID、操作名稱、違規值等調試資訊。
type DomainError struct {
	Code    ErrorCode
	Message string
	Context map[string]interface{}
}

// Error 實現 error 接口
func (e *DomainError) Error() string {
	if len(e.Context) == 0 {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s (context: %+v)", e.Code, e.Message, e.Context)
}

// WithContext 添加上下文信息（返回新的錯誤實例，原實例不變）
func (e *DomainError) WithContext(keyValues ...interface{}) error {
	if len(keyValues)%2 != 0 {
		panic("WithContext requires even number of arguments (key-value pairs)")
	}

	ctx := make(map[string]interface{}, len(e.Context)+len(keyValues)/2)
	for k, v := range e.Context {
		ctx[k] = v
	}
	for i := 0; i < len(keyValues); i += 2 {
		key, ok := keyValues[i].(string)
		if !ok {
			panic(fmt.Sprintf("context key must be string, got %T", keyValues[i]))
		}
		ctx[key] = keyValues[i+1]
	}

	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Context: ctx,
	}
}

// Is 實現 errors.Is 接口
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func newDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// ===========================
// 預定義錯誤
// ===========================

// 卡片命令錯誤
var (
	ErrWrongCardType            = newDomainError(ErrCodeWrongCardType, "卡片類型不支援此操作")
	ErrCardNotActive            = newDomainError(ErrCodeCardNotActive, "卡片未啟用")
	ErrInvalidQuantity          = newDomainError(ErrCodeInvalidQuantity, "印章數量必須大於 0")
	ErrInvalidPointsAmount      = newDomainError(ErrCodeInvalidPointsAmount, "積分數量必須大於 0")
	ErrInvalidTransactionAmount = newDomainError(ErrCodeInvalidTransactionAmount, "交易金額不能為負數")
	ErrMissingStore             = newDomainError(ErrCodeMissingStore, "必須指定門市")
	ErrInsufficientBalance      = newDomainError(ErrCodeInsufficientBalance, "卡片餘額不足")
	ErrInvalidStatusTransition  = newDomainError(ErrCodeInvalidStatusTransition, "無效的卡片狀態轉換")
	ErrInvalidExpirationDate    = newDomainError(ErrCodeInvalidExpirationDate, "到期日必須晚於當前時間")
	ErrVersionConflict          = newDomainError(ErrCodeVersionConflict, "卡片已被其他請求修改")
	ErrLedgerMismatch           = newDomainError(ErrCodeLedgerMismatch, "交易紀錄重放結果與卡片餘額不一致")
	ErrCorruptedCard            = newDomainError(ErrCodeCorruptedCard, "卡片資料損壞")
)

// 獎勵錯誤
var (
	ErrRewardProgramMismatch = newDomainError(ErrCodeRewardProgramMismatch, "獎勵不屬於此卡片的方案")
	ErrRewardInactive        = newDomainError(ErrCodeRewardInactive, "獎勵已停用")
	ErrRewardNotValidAtTime  = newDomainError(ErrCodeRewardNotValidAtTime, "獎勵不在有效期間內")
	ErrInvalidReward         = newDomainError(ErrCodeInvalidReward, "無效的獎勵")
)

// 方案 / 等級錯誤
var (
	ErrInvalidProgram      = newDomainError(ErrCodeInvalidProgram, "無效的會員方案")
	ErrProgramInactive     = newDomainError(ErrCodeProgramInactive, "會員方案未啟用")
	ErrProgramTypeMismatch = newDomainError(ErrCodeProgramTypeMismatch, "卡片類型與方案類型不一致")
	ErrInvalidTier         = newDomainError(ErrCodeInvalidTier, "無效的會員等級")
	ErrInvalidTierLadder   = newDomainError(ErrCodeInvalidTierLadder, "會員等級門檻必須依序遞增")
)

// ID 錯誤
var (
	ErrInvalidCardID        = newDomainError(ErrCodeInvalidCardID, "無效的卡片 ID")
	ErrInvalidProgramID     = newDomainError(ErrCodeInvalidProgramID, "無效的方案 ID")
	ErrInvalidRewardID      = newDomainError(ErrCodeInvalidRewardID, "無效的獎勵 ID")
	ErrInvalidTierID        = newDomainError(ErrCodeInvalidTierID, "無效的等級 ID")
	ErrInvalidTransactionID = newDomainError(ErrCodeInvalidTransactionID, "無效的交易 ID")
	ErrInvalidCustomerID    = newDomainError(ErrCodeInvalidCustomerID, "無效的顧客 ID")
	ErrInvalidBrandID       = newDomainError(ErrCodeInvalidBrandID, "無效的品牌 ID")
	ErrInvalidStoreID       = newDomainError(ErrCodeInvalidStoreID, "無效的門市 ID")
	ErrInvalidStaffID       = newDomainError(ErrCodeInvalidStaffID, "無效的員工 ID")
)
