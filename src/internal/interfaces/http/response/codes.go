package response

// 非領域錯誤的 error_code（領域錯誤直接使用 loyalty.ErrorCode）
const (
	CodeRequestInvalid = "REQUEST_INVALID"
	CodeCardBusy       = "CARD_BUSY"
	CodeInternal       = "INTERNAL_ERROR"
)
