package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackyeh168/loyalty_crm/src/internal/domain/loyalty"
	"github.com/jackyeh168/loyalty_crm/src/internal/infrastructure/lock"
	"github.com/jackyeh168/loyalty_crm/src/internal/interfaces/http/response"
)

// statusByCode 領域錯誤代碼到 HTTP 狀態碼
//
// 未列出的代碼（損壞、倉儲錯誤、帳本不一致）一律 500。
var statusByCode = map[loyalty.ErrorCode]int{
	loyalty.ErrCodeCardNotFound:    http.StatusNotFound,
	loyalty.ErrCodeProgramNotFound: http.StatusNotFound,
	loyalty.ErrCodeRewardNotFound:  http.StatusNotFound,

	loyalty.ErrCodeCardAlreadyExists: http.StatusConflict,
	loyalty.ErrCodeVersionConflict:   http.StatusConflict,

	loyalty.ErrCodeInsufficientBalance:     http.StatusUnprocessableEntity,
	loyalty.ErrCodeCardNotActive:           http.StatusUnprocessableEntity,
	loyalty.ErrCodeInvalidStatusTransition: http.StatusUnprocessableEntity,
	loyalty.ErrCodeWrongCardType:           http.StatusUnprocessableEntity,
	loyalty.ErrCodeRewardProgramMismatch:   http.StatusUnprocessableEntity,
	loyalty.ErrCodeRewardInactive:          http.StatusUnprocessableEntity,
	loyalty.ErrCodeRewardNotValidAtTime:    http.StatusUnprocessableEntity,
	loyalty.ErrCodeProgramInactive:         http.StatusUnprocessableEntity,
	loyalty.ErrCodeProgramTypeMismatch:     http.StatusUnprocessableEntity,

	loyalty.ErrCodeInvalidQuantity:          http.StatusBadRequest,
	loyalty.ErrCodeInvalidPointsAmount:      http.StatusBadRequest,
	loyalty.ErrCodeInvalidTransactionAmount: http.StatusBadRequest,
	loyalty.ErrCodeMissingStore:             http.StatusBadRequest,
	loyalty.ErrCodeInvalidExpirationDate:    http.StatusBadRequest,
	loyalty.ErrCodeInvalidReward:            http.StatusBadRequest,
	loyalty.ErrCodeInvalidProgram:           http.StatusBadRequest,
	loyalty.ErrCodeInvalidTier:              http.StatusBadRequest,
	loyalty.ErrCodeInvalidTierLadder:        http.StatusBadRequest,
	loyalty.ErrCodeInvalidCardID:            http.StatusBadRequest,
	loyalty.ErrCodeInvalidProgramID:         http.StatusBadRequest,
	loyalty.ErrCodeInvalidRewardID:          http.StatusBadRequest,
	loyalty.ErrCodeInvalidTierID:            http.StatusBadRequest,
	loyalty.ErrCodeInvalidCustomerID:        http.StatusBadRequest,
	loyalty.ErrCodeInvalidBrandID:           http.StatusBadRequest,
	loyalty.ErrCodeInvalidStoreID:           http.StatusBadRequest,
	loyalty.ErrCodeInvalidStaffID:           http.StatusBadRequest,
}

// statusForError 返回錯誤對應的 HTTP 狀態碼與 error_code
func statusForError(err error) (int, string) {
	var domainErr *loyalty.DomainError
	if errors.As(err, &domainErr) {
		if status, ok := statusByCode[domainErr.Code]; ok {
			return status, string(domainErr.Code)
		}
		return http.StatusInternalServerError, string(domainErr.Code)
	}
	if errors.Is(err, lock.ErrLockTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable, response.CodeCardBusy
	}
	return http.StatusInternalServerError, response.CodeInternal
}

// respondError 寫出錯誤回應；5xx 附加到 gin 錯誤列表由日誌中介層記錄
func respondError(c *gin.Context, err error) {
	status, code := statusForError(err)
	msg := "內部錯誤"
	var domainErr *loyalty.DomainError
	if errors.As(err, &domainErr) && status < http.StatusInternalServerError {
		msg = domainErr.Message
	} else if status == http.StatusServiceUnavailable {
		msg = "卡片忙碌中，請稍後重試"
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	response.Error(c, status, code, msg)
}
