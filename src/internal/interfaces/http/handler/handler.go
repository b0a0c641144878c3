// Package handler 帳本 HTTP 處理器
//
// 處理器只做請求形狀驗證（gin binding）與回應轉換；
// 業務規則與錯誤語義全部來自 application/ledger。
package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/jackyeh168/loyalty_crm/src/internal/application/ledger"
	"github.com/jackyeh168/loyalty_crm/src/internal/interfaces/http/response"
)

// Handler 帳本 API 處理器
type Handler struct {
	ledger *ledger.Service
}

// New 建立處理器
func New(svc *ledger.Service) *Handler {
	return &Handler{ledger: svc}
}

// bindJSON 解析請求體，失敗時寫出 400 並返回 false
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.BadRequest(c, err.Error())
		return false
	}
	return true
}
