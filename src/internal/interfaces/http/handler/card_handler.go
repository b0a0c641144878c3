package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/jackyeh168/loyalty_crm/src/internal/application/ledger"
	"github.com/jackyeh168/loyalty_crm/src/internal/interfaces/http/response"
	"github.com/shopspring/decimal"
)

// ===========================
// 開卡與查詢
// ===========================

// EnrollCustomer POST /programs/:program_id/cards
func (h *Handler) EnrollCustomer(c *gin.Context) {
	var req enrollRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.ledger.EnrollCustomer(c.Request.Context(), ledger.EnrollCustomerCommand{
		ProgramID:  c.Param("program_id"),
		CustomerID: req.CustomerID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, newCardView(result))
}

// GetCard GET /cards/:card_id?history_limit=N
func (h *Handler) GetCard(c *gin.Context) {
	var q historyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	result, err := h.ledger.GetCard(c.Request.Context(), ledger.GetCardQuery{
		CardID:       c.Param("card_id"),
		HistoryLimit: q.HistoryLimit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, newCardDetailView(result))
}

// GetCardByCustomer GET /programs/:program_id/customers/:customer_id/card
func (h *Handler) GetCardByCustomer(c *gin.Context) {
	var q historyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	result, err := h.ledger.GetCardByCustomer(c.Request.Context(), c.Param("program_id"), c.Param("customer_id"), q.HistoryLimit)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, newCardDetailView(result))
}

// GetCardByQRCode GET /qr-codes/:qr_code/card
func (h *Handler) GetCardByQRCode(c *gin.Context) {
	var q historyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	result, err := h.ledger.GetCardByQRCode(c.Request.Context(), c.Param("qr_code"), q.HistoryLimit)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, newCardDetailView(result))
}

// ===========================
// 餘額命令
// ===========================

// IssueStamps POST /cards/:card_id/stamps
func (h *Handler) IssueStamps(c *gin.Context) {
	var req stampsRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.ledger.IssueStamps(c.Request.Context(), ledger.IssueStampsCommand{
		CardID:           c.Param("card_id"),
		Quantity:         req.Quantity,
		StoreID:          req.StoreID,
		StaffID:          req.StaffID,
		PosTransactionID: req.PosTransactionID,
	})
	h.respondCard(c, result, err)
}

// AddPoints POST /cards/:card_id/points
func (h *Handler) AddPoints(c *gin.Context) {
	var req addPointsRequest
	if !bindJSON(c, &req) {
		return
	}
	points := decimal.Zero
	if req.PointsAmount != nil {
		if !req.PointsAmount.IsPositive() {
			response.BadRequest(c, "points_amount must be positive")
			return
		}
		points = *req.PointsAmount
	}
	result, err := h.ledger.AddPoints(c.Request.Context(), ledger.AddPointsCommand{
		CardID:            c.Param("card_id"),
		TransactionAmount: req.TransactionAmount,
		PointsAmount:      points,
		StoreID:           req.StoreID,
		StaffID:           req.StaffID,
		PosTransactionID:  req.PosTransactionID,
	})
	h.respondCard(c, result, err)
}

// RedeemReward POST /cards/:card_id/redemptions
func (h *Handler) RedeemReward(c *gin.Context) {
	var req redeemRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.ledger.RedeemReward(c.Request.Context(), ledger.RedeemRewardCommand{
		CardID:   c.Param("card_id"),
		RewardID: req.RewardID,
		StoreID:  req.StoreID,
		StaffID:  req.StaffID,
	})
	h.respondCard(c, result, err)
}

// VoidStamps POST /cards/:card_id/stamps/void
func (h *Handler) VoidStamps(c *gin.Context) {
	var req stampsRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.ledger.VoidStamps(c.Request.Context(), ledger.VoidStampsCommand{
		CardID:           c.Param("card_id"),
		Quantity:         req.Quantity,
		StoreID:          req.StoreID,
		StaffID:          req.StaffID,
		PosTransactionID: req.PosTransactionID,
	})
	h.respondCard(c, result, err)
}

// VoidPoints POST /cards/:card_id/points/void
func (h *Handler) VoidPoints(c *gin.Context) {
	var req voidPointsRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.ledger.VoidPoints(c.Request.Context(), ledger.VoidPointsCommand{
		CardID:           c.Param("card_id"),
		PointsAmount:     req.PointsAmount,
		StoreID:          req.StoreID,
		StaffID:          req.StaffID,
		PosTransactionID: req.PosTransactionID,
	})
	h.respondCard(c, result, err)
}

// ===========================
// 狀態
// ===========================

// SuspendCard POST /cards/:card_id/suspend
func (h *Handler) SuspendCard(c *gin.Context) {
	result, err := h.ledger.SuspendCard(c.Request.Context(), c.Param("card_id"))
	h.respondCard(c, result, err)
}

// ReactivateCard POST /cards/:card_id/reactivate
func (h *Handler) ReactivateCard(c *gin.Context) {
	result, err := h.ledger.ReactivateCard(c.Request.Context(), c.Param("card_id"))
	h.respondCard(c, result, err)
}

// ExpireCard POST /cards/:card_id/expire
func (h *Handler) ExpireCard(c *gin.Context) {
	result, err := h.ledger.ExpireCard(c.Request.Context(), c.Param("card_id"))
	h.respondCard(c, result, err)
}

// SetCardExpiration PUT /cards/:card_id/expiration
func (h *Handler) SetCardExpiration(c *gin.Context) {
	var req expirationRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.ledger.SetCardExpiration(c.Request.Context(), ledger.SetCardExpirationCommand{
		CardID:    c.Param("card_id"),
		ExpiresAt: req.ExpiresAt,
	})
	h.respondCard(c, result, err)
}

func (h *Handler) respondCard(c *gin.Context, result *ledger.CardResult, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, newCardView(result))
}
