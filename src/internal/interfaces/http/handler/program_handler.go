package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/jackyeh168/loyalty_crm/src/internal/application/ledger"
	"github.com/jackyeh168/loyalty_crm/src/internal/interfaces/http/response"
)

// CreateProgram POST /programs
func (h *Handler) CreateProgram(c *gin.Context) {
	var req createProgramRequest
	if !bindJSON(c, &req) {
		return
	}
	cmd := ledger.CreateProgramCommand{
		BrandID:        req.BrandID,
		Name:           req.Name,
		Type:           req.Type,
		ConversionRate: req.ConversionRate,
		HasTiers:       req.HasTiers,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
	}
	for _, t := range req.Tiers {
		cmd.Tiers = append(cmd.Tiers, toTierSpec(t))
	}
	for _, r := range req.Rewards {
		cmd.Rewards = append(cmd.Rewards, toRewardSpec(r))
	}

	result, err := h.ledger.CreateProgram(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, newProgramView(result))
}

// GetProgram GET /programs/:program_id
func (h *Handler) GetProgram(c *gin.Context) {
	result, err := h.ledger.GetProgram(c.Request.Context(), c.Param("program_id"))
	h.respondProgram(c, result, err)
}

// AddProgramTier POST /programs/:program_id/tiers
func (h *Handler) AddProgramTier(c *gin.Context) {
	var req tierRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.ledger.AddProgramTier(c.Request.Context(), c.Param("program_id"), toTierSpec(req))
	h.respondProgram(c, result, err)
}

// AddProgramReward POST /programs/:program_id/rewards
func (h *Handler) AddProgramReward(c *gin.Context) {
	var req rewardRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.ledger.AddProgramReward(c.Request.Context(), c.Param("program_id"), toRewardSpec(req))
	h.respondProgram(c, result, err)
}

// ActivateProgram POST /programs/:program_id/activate
func (h *Handler) ActivateProgram(c *gin.Context) {
	result, err := h.ledger.SetProgramActive(c.Request.Context(), c.Param("program_id"), true)
	h.respondProgram(c, result, err)
}

// DeactivateProgram POST /programs/:program_id/deactivate
func (h *Handler) DeactivateProgram(c *gin.Context) {
	result, err := h.ledger.SetProgramActive(c.Request.Context(), c.Param("program_id"), false)
	h.respondProgram(c, result, err)
}

// EnableTiers POST /programs/:program_id/tiers/enable
func (h *Handler) EnableTiers(c *gin.Context) {
	result, err := h.ledger.SetTiersEnabled(c.Request.Context(), c.Param("program_id"), true)
	h.respondProgram(c, result, err)
}

// DisableTiers POST /programs/:program_id/tiers/disable
func (h *Handler) DisableTiers(c *gin.Context) {
	result, err := h.ledger.SetTiersEnabled(c.Request.Context(), c.Param("program_id"), false)
	h.respondProgram(c, result, err)
}

// ActivateReward POST /programs/:program_id/rewards/:reward_id/activate
func (h *Handler) ActivateReward(c *gin.Context) {
	result, err := h.ledger.SetRewardActive(c.Request.Context(), c.Param("program_id"), c.Param("reward_id"), true)
	h.respondProgram(c, result, err)
}

// DeactivateReward POST /programs/:program_id/rewards/:reward_id/deactivate
func (h *Handler) DeactivateReward(c *gin.Context) {
	result, err := h.ledger.SetRewardActive(c.Request.Context(), c.Param("program_id"), c.Param("reward_id"), false)
	h.respondProgram(c, result, err)
}

func (h *Handler) respondProgram(c *gin.Context, result *ledger.ProgramResult, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, newProgramView(result))
}

func toTierSpec(t tierRequest) ledger.TierSpec {
	return ledger.TierSpec{
		Name:            t.Name,
		PointThreshold:  t.PointThreshold,
		PointMultiplier: t.PointMultiplier,
		TierOrder:       t.TierOrder,
	}
}

func toRewardSpec(r rewardRequest) ledger.RewardSpec {
	return ledger.RewardSpec{
		Title:         r.Title,
		Description:   r.Description,
		RequiredValue: r.RequiredValue,
		ValidFrom:     r.ValidFrom,
		ValidTo:       r.ValidTo,
	}
}
