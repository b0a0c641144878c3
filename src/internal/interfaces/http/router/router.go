package router

import (
	"github.com/gin-gonic/gin"
	"github.com/jackyeh168/loyalty_crm/src/internal/interfaces/http/handler"
	"github.com/jackyeh168/loyalty_crm/src/internal/interfaces/http/response"
	"go.uber.org/zap"
)

// SetupRouter 初始化路由
func SetupRouter(logger *zap.Logger, h *handler.Handler) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})

	apiV1 := r.Group("/api/v1")
	{
		programs := apiV1.Group("/programs")
		{
			programs.POST("", h.CreateProgram)
			programs.GET("/:program_id", h.GetProgram)
			programs.POST("/:program_id/tiers", h.AddProgramTier)
			programs.POST("/:program_id/tiers/enable", h.EnableTiers)
			programs.POST("/:program_id/tiers/disable", h.DisableTiers)
			programs.POST("/:program_id/rewards", h.AddProgramReward)
			programs.POST("/:program_id/activate", h.ActivateProgram)
			programs.POST("/:program_id/deactivate", h.DeactivateProgram)
			programs.POST("/:program_id/rewards/:reward_id/activate", h.ActivateReward)
			programs.POST("/:program_id/rewards/:reward_id/deactivate", h.DeactivateReward)

			programs.POST("/:program_id/cards", h.EnrollCustomer)
			programs.GET("/:program_id/customers/:customer_id/card", h.GetCardByCustomer)
		}

		apiV1.GET("/qr-codes/:qr_code/card", h.GetCardByQRCode)

		cards := apiV1.Group("/cards")
		{
			cards.GET("/:card_id", h.GetCard)
			cards.POST("/:card_id/stamps", h.IssueStamps)
			cards.POST("/:card_id/stamps/void", h.VoidStamps)
			cards.POST("/:card_id/points", h.AddPoints)
			cards.POST("/:card_id/points/void", h.VoidPoints)
			cards.POST("/:card_id/redemptions", h.RedeemReward)
			cards.POST("/:card_id/suspend", h.SuspendCard)
			cards.POST("/:card_id/reactivate", h.ReactivateCard)
			cards.POST("/:card_id/expire", h.ExpireCard)
			cards.PUT("/:card_id/expiration", h.SetCardExpiration)
		}
	}

	return r
}
