package handler

import (
	"emoney-core/internal/adapter/http/middleware"
	"emoney-core/internal/core/domain"
	"emoney-core/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	ScaSvc            ports.ScaService
	TransferSvc       ports.TransferService
	MovementSvc       ports.MoneyMovementService
	ReconciliationSvc ports.ReconciliationService
	TokenSvc          ports.TokenService
	HealthCheckers    []ports.HealthChecker
	Currency          string
	Logger            zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBodyBytes))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	scaHandler := NewScaHandler(deps.ScaSvc)
	transferHandler := NewTransferHandler(deps.TransferSvc, deps.MovementSvc, deps.Currency)
	movementHandler := NewMovementHandler(deps.MovementSvc)
	reconHandler := NewReconciliationHandler(deps.ReconciliationSvc)

	v1 := r.Group("/api/v1", jwtAuth)

	sca := v1.Group("/sca")
	{
		sca.POST("/verify", scaHandler.Verify)
		sca.GET("/tokens/:token", scaHandler.Peek)
	}

	v1.POST("/transfers", transferHandler.Transfer)
	v1.POST("/groups/:groupId/contributions", movementHandler.ContributeToGroup)
	v1.POST("/split-bills/:billId/settlements", movementHandler.SettleSplitBill)

	admin := v1.Group("/admin", middleware.RequireRole(domain.RoleAdmin, domain.RoleSystem))
	{
		admin.POST("/fundings", movementHandler.FundWallet)

		admin.POST("/reconciliations", reconHandler.Run)
		admin.GET("/reconciliations", reconHandler.List)
		admin.GET("/reconciliations/:date", reconHandler.Get)
		admin.POST("/reconciliations/:date/resolve", reconHandler.Resolve)
	}

	internal := r.Group("/internal/v1", jwtAuth, middleware.RequireRole(domain.RoleSystem))
	{
		internal.POST("/vouchers/redeem", movementHandler.RedeemVoucher)
	}

	ob := r.Group("/open-banking/v1", jwtAuth)
	{
		ob.POST("/payments/wallet-to-wallet", transferHandler.OpenBankingPayment)
	}

	return r
}
