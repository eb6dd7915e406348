package routes

import (
	"github.com/labstack/echo"

	"github.com/brinegold/jarvis-settlement/internal/container"
	"github.com/brinegold/jarvis-settlement/internal/presentation/http/handlers"
)

// SetupRoutes sets up all routes for the application
func SetupRoutes(e *echo.Echo, ct *container.Container) {
	// Health check
	e.GET("/health", handlers.HeartBeat)

	// API routes
	api := e.Group("/api/v1")

	// Wallet
	api.GET("/deposit-address", handlers.DepositAddress(ct))
	api.GET("/balance", handlers.Balance(ct))

	// Withdrawal
	api.POST("/withdraw", handlers.SubmitWithdraw(ct))
	api.POST("/withdraw/resolve", handlers.ResolveWithdraw(ct))
	api.GET("/withdrawals", handlers.WithdrawHistory(ct))
}
