// Package routes defines the API routing configuration. Dependencies are
// constructed in main and passed in; nothing here reaches for globals.
package routes

import (
	"nilepay/internal/handlers"
	"nilepay/internal/middleware"
	"nilepay/internal/processor"
	"nilepay/internal/services/auth"
	"nilepay/internal/services/reconciliation"
	"nilepay/internal/services/wallet"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Deps carries everything the route tree needs.
type Deps struct {
	AuthService           auth.Service
	WalletService         wallet.Service
	ReconciliationService reconciliation.Service
	PaymentVerifier       processor.SignatureVerifier
	ConnectVerifier       processor.SignatureVerifier
	JWTSecret             string
	Logger                *zap.Logger
}

// SetupRoutes wires all HTTP routes.
func SetupRoutes(app *fiber.App, deps Deps) {
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	walletHandler := handlers.NewWalletHandler(deps.WalletService)
	webhookHandler := handlers.NewWebhookHandler(
		deps.ReconciliationService,
		deps.PaymentVerifier,
		deps.ConnectVerifier,
		deps.Logger,
	)
	authMiddleware := middleware.NewAuthMiddleware(deps.JWTSecret)

	app.Get("/health", handlers.HealthCheck)

	// Webhooks are authenticated by signature, not by bearer token.
	app.Post("/webhooks/payments", webhookHandler.Payments)
	app.Post("/webhooks/connect", webhookHandler.Connect)

	api := app.Group("/api")
	api.Post("/register", authHandler.Register)
	api.Post("/login", authHandler.Login)

	authenticated := api.Group("/", authMiddleware.Handler)

	w := authenticated.Group("/wallet")
	w.Get("/", walletHandler.GetWallet)
	w.Post("/fund", walletHandler.Fund)
	w.Post("/transfer", walletHandler.Transfer)
	w.Post("/withdraw", walletHandler.Withdraw)
	w.Get("/onboarding-link", walletHandler.OnboardingLink)
	w.Get("/ledger", walletHandler.LedgerEntries)

	authenticated.Get("/transactions/:id", walletHandler.GetTransaction)
}
