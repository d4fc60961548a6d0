// Package main starts the HTTP API: auth, wallet operations and the
// webhook endpoints. The delayed expiry sweep runs in the worker binary.
package main

import (
	"errors"
	"log"

	"nilepay/internal/apperrors"
	"nilepay/internal/config"
	"nilepay/internal/jobs"
	"nilepay/internal/processor"
	"nilepay/internal/repositories"
	"nilepay/internal/routes"
	"nilepay/internal/services/auth"
	"nilepay/internal/services/reconciliation"
	"nilepay/internal/services/wallet"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	db, err := repositories.Connect(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	store := repositories.NewStore(db)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	queue := jobs.NewRedisQueue(redisClient)

	proc := processor.NewStripe(processor.StripeConfig{
		SecretKey:   cfg.StripeSecretKey,
		FrontendURL: cfg.FrontendURL,
		BackendURL:  cfg.BackendURL,
	})

	authService := auth.NewService(store, logger, cfg.JWTSecret)
	walletService := wallet.NewService(store, proc, queue, logger, wallet.WalletConfig{
		Currency:    cfg.Currency,
		ExpiryDelay: cfg.ExpiryDelay,
	})
	reconciliationService := reconciliation.NewService(store, proc, queue, logger)

	app := fiber.New(fiber.Config{
		AppName:      "nilepay",
		ErrorHandler: errorHandler,
	})
	app.Use(cors.New())
	app.Use(fiberlogger.New())

	routes.SetupRoutes(app, routes.Deps{
		AuthService:           authService,
		WalletService:         walletService,
		ReconciliationService: reconciliationService,
		PaymentVerifier:       processor.NewStripeVerifier(cfg.StripePaymentSecret),
		ConnectVerifier:       processor.NewStripeVerifier(cfg.StripeConnectSecret),
		JWTSecret:             cfg.JWTSecret,
		Logger:                logger,
	})

	logger.Info("server starting", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
	}
	var domain *apperrors.DomainError
	if errors.As(err, &domain) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": domain.Message,
			"code":  domain.Code,
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}
