package web

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/HORNET-Storage/hornet-panel-wallet/lib/config"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/stores/statistics"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/wallet/proxy"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/wallet/session"
)

// NewApp builds the fiber application serving the panel API: the
// pending-transaction ledger, balance bookkeeping, and the wallet-proxy
// forwarding routes.
func NewApp(store *statistics.Store, sess *session.Manager, walletClient *proxy.Client) *fiber.App {
	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-API-Key",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	wp := &walletProxy{client: walletClient, session: sess}

	// Wallet login exchange, no panel authentication required
	walletAuth := app.Group("/api/wallet-proxy")
	walletAuth.Get("/challenge", wp.handleChallenge)
	walletAuth.Post("/verify", wp.handleVerify)

	// Routes the wallet service pushes to, API key protected
	walletRoutes := app.Group("/api/wallet")
	walletRoutes.Use(apiKeyMiddleware)
	walletRoutes.Post("/balance", func(c *fiber.Ctx) error {
		return updateWalletBalance(c, store)
	})

	// Panel routes, JWT protected
	secured := app.Group("/api", jwtMiddleware)

	secured.Get("/wallet-proxy/health", wp.handleHealth)
	secured.Post("/wallet-proxy/calculate-tx-size", wp.handleCalculateTxSize)
	secured.Post("/wallet-proxy/transaction", wp.handleTransaction)

	secured.Get("/balance", func(c *fiber.Ctx) error {
		return getWalletBalance(c, store)
	})
	secured.Post("/pending-transactions", func(c *fiber.Ctx) error {
		return savePendingTransaction(c, store)
	})
	secured.Get("/pending-transactions", func(c *fiber.Ctx) error {
		return getPendingTransactions(c, store)
	})
	secured.Post("/replacement-transactions", func(c *fiber.Ctx) error {
		return replaceTransaction(c, store)
	})

	return app
}

// StartServer builds the app and listens on the configured port.
func StartServer(store *statistics.Store, sess *session.Manager, walletClient *proxy.Client) error {
	app := NewApp(store, sess, walletClient)

	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	return app.Listen(fmt.Sprintf("%s:%d", cfg.Server.BindAddress, config.GetPort()))
}
