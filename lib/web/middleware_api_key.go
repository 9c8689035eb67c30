package web

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"github.com/HORNET-Storage/hornet-panel-wallet/lib/config"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/logging"
)

// apiKeyMiddleware protects the routes the wallet service itself pushes to.
func apiKeyMiddleware(c *fiber.Ctx) error {
	cfg, err := config.GetConfig()
	if err != nil || cfg.ExternalServices.Wallet.Key == "" {
		logging.Warn("Wallet API key not configured, rejecting request")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Wallet integration not configured",
		})
	}

	provided := c.Get("X-API-Key")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(cfg.ExternalServices.Wallet.Key)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid API key",
		})
	}

	return c.Next()
}
