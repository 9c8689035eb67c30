package web

import (
	"github.com/gofiber/fiber/v2"

	"github.com/HORNET-Storage/hornet-panel-wallet/lib/logging"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/stores/statistics"
)

type balanceUpdate struct {
	Balance string `json:"balance"`
}

// updateWalletBalance stores a balance pushed by the wallet service.
func updateWalletBalance(c *fiber.Ctx, store *statistics.Store) error {
	var update balanceUpdate
	if err := c.BodyParser(&update); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if update.Balance == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing balance",
		})
	}

	if err := store.SaveWalletBalance(update.Balance); err != nil {
		logging.Errorf("Error saving wallet balance: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Database save error",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Balance updated successfully",
	})
}

// getWalletBalance returns the latest known balance in satoshis.
func getWalletBalance(c *fiber.Ctx, store *statistics.Store) error {
	balance, err := store.LatestBalance()
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No balance recorded",
		})
	}

	return c.JSON(fiber.Map{
		"latest_balance": balance,
	})
}
