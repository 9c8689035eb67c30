package web

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/HORNET-Storage/hornet-panel-wallet/lib/logging"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/stores/statistics"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/types"
)

// savePendingTransaction records a freshly broadcast transaction in the
// bookkeeping ledger.
func savePendingTransaction(c *fiber.Ctx, store *statistics.Store) error {
	var pending types.PendingTransaction
	if err := c.BodyParser(&pending); err != nil {
		logging.Infof("Failed to parse pending transaction: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	if pending.TxID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing txid",
		})
	}
	if pending.Timestamp.IsZero() {
		pending.Timestamp = time.Now().UTC()
	}

	if err := store.SavePendingTransaction(&pending); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Database save error",
		})
	}

	logging.Info("Pending transaction recorded", map[string]interface{}{
		"txid": pending.TxID,
	})

	return c.JSON(fiber.Map{
		"message": "Pending transaction saved successfully",
	})
}

// getPendingTransactions lists the ledger, newest first.
func getPendingTransactions(c *fiber.Ctx, store *statistics.Store) error {
	transactions, err := store.PendingTransactions()
	if err != nil {
		logging.Errorf("Error querying pending transactions: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Database query error",
		})
	}

	return c.JSON(fiber.Map{
		"pendingTransactions": transactions,
	})
}
