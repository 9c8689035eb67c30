package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/HORNET-Storage/hornet-panel-wallet/lib/logging"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/stores/statistics"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/types"
)

// replaceTransaction swaps a pending transaction for its RBF fee bump.
func replaceTransaction(c *fiber.Ctx, store *statistics.Store) error {
	var replaceRequest types.ReplaceTransactionRequest
	if err := c.BodyParser(&replaceRequest); err != nil {
		logging.Infof("Failed to parse replacement request: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	if err := store.ReplacePendingTransaction(&replaceRequest); err != nil {
		if errors.Is(err, statistics.ErrPendingNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Original transaction not found",
			})
		}
		logging.Errorf("Error replacing pending transaction %s: %v", replaceRequest.OriginalTxID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error saving replacement transaction",
		})
	}

	logging.Info("Replaced pending transaction", map[string]interface{}{
		"original_txid": replaceRequest.OriginalTxID,
		"new_txid":      replaceRequest.NewTxID,
	})

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Replacement transaction saved successfully",
		"txid":    replaceRequest.NewTxID,
	})
}
