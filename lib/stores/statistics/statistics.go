// Package statistics is the GORM-backed bookkeeping store behind the panel
// API: pending transactions and the latest wallet balance.
package statistics

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/HORNET-Storage/hornet-panel-wallet/lib/logging"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/types"
)

// WalletBalance keeps the most recent balance pushed by the wallet service
type WalletBalance struct {
	ID        uint      `gorm:"primaryKey"`
	Balance   string    `gorm:"not null"`
	Timestamp time.Time `gorm:"autoCreateTime"`
}

// ErrPendingNotFound means no pending transaction exists for the given txid.
var ErrPendingNotFound = errors.New("pending transaction not found")

// Store is a GORM-based statistics store
type Store struct {
	DB *gorm.DB
}

// InitStore opens the sqlite database and migrates the schema.
func (store *Store) InitStore(basepath string) error {
	var err error
	store.DB, err = gorm.Open(sqlite.Open(basepath), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}

	err = store.DB.AutoMigrate(
		&types.PendingTransaction{},
		&WalletBalance{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database schema: %v", err)
	}

	return nil
}

// SavePendingTransaction records a pending transaction. Records are
// deduplicated on txid so an at-least-once caller cannot create duplicates.
func (store *Store) SavePendingTransaction(transaction *types.PendingTransaction) error {
	result := store.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tx_id"}},
		DoNothing: true,
	}).Create(transaction)
	if result.Error != nil {
		logging.Errorf("Error saving pending transaction: %v", result.Error)
		return result.Error
	}

	return nil
}

// PendingTransactions returns all pending transactions, newest first.
func (store *Store) PendingTransactions() ([]types.PendingTransaction, error) {
	var transactions []types.PendingTransaction
	if err := store.DB.Order("timestamp desc").Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

// ReplacePendingTransaction swaps a pending record for its RBF replacement:
// the original is deleted and the replacement inserted in one transaction.
func (store *Store) ReplacePendingTransaction(replace *types.ReplaceTransactionRequest) error {
	return store.DB.Transaction(func(tx *gorm.DB) error {
		var original types.PendingTransaction
		if err := tx.Where("tx_id = ?", replace.OriginalTxID).First(&original).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("%w: %s", ErrPendingNotFound, replace.OriginalTxID)
			}
			return err
		}

		if err := tx.Delete(&original).Error; err != nil {
			return err
		}

		replacement := types.PendingTransaction{
			TxID:             replace.NewTxID,
			FeeRate:          replace.NewFeeRate,
			Amount:           replace.Amount,
			RecipientAddress: replace.RecipientAddress,
			Timestamp:        time.Now().UTC(),
			EnableRBF:        true,
		}
		return tx.Create(&replacement).Error
	})
}

// DeletePendingTransaction removes a record once the transaction confirmed.
func (store *Store) DeletePendingTransaction(txid string) error {
	return store.DB.Where("tx_id = ?", txid).Delete(&types.PendingTransaction{}).Error
}

// SaveWalletBalance stores a new balance reported by the wallet service.
func (store *Store) SaveWalletBalance(balance string) error {
	return store.DB.Create(&WalletBalance{Balance: balance}).Error
}

// LatestBalance returns the most recent balance in satoshis. Implements the
// submitter's balance provider.
func (store *Store) LatestBalance() (int64, error) {
	var latest WalletBalance
	if err := store.DB.Order("timestamp desc, id desc").First(&latest).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, fmt.Errorf("no balance recorded")
		}
		return 0, err
	}

	balance, err := strconv.ParseInt(latest.Balance, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid stored balance %q: %w", latest.Balance, err)
	}
	return balance, nil
}
