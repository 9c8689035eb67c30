// Bitcoin wallet and send-pipeline types
package types

import "time"

// WalletHealth represents the wallet health check response
type WalletHealth struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	ChainSynced bool   `json:"chain_synced"`
	PeerCount   int    `json:"peer_count"`
}

// Ready reports whether the wallet can accept a transaction.
func (h *WalletHealth) Ready() bool {
	return h != nil && h.Status == "healthy" && h.ChainSynced
}

// SendForm holds the user-entered state of a send transaction
type SendForm struct {
	Address   string
	Amount    int64 // satoshis
	FeeRate   int   // sat/vbyte
	EnableRBF bool

	TxSize            int // 0 means unknown
	TxSizeCalculating bool
}

// Fee returns the derived fee in satoshis, zero while the size is unknown.
func (f *SendForm) Fee() int64 {
	if f.TxSize <= 0 {
		return 0
	}
	return int64(f.TxSize) * int64(f.FeeRate)
}

// AmountWithFee returns the total the transaction will spend.
func (f *SendForm) AmountWithFee() int64 {
	return f.Amount + f.Fee()
}

// PendingTransaction represents an unconfirmed Bitcoin transaction
// recorded in the panel's bookkeeping ledger
type PendingTransaction struct {
	ID               uint      `gorm:"primaryKey" json:"-"`
	TxID             string    `gorm:"not null;size:128;uniqueIndex" json:"txid"`
	FeeRate          int       `gorm:"not null" json:"feeRate"`
	Amount           int64     `gorm:"not null" json:"amount"`
	RecipientAddress string    `gorm:"not null" json:"recipient_address"`
	Timestamp        time.Time `gorm:"not null" json:"timestamp"`
	EnableRBF        bool      `gorm:"not null" json:"enable_rbf"`
}

// ReplaceTransactionRequest represents a request to replace a pending
// transaction with an RBF fee bump
type ReplaceTransactionRequest struct {
	OriginalTxID     string `json:"original_tx_id"`
	NewTxID          string `json:"new_tx_id"`
	NewFeeRate       int    `json:"new_fee_rate"`
	Amount           int64  `json:"amount"`
	RecipientAddress string `json:"recipient_address"`
}

// FeeTierName identifies one of the three fee suggestions
type FeeTierName string

const (
	FeeTierLow  FeeTierName = "low"
	FeeTierMed  FeeTierName = "med"
	FeeTierHigh FeeTierName = "high"
)

// FeeTier is a single fee-rate suggestion computed from network fee data
type FeeTier struct {
	Tier     FeeTierName `json:"tier"`
	Rate     int         `json:"rate"`     // sat/vbyte
	TotalFee int64       `json:"totalFee"` // rate x estimated size
}

// RecommendedFees mirrors the mempool-style network fee data the tier
// calculator consumes
type RecommendedFees struct {
	FastestFee  int `json:"fastestFee"`
	HalfHourFee int `json:"halfHourFee"`
	HourFee     int `json:"hourFee"`
	EconomyFee  int `json:"economyFee"`
	MinimumFee  int `json:"minimumFee"`
}

// CalcTxSizeRequest represents the calculate transaction size request
type CalcTxSizeRequest struct {
	RecipientAddress string `json:"recipient_address"`
	SpendAmount      int64  `json:"spend_amount"`
	PriorityRate     int    `json:"priority_rate"`
}

// CalcTxSizeResponse represents the response from calculate transaction size
type CalcTxSizeResponse struct {
	TxSize int `json:"txSize"`
}

// TransactionRequest represents the transaction request sent to the wallet
type TransactionRequest struct {
	Choice           int    `json:"choice"`
	RecipientAddress string `json:"recipient_address,omitempty"`
	SpendAmount      int64  `json:"spend_amount,omitempty"`
	PriorityRate     int    `json:"priority_rate,omitempty"`
	EnableRBF        bool   `json:"enable_rbf,omitempty"`
	OriginalTxID     string `json:"original_tx_id,omitempty"`
	NewFeeRate       int    `json:"new_fee_rate,omitempty"`
}

// Transaction request choices understood by the wallet
const (
	TxChoiceSend    = 1
	TxChoiceReplace = 2
)

// TransactionResponse represents the response from the wallet transaction endpoint
type TransactionResponse struct {
	Status  string `json:"status"`
	TxID    string `json:"txid"`
	Message string `json:"message"`
}

// Accepted reports whether the wallet accepted the transaction for broadcast.
func (r *TransactionResponse) Accepted() bool {
	return r.Status == "success" || r.Status == "pending"
}

// SubmitResult is the terminal outcome of one submission attempt
type SubmitResult struct {
	OK      bool   `json:"ok"`
	TxID    string `json:"txid,omitempty"`
	Message string `json:"message,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// SendOutcome is what the pipeline reports to the hosting surface when it
// reaches a terminal state
type SendOutcome struct {
	Success bool   `json:"success"`
	Address string `json:"address"`
	Amount  int64  `json:"amount"`
	TxID    string `json:"txid,omitempty"`
	Message string `json:"message,omitempty"`
}
