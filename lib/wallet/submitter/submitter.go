// Package submitter builds the final transaction request, submits it to the
// wallet, and records the accepted transaction in the pending ledger.
package submitter

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/HORNET-Storage/hornet-panel-wallet/lib/logging"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/types"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/wallet/proxy"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/wallet/session"
)

// Failure reasons reported in SubmitResult. ValidationError and
// WalletUnhealthyError stay inside the pipeline as these values, they are
// never raised as Go errors.
const (
	ReasonBusy             = "submission already in progress"
	ReasonInvalidAmount    = "invalid amount"
	ReasonOverBalance      = "amount exceeds balance"
	ReasonBalanceUnknown   = "balance unavailable"
	ReasonNotAuthenticated = "not authenticated"
	ReasonUnhealthy        = "wallet unhealthy"
	ReasonNotSynced        = "not synced"
	ReasonSessionExpired   = "session expired"
	ReasonNetworkFailure   = "network failure"
	ReasonWalletRejected   = "wallet rejected transaction"
	ReasonLedgerFailed     = "transaction broadcast but ledger record failed"
)

// Session is the slice of the session manager the submitter depends on.
type Session interface {
	Authenticated() bool
	Login(ctx context.Context) (string, error)
	Ready() error
	Token() string
	WithReauth(ctx context.Context, fn session.RequestFunc) (*proxy.Response, error)
}

// Poster posts JSON to a service.
type Poster interface {
	Post(ctx context.Context, endpoint, token string, body interface{}) (*proxy.Response, error)
}

// BalanceProvider exposes the latest known wallet balance in satoshis.
type BalanceProvider interface {
	LatestBalance() (int64, error)
}

// Submitter submits send transactions
type Submitter struct {
	session Session
	client  Poster
	ledger  Ledger
	balance BalanceProvider

	mu      sync.Mutex
	loading bool
}

// New creates a submitter. client must point at the wallet proxy, ledger at
// the panel backend.
func New(sess Session, client Poster, ledger Ledger, balance BalanceProvider) *Submitter {
	return &Submitter{session: sess, client: client, ledger: ledger, balance: balance}
}

// Loading reports whether a submission is in progress.
func (s *Submitter) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func fail(reason string) *types.SubmitResult {
	return &types.SubmitResult{OK: false, Reason: reason}
}

// Submit validates the form, submits the transaction, and records the
// pending ledger entry. Every failure path is encoded in the result; this
// component never retries a failed submission on its own.
func (s *Submitter) Submit(ctx context.Context, form *types.SendForm) *types.SubmitResult {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return fail(ReasonBusy)
	}
	s.loading = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	// Preconditions, no network until they pass.
	balance, err := s.balance.LatestBalance()
	if err != nil {
		return fail(ReasonBalanceUnknown)
	}
	if form.Amount <= 0 {
		return fail(ReasonInvalidAmount)
	}
	if form.Amount > balance {
		return fail(ReasonOverBalance)
	}

	if result := s.ensureReady(ctx); result != nil {
		return result
	}

	req := types.TransactionRequest{
		Choice:           types.TxChoiceSend,
		RecipientAddress: form.Address,
		SpendAmount:      form.Amount,
		PriorityRate:     form.FeeRate,
		EnableRBF:        form.EnableRBF,
	}

	txResp, result := s.sendTransaction(ctx, req)
	if result != nil {
		return result
	}

	logging.Info("Wallet accepted transaction", map[string]interface{}{
		"txid":   txResp.TxID,
		"status": txResp.Status,
	})

	pending := types.PendingTransaction{
		TxID:             txResp.TxID,
		FeeRate:          form.FeeRate,
		Amount:           form.Amount,
		RecipientAddress: form.Address,
		Timestamp:        time.Now().UTC(),
		EnableRBF:        form.EnableRBF,
	}
	if err := s.ledger.SavePending(ctx, s.session.Token(), pending); err != nil {
		// The transaction was still broadcast. Keep the txid visible so the
		// partial success is never hidden.
		logging.Error("Pending transaction ledger write failed", map[string]interface{}{
			"txid":  txResp.TxID,
			"error": err.Error(),
		})
		return &types.SubmitResult{
			OK:      false,
			TxID:    txResp.TxID,
			Message: txResp.Message,
			Reason:  ReasonLedgerFailed,
		}
	}

	return &types.SubmitResult{OK: true, TxID: txResp.TxID, Message: txResp.Message}
}

// BumpFee submits an RBF replacement for a previously recorded pending
// transaction and swaps the ledger entry on acceptance.
func (s *Submitter) BumpFee(ctx context.Context, original types.PendingTransaction, newFeeRate int) *types.SubmitResult {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return fail(ReasonBusy)
	}
	s.loading = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	if result := s.ensureReady(ctx); result != nil {
		return result
	}

	req := types.TransactionRequest{
		Choice:       types.TxChoiceReplace,
		OriginalTxID: original.TxID,
		NewFeeRate:   newFeeRate,
	}

	txResp, result := s.sendTransaction(ctx, req)
	if result != nil {
		return result
	}

	replace := types.ReplaceTransactionRequest{
		OriginalTxID:     original.TxID,
		NewTxID:          txResp.TxID,
		NewFeeRate:       newFeeRate,
		Amount:           original.Amount,
		RecipientAddress: original.RecipientAddress,
	}
	if err := s.ledger.Replace(ctx, s.session.Token(), replace); err != nil {
		logging.Error("Replacement ledger write failed", map[string]interface{}{
			"txid":  txResp.TxID,
			"error": err.Error(),
		})
		return &types.SubmitResult{
			OK:      false,
			TxID:    txResp.TxID,
			Message: txResp.Message,
			Reason:  ReasonLedgerFailed,
		}
	}

	return &types.SubmitResult{OK: true, TxID: txResp.TxID, Message: txResp.Message}
}

// ensureReady establishes a session when none exists and gates on wallet
// health, returning a result describing the exact blocking condition.
func (s *Submitter) ensureReady(ctx context.Context) *types.SubmitResult {
	if !s.session.Authenticated() {
		if _, err := s.session.Login(ctx); err != nil {
			return fail(ReasonNotAuthenticated)
		}
	}

	switch err := s.session.Ready(); {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrNotAuthenticated):
		return fail(ReasonNotAuthenticated)
	case errors.Is(err, session.ErrChainNotSynced):
		return fail(ReasonNotSynced)
	default:
		return fail(ReasonUnhealthy)
	}
}

// sendTransaction posts the request through the reauth wrapper and decodes
// the wallet's verdict. A non-nil result means the attempt failed.
func (s *Submitter) sendTransaction(ctx context.Context, req types.TransactionRequest) (*types.TransactionResponse, *types.SubmitResult) {
	resp, err := s.session.WithReauth(ctx, func(ctx context.Context, token string) (*proxy.Response, error) {
		return s.client.Post(ctx, "/transaction", token, req)
	})
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionExpired):
			return nil, fail(ReasonSessionExpired)
		case errors.Is(err, session.ErrAuthRejected):
			return nil, fail(ReasonNotAuthenticated)
		default:
			logging.Warnf("Transaction request failed: %v", err)
			return nil, fail(ReasonNetworkFailure)
		}
	}

	var txResp types.TransactionResponse
	if err := resp.Decode(&txResp); err != nil {
		return nil, fail(ReasonNetworkFailure)
	}

	if !resp.OK() || !txResp.Accepted() {
		message := txResp.Message
		if message == "" {
			message = "Transaction failed. Please try again."
		}
		return nil, &types.SubmitResult{OK: false, Message: message, Reason: ReasonWalletRejected}
	}

	return &txResp, nil
}
