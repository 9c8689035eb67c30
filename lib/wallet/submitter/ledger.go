package submitter

import (
	"context"
	"fmt"

	"github.com/HORNET-Storage/hornet-panel-wallet/lib/types"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/wallet/proxy"
)

// Ledger records pending transactions in the panel's bookkeeping backend.
type Ledger interface {
	SavePending(ctx context.Context, token string, tx types.PendingTransaction) error
	Replace(ctx context.Context, token string, req types.ReplaceTransactionRequest) error
}

// LedgerError marks a bookkeeping failure that happened after the wallet
// already broadcast the transaction. It must never be collapsed into a
// generic failure.
type LedgerError struct {
	Message string
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger record failed: %s", e.Message)
}

// LedgerClient talks to the panel backend's pending-transaction endpoints
type LedgerClient struct {
	client Poster
}

// NewLedgerClient wraps a transport pointed at the panel backend.
func NewLedgerClient(client Poster) *LedgerClient {
	return &LedgerClient{client: client}
}

type ledgerResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// SavePending posts a new pending-transaction record.
func (l *LedgerClient) SavePending(ctx context.Context, token string, tx types.PendingTransaction) error {
	resp, err := l.client.Post(ctx, "/api/pending-transactions", token, tx)
	return l.check(resp, err)
}

// Replace swaps a pending record for its RBF replacement.
func (l *LedgerClient) Replace(ctx context.Context, token string, req types.ReplaceTransactionRequest) error {
	resp, err := l.client.Post(ctx, "/api/replacement-transactions", token, req)
	return l.check(resp, err)
}

func (l *LedgerClient) check(resp *proxy.Response, err error) error {
	if err != nil {
		return &LedgerError{Message: err.Error()}
	}
	if resp.OK() {
		return nil
	}

	var body ledgerResponse
	if derr := resp.Decode(&body); derr == nil && body.Error != "" {
		return &LedgerError{Message: body.Error}
	}
	return &LedgerError{Message: fmt.Sprintf("ledger endpoint returned %d", resp.StatusCode)}
}
