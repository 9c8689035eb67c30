package submitter

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HORNET-Storage/hornet-panel-wallet/lib/types"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/wallet/proxy"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/wallet/session"
)

type fakeSession struct {
	authenticated bool
	readyErr      error
	loginErr      error
	loginCalls    int32
}

func (s *fakeSession) Authenticated() bool { return s.authenticated }
func (s *fakeSession) Token() string       { return "token" }
func (s *fakeSession) Ready() error        { return s.readyErr }

func (s *fakeSession) Login(ctx context.Context) (string, error) {
	atomic.AddInt32(&s.loginCalls, 1)
	if s.loginErr != nil {
		return "", s.loginErr
	}
	s.authenticated = true
	return "token", nil
}

func (s *fakeSession) WithReauth(ctx context.Context, fn session.RequestFunc) (*proxy.Response, error) {
	return fn(ctx, "token")
}

type fakeWallet struct {
	calls    int32
	err      error
	status   int
	body     string
	lastBody interface{}
}

func (w *fakeWallet) Post(ctx context.Context, endpoint, token string, body interface{}) (*proxy.Response, error) {
	atomic.AddInt32(&w.calls, 1)
	w.lastBody = body
	if w.err != nil {
		return nil, w.err
	}
	status := w.status
	if status == 0 {
		status = http.StatusOK
	}
	return &proxy.Response{StatusCode: status, Body: []byte(w.body)}, nil
}

type fakeLedger struct {
	saveErr     error
	replaceErr  error
	saved       []types.PendingTransaction
	replaced    []types.ReplaceTransactionRequest
	savedTokens []string
}

func (l *fakeLedger) SavePending(ctx context.Context, token string, tx types.PendingTransaction) error {
	l.saved = append(l.saved, tx)
	l.savedTokens = append(l.savedTokens, token)
	return l.saveErr
}

func (l *fakeLedger) Replace(ctx context.Context, token string, req types.ReplaceTransactionRequest) error {
	l.replaced = append(l.replaced, req)
	return l.replaceErr
}

type fixedBalance struct {
	balance int64
	err     error
}

func (b fixedBalance) LatestBalance() (int64, error) { return b.balance, b.err }

func acceptedWallet(txid string) *fakeWallet {
	return &fakeWallet{body: fmt.Sprintf(`{"status":"success","txid":%q,"message":"Transaction sent"}`, txid)}
}

func readySession() *fakeSession { return &fakeSession{authenticated: true} }

func sendForm() *types.SendForm {
	return &types.SendForm{
		Address: "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4",
		Amount:  5000,
		FeeRate: 2,
		TxSize:  150,
	}
}

func TestSubmitSuccess(t *testing.T) {
	wallet := acceptedWallet("abc123")
	ledger := &fakeLedger{}
	sub := New(readySession(), wallet, ledger, fixedBalance{balance: 10000})

	result := sub.Submit(context.Background(), sendForm())

	require.True(t, result.OK)
	assert.Equal(t, "abc123", result.TxID)
	assert.Empty(t, result.Reason)

	require.Len(t, ledger.saved, 1)
	saved := ledger.saved[0]
	assert.Equal(t, "abc123", saved.TxID)
	assert.Equal(t, int64(5000), saved.Amount)
	assert.Equal(t, 2, saved.FeeRate)
	assert.Equal(t, "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", saved.RecipientAddress)
	assert.False(t, saved.Timestamp.IsZero())
	assert.Equal(t, "token", ledger.savedTokens[0])

	req := wallet.lastBody.(types.TransactionRequest)
	assert.Equal(t, types.TxChoiceSend, req.Choice)
	assert.Equal(t, int64(5000), req.SpendAmount)
}

func TestSubmitPreconditions(t *testing.T) {
	tests := []struct {
		name       string
		amount     int64
		balance    fixedBalance
		wantReason string
	}{
		{name: "Balance unknown", amount: 5000, balance: fixedBalance{err: fmt.Errorf("no balance yet")}, wantReason: ReasonBalanceUnknown},
		{name: "Zero amount", amount: 0, balance: fixedBalance{balance: 10000}, wantReason: ReasonInvalidAmount},
		{name: "Negative amount", amount: -1, balance: fixedBalance{balance: 10000}, wantReason: ReasonInvalidAmount},
		{name: "Over balance", amount: 20000, balance: fixedBalance{balance: 10000}, wantReason: ReasonOverBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wallet := acceptedWallet("never")
			sub := New(readySession(), wallet, &fakeLedger{}, tt.balance)

			form := sendForm()
			form.Amount = tt.amount
			result := sub.Submit(context.Background(), form)

			assert.False(t, result.OK)
			assert.Equal(t, tt.wantReason, result.Reason)
			assert.Equal(t, int32(0), atomic.LoadInt32(&wallet.calls), "preconditions must fail before any network call")
		})
	}
}

func TestSubmitLogsInWhenUnauthenticated(t *testing.T) {
	sess := &fakeSession{authenticated: false}
	wallet := acceptedWallet("abc123")
	sub := New(sess, wallet, &fakeLedger{}, fixedBalance{balance: 10000})

	result := sub.Submit(context.Background(), sendForm())

	require.True(t, result.OK)
	assert.Equal(t, int32(1), atomic.LoadInt32(&sess.loginCalls), "missing session triggers a login, not a failure")
}

func TestSubmitReadinessGates(t *testing.T) {
	tests := []struct {
		name       string
		readyErr   error
		wantReason string
	}{
		{name: "Unhealthy", readyErr: session.ErrWalletUnhealthy, wantReason: ReasonUnhealthy},
		{name: "Not synced", readyErr: session.ErrChainNotSynced, wantReason: ReasonNotSynced},
		{name: "Not authenticated", readyErr: session.ErrNotAuthenticated, wantReason: ReasonNotAuthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := readySession()
			sess.readyErr = tt.readyErr
			wallet := acceptedWallet("never")
			sub := New(sess, wallet, &fakeLedger{}, fixedBalance{balance: 10000})

			result := sub.Submit(context.Background(), sendForm())

			assert.False(t, result.OK)
			assert.Equal(t, tt.wantReason, result.Reason)
			assert.Equal(t, int32(0), atomic.LoadInt32(&wallet.calls))
		})
	}
}

func TestSubmitWalletRejection(t *testing.T) {
	wallet := &fakeWallet{body: `{"status":"failed","message":"insufficient funds"}`}
	ledger := &fakeLedger{}
	sub := New(readySession(), wallet, ledger, fixedBalance{balance: 10000})

	result := sub.Submit(context.Background(), sendForm())

	assert.False(t, result.OK)
	assert.Equal(t, ReasonWalletRejected, result.Reason)
	assert.Equal(t, "insufficient funds", result.Message)
	assert.Empty(t, ledger.saved, "rejected transactions never reach the ledger")
}

func TestSubmitNetworkFailure(t *testing.T) {
	wallet := &fakeWallet{err: fmt.Errorf("connection refused")}
	sub := New(readySession(), wallet, &fakeLedger{}, fixedBalance{balance: 10000})

	result := sub.Submit(context.Background(), sendForm())

	assert.False(t, result.OK)
	assert.Equal(t, ReasonNetworkFailure, result.Reason)
}

func TestSubmitLedgerFailureKeepsTxIDVisible(t *testing.T) {
	wallet := acceptedWallet("abc123")
	ledger := &fakeLedger{saveErr: &LedgerError{Message: "database unavailable"}}
	sub := New(readySession(), wallet, ledger, fixedBalance{balance: 10000})

	result := sub.Submit(context.Background(), sendForm())

	assert.False(t, result.OK)
	assert.Equal(t, ReasonLedgerFailed, result.Reason)
	assert.Equal(t, "abc123", result.TxID, "a broadcast transaction must stay visible even when the ledger write fails")
}

func TestSubmitBusy(t *testing.T) {
	sub := New(readySession(), acceptedWallet("abc123"), &fakeLedger{}, fixedBalance{balance: 10000})

	sub.mu.Lock()
	sub.loading = true
	sub.mu.Unlock()

	result := sub.Submit(context.Background(), sendForm())
	assert.False(t, result.OK)
	assert.Equal(t, ReasonBusy, result.Reason)
}

func TestBumpFee(t *testing.T) {
	wallet := acceptedWallet("def456")
	ledger := &fakeLedger{}
	sub := New(readySession(), wallet, ledger, fixedBalance{balance: 10000})

	original := types.PendingTransaction{
		TxID:             "abc123",
		Amount:           5000,
		RecipientAddress: "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4",
		FeeRate:          2,
	}
	result := sub.BumpFee(context.Background(), original, 8)

	require.True(t, result.OK)
	assert.Equal(t, "def456", result.TxID)

	req := wallet.lastBody.(types.TransactionRequest)
	assert.Equal(t, types.TxChoiceReplace, req.Choice)
	assert.Equal(t, "abc123", req.OriginalTxID)
	assert.Equal(t, 8, req.NewFeeRate)

	require.Len(t, ledger.replaced, 1)
	assert.Equal(t, "abc123", ledger.replaced[0].OriginalTxID)
	assert.Equal(t, "def456", ledger.replaced[0].NewTxID)
	assert.Equal(t, 8, ledger.replaced[0].NewFeeRate)
}
