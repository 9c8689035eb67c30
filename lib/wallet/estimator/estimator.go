// Package estimator asks the wallet for the serialized size of the
// transaction being composed. Requests are debounced, never overlap, and a
// result is only committed when no newer request has been issued since it
// was dispatched.
package estimator

import (
	"context"
	"sync"
	"time"

	"github.com/HORNET-Storage/hornet-panel-wallet/lib/logging"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/types"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/wallet/address"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/wallet/proxy"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/wallet/session"
)

// Session is the slice of the session manager the estimator depends on.
type Session interface {
	Authenticated() bool
	Health() *types.WalletHealth
	Login(ctx context.Context) (string, error)
	WithReauth(ctx context.Context, fn session.RequestFunc) (*proxy.Response, error)
}

// Poster posts JSON to the wallet service.
type Poster interface {
	Post(ctx context.Context, endpoint, token string, body interface{}) (*proxy.Response, error)
}

type params struct {
	address string
	amount  int64
	feeRate int
}

// Estimator runs the size-estimation loop
type Estimator struct {
	session   Session
	client    Poster
	validator *address.Validator
	debounce  time.Duration

	// onResult receives every committed result: (size, true) on success,
	// (0, false) when estimation failed and the cached size must be
	// cleared. Stale and skipped cycles never reach it.
	onResult func(txSize int, ok bool)

	mu       sync.Mutex
	timer    *time.Timer
	seq      uint64
	inFlight bool
	pending  params
	closed   bool
}

// New creates an estimator. onResult is invoked from the estimator's own
// goroutine.
func New(sess Session, client Poster, validator *address.Validator, debounce time.Duration, onResult func(int, bool)) *Estimator {
	return &Estimator{
		session:   sess,
		client:    client,
		validator: validator,
		debounce:  debounce,
		onResult:  onResult,
	}
}

// Request schedules an estimation for the given inputs, superseding any
// previous request still pending or in flight. Invalid addresses and
// non-positive amounts are ignored.
func (e *Estimator) Request(addr string, amount int64, feeRate int) {
	if !e.validator.Validate(addr) || amount <= 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	e.seq++
	e.pending = params{address: addr, amount: amount, feeRate: feeRate}
	e.armLocked(e.debounce)
}

// armLocked (re)starts the debounce timer. Caller holds e.mu.
func (e *Estimator) armLocked(d time.Duration) {
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(d, e.fire)
}

// Calculating reports whether an estimation is pending or in flight.
func (e *Estimator) Calculating() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlight || e.timer != nil
}

// Close stops the debounce timer. In-flight results are dropped.
func (e *Estimator) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.seq++ // invalidates any in-flight result
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *Estimator) fire() {
	e.mu.Lock()
	e.timer = nil
	if e.closed || e.inFlight {
		// Never two size requests in flight: the running cycle notices the
		// newer sequence number on completion and redispatches.
		e.mu.Unlock()
		return
	}
	p := e.pending
	seq := e.seq
	e.inFlight = true
	e.mu.Unlock()

	e.run(p, seq)
}

func (e *Estimator) run(p params, seq uint64) {
	ctx := context.Background()

	if !e.session.Authenticated() {
		// Kick off a login and stop this cycle; estimation resumes once
		// the session exists.
		e.finish(seq, false)
		if _, err := e.session.Login(ctx); err == nil {
			e.retrigger()
		}
		return
	}

	if !e.session.Health().Ready() {
		// Wallet not ready, skip silently.
		e.finish(seq, false)
		return
	}

	req := types.CalcTxSizeRequest{
		RecipientAddress: p.address,
		SpendAmount:      p.amount,
		PriorityRate:     p.feeRate,
	}

	resp, err := e.session.WithReauth(ctx, func(ctx context.Context, token string) (*proxy.Response, error) {
		return e.client.Post(ctx, "/calculate-tx-size", token, req)
	})

	txSize := 0
	ok := false
	switch {
	case err != nil:
		logging.Debugf("Size estimation failed: %v", err)
	case !resp.OK():
		logging.Debugf("Size estimation returned %d", resp.StatusCode)
	default:
		var out types.CalcTxSizeResponse
		if derr := resp.Decode(&out); derr != nil {
			logging.Debugf("Size estimation decode failed: %v", derr)
		} else {
			txSize = out.TxSize
			ok = true
		}
	}

	if e.finish(seq, true) {
		e.onResult(txSize, ok)
	}
}

// finish clears the in-flight flag and reports whether the result for seq
// may be committed. A superseded cycle redispatches for the newest inputs
// and its own result is discarded.
func (e *Estimator) finish(seq uint64, commit bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inFlight = false

	if e.closed {
		return false
	}
	if seq != e.seq {
		// A newer request arrived while this one was in flight.
		e.armLocked(0)
		return false
	}
	return commit && e.onResult != nil
}

// retrigger schedules a fresh cycle for the last requested inputs.
func (e *Estimator) retrigger() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.seq++
	e.armLocked(0)
}
