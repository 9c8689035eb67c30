package estimator

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HORNET-Storage/hornet-panel-wallet/lib/types"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/wallet/address"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/wallet/proxy"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/wallet/session"
)

const validAddr = "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"

type fakeSession struct {
	authenticated atomic.Bool
	healthy       bool
	loginCalls    int32
}

func (s *fakeSession) Authenticated() bool { return s.authenticated.Load() }

func (s *fakeSession) Health() *types.WalletHealth {
	if !s.healthy {
		return nil
	}
	return &types.WalletHealth{Status: "healthy", ChainSynced: true}
}

func (s *fakeSession) Login(ctx context.Context) (string, error) {
	atomic.AddInt32(&s.loginCalls, 1)
	s.authenticated.Store(true)
	return "token", nil
}

func (s *fakeSession) WithReauth(ctx context.Context, fn session.RequestFunc) (*proxy.Response, error) {
	return fn(ctx, "token")
}

type fakePoster struct {
	mu       sync.Mutex
	requests []types.CalcTxSizeRequest
	sizes    map[int64]int // spend amount to reported size
	release  chan struct{} // when set, requests block until closed
	fired    chan struct{} // signalled once per request received
}

func newFakePoster() *fakePoster {
	return &fakePoster{sizes: map[int64]int{}, fired: make(chan struct{}, 16)}
}

func (p *fakePoster) Post(ctx context.Context, endpoint, token string, body interface{}) (*proxy.Response, error) {
	req := body.(types.CalcTxSizeRequest)
	p.mu.Lock()
	p.requests = append(p.requests, req)
	release := p.release
	size := p.sizes[req.SpendAmount]
	p.mu.Unlock()

	p.fired <- struct{}{}
	if release != nil {
		<-release
	}
	return &proxy.Response{
		StatusCode: http.StatusOK,
		Body:       []byte(fmt.Sprintf(`{"txSize":%d}`, size)),
	}, nil
}

func (p *fakePoster) requestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

type resultSink struct {
	mu      sync.Mutex
	results []int
	oks     []bool
	notify  chan struct{}
}

func newResultSink() *resultSink { return &resultSink{notify: make(chan struct{}, 16)} }

func (r *resultSink) apply(size int, ok bool) {
	r.mu.Lock()
	r.results = append(r.results, size)
	r.oks = append(r.oks, ok)
	r.mu.Unlock()
	r.notify <- struct{}{}
}

func (r *resultSink) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for estimation result")
	}
}

func (r *resultSink) last() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.results) == 0 {
		return 0, false
	}
	return r.results[len(r.results)-1], r.oks[len(r.oks)-1]
}

func readySession() *fakeSession {
	s := &fakeSession{healthy: true}
	s.authenticated.Store(true)
	return s
}

func TestEstimateCommitsResult(t *testing.T) {
	poster := newFakePoster()
	poster.sizes[1000] = 141
	sink := newResultSink()

	e := New(readySession(), poster, address.NewValidator("mainnet"), time.Millisecond, sink.apply)
	defer e.Close()

	e.Request(validAddr, 1000, 5)
	sink.wait(t)

	size, ok := sink.last()
	assert.True(t, ok)
	assert.Equal(t, 141, size)
	assert.Equal(t, 1, poster.requestCount())
	assert.False(t, e.Calculating())
}

func TestInvalidInputsIgnored(t *testing.T) {
	poster := newFakePoster()
	sink := newResultSink()
	e := New(readySession(), poster, address.NewValidator("mainnet"), time.Millisecond, sink.apply)
	defer e.Close()

	e.Request("not-an-address", 1000, 5)
	e.Request(validAddr, 0, 5)
	e.Request(validAddr, -3, 5)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, poster.requestCount())
	assert.False(t, e.Calculating())
}

func TestDebounceCollapsesBurst(t *testing.T) {
	poster := newFakePoster()
	poster.sizes[5000] = 200
	sink := newResultSink()

	e := New(readySession(), poster, address.NewValidator("mainnet"), 40*time.Millisecond, sink.apply)
	defer e.Close()

	// A typing burst inside the debounce window yields a single request
	// for the final inputs.
	e.Request(validAddr, 5, 1)
	e.Request(validAddr, 50, 1)
	e.Request(validAddr, 500, 1)
	e.Request(validAddr, 5000, 1)

	sink.wait(t)

	require.Equal(t, 1, poster.requestCount())
	poster.mu.Lock()
	assert.Equal(t, int64(5000), poster.requests[0].SpendAmount)
	poster.mu.Unlock()
}

func TestLastRequestWins(t *testing.T) {
	poster := newFakePoster()
	poster.sizes[10] = 100
	poster.sizes[20] = 250
	poster.release = make(chan struct{})
	sink := newResultSink()

	e := New(readySession(), poster, address.NewValidator("mainnet"), time.Millisecond, sink.apply)
	defer e.Close()

	e.Request(validAddr, 10, 1)
	<-poster.fired // first request is now held in flight

	// Supersede it while it is running, then let it complete.
	e.Request(validAddr, 20, 1)
	time.Sleep(20 * time.Millisecond) // let the second fire observe inFlight
	close(poster.release)

	sink.wait(t)

	size, ok := sink.last()
	assert.True(t, ok)
	assert.Equal(t, 250, size, "stale result for amount 10 must never be committed")

	sink.mu.Lock()
	for _, s := range sink.results {
		assert.NotEqual(t, 100, s)
	}
	sink.mu.Unlock()

	assert.Equal(t, 2, poster.requestCount(), "superseded cycle redispatches for the new inputs")
}

func TestUnauthenticatedTriggersLogin(t *testing.T) {
	sess := &fakeSession{healthy: true}
	poster := newFakePoster()
	poster.sizes[1000] = 166
	sink := newResultSink()

	e := New(sess, poster, address.NewValidator("mainnet"), time.Millisecond, sink.apply)
	defer e.Close()

	e.Request(validAddr, 1000, 5)
	sink.wait(t)

	assert.Equal(t, int32(1), atomic.LoadInt32(&sess.loginCalls))
	size, ok := sink.last()
	assert.True(t, ok, "estimation resumes after login")
	assert.Equal(t, 166, size)
}

func TestUnhealthySkipsSilently(t *testing.T) {
	sess := &fakeSession{healthy: false}
	sess.authenticated.Store(true)
	poster := newFakePoster()
	sink := newResultSink()

	e := New(sess, poster, address.NewValidator("mainnet"), time.Millisecond, sink.apply)
	defer e.Close()

	e.Request(validAddr, 1000, 5)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 0, poster.requestCount())
	sink.mu.Lock()
	assert.Empty(t, sink.results, "skipped cycles never reach the callback")
	sink.mu.Unlock()
}

func TestCloseDropsInFlightResult(t *testing.T) {
	poster := newFakePoster()
	poster.sizes[10] = 100
	poster.release = make(chan struct{})
	sink := newResultSink()

	e := New(readySession(), poster, address.NewValidator("mainnet"), time.Millisecond, sink.apply)

	e.Request(validAddr, 10, 1)
	<-poster.fired
	e.Close()
	close(poster.release)

	time.Sleep(50 * time.Millisecond)
	sink.mu.Lock()
	assert.Empty(t, sink.results)
	sink.mu.Unlock()
}
