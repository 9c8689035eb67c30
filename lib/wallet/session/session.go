// Package session owns the wallet auth token lifecycle: login, durable
// token caching, expiry detection, and health polling. The token is the
// only shared mutable resource of the send pipeline and every other
// component reads it through this manager.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/HORNET-Storage/hornet-panel-wallet/lib/logging"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/types"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/wallet/proxy"
)

var (
	// ErrAuthRejected means the wallet refused the credential flow.
	ErrAuthRejected = errors.New("wallet authentication rejected")
	// ErrSessionExpired means a request 401ed again after one reauth retry.
	ErrSessionExpired = errors.New("wallet session expired")
	// ErrNotAuthenticated blocks submission while no session exists.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrWalletUnhealthy blocks submission while the wallet reports unhealthy.
	ErrWalletUnhealthy = errors.New("wallet unhealthy")
	// ErrChainNotSynced blocks submission while the wallet is not chain-synced.
	ErrChainNotSynced = errors.New("wallet not synced")
)

// Response bodies the wallet uses to signal an expired or invalid token.
var expiredBodies = []string{
	"Token expired",
	"Unauthorized: Invalid token",
}

// Transport is the subset of the proxy client the session manager needs.
type Transport interface {
	Get(ctx context.Context, endpoint, token string) (*proxy.Response, error)
}

// RequestFunc is an authenticated wallet request, invoked with the current
// token and retried once with a fresh one when the session expired.
type RequestFunc func(ctx context.Context, token string) (*proxy.Response, error)

type loginCall struct {
	done  chan struct{}
	token string
	err   error
}

type healthCall struct {
	done   chan struct{}
	health *types.WalletHealth
	err    error
}

// Manager owns the wallet session
type Manager struct {
	transport Transport
	auth      Authenticator
	store     TokenStore

	mu            sync.Mutex
	token         string
	authenticated bool
	health        *types.WalletHealth
	healthLoading bool
	login         *loginCall
	healthFlight  *healthCall
}

// NewManager creates a session manager. store may be nil for sessions that
// should not survive a restart.
func NewManager(transport Transport, auth Authenticator, store TokenStore) *Manager {
	return &Manager{transport: transport, auth: auth, store: store}
}

// loadStoredToken promotes a durably stored token into the live session.
func (m *Manager) loadStoredToken() {
	m.mu.Lock()
	if m.token != "" || m.store == nil {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	token, err := m.store.Read()
	if err != nil || token == "" {
		return
	}

	m.mu.Lock()
	if m.token == "" {
		m.token = token
		m.authenticated = true
	}
	m.mu.Unlock()
}

// Token returns the current bearer token, reading the durable store when no
// live token is cached. Empty means unauthenticated.
func (m *Manager) Token() string {
	m.loadStoredToken()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Authenticated reports whether a session token is available.
func (m *Manager) Authenticated() bool {
	return m.Token() != ""
}

// Health returns the last known wallet health, nil when unknown.
func (m *Manager) Health() *types.WalletHealth {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.health
}

// HealthLoading reports whether a health check is in flight.
func (m *Manager) HealthLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthLoading
}

// Login performs the wallet credential flow. Concurrent callers collapse to
// one request: all of them observe the same token or the same failure.
func (m *Manager) Login(ctx context.Context) (string, error) {
	m.mu.Lock()
	if c := m.login; c != nil {
		m.mu.Unlock()
		select {
		case <-c.done:
			return c.token, c.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	c := &loginCall{done: make(chan struct{})}
	m.login = c
	m.mu.Unlock()

	token, err := m.auth.Authenticate(ctx)

	m.mu.Lock()
	m.login = nil
	if err == nil {
		m.token = token
		m.authenticated = true
	}
	m.mu.Unlock()

	if err == nil && m.store != nil {
		if serr := m.store.Save(token); serr != nil {
			logging.Warnf("Failed to persist wallet token: %v", serr)
		}
	}

	c.token, c.err = token, err
	close(c.done)

	if err != nil {
		logging.Warnf("Wallet login failed: %v", err)
		return "", err
	}

	logging.Info("Wallet session established")

	// Refresh health now that the session became authenticated.
	m.CheckWalletHealth(ctx)

	return token, nil
}

// AdoptTokenFrom installs the token from a successful verify response as
// the live session token, used when the login exchange happened elsewhere.
func (m *Manager) AdoptTokenFrom(resp *proxy.Response) {
	var verify types.VerifyResponse
	if err := resp.Decode(&verify); err != nil || verify.Token == "" {
		return
	}

	m.mu.Lock()
	m.token = verify.Token
	m.authenticated = true
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.Save(verify.Token); err != nil {
			logging.Warnf("Failed to persist wallet token: %v", err)
		}
	}

	logging.Info("Wallet session token adopted")
}

// Logout discards the session and its durable token.
func (m *Manager) Logout() {
	m.invalidate()
	m.mu.Lock()
	m.health = nil
	m.mu.Unlock()
}

// invalidate drops the cached and stored token.
func (m *Manager) invalidate() {
	m.mu.Lock()
	m.token = ""
	m.authenticated = false
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.Delete(); err != nil {
			logging.Warnf("Failed to delete stored wallet token: %v", err)
		}
	}
}

// CheckWalletHealth polls the wallet health endpoint. A call already in
// flight is reused rather than duplicated. Transient network failures return
// (nil, nil) and leave the previous health untouched.
func (m *Manager) CheckWalletHealth(ctx context.Context) (*types.WalletHealth, error) {
	m.mu.Lock()
	if c := m.healthFlight; c != nil {
		m.mu.Unlock()
		select {
		case <-c.done:
			return c.health, c.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c := &healthCall{done: make(chan struct{})}
	m.healthFlight = c
	m.healthLoading = true
	m.mu.Unlock()

	health, err := m.fetchHealth(ctx)

	m.mu.Lock()
	m.healthFlight = nil
	m.healthLoading = false
	if health != nil {
		m.health = health
	}
	m.mu.Unlock()

	c.health, c.err = health, err
	close(c.done)
	return health, err
}

func (m *Manager) fetchHealth(ctx context.Context) (*types.WalletHealth, error) {
	resp, err := m.transport.Get(ctx, "/panel-health", m.Token())
	if err != nil {
		// Transient failure, keep whatever we knew before.
		logging.Debugf("Wallet health check failed: %v", err)
		return nil, nil
	}
	if resp.StatusCode == http.StatusUnauthorized {
		m.invalidate()
		return nil, ErrNotAuthenticated
	}
	if !resp.OK() {
		return nil, fmt.Errorf("health endpoint returned %d", resp.StatusCode)
	}

	var health types.WalletHealth
	if err := resp.Decode(&health); err != nil {
		return nil, err
	}
	return &health, nil
}

// Ready reports whether a transaction may be submitted, with a distinct
// error per blocking condition.
func (m *Manager) Ready() error {
	if !m.Authenticated() {
		return ErrNotAuthenticated
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.health == nil || m.health.Status != "healthy" {
		return ErrWalletUnhealthy
	}
	if !m.health.ChainSynced {
		return ErrChainNotSynced
	}
	return nil
}

// WithReauth executes an authenticated request. On a 401 whose body signals
// an expired token it discards the cached token, logs in again, and retries
// fn exactly once with the fresh token. A second expiry fails with
// ErrSessionExpired instead of retrying again.
func (m *Manager) WithReauth(ctx context.Context, fn RequestFunc) (*proxy.Response, error) {
	resp, err := fn(ctx, m.Token())
	if err != nil {
		return nil, err
	}
	if !isExpiredResponse(resp) {
		return resp, nil
	}

	logging.Warn("Wallet returned 401, re-authenticating")
	m.invalidate()

	token, err := m.Login(ctx)
	if err != nil {
		return nil, err
	}

	resp, err = fn(ctx, token)
	if err != nil {
		return nil, err
	}
	if isExpiredResponse(resp) {
		return resp, ErrSessionExpired
	}
	return resp, nil
}

func isExpiredResponse(resp *proxy.Response) bool {
	if resp.StatusCode != http.StatusUnauthorized {
		return false
	}
	body := string(resp.Body)
	for _, marker := range expiredBodies {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}
