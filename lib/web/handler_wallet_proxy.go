package web

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/HORNET-Storage/hornet-panel-wallet/lib/logging"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/wallet/proxy"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/wallet/session"
)

// walletProxy forwards panel requests to the wallet service. Authenticated
// endpoints go through the session manager's reauth wrapper so an expired
// token is refreshed exactly once instead of bubbling a 401 to the panel.
type walletProxy struct {
	client  *proxy.Client
	session *session.Manager
}

func (p *walletProxy) forward(c *fiber.Ctx, resp *proxy.Response, err error) error {
	if err != nil {
		logging.Error("Failed to reach wallet service", map[string]interface{}{
			"error": err.Error(),
			"path":  c.Path(),
		})
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Failed to connect to wallet service",
		})
	}

	c.Set("Content-Type", "application/json")
	return c.Status(resp.StatusCode).Send(resp.Body)
}

// handleChallenge proxies the login challenge request, no authentication
// required.
func (p *walletProxy) handleChallenge(c *fiber.Ctx) error {
	resp, err := p.client.Get(c.Context(), "/challenge", "")
	return p.forward(c, resp, err)
}

// handleVerify proxies the signed challenge and lets the session manager
// adopt the returned token.
func (p *walletProxy) handleVerify(c *fiber.Ctx) error {
	resp, err := p.client.Post(c.Context(), "/verify", "", json.RawMessage(c.Body()))
	if err == nil && resp.OK() {
		p.session.AdoptTokenFrom(resp)
	}
	return p.forward(c, resp, err)
}

// handleHealth proxies the wallet health check.
func (p *walletProxy) handleHealth(c *fiber.Ctx) error {
	resp, err := p.session.WithReauth(c.Context(), func(ctx context.Context, token string) (*proxy.Response, error) {
		return p.client.Get(ctx, "/panel-health", token)
	})
	return p.forward(c, resp, err)
}

// handleCalculateTxSize proxies the size estimation request.
func (p *walletProxy) handleCalculateTxSize(c *fiber.Ctx) error {
	body := json.RawMessage(c.Body())
	resp, err := p.session.WithReauth(c.Context(), func(ctx context.Context, token string) (*proxy.Response, error) {
		return p.client.Post(ctx, "/calculate-tx-size", token, body)
	})
	return p.forward(c, resp, err)
}

// handleTransaction proxies the transaction request (both new and RBF).
func (p *walletProxy) handleTransaction(c *fiber.Ctx) error {
	body := json.RawMessage(c.Body())
	resp, err := p.session.WithReauth(c.Context(), func(ctx context.Context, token string) (*proxy.Response, error) {
		return p.client.Post(ctx, "/transaction", token, body)
	})
	return p.forward(c, resp, err)
}
