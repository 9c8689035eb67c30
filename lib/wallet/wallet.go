// Package wallet assembles the send-transaction pipeline from the loaded
// configuration.
package wallet

import (
	"fmt"

	"github.com/HORNET-Storage/hornet-panel-wallet/lib/config"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/types"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/wallet/address"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/wallet/estimator"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/wallet/pipeline"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/wallet/proxy"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/wallet/session"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/wallet/submitter"
)

// SendPipeline bundles the assembled components so callers can drive the
// flow and inspect session state.
type SendPipeline struct {
	Controller *pipeline.Controller
	Session    *session.Manager
	Submitter  *submitter.Submitter

	tokenStore *session.BoltTokenStore
}

// NewSendPipeline builds the full pipeline: wallet transport, session
// manager with durable token store, estimator, submitter with ledger
// client, and the controller. panelURL is the base URL of the panel backend
// hosting the pending-transaction ledger.
func NewSendPipeline(panelURL string, balance submitter.BalanceProvider, onOutcome func(types.SendOutcome)) (*SendPipeline, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("configuration not loaded: %w", err)
	}

	walletClient := proxy.FromConfig()
	if walletClient.BaseURL() == "" {
		return nil, fmt.Errorf("wallet service not configured")
	}
	panelClient := proxy.NewClient(panelURL, config.GetWalletRequestTimeout())

	store, err := session.OpenTokenStore(config.GetPath(cfg.Wallet.TokenStore))
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}

	auth := session.NewChallengeAuthenticator(walletClient, cfg.Wallet.Nsec)
	sess := session.NewManager(walletClient, auth, store)

	validator := address.NewValidator(config.GetNetwork())
	sub := submitter.New(sess, walletClient, submitter.NewLedgerClient(panelClient), balance)

	ctrl := pipeline.New(validator, sub, onOutcome)
	est := estimator.New(sess, walletClient, validator, config.GetEstimateDebounce(), ctrl.ApplyTxSize)
	ctrl.SetEstimator(est)

	return &SendPipeline{
		Controller: ctrl,
		Session:    sess,
		Submitter:  sub,
		tokenStore: store,
	}, nil
}

// Close stops the estimation loop and releases the token store.
func (p *SendPipeline) Close() error {
	p.Controller.Close()
	return p.tokenStore.Close()
}
