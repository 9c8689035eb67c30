// Package pipeline sequences the send flow: address entry, details review
// with continuous size estimation, submission, and result reporting.
package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/HORNET-Storage/hornet-panel-wallet/lib/logging"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/types"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/wallet/address"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/wallet/fees"
)

// State is the pipeline's position in the send flow
type State int

const (
	EnteringAddress State = iota
	ReviewingDetails
	Submitting
	Succeeded
)

func (s State) String() string {
	switch s {
	case EnteringAddress:
		return "entering_address"
	case ReviewingDetails:
		return "reviewing_details"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	default:
		return "unknown"
	}
}

var (
	// ErrInvalidAddress is the recoverable validation error raised when the
	// address gate refuses a transition. It never reaches the network.
	ErrInvalidAddress = errors.New("invalid recipient address")
	// ErrInvalidTransition means the requested operation is not allowed in
	// the current state.
	ErrInvalidTransition = errors.New("operation not allowed in current state")
)

// Estimator drives the remote size estimation loop.
type Estimator interface {
	Request(addr string, amount int64, feeRate int)
	Calculating() bool
	Close()
}

// Submitter performs one submission attempt.
type Submitter interface {
	Submit(ctx context.Context, form *types.SendForm) *types.SubmitResult
}

// Controller is the send-pipeline state machine
type Controller struct {
	validator *address.Validator
	submitter Submitter
	onOutcome func(types.SendOutcome)

	mu          sync.Mutex
	estimator   Estimator
	state       State
	form        types.SendForm
	networkFees types.RecommendedFees
	tiers       []types.FeeTier
	lastResult  *types.SubmitResult
}

// New creates a controller in the EnteringAddress state. onOutcome receives
// the terminal payload for the hosting result surface and may be nil.
func New(validator *address.Validator, sub Submitter, onOutcome func(types.SendOutcome)) *Controller {
	c := &Controller{
		validator: validator,
		submitter: sub,
		onOutcome: onOutcome,
		state:     EnteringAddress,
	}
	c.tiers = fees.Tiers(0, c.networkFees)
	return c
}

// SetEstimator attaches the estimation loop. Its results must be fed back
// through ApplyTxSize.
func (c *Controller) SetEstimator(e Estimator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.estimator = e
}

// State returns the current pipeline state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Form returns a snapshot of the form values.
func (c *Controller) Form() types.SendForm {
	c.mu.Lock()
	defer c.mu.Unlock()
	form := c.form
	if c.estimator != nil {
		form.TxSizeCalculating = c.estimator.Calculating()
	}
	return form
}

// Tiers returns the current fee suggestions, ascending by rate.
func (c *Controller) Tiers() []types.FeeTier {
	c.mu.Lock()
	defer c.mu.Unlock()
	tiers := make([]types.FeeTier, len(c.tiers))
	copy(tiers, c.tiers)
	return tiers
}

// LastResult returns the most recent submission result, nil before the
// first attempt.
func (c *Controller) LastResult() *types.SubmitResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastResult
}

// SetAddress records the entered recipient address.
func (c *Controller) SetAddress(addr string) {
	c.mu.Lock()
	c.form.Address = addr
	c.mu.Unlock()
	c.retriggerEstimate()
}

// OpenDetails moves from address entry to the details phase. The address
// gate failing keeps the state and returns ErrInvalidAddress.
func (c *Controller) OpenDetails() error {
	c.mu.Lock()
	if c.state != EnteringAddress {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	if !c.validator.Validate(c.form.Address) {
		c.mu.Unlock()
		return ErrInvalidAddress
	}
	c.state = ReviewingDetails
	c.mu.Unlock()

	c.retriggerEstimate()
	return nil
}

// SetAmount updates the spend amount and re-triggers estimation.
func (c *Controller) SetAmount(amount int64) {
	c.mu.Lock()
	c.form.Amount = amount
	c.mu.Unlock()
	c.retriggerEstimate()
}

// SetFeeRate updates the fee rate and re-triggers estimation, since the
// estimated size can itself depend on the rate.
func (c *Controller) SetFeeRate(rate int) {
	c.mu.Lock()
	c.form.FeeRate = rate
	c.mu.Unlock()
	c.retriggerEstimate()
}

// SetEnableRBF toggles replace-by-fee on the composed transaction.
func (c *Controller) SetEnableRBF(enable bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form.EnableRBF = enable
}

// SetNetworkFees feeds fresh network fee data into the tier calculator.
func (c *Controller) SetNetworkFees(network types.RecommendedFees) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.networkFees = network
	c.tiers = fees.Tiers(c.form.TxSize, network)
}

// SelectTier applies one of the computed suggestions as the fee rate.
func (c *Controller) SelectTier(name types.FeeTierName) error {
	c.mu.Lock()
	var rate int
	found := false
	for _, tier := range c.tiers {
		if tier.Tier == name {
			rate = tier.Rate
			found = true
			break
		}
	}
	c.mu.Unlock()

	if !found {
		return errors.New("unknown fee tier")
	}
	c.SetFeeRate(rate)
	return nil
}

// ApplyTxSize commits an estimation result: the new size on success, or a
// cleared size on failure so the fee math degrades to zero.
func (c *Controller) ApplyTxSize(txSize int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !ok {
		txSize = 0
	}
	c.form.TxSize = txSize
	c.tiers = fees.Tiers(txSize, c.networkFees)
}

// retriggerEstimate runs a new estimation cycle while the details phase is
// open and the address is valid.
func (c *Controller) retriggerEstimate() {
	c.mu.Lock()
	est := c.estimator
	run := c.state == ReviewingDetails
	form := c.form
	c.mu.Unlock()

	if est == nil || !run {
		return
	}
	est.Request(form.Address, form.Amount, form.FeeRate)
}

// Submit runs one submission attempt. On failure the pipeline returns to
// ReviewingDetails with the form retained; on success it reaches the
// terminal Succeeded state until Acknowledge is called.
func (c *Controller) Submit(ctx context.Context) *types.SubmitResult {
	c.mu.Lock()
	if c.state != ReviewingDetails {
		c.mu.Unlock()
		return &types.SubmitResult{OK: false, Reason: ErrInvalidTransition.Error()}
	}
	c.state = Submitting
	form := c.form
	c.mu.Unlock()

	result := c.submitter.Submit(ctx, &form)

	c.mu.Lock()
	c.lastResult = result
	if result.OK {
		c.state = Succeeded
	} else {
		c.state = ReviewingDetails
	}
	c.mu.Unlock()

	logging.Info("Send pipeline finished submission", map[string]interface{}{
		"ok":     result.OK,
		"reason": result.Reason,
	})

	if c.onOutcome != nil {
		c.onOutcome(types.SendOutcome{
			Success: result.OK,
			Address: form.Address,
			Amount:  form.Amount,
			TxID:    result.TxID,
			Message: result.Message,
		})
	}

	return result
}

// Acknowledge resets the pipeline after the hosting flow presented the
// result.
func (c *Controller) Acknowledge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Succeeded {
		return
	}
	c.form = types.SendForm{}
	c.lastResult = nil
	c.state = EnteringAddress
	c.tiers = fees.Tiers(0, c.networkFees)
}

// Close releases the estimation loop.
func (c *Controller) Close() {
	c.mu.Lock()
	est := c.estimator
	c.mu.Unlock()
	if est != nil {
		est.Close()
	}
}
