package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HORNET-Storage/hornet-panel-wallet/lib/types"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/wallet/address"
)

const validAddr = "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"

type fakeEstimator struct {
	mu       sync.Mutex
	requests []struct {
		addr    string
		amount  int64
		feeRate int
	}
	closed bool
}

func (e *fakeEstimator) Request(addr string, amount int64, feeRate int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests = append(e.requests, struct {
		addr    string
		amount  int64
		feeRate int
	}{addr, amount, feeRate})
}

func (e *fakeEstimator) Calculating() bool { return false }

func (e *fakeEstimator) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
}

func (e *fakeEstimator) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.requests)
}

type fakeSubmitter struct {
	result   *types.SubmitResult
	lastForm types.SendForm
	calls    int
}

func (s *fakeSubmitter) Submit(ctx context.Context, form *types.SendForm) *types.SubmitResult {
	s.calls++
	s.lastForm = *form
	return s.result
}

func newController(sub *fakeSubmitter, onOutcome func(types.SendOutcome)) (*Controller, *fakeEstimator) {
	c := New(address.NewValidator("mainnet"), sub, onOutcome)
	est := &fakeEstimator{}
	c.SetEstimator(est)
	return c, est
}

func reviewing(t *testing.T, c *Controller) {
	t.Helper()
	c.SetAddress(validAddr)
	require.NoError(t, c.OpenDetails())
}

func TestAddressGate(t *testing.T) {
	c, est := newController(&fakeSubmitter{}, nil)

	c.SetAddress("not-an-address")
	err := c.OpenDetails()
	assert.ErrorIs(t, err, ErrInvalidAddress)
	assert.Equal(t, EnteringAddress, c.State())
	assert.Equal(t, 0, est.count(), "no estimation before the details phase opens")

	c.SetAddress(validAddr)
	require.NoError(t, c.OpenDetails())
	assert.Equal(t, ReviewingDetails, c.State())
	assert.Equal(t, 1, est.count())
}

func TestFormEditsRetriggerEstimation(t *testing.T) {
	c, est := newController(&fakeSubmitter{}, nil)
	reviewing(t, c)
	base := est.count()

	c.SetAmount(5000)
	c.SetFeeRate(3)
	assert.Equal(t, base+2, est.count())

	est.mu.Lock()
	last := est.requests[len(est.requests)-1]
	est.mu.Unlock()
	assert.Equal(t, validAddr, last.addr)
	assert.Equal(t, int64(5000), last.amount)
	assert.Equal(t, 3, last.feeRate)
}

func TestEditsBeforeDetailsPhaseDoNotEstimate(t *testing.T) {
	c, est := newController(&fakeSubmitter{}, nil)

	c.SetAddress(validAddr)
	c.SetAmount(5000)
	assert.Equal(t, 0, est.count())
}

func TestSelectTier(t *testing.T) {
	c, est := newController(&fakeSubmitter{}, nil)
	reviewing(t, c)
	c.SetNetworkFees(types.RecommendedFees{HourFee: 4, HalfHourFee: 9, FastestFee: 21, MinimumFee: 1})
	c.ApplyTxSize(150, true)

	require.NoError(t, c.SelectTier(types.FeeTierMed))
	assert.Equal(t, 9, c.Form().FeeRate)

	est.mu.Lock()
	last := est.requests[len(est.requests)-1]
	est.mu.Unlock()
	assert.Equal(t, 9, last.feeRate, "tier selection re-estimates with the new rate")

	assert.Error(t, c.SelectTier(types.FeeTierName("turbo")))
}

func TestApplyTxSizeRecomputesTiers(t *testing.T) {
	c, _ := newController(&fakeSubmitter{}, nil)
	reviewing(t, c)
	c.SetNetworkFees(types.RecommendedFees{HourFee: 5, HalfHourFee: 10, FastestFee: 20, MinimumFee: 1})

	c.ApplyTxSize(200, true)
	tiers := c.Tiers()
	require.Len(t, tiers, 3)
	assert.Equal(t, int64(1000), tiers[0].TotalFee)
	assert.Equal(t, int64(2000), tiers[1].TotalFee)
	assert.Equal(t, int64(4000), tiers[2].TotalFee)
	assert.Equal(t, 200, c.Form().TxSize)

	// A failed estimation clears the size and the fee math degrades to zero.
	c.ApplyTxSize(999, false)
	form := c.Form()
	assert.Equal(t, 0, form.TxSize)
	assert.Equal(t, int64(0), form.Fee())
}

func TestSubmitFailureReturnsToReview(t *testing.T) {
	sub := &fakeSubmitter{result: &types.SubmitResult{OK: false, Reason: "wallet unhealthy"}}
	var outcomes []types.SendOutcome
	c, _ := newController(sub, func(o types.SendOutcome) { outcomes = append(outcomes, o) })
	reviewing(t, c)
	c.SetAmount(5000)

	result := c.Submit(context.Background())

	assert.False(t, result.OK)
	assert.Equal(t, ReviewingDetails, c.State())
	assert.Equal(t, validAddr, c.Form().Address, "form survives a failed attempt")
	assert.Equal(t, int64(5000), c.Form().Amount)
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Success)
}

func TestSubmitSuccessAndAcknowledge(t *testing.T) {
	sub := &fakeSubmitter{result: &types.SubmitResult{OK: true, TxID: "abc123"}}
	var outcomes []types.SendOutcome
	c, _ := newController(sub, func(o types.SendOutcome) { outcomes = append(outcomes, o) })
	reviewing(t, c)
	c.SetAmount(5000)

	result := c.Submit(context.Background())

	require.True(t, result.OK)
	assert.Equal(t, Succeeded, c.State())
	require.NotNil(t, c.LastResult())
	assert.Equal(t, "abc123", c.LastResult().TxID)

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Success)
	assert.Equal(t, "abc123", outcomes[0].TxID)
	assert.Equal(t, int64(5000), outcomes[0].Amount)

	c.Acknowledge()
	assert.Equal(t, EnteringAddress, c.State())
	assert.Equal(t, types.SendForm{}, c.Form())
	assert.Nil(t, c.LastResult())
}

func TestSubmitOutsideReviewIsRejected(t *testing.T) {
	sub := &fakeSubmitter{result: &types.SubmitResult{OK: true}}
	c, _ := newController(sub, nil)

	result := c.Submit(context.Background())
	assert.False(t, result.OK)
	assert.Equal(t, ErrInvalidTransition.Error(), result.Reason)
	assert.Equal(t, 0, sub.calls)
}

func TestAcknowledgeOutsideSucceededIsNoop(t *testing.T) {
	c, _ := newController(&fakeSubmitter{}, nil)
	reviewing(t, c)

	c.Acknowledge()
	assert.Equal(t, ReviewingDetails, c.State())
	assert.Equal(t, validAddr, c.Form().Address)
}

func TestCloseReleasesEstimator(t *testing.T) {
	c, est := newController(&fakeSubmitter{}, nil)
	c.Close()

	est.mu.Lock()
	defer est.mu.Unlock()
	assert.True(t, est.closed)
}
