// Package fees derives the low/med/high fee-rate suggestions shown next to
// the fee input.
package fees

import (
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/types"
)

// DefaultTxSize is the serialized size assumed while no estimate is known,
// so suggestions are never zero.
const DefaultTxSize = 140

// Tiers computes exactly three fee suggestions, ordered ascending by rate.
// Pure: the same txSize and fee data always yield identical tiers. A txSize
// of zero falls back to DefaultTxSize.
func Tiers(txSize int, network types.RecommendedFees) []types.FeeTier {
	size := txSize
	if size <= 0 {
		size = DefaultTxSize
	}

	low := clampRate(network.HourFee, network.MinimumFee)
	med := clampRate(network.HalfHourFee, network.MinimumFee)
	high := clampRate(network.FastestFee, network.MinimumFee)

	// Network data can momentarily invert during fee spikes, keep the
	// tiers ordered regardless.
	if med < low {
		med = low
	}
	if high < med {
		high = med
	}

	return []types.FeeTier{
		{Tier: types.FeeTierLow, Rate: low, TotalFee: int64(low) * int64(size)},
		{Tier: types.FeeTierMed, Rate: med, TotalFee: int64(med) * int64(size)},
		{Tier: types.FeeTierHigh, Rate: high, TotalFee: int64(high) * int64(size)},
	}
}

func clampRate(rate, minimum int) int {
	if rate < minimum {
		rate = minimum
	}
	if rate < 1 {
		rate = 1
	}
	return rate
}
