// Package address validates recipient addresses before the send pipeline
// will accept them.
package address

import (
	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Human-readable prefixes accepted per network.
var acceptedPrefixes = map[string][]string{
	"mainnet": {"bc"},
	"testnet": {"tb"},
}

// Validator checks recipient addresses against the accepted encodings of a
// single network.
type Validator struct {
	prefixes []string
}

// NewValidator returns a validator for the given network ("mainnet" or
// "testnet"). Unknown networks produce a validator that rejects everything.
func NewValidator(network string) *Validator {
	return &Validator{prefixes: acceptedPrefixes[network]}
}

// Validate reports whether addr is a well-formed bech32 or bech32m address
// with an accepted prefix. Decode failures of any kind mean false.
func (v *Validator) Validate(addr string) bool {
	if addr == "" {
		return false
	}

	hrp, _, _, err := bech32.DecodeGeneric(addr)
	if err != nil {
		return false
	}

	for _, prefix := range v.prefixes {
		if hrp == prefix {
			return true
		}
	}
	return false
}
