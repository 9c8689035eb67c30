package session

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/nbd-wtf/go-nostr"

	"github.com/HORNET-Storage/hornet-panel-wallet/lib/logging"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/types"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/wallet/proxy"
)

// Authenticator performs the wallet credential flow and returns a bearer
// token.
type Authenticator interface {
	Authenticate(ctx context.Context) (string, error)
}

// ChallengeAuthenticator implements the wallet's challenge/verify login: it
// fetches a challenge, signs it as a nostr event, schnorr-signs the message
// hash, and exchanges both for a JWT.
type ChallengeAuthenticator struct {
	client *proxy.Client
	nsec   string
}

// NewChallengeAuthenticator creates an authenticator signing with the given
// bech32-encoded private key.
func NewChallengeAuthenticator(client *proxy.Client, nsec string) *ChallengeAuthenticator {
	return &ChallengeAuthenticator{client: client, nsec: nsec}
}

// decodeKey decodes a bech32-serialized private key to raw bytes.
func decodeKey(serializedKey string) ([]byte, error) {
	_, bytesToBits, err := bech32.Decode(serializedKey)
	if err != nil {
		return nil, err
	}

	keyBytes, err := bech32.ConvertBits(bytesToBits, 5, 8, false)
	if err != nil {
		return nil, err
	}

	return keyBytes, nil
}

// Authenticate runs the challenge/verify exchange.
func (a *ChallengeAuthenticator) Authenticate(ctx context.Context) (string, error) {
	if a.nsec == "" {
		return "", fmt.Errorf("%w: no signing key configured", ErrAuthRejected)
	}

	resp, err := a.client.Get(ctx, "/challenge", "")
	if err != nil {
		return "", fmt.Errorf("failed to fetch wallet challenge: %w", err)
	}
	if !resp.OK() {
		return "", fmt.Errorf("%w: challenge request returned %d", ErrAuthRejected, resp.StatusCode)
	}

	var challenge types.ChallengeResponse
	if err := resp.Decode(&challenge); err != nil {
		return "", err
	}

	keyBytes, err := decodeKey(a.nsec)
	if err != nil {
		return "", fmt.Errorf("invalid wallet signing key: %w", err)
	}
	privKey, _ := btcec.PrivKeyFromBytes(keyBytes)

	event := nostr.Event{
		CreatedAt: nostr.Timestamp(time.Now().Unix()),
		Kind:      1,
		Tags:      nostr.Tags{},
		Content:   challenge.Challenge,
	}
	if err := event.Sign(hex.EncodeToString(keyBytes)); err != nil {
		return "", fmt.Errorf("failed to sign challenge event: %w", err)
	}

	hashBytes, err := hex.DecodeString(challenge.MessageHash)
	if err != nil {
		return "", fmt.Errorf("invalid challenge hash: %w", err)
	}
	signature, err := schnorr.Sign(privKey, hashBytes)
	if err != nil {
		return "", fmt.Errorf("failed to sign challenge hash: %w", err)
	}

	verifyReq := types.VerifyRequest{
		Challenge:   challenge.Challenge,
		Signature:   hex.EncodeToString(signature.Serialize()),
		MessageHash: challenge.MessageHash,
		Event:       event,
	}

	resp, err = a.client.Post(ctx, "/verify", "", verifyReq)
	if err != nil {
		return "", fmt.Errorf("failed to verify wallet challenge: %w", err)
	}
	if !resp.OK() {
		logging.Warn("Wallet rejected login", map[string]interface{}{
			"status_code": resp.StatusCode,
		})
		return "", fmt.Errorf("%w: verify returned %d", ErrAuthRejected, resp.StatusCode)
	}

	var verify types.VerifyResponse
	if err := resp.Decode(&verify); err != nil {
		return "", err
	}
	if verify.Token == "" {
		return "", fmt.Errorf("%w: verify response carried no token", ErrAuthRejected)
	}

	return verify.Token, nil
}
