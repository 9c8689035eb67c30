// Panel authentication types
package types

import (
	"github.com/golang-jwt/jwt/v4"
)

// JWTClaims are the claims carried by panel-issued API tokens
type JWTClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// ChallengeResponse represents the login challenge returned by the wallet
type ChallengeResponse struct {
	Challenge   string `json:"challenge"`
	MessageHash string `json:"messageHash"`
}

// VerifyRequest represents the signed challenge sent back to the wallet
type VerifyRequest struct {
	Challenge   string      `json:"challenge"`
	Signature   string      `json:"signature"`
	MessageHash string      `json:"messageHash"`
	Event       interface{} `json:"event"`
}

// VerifyResponse represents the wallet verification response
type VerifyResponse struct {
	Token string `json:"token"`
}
