// Package session keeps logged-in sessions and the sign-in challenges that
// open them. A session is created only for a wallet that signed a challenge,
// and dashboard routes act for that wallet.
package session

import (
	"errors"
	"time"

	"github.com/chainpayroll/payroll/internal/registry"
	"github.com/chainpayroll/payroll/internal/wallet"
)

var (
	// ErrNotFound is returned when a session expired or was destroyed.
	ErrNotFound = errors.New("session not found")
	// ErrInvalidToken is returned for tokens that fail signature or expiry checks.
	ErrInvalidToken = errors.New("invalid session token")
)

// Session is the logged-in state of one wallet in one role.
type Session struct {
	ID            string         `json:"id"`
	DisplayName   string         `json:"name"`
	ContentHash   string         `json:"cid"`
	WalletAddress wallet.Address `json:"walletAddress"`
	Role          registry.Role  `json:"role"`
	IssuedAt      time.Time      `json:"issuedAt"`
	ExpiresAt     time.Time      `json:"expiresAt"`
}

// Token is the bearer credential handed to the client.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
