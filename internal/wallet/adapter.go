package wallet

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrProviderMissing means no wallet provider is configured or reachable.
	ErrProviderMissing = errors.New("wallet provider missing")
	// ErrUserRejected means the account holder declined the connection request.
	ErrUserRejected = errors.New("wallet connection rejected")
)

// Identity is the connected account. It is the only notion of user identity.
type Identity struct {
	Address Address
}

// Adapter resolves the caller's identity from a Provider.
type Adapter struct {
	provider Provider
}

// NewAdapter builds an adapter; a nil provider yields ErrProviderMissing on Connect.
func NewAdapter(provider Provider) *Adapter {
	return &Adapter{provider: provider}
}

// Connect requests accounts and returns the first one. It never retries.
func (a *Adapter) Connect(ctx context.Context) (Identity, error) {
	if a == nil || a.provider == nil {
		return Identity{}, ErrProviderMissing
	}

	accounts, err := a.provider.RequestAccounts(ctx)
	if err != nil {
		if errors.Is(err, ErrUserRejected) || errors.Is(err, ErrProviderMissing) {
			return Identity{}, err
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrProviderMissing, err)
	}
	if len(accounts) == 0 || accounts[0] == "" {
		return Identity{}, ErrUserRejected
	}

	addr, err := ParseAddress(accounts[0])
	if err != nil {
		return Identity{}, err
	}
	return Identity{Address: addr}, nil
}
