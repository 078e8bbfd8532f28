package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
)

const (
	userRejectedCode   = 4001
	methodNotFoundCode = -32601
)

// Provider is an injected account source, such as a browser extension or a node.
type Provider interface {
	RequestAccounts(ctx context.Context) ([]string, error)
}

// StaticProvider reports accounts that were resolved elsewhere, typically the
// address the browser extension attached to the request.
type StaticProvider []string

// RequestAccounts returns the configured accounts.
func (p StaticProvider) RequestAccounts(context.Context) ([]string, error) {
	return []string(p), nil
}

// RPCProvider asks a JSON-RPC node for its accounts. Development chains with
// unlocked accounts answer eth_requestAccounts or at least eth_accounts.
type RPCProvider struct {
	client *rpc.Client
}

// NewRPCProvider wraps an established RPC client.
func NewRPCProvider(client *rpc.Client) *RPCProvider {
	return &RPCProvider{client: client}
}

// RequestAccounts calls eth_requestAccounts, falling back to eth_accounts on
// nodes that do not implement the EIP-1102 method.
func (p *RPCProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	err := p.client.CallContext(ctx, &accounts, "eth_requestAccounts")
	if code, ok := rpcErrorCode(err); ok && code == methodNotFoundCode {
		err = p.client.CallContext(ctx, &accounts, "eth_accounts")
	}
	if err != nil {
		if code, ok := rpcErrorCode(err); ok && code == userRejectedCode {
			return nil, ErrUserRejected
		}
		return nil, fmt.Errorf("request accounts: %w", err)
	}
	return accounts, nil
}

func rpcErrorCode(err error) (int, bool) {
	var rpcErr rpc.Error
	if err != nil && errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode(), true
	}
	return 0, false
}
