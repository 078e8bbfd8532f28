package infra

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
)

// NewEthRPCClient dials the JSON-RPC node and verifies it answers.
func NewEthRPCClient(ctx context.Context, url string) (*rpc.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("eth rpc url is required")
	}

	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial eth rpc: %w", err)
	}

	var chainID string
	if err := client.CallContext(ctx, &chainID, "eth_chainId"); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping eth rpc: %w", err)
	}

	return client, nil
}
