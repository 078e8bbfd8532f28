package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/rpc"
)

type rejection struct{}

func (rejection) Error() string  { return "user rejected the request" }
func (rejection) ErrorCode() int { return userRejectedCode }

type requestingNode struct {
	accounts []string
	err      error
}

func (n *requestingNode) RequestAccounts() ([]string, error) { return n.accounts, n.err }

type legacyNode struct {
	accounts []string
}

func (n *legacyNode) Accounts() []string { return n.accounts }

func dialNode(t *testing.T, svc any) *rpc.Client {
	t.Helper()
	server := rpc.NewServer()
	if err := server.RegisterName("eth", svc); err != nil {
		t.Fatalf("register rpc service: %v", err)
	}
	client := rpc.DialInProc(server)
	t.Cleanup(func() {
		client.Close()
		server.Stop()
	})
	return client
}

func TestConnectWithoutProvider(t *testing.T) {
	_, err := NewAdapter(nil).Connect(context.Background())
	if !errors.Is(err, ErrProviderMissing) {
		t.Fatalf("expected ErrProviderMissing, got %v", err)
	}
}

func TestConnectStaticProvider(t *testing.T) {
	id, err := NewAdapter(StaticProvider{"0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359"}).Connect(context.Background())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if id.Address != "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359" {
		t.Fatalf("unexpected address %s", id.Address)
	}

	if _, err := NewAdapter(StaticProvider{}).Connect(context.Background()); !errors.Is(err, ErrUserRejected) {
		t.Fatalf("expected ErrUserRejected for empty account list, got %v", err)
	}
}

func TestConnectRPCProvider(t *testing.T) {
	client := dialNode(t, &requestingNode{accounts: []string{"0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb"}})
	id, err := NewAdapter(NewRPCProvider(client)).Connect(context.Background())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if id.Address != "0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB" {
		t.Fatalf("unexpected address %s", id.Address)
	}
}

func TestConnectRPCProviderRejected(t *testing.T) {
	client := dialNode(t, &requestingNode{err: rejection{}})
	_, err := NewAdapter(NewRPCProvider(client)).Connect(context.Background())
	if !errors.Is(err, ErrUserRejected) {
		t.Fatalf("expected ErrUserRejected, got %v", err)
	}
}

func TestConnectRPCProviderFallsBackToAccounts(t *testing.T) {
	client := dialNode(t, &legacyNode{accounts: []string{"0xd1220a0cf47c7b9be7a2e6ba89f429762e7b9adb"}})
	id, err := NewAdapter(NewRPCProvider(client)).Connect(context.Background())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if id.Address != "0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb" {
		t.Fatalf("unexpected address %s", id.Address)
	}
}
