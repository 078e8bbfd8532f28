package middleware

import (
	"context"
	"crypto/ecdsa"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gofiber/fiber/v2"

	"github.com/chainpayroll/payroll/internal/session"
	"github.com/chainpayroll/payroll/internal/wallet"
)

type proofRequest struct {
	wallet    string
	nonce     string
	signature string
}

func newProofApp(t *testing.T) (*fiber.App, *session.Challenger) {
	t.Helper()
	challenges := session.NewChallenger(session.NewMemoryChallengeStore(), "PayrollChain", time.Minute)
	app := fiber.New()
	app.Post("/register", WalletClaim(nil), WalletProof(challenges), func(c *fiber.Ctx) error {
		id, ok := CallerIdentity(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendString(id.Address.String())
	})
	return app, challenges
}

func postProof(t *testing.T, app *fiber.App, r proofRequest) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/register", nil)
	if r.wallet != "" {
		req.Header.Set(WalletAddressHeader, r.wallet)
	}
	if r.nonce != "" {
		req.Header.Set(WalletNonceHeader, r.nonce)
	}
	if r.signature != "" {
		req.Header.Set(WalletSignatureHeader, r.signature)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func signedChallenge(t *testing.T, challenges *session.Challenger, addr wallet.Address, key *ecdsa.PrivateKey) (string, string) {
	t.Helper()
	ch, err := challenges.Issue(context.Background(), addr)
	if err != nil {
		t.Fatalf("issue challenge: %v", err)
	}
	sig, err := wallet.SignMessage(key, ch.Message)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return ch.Nonce, sig
}

func TestWalletProofAcceptsSignedChallenge(t *testing.T) {
	app, challenges := newProofApp(t)
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := wallet.AddressOf(key)
	nonce, sig := signedChallenge(t, challenges, addr, key)

	status, body := postProof(t, app, proofRequest{wallet: addr.String(), nonce: nonce, signature: sig})
	if status != fiber.StatusOK || body != addr.String() {
		t.Fatalf("expected 200 for %s, got %d %q", addr, status, body)
	}

	// Nonces are single use.
	status, _ = postProof(t, app, proofRequest{wallet: addr.String(), nonce: nonce, signature: sig})
	if status != fiber.StatusUnauthorized {
		t.Fatalf("replayed nonce: expected 401 got %d", status)
	}
}

func TestWalletProofRejectsSpoofedHeader(t *testing.T) {
	app, challenges := newProofApp(t)
	victim, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	mallory, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	victimAddr := wallet.AddressOf(victim)

	nonce, forged := signedChallenge(t, challenges, victimAddr, mallory)
	otherNonce, _ := signedChallenge(t, challenges, victimAddr, victim)

	cases := []struct {
		name string
		req  proofRequest
		want int
	}{
		{"header only", proofRequest{wallet: victimAddr.String()}, fiber.StatusUnauthorized},
		{"unknown nonce", proofRequest{wallet: victimAddr.String(), nonce: "made-up", signature: forged}, fiber.StatusUnauthorized},
		{"signed by another key", proofRequest{wallet: victimAddr.String(), nonce: nonce, signature: forged}, fiber.StatusUnauthorized},
		{"garbage signature", proofRequest{wallet: victimAddr.String(), nonce: otherNonce, signature: "0xdeadbeef"}, fiber.StatusUnauthorized},
		{"no wallet", proofRequest{}, fiber.StatusUnauthorized},
		{"bad wallet", proofRequest{wallet: "0x123"}, fiber.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if status, _ := postProof(t, app, tc.req); status != tc.want {
				t.Fatalf("expected %d got %d", tc.want, status)
			}
		})
	}
}
