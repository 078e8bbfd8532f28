package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/chainpayroll/payroll/internal/session"
	"github.com/chainpayroll/payroll/internal/wallet"
)

const (
	// WalletAddressHeader carries the account the client's wallet extension
	// selected.
	WalletAddressHeader = "X-Wallet-Address"
	// WalletNonceHeader names the challenge the signature answers.
	WalletNonceHeader = "X-Wallet-Nonce"
	// WalletSignatureHeader carries the personal_sign signature of the
	// challenge message.
	WalletSignatureHeader = "X-Wallet-Signature"
)

const (
	claimLocal    = "wallet_claim"
	identityLocal = "wallet_identity"
)

// WalletClaim resolves the address the caller says it holds. The address
// header takes precedence; without it the fallback provider is asked, which
// in development is a node holding unlocked accounts. A claim is not proof.
func WalletClaim(fallback wallet.Provider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		provider := fallback
		if header := strings.TrimSpace(c.Get(WalletAddressHeader)); header != "" {
			provider = wallet.StaticProvider{header}
		}

		id, err := wallet.NewAdapter(provider).Connect(c.UserContext())
		if err != nil {
			switch {
			case errors.Is(err, wallet.ErrInvalidAddress):
				return fiber.NewError(http.StatusBadRequest, err.Error())
			default:
				return fiber.NewError(http.StatusUnauthorized, err.Error())
			}
		}

		c.Locals(claimLocal, id)
		return c.Next()
	}
}

// WalletProof requires the claimed wallet to have signed a challenge issued
// by challenges. It must run after WalletClaim.
func WalletProof(challenges *session.Challenger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := ClaimedWallet(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, wallet.ErrProviderMissing.Error())
		}
		nonce := strings.TrimSpace(c.Get(WalletNonceHeader))
		signature := strings.TrimSpace(c.Get(WalletSignatureHeader))
		if nonce == "" || signature == "" {
			return fiber.NewError(http.StatusUnauthorized, "wallet signature required")
		}

		if err := challenges.Verify(c.UserContext(), id.Address, nonce, signature); err != nil {
			switch {
			case errors.Is(err, session.ErrChallengeNotFound), errors.Is(err, wallet.ErrBadSignature):
				return fiber.NewError(http.StatusUnauthorized, err.Error())
			default:
				return fiber.NewError(http.StatusInternalServerError, err.Error())
			}
		}

		c.Locals(identityLocal, id)
		return c.Next()
	}
}

// ClaimedWallet returns the unverified identity stored by WalletClaim.
func ClaimedWallet(c *fiber.Ctx) (wallet.Identity, bool) {
	id, ok := c.Locals(claimLocal).(wallet.Identity)
	return id, ok
}

// CallerIdentity returns the proven caller: the wallet verified by
// WalletProof, or else the wallet of the session accepted by SessionAuth.
func CallerIdentity(c *fiber.Ctx) (wallet.Identity, bool) {
	if id, ok := c.Locals(identityLocal).(wallet.Identity); ok {
		return id, true
	}
	if sess, ok := CurrentSession(c); ok {
		return wallet.Identity{Address: sess.WalletAddress}, true
	}
	return wallet.Identity{}, false
}
