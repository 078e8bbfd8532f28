package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/chainpayroll/payroll/internal/registry"
	"github.com/chainpayroll/payroll/internal/session"
	"github.com/chainpayroll/payroll/internal/wallet"
)

const (
	sessionLocal = "session"
	tokenLocal   = "session_token"
)

// SessionAuth validates the bearer session token and, when roles are given,
// requires the session to hold one of them. An address header, when sent,
// must match the session's wallet.
func SessionAuth(svc *session.Service, roles ...registry.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}

		sess, err := svc.Resolve(c.UserContext(), token)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				return fiber.NewError(http.StatusUnauthorized, "session expired")
			}
			return fiber.NewError(http.StatusUnauthorized, "invalid session")
		}
		if len(roles) > 0 && !slices.Contains(roles, sess.Role) {
			return fiber.NewError(http.StatusForbidden, "dashboard requires role "+joinRoles(roles))
		}
		if header := strings.TrimSpace(c.Get(WalletAddressHeader)); header != "" {
			addr, err := wallet.ParseAddress(header)
			if err != nil {
				return fiber.NewError(http.StatusBadRequest, err.Error())
			}
			if !addr.Equal(sess.WalletAddress) {
				return fiber.NewError(http.StatusForbidden, "session belongs to a different wallet")
			}
		}

		c.Locals(sessionLocal, sess)
		c.Locals(tokenLocal, token)
		return c.Next()
	}
}

// CurrentSession returns the session stored by SessionAuth.
func CurrentSession(c *fiber.Ctx) (session.Session, bool) {
	s, ok := c.Locals(sessionLocal).(session.Session)
	return s, ok
}

// SessionToken returns the raw token accepted by SessionAuth.
func SessionToken(c *fiber.Ctx) string {
	token, _ := c.Locals(tokenLocal).(string)
	return token
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	authz := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(authz[len("Bearer "):])
	return token, token != ""
}

func joinRoles(roles []registry.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, " or ")
}
