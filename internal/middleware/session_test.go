package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/chainpayroll/payroll/internal/registry"
	"github.com/chainpayroll/payroll/internal/session"
	"github.com/chainpayroll/payroll/internal/wallet"
)

func newSessionApp(t *testing.T, roles ...registry.Role) (*fiber.App, *session.Service) {
	t.Helper()
	svc := session.NewService(session.NewMemoryStore(), "test-secret", time.Hour)
	app := fiber.New()
	app.Get("/dashboard", SessionAuth(svc, roles...), func(c *fiber.Ctx) error {
		sess, ok := CurrentSession(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		caller, ok := CallerIdentity(c)
		if !ok || !caller.Address.Equal(sess.WalletAddress) {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendString(sess.DisplayName)
	})
	return app, svc
}

func issue(t *testing.T, svc *session.Service, addr string, role registry.Role) string {
	t.Helper()
	tok, _, err := svc.Create(context.Background(), session.Session{
		DisplayName:   "Ada",
		WalletAddress: wallet.MustParseAddress(addr),
		Role:          role,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return tok.Value
}

func getDashboard(t *testing.T, app *fiber.App, walletAddr, token string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, "/dashboard", nil)
	if walletAddr != "" {
		req.Header.Set(WalletAddressHeader, walletAddr)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestSessionAuthAcceptsMatchingWalletAndRole(t *testing.T) {
	app, svc := newSessionApp(t, registry.RoleAdmin, registry.RoleOwner)
	token := issue(t, svc, walletA, registry.RoleAdmin)

	if status := getDashboard(t, app, walletA, token); status != fiber.StatusOK {
		t.Fatalf("expected 200 got %d", status)
	}
	if status := getDashboard(t, app, "", token); status != fiber.StatusOK {
		t.Fatalf("session without address header: expected 200 got %d", status)
	}
}

func TestSessionAuthRejections(t *testing.T) {
	app, svc := newSessionApp(t, registry.RoleAdmin)
	employeeToken := issue(t, svc, walletA, registry.RoleEmployee)
	adminToken := issue(t, svc, walletA, registry.RoleAdmin)

	cases := []struct {
		name   string
		wallet string
		token  string
		want   int
	}{
		{"bad wallet", "0x123", adminToken, fiber.StatusBadRequest},
		{"no token", walletA, "", fiber.StatusUnauthorized},
		{"garbage token", walletA, "not-a-jwt", fiber.StatusUnauthorized},
		{"wrong role", walletA, employeeToken, fiber.StatusForbidden},
		{"other wallet", walletB, adminToken, fiber.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if status := getDashboard(t, app, tc.wallet, tc.token); status != tc.want {
				t.Fatalf("expected %d got %d", tc.want, status)
			}
		})
	}
}

func TestSessionAuthRejectsDestroyedSession(t *testing.T) {
	app, svc := newSessionApp(t)
	token := issue(t, svc, walletA, registry.RoleEmployee)
	if err := svc.Destroy(context.Background(), token); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if status := getDashboard(t, app, walletA, token); status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", status)
	}
}
