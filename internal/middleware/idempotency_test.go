package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/chainpayroll/payroll/internal/logging"
)

const (
	walletA = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	walletB = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
)

type idempotencyApp struct {
	app   *fiber.App
	calls int
}

func setupTestApp(t *testing.T) *idempotencyApp {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})

	ia := &idempotencyApp{app: fiber.New()}
	ia.app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	ia.app.Post("/approve", func(c *fiber.Ctx) error {
		ia.calls++
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": ia.calls})
	})
	ia.app.Post("/fail", func(c *fiber.Ctx) error {
		ia.calls++
		return fiber.NewError(fiber.StatusBadGateway, "registry down")
	})
	return ia
}

func (ia *idempotencyApp) post(t *testing.T, path, wallet, key string) (int, string, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if wallet != "" {
		req.Header.Set(WalletAddressHeader, wallet)
	}
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := ia.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body), resp.Header.Get(replayedHeader)
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	ia := setupTestApp(t)
	status, _, _ := ia.post(t, "/approve", walletA, "")
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, status)
	}
	if ia.calls != 0 {
		t.Fatalf("handler should not run, ran %d times", ia.calls)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	ia := setupTestApp(t)

	status, first, _ := ia.post(t, "/approve", walletA, "abc123")
	if status != fiber.StatusCreated {
		t.Fatalf("expected status %d got %d", fiber.StatusCreated, status)
	}

	status, second, replayed := ia.post(t, "/approve", walletA, "abc123")
	if status != fiber.StatusCreated {
		t.Fatalf("expected cached status %d got %d", fiber.StatusCreated, status)
	}
	if second != first {
		t.Fatalf("expected cached payload %s got %s", first, second)
	}
	if replayed != "true" {
		t.Fatalf("expected replay marker")
	}
	if ia.calls != 1 {
		t.Fatalf("expected one handler call, got %d", ia.calls)
	}
}

func TestIdempotencyKeysAreScopedPerWallet(t *testing.T) {
	ia := setupTestApp(t)

	ia.post(t, "/approve", walletA, "same-key")
	status, body, replayed := ia.post(t, "/approve", walletB, "same-key")
	if status != fiber.StatusCreated || replayed != "" {
		t.Fatalf("second wallet got a replay: status=%d replayed=%q", status, replayed)
	}
	if !strings.Contains(body, `"call":2`) {
		t.Fatalf("expected a fresh handler call, got %s", body)
	}
}

func TestIdempotencyReleasesKeyOnFailure(t *testing.T) {
	ia := setupTestApp(t)

	for i := 0; i < 2; i++ {
		status, _, _ := ia.post(t, "/fail", walletA, "retry-me")
		if status != fiber.StatusBadGateway {
			t.Fatalf("attempt %d: expected %d got %d", i, fiber.StatusBadGateway, status)
		}
	}
	if ia.calls != 2 {
		t.Fatalf("failed request should be retryable, handler ran %d times", ia.calls)
	}
}
