package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RegisterHealthRoutes adds a readiness endpoint covering every configured backend.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		checks := fiber.Map{
			"postgres": probe(d.DB != nil, func() error { return d.DB.Ping(ctx) }),
			"redis":    probe(d.Cache != nil, func() error { return d.Cache.Ping(ctx).Err() }),
			"ethereum": probe(d.Eth != nil, func() error {
				var chainID string
				return d.Eth.CallContext(ctx, &chainID, "eth_chainId")
			}),
		}

		status := http.StatusOK
		for _, v := range checks {
			if s := v.(string); s != "ok" && s != "disabled" {
				status = http.StatusServiceUnavailable
			}
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    checks,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}

func probe(enabled bool, ping func() error) string {
	if !enabled {
		return "disabled"
	}
	if err := ping(); err != nil {
		return err.Error()
	}
	return "ok"
}
