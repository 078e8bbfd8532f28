package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/chainpayroll/payroll/internal/middleware"
	"github.com/chainpayroll/payroll/internal/registry"
	"github.com/chainpayroll/payroll/internal/session"
	"github.com/chainpayroll/payroll/internal/workflow"
)

// WalletGuards resolves the claimed wallet and proves it with a signed
// challenge.
type WalletGuards struct {
	Claim fiber.Handler
	Proof fiber.Handler
}

// RegisterRegistrationRoutes wires the sign-up forms. Both need a signed
// challenge from the registering wallet.
func RegisterRegistrationRoutes(r fiber.Router, h *workflow.Handler, w WalletGuards, idempotent fiber.Handler) {
	r.Post("/employees/register", w.Claim, w.Proof, idempotent, h.RegisterEmployee)
	r.Post("/admins/register", w.Claim, w.Proof, idempotent, h.RegisterAdmin)
}

// RegisterAuthRoutes wires the sign-in challenge, login, logout and session
// lookup.
func RegisterAuthRoutes(r fiber.Router, h *workflow.Handler, sessions *session.Service, w WalletGuards, rateLimiter fiber.Handler) {
	authed := middleware.SessionAuth(sessions)
	r.Post("/auth/challenge", rateLimiter, w.Claim, h.Challenge)
	r.Post("/auth/login/:role", rateLimiter, w.Claim, w.Proof, h.Login)
	r.Post("/auth/logout", authed, h.Logout)
	r.Get("/session", authed, h.Session)
}

// RegisterDashboardRoutes wires the employee, admin and owner dashboards.
// The caller is the session's wallet. Guards are attached per route: group
// middleware would also match the /employees and /admins registration paths.
func RegisterDashboardRoutes(r fiber.Router, h *workflow.Handler, sessions *session.Service, idempotent fiber.Handler) {
	employee := middleware.SessionAuth(sessions, registry.RoleEmployee)
	r.Get("/employee/profile", employee, h.EmployeeProfile)

	anyone := middleware.SessionAuth(sessions)
	r.Get("/payroll/:recordId", anyone, h.PayrollRecord)

	admin := middleware.SessionAuth(sessions, registry.RoleAdmin, registry.RoleOwner)
	r.Get("/admin/employees/pending", admin, h.PendingEmployees)
	r.Get("/admin/employees/approved", admin, h.ApprovedEmployees)
	r.Post("/admin/employees/:address/approve", admin, idempotent, h.ApproveEmployee)
	r.Post("/admin/employees/:address/reject", admin, idempotent, h.RejectEmployee)
	r.Post("/admin/employees/:address/payroll", admin, idempotent, h.RecordPayroll)

	owner := middleware.SessionAuth(sessions, registry.RoleOwner)
	r.Get("/owner/admins/pending", owner, h.PendingAdmins)
	r.Get("/owner/admins/approved", owner, h.ApprovedAdmins)
	r.Post("/owner/admins/:address/approve", owner, idempotent, h.ApproveAdmin)
	r.Post("/owner/admins/:address/reject", owner, idempotent, h.RejectAdmin)
	r.Post("/owner/rotations/release", owner, h.ReleaseStale)
}
