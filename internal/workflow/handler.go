package workflow

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/chainpayroll/payroll/internal/contentstore"
	"github.com/chainpayroll/payroll/internal/middleware"
	"github.com/chainpayroll/payroll/internal/payload"
	"github.com/chainpayroll/payroll/internal/payroll"
	"github.com/chainpayroll/payroll/internal/registry"
	"github.com/chainpayroll/payroll/internal/session"
	"github.com/chainpayroll/payroll/internal/wallet"
)

// Handler exposes the workflow over HTTP.
type Handler struct {
	service    *Service
	sessions   *session.Service
	challenges *session.Challenger
}

// NewHandler builds a workflow HTTP handler.
func NewHandler(service *Service, sessions *session.Service, challenges *session.Challenger) *Handler {
	return &Handler{service: service, sessions: sessions, challenges: challenges}
}

type loginRequest struct {
	DisplayName string `json:"display_name"`
}

type loginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Session   session.Session `json:"session"`
}

type approveRequest struct {
	AnnualSalary decimal.Decimal `json:"annual_salary"`
}

type salaryResponse struct {
	AnnualSalary      string `json:"annual_salary"`
	MonthlySalary     string `json:"monthly_salary"`
	Tax               string `json:"tax"`
	NationalInsurance string `json:"national_insurance"`
	NetSalary         string `json:"net_salary"`
}

type approvalResponse struct {
	Approval
	Salary salaryResponse `json:"salary"`
}

// Challenge issues the message the claimed wallet must sign before
// registering or logging in.
func (h *Handler) Challenge(c *fiber.Ctx) error {
	id, ok := middleware.ClaimedWallet(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, wallet.ErrProviderMissing.Error())
	}
	ch, err := h.challenges.Issue(c.UserContext(), id.Address)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"wallet_address": id.Address,
		"nonce":          ch.Nonce,
		"message":        ch.Message,
		"expires_at":     ch.ExpiresAt,
	})
}

// RegisterEmployee handles the employee sign-up form.
func (h *Handler) RegisterEmployee(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	var req EmployeeRegistration
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	reg, err := h.service.RegisterEmployee(c.UserContext(), caller, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(reg)
}

// RegisterAdmin handles the admin role request form.
func (h *Handler) RegisterAdmin(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	var req AdminRegistration
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	reg, err := h.service.RegisterAdmin(c.UserContext(), caller, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(reg)
}

// Login opens a dashboard session for the role in the path.
func (h *Handler) Login(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	role, err := registry.ParseRole(c.Params("role"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	var req loginRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}

	sess, err := h.service.Login(c.UserContext(), caller, role, req.DisplayName)
	if err != nil {
		return respondError(c, err)
	}
	tok, sess, err := h.sessions.Create(c.UserContext(), sess)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(loginResponse{
		Token:     tok.Value,
		ExpiresAt: tok.ExpiresAt,
		Session:   sess,
	})
}

// Logout destroys the current session.
func (h *Handler) Logout(c *fiber.Ctx) error {
	if err := h.sessions.Destroy(c.UserContext(), middleware.SessionToken(c)); err != nil {
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "logged_out"})
}

// Session returns the current session.
func (h *Handler) Session(c *fiber.Ctx) error {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "no session")
	}
	return c.JSON(sess)
}

// EmployeeProfile returns the logged-in employee's record and payload.
func (h *Handler) EmployeeProfile(c *fiber.Ctx) error {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "no session")
	}
	profile, err := h.service.EmployeeProfile(c.UserContext(), sess.WalletAddress)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

func (h *Handler) PendingEmployees(c *fiber.Ctx) error {
	return h.list(c, h.service.PendingEmployees)
}

func (h *Handler) ApprovedEmployees(c *fiber.Ctx) error {
	return h.list(c, h.service.ApprovedEmployees)
}

func (h *Handler) PendingAdmins(c *fiber.Ctx) error {
	return h.list(c, h.service.PendingAdmins)
}

func (h *Handler) ApprovedAdmins(c *fiber.Ctx) error {
	return h.list(c, h.service.ApprovedAdmins)
}

func (h *Handler) list(c *fiber.Ctx, fn func(context.Context) ([]Profile, error)) error {
	items, err := fn(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"items": items, "count": len(items)})
}

// ApproveEmployee approves the employee in the path with the posted salary.
func (h *Handler) ApproveEmployee(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	employee, err := wallet.ParseAddress(c.Params("address"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	var req approveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	approval, err := h.service.ApproveEmployee(c.UserContext(), caller, employee, req.AnnualSalary)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusOK).JSON(approvalResponse{
		Approval: approval,
		Salary: salaryResponse{
			AnnualSalary:      payroll.Fixed(approval.Salary.AnnualSalary),
			MonthlySalary:     payroll.Fixed(approval.Salary.MonthlySalary),
			Tax:               payroll.Fixed(approval.Salary.Tax),
			NationalInsurance: payroll.Fixed(approval.Salary.NationalInsurance),
			NetSalary:         payroll.Fixed(approval.Salary.NetSalary),
		},
	})
}

func (h *Handler) RejectEmployee(c *fiber.Ctx) error {
	return h.decide(c, h.service.RejectEmployee)
}

func (h *Handler) ApproveAdmin(c *fiber.Ctx) error {
	return h.decide(c, h.service.ApproveAdmin)
}

func (h *Handler) RejectAdmin(c *fiber.Ctx) error {
	return h.decide(c, h.service.RejectAdmin)
}

type decideFunc func(ctx context.Context, caller wallet.Identity, target wallet.Address) (Decision, error)

func (h *Handler) decide(c *fiber.Ctx, fn decideFunc) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	target, err := wallet.ParseAddress(c.Params("address"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	decision, err := fn(c.UserContext(), caller, target)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusOK).JSON(decision)
}

// RecordPayroll issues a payslip for the employee in the path.
func (h *Handler) RecordPayroll(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	employee, err := wallet.ParseAddress(c.Params("address"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	var req PayrollRun
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	entry, err := h.service.RecordPayroll(c.UserContext(), caller, employee, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(entry)
}

// PayrollRecord returns the payroll record in the path.
func (h *Handler) PayrollRecord(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	id, err := strconv.ParseUint(c.Params("recordId"), 10, 64)
	if err != nil || id == 0 {
		return fiber.NewError(http.StatusBadRequest, "record id must be a positive integer")
	}
	entry, err := h.service.PayrollRecord(c.UserContext(), caller, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(entry)
}

// ReleaseStale retries unpinning payloads left behind by earlier rotations.
func (h *Handler) ReleaseStale(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	released, err := h.service.ReleaseStale(c.UserContext(), caller)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"released": released})
}

func callerOf(c *fiber.Ctx) (wallet.Identity, error) {
	id, ok := middleware.CallerIdentity(c)
	if !ok {
		return wallet.Identity{}, fiber.NewError(http.StatusUnauthorized, wallet.ErrProviderMissing.Error())
	}
	return id, nil
}

// respondError maps workflow failures to HTTP statuses. Validation failures
// are answered directly so the field details reach the client.
func respondError(c *fiber.Ctx, err error) error {
	var verr *payload.ValidationError
	if errors.As(err, &verr) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "validation failed", "details": verr.Fields})
	}
	return fiber.NewError(statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, wallet.ErrInvalidAddress),
		errors.Is(err, payroll.ErrInvalidSalary),
		errors.Is(err, ErrDisplayNameRequired):
		return http.StatusBadRequest
	case errors.Is(err, wallet.ErrProviderMissing),
		errors.Is(err, wallet.ErrUserRejected),
		errors.Is(err, wallet.ErrBadSignature),
		errors.Is(err, session.ErrChallengeNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyRegistered),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrEmailTaken),
		errors.Is(err, ErrRecordExists):
		return http.StatusConflict
	case errors.Is(err, contentstore.ErrInvalidReference):
		return http.StatusUnprocessableEntity
	case errors.Is(err, contentstore.ErrUpload),
		errors.Is(err, contentstore.ErrFetch),
		errors.Is(err, registry.ErrCallFailed),
		errors.Is(err, payload.ErrMalformed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
