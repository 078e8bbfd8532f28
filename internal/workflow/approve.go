package workflow

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/chainpayroll/payroll/internal/journal"
	"github.com/chainpayroll/payroll/internal/notification"
	"github.com/chainpayroll/payroll/internal/payroll"
	"github.com/chainpayroll/payroll/internal/registry"
	"github.com/chainpayroll/payroll/internal/wallet"
)

// ApproveEmployee records the salary breakdown and marks the employee
// approved. The new payload is uploaded and committed to the registry before
// the previous one is unpinned, so a failure at any step leaves the registry
// pointing at a pinned payload. Approved records may be approved again to
// revise the salary.
func (s *Service) ApproveEmployee(ctx context.Context, caller wallet.Identity, employee wallet.Address, annualSalary decimal.Decimal) (Approval, error) {
	if err := s.authorizeApprover(ctx, caller.Address); err != nil {
		return Approval{}, err
	}

	rec, err := s.registry.Employee(ctx, employee)
	if err != nil {
		return Approval{}, err
	}
	if rec.Status != registry.StatusPending && rec.Status != registry.StatusApproved {
		return Approval{}, fmt.Errorf("%w: employee is %s", ErrInvalidTransition, rec.Status)
	}

	breakdown, err := payroll.Compute(annualSalary, s.now())
	if err != nil {
		return Approval{}, err
	}

	doc, err := s.fetchDocument(ctx, employee, registry.RoleEmployee, rec.ContentHash)
	if err != nil {
		return Approval{}, err
	}
	doc = doc.WithSalary(breakdown)

	obj, err := s.upload(ctx, doc)
	if err != nil {
		return Approval{}, err
	}

	err = s.registry.ApproveEmployee(ctx, caller.Address, employee, obj.CID)
	if err != nil && !s.settle(ctx, journal.Rotation{
		Address:     employee,
		Role:        registry.RoleEmployee,
		PreviousCID: rec.ContentHash,
		CurrentCID:  obj.CID,
	}, err) {
		return Approval{}, err
	}

	released := s.release(ctx, employee, registry.RoleEmployee, rec.ContentHash, obj.CID)
	s.index(ctx, employee, registry.RoleEmployee, obj.CID, doc.MetaData)
	s.notify(ctx, notification.KindRegistrationApproved, employee,
		fmt.Sprintf("approved with net monthly salary %s", payroll.Fixed(breakdown.NetSalary)),
		map[string]string{"role": string(registry.RoleEmployee), "cid": obj.CID, "approver": caller.Address.String()})

	return Approval{
		Address:     employee,
		PreviousCID: rec.ContentHash,
		CurrentCID:  obj.CID,
		Salary:      breakdown,
		Released:    released,
	}, nil
}

// RejectEmployee marks a pending employee rejected. The payload is left as is.
func (s *Service) RejectEmployee(ctx context.Context, caller wallet.Identity, employee wallet.Address) (Decision, error) {
	if err := s.authorizeApprover(ctx, caller.Address); err != nil {
		return Decision{}, err
	}
	rec, err := s.registry.Employee(ctx, employee)
	if err != nil {
		return Decision{}, err
	}
	if rec.Status != registry.StatusPending {
		return Decision{}, fmt.Errorf("%w: employee is %s", ErrInvalidTransition, rec.Status)
	}
	if err := s.registry.RejectEmployee(ctx, caller.Address, employee); err != nil {
		return Decision{}, err
	}

	s.notify(ctx, notification.KindRegistrationRejected, employee, "employee registration rejected",
		map[string]string{"role": string(registry.RoleEmployee), "approver": caller.Address.String()})
	return Decision{Address: employee, Role: registry.RoleEmployee, Status: registry.StatusRejected, At: s.now().UTC()}, nil
}

// ApproveAdmin grants the admin role. Only the owner may call it.
func (s *Service) ApproveAdmin(ctx context.Context, caller wallet.Identity, admin wallet.Address) (Decision, error) {
	return s.decideAdmin(ctx, caller, admin, registry.StatusApproved)
}

// RejectAdmin refuses an admin request. Only the owner may call it.
func (s *Service) RejectAdmin(ctx context.Context, caller wallet.Identity, admin wallet.Address) (Decision, error) {
	return s.decideAdmin(ctx, caller, admin, registry.StatusRejected)
}

func (s *Service) decideAdmin(ctx context.Context, caller wallet.Identity, admin wallet.Address, to registry.Status) (Decision, error) {
	if err := s.authorizeOwner(ctx, caller.Address); err != nil {
		return Decision{}, err
	}
	rec, err := s.registry.Admin(ctx, admin)
	if err != nil {
		return Decision{}, err
	}
	if rec.Status != registry.StatusPending {
		return Decision{}, fmt.Errorf("%w: admin is %s", ErrInvalidTransition, rec.Status)
	}

	kind := notification.KindRegistrationApproved
	if to == registry.StatusApproved {
		err = s.registry.ApproveAdmin(ctx, caller.Address, admin)
	} else {
		kind = notification.KindRegistrationRejected
		err = s.registry.RejectAdmin(ctx, caller.Address, admin)
	}
	if err != nil {
		return Decision{}, err
	}

	s.notify(ctx, kind, admin, "admin request "+to.String(), map[string]string{"role": string(registry.RoleAdmin)})
	return Decision{Address: admin, Role: registry.RoleAdmin, Status: to, At: s.now().UTC()}, nil
}
