package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainpayroll/payroll/internal/directory"
	"github.com/chainpayroll/payroll/internal/journal"
	"github.com/chainpayroll/payroll/internal/notification"
	"github.com/chainpayroll/payroll/internal/payload"
	"github.com/chainpayroll/payroll/internal/registry"
	"github.com/chainpayroll/payroll/internal/wallet"
)

// RegisterEmployee uploads the employee's details and records them as pending.
func (s *Service) RegisterEmployee(ctx context.Context, caller wallet.Identity, in EmployeeRegistration) (Registration, error) {
	if err := payload.Validate(in); err != nil {
		return Registration{}, err
	}
	return s.register(ctx, caller.Address, registry.RoleEmployee, in.metaData())
}

// RegisterAdmin uploads the admin request and records it as pending.
func (s *Service) RegisterAdmin(ctx context.Context, caller wallet.Identity, in AdminRegistration) (Registration, error) {
	if err := payload.Validate(in); err != nil {
		return Registration{}, err
	}
	return s.register(ctx, caller.Address, registry.RoleAdmin, in.metaData())
}

func (s *Service) register(ctx context.Context, addr wallet.Address, role registry.Role, meta payload.MetaData) (Registration, error) {
	rec, err := s.record(ctx, addr, role)
	if err != nil {
		return Registration{}, err
	}
	if rec.Status != registry.StatusUnregistered {
		return Registration{}, ErrAlreadyRegistered
	}
	if err := s.checkEmail(ctx, addr, meta.Email); err != nil {
		return Registration{}, err
	}

	obj, err := s.upload(ctx, payload.New(role, addr, meta, s.now()))
	if err != nil {
		return Registration{}, err
	}

	if role == registry.RoleAdmin {
		err = s.registry.RegisterAdmin(ctx, addr, obj.CID)
	} else {
		err = s.registry.RegisterEmployee(ctx, addr, obj.CID)
	}
	if err != nil && !s.settle(ctx, journal.Rotation{Address: addr, Role: role, CurrentCID: obj.CID}, err) {
		return Registration{}, err
	}

	s.index(ctx, addr, role, obj.CID, meta)
	s.notify(ctx, notification.KindRegistrationSubmitted, addr, meta.Name+" requested the "+string(role)+" role",
		map[string]string{"role": string(role), "cid": obj.CID})

	return Registration{
		Address:     addr,
		Role:        role,
		Status:      registry.StatusPending,
		ContentHash: obj.CID,
		ContentURL:  obj.URL,
	}, nil
}

// checkEmail refuses an email another wallet registered with. The same
// wallet may reuse its email across roles.
func (s *Service) checkEmail(ctx context.Context, addr wallet.Address, email string) error {
	if email == "" {
		return nil
	}
	entries, err := s.directory.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, directory.ErrNotFound) {
		return fmt.Errorf("check email: %w", err)
	}
	for _, e := range entries {
		if !e.Address.Equal(addr) {
			return ErrEmailTaken
		}
	}
	return nil
}
