package workflow

import (
	"context"

	"github.com/chainpayroll/payroll/internal/registry"
	"github.com/chainpayroll/payroll/internal/wallet"
)

// EmployeeProfile returns the employee's record and payload.
func (s *Service) EmployeeProfile(ctx context.Context, addr wallet.Address) (Profile, error) {
	return s.profileOf(ctx, addr, registry.RoleEmployee)
}

// AdminProfile returns the admin's record and payload.
func (s *Service) AdminProfile(ctx context.Context, addr wallet.Address) (Profile, error) {
	return s.profileOf(ctx, addr, registry.RoleAdmin)
}

func (s *Service) PendingEmployees(ctx context.Context) ([]Profile, error) {
	return s.listProfiles(ctx, registry.RoleEmployee, s.registry.PendingEmployees)
}

func (s *Service) ApprovedEmployees(ctx context.Context) ([]Profile, error) {
	return s.listProfiles(ctx, registry.RoleEmployee, s.registry.ApprovedEmployees)
}

func (s *Service) PendingAdmins(ctx context.Context) ([]Profile, error) {
	return s.listProfiles(ctx, registry.RoleAdmin, s.registry.PendingAdmins)
}

func (s *Service) ApprovedAdmins(ctx context.Context) ([]Profile, error) {
	return s.listProfiles(ctx, registry.RoleAdmin, s.registry.ApprovedAdmins)
}

func (s *Service) profileOf(ctx context.Context, addr wallet.Address, role registry.Role) (Profile, error) {
	rec, err := s.record(ctx, addr, role)
	if err != nil {
		return Profile{}, err
	}
	if rec.Status == registry.StatusUnregistered {
		return Profile{}, ErrNotFound
	}
	return s.profile(ctx, rec), nil
}

func (s *Service) listProfiles(ctx context.Context, role registry.Role, list func(context.Context) ([]wallet.Address, error)) ([]Profile, error) {
	addrs, err := list(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Profile, 0, len(addrs))
	for _, addr := range addrs {
		rec, err := s.record(ctx, addr, role)
		if err != nil {
			out = append(out, Profile{Address: addr, Role: role, Error: err.Error()})
			continue
		}
		out = append(out, s.profile(ctx, rec))
	}
	return out, nil
}

// profile never fails; a payload that cannot be read is reported in Error.
func (s *Service) profile(ctx context.Context, rec registry.Record) Profile {
	p := Profile{
		Address:     rec.Address,
		Role:        rec.Role,
		Status:      rec.Status,
		ContentHash: rec.ContentHash,
	}
	doc, err := s.fetchDocument(ctx, rec.Address, rec.Role, rec.ContentHash)
	if err != nil {
		p.Error = err.Error()
		return p
	}
	p.Document = &doc
	return p
}
