// Package registry talks to the on-chain payroll registry: registration
// records, their status and the content hash that points at the payload.
package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainpayroll/payroll/internal/wallet"
)

// ErrCallFailed wraps every failed registry call, reverts included.
var ErrCallFailed = errors.New("registry call failed")

// Role distinguishes the three kinds of participant.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
	RoleOwner    Role = "owner"
)

// ParseRole accepts the wire form of a role.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleEmployee, RoleAdmin, RoleOwner:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Status is the lifecycle state of a registration record. The numeric values
// match the contract's enum.
type Status uint8

const (
	StatusUnregistered Status = iota
	StatusPending
	StatusApproved
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusApproved:
		return "approved"
	case StatusRejected:
		return "rejected"
	default:
		return "unregistered"
	}
}

// MarshalText renders the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Record is the registry's view of one participant in one role.
type Record struct {
	Address     wallet.Address
	Role        Role
	ContentHash string
	Status      Status
}

// PayrollRecord links a payslip payload to the employee it was issued for.
type PayrollRecord struct {
	ID          uint64
	Employee    wallet.Address
	ContentHash string
}

// Registry is the contract surface used by the workflow. Mutating calls are
// sent from the given account and return once the transaction is included.
type Registry interface {
	RegisterEmployee(ctx context.Context, from wallet.Address, contentHash string) error
	RegisterAdmin(ctx context.Context, from wallet.Address, contentHash string) error
	ApproveEmployee(ctx context.Context, from, employee wallet.Address, contentHash string) error
	RejectEmployee(ctx context.Context, from, employee wallet.Address) error
	ApproveAdmin(ctx context.Context, from, admin wallet.Address) error
	RejectAdmin(ctx context.Context, from, admin wallet.Address) error
	AddPayrollRecord(ctx context.Context, from wallet.Address, record PayrollRecord) error

	PendingEmployees(ctx context.Context) ([]wallet.Address, error)
	ApprovedEmployees(ctx context.Context) ([]wallet.Address, error)
	PendingAdmins(ctx context.Context) ([]wallet.Address, error)
	ApprovedAdmins(ctx context.Context) ([]wallet.Address, error)

	Employee(ctx context.Context, addr wallet.Address) (Record, error)
	Admin(ctx context.Context, addr wallet.Address) (Record, error)
	IsOwner(ctx context.Context, addr wallet.Address) (bool, error)
	// PayrollRecord returns the record stored under id. Unknown ids come
	// back with an empty ContentHash.
	PayrollRecord(ctx context.Context, id uint64) (PayrollRecord, error)
}

func callError(method string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrCallFailed, method, err)
}
