package registry

import (
	"context"
	"errors"
	"sync"

	"github.com/chainpayroll/payroll/internal/wallet"
)

var (
	errNotOwner          = errors.New("caller is not the owner")
	errNotApprover       = errors.New("caller is neither owner nor approved admin")
	errAlreadyRegistered = errors.New("already registered")
	errNotPending        = errors.New("record is not pending")
	errNotApprovable     = errors.New("record is not pending or approved")
	errEmptyHash         = errors.New("content hash is empty")
	errRecordID          = errors.New("payroll record id must be positive")
	errRecordExists      = errors.New("payroll record already exists")
	errNotApproved       = errors.New("employee is not approved")
)

// MemoryRegistry mirrors the contract rules in process. It backs development
// mode and tests.
type MemoryRegistry struct {
	mu        sync.RWMutex
	owner     wallet.Address
	employees map[wallet.Address]Record
	admins    map[wallet.Address]Record
	payrolls  map[uint64]PayrollRecord
	order     []wallet.Address
	adminSeq  []wallet.Address
}

// NewMemoryRegistry creates a registry owned by owner.
func NewMemoryRegistry(owner wallet.Address) *MemoryRegistry {
	return &MemoryRegistry{
		owner:     owner,
		employees: make(map[wallet.Address]Record),
		admins:    make(map[wallet.Address]Record),
		payrolls:  make(map[uint64]PayrollRecord),
	}
}

func (r *MemoryRegistry) RegisterEmployee(_ context.Context, from wallet.Address, contentHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if contentHash == "" {
		return callError("registerEmployee", errEmptyHash)
	}
	if rec, ok := r.employees[from]; ok && rec.Status != StatusUnregistered {
		return callError("registerEmployee", errAlreadyRegistered)
	}
	r.employees[from] = Record{Address: from, Role: RoleEmployee, ContentHash: contentHash, Status: StatusPending}
	r.order = append(r.order, from)
	return nil
}

func (r *MemoryRegistry) RegisterAdmin(_ context.Context, from wallet.Address, contentHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if contentHash == "" {
		return callError("registerAdmin", errEmptyHash)
	}
	if rec, ok := r.admins[from]; ok && rec.Status != StatusUnregistered {
		return callError("registerAdmin", errAlreadyRegistered)
	}
	r.admins[from] = Record{Address: from, Role: RoleAdmin, ContentHash: contentHash, Status: StatusPending}
	r.adminSeq = append(r.adminSeq, from)
	return nil
}

func (r *MemoryRegistry) ApproveEmployee(_ context.Context, from, employee wallet.Address, contentHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.canApproveLocked(from) {
		return callError("approveEmployee", errNotApprover)
	}
	if contentHash == "" {
		return callError("approveEmployee", errEmptyHash)
	}
	rec := r.employees[employee]
	if rec.Status != StatusPending && rec.Status != StatusApproved {
		return callError("approveEmployee", errNotApprovable)
	}
	rec.Status = StatusApproved
	rec.ContentHash = contentHash
	r.employees[employee] = rec
	return nil
}

func (r *MemoryRegistry) RejectEmployee(_ context.Context, from, employee wallet.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.canApproveLocked(from) {
		return callError("rejectEmployee", errNotApprover)
	}
	rec := r.employees[employee]
	if rec.Status != StatusPending {
		return callError("rejectEmployee", errNotPending)
	}
	rec.Status = StatusRejected
	r.employees[employee] = rec
	return nil
}

func (r *MemoryRegistry) ApproveAdmin(_ context.Context, from, admin wallet.Address) error {
	return r.decideAdmin("approveAdmin", from, admin, StatusApproved)
}

func (r *MemoryRegistry) RejectAdmin(_ context.Context, from, admin wallet.Address) error {
	return r.decideAdmin("rejectAdmin", from, admin, StatusRejected)
}

func (r *MemoryRegistry) decideAdmin(method string, from, admin wallet.Address, to Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !from.Equal(r.owner) {
		return callError(method, errNotOwner)
	}
	rec := r.admins[admin]
	if rec.Status != StatusPending {
		return callError(method, errNotPending)
	}
	rec.Status = to
	r.admins[admin] = rec
	return nil
}

func (r *MemoryRegistry) AddPayrollRecord(_ context.Context, from wallet.Address, record PayrollRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case !r.canApproveLocked(from):
		return callError("addPayrollRecord", errNotApprover)
	case record.ID == 0:
		return callError("addPayrollRecord", errRecordID)
	case record.ContentHash == "":
		return callError("addPayrollRecord", errEmptyHash)
	case r.employees[record.Employee].Status != StatusApproved:
		return callError("addPayrollRecord", errNotApproved)
	}
	if _, ok := r.payrolls[record.ID]; ok {
		return callError("addPayrollRecord", errRecordExists)
	}
	r.payrolls[record.ID] = record
	return nil
}

func (r *MemoryRegistry) PayrollRecord(_ context.Context, id uint64) (PayrollRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rec, ok := r.payrolls[id]; ok {
		return rec, nil
	}
	return PayrollRecord{ID: id}, nil
}

func (r *MemoryRegistry) PendingEmployees(context.Context) ([]wallet.Address, error) {
	return r.list(RoleEmployee, StatusPending), nil
}

func (r *MemoryRegistry) ApprovedEmployees(context.Context) ([]wallet.Address, error) {
	return r.list(RoleEmployee, StatusApproved), nil
}

func (r *MemoryRegistry) PendingAdmins(context.Context) ([]wallet.Address, error) {
	return r.list(RoleAdmin, StatusPending), nil
}

func (r *MemoryRegistry) ApprovedAdmins(context.Context) ([]wallet.Address, error) {
	return r.list(RoleAdmin, StatusApproved), nil
}

func (r *MemoryRegistry) Employee(_ context.Context, addr wallet.Address) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rec, ok := r.employees[addr]; ok {
		return rec, nil
	}
	return Record{Address: addr, Role: RoleEmployee, Status: StatusUnregistered}, nil
}

func (r *MemoryRegistry) Admin(_ context.Context, addr wallet.Address) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rec, ok := r.admins[addr]; ok {
		return rec, nil
	}
	return Record{Address: addr, Role: RoleAdmin, Status: StatusUnregistered}, nil
}

func (r *MemoryRegistry) IsOwner(_ context.Context, addr wallet.Address) (bool, error) {
	return addr.Equal(r.owner), nil
}

func (r *MemoryRegistry) canApproveLocked(from wallet.Address) bool {
	if from.Equal(r.owner) {
		return true
	}
	return r.admins[from].Status == StatusApproved
}

func (r *MemoryRegistry) list(role Role, status Status) []wallet.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, records := r.order, r.employees
	if role == RoleAdmin {
		order, records = r.adminSeq, r.admins
	}
	out := make([]wallet.Address, 0, len(order))
	for _, addr := range order {
		if records[addr].Status == status {
			out = append(out, addr)
		}
	}
	return out
}
