package workflow

import (
	"time"

	"github.com/chainpayroll/payroll/internal/payload"
	"github.com/chainpayroll/payroll/internal/payroll"
	"github.com/chainpayroll/payroll/internal/registry"
	"github.com/chainpayroll/payroll/internal/wallet"
)

// EmployeeRegistration is the employee sign-up form.
type EmployeeRegistration struct {
	FullName      string `json:"full_name" validate:"required,max=120"`
	BankName      string `json:"bank_name" validate:"required,max=120"`
	AccountNumber string `json:"account_number" validate:"required,numeric,min=6,max=12"`
	SortCode      string `json:"sort_code" validate:"required,sortcode"`
	Email         string `json:"email" validate:"required,email"`
	PhoneNumber   string `json:"phone_number" validate:"omitempty,phone"`
	Address       string `json:"address" validate:"omitempty,max=256"`
	EmployeeID    string `json:"employee_id" validate:"required,max=64"`
}

func (r EmployeeRegistration) metaData() payload.MetaData {
	return payload.MetaData{
		Name:          r.FullName,
		Email:         r.Email,
		PhoneNumber:   r.PhoneNumber,
		Address:       r.Address,
		BankName:      r.BankName,
		AccountNumber: r.AccountNumber,
		SortCode:      r.SortCode,
		EmployeeID:    r.EmployeeID,
	}
}

// AdminRegistration is the admin role request form.
type AdminRegistration struct {
	Name       string `json:"name" validate:"required,max=120"`
	EmployeeID string `json:"employee_id" validate:"required,max=64"`
	Email      string `json:"email" validate:"required,email"`
}

func (r AdminRegistration) metaData() payload.MetaData {
	return payload.MetaData{Name: r.Name, Email: r.Email, EmployeeID: r.EmployeeID}
}

// Registration is the outcome of a successful registration.
type Registration struct {
	Address     wallet.Address  `json:"wallet_address"`
	Role        registry.Role   `json:"role"`
	Status      registry.Status `json:"status"`
	ContentHash string          `json:"cid"`
	ContentURL  string          `json:"url"`
}

// Approval is the outcome of an employee approval. Released is false when
// the previous payload could not be unpinned and was journaled as stale.
type Approval struct {
	Address     wallet.Address    `json:"wallet_address"`
	PreviousCID string            `json:"previous_cid"`
	CurrentCID  string            `json:"cid"`
	Salary      payroll.Breakdown `json:"-"`
	Released    bool              `json:"previous_released"`
}

// Decision is the outcome of a rejection or an admin approval.
type Decision struct {
	Address wallet.Address  `json:"wallet_address"`
	Role    registry.Role   `json:"role"`
	Status  registry.Status `json:"status"`
	At      time.Time       `json:"at"`
}

// Profile joins a registry record with its payload. Error is set instead of
// Document when the payload could not be fetched.
type Profile struct {
	Address     wallet.Address    `json:"wallet_address"`
	Role        registry.Role     `json:"role"`
	Status      registry.Status   `json:"status"`
	ContentHash string            `json:"cid"`
	Document    *payload.Document `json:"document,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// PayrollRun is the form an approver submits to issue one payslip.
type PayrollRun struct {
	RecordID uint64 `json:"record_id" validate:"required,gt=0"`
	Period   string `json:"period" validate:"required,period"`
	Notes    string `json:"notes" validate:"omitempty,max=500"`
}

// PayrollEntry is an on-chain payroll record with its payslip.
type PayrollEntry struct {
	RecordID    uint64          `json:"record_id"`
	Employee    wallet.Address  `json:"employee"`
	ContentHash string          `json:"cid"`
	ContentURL  string          `json:"url,omitempty"`
	Payslip     payload.Payslip `json:"payslip"`
}
