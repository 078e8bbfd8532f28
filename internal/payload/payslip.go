package payload

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/chainpayroll/payroll/internal/wallet"
)

// PayslipKind tags payslip objects on the content store so identity lookups
// never mistake them for registration payloads.
const PayslipKind = "payslip"

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// Payslip is the payload behind an on-chain payroll record.
type Payslip struct {
	Version       int            `json:"version"`
	RecordID      uint64         `json:"recordId"`
	Period        string         `json:"period"`
	WalletAddress wallet.Address `json:"walletAddress"`
	Name          string         `json:"name"`
	EmployeeID    string         `json:"employeeId,omitempty"`
	BankName      string         `json:"bankName,omitempty"`
	AccountNumber string         `json:"accountNumber,omitempty"`
	SortCode      string         `json:"sortCode,omitempty"`
	Salary        SalaryDetails  `json:"salary"`
	Notes         string         `json:"notes,omitempty"`
	IssuedBy      wallet.Address `json:"issuedBy"`
	IssuedAt      time.Time      `json:"issuedAt"`
}

// NewPayslip issues a payslip for period from an approved employee document.
// Period is YYYY-MM.
func NewPayslip(recordID uint64, period string, employee Document, issuer wallet.Address, notes string, at time.Time) (Payslip, error) {
	if !periodPattern.MatchString(period) {
		return Payslip{}, &ValidationError{Fields: map[string]string{"period": "must be YYYY-MM"}}
	}
	if employee.SalaryDetails == nil {
		return Payslip{}, fmt.Errorf("%w: employee document has no salary details", ErrMalformed)
	}
	return Payslip{
		Version:       SchemaVersion,
		RecordID:      recordID,
		Period:        period,
		WalletAddress: employee.WalletAddress,
		Name:          employee.MetaData.Name,
		EmployeeID:    employee.MetaData.EmployeeID,
		BankName:      employee.MetaData.BankName,
		AccountNumber: employee.MetaData.AccountNumber,
		SortCode:      employee.MetaData.SortCode,
		Salary:        *employee.SalaryDetails,
		Notes:         notes,
		IssuedBy:      issuer,
		IssuedAt:      at.UTC(),
	}, nil
}

// ContentLabel names the object after the record and period.
func (p Payslip) ContentLabel() string {
	return fmt.Sprintf("payslip-%d-%s.json", p.RecordID, p.Period)
}

// DecodePayslip validates a stored payslip.
func DecodePayslip(raw Raw) (Payslip, error) {
	var p Payslip
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payslip{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if p.RecordID == 0 || p.WalletAddress.IsZero() {
		return Payslip{}, fmt.Errorf("%w: payslip lacks record id or wallet", ErrMalformed)
	}
	return p, nil
}
