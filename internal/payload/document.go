// Package payload defines the JSON document kept on the content store for
// every registration.
package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chainpayroll/payroll/internal/payroll"
	"github.com/chainpayroll/payroll/internal/registry"
	"github.com/chainpayroll/payroll/internal/wallet"
)

// SchemaVersion is written into every new document. Documents without a
// version predate the schema and are upgraded on read.
const SchemaVersion = 1

// ErrMalformed is returned for documents that are not JSON objects or lack
// the metaData section.
var ErrMalformed = errors.New("malformed payload")

// MetaData holds the personal details captured at registration.
type MetaData struct {
	Name          string `json:"name"`
	Email         string `json:"email,omitempty"`
	PhoneNumber   string `json:"phoneNumber,omitempty"`
	Address       string `json:"address,omitempty"`
	BankName      string `json:"bankName,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
	SortCode      string `json:"sortCode,omitempty"`
	EmployeeID    string `json:"employeeId,omitempty"`
}

// SalaryDetails is the stored form of a payroll.Breakdown.
type SalaryDetails struct {
	AnnualSalary      string    `json:"annualSalary"`
	MonthlySalary     string    `json:"monthlySalary"`
	Tax               string    `json:"tax"`
	NationalInsurance string    `json:"nationalInsurance"`
	NetSalary         string    `json:"netSalary"`
	ApprovedAt        time.Time `json:"approvedAt"`
}

// Document is the versioned content payload.
type Document struct {
	Version       int            `json:"version"`
	Role          registry.Role  `json:"role"`
	WalletAddress wallet.Address `json:"walletAddress"`
	Status        string         `json:"status"`
	MetaData      MetaData       `json:"metaData"`
	SalaryDetails *SalaryDetails `json:"salaryDetails,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// New builds a version 1 document in pending state.
func New(role registry.Role, addr wallet.Address, meta MetaData, at time.Time) Document {
	return Document{
		Version:       SchemaVersion,
		Role:          role,
		WalletAddress: addr,
		Status:        registry.StatusPending.String(),
		MetaData:      meta,
		CreatedAt:     at.UTC(),
	}
}

// ContentLabel names the stored object after the registrant's email.
func (d Document) ContentLabel() string {
	if d.MetaData.Email == "" {
		return ""
	}
	return d.MetaData.Email + ".json"
}

// WithSalary returns a copy carrying the breakdown and approved status.
func (d Document) WithSalary(b payroll.Breakdown) Document {
	d.Version = SchemaVersion
	d.Status = registry.StatusApproved.String()
	d.SalaryDetails = &SalaryDetails{
		AnnualSalary:      payroll.Fixed(b.AnnualSalary),
		MonthlySalary:     payroll.Fixed(b.MonthlySalary),
		Tax:               payroll.Fixed(b.Tax),
		NationalInsurance: payroll.Fixed(b.NationalInsurance),
		NetSalary:         payroll.Fixed(b.NetSalary),
		ApprovedAt:        b.ApprovedAt,
	}
	return d
}

// Raw is what the content store hands back before validation.
type Raw = json.RawMessage

// Decode validates raw and fills fallbacks for legacy documents: a missing
// role or wallet address comes from the registry record, a missing status
// reads as pending.
func Decode(raw Raw, role registry.Role, addr wallet.Address) (Document, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	meta, ok := probe["metaData"]
	if !ok || string(meta) == "null" {
		return Document{}, fmt.Errorf("%w: missing metaData", ErrMalformed)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc.Role == "" {
		doc.Role = role
	}
	if doc.WalletAddress.IsZero() {
		doc.WalletAddress = addr
	}
	if doc.Status == "" {
		doc.Status = registry.StatusPending.String()
	}
	return doc, nil
}
