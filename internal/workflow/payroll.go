package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/chainpayroll/payroll/internal/contentstore"
	"github.com/chainpayroll/payroll/internal/journal"
	"github.com/chainpayroll/payroll/internal/notification"
	"github.com/chainpayroll/payroll/internal/payload"
	"github.com/chainpayroll/payroll/internal/registry"
	"github.com/chainpayroll/payroll/internal/wallet"
)

// RecordPayroll issues a payslip for an approved employee and stores its
// hash on-chain under run.RecordID. The payslip carries the salary from the
// employee's current payload.
func (s *Service) RecordPayroll(ctx context.Context, caller wallet.Identity, employee wallet.Address, run PayrollRun) (PayrollEntry, error) {
	if err := payload.Validate(run); err != nil {
		return PayrollEntry{}, err
	}
	if err := s.authorizeApprover(ctx, caller.Address); err != nil {
		return PayrollEntry{}, err
	}

	rec, err := s.registry.Employee(ctx, employee)
	if err != nil {
		return PayrollEntry{}, err
	}
	if rec.Status != registry.StatusApproved {
		return PayrollEntry{}, fmt.Errorf("%w: employee is %s", ErrInvalidTransition, rec.Status)
	}
	existing, err := s.registry.PayrollRecord(ctx, run.RecordID)
	if err != nil {
		return PayrollEntry{}, err
	}
	if existing.ContentHash != "" {
		return PayrollEntry{}, fmt.Errorf("%w: %d", ErrRecordExists, run.RecordID)
	}

	doc, err := s.fetchDocument(ctx, employee, registry.RoleEmployee, rec.ContentHash)
	if err != nil {
		return PayrollEntry{}, err
	}
	slip, err := payload.NewPayslip(run.RecordID, run.Period, doc, caller.Address, run.Notes, s.now())
	if err != nil {
		return PayrollEntry{}, err
	}
	obj, err := s.store.Put(ctx, slip, contentstore.PutOptions{Keyvalues: map[string]string{
		contentstore.KeyWalletAddress: employee.String(),
		contentstore.KeyRole:          payload.PayslipKind,
	}})
	if err != nil {
		return PayrollEntry{}, fmt.Errorf("upload payslip: %w", err)
	}

	err = s.registry.AddPayrollRecord(ctx, caller.Address, registry.PayrollRecord{
		ID:          run.RecordID,
		Employee:    employee,
		ContentHash: obj.CID,
	})
	if err != nil && !s.settle(ctx, journal.Rotation{
		Address:         employee,
		Role:            registry.RoleEmployee,
		PayrollRecordID: run.RecordID,
		CurrentCID:      obj.CID,
	}, err) {
		return PayrollEntry{}, err
	}

	s.notify(ctx, notification.KindPayrollRecorded, employee,
		fmt.Sprintf("payslip for %s issued", run.Period),
		map[string]string{"record_id": strconv.FormatUint(run.RecordID, 10), "cid": obj.CID, "approver": caller.Address.String()})

	return PayrollEntry{
		RecordID:    run.RecordID,
		Employee:    employee,
		ContentHash: obj.CID,
		ContentURL:  obj.URL,
		Payslip:     slip,
	}, nil
}

// PayrollRecord returns a payroll record and its payslip. The employee it
// was issued for, the owner and approved admins may read it.
func (s *Service) PayrollRecord(ctx context.Context, caller wallet.Identity, id uint64) (PayrollEntry, error) {
	rec, err := s.registry.PayrollRecord(ctx, id)
	if err != nil {
		return PayrollEntry{}, err
	}
	if rec.ContentHash == "" {
		return PayrollEntry{}, fmt.Errorf("%w: %d", ErrRecordNotFound, id)
	}
	if !rec.Employee.Equal(caller.Address) {
		if err := s.authorizeApprover(ctx, caller.Address); err != nil {
			return PayrollEntry{}, err
		}
	}

	if !contentstore.IsCID(rec.ContentHash) {
		return PayrollEntry{}, fmt.Errorf("%w: %q", contentstore.ErrInvalidReference, rec.ContentHash)
	}
	var raw json.RawMessage
	if err := s.store.Get(ctx, rec.ContentHash, &raw); err != nil {
		return PayrollEntry{}, err
	}
	slip, err := payload.DecodePayslip(raw)
	if err != nil {
		return PayrollEntry{}, err
	}
	return PayrollEntry{
		RecordID:    rec.ID,
		Employee:    rec.Employee,
		ContentHash: rec.ContentHash,
		Payslip:     slip,
	}, nil
}
