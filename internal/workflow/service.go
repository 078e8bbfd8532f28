// Package workflow implements registration, approval and login on top of the
// registry, the content store and the identity directory.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chainpayroll/payroll/internal/contentstore"
	"github.com/chainpayroll/payroll/internal/directory"
	"github.com/chainpayroll/payroll/internal/journal"
	"github.com/chainpayroll/payroll/internal/logging"
	"github.com/chainpayroll/payroll/internal/notification"
	"github.com/chainpayroll/payroll/internal/payload"
	"github.com/chainpayroll/payroll/internal/registry"
	"github.com/chainpayroll/payroll/internal/wallet"
)

var (
	// ErrNotAuthorized means the caller's role does not permit the action.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrAlreadyRegistered means a record already exists for the caller in that role.
	ErrAlreadyRegistered = errors.New("already registered")
	// ErrInvalidTransition means the record's status does not allow the action.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotFound means no record exists for the identity.
	ErrNotFound = errors.New("no record found, please register first")
	// ErrDisplayNameRequired is returned on first owner login without a name.
	ErrDisplayNameRequired = errors.New("display name required")
	// ErrEmailTaken means another wallet already registered with the email.
	ErrEmailTaken = errors.New("email already registered to another wallet")
	// ErrRecordExists means the payroll record id is already in use.
	ErrRecordExists = errors.New("payroll record already exists")
	// ErrRecordNotFound means no payroll record exists under the id.
	ErrRecordNotFound = errors.New("payroll record not found")
)

// compensationTimeout bounds the clean-up that follows a failed registry
// write. It runs detached from the request, whose context may be done.
const compensationTimeout = 15 * time.Second

// Deps groups the collaborators of the workflow service.
type Deps struct {
	Store     contentstore.Store
	Registry  registry.Registry
	Directory directory.Repository
	Journal   journal.Journal
	Notifier  notification.Notifier
	Logger    *slog.Logger
	Clock     func() time.Time
}

// Service coordinates the registration lifecycle. It holds no per-identity
// locks: concurrent approvals of one record race and the last registry write wins.
type Service struct {
	store     contentstore.Store
	registry  registry.Registry
	directory directory.Repository
	journal   journal.Journal
	notifier  notification.Notifier
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs a workflow service.
func NewService(d Deps) *Service {
	s := &Service{
		store:     d.Store,
		registry:  d.Registry,
		directory: d.Directory,
		journal:   d.Journal,
		notifier:  d.Notifier,
		logger:    d.Logger,
		now:       d.Clock,
	}
	if s.directory == nil {
		s.directory = directory.NewMemoryRepository()
	}
	if s.journal == nil {
		s.journal = journal.NewInMemory()
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) record(ctx context.Context, addr wallet.Address, role registry.Role) (registry.Record, error) {
	switch role {
	case registry.RoleEmployee:
		return s.registry.Employee(ctx, addr)
	case registry.RoleAdmin:
		return s.registry.Admin(ctx, addr)
	default:
		return registry.Record{}, fmt.Errorf("no registry record for role %s", role)
	}
}

func (s *Service) fetchDocument(ctx context.Context, addr wallet.Address, role registry.Role, cid string) (payload.Document, error) {
	if !contentstore.IsCID(cid) {
		return payload.Document{}, fmt.Errorf("%w: %q", contentstore.ErrInvalidReference, cid)
	}
	var raw json.RawMessage
	if err := s.store.Get(ctx, cid, &raw); err != nil {
		return payload.Document{}, err
	}
	return payload.Decode(raw, role, addr)
}

func (s *Service) upload(ctx context.Context, doc payload.Document) (contentstore.Object, error) {
	obj, err := s.store.Put(ctx, doc, contentstore.PutOptions{Keyvalues: map[string]string{
		contentstore.KeyWalletAddress: doc.WalletAddress.String(),
		contentstore.KeyRole:          string(doc.Role),
	}})
	if err != nil {
		return contentstore.Object{}, fmt.Errorf("upload payload: %w", err)
	}
	return obj, nil
}

func (s *Service) authorizeApprover(ctx context.Context, caller wallet.Address) error {
	owner, err := s.registry.IsOwner(ctx, caller)
	if err != nil {
		return err
	}
	if owner {
		return nil
	}
	rec, err := s.registry.Admin(ctx, caller)
	if err != nil {
		return err
	}
	if rec.Status != registry.StatusApproved {
		return ErrNotAuthorized
	}
	return nil
}

func (s *Service) authorizeOwner(ctx context.Context, caller wallet.Address) error {
	owner, err := s.registry.IsOwner(ctx, caller)
	if err != nil {
		return err
	}
	if !owner {
		return ErrNotAuthorized
	}
	return nil
}

// settle decides what happens to an upload after the registry write that
// should have referenced it failed. A failed write may still have been
// mined, so the registry is read again first: when it references the upload
// the write counts as committed and settle reports true. When the registry
// cannot be read the upload stays pinned and is journaled as orphaned for
// ReleaseStale. Otherwise the upload is unpinned.
func (s *Service) settle(ctx context.Context, rot journal.Rotation, writeErr error) bool {
	if rot.CurrentCID == "" || rot.CurrentCID == rot.PreviousCID {
		return false
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	log := s.logger.With(slog.String("cid", rot.CurrentCID), slog.String("address", rot.Address.String()))
	referenced, err := s.references(ctx, rot, rot.CurrentCID)
	switch {
	case err != nil:
		log.Warn("registry unreadable after failed write, keeping upload", slog.Any("write_error", writeErr), slog.Any("error", err))
		rot.State = journal.StateOrphaned
		s.journalRotation(ctx, rot)
		return false
	case referenced:
		log.Warn("registry write reported failure but was committed", slog.Any("write_error", writeErr))
		return true
	}

	rot.State = journal.StateReleased
	if !s.store.Unpin(ctx, rot.CurrentCID) {
		rot.State = journal.StateOrphaned
		log.Warn("uncommitted payload left pinned")
	}
	s.journalRotation(ctx, rot)
	return false
}

// references reports whether the registry entry a rotation belongs to
// currently points at cid.
func (s *Service) references(ctx context.Context, rot journal.Rotation, cid string) (bool, error) {
	if rot.PayrollRecordID != 0 {
		rec, err := s.registry.PayrollRecord(ctx, rot.PayrollRecordID)
		if err != nil {
			return false, err
		}
		return rec.ContentHash == cid, nil
	}
	rec, err := s.record(ctx, rot.Address, rot.Role)
	if err != nil {
		return false, err
	}
	return rec.ContentHash == cid, nil
}

// release unpins the payload a committed rotation replaced. It reports
// whether nothing is left pinned.
func (s *Service) release(ctx context.Context, addr wallet.Address, role registry.Role, previous, current string) bool {
	if previous == "" || previous == current {
		return true
	}
	released := s.store.Unpin(ctx, previous)
	state := journal.StateReleased
	if !released {
		state = journal.StateStale
		s.logger.Warn("replaced payload left pinned", slog.String("cid", previous), slog.String("address", addr.String()))
	}
	s.journalRotation(ctx, journal.Rotation{Address: addr, Role: role, PreviousCID: previous, CurrentCID: current, State: state})
	return released
}

func (s *Service) journalRotation(ctx context.Context, r journal.Rotation) {
	r.CreatedAt = s.now().UTC()
	if _, err := s.journal.Record(ctx, r); err != nil {
		s.logger.Error("journal rotation", slog.String("address", r.Address.String()), slog.Any("error", err))
	}
}

func (s *Service) index(ctx context.Context, addr wallet.Address, role registry.Role, cid string, meta payload.MetaData) {
	err := s.directory.Upsert(ctx, directory.Entry{
		Address:     addr,
		Role:        role,
		ContentHash: cid,
		DisplayName: meta.Name,
		Email:       meta.Email,
		UpdatedAt:   s.now().UTC(),
	})
	if err != nil {
		s.logger.Error("index identity", slog.String("address", addr.String()), slog.Any("error", err))
	}
}

func (s *Service) notify(ctx context.Context, kind string, addr wallet.Address, body string, attrs map[string]string) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Send(ctx, notification.Message{
		Kind:        kind,
		Destination: addr.String(),
		Body:        body,
		Attributes:  attrs,
		OccurredAt:  s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn("notification failed", slog.String("kind", kind), slog.Any("error", err))
	}
}
