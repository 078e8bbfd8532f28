package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chainpayroll/payroll/internal/directory"
	"github.com/chainpayroll/payroll/internal/payload"
	"github.com/chainpayroll/payroll/internal/registry"
	"github.com/chainpayroll/payroll/internal/session"
	"github.com/chainpayroll/payroll/internal/wallet"
)

// Login checks that caller may act in role and returns the unsaved session
// describing it. displayName is only used on the owner's first login.
func (s *Service) Login(ctx context.Context, caller wallet.Identity, role registry.Role, displayName string) (session.Session, error) {
	addr := caller.Address
	var fallback string

	switch role {
	case registry.RoleOwner:
		if err := s.authorizeOwner(ctx, addr); err != nil {
			return session.Session{}, err
		}
	case registry.RoleAdmin:
		rec, err := s.registry.Admin(ctx, addr)
		if err != nil {
			return session.Session{}, err
		}
		switch rec.Status {
		case registry.StatusUnregistered:
			return session.Session{}, ErrNotFound
		case registry.StatusApproved:
		default:
			return session.Session{}, fmt.Errorf("%w: admin request is %s", ErrNotAuthorized, rec.Status)
		}
		fallback = rec.ContentHash
	case registry.RoleEmployee:
		rec, err := s.registry.Employee(ctx, addr)
		if err != nil {
			return session.Session{}, err
		}
		if rec.Status == registry.StatusUnregistered {
			return session.Session{}, ErrNotFound
		}
		fallback = rec.ContentHash
	default:
		return session.Session{}, fmt.Errorf("%w: cannot log in as %q", ErrNotAuthorized, role)
	}

	cid, err := s.lookupContent(ctx, addr, role, fallback)
	if err != nil {
		return session.Session{}, err
	}

	if cid == "" {
		if role != registry.RoleOwner {
			return session.Session{}, ErrNotFound
		}
		return s.bootstrapOwner(ctx, addr, displayName)
	}

	doc, err := s.fetchDocument(ctx, addr, role, cid)
	if err != nil {
		return session.Session{}, err
	}
	return session.Session{
		DisplayName:   doc.MetaData.Name,
		ContentHash:   cid,
		WalletAddress: addr,
		Role:          role,
	}, nil
}

// lookupContent resolves the current payload of addr in role: the directory
// first, then the content store's metadata index, then the registry hash.
func (s *Service) lookupContent(ctx context.Context, addr wallet.Address, role registry.Role, fallback string) (string, error) {
	entry, err := s.directory.Find(ctx, addr, role)
	switch {
	case err == nil && entry.ContentHash != "":
		if fallback == "" || entry.ContentHash == fallback {
			return entry.ContentHash, nil
		}
		// The registry moved on without the index; trust the registry.
		return fallback, nil
	case err != nil && !errors.Is(err, directory.ErrNotFound):
		s.logger.Warn("directory lookup failed", slog.String("address", addr.String()), slog.Any("error", err))
	}

	obj, ok, err := s.store.FindByIdentity(ctx, addr.String(), string(role))
	if err != nil {
		s.logger.Warn("content lookup failed", slog.String("address", addr.String()), slog.Any("error", err))
	}
	if ok && (fallback == "" || obj.CID == fallback) {
		s.backfill(ctx, addr, role, obj.CID)
		return obj.CID, nil
	}
	return fallback, nil
}

func (s *Service) backfill(ctx context.Context, addr wallet.Address, role registry.Role, cid string) {
	doc, err := s.fetchDocument(ctx, addr, role, cid)
	if err != nil {
		return
	}
	s.index(ctx, addr, role, cid, doc.MetaData)
}

func (s *Service) bootstrapOwner(ctx context.Context, addr wallet.Address, displayName string) (session.Session, error) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return session.Session{}, ErrDisplayNameRequired
	}
	doc := payload.New(registry.RoleOwner, addr, payload.MetaData{Name: name}, s.now())
	doc.Status = registry.StatusApproved.String()

	obj, err := s.upload(ctx, doc)
	if err != nil {
		return session.Session{}, err
	}
	s.index(ctx, addr, registry.RoleOwner, obj.CID, doc.MetaData)
	s.logger.Info("owner profile created", slog.String("address", addr.String()), slog.String("cid", obj.CID))

	return session.Session{
		DisplayName:   name,
		ContentHash:   obj.CID,
		WalletAddress: addr,
		Role:          registry.RoleOwner,
	}, nil
}
