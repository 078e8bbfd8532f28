package workflow

import (
	"context"
	"log/slog"

	"github.com/chainpayroll/payroll/internal/journal"
	"github.com/chainpayroll/payroll/internal/notification"
	"github.com/chainpayroll/payroll/internal/wallet"
)

const releaseBatch = 100

// ReleaseStale retries unpinning every payload left behind by earlier
// rotations and returns how many were released. A leftover that the
// registry references again is resolved without unpinning. Rotations that
// fail again stay in the journal and the scan pages past them, so one
// stubborn batch does not hide newer leftovers.
func (s *Service) ReleaseStale(ctx context.Context, caller wallet.Identity) (int, error) {
	if err := s.authorizeOwner(ctx, caller.Address); err != nil {
		return 0, err
	}

	released := 0
	var cursor journal.Cursor
	for {
		pending, err := s.journal.Pending(ctx, cursor, releaseBatch)
		if err != nil {
			return released, err
		}
		for _, r := range pending {
			ok, err := s.releaseRotation(ctx, r)
			if err != nil {
				return released, err
			}
			if ok {
				released++
			}
		}
		if len(pending) < releaseBatch {
			return released, nil
		}
		cursor = pending[len(pending)-1].Cursor()
	}
}

// releaseRotation settles one journaled leftover. It reports whether a
// payload was unpinned; only journal failures are returned as errors.
func (s *Service) releaseRotation(ctx context.Context, r journal.Rotation) (bool, error) {
	cid := r.Leftover()
	if cid == "" {
		return false, nil
	}
	referenced, err := s.references(ctx, r, cid)
	if err != nil {
		s.logger.Warn("skip rotation", slog.String("rotation", r.ID), slog.Any("error", err))
		return false, nil
	}
	if referenced {
		return false, s.journal.Resolve(ctx, r.ID)
	}
	if !s.store.Unpin(ctx, cid) {
		s.logger.Warn("payload still pinned", slog.String("rotation", r.ID), slog.String("cid", cid))
		return false, nil
	}
	if err := s.journal.Resolve(ctx, r.ID); err != nil {
		return false, err
	}
	s.notify(ctx, notification.KindContentReleased, r.Address, "released "+cid,
		map[string]string{"cid": cid, "state": string(r.State)})
	return true, nil
}
