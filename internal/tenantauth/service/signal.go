package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/store"
	"github.com/aussiebroadwan/tenantauth/pkg/idx"
	"github.com/aussiebroadwan/tenantauth/pkg/slogx"
)

var signals = collection[domain.Signal]{
	label:  "Signal",
	of:     func(s store.Store) store.Collection[domain.Signal] { return s.Signals() },
	entity: func(s *domain.Signal) *domain.Entity { return &s.Entity },
}

// SignalService records which principal sits behind each live connection.
type SignalService struct {
	Store store.Store
}

// Connect records connectionID for the caller. Reconnecting with a known
// connection id replaces the previous record.
func (s *SignalService) Connect(ctx context.Context, connectionID string, caller *domain.Caller) (*domain.Signal, error) {
	connectionID = strings.TrimSpace(connectionID)
	if connectionID == "" {
		return nil, domain.ValidationError("Invalid connection_id")
	}
	if caller == nil || caller.Account == nil {
		return nil, domain.ValidationError("Invalid account")
	}

	now := time.Now()
	var sig *domain.Signal
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		existing, err := tx.Signals().GetByConnectionID(ctx, connectionID)
		switch {
		case err == nil:
			sig = existing
		case errors.Is(err, store.ErrNotFound):
			sig = &domain.Signal{Entity: domain.Entity{ID: idx.New().String(), Enabled: true}, ConnectionID: connectionID}
		default:
			return domain.PersistenceError(err, "load signal")
		}

		sig.Account = caller.Account.ID
		sig.Client, sig.User = "", ""
		if caller.Client != nil {
			sig.Client = caller.Client.ID
		}
		if caller.User != nil {
			sig.User = caller.User.ID
		}
		sig.ConnectedAt = now.UTC()
		sig.History.Stamp(caller, now)
		return signals.save(ctx, tx, sig)
	})
	if err != nil {
		return nil, err
	}

	slogx.FromContext(ctx).Info("signal connected",
		slog.String("connection_id", connectionID),
		slog.String("account_id", sig.Account),
	)
	return sig, nil
}

// Disconnect removes the record for connectionID.
func (s *SignalService) Disconnect(ctx context.Context, connectionID string) error {
	sig, err := s.FindByConnectionID(ctx, connectionID)
	if err != nil {
		return err
	}
	if err := s.Store.Signals().Delete(ctx, sig.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NotFoundError("Signal not found")
		}
		return domain.PersistenceError(err, "delete signal")
	}
	slogx.FromContext(ctx).Info("signal disconnected", slog.String("connection_id", sig.ConnectionID))
	return nil
}

func (s *SignalService) FindByConnectionID(ctx context.Context, connectionID string) (*domain.Signal, error) {
	connectionID = strings.TrimSpace(connectionID)
	if connectionID == "" {
		return nil, domain.ValidationError("Invalid connection_id")
	}
	sig, err := s.Store.Signals().GetByConnectionID(ctx, connectionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NotFoundError("Signal not found")
		}
		return nil, domain.PersistenceError(err, "load signal")
	}
	return sig, nil
}

func (s *SignalService) List(ctx context.Context, p domain.ListParams) (*domain.Page[domain.SignalView], error) {
	page, err := signals.list(ctx, s.Store, p)
	if err != nil {
		return nil, err
	}
	return mapPage(page, func(sig *domain.Signal) (domain.SignalView, error) { return sig.View(), nil })
}

// Prune deletes records connected longer ago than maxAge.
func (s *SignalService) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, domain.ValidationError("Invalid max age")
	}
	n, err := s.Store.Signals().DeleteConnectedBefore(ctx, time.Now().Add(-maxAge))
	if err != nil {
		return 0, domain.PersistenceError(err, "prune signals")
	}
	return n, nil
}
