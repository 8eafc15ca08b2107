package cycle

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/pos-backoffice/internal/shared"
)

const defaultLockTTL = 10 * time.Second

// Locker serialises concurrent opens for a business.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

// Auditor records lifecycle changes inside the transaction that makes them.
type Auditor interface {
	Record(ctx context.Context, tx pgx.Tx, log shared.AuditLog) error
}

// CloseHook runs after a close has been committed.
type CloseHook func(ctx context.Context, c Cycle) error

// Service orchestrates the economic cycle lifecycle.
type Service struct {
	repo    Repository
	locker  Locker
	audit   Auditor
	onClose CloseHook
	logger  *slog.Logger
	now     func() time.Time
	lockTTL time.Duration
}

// NewService constructs a Service instance. locker and audit may be nil.
func NewService(repo Repository, locker Locker, audit Auditor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		locker:  locker,
		audit:   audit,
		logger:  logger,
		now:     time.Now,
		lockTTL: defaultLockTTL,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithLockTTL overrides how long the open lock is held at most.
func (s *Service) WithLockTTL(ttl time.Duration) {
	if ttl > 0 {
		s.lockTTL = ttl
	}
}

// OnClose installs the hook invoked after each committed close.
func (s *Service) OnClose(hook CloseHook) {
	s.onClose = hook
}

// Get returns a cycle by id.
func (s *Service) Get(ctx context.Context, id int64) (Cycle, error) {
	return s.repo.Load(ctx, nil, id)
}

// Active returns the active cycle of a business or ErrNotFound.
func (s *Service) Active(ctx context.Context, businessID int64) (Cycle, error) {
	c, ok, err := s.repo.FindActive(ctx, nil, businessID)
	if err != nil {
		return Cycle{}, err
	}
	if !ok {
		return Cycle{}, ErrNotFound
	}
	return c, nil
}

// List returns a page of cycles for a business.
func (s *Service) List(ctx context.Context, businessID int64, page, perPage int) ([]Cycle, shared.Pagination, error) {
	p := shared.NewPagination(page, perPage, 0)
	cycles, total, err := s.repo.List(ctx, businessID, p.PerPage, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return cycles, shared.NewPagination(p.Page, p.PerPage, total), nil
}

// Open starts a new active cycle. A business holds at most one active cycle.
func (s *Service) Open(ctx context.Context, in OpenInput) (Cycle, error) {
	if err := in.Validate(); err != nil {
		return Cycle{}, err
	}
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, shared.CycleOpenLockKey(in.BusinessID), s.lockTTL)
		if err != nil {
			return Cycle{}, fmt.Errorf("cycle: open business %d: %w", in.BusinessID, err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("release cycle lock", slog.Int64("business_id", in.BusinessID), slog.Any("error", err))
			}
		}()
	}
	if err := ValidateTransition(StateOpenPending, StateActive); err != nil {
		return Cycle{}, err
	}

	now := s.now().UTC()
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = now.Format("2006-01-02 15:04")
	}
	var opened Cycle
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		active, ok, err := s.repo.FindActive(ctx, tx, in.BusinessID)
		if err != nil {
			return err
		}
		if ok {
			return &ConflictError{BusinessID: in.BusinessID, ActiveCycleID: active.ID}
		}
		opened, err = s.repo.Insert(ctx, tx, Cycle{
			BusinessID:    in.BusinessID,
			PriceSystemID: in.PriceSystemID,
			Name:          name,
			State:         StateActive,
			Observations:  strings.TrimSpace(in.Observations),
			OpenedBy:      in.Actor.ID,
			OpenedAt:      now,
		})
		if err != nil {
			return err
		}
		return s.record(ctx, tx, in.Actor, "cycle.open", opened, nil)
	})
	if err != nil {
		return Cycle{}, err
	}
	s.logger.Info("cycle opened", slog.Int64("cycle_id", opened.ID), slog.Int64("business_id", opened.BusinessID))
	return opened, nil
}

// Edit updates the price system, name or observations of an active cycle.
func (s *Service) Edit(ctx context.Context, in EditInput) (Cycle, error) {
	if in.Actor.ID <= 0 {
		return Cycle{}, ErrActorRequired
	}
	var edited Cycle
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		c, err := s.repo.LoadForUpdate(ctx, tx, in.CycleID)
		if err != nil {
			return err
		}
		if c.State != StateActive {
			return &InvalidStateError{CycleID: c.ID, State: c.State, Action: "edit"}
		}
		changes := map[string]any{}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return fmt.Errorf("%w: cycle: name must not be empty", shared.ErrValidation)
			}
			changes["name"] = name
			c.Name = name
		}
		if in.Observations != nil {
			c.Observations = strings.TrimSpace(*in.Observations)
			changes["observations"] = c.Observations
		}
		if in.PriceSystemID != nil {
			if *in.PriceSystemID <= 0 {
				return fmt.Errorf("%w: cycle: price system must be positive", shared.ErrValidation)
			}
			changes["price_system_id"] = *in.PriceSystemID
			c.PriceSystemID = *in.PriceSystemID
		}
		c.UpdatedAt = s.now().UTC()
		edited, err = s.repo.Update(ctx, tx, c)
		if err != nil {
			return err
		}
		return s.record(ctx, tx, in.Actor, "cycle.edit", edited, changes)
	})
	if err != nil {
		return Cycle{}, err
	}
	return edited, nil
}

// Close moves an active cycle to CLOSED and runs the close hook once committed.
func (s *Service) Close(ctx context.Context, in CloseInput) (Cycle, error) {
	if in.Actor.ID <= 0 {
		return Cycle{}, ErrActorRequired
	}
	var closed Cycle
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		c, err := s.repo.LoadForUpdate(ctx, tx, in.CycleID)
		if err != nil {
			return err
		}
		if err := ValidateTransition(c.State, StateClosed); err != nil {
			return &InvalidStateError{CycleID: c.ID, State: c.State, Action: "close"}
		}
		now := s.now().UTC()
		actorID := in.Actor.ID
		c.State = StateClosed
		c.ClosedBy = &actorID
		c.ClosedAt = &now
		c.UpdatedAt = now
		if in.Observations != nil {
			c.Observations = strings.TrimSpace(*in.Observations)
		}
		closed, err = s.repo.Update(ctx, tx, c)
		if err != nil {
			return err
		}
		return s.record(ctx, tx, in.Actor, "cycle.close", closed, nil)
	})
	if err != nil {
		return Cycle{}, err
	}
	s.logger.Info("cycle closed", slog.Int64("cycle_id", closed.ID), slog.Int64("business_id", closed.BusinessID))
	if s.onClose != nil {
		if err := s.onClose(ctx, closed); err != nil {
			s.logger.Error("cycle close hook", slog.Int64("cycle_id", closed.ID), slog.Any("error", err))
		}
	}
	return closed, nil
}

// Delete removes a closed cycle. Only elevated actors may delete.
func (s *Service) Delete(ctx context.Context, in DeleteInput) error {
	if in.Actor.ID <= 0 {
		return ErrActorRequired
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		c, err := s.repo.LoadForUpdate(ctx, tx, in.CycleID)
		if err != nil {
			return err
		}
		if c.State != StateClosed {
			return &InvalidStateError{CycleID: c.ID, State: c.State, Action: "delete"}
		}
		if !in.Actor.Elevated {
			return ErrForbidden
		}
		if err := s.repo.Delete(ctx, tx, c.ID); err != nil {
			return err
		}
		return s.record(ctx, tx, in.Actor, "cycle.delete", c, nil)
	})
	if err != nil {
		return err
	}
	s.logger.Info("cycle deleted", slog.Int64("cycle_id", in.CycleID), slog.Int64("actor_id", in.Actor.ID))
	return nil
}

func (s *Service) record(ctx context.Context, tx pgx.Tx, actor shared.Actor, action string, c Cycle, changes map[string]any) error {
	if s.audit == nil {
		return nil
	}
	meta := map[string]any{
		"business_id":     c.BusinessID,
		"price_system_id": c.PriceSystemID,
		"state":           string(c.State),
	}
	if len(changes) > 0 {
		meta["changes"] = changes
	}
	if err := s.audit.Record(ctx, tx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "economic_cycle",
		EntityID: strconv.FormatInt(c.ID, 10),
		Meta:     meta,
		At:       s.now().UTC(),
	}); err != nil {
		return fmt.Errorf("cycle: audit %s: %w", action, err)
	}
	return nil
}
