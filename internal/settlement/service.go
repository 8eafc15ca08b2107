package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-erp/pos-backoffice/internal/fx"
	"github.com/odyssey-erp/pos-backoffice/internal/money"
	"github.com/odyssey-erp/pos-backoffice/internal/shared"
)

const idempotencyModule = "settlement"

// PaymentRecord is what gets persisted on the backend once a settlement is accepted.
type PaymentRecord struct {
	BusinessID     int64           `json:"businessId"`
	OrderID        int64           `json:"orderId"`
	Payments       []money.Payment `json:"currenciesPayment"`
	AmountReturned money.Money     `json:"amountReturned"`
	RecordedBy     int64           `json:"recordedBy,omitempty"`
	RecordedAt     time.Time       `json:"recordedAt"`
	IdempotencyKey string          `json:"-"`
}

// Backend loads rates and debts and records payments.
type Backend interface {
	Rates(ctx context.Context, businessID int64) (*fx.Table, error)
	OrderDebt(ctx context.Context, businessID, orderID int64) ([]money.Money, error)
	RecordPayment(ctx context.Context, rec PaymentRecord) error
}

// IdempotencyStore guards against registering the same payment twice.
type IdempotencyStore interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// SummaryInvalidator drops the cached summaries of a business.
type SummaryInvalidator interface {
	Invalidate(ctx context.Context, businessID int64) error
}

// PreviewInput asks for the live difference of a tendered set. Debt is taken from the order
// when OrderID is set.
type PreviewInput struct {
	BusinessID int64           `json:"businessId" validate:"required,gt=0"`
	OrderID    int64           `json:"orderId" validate:"gte=0"`
	Debt       []money.Money   `json:"debt"`
	Tendered   []money.Payment `json:"tendered"`
}

// RegisterInput registers tendered payments against an order.
type RegisterInput struct {
	BusinessID     int64           `json:"businessId" validate:"required,gt=0"`
	OrderID        int64           `json:"orderId" validate:"required,gt=0"`
	Tendered       []money.Payment `json:"tendered" validate:"required,min=1"`
	IdempotencyKey string          `json:"idempotencyKey" validate:"omitempty,max=64"`
	ActorID        int64           `json:"-"`
}

// Registration is returned after a successful registration.
type Registration struct {
	IdempotencyKey string    `json:"idempotencyKey"`
	OrderID        int64     `json:"orderId"`
	Result         Result    `json:"result"`
	RecordedAt     time.Time `json:"recordedAt"`
}

// Service previews and registers settlements.
type Service struct {
	backend     Backend
	idempotency IdempotencyStore
	summaries   SummaryInvalidator
	metrics     *Metrics
	logger      *slog.Logger
	validate    *validator.Validate
	now         func() time.Time
}

// NewService constructs a settlement service.
func NewService(backend Backend, idempotency IdempotencyStore, metrics *Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		backend:     backend,
		idempotency: idempotency,
		metrics:     metrics,
		logger:      logger,
		validate:    validator.New(),
		now:         time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// InvalidateSummaries makes every registered payment drop the cached summaries of its
// business, so live cycle reports include it.
func (s *Service) InvalidateSummaries(inv SummaryInvalidator) {
	s.summaries = inv
}

// Preview computes the settlement without side effects.
func (s *Service) Preview(ctx context.Context, in PreviewInput) (Result, error) {
	if err := s.validate.Struct(in); err != nil {
		return Result{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	if err := validatePayments(in.Tendered); err != nil {
		return Result{}, err
	}
	table, err := s.backend.Rates(ctx, in.BusinessID)
	if err != nil {
		return Result{}, fmt.Errorf("settlement: load rates: %w", err)
	}
	debt := in.Debt
	if in.OrderID > 0 {
		debt, err = s.backend.OrderDebt(ctx, in.BusinessID, in.OrderID)
		if err != nil {
			return Result{}, fmt.Errorf("settlement: load debt: %w", err)
		}
	}
	result, err := Compute(debt, in.Tendered, table)
	if err != nil {
		return Result{}, classify(err)
	}
	return result, nil
}

// Register computes the settlement, rejects shortfalls and records the payments once per
// idempotency key.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Registration, error) {
	if err := s.validate.Struct(in); err != nil {
		return Registration{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	if err := validatePayments(in.Tendered); err != nil {
		return Registration{}, err
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" {
		key = uuid.NewString()
	}
	logger := s.logger.With(slog.Int64("business_id", in.BusinessID), slog.Int64("order_id", in.OrderID))

	table, err := s.backend.Rates(ctx, in.BusinessID)
	if err != nil {
		s.metrics.observe(OutcomeFailed)
		return Registration{}, fmt.Errorf("settlement: load rates: %w", err)
	}
	debt, err := s.backend.OrderDebt(ctx, in.BusinessID, in.OrderID)
	if err != nil {
		s.metrics.observe(OutcomeFailed)
		return Registration{}, fmt.Errorf("settlement: load debt: %w", err)
	}
	result, err := Compute(debt, in.Tendered, table)
	if err != nil {
		s.metrics.observe(OutcomeFailed)
		return Registration{}, classify(err)
	}
	if err := Accept(result); err != nil {
		s.metrics.observe(OutcomeRejected)
		logger.Info("settlement rejected", slog.Any("shortfalls", result.Shortfalls()))
		return Registration{}, err
	}

	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				s.metrics.observe(OutcomeDuplicate)
			}
			return Registration{}, err
		}
	}

	recordedAt := s.now().UTC()
	rec := PaymentRecord{
		BusinessID:     in.BusinessID,
		OrderID:        in.OrderID,
		Payments:       result.Payments,
		AmountReturned: result.AmountReturned,
		RecordedBy:     in.ActorID,
		RecordedAt:     recordedAt,
		IdempotencyKey: key,
	}
	if err := s.backend.RecordPayment(ctx, rec); err != nil {
		s.metrics.observe(OutcomeFailed)
		if s.idempotency != nil {
			if delErr := s.idempotency.Delete(ctx, key); delErr != nil {
				logger.Warn("release idempotency key", slog.Any("error", delErr))
			}
		}
		return Registration{}, fmt.Errorf("settlement: record payment: %w", err)
	}
	s.metrics.observe(OutcomeRegistered)
	if s.summaries != nil {
		if err := s.summaries.Invalidate(context.WithoutCancel(ctx), in.BusinessID); err != nil {
			logger.Warn("invalidate cached summaries", slog.Any("error", err))
		}
	}
	logger.Info("settlement registered",
		slog.String("idempotency_key", key),
		slog.String("amount_returned", result.AmountReturned.String()),
	)
	return Registration{IdempotencyKey: key, OrderID: in.OrderID, Result: result, RecordedAt: recordedAt}, nil
}

func validatePayments(payments []money.Payment) error {
	for i, p := range payments {
		if money.NormalizeCode(p.Currency) == "" {
			return fmt.Errorf("%w: tendered[%d]: currency required", shared.ErrValidation, i)
		}
		if p.IsNegative() {
			return fmt.Errorf("%w: tendered[%d]: amount must not be negative", shared.ErrValidation, i)
		}
		if _, err := money.ParsePaymentWay(string(p.Way)); err != nil {
			return fmt.Errorf("%w: tendered[%d]: %v", shared.ErrValidation, i, err)
		}
	}
	return nil
}

func classify(err error) error {
	var notFound *fx.RateNotFoundError
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %w", shared.ErrUnprocessable, err)
	}
	return err
}
