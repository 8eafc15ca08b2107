package cycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/pos-backoffice/internal/platform/db"
	"github.com/odyssey-erp/pos-backoffice/internal/shared"
)

// Repository persists economic cycles. A nil tx runs the statement outside a transaction.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
	Insert(ctx context.Context, tx pgx.Tx, c Cycle) (Cycle, error)
	Load(ctx context.Context, tx pgx.Tx, id int64) (Cycle, error)
	LoadForUpdate(ctx context.Context, tx pgx.Tx, id int64) (Cycle, error)
	FindActive(ctx context.Context, tx pgx.Tx, businessID int64) (Cycle, bool, error)
	Update(ctx context.Context, tx pgx.Tx, c Cycle) (Cycle, error)
	Delete(ctx context.Context, tx pgx.Tx, id int64) error
	List(ctx context.Context, businessID int64, limit, offset int) ([]Cycle, int, error)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgRepository is the Postgres implementation backed by economic_cycles.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PgRepository using the provided pool.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// WithTx executes fn inside a repeatable-read transaction.
func (r *PgRepository) WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("cycle: repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, tx)
	})
}

func (r *PgRepository) q(tx pgx.Tx) querier {
	if tx != nil {
		return tx
	}
	return r.pool
}

const cycleColumns = `id, business_id, price_system_id, name, state, observations, opened_by, opened_at, closed_by, closed_at, created_at, updated_at`

// Insert stores a new cycle. The partial unique index on active cycles turns a concurrent
// second open into a ConflictError.
func (r *PgRepository) Insert(ctx context.Context, tx pgx.Tx, c Cycle) (Cycle, error) {
	row := r.q(tx).QueryRow(ctx, `INSERT INTO economic_cycles (business_id, price_system_id, name, state, observations, opened_by, opened_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7, $7)
RETURNING `+cycleColumns, c.BusinessID, c.PriceSystemID, c.Name, string(c.State), c.Observations, c.OpenedBy, c.OpenedAt)
	out, err := scanCycle(row)
	if shared.IsUniqueViolation(err) {
		return Cycle{}, &ConflictError{BusinessID: c.BusinessID}
	}
	return out, err
}

// Load returns a cycle by id.
func (r *PgRepository) Load(ctx context.Context, tx pgx.Tx, id int64) (Cycle, error) {
	return scanCycle(r.q(tx).QueryRow(ctx, `SELECT `+cycleColumns+` FROM economic_cycles WHERE id = $1`, id))
}

// LoadForUpdate returns a cycle by id and locks its row.
func (r *PgRepository) LoadForUpdate(ctx context.Context, tx pgx.Tx, id int64) (Cycle, error) {
	return scanCycle(r.q(tx).QueryRow(ctx, `SELECT `+cycleColumns+` FROM economic_cycles WHERE id = $1 FOR UPDATE`, id))
}

// FindActive returns the active cycle of a business, if any.
func (r *PgRepository) FindActive(ctx context.Context, tx pgx.Tx, businessID int64) (Cycle, bool, error) {
	c, err := scanCycle(r.q(tx).QueryRow(ctx, `SELECT `+cycleColumns+` FROM economic_cycles WHERE business_id = $1 AND state = $2`, businessID, string(StateActive)))
	if errors.Is(err, ErrNotFound) {
		return Cycle{}, false, nil
	}
	if err != nil {
		return Cycle{}, false, err
	}
	return c, true, nil
}

// Update writes the mutable fields of a cycle.
func (r *PgRepository) Update(ctx context.Context, tx pgx.Tx, c Cycle) (Cycle, error) {
	var closedBy pgtype.Int8
	if c.ClosedBy != nil {
		closedBy = pgtype.Int8{Int64: *c.ClosedBy, Valid: true}
	}
	var closedAt pgtype.Timestamptz
	if c.ClosedAt != nil {
		closedAt = pgtype.Timestamptz{Time: *c.ClosedAt, Valid: true}
	}
	row := r.q(tx).QueryRow(ctx, `UPDATE economic_cycles
SET name = $2, state = $3, observations = $4, closed_by = $5, closed_at = $6, updated_at = $7, price_system_id = $8
WHERE id = $1
RETURNING `+cycleColumns, c.ID, c.Name, string(c.State), c.Observations, closedBy, closedAt, c.UpdatedAt, c.PriceSystemID)
	return scanCycle(row)
}

// Delete removes a cycle.
func (r *PgRepository) Delete(ctx context.Context, tx pgx.Tx, id int64) error {
	tag, err := r.q(tx).Exec(ctx, `DELETE FROM economic_cycles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns a page of cycles for a business, newest first, with the total count.
func (r *PgRepository) List(ctx context.Context, businessID int64, limit, offset int) ([]Cycle, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM economic_cycles WHERE business_id = $1`, businessID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+cycleColumns+` FROM economic_cycles WHERE business_id = $1 ORDER BY opened_at DESC, id DESC LIMIT $2 OFFSET $3`, businessID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	cycles := make([]Cycle, 0, limit)
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, 0, err
		}
		cycles = append(cycles, c)
	}
	return cycles, total, rows.Err()
}

func scanCycle(row pgx.Row) (Cycle, error) {
	var (
		c        Cycle
		state    string
		closedBy pgtype.Int8
		closedAt pgtype.Timestamptz
	)
	err := row.Scan(&c.ID, &c.BusinessID, &c.PriceSystemID, &c.Name, &state, &c.Observations, &c.OpenedBy, &c.OpenedAt, &closedBy, &closedAt, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Cycle{}, ErrNotFound
	}
	if err != nil {
		return Cycle{}, err
	}
	c.State = State(state)
	if closedBy.Valid {
		v := closedBy.Int64
		c.ClosedBy = &v
	}
	if closedAt.Valid {
		v := closedAt.Time
		c.ClosedAt = &v
	}
	return c, nil
}
