package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists appointments in Postgres. Slot uniqueness is
// enforced by the appointments_active_slot_idx partial unique index.
type PostgresStore struct {
	pool rowQuerier
	now  func() time.Time
}

// NewPostgresStore creates a store backed by a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresStore{pool: pool, now: time.Now}
}

func newPostgresStoreWithQuerier(q rowQuerier) *PostgresStore {
	if q == nil {
		panic("appointments: querier required")
	}
	return &PostgresStore{pool: q, now: time.Now}
}

// Create inserts appt. A second non-cancelled row for the same slot makes
// the insert a no-op, which is reported as ErrSlotConflict.
func (s *PostgresStore) Create(ctx context.Context, appt Appointment) (int64, error) {
	if err := appt.Validate(); err != nil {
		return 0, err
	}
	date, _ := ParseDate(appt.Date)
	if appt.Status == "" {
		appt.Status = StatusPending
	}

	query := `
		INSERT INTO appointments (full_name, phone, email, kind, complaint_detail, appt_date, appt_time, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (appt_date, appt_time) WHERE status <> 'cancelled' DO NOTHING
		RETURNING id
	`
	var id int64
	err := s.pool.QueryRow(ctx, query,
		appt.FullName, appt.Phone, appt.Email, string(appt.Kind), appt.ComplaintDetail,
		date, appt.Time, string(appt.Status), s.now().UTC(),
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrSlotConflict
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, ErrSlotConflict
		}
		return 0, fmt.Errorf("appointments: insert: %w", err)
	}
	return id, nil
}

// ListByDateAndStatus returns the appointments on date with the given status.
func (s *PostgresStore) ListByDateAndStatus(ctx context.Context, date string, status Status) ([]Appointment, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("appointments: list by date: %w", err)
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, full_name, phone, email, kind, complaint_detail, appt_date, appt_time, status, created_at
		FROM appointments
		WHERE appt_date = $1 AND status = $2
		ORDER BY appt_time ASC`, day, string(status))
	if err != nil {
		return nil, fmt.Errorf("appointments: list by date: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var (
			a          Appointment
			kind, stat string
			detail     *string
			apptDate   time.Time
		)
		// complaint_detail is nullable for rows written outside the booking flow.
		if err := rows.Scan(&a.ID, &a.FullName, &a.Phone, &a.Email, &kind, &detail, &apptDate, &a.Time, &stat, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		if detail != nil {
			a.ComplaintDetail = *detail
		}
		a.Kind = Kind(kind)
		a.Status = Status(stat)
		a.Date = apptDate.Format(DateLayout)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: list by date: %w", err)
	}
	return out, nil
}
