package appointments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ReportRepository serves staff-facing queries over database/sql.
type ReportRepository struct {
	db *sql.DB
}

// NewReportRepository creates a repository for administrative views.
func NewReportRepository(db *sql.DB) *ReportRepository {
	if db == nil {
		panic("appointments: sql db required")
	}
	return &ReportRepository{db: db}
}

// List returns appointments newest first, optionally filtered.
func (r *ReportRepository) List(ctx context.Context, f Filter) ([]Appointment, error) {
	var (
		where []string
		args  []any
	)
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		args = append(args, pq.Array(statuses))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if f.Date != "" {
		day, err := ParseDate(f.Date)
		if err != nil {
			return nil, fmt.Errorf("appointments: list: %w", err)
		}
		args = append(args, day)
		where = append(where, fmt.Sprintf("appt_date = $%d", len(args)))
	}
	query := `SELECT id, full_name, phone, email, kind, complaint_detail, appt_date, appt_time, status, created_at FROM appointments`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var (
			a          Appointment
			kind, stat string
			detail     sql.NullString
			apptDate   time.Time
		)
		if err := rows.Scan(&a.ID, &a.FullName, &a.Phone, &a.Email, &kind, &detail, &apptDate, &a.Time, &stat, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		a.Kind = Kind(kind)
		a.Status = Status(stat)
		a.ComplaintDetail = detail.String
		a.Date = apptDate.Format(DateLayout)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	return out, nil
}

// Stats counts appointments by status and kind and returns the latest five.
func (r *ReportRepository) Stats(ctx context.Context) (*Stats, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, kind, COUNT(*) FROM appointments GROUP BY status, kind`)
	if err != nil {
		return nil, fmt.Errorf("appointments: stats: %w", err)
	}
	defer rows.Close()

	stats := &Stats{
		ByStatus: map[Status]int{StatusPending: 0, StatusConfirmed: 0, StatusCancelled: 0},
		ByKind:   map[Kind]int{KindRoutineCheckup: 0, KindSpecificComplaint: 0},
	}
	for rows.Next() {
		var (
			status, kind string
			count        int
		)
		if err := rows.Scan(&status, &kind, &count); err != nil {
			return nil, fmt.Errorf("appointments: stats scan: %w", err)
		}
		stats.Total += count
		stats.ByStatus[Status(status)] += count
		stats.ByKind[Kind(kind)] += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: stats: %w", err)
	}

	latest, err := r.List(ctx, Filter{Limit: latestCount})
	if err != nil {
		return nil, err
	}
	stats.Latest = latest
	return stats, nil
}

// UpdateStatus sets the status of one appointment. Reactivating a cancelled
// appointment whose slot was rebooked fails with ErrSlotConflict.
func (r *ReportRepository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidAppointment, status)
	}
	res, err := r.db.ExecContext(ctx, `UPDATE appointments SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotConflict
		}
		return fmt.Errorf("appointments: update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("appointments: update status: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation recognises the error from either Postgres driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}
