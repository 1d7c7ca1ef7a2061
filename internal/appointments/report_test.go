package appointments

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reportColumns = []string{"id", "full_name", "phone", "email", "kind", "complaint_detail", "appt_date", "appt_time", "status", "created_at"}

func TestReportRepositoryListWithFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewReportRepository(db)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	created := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM appointments WHERE status = ANY\(\$1\) AND appt_date = \$2 ORDER BY created_at DESC, id DESC LIMIT \$3`).
		WithArgs(sqlmock.AnyArg(), day, 10).
		WillReturnRows(sqlmock.NewRows(reportColumns).
			AddRow(int64(7), "Ana", "600000000", "a@b.com", "routine-checkup", nil, day, "09:30", "pending", created))

	list, err := repo.List(context.Background(), Filter{
		Statuses: []Status{StatusPending, StatusConfirmed},
		Date:     "2025-03-10",
		Limit:    10,
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(7), list[0].ID)
	assert.Equal(t, "2025-03-10", list[0].Date)
	assert.Empty(t, list[0].ComplaintDetail)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryListWithoutLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM appointments ORDER BY created_at DESC, id DESC$`).
		WithoutArgs().
		WillReturnRows(sqlmock.NewRows(reportColumns))

	list, err := NewReportRepository(db).List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT status, kind, COUNT\(\*\) FROM appointments GROUP BY status, kind`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "kind", "count"}).
			AddRow("pending", "routine-checkup", 3).
			AddRow("pending", "specific-complaint", 2).
			AddRow("cancelled", "routine-checkup", 1))
	mock.ExpectQuery(`FROM appointments ORDER BY created_at DESC`).
		WithArgs(latestCount).
		WillReturnRows(sqlmock.NewRows(reportColumns))

	stats, err := NewReportRepository(db).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, 5, stats.ByStatus[StatusPending])
	assert.Equal(t, 0, stats.ByStatus[StatusConfirmed])
	assert.Equal(t, 4, stats.ByKind[KindRoutineCheckup])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewReportRepository(db)

	mock.ExpectExec(`UPDATE appointments SET status = \$1 WHERE id = \$2`).
		WithArgs("confirmed", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateStatus(context.Background(), 3, StatusConfirmed))

	mock.ExpectExec(`UPDATE appointments SET status`).
		WithArgs("confirmed", int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdateStatus(context.Background(), 4, StatusConfirmed), ErrNotFound)

	mock.ExpectExec(`UPDATE appointments SET status`).
		WithArgs("pending", int64(5)).
		WillReturnError(&pq.Error{Code: "23505"})
	assert.ErrorIs(t, repo.UpdateStatus(context.Background(), 5, StatusPending), ErrSlotConflict)

	assert.ErrorIs(t, repo.UpdateStatus(context.Background(), 5, Status("archived")), ErrInvalidAppointment)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, []Appointment{{
		ID:        1,
		FullName:  "Ana, López",
		Phone:     "600000000",
		Email:     "a@b.com",
		Kind:      KindRoutineCheckup,
		Date:      "2025-03-10",
		Time:      "09:30",
		Status:    StatusPending,
		CreatedAt: time.Date(2025, 3, 1, 8, 5, 9, 0, time.UTC),
	}})
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Teléfono", records[0][2])
	assert.Equal(t, []string{"1", "Ana, López", "600000000", "a@b.com", "Revisión General", "2025-03-10", "09:30", "pending", "2025-03-01 08:05:09"}, records[1])
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "citas_export_20250301_080509.csv", ExportFilename(time.Date(2025, 3, 1, 8, 5, 9, 0, time.UTC)))
}
