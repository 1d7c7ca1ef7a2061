package appointments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAppointment(date, at string) Appointment {
	return Appointment{
		FullName: "Ana",
		Phone:    "600000000",
		Email:    "a@b.com",
		Kind:     KindRoutineCheckup,
		Date:     date,
		Time:     at,
	}
}

func TestMemoryStoreCreateAssignsMonotonicIDs(t *testing.T) {
	store := NewMemoryStore()
	store.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	first, err := store.Create(ctx, sampleAppointment("2025-03-10", "09:30"))
	require.NoError(t, err)
	second, err := store.Create(ctx, sampleAppointment("2025-03-10", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)

	rows, err := store.ListByDateAndStatus(ctx, "2025-03-10", StatusPending)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, StatusPending, rows[0].Status)
	assert.Equal(t, "09:30", rows[0].Time)
	assert.Equal(t, 2025, rows[0].CreatedAt.Year())
}

func TestMemoryStoreRejectsDuplicateSlot(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Create(ctx, sampleAppointment("2025-03-10", "09:30"))
	require.NoError(t, err)
	_, err = store.Create(ctx, sampleAppointment("2025-03-10", "09:30"))
	assert.ErrorIs(t, err, ErrSlotConflict)

	// Confirmed appointments still hold the slot at write time.
	require.NoError(t, store.UpdateStatus(ctx, 1, StatusConfirmed))
	_, err = store.Create(ctx, sampleAppointment("2025-03-10", "09:30"))
	assert.ErrorIs(t, err, ErrSlotConflict)

	// Cancelling frees it.
	require.NoError(t, store.UpdateStatus(ctx, 1, StatusCancelled))
	id, err := store.Create(ctx, sampleAppointment("2025-03-10", "09:30"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)

	// The cancelled row cannot be reactivated over the new booking.
	assert.ErrorIs(t, store.UpdateStatus(ctx, 1, StatusPending), ErrSlotConflict)
	assert.ErrorIs(t, store.UpdateStatus(ctx, 99, StatusPending), ErrNotFound)
}

func TestMemoryStoreConcurrentBookingsSameSlot(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	const attempts = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Create(ctx, sampleAppointment("2025-03-10", "11:00"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrSlotConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)
}

func TestMemoryStoreValidation(t *testing.T) {
	store := NewMemoryStore()
	bad := sampleAppointment("2025-13-40", "09:15")
	bad.Kind = "unknown"
	_, err := store.Create(context.Background(), bad)
	require.ErrorIs(t, err, ErrInvalidAppointment)
	assert.Contains(t, err.Error(), "invalid date")
	assert.Contains(t, err.Error(), "half-hour")
	assert.Contains(t, err.Error(), "unknown kind")
}

func TestMemoryStoreListAndStats(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for i, at := range []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"} {
		appt := sampleAppointment("2025-03-10", at)
		if i%2 == 1 {
			appt.Kind = KindSpecificComplaint
			appt.ComplaintDetail = "dolor"
		}
		_, err := store.Create(ctx, appt)
		require.NoError(t, err)
	}
	require.NoError(t, store.UpdateStatus(ctx, 2, StatusConfirmed))
	require.NoError(t, store.UpdateStatus(ctx, 3, StatusCancelled))

	list, err := store.List(ctx, Filter{Statuses: []Status{StatusPending}})
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, int64(6), list[0].ID)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, 4, stats.ByStatus[StatusPending])
	assert.Equal(t, 1, stats.ByStatus[StatusConfirmed])
	assert.Equal(t, 1, stats.ByStatus[StatusCancelled])
	assert.Equal(t, 3, stats.ByKind[KindSpecificComplaint])
	assert.Len(t, stats.Latest, 5)

	none, err := store.List(ctx, Filter{Date: "2025-03-11"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStatusParsing(t *testing.T) {
	s, err := ParseStatus(" Confirmed ")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, s)
	_, err = ParseStatus("done")
	assert.Error(t, err)
	assert.Equal(t, "Revisión General", KindRoutineCheckup.Label())
	assert.Equal(t, "Padecimiento", KindSpecificComplaint.Label())
}

func TestValidateTime(t *testing.T) {
	assert.NoError(t, ValidateTime("09:30"))
	assert.NoError(t, ValidateTime("17:00"))
	assert.Error(t, ValidateTime("9:30"))
	assert.Error(t, ValidateTime("09:45"))
	assert.Error(t, ValidateTime("25:00"))
}
