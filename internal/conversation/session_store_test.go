package conversation

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/dental-assistant/internal/appointments"
	"github.com/wolfman30/dental-assistant/internal/dialog"
)

func TestRedisSessionStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisSessionStore(client, time.Hour)
	ctx := context.Background()

	_, err := store.Load(ctx, "missing")
	require.ErrorIs(t, err, ErrSessionNotFound)

	sess := &Session{
		ID:    "abc",
		State: dialog.AwaitingTime,
		Draft: dialog.Draft{Kind: appointments.KindRoutineCheckup, Date: "2025-03-10"},
	}
	require.NoError(t, store.Save(ctx, sess))
	assert.Equal(t, time.Hour, mr.TTL("session:abc"))

	got, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, dialog.AwaitingTime, got.State)
	assert.Equal(t, "2025-03-10", got.Draft.Date)

	mr.FastForward(2 * time.Hour)
	_, err = store.Load(ctx, "abc")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Save(ctx, sess))
	require.NoError(t, store.Delete(ctx, "abc"))
	assert.False(t, mr.Exists("session:abc"))
}

func TestRedisSessionStore_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisSessionStore(client, 0)
	mr.Close()

	_, err := store.Load(context.Background(), "abc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionStore_Expiry(t *testing.T) {
	now := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	store := NewMemorySessionStore(30 * time.Minute)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{ID: "s1", State: dialog.AwaitingName}))

	now = now.Add(29 * time.Minute)
	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, dialog.AwaitingName, got.State)

	now = now.Add(time.Minute)
	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionHistoryIsCapped(t *testing.T) {
	var sess Session
	for i := 0; i < maxHistory+10; i++ {
		sess.appendHistory(Message{Role: ChatRoleUser, Text: "hola"})
	}
	assert.Len(t, sess.History, maxHistory)
}
