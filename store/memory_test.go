package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chi-feng/cryptosanta/testutil"
)

func TestMemoryStorePutGet(t *testing.T) {
	s := NewMemoryStore()

	created := time.Now().UTC()
	err := s.Put("room-1", Record{Payload: []byte(`{"id":"room-1"}`), CreatedAt: created})
	require.NoError(t, err)

	rec, err := s.Get("room-1")
	require.NoError(t, err)
	require.Equal(t, []byte(`{"id":"room-1"}`), rec.Payload)
	require.True(t, rec.CreatedAt.Equal(created))
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get("nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()

	require.NoError(t, s.Put("room-1", Record{Payload: []byte("x"), CreatedAt: time.Now()}))

	found, err := s.Delete("room-1")
	require.NoError(t, err)
	require.True(t, found)

	found, err = s.Delete("room-1")
	require.NoError(t, err)
	require.False(t, found)

	_, err = s.Get("room-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreEvictsExpiredOnRead(t *testing.T) {
	clock := testutil.NewManualClock(time.Now())
	s := NewMemoryStore(WithClock(clock.Now))

	require.NoError(t, s.Put("room-1", Record{Payload: []byte("x"), CreatedAt: clock.Now()}))

	// Just inside the window the record is still live.
	clock.Advance(DefaultRetentionWindow - time.Minute)
	_, err := s.Get("room-1")
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = s.Get("room-1")
	require.ErrorIs(t, err, ErrNotFound)

	// Eviction is permanent, even if the clock were to run backwards.
	clock.Advance(-DefaultRetentionWindow)
	_, err = s.Get("room-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreCustomRetention(t *testing.T) {
	clock := testutil.NewManualClock(time.Now())
	s := NewMemoryStore(WithClock(clock.Now), WithRetention(time.Hour))

	require.NoError(t, s.Put("room-1", Record{Payload: []byte("x"), CreatedAt: clock.Now()}))

	clock.Advance(61 * time.Minute)
	_, err := s.Get("room-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()

	require.NoError(t, s.Put("room-1", Record{Payload: []byte("abc"), CreatedAt: time.Now()}))

	rec, err := s.Get("room-1")
	require.NoError(t, err)
	rec.Payload[0] = 'z'

	again, err := s.Get("room-1")
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), again.Payload)
}

func TestRecordEncodeDecode(t *testing.T) {
	created := time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC)
	rec := Record{Payload: []byte("opaque blob"), CreatedAt: created}

	decoded, err := decodeRecord(encodeRecord(rec))
	require.NoError(t, err)
	require.Equal(t, rec.Payload, decoded.Payload)
	require.True(t, decoded.CreatedAt.Equal(created))

	_, err = decodeRecord([]byte("short"))
	require.Error(t, err)
}
