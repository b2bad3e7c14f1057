package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// DefaultRetentionWindow is how long a record survives after creation.
// Reads past this age evict the record.
const DefaultRetentionWindow = 30 * 24 * time.Hour

// ErrNotFound is returned by Get when no live record exists for the key,
// either because it was never written, was deleted, or has expired.
var ErrNotFound = errors.New("record not found")

// Record is an opaque payload plus the creation time used for expiry checks.
// The store never inspects the payload.
type Record struct {
	Payload   []byte
	CreatedAt time.Time
}

// RecordStore is the persistence contract for room records.
//
// Get returns the whole record or ErrNotFound; it never returns a partial
// read. Implementations must evict expired records as a side effect of Get.
// Delete reports whether a record was actually removed.
type RecordStore interface {
	Put(key string, rec Record) error
	Get(key string) (Record, error)
	Delete(key string) (bool, error)
	Close() error
}

// expired reports whether rec is older than the retention window at now.
func expired(rec Record, now time.Time, retention time.Duration) bool {
	return now.Sub(rec.CreatedAt) > retention
}

// encodeRecord serializes a record as an 8-byte big-endian unix-nano creation
// timestamp followed by the raw payload. Used by the durable backends.
func encodeRecord(rec Record) []byte {
	buf := make([]byte, 8+len(rec.Payload))
	binary.BigEndian.PutUint64(buf[:8], uint64(rec.CreatedAt.UnixNano()))
	copy(buf[8:], rec.Payload)
	return buf
}

func decodeRecord(data []byte) (Record, error) {
	if len(data) < 8 {
		return Record{}, fmt.Errorf("record too short: %d bytes", len(data))
	}
	nanos := int64(binary.BigEndian.Uint64(data[:8]))
	payload := make([]byte, len(data)-8)
	copy(payload, data[8:])
	return Record{
		Payload:   payload,
		CreatedAt: time.Unix(0, nanos).UTC(),
	}, nil
}
