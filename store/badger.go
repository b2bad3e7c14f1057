package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore implements RecordStore on an embedded Badger database, for
// single-node deployments that must survive process restarts.
//
// Badger's native TTL is deliberately not used: expiry is measured from the
// record's own creation timestamp so it survives rewrites of the same key,
// and eviction happens on read like every other backend.
type BadgerStore struct {
	db        *badger.DB
	retention time.Duration
	now       func() time.Time
}

// BadgerConfig configures a BadgerStore.
type BadgerConfig struct {
	// Path is the directory for the Badger value log and LSM tree.
	Path string

	// Retention overrides the default 30-day retention window when non-zero.
	Retention time.Duration

	// Now overrides the time source for expiry checks. Defaults to time.Now.
	Now func() time.Time
}

// NewBadgerStore opens (or creates) a Badger database at cfg.Path.
func NewBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %s: %w", cfg.Path, err)
	}

	s := &BadgerStore{
		db:        db,
		retention: cfg.Retention,
		now:       cfg.Now,
	}
	if s.retention == 0 {
		s.retention = DefaultRetentionWindow
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Put stores the record under key, replacing any previous value.
func (s *BadgerStore) Put(key string, rec Record) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), encodeRecord(rec))
	})
}

// Get returns the record for key, evicting it first if it has outlived the
// retention window.
func (s *BadgerStore) Get(key string) (Record, error) {
	var rec Record
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		rec, err = decodeRecord(data)
		if err != nil {
			return err
		}

		if expired(rec, s.now(), s.retention) {
			if err := txn.Delete([]byte(key)); err != nil {
				return err
			}
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Delete removes the record for key and reports whether one existed.
func (s *BadgerStore) Delete(key string) (bool, error) {
	found := false
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return txn.Delete([]byte(key))
	})
	return found, err
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error { return s.db.Close() }
