package room

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chi-feng/cryptosanta/store"
)

// MinParticipants is the smallest group for which the assignment is meaningful
// (with two people everyone knows their Santa).
const MinParticipants = 3

// RetryPolicy bounds the optimistic-locking retry loop. Delay grows by
// doubling: attempt 0 sleeps BaseDelay, attempt 1 twice that, and so on.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy matches the production settings: 5 attempts starting at
// 50ms, so a fully contended operation gives up after ~1.5s of backoff.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 5,
	BaseDelay:   50 * time.Millisecond,
}

// Delay returns the backoff before retrying after the given zero-based attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return p.BaseDelay << attempt
}

// Store owns every mutation path to a Room. It layers the lifecycle state
// machine and optimistic concurrency control on top of a plain RecordStore:
// each mutation re-reads the record, validates against the fresh state, and
// commits only if the version is unchanged since the read.
type Store struct {
	records store.RecordStore
	retry   RetryPolicy
	sleep   func(time.Duration)
	log     *slog.Logger

	// casMu makes the version-check-then-write step atomic. It is held only
	// across that step, never across a backoff sleep.
	casMu sync.Mutex
}

// Config configures a Store. Records is required; everything else defaults.
type Config struct {
	Records store.RecordStore

	// Retry overrides DefaultRetryPolicy when MaxAttempts is non-zero.
	Retry RetryPolicy

	// Sleep overrides time.Sleep between CAS attempts. Tests inject a recorder
	// so retry behavior is observable without real delay.
	Sleep func(time.Duration)

	Log *slog.Logger
}

// NewStore creates a room store over the given record store.
func NewStore(cfg Config) *Store {
	s := &Store{
		records: cfg.Records,
		retry:   cfg.Retry,
		sleep:   cfg.Sleep,
		log:     cfg.Log,
	}
	if s.retry.MaxAttempts == 0 {
		s.retry = DefaultRetryPolicy
	}
	if s.sleep == nil {
		s.sleep = time.Sleep
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Create stores a new room in the OPEN state at version 0 and returns it.
// The id is a fresh UUID; params and keys are opaque strings.
func (s *Store) Create(params Params, sessionPublicKey, chairSecretHash string) (*Room, error) {
	r := &Room{
		ID:               uuid.NewString(),
		Status:           StatusOpen,
		Params:           params,
		SessionPublicKey: sessionPublicKey,
		ChairSecretHash:  chairSecretHash,
		Participants:     []string{},
		SortedKeys:       []string{},
		Messages:         []string{},
		CreatedAt:        time.Now().UTC(),
		Version:          0,
	}
	if err := s.write(r); err != nil {
		return nil, err
	}
	s.log.Info("room created", "roomID", r.ID)
	return r, nil
}

// Get returns the room or ErrNotFound. Expiry is enforced by the record store
// on read, so an expired room is indistinguishable from an unknown one.
func (s *Store) Get(id string) (*Room, error) {
	rec, err := s.records.Get(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading room %s: %w", id, err)
	}
	return unmarshalRoom(rec.Payload)
}

// Delete removes a room. Returns ErrNotFound if no live record existed.
func (s *Store) Delete(id string) error {
	found, err := s.records.Delete(id)
	if err != nil {
		return fmt.Errorf("deleting room %s: %w", id, err)
	}
	if !found {
		return ErrNotFound
	}
	s.log.Info("room deleted", "roomID", id)
	return nil
}

// RegisterParticipant appends an encrypted public key while the room is OPEN.
// Duplicate detection is exact-string equality on the ciphertext; two
// encryptions of the same key with fresh randomness will not match.
func (s *Store) RegisterParticipant(id, encryptedKey string) error {
	return s.mutateWithRetry(id, func(r *Room) error {
		if r.Status != StatusOpen {
			return validationErr("registration is closed")
		}
		for _, existing := range r.Participants {
			if existing == encryptedKey {
				return validationErr("duplicate registration")
			}
		}
		r.Participants = append(r.Participants, encryptedKey)
		return nil
	})
}

// SetSortedKeys replaces the sorted key list and moves the room to SORTED.
//
// Unlike registration and messaging this makes a single CAS attempt: it is a
// chair-only operation with essentially no contention, and a Chair that loses
// the race should re-fetch room state before resubmitting anyway.
func (s *Store) SetSortedKeys(id string, sortedKeys []string) error {
	r, err := s.Get(id)
	if err != nil {
		return err
	}
	if r.Status != StatusOpen {
		return validationErr("room is not in OPEN state")
	}
	if len(sortedKeys) < MinParticipants {
		return validationErr(fmt.Sprintf("minimum %d participants required", MinParticipants))
	}
	if len(sortedKeys) != len(r.Participants) {
		return validationErr(fmt.Sprintf(
			"sorted keys count (%d) must match participants count (%d)",
			len(sortedKeys), len(r.Participants)))
	}
	seen := make(map[string]struct{}, len(sortedKeys))
	for _, k := range sortedKeys {
		if _, dup := seen[k]; dup {
			return validationErr("duplicate keys in sorted list")
		}
		seen[k] = struct{}{}
	}

	next := r.clone()
	next.SortedKeys = append([]string(nil), sortedKeys...)
	next.Status = StatusSorted

	ok, err := s.commitIfVersion(next, r.Version)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	s.log.Info("room sorted", "roomID", id, "participants", len(sortedKeys))
	return nil
}

// PostMessage appends an encrypted address blob. The first successful post on
// a SORTED room transitions it to MESSAGING in the same write. Posts are
// capped at one per sorted key to prevent unbounded growth.
func (s *Store) PostMessage(id, blob string) error {
	return s.mutateWithRetry(id, func(r *Room) error {
		if r.Status == StatusOpen {
			return validationErr("cannot send messages before sorting")
		}
		if len(r.Messages) >= len(r.SortedKeys) {
			return validationErr("all participants have already submitted their addresses")
		}
		if r.Status == StatusSorted {
			r.Status = StatusMessaging
		}
		r.Messages = append(r.Messages, blob)
		return nil
	})
}

// mutateWithRetry runs the read-validate-mutate-commit cycle under the retry
// policy. mutate receives a private copy of the freshly read room; returning
// an error aborts without retries, since validation failures are decided
// against current state and will not heal by racing again.
func (s *Store) mutateWithRetry(id string, mutate func(*Room) error) error {
	for attempt := 0; attempt < s.retry.MaxAttempts; attempt++ {
		r, err := s.Get(id)
		if err != nil {
			return err
		}

		next := r.clone()
		if err := mutate(next); err != nil {
			return err
		}

		ok, err := s.commitIfVersion(next, r.Version)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		s.log.Debug("version conflict, retrying",
			"roomID", id, "attempt", attempt, "expectedVersion", r.Version)
		s.sleep(s.retry.Delay(attempt))
	}
	return ErrConflict
}

// commitIfVersion writes next with version expected+1 if the stored record
// still carries the expected version. The re-read and write happen under
// casMu so no two successful writers ever observe the same expected version.
func (s *Store) commitIfVersion(next *Room, expected int) (bool, error) {
	s.casMu.Lock()
	defer s.casMu.Unlock()

	current, err := s.Get(next.ID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if current.Version != expected {
		return false, nil
	}

	next.Version = expected + 1
	if err := s.write(next); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) write(r *Room) error {
	payload, err := r.marshal()
	if err != nil {
		return err
	}
	rec := store.Record{Payload: payload, CreatedAt: r.CreatedAt}
	if err := s.records.Put(r.ID, rec); err != nil {
		return fmt.Errorf("writing room %s: %w", r.ID, err)
	}
	return nil
}
