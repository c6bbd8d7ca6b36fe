// Package idempotency remembers the first response to a request carrying
// an Idempotency-Key so that a client re-submitting it (after a timeout or
// a dropped connection) gets the same answer instead of a second donation.
//
// Records live in a local BoltDB file. Reserve runs inside a single bolt
// write transaction, and bolt serializes write transactions, so two
// concurrent requests with the same key cannot both reserve it.
package idempotency

import (
	"encoding/json"
	"errors"
	"time"

	bolt "github.com/boltdb/bolt"
)

const bucketName = "idempotency_keys"

// ErrNotFound is returned when no record exists for a key.
var ErrNotFound = errors.New("idempotency record not found")

// Record is the stored state for one key. Status is zero while the first
// request is still being handled.
type Record struct {
	Fingerprint string     `json:"fingerprint"`
	Status      int        `json:"status,omitempty"`
	ContentType string     `json:"contentType,omitempty"`
	Body        []byte     `json:"body,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func (r Record) Completed() bool { return r.Status != 0 }

type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the store file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// Reserve claims key for a request with the given fingerprint.
//
// Returns (new, true, nil) when the key was free and is now reserved.
// Returns (existing, false, nil) when the key was already taken, whether the
// earlier request finished or not.
func (s *Store) Reserve(key, fingerprint string) (*Record, bool, error) {
	var result Record
	reserved := false

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		if existing := b.Get([]byte(key)); existing != nil {
			return json.Unmarshal(existing, &result)
		}

		result = Record{Fingerprint: fingerprint, CreatedAt: time.Now().UTC()}
		data, err := json.Marshal(result)
		if err != nil {
			return err
		}
		reserved = true
		return b.Put([]byte(key), data)
	})
	if err != nil {
		return nil, false, err
	}

	return &result, reserved, nil
}

// Complete stores the response for a reserved key.
func (s *Store) Complete(key string, status int, contentType string, body []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		raw := b.Get([]byte(key))
		if raw == nil {
			return ErrNotFound
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}

		now := time.Now().UTC()
		rec.Status = status
		rec.ContentType = contentType
		rec.Body = body
		rec.CompletedAt = &now

		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
}

// Release forgets a reservation so the key can be retried. Releasing an
// unknown key is not an error.
func (s *Store) Release(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(key))
	})
}

func (s *Store) Lookup(key string) (*Record, error) {
	var rec Record

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketName)).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// Purge deletes records created before cutoff and reports how many went.
func (s *Store) Purge(cutoff time.Time) (int, error) {
	removed := 0

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		// bolt cursors skip entries when deleting mid-iteration
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if rec.CreatedAt.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})

	return removed, err
}
