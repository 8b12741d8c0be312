// Package storage persists served predictions to BoltDB so the offline
// training pipeline can review live estimates against later sale prices.
// The journal is append-only on the request path; reads serve the
// /predictions/recent listing.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.etcd.io/bbolt"

	"homeval/internal/predict"
	"homeval/internal/schema"
)

const predictionsBucket = "predictions"

// Entry is one journaled prediction.
type Entry struct {
	At           time.Time     `json:"at"`
	Record       schema.Record `json:"record"`
	Price        float64       `json:"price"`
	Confidence   float64       `json:"confidence"`
	Tier         string        `json:"tier"`
	UsedFallback bool          `json:"used_fallback"`
}

// Store is a BoltDB-backed prediction journal.
type Store struct {
	db  *bbolt.DB
	seq atomic.Uint64
}

// New opens (or creates) the journal under dataPath.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "homeval-data.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(predictionsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create predictions bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// StorePrediction appends one served prediction. Keys are timestamp-ordered
// with a sequence suffix so concurrent requests in the same nanosecond do
// not collide.
func (s *Store) StorePrediction(rec schema.Record, res predict.Result) error {
	entry := Entry{
		At:           time.Now().UTC(),
		Record:       rec,
		Price:        res.Price,
		Confidence:   res.Confidence,
		Tier:         res.Tier.String(),
		UsedFallback: res.UsedFallback,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal prediction: %w", err)
	}

	key := make([]byte, 16)
	binary.BigEndian.PutUint64(key[:8], uint64(entry.At.UnixNano()))
	binary.BigEndian.PutUint64(key[8:], s.seq.Add(1))

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(predictionsBucket)).Put(key, data)
	})
}

// Recent returns the n most recent journal entries, newest first.
func (s *Store) Recent(n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	var out []Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(predictionsBucket)).Cursor()
		for k, v := c.Last(); k != nil && len(out) < n; k, v = c.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("corrupt journal entry: %w", err)
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

// Count returns the number of journaled predictions.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(predictionsBucket)).Stats().KeyN
		return nil
	})
	return n, err
}
