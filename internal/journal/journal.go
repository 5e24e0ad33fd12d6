// Package journal records the objects uploaded by in-flight submissions so
// they can be deleted if the submission fails or the process dies.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const keyPrefix = "upload:"

// ErrNotFound is returned when no entry exists for a submission.
var ErrNotFound = errors.New("journal entry not found")

// Entry lists the object keys written on behalf of one submission.
type Entry struct {
	SubmissionID string    `json:"submission_id"`
	UserID       string    `json:"user_id"`
	Bucket       string    `json:"bucket"`
	Keys         []string  `json:"keys"`
	StartedAt    time.Time `json:"started_at"`
}

// Journal is a badger-backed upload journal.
type Journal struct {
	db     *badger.DB
	logger *slog.Logger
}

// Open opens (or creates) the journal at path.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	return open(badger.DefaultOptions(path).WithLogger(nil), logger)
}

// OpenInMemory opens a journal that keeps nothing on disk.
func OpenInMemory(logger *slog.Logger) (*Journal, error) {
	return open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil), logger)
}

func open(opts badger.Options, logger *slog.Logger) (*Journal, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func entryKey(submissionID string) []byte {
	return []byte(keyPrefix + submissionID)
}

// Begin starts an entry for a submission. Beginning an existing entry resets it.
func (j *Journal) Begin(ctx context.Context, submissionID, userID, bucket string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entry := Entry{
		SubmissionID: submissionID,
		UserID:       userID,
		Bucket:       bucket,
		Keys:         []string{},
		StartedAt:    time.Now(),
	}
	return j.db.Update(func(txn *badger.Txn) error {
		return putEntry(txn, &entry)
	})
}

// Record appends an object key to a submission's entry. It must be called
// before the object is written.
func (j *Journal) Record(ctx context.Context, submissionID, objectKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return j.db.Update(func(txn *badger.Txn) error {
		entry, err := getEntry(txn, submissionID)
		if err != nil {
			return err
		}
		if !slices.Contains(entry.Keys, objectKey) {
			entry.Keys = append(entry.Keys, objectKey)
		}
		return putEntry(txn, entry)
	})
}

// Get returns a submission's entry.
func (j *Journal) Get(submissionID string) (*Entry, error) {
	var entry *Entry
	err := j.db.View(func(txn *badger.Txn) error {
		var err error
		entry, err = getEntry(txn, submissionID)
		return err
	})
	return entry, err
}

// Clear removes a submission's entry. Clearing a missing entry is not an error.
func (j *Journal) Clear(ctx context.Context, submissionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return j.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(entryKey(submissionID))
	})
}

// StartedBefore returns every entry begun before cutoff.
func (j *Journal) StartedBefore(cutoff time.Time) ([]*Entry, error) {
	var out []*Entry
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var entry Entry
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				j.logger.Warn("skipping unreadable journal entry", "key", string(item.Key()), "error", err)
				continue
			}
			if entry.StartedAt.Before(cutoff) {
				out = append(out, &entry)
			}
		}
		return nil
	})
	return out, err
}

func getEntry(txn *badger.Txn, submissionID string) (*Entry, error) {
	item, err := txn.Get(entryKey(submissionID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var entry Entry
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entry)
	})
	if err != nil {
		return nil, fmt.Errorf("decode journal entry: %w", err)
	}
	return &entry, nil
}

func putEntry(txn *badger.Txn, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode journal entry: %w", err)
	}
	return txn.Set(entryKey(entry.SubmissionID), data)
}
