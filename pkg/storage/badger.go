package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"forum-scraper/pkg/config"
	"forum-scraper/pkg/log"
	"forum-scraper/pkg/models"
	"forum-scraper/pkg/utils"
)

const (
	maxConflictRetries = 10
	badgerTxnRecords   = 500 // Records per update transaction
)

// BadgerSink is a schemaless document store: one JSON document per record
// under the key "<collection>:<uuid>".
type BadgerSink struct {
	db         *badger.DB
	path       string
	collection string
	log        *logrus.Entry
}

// NewBadgerSink opens or creates the badger directory at cfg.Path
func NewBadgerSink(cfg config.SinkConfig, logger *logrus.Entry) (*BadgerSink, error) {
	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("%w: %w: cannot create directory %s: %w", utils.ErrSink, utils.ErrFilesystem, cfg.Path, err)
	}

	badgerLogger := log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))
	opts := badger.DefaultOptions(cfg.Path).
		WithLogger(badgerLogger).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: failed to open badger database at %s: %w", utils.ErrSink, utils.ErrDatabase, cfg.Path, err)
	}
	logger.Infof("Badger sink ready at %s, collection '%s'", cfg.Path, cfg.Collection)
	return &BadgerSink{db: db, path: cfg.Path, collection: cfg.Collection, log: logger}, nil
}

func (s *BadgerSink) prefix() []byte {
	return []byte(s.collection + ":")
}

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction conflicts.
func (s *BadgerSink) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := range maxConflictRetries {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// Write stores one document per record
func (s *BadgerSink) Write(ctx context.Context, result models.CrawlResult) error {
	records := orderedRecords(result)
	for i := 0; i < len(records); i += badgerTxnRecords {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", utils.ErrSink, err)
		}
		chunk := records[i:min(i+badgerTxnRecords, len(records))]
		err := s.dbUpdate(func(txn *badger.Txn) error {
			for _, r := range chunk {
				doc, err := json.Marshal(r)
				if err != nil {
					return fmt.Errorf("marshal %s: %w", r.URL, err)
				}
				key := append(s.prefix(), []byte(uuid.NewString())...)
				if err := txn.SetEntry(badger.NewEntry(key, doc)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("%w: %w: writing documents to '%s': %w", utils.ErrSink, utils.ErrDatabase, s.collection, err)
		}
	}
	s.log.Infof("Stored %d documents in collection '%s'", len(records), s.collection)
	return nil
}

// Count returns the number of documents in the collection
func (s *BadgerSink) Count() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = s.prefix()
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: counting '%s': %w", utils.ErrDatabase, s.collection, err)
	}
	return count, nil
}

// Documents returns every document in the collection, keyed by document ID
func (s *BadgerSink) Documents() (map[string]models.PostRecord, error) {
	docs := make(map[string]models.PostRecord)
	prefix := s.prefix()
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id := string(item.Key()[len(prefix):])
			err := item.Value(func(val []byte) error {
				var r models.PostRecord
				if err := json.Unmarshal(val, &r); err != nil {
					return fmt.Errorf("document %s: %w", id, err)
				}
				docs[id] = r
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: reading '%s': %w", utils.ErrDatabase, s.collection, err)
	}
	return docs, nil
}

// Close closes the database
func (s *BadgerSink) Close() error {
	if s.db == nil || s.db.IsClosed() {
		return nil
	}
	s.log.Debug("Closing badger sink...")
	if err := s.db.Close(); err != nil {
		s.log.Errorf("Error closing badger sink: %v", err)
		return fmt.Errorf("%w: closing badger at %s: %w", utils.ErrDatabase, s.path, err)
	}
	return nil
}
