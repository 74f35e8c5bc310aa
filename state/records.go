// Package state persists raw activity records. The in-memory collection
// is a cache over this store: evicted activities can be rebuilt from
// their records, and the web daemon restores the collection from here at
// boot.
package state

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.etcd.io/bbolt"

	"github.com/rotblauer/dotd/params"
	"github.com/rotblauer/dotd/types/activity"
)

// RecordStore is a bbolt-backed store of raw records keyed by activity
// id, with a read-through LRU of decoded records in front of it.
// Opening a writable conn takes a file lock; one store per datadir.
type RecordStore struct {
	DB     *bbolt.DB
	cache  *lru.Cache[int64, *activity.RawRecord]
	logger *slog.Logger
}

func NewRecordStore(dataDir string) (*RecordStore, error) {
	if err := os.MkdirAll(dataDir, 0770); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(filepath.Join(dataDir, params.RecordsDBName), 0660, nil)
	if err != nil {
		return nil, err
	}
	cache, err := lru.New[int64, *activity.RawRecord](params.RecordReadCacheSize)
	if err != nil {
		return nil, err
	}
	return &RecordStore{
		DB:     db,
		cache:  cache,
		logger: slog.With("d", "state"),
	}, nil
}

func (s *RecordStore) Close() error {
	return s.DB.Close()
}

func recordKey(id int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}

// Write persists one record, overwriting any previous version.
func (s *RecordStore) Write(rec *activity.RawRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	err = s.DB.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(params.RecordsBucket))
		if err != nil {
			return err
		}
		return b.Put(recordKey(int64(rec.ID)), data)
	})
	if err != nil {
		return err
	}
	s.cache.Add(int64(rec.ID), rec)
	return nil
}

// WriteBatch persists a batch of records in one transaction.
// Much cheaper than per-record writes during bulk populate.
func (s *RecordStore) WriteBatch(recs []*activity.RawRecord) error {
	if len(recs) == 0 {
		return nil
	}
	err := s.DB.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(params.RecordsBucket))
		if err != nil {
			return err
		}
		for _, rec := range recs {
			data, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			if err := b.Put(recordKey(int64(rec.ID)), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, rec := range recs {
		s.cache.Add(int64(rec.ID), rec)
	}
	return nil
}

// Read returns the record by id.
func (s *RecordStore) Read(id int64) (*activity.RawRecord, error) {
	if rec, ok := s.cache.Get(id); ok {
		return rec, nil
	}
	rec := &activity.RawRecord{}
	err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(params.RecordsBucket))
		if b == nil {
			return fmt.Errorf("no records bucket")
		}
		data := b.Get(recordKey(id))
		if data == nil {
			return fmt.Errorf("no record %d", id)
		}
		return json.Unmarshal(data, rec)
	})
	if err != nil {
		return nil, err
	}
	s.cache.Add(id, rec)
	return rec, nil
}

// Count returns the number of stored records.
func (s *RecordStore) Count() (n int, err error) {
	err = s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(params.RecordsBucket))
		if b == nil {
			return nil
		}
		n = b.Stats().KeyN
		return nil
	})
	return n, err
}

// Scan streams all stored records in key (id) order.
func (s *RecordStore) Scan(ctx context.Context) (<-chan *activity.RawRecord, <-chan error) {
	out := make(chan *activity.RawRecord)
	errs := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errs)
		errs <- s.DB.View(func(tx *bbolt.Tx) error {
			b := tx.Bucket([]byte(params.RecordsBucket))
			if b == nil {
				return nil
			}
			return b.ForEach(func(_, v []byte) error {
				rec := &activity.RawRecord{}
				if err := json.Unmarshal(v, rec); err != nil {
					s.logger.Error("Failed to decode stored record", "error", err)
					return nil
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case out <- rec:
				}
				return nil
			})
		})
	}()
	return out, errs
}
