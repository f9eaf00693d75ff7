package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var (
	snapshotBucket = []byte("mailbox")
	snapshotKey    = []byte("state")
)

// BoltSnapshots stores mailbox snapshots in a BoltDB file
type BoltSnapshots struct {
	db *bbolt.DB
}

// OpenBoltSnapshots opens (or creates) the snapshot database at path
func OpenBoltSnapshots(path string) (*BoltSnapshots, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(snapshotBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize bucket: %w", err)
	}

	return &BoltSnapshots{db: db}, nil
}

// Close closes the database
func (s *BoltSnapshots) Close() error {
	return s.db.Close()
}

// Save replaces the stored snapshot
func (s *BoltSnapshots) Save(snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(snapshotBucket).Put(snapshotKey, data)
	})
}

// Load returns the stored snapshot, or nil when nothing was saved yet
func (s *BoltSnapshots) Load() (*Snapshot, error) {
	var snap *Snapshot

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(snapshotBucket).Get(snapshotKey)
		if data == nil {
			return nil
		}
		snap = &Snapshot{}
		return json.Unmarshal(data, snap)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	return snap, nil
}
