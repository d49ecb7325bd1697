package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"lecturmate/internal/domain"
)

var (
	bucketSnapshot   = []byte("snapshot")
	bucketTranscript = []byte("transcript")
	keySnapshot      = []byte("current")
)

// snapshotVersion guards the on-disk layout; a bump invalidates old files.
const snapshotVersion = 1

// BoltStore persists the session in a single bbolt file: the index snapshot
// as one versioned JSON blob, and the chat transcript as sequenced messages.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create session dir: %w", err)
	}

	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open session db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketSnapshot, bucketTranscript} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// SaveSnapshot replaces the stored snapshot. The snapshot is written as one
// blob so a crash can never leave chunks and vectors out of step on disk.
func (s *BoltStore) SaveSnapshot(snap domain.Snapshot) error {
	snap.Version = snapshotVersion
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSnapshot).Put(keySnapshot, data)
	})
}

// LoadSnapshot returns the stored snapshot if one exists. A snapshot built
// by a different embedding model is refused: its vectors live in another
// space and comparing them to fresh query vectors would be silent garbage.
func (s *BoltStore) LoadSnapshot(wantModel string) (domain.Snapshot, bool, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketSnapshot).Get(keySnapshot); v != nil {
			data = append(data, v...)
		}
		return nil
	})
	if err != nil {
		return domain.Snapshot{}, false, err
	}
	if data == nil {
		return domain.Snapshot{}, false, nil
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return domain.Snapshot{}, false, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	if snap.Model != wantModel {
		return domain.Snapshot{}, false, fmt.Errorf("%w: snapshot has %q, configured %q",
			domain.ErrModelMismatch, snap.Model, wantModel)
	}
	if len(snap.Chunks) != len(snap.Vectors) {
		return domain.Snapshot{}, false, fmt.Errorf("corrupt snapshot: %d chunks, %d vectors",
			len(snap.Chunks), len(snap.Vectors))
	}

	return snap, true, nil
}

func (s *BoltStore) AppendMessage(msg domain.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTranscript)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		var key [8]byte
		binary.BigEndian.PutUint64(key[:], seq)
		return b.Put(key[:], data)
	})
}

// Transcript returns all messages in insertion order.
func (s *BoltStore) Transcript() ([]domain.Message, error) {
	var messages []domain.Message
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTranscript).ForEach(func(k, v []byte) error {
			var msg domain.Message
			if err := json.Unmarshal(v, &msg); err != nil {
				return nil // skip corrupted entries
			}
			messages = append(messages, msg)
			return nil
		})
	})
	return messages, err
}

// Reset drops the snapshot and transcript.
func (s *BoltStore) Reset() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketSnapshot, bucketTranscript} {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
