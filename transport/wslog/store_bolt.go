package wslog

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"time"

	"github.com/jupyterlab-contrib/jupyterlab-js-logs/adapter"
	C "github.com/jupyterlab-contrib/jupyterlab-js-logs/constant"
	E "github.com/sagernet/sing/common/exceptions"

	"github.com/sagernet/bbolt"
)

var _ adapter.LineStore = (*BoltStore)(nil)

var bucketLogger = []byte(C.LoggerPath)

// BoltStore keeps client logs in a bbolt database, one bucket per client
// with lines keyed by sequence.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return nil, E.Cause(err, "create store directory")
	}
	db, err := bbolt.Open(path, 0o644, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, E.Cause(err, "open store")
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketLogger)
		return err
	})
	if err != nil {
		db.Close()
		return nil, E.Cause(err, "initialize store")
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Open(id string) (int, error) {
	var lines int
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.Bucket(bucketLogger).CreateBucketIfNotExists([]byte(id))
		if err != nil {
			return err
		}
		lines = int(bucket.Sequence())
		return nil
	})
	if err != nil {
		return 0, E.Cause(err, "open log for ", id)
	}
	return lines, nil
}

func (s *BoltStore) Append(id string, line string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.Bucket(bucketLogger).CreateBucketIfNotExists([]byte(id))
		if err != nil {
			return err
		}
		sequence, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, sequence)
		return bucket.Put(key, []byte(line))
	})
	if err != nil {
		return E.Cause(err, "append to log for ", id)
	}
	return nil
}

func (s *BoltStore) Lines(id string) ([]string, error) {
	var lines []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketLogger).Bucket([]byte(id))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(key, value []byte) error {
			lines = append(lines, string(value))
			return nil
		})
	})
	if err != nil {
		return nil, E.Cause(err, "read log for ", id)
	}
	return lines, nil
}

func (s *BoltStore) Release(id string) error {
	return nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
