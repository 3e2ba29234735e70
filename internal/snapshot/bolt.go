package snapshot

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const bucketSnapshots = "snapshots"

// Bolt keeps snapshots in a bbolt file. Each value is the save time in
// Unix seconds, big endian, followed by the encoded data.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens or creates the bbolt file at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketSnapshots))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Bolt{db: db}, nil
}

func (s *Bolt) Save(_ context.Context, name string, data map[string]any) error {
	b, err := encode(data)
	if err != nil {
		return err
	}
	v := make([]byte, 8, 8+len(b))
	binary.BigEndian.PutUint64(v, uint64(now().Unix()))
	v = append(v, b...)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSnapshots)).Put([]byte(name), v)
	})
}

func (s *Bolt) Load(_ context.Context, name string) (map[string]any, error) {
	var payload []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketSnapshots)).Get([]byte(name))
		if v == nil {
			return fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		if len(v) < 8 {
			return fmt.Errorf("%s: truncated snapshot", name)
		}
		payload = append([]byte(nil), v[8:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decode(payload)
}

func (s *Bolt) List(context.Context) ([]Info, error) {
	var out []Info
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSnapshots)).ForEach(func(k, v []byte) error {
			if len(v) < 8 {
				return nil
			}
			out = append(out, Info{
				Name:    string(k),
				SavedAt: time.Unix(int64(binary.BigEndian.Uint64(v)), 0).UTC(),
				Size:    len(v) - 8,
			})
			return nil
		})
	})
	return out, err
}

func (s *Bolt) Delete(_ context.Context, name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSnapshots)).Delete([]byte(name))
	})
}

func (s *Bolt) Close() error { return s.db.Close() }
