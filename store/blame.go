package store

import (
	bolt "go.etcd.io/bbolt"

	"github.com/brollup/coordinator/blame"
)

// BlameStore persists blame/blacklist records, implementing blame.Persister.
type BlameStore struct {
	db *DB
}

// PutBlame persists key's blame record.
func (s *BlameStore) PutBlame(key [32]byte, record blame.Record) error {
	buf, err := marshal(record)
	if err != nil {
		return err
	}
	return s.db.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(blameBucket).Put(key[:], buf)
	})
}

// LoadBlames replays every persisted blame record.
func (s *BlameStore) LoadBlames() (map[[32]byte]blame.Record, error) {
	out := make(map[[32]byte]blame.Record)
	err := s.db.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(blameBucket).ForEach(func(k, v []byte) error {
			var rec blame.Record
			if err := unmarshal(v, &rec); err != nil {
				return err
			}
			var key [32]byte
			copy(key[:], k)
			out[key] = rec
			return nil
		})
	})
	return out, err
}
