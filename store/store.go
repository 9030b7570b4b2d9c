// Package store persists every durable side of the coordinator — registered
// accounts and contracts, NOIST DKG setups, and blame/blacklist records — in
// a single bbolt database file, encoding records as JSON via the teacher's
// hexjson codec.
package store

import (
	"path"
	"sync"

	json "github.com/nikkolasg/hexjson"
	bolt "go.etcd.io/bbolt"

	"github.com/brollup/coordinator/log"
)

// FileName is the bbolt file the store opens within its data directory.
const FileName = "coordinator.db"

// OpenPerm is the permission used when creating the database file.
const OpenPerm = 0660

var (
	accountBucket  = []byte("accounts")
	contractBucket = []byte("contracts")
	setupBucket    = []byte("setups")
	blameBucket    = []byte("blames")
)

// DB is the shared bbolt handle every sub-store reads and writes through.
type DB struct {
	sync.Mutex
	db  *bolt.DB
	log log.Logger
}

// Open opens (creating if absent) the bbolt file under folder and ensures
// every bucket the coordinator needs exists.
func Open(folder string, l log.Logger) (*DB, error) {
	dbPath := path.Join(folder, FileName)
	bdb, err := bolt.Open(dbPath, OpenPerm, nil)
	if err != nil {
		return nil, err
	}

	err = bdb.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{accountBucket, contractBucket, setupBucket, blameBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = bdb.Close()
		return nil, err
	}

	return &DB{db: bdb, log: l}, nil
}

// Close releases the underlying bbolt file.
func (d *DB) Close() error {
	err := d.db.Close()
	if err != nil {
		d.log.Errorw("", "store", "close", "err", err)
	}
	return err
}

// Registry returns a RegistryStore backed by d.
func (d *DB) Registry() *RegistryStore { return &RegistryStore{db: d} }

// Setups returns a SetupStore backed by d.
func (d *DB) Setups() *SetupStore { return &SetupStore{db: d} }

// Blames returns a BlameStore backed by d.
func (d *DB) Blames() *BlameStore { return &BlameStore{db: d} }

func marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
