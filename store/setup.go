package store

import (
	"encoding/binary"

	bolt "go.etcd.io/bbolt"

	"github.com/brollup/coordinator/crypto"
	"github.com/brollup/coordinator/noist/vse"
)

// SetupStore persists every validated NOIST VSE setup by DKG directory
// height, implementing noist.SetupPersister.
type SetupStore struct {
	db *DB
}

type setupRecord struct {
	Height      uint64
	Signatories [][32]byte
	KeyMaps     []vse.KeyMapRecord
}

func uint64Key(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// PutSetup persists setup at height alongside its fixed signatory list.
func (s *SetupStore) PutSetup(height uint64, signatories []crypto.Point, setup *vse.Setup) error {
	_, exportedSigners, records := setup.Export()
	signers := exportedSigners
	if len(signers) == 0 {
		signers = signatories
	}

	rec := setupRecord{Height: height}
	rec.Signatories = make([][32]byte, len(signers))
	for i, p := range signers {
		rec.Signatories[i] = p.XBytes()
	}
	rec.KeyMaps = records

	buf, err := marshal(rec)
	if err != nil {
		return err
	}
	return s.db.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(setupBucket).Put(uint64Key(height), buf)
	})
}

// LoadSetup restores the setup persisted at height, if any.
func (s *SetupStore) LoadSetup(height uint64) ([]crypto.Point, *vse.Setup, bool, error) {
	var rec setupRecord
	found := false
	err := s.db.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(setupBucket).Get(uint64Key(height))
		if v == nil {
			return nil
		}
		found = true
		return unmarshal(v, &rec)
	})
	if err != nil || !found {
		return nil, nil, found, err
	}

	signatories := make([]crypto.Point, len(rec.Signatories))
	for i, xb := range rec.Signatories {
		p, err := crypto.NewPointFromXOnly(xb)
		if err != nil {
			return nil, nil, true, err
		}
		signatories[i] = p
	}

	setup, err := vse.RehydrateSetup(height, signatories, rec.KeyMaps)
	if err != nil {
		return nil, nil, true, err
	}
	return signatories, setup, true, nil
}

// Heights returns every DKG directory height with a persisted setup.
func (s *SetupStore) Heights() ([]uint64, error) {
	var out []uint64
	err := s.db.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(setupBucket).ForEach(func(k, _ []byte) error {
			out = append(out, binary.BigEndian.Uint64(k))
			return nil
		})
	})
	return out, err
}
