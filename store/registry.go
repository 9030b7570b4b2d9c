package store

import (
	"encoding/binary"

	bolt "go.etcd.io/bbolt"

	"github.com/brollup/coordinator/cpe"
	"github.com/brollup/coordinator/crypto"
)

// RegistryStore persists registered accounts and contracts, implementing
// registry.Persister.
type RegistryStore struct {
	db *DB
}

type accountRecord struct {
	Key           [32]byte
	RegistryIndex uint32
	Rank          uint32
}

type contractRecord struct {
	ID            [32]byte
	RegistryIndex uint32
}

func uint32Key(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// PutAccount persists account at rank.
func (s *RegistryStore) PutAccount(rank uint32, account cpe.Account) error {
	index, _ := account.RegistryIndex()
	rec := accountRecord{Key: account.Key().XBytes(), RegistryIndex: index, Rank: rank}
	buf, err := marshal(rec)
	if err != nil {
		return err
	}
	return s.db.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(accountBucket).Put(uint32Key(rank), buf)
	})
}

// LoadAccounts replays every persisted account.
func (s *RegistryStore) LoadAccounts() ([]cpe.Account, error) {
	var out []cpe.Account
	err := s.db.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(accountBucket).ForEach(func(_, v []byte) error {
			var rec accountRecord
			if err := unmarshal(v, &rec); err != nil {
				return err
			}
			key, err := crypto.NewPointFromXOnly(rec.Key)
			if err != nil {
				return err
			}
			out = append(out, cpe.NewRegisteredAccount(key, rec.RegistryIndex, rec.Rank))
			return nil
		})
	})
	return out, err
}

// PutContract persists contract at its registry index.
func (s *RegistryStore) PutContract(index uint32, contract cpe.Contract) error {
	rec := contractRecord{ID: contract.ID(), RegistryIndex: contract.RegistryIndex()}
	buf, err := marshal(rec)
	if err != nil {
		return err
	}
	return s.db.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(contractBucket).Put(uint32Key(index), buf)
	})
}

// LoadContracts replays every persisted contract.
func (s *RegistryStore) LoadContracts() ([]cpe.Contract, error) {
	var out []cpe.Contract
	err := s.db.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(contractBucket).ForEach(func(_, v []byte) error {
			var rec contractRecord
			if err := unmarshal(v, &rec); err != nil {
				return err
			}
			out = append(out, cpe.NewContract(rec.ID, rec.RegistryIndex))
			return nil
		})
	})
	return out, err
}
