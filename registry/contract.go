package registry

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/brollup/coordinator/cpe"
)

// ContractPersister is the durable side of a ContractRegistry, mirroring
// AccountPersister. Implemented by store.RegistryStore.
type ContractPersister interface {
	PutContract(index uint32, contract cpe.Contract) error
	LoadContracts() ([]cpe.Contract, error)
}

const contractCacheSize = 4096

// ContractRegistry assigns a permanent registry index to every contract id
// it registers. Unlike accounts, contracts have no unregistered fallback:
// every Contract that reaches CPE encoding must already hold an index. It
// implements cpe.ContractLookup.
type ContractRegistry struct {
	mu        sync.RWMutex
	byID      map[[32]byte]uint32
	byIndex   map[uint32]cpe.Contract
	nextIndex uint32
	store     ContractPersister
	cache     *lru.Cache
}

// NewContractRegistry builds an empty registry backed by store, replaying
// any previously persisted contracts.
func NewContractRegistry(store ContractPersister) (*ContractRegistry, error) {
	cache, err := lru.New(contractCacheSize)
	if err != nil {
		return nil, err
	}
	r := &ContractRegistry{
		byID:      make(map[[32]byte]uint32),
		byIndex:   make(map[uint32]cpe.Contract),
		nextIndex: 1,
		store:     store,
		cache:     cache,
	}

	contracts, err := store.LoadContracts()
	if err != nil {
		return nil, err
	}
	for _, c := range contracts {
		r.install(c.RegistryIndex(), c)
	}
	return r, nil
}

// ContractByRegistryIndex returns the contract registered at index, if any.
func (r *ContractRegistry) ContractByRegistryIndex(index uint32) (cpe.Contract, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cached, ok := r.cache.Get(index); ok {
		return cached.(cpe.Contract), true
	}
	c, ok := r.byIndex[index]
	return c, ok
}

// ContractByID returns the registered contract for id, if any.
func (r *ContractRegistry) ContractByID(id [32]byte) (cpe.Contract, bool) {
	r.mu.RLock()
	index, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return cpe.Contract{}, false
	}
	return r.ContractByRegistryIndex(index)
}

// IsRegistered reports whether id already holds a registry index.
func (r *ContractRegistry) IsRegistered(id [32]byte) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok
}

// Register assigns id the next available registry index, persists it, and
// returns the resulting Contract.
func (r *ContractRegistry) Register(id [32]byte) (cpe.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; ok {
		return cpe.Contract{}, ErrContractAlreadyRegistered
	}

	index := r.nextIndex
	contract := cpe.NewContract(id, index)
	if err := r.store.PutContract(index, contract); err != nil {
		return cpe.Contract{}, err
	}

	r.byID[id] = index
	r.byIndex[index] = contract
	r.cache.Add(index, contract)
	r.nextIndex++
	return contract, nil
}

// Len returns how many contracts are currently registered.
func (r *ContractRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byIndex)
}

func (r *ContractRegistry) install(index uint32, contract cpe.Contract) {
	r.byID[contract.ID()] = index
	r.byIndex[index] = contract
	r.cache.Add(index, contract)
	if index >= r.nextIndex {
		r.nextIndex = index + 1
	}
}
