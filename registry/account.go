package registry

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/brollup/coordinator/cpe"
	"github.com/brollup/coordinator/crypto"
)

// AccountPersister is the durable side of an AccountRegistry: every newly
// assigned rank is written through to it, and a freshly constructed
// registry replays its full contents from it at startup. Implemented by
// store.RegistryStore; declared here to avoid an import cycle between
// registry and store.
type AccountPersister interface {
	PutAccount(rank uint32, account cpe.Account) error
	LoadAccounts() ([]cpe.Account, error)
}

const accountCacheSize = 4096

// AccountRegistry assigns a permanent, monotonically increasing rank to
// every account key it registers, and resolves both directions — key to
// rank and rank to account — for CPE encoding and decoding. It implements
// cpe.AccountLookup.
type AccountRegistry struct {
	mu       sync.RWMutex
	byKey    map[[32]byte]uint32
	byRank   map[uint32]cpe.Account
	nextRank uint32
	store    AccountPersister
	cache    *lru.Cache
}

// NewAccountRegistry builds an empty registry backed by store, replaying
// any previously persisted accounts.
func NewAccountRegistry(store AccountPersister) (*AccountRegistry, error) {
	cache, err := lru.New(accountCacheSize)
	if err != nil {
		return nil, err
	}
	r := &AccountRegistry{
		byKey:    make(map[[32]byte]uint32),
		byRank:   make(map[uint32]cpe.Account),
		nextRank: 1,
		store:    store,
		cache:    cache,
	}

	accounts, err := store.LoadAccounts()
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		rank, ok := a.Rank()
		if !ok {
			continue
		}
		r.install(rank, a)
	}
	return r, nil
}

// IsRegistered reports whether key already holds a rank.
func (r *AccountRegistry) IsRegistered(key crypto.Point) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byKey[key.XBytes()]
	return ok
}

// AccountByRank returns the account registered at rank, if any.
func (r *AccountRegistry) AccountByRank(rank uint32) (cpe.Account, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cached, ok := r.cache.Get(rank); ok {
		return cached.(cpe.Account), true
	}
	a, ok := r.byRank[rank]
	return a, ok
}

// AccountByKey returns the registered account for key, if any.
func (r *AccountRegistry) AccountByKey(key crypto.Point) (cpe.Account, bool) {
	r.mu.RLock()
	rank, ok := r.byKey[key.XBytes()]
	r.mu.RUnlock()
	if !ok {
		return cpe.Account{}, false
	}
	return r.AccountByRank(rank)
}

// Register assigns key the next available rank and registry index, persists
// it, and returns the resulting Account. A key may only be registered once.
func (r *AccountRegistry) Register(key crypto.Point) (cpe.Account, error) {
	if !key.IsEvenY() {
		return cpe.Account{}, ErrAccountKeyOddParity
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byKey[key.XBytes()]; ok {
		return cpe.Account{}, ErrAccountAlreadyRegistered
	}

	rank := r.nextRank
	account := cpe.NewRegisteredAccount(key, rank, rank)
	if err := r.store.PutAccount(rank, account); err != nil {
		return cpe.Account{}, err
	}

	r.byKey[key.XBytes()] = rank
	r.byRank[rank] = account
	r.cache.Add(rank, account)
	r.nextRank++
	return account, nil
}

// Len returns how many accounts are currently registered.
func (r *AccountRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byRank)
}

func (r *AccountRegistry) install(rank uint32, account cpe.Account) {
	r.byKey[account.Key().XBytes()] = rank
	r.byRank[rank] = account
	r.cache.Add(rank, account)
	if rank >= r.nextRank {
		r.nextRank = rank + 1
	}
}
