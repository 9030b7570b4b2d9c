package noist

import (
	"sort"
	"sync"

	"github.com/brollup/coordinator/crypto"
	"github.com/brollup/coordinator/noist/vse"
)

// Directory owns everything produced by one DKG setup: the key-generation
// session that yields the group public key, and a pool of pre-generated
// nonce sessions signing operations draw from one at a time.
type Directory struct {
	mu          sync.Mutex
	height      uint64
	signatories []crypto.Point
	setup       *vse.Setup
	keygen      *Session
	noncePool   map[uint32]*Session
	nextIndex   uint32
}

// NewDirectory starts a directory at height for signatories, with setup as
// its (not yet necessarily validated) VSE setup.
func NewDirectory(height uint64, signatories []crypto.Point, setup *vse.Setup) *Directory {
	return &Directory{
		height:      height,
		signatories: SortSignatories(signatories),
		setup:       setup,
		keygen:      NewSession(signatories),
		noncePool:   make(map[uint32]*Session),
		nextIndex:   1,
	}
}

// Height returns the DKG height this directory belongs to.
func (d *Directory) Height() uint64 { return d.height }

// Signatories returns the fixed signatory set.
func (d *Directory) Signatories() []crypto.Point {
	return append([]crypto.Point{}, d.signatories...)
}

// Setup returns the directory's VSE setup.
func (d *Directory) Setup() *vse.Setup { return d.setup }

// KeyGenSession returns the directory's single key-generation session.
func (d *Directory) KeyGenSession() *Session { return d.keygen }

// GroupKey returns the aggregate DKG group public key once the
// key-generation session has filled.
func (d *Directory) GroupKey() (crypto.Point, bool) {
	if d.keygen.State() == SessionFilling {
		return crypto.Point{}, false
	}
	return d.keygen.AggregateConstant()
}

// AppendNonceSessions adds n fresh, empty nonce sessions to the pool,
// returning their assigned indices.
func (d *Directory) AppendNonceSessions(n int) []uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	indices := make([]uint32, 0, n)
	for i := 0; i < n; i++ {
		idx := d.nextIndex
		d.nextIndex++
		d.noncePool[idx] = NewSession(d.signatories)
		indices = append(indices, idx)
	}
	return indices
}

// NonceSession returns the nonce session at index, if any.
func (d *Directory) NonceSession(index uint32) (*Session, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.noncePool[index]
	return s, ok
}

// PoolSize returns how many nonce sessions exist in the pool, Filled or
// still Filling, used by the preprocessor to know how many more batches
// are needed to reach its target.
func (d *Directory) PoolSize() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.noncePool)
}

// PoolDepth returns how many nonce sessions are Filled and not yet consumed.
func (d *Directory) PoolDepth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	depth := 0
	for _, s := range d.noncePool {
		if s.State() == SessionFilled {
			depth++
		}
	}
	return depth
}

// PickIndex atomically selects the lowest-indexed Filled, unconsumed nonce
// session, marks it Consumed, and returns it — all under the directory's own
// lock so no other caller can observe or claim the same slot. This is the
// single synchronous step the concurrency model requires: nothing may
// suspend between picking the slot and installing it into a signing
// context.
func (d *Directory) PickIndex() (uint32, *Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	indices := make([]uint32, 0, len(d.noncePool))
	for idx := range d.noncePool {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	for _, idx := range indices {
		session := d.noncePool[idx]
		if session.State() == SessionFilled {
			if err := session.Consume(); err != nil {
				continue
			}
			return idx, session, nil
		}
	}
	return 0, nil, ErrNoNonceSessionsAvailable
}
