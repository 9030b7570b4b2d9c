// Package blame tracks senders who failed to uphold a round's
// commitments, escalating their blacklist window exponentially on
// repeat offense.
package blame

import (
	"errors"
	"math"
	"sync"

	clock "github.com/jonboulle/clockwork"

	"github.com/brollup/coordinator/crypto"
)

// initialBlameSecsWindow is the flat blacklist window applied on a
// sender's first offense, before the exponential curve kicks in.
const initialBlameSecsWindow uint64 = 5

// maxSafeExponent caps 2^n before it would overflow uint64; beyond it the
// window is treated as an effective permaban rather than wrapping.
const maxSafeExponent = 63

// Record is one sender's blame state: how many times it has offended,
// and the unix timestamp its blacklist currently runs until.
type Record struct {
	BlameCount       uint16
	BlacklistedUntil uint64
}

// Persister durably records blame state. Implemented by store; declared
// here to avoid an import cycle.
type Persister interface {
	PutBlame(key [32]byte, record Record) error
	LoadBlames() (map[[32]byte]Record, error)
}

// Directory is the in-memory blacklist, backed by a Persister for
// durability across restarts.
type Directory struct {
	mu    sync.Mutex
	list  map[[32]byte]Record
	store Persister
	clock clock.Clock
}

// NewDirectory builds a Directory, replaying any previously persisted
// blame records.
func NewDirectory(store Persister) (*Directory, error) {
	if store == nil {
		return nil, ErrNilPersister
	}
	list, err := store.LoadBlames()
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = make(map[[32]byte]Record)
	}
	return &Directory{
		list:  list,
		store: store,
		clock: clock.NewRealClock(),
	}, nil
}

// ErrNilPersister is returned when constructing a Directory without a
// Persister.
var ErrNilPersister = errors.New("blame: a persister is required")

// Blame escalates key's blacklist window: a flat initial window on the
// first offense, then now + 2^blame_count seconds on every repeat,
// saturating at a permaban once blame_count reaches u16 max.
func (d *Directory) Blame(key crypto.Point) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	xb := key.XBytes()
	now := uint64(d.clock.Now().Unix())

	current, ok := d.list[xb]
	var next Record
	switch {
	case !ok:
		next = Record{BlameCount: 1, BlacklistedUntil: now + initialBlameSecsWindow}
	case current.BlameCount < math.MaxUint16:
		count := current.BlameCount + 1
		until := now + pow2Saturating(count)
		if count == math.MaxUint16 {
			until = math.MaxUint64
		}
		next = Record{BlameCount: count, BlacklistedUntil: until}
	default:
		next = Record{BlameCount: current.BlameCount, BlacklistedUntil: math.MaxUint64}
	}

	d.list[xb] = next
	return d.store.PutBlame(xb, next)
}

// IsBlacklisted reports whether key is currently barred, i.e. its
// blacklist window has not yet elapsed. Implements session.Blacklist.
func (d *Directory) IsBlacklisted(key crypto.Point) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, ok := d.list[key.XBytes()]
	if !ok {
		return false
	}
	return rec.BlacklistedUntil > uint64(d.clock.Now().Unix())
}

// Record returns key's current blame record, if any.
func (d *Directory) Record(key crypto.Point) (Record, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.list[key.XBytes()]
	return rec, ok
}

// Len returns the number of senders with any blame record, blacklisted or
// not.
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.list)
}

func pow2Saturating(exponent uint16) uint64 {
	if exponent > maxSafeExponent {
		return math.MaxUint64 / 2
	}
	return uint64(1) << exponent
}
