package noist

import (
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/brollup/coordinator/crypto"
	"github.com/brollup/coordinator/noist/vse"
)

// SessionState is the lifecycle of one nonce (or key-generation) slot.
type SessionState int

const (
	// SessionFilling is collecting dealer share maps; fewer than threshold
	// have verified so far.
	SessionFilling SessionState = iota
	// SessionFilled has at least threshold verified dealer share maps and
	// can be drawn into a signing use.
	SessionFilled
	// SessionConsumed has already been handed out by Directory.PickIndex
	// and must never be reused.
	SessionConsumed
)

// Session collects ShareMaps from at least threshold dealers for a single
// key-generation or nonce slot. The same type backs both the one
// key-generation session a Directory owns and every nonce session in its
// pool — both are "agree on a group point via Σ constant terms" instances
// of the identical protocol.
type Session struct {
	mu           sync.RWMutex
	signatories  []crypto.Point
	threshold    int
	dealers      map[[32]byte]*ShareMap
	state        SessionState
}

// NewSession starts an empty, filling session for the given signatory set.
func NewSession(signatories []crypto.Point) *Session {
	ordered := SortSignatories(signatories)
	return &Session{
		signatories: ordered,
		threshold:   len(ordered)/2 + 1,
		dealers:     make(map[[32]byte]*ShareMap),
		state:       SessionFilling,
	}
}

// Threshold returns the minimum number of dealers required to fill.
func (s *Session) Threshold() int {
	return s.threshold
}

// State returns the session's current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// DealerCount returns how many share maps have been accepted so far.
func (s *Session) DealerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.dealers)
}

// InsertShareMap verifies and accepts a dealer's ShareMap. It enforces: the
// dealer is a member of the signatory set, has not already contributed, the
// map covers every signatory, and both VSS and VSE verification pass against
// setup. Once threshold distinct dealers have been accepted the session
// transitions to Filled.
func (s *Session) InsertShareMap(dealer *ShareMap, setup *vse.Setup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SessionConsumed {
		return ErrSessionAlreadyConsumed
	}

	signatory := dealer.Signatory()
	if !containsPoint(s.signatories, signatory) {
		return ErrDealerNotSignatory
	}
	if _, ok := s.dealers[signatory.XBytes()]; ok {
		return ErrShareMapAlreadyPresent
	}
	if !dealer.IsComplete(s.signatories) {
		return ErrShareMapIncomplete
	}
	if !dealer.VSSVerify() {
		return ErrShareMapVSSInvalid
	}
	if !dealer.VSEVerify(setup) {
		return ErrShareMapVSEInvalid
	}

	s.dealers[signatory.XBytes()] = dealer
	if len(s.dealers) >= s.threshold {
		s.state = SessionFilled
	}
	return nil
}

// InsertShareMaps inserts a whole batch of dealer share maps, aggregating
// every rejected dealer's error into one returned error instead of stopping
// at the first failure — a round's key-map or nonce-filling exchange
// delivers every dealer's contribution together, and one malformed dealer
// should not hide the rest.
func (s *Session) InsertShareMaps(dealers []*ShareMap, setup *vse.Setup) error {
	var errs *multierror.Error
	for _, dealer := range dealers {
		if err := s.InsertShareMap(dealer, setup); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

// AggregateConstant sums the constant-term commitments of every accepted
// dealer, producing the group point for this slot (the DKG group public key
// when this is the key-generation session, or the aggregate nonce point
// when this is a nonce-pool session).
func (s *Session) AggregateConstant() (crypto.Point, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.dealers) == 0 {
		return crypto.Point{}, false
	}
	var sum crypto.Point
	first := true
	for _, dealer := range s.dealers {
		c, ok := dealer.ConstantPoint()
		if !ok {
			return crypto.Point{}, false
		}
		if first {
			sum = c
			first = false
			continue
		}
		sum = sum.Add(c)
	}
	return sum, true
}

// Consume transitions a Filled session to Consumed, enforcing the
// once-returned, never-again invariant nonce-slot picking depends on.
func (s *Session) Consume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionFilled {
		return ErrSessionAlreadyConsumed
	}
	s.state = SessionConsumed
	return nil
}

// Dealers returns the accepted share maps, keyed by signatory xonly bytes.
func (s *Session) Dealers() map[[32]byte]*ShareMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[[32]byte]*ShareMap, len(s.dealers))
	for k, v := range s.dealers {
		out[k] = v
	}
	return out
}

func containsPoint(list []crypto.Point, p crypto.Point) bool {
	for _, q := range list {
		if q.Equal(p) {
			return true
		}
	}
	return false
}
