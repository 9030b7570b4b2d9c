package musig2

import (
	"errors"
	"sync"

	"github.com/brollup/coordinator/crypto"
)

// SessionState is the two-round lifecycle of one MuSig2 signing session.
type SessionState int

const (
	// SessionCollectingNonces is waiting on every signer's public nonce pair.
	SessionCollectingNonces SessionState = iota
	// SessionCollectingSigs has a locked aggregate nonce and challenge, and
	// is waiting on every signer's partial signature.
	SessionCollectingSigs
	// SessionFinalized has produced and verified the aggregate signature.
	SessionFinalized
)

var (
	// ErrUnknownSigner is returned for a key outside the session's key
	// aggregation context.
	ErrUnknownSigner = errors.New("musig2: key is not a member of this session")
	// ErrNonceAlreadyInserted is returned for a duplicate nonce submission.
	ErrNonceAlreadyInserted = errors.New("musig2: nonce already inserted for this signer")
	// ErrWrongState is returned when an operation is attempted outside its
	// valid session state.
	ErrWrongState = errors.New("musig2: operation invalid in current session state")
	// ErrNoncesIncomplete is returned when Lock is called before every
	// signer has published a nonce.
	ErrNoncesIncomplete = errors.New("musig2: not every signer has published a nonce")
	// ErrSigAlreadyInserted is returned for a duplicate partial signature.
	ErrSigAlreadyInserted = errors.New("musig2: partial signature already inserted for this signer")
	// ErrPartialSigInvalid is returned when a submitted partial signature
	// fails verification against the signer's nonce and coefficient.
	ErrPartialSigInvalid = errors.New("musig2: partial signature failed verification")
	// ErrSigsIncomplete is returned when aggregation is attempted before
	// every signer has contributed a partial signature.
	ErrSigsIncomplete = errors.New("musig2: not every signer has contributed a partial signature")
)

// SessionCtx drives one cooperative signature over message under keyAgg,
// from nonce collection through partial signature aggregation. The same
// type serves an ordinary multi-party covenant signer and the NOIST
// threshold group acting as a single signer — the group's nonce and
// partial signature are simply supplied by a distributed protocol instead
// of a local secret key.
type SessionCtx struct {
	mu      sync.Mutex
	keyAgg  *KeyAggContext
	message [32]byte
	state   SessionState

	publicNonces map[[32]byte]PublicNonce
	partialSigs  map[[32]byte]crypto.Scalar

	aggregateNonce crypto.Point
	bindingCoeff   crypto.Scalar
	challenge      crypto.Scalar
	negateNonces   bool
}

// NewSessionCtx starts a fresh session collecting nonces for message under
// keyAgg's fixed signatory set.
func NewSessionCtx(keyAgg *KeyAggContext, message [32]byte) *SessionCtx {
	return &SessionCtx{
		keyAgg:       keyAgg,
		message:      message,
		state:        SessionCollectingNonces,
		publicNonces: make(map[[32]byte]PublicNonce),
		partialSigs:  make(map[[32]byte]crypto.Scalar),
	}
}

// InsertNonce records key's public nonce pair for round one.
func (s *SessionCtx) InsertNonce(key crypto.Point, nonce PublicNonce) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SessionCollectingNonces {
		return ErrWrongState
	}
	if !s.keyAgg.Contains(key) {
		return ErrUnknownSigner
	}
	xb := key.XBytes()
	if _, ok := s.publicNonces[xb]; ok {
		return ErrNonceAlreadyInserted
	}
	s.publicNonces[xb] = nonce
	return nil
}

// NonceCount returns how many signers have published a nonce so far.
func (s *SessionCtx) NonceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.publicNonces)
}

// Lock requires every signatory to have published a nonce, then derives the
// aggregate nonce point, the binding coefficient, and the BIP340 challenge,
// transitioning the session to SessionCollectingSigs.
func (s *SessionCtx) Lock() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SessionCollectingNonces {
		return ErrWrongState
	}
	keys := s.keyAgg.Keys()
	if len(s.publicNonces) != len(keys) {
		return ErrNoncesIncomplete
	}

	var sumHiding, sumBinding crypto.Point
	for i, k := range keys {
		n := s.publicNonces[k.XBytes()]
		if i == 0 {
			sumHiding, sumBinding = n.Hiding, n.Binding
			continue
		}
		sumHiding = sumHiding.Add(n.Hiding)
		sumBinding = sumBinding.Add(n.Binding)
	}

	aggKeyXB := s.keyAgg.AggregateKey().XBytes()
	hidingXB, bindingXB := sumHiding.XBytes(), sumBinding.XBytes()
	bHash := crypto.TaggedHash("MuSig2/NonceCoeff", hidingXB[:], bindingXB[:], aggKeyXB[:], s.message[:])
	binding, err := crypto.NewScalar(bHash)
	if err != nil {
		binding = crypto.One()
	}

	aggregateNonce := sumHiding.Add(sumBinding.Mul(binding))
	negateNonces := !aggregateNonce.IsEvenY()

	rXB := aggregateNonce.XBytes()
	challengeHash := crypto.TaggedHash("BIP0340/challenge", rXB[:], aggKeyXB[:], s.message[:])
	challenge, err := crypto.NewScalar(challengeHash)
	if err != nil {
		return ErrPartialSigInvalid
	}

	s.aggregateNonce = aggregateNonce
	s.bindingCoeff = binding
	s.challenge = challenge
	s.negateNonces = negateNonces
	s.state = SessionCollectingSigs
	return nil
}

// Coefficient delegates to the underlying key aggregation context.
func (s *SessionCtx) Coefficient(key crypto.Point) (crypto.Scalar, bool) {
	return s.keyAgg.Coefficient(key)
}

// Challenge returns the locked session's BIP340 challenge scalar.
func (s *SessionCtx) Challenge() (crypto.Scalar, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SessionCollectingNonces {
		return crypto.Scalar{}, false
	}
	return s.challenge, true
}

// AggregateNonce returns the locked session's aggregate nonce point.
func (s *SessionCtx) AggregateNonce() (crypto.Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SessionCollectingNonces {
		return crypto.Point{}, false
	}
	return s.aggregateNonce, true
}

// NegateKeySecret reports whether a signer's secret key must be negated
// before use in this session's aggregate, mirroring KeyAggContext.
func (s *SessionCtx) NegateKeySecret() bool {
	return s.keyAgg.NegateSecrets()
}

// NegateNonceSecret reports whether a signer's secret nonce pair must be
// negated before use, once the session is locked.
func (s *SessionCtx) NegateNonceSecret() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.negateNonces
}

// PartialSign computes key's partial signature scalar from its secret key
// and the secret nonce pair it published during round one. The session must
// already be locked. It does not record the result — the caller passes it
// to InsertPartialSig, allowing a caller to compute a partial signature
// without necessarily being the one collecting the full set.
func (s *SessionCtx) PartialSign(key crypto.Point, secret crypto.Scalar, nonce SecretNonce) (crypto.Scalar, error) {
	s.mu.Lock()
	challenge, negateNonces, bindingCoeff, state := s.challenge, s.negateNonces, s.bindingCoeff, s.state
	s.mu.Unlock()

	if state == SessionCollectingNonces {
		return crypto.Scalar{}, ErrWrongState
	}
	coeff, ok := s.keyAgg.Coefficient(key)
	if !ok {
		return crypto.Scalar{}, ErrUnknownSigner
	}

	effectiveSecret := secret
	if s.keyAgg.NegateSecrets() {
		effectiveSecret = negateScalar(secret)
	}

	k := nonce.Hiding.Add(nonce.Binding.Mul(bindingCoeff))
	if negateNonces {
		k = negateScalar(k)
	}

	return k.Add(challenge.Mul(coeff).Mul(effectiveSecret)), nil
}

// VerifyPartialSig reports whether sig is a valid partial signature for key
// against its published nonce pair, the session's binding coefficient and
// challenge, and its MuSig2 coefficient.
func (s *SessionCtx) VerifyPartialSig(key crypto.Point, sig crypto.Scalar) bool {
	s.mu.Lock()
	if s.state == SessionCollectingNonces {
		s.mu.Unlock()
		return false
	}
	challenge, bindingCoeff, negateNonces := s.challenge, s.bindingCoeff, s.negateNonces
	nonce, ok := s.publicNonces[key.XBytes()]
	s.mu.Unlock()
	if !ok {
		return false
	}
	coeff, ok := s.keyAgg.Coefficient(key)
	if !ok {
		return false
	}

	effectiveKey := key
	if s.keyAgg.NegateSecrets() {
		effectiveKey = negatePoint(key)
	}

	r := nonce.Hiding.Add(nonce.Binding.Mul(bindingCoeff))
	if negateNonces {
		r = negatePoint(r)
	}

	lhs := sig.Point()
	rhs := r.Add(effectiveKey.Mul(challenge.Mul(coeff)))
	return lhs.Equal(rhs)
}

// InsertPartialSig records key's verified partial signature for round two.
func (s *SessionCtx) InsertPartialSig(key crypto.Point, sig crypto.Scalar) error {
	if !s.VerifyPartialSig(key, sig) {
		return ErrPartialSigInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionCollectingSigs {
		return ErrWrongState
	}
	xb := key.XBytes()
	if _, ok := s.partialSigs[xb]; ok {
		return ErrSigAlreadyInserted
	}
	s.partialSigs[xb] = sig
	return nil
}

// BlameList returns every signatory that has not yet contributed to the
// session's current round — a published nonce while collecting nonces, or
// a partial signature while collecting signatures.
func (s *SessionCtx) BlameList() []crypto.Point {
	s.mu.Lock()
	defer s.mu.Unlock()

	var missing []crypto.Point
	for _, k := range s.keyAgg.Keys() {
		switch s.state {
		case SessionCollectingNonces:
			if _, ok := s.publicNonces[k.XBytes()]; !ok {
				missing = append(missing, k)
			}
		default:
			if _, ok := s.partialSigs[k.XBytes()]; !ok {
				missing = append(missing, k)
			}
		}
	}
	return missing
}

// FullAggregateSignature sums every signer's partial signature into the
// final 64-byte BIP340 signature once all have been collected, and
// transitions the session to SessionFinalized.
func (s *SessionCtx) FullAggregateSignature() ([64]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SessionCollectingSigs {
		return [64]byte{}, ErrWrongState
	}
	keys := s.keyAgg.Keys()
	if len(s.partialSigs) != len(keys) {
		return [64]byte{}, ErrSigsIncomplete
	}

	var total crypto.Scalar
	first := true
	for _, k := range keys {
		sig := s.partialSigs[k.XBytes()]
		if first {
			total = sig
			first = false
			continue
		}
		total = total.Add(sig)
	}

	var out [64]byte
	rXB := s.aggregateNonce.XBytes()
	copy(out[:32], rXB[:])
	sBytes := total.Bytes()
	copy(out[32:], sBytes[:])

	s.state = SessionFinalized
	return out, nil
}

// State returns the session's current lifecycle state.
func (s *SessionCtx) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func negateScalar(s crypto.Scalar) crypto.Scalar {
	return crypto.Scalar{}.Sub(s)
}

func negatePoint(p crypto.Point) crypto.Point {
	return p.Negate()
}
