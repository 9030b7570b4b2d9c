package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/brollup/coordinator/cpe"
	"github.com/brollup/coordinator/crypto"
	"github.com/brollup/coordinator/musig2"
)

// placeholderMessage is the sighash every covenant's MuSig2 context signs
// over until covenant preimage construction is specified upstream of this
// package. The source carries the same literal placeholder at every call
// site that builds a musig session.
var placeholderMessage = fullFFMessage()

func fullFFMessage() (m [32]byte) {
	for i := range m {
		m[i] = 0xff
	}
	return
}

// NoncePicker bridges a round's covenant locking to the operator-side
// NOIST group. The source draws one signing session per covenant that
// hands back both a hiding and a binding nonce point in a single call;
// the nonce pool implemented here keeps one constant point per slot, so a
// pair is assembled from two independent draws under the hood.
type NoncePicker interface {
	// PickNoncePair draws a fresh nonce pair from whichever directory is
	// currently active, alongside that directory's group key.
	PickNoncePair() (groupKey, hiding, binding crypto.Point, err error)
	// PickNoncePairFor draws from the directory that owns operatorKey,
	// used by per-lift covenants that may reference any directory.
	PickNoncePairFor(operatorKey crypto.Point) (groupKey, hiding, binding crypto.Point, err error)
}

// Blacklist reports whether a key is currently barred from committing.
type Blacklist interface {
	IsBlacklisted(key crypto.Point) bool
}

// DirectoryLookup reports whether a NOIST directory exists for a given
// operator group key, consulted when validating lift prevtxo references.
type DirectoryLookup interface {
	HasDirectory(operatorKey crypto.Point) bool
}

// AccountIndexer resolves an already-registered sender's canonical
// account (carrying its registry rank) by key.
type AccountIndexer interface {
	AccountByKey(key crypto.Point) (cpe.Account, bool)
}

// LiftNonceCommit is one sender-submitted nonce commitment for a single
// lift prev-output, naming the operator whose NOIST group co-signs it
// alongside the sender.
type LiftNonceCommit struct {
	LiftID      [32]byte
	OperatorKey crypto.Point
	RemoteKey   crypto.Point
	HasOutpoint bool
	Nonce       musig2.PublicNonce
}

// LiftPartialSig is one sender-submitted partial signature for a single
// lift prev-output, keyed by the LiftID used at commit time.
type LiftPartialSig struct {
	LiftID [32]byte
	Sig    crypto.Scalar
}

// Commit is one sender's contribution to a round: optional entry
// payloads plus nonce commitments for the covenants it participates in.
// Payload-auth applies to every committing sender; the projector and ZKP
// covenants are opt-in per sender; lift prevtxo and connector covenants
// carry one entry per instance the sender declares.
type Commit struct {
	MsgSender cpe.Account

	Liftup, Recharge, Vanilla, Call, Reserved []byte

	PayloadAuthNonce        musig2.PublicNonce
	VtxoProjectorNonce      *musig2.PublicNonce
	ConnectorProjectorNonce *musig2.PublicNonce
	ZKPContingentNonce      *musig2.PublicNonce
	LiftPrevtxoNonces       []LiftNonceCommit
	ConnectorTxoNonces      []musig2.PublicNonce
}

// Uphold is one sender's round-two contribution: partial signatures for
// every covenant MuSig2 context it was committed into at lock time.
type Uphold struct {
	MsgSender cpe.Account

	PayloadAuthSig        crypto.Scalar
	VtxoProjectorSig      *crypto.Scalar
	ConnectorProjectorSig *crypto.Scalar
	ZKPContingentSig      *crypto.Scalar
	LiftPrevtxoSigs       []LiftPartialSig
	ConnectorTxoSigs      []crypto.Scalar
}

// Ack is handed back to a committing sender once the round locks: the
// frozen co-signer list (so every client recomputes identical sighashes)
// and the post-round-one MuSig2 contexts applicable to that sender.
type Ack struct {
	RoundID    uuid.UUID
	MsgSenders []cpe.Account

	PayloadAuthCtx        *musig2.SessionCtx
	VtxoProjectorCtx      *musig2.SessionCtx
	ConnectorProjectorCtx *musig2.SessionCtx
	ZKPContingentCtx      *musig2.SessionCtx
	LiftPrevtxoCtxes      map[[32]byte]*musig2.SessionCtx
	ConnectorTxoCtxes     []*musig2.SessionCtx
}

type signerNonce struct {
	key   crypto.Point
	nonce musig2.PublicNonce
}

// Ctx drives one coordinator round through its five-stage lifecycle,
// collecting commitments while On, locking a fixed participant set and
// its MuSig2 signing contexts, then collecting partial signatures.
type Ctx struct {
	mu sync.Mutex

	picker      NoncePicker
	blacklist   Blacklist
	directories DirectoryLookup
	registry    AccountIndexer

	stage   Stage
	roundID uuid.UUID

	msgSenders     []cpe.Account
	senderAccounts map[[32]byte]cpe.Account
	senderKeys     map[[32]byte]crypto.Point

	liftups, recharges, vanillas, calls, reserveds [][]byte

	payloadAuthNonces        map[[32]byte]signerNonce
	vtxoProjectorNonces      map[[32]byte]signerNonce
	connectorProjectorNonces map[[32]byte]signerNonce
	zkpContingentNonces      map[[32]byte]signerNonce
	liftPrevtxoNonces        map[[32]byte][]LiftNonceCommit
	connectorTxoNonces       map[[32]byte][]musig2.PublicNonce

	payloadAuthCtx        *musig2.SessionCtx
	vtxoProjectorCtx      *musig2.SessionCtx
	connectorProjectorCtx *musig2.SessionCtx
	zkpContingentCtx      *musig2.SessionCtx
	liftPrevtxoCtx        map[[32]byte]map[[32]byte]*musig2.SessionCtx
	connectorTxoCtx       map[[32]byte][]*musig2.SessionCtx
}

// NewCtx starts a fresh round context, idle until On is called.
func NewCtx(picker NoncePicker, blacklist Blacklist, directories DirectoryLookup, registry AccountIndexer) *Ctx {
	c := &Ctx{
		picker:      picker,
		blacklist:   blacklist,
		directories: directories,
		registry:    registry,
	}
	c.resetLocked()
	return c
}

// Stage returns the round's current lifecycle stage.
func (c *Ctx) Stage() Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage
}

// RoundID returns the identifier generated for the round currently in
// progress. It changes every time On starts a fresh round.
func (c *Ctx) RoundID() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roundID
}

// On resets every round buffer and starts accepting commitments.
func (c *Ctx) On() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	c.stage = On
}

// Off idles the round without clearing its buffers, so the finalized
// round's state remains inspectable until the next On.
func (c *Ctx) Off() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stage = Off
}

func (c *Ctx) resetLocked() {
	c.stage = Off
	c.roundID = uuid.New()
	c.msgSenders = nil
	c.senderAccounts = make(map[[32]byte]cpe.Account)
	c.senderKeys = make(map[[32]byte]crypto.Point)
	c.liftups, c.recharges, c.vanillas, c.calls, c.reserveds = nil, nil, nil, nil, nil
	c.payloadAuthNonces = make(map[[32]byte]signerNonce)
	c.vtxoProjectorNonces = make(map[[32]byte]signerNonce)
	c.connectorProjectorNonces = make(map[[32]byte]signerNonce)
	c.zkpContingentNonces = make(map[[32]byte]signerNonce)
	c.liftPrevtxoNonces = make(map[[32]byte][]LiftNonceCommit)
	c.connectorTxoNonces = make(map[[32]byte][]musig2.PublicNonce)
	c.payloadAuthCtx = nil
	c.vtxoProjectorCtx = nil
	c.connectorProjectorCtx = nil
	c.zkpContingentCtx = nil
	c.liftPrevtxoCtx = make(map[[32]byte]map[[32]byte]*musig2.SessionCtx)
	c.connectorTxoCtx = make(map[[32]byte][]*musig2.SessionCtx)
}

// InsertCommit validates and records one sender's commitment. Allowed
// only while the round is On.
func (c *Ctx) InsertCommit(commit Commit) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stage != On {
		return ErrSessionNotOn
	}

	key := commit.MsgSender.Key()
	xb := key.XBytes()

	if _, ok := c.senderAccounts[xb]; ok {
		return ErrSenderAlreadyCommitted
	}
	if c.blacklist != nil && c.blacklist.IsBlacklisted(key) {
		return ErrCommitBlacklisted
	}
	for _, lift := range commit.LiftPrevtxoNonces {
		if lift.OperatorKey.Equal(lift.RemoteKey) {
			return ErrCommitInvalidLiftRemoteKey
		}
		if !lift.RemoteKey.Equal(key) {
			return ErrCommitInvalidLiftRemoteKey
		}
		if c.directories != nil && !c.directories.HasDirectory(lift.OperatorKey) {
			return ErrCommitInvalidLiftOperatorKey
		}
		if !lift.HasOutpoint {
			return ErrCommitInvalidLiftOutpoint
		}
	}

	sender := commit.MsgSender
	if c.registry != nil {
		if registered, ok := c.registry.AccountByKey(key); ok {
			sender = registered
		}
	}

	c.msgSenders = append(c.msgSenders, sender)
	c.senderAccounts[xb] = sender
	c.senderKeys[xb] = key

	if len(commit.Liftup) > 0 {
		c.liftups = append(c.liftups, commit.Liftup)
	}
	if len(commit.Recharge) > 0 {
		c.recharges = append(c.recharges, commit.Recharge)
	}
	if len(commit.Vanilla) > 0 {
		c.vanillas = append(c.vanillas, commit.Vanilla)
	}
	if len(commit.Call) > 0 {
		c.calls = append(c.calls, commit.Call)
	}
	if len(commit.Reserved) > 0 {
		c.reserveds = append(c.reserveds, commit.Reserved)
	}

	c.payloadAuthNonces[xb] = signerNonce{key: key, nonce: commit.PayloadAuthNonce}
	if commit.VtxoProjectorNonce != nil {
		c.vtxoProjectorNonces[xb] = signerNonce{key: key, nonce: *commit.VtxoProjectorNonce}
	}
	if commit.ConnectorProjectorNonce != nil {
		c.connectorProjectorNonces[xb] = signerNonce{key: key, nonce: *commit.ConnectorProjectorNonce}
	}
	if commit.ZKPContingentNonce != nil {
		c.zkpContingentNonces[xb] = signerNonce{key: key, nonce: *commit.ZKPContingentNonce}
	}
	if len(commit.LiftPrevtxoNonces) > 0 {
		c.liftPrevtxoNonces[xb] = append([]LiftNonceCommit{}, commit.LiftPrevtxoNonces...)
	}
	if len(commit.ConnectorTxoNonces) > 0 {
		c.connectorTxoNonces[xb] = append([]musig2.PublicNonce{}, commit.ConnectorTxoNonces...)
	}

	return nil
}

// Lock freezes the participant set and builds every covenant's MuSig2
// signing context. The stage always advances to Locked, even on
// failure — the source does the same, leaving contexts unset so the
// caller reroutes the round to blame instead of aborting outright.
func (c *Ctx) Lock() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stage != On {
		return ErrSessionNotOn
	}
	c.stage = Locked
	return c.buildMusigContextsLocked()
}

func signerNonceSlice(m map[[32]byte]signerNonce) []signerNonce {
	out := make([]signerNonce, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

// buildCovenantCtx aggregates signers' keys with the operator's NOIST
// group key into one MuSig2 context, inserts every nonce including the
// operator's bridged pair, and locks it — the round's nonce-collection
// phase is already complete by the time this runs, since every signer's
// nonce arrived with its commit.
func buildCovenantCtx(groupKey, hiding, binding crypto.Point, message [32]byte, signers []signerNonce) (*musig2.SessionCtx, error) {
	keys := make([]crypto.Point, 0, len(signers)+1)
	for _, s := range signers {
		keys = append(keys, s.key)
	}
	keys = append(keys, groupKey)

	keyAgg, err := musig2.NewKeyAggContext(keys)
	if err != nil {
		return nil, err
	}
	ctx := musig2.NewSessionCtx(keyAgg, message)
	for _, s := range signers {
		if err := ctx.InsertNonce(s.key, s.nonce); err != nil {
			return nil, err
		}
	}
	if err := ctx.InsertNonce(groupKey, musig2.PublicNonce{Hiding: hiding, Binding: binding}); err != nil {
		return nil, err
	}
	if err := ctx.Lock(); err != nil {
		return nil, err
	}
	return ctx, nil
}

// buildMusigContextsLocked builds every covenant context the round
// needs. It is all-or-nothing: if any covenant fails to build, none of
// them are installed, matching the source's single final assignment
// that only runs after every covenant succeeds.
func (c *Ctx) buildMusigContextsLocked() error {
	if len(c.payloadAuthNonces) == 0 {
		return ErrPayloadAuthEmpty
	}

	groupKey, hiding, binding, err := c.picker.PickNoncePair()
	if err != nil {
		return ErrNoncePickerFailed
	}
	payloadAuthCtx, err := buildCovenantCtx(groupKey, hiding, binding, placeholderMessage, signerNonceSlice(c.payloadAuthNonces))
	if err != nil {
		return err
	}

	var vtxoProjectorCtx, connectorProjectorCtx, zkpContingentCtx *musig2.SessionCtx

	if len(c.vtxoProjectorNonces) > 0 {
		groupKey, hiding, binding, err := c.picker.PickNoncePair()
		if err != nil {
			return ErrNoncePickerFailed
		}
		vtxoProjectorCtx, err = buildCovenantCtx(groupKey, hiding, binding, placeholderMessage, signerNonceSlice(c.vtxoProjectorNonces))
		if err != nil {
			return err
		}
	}

	if len(c.connectorProjectorNonces) > 0 {
		groupKey, hiding, binding, err := c.picker.PickNoncePair()
		if err != nil {
			return ErrNoncePickerFailed
		}
		connectorProjectorCtx, err = buildCovenantCtx(groupKey, hiding, binding, placeholderMessage, signerNonceSlice(c.connectorProjectorNonces))
		if err != nil {
			return err
		}
	}

	if len(c.zkpContingentNonces) > 0 {
		groupKey, hiding, binding, err := c.picker.PickNoncePair()
		if err != nil {
			return ErrNoncePickerFailed
		}
		zkpContingentCtx, err = buildCovenantCtx(groupKey, hiding, binding, placeholderMessage, signerNonceSlice(c.zkpContingentNonces))
		if err != nil {
			return err
		}
	}

	liftCtx := make(map[[32]byte]map[[32]byte]*musig2.SessionCtx, len(c.liftPrevtxoNonces))
	for senderXB, commits := range c.liftPrevtxoNonces {
		perLift := make(map[[32]byte]*musig2.SessionCtx, len(commits))
		for _, lc := range commits {
			groupKey, hiding, binding, err := c.picker.PickNoncePairFor(lc.OperatorKey)
			if err != nil {
				return ErrNoncePickerFailed
			}
			ctx, err := buildCovenantCtx(groupKey, hiding, binding, placeholderMessage, []signerNonce{{key: lc.RemoteKey, nonce: lc.Nonce}})
			if err != nil {
				return err
			}
			perLift[lc.LiftID] = ctx
		}
		liftCtx[senderXB] = perLift
	}

	connectorCtx := make(map[[32]byte][]*musig2.SessionCtx, len(c.connectorTxoNonces))
	for senderXB, nonces := range c.connectorTxoNonces {
		senderKey := c.senderKeys[senderXB]
		list := make([]*musig2.SessionCtx, 0, len(nonces))
		for _, nonce := range nonces {
			groupKey, hiding, binding, err := c.picker.PickNoncePair()
			if err != nil {
				return ErrNoncePickerFailed
			}
			ctx, err := buildCovenantCtx(groupKey, hiding, binding, placeholderMessage, []signerNonce{{key: senderKey, nonce: nonce}})
			if err != nil {
				return err
			}
			list = append(list, ctx)
		}
		connectorCtx[senderXB] = list
	}

	c.payloadAuthCtx = payloadAuthCtx
	c.vtxoProjectorCtx = vtxoProjectorCtx
	c.connectorProjectorCtx = connectorProjectorCtx
	c.zkpContingentCtx = zkpContingentCtx
	c.liftPrevtxoCtx = liftCtx
	c.connectorTxoCtx = connectorCtx
	return nil
}

// CommitAck returns the co-signer list and applicable MuSig2 contexts
// for a sender that committed this round, once the round has locked.
func (c *Ctx) CommitAck(key crypto.Point) (*Ack, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	xb := key.XBytes()
	if _, ok := c.senderAccounts[xb]; !ok {
		return nil, false
	}
	if c.payloadAuthCtx == nil {
		return nil, false
	}

	return &Ack{
		RoundID:               c.roundID,
		MsgSenders:            append([]cpe.Account{}, c.msgSenders...),
		PayloadAuthCtx:        c.payloadAuthCtx,
		VtxoProjectorCtx:      c.vtxoProjectorCtx,
		ConnectorProjectorCtx: c.connectorProjectorCtx,
		ZKPContingentCtx:      c.zkpContingentCtx,
		LiftPrevtxoCtxes:      c.liftPrevtxoCtx[xb],
		ConnectorTxoCtxes:     c.connectorTxoCtx[xb],
	}, true
}

// InsertUphold installs a sender's partial signatures into every covenant
// MuSig2 context it participates in. Allowed only once locked. Every
// covenant is attempted regardless of an earlier one's failure, and every
// failure is reported together: a bad payload-auth signature shouldn't hide
// a bad lift signature from the same uphold.
func (c *Ctx) InsertUphold(uphold Uphold) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stage != Locked {
		return ErrSessionNotLocked
	}

	key := uphold.MsgSender.Key()
	xb := key.XBytes()
	if _, ok := c.senderAccounts[xb]; !ok {
		return ErrUnknownSender
	}

	var errs *multierror.Error

	if c.payloadAuthCtx != nil {
		if err := c.payloadAuthCtx.InsertPartialSig(key, uphold.PayloadAuthSig); err != nil {
			errs = multierror.Append(errs, ErrUpholdInvalidPayloadAuthSig)
		}
	}

	if c.vtxoProjectorCtx != nil {
		if _, ok := c.vtxoProjectorNonces[xb]; ok {
			if uphold.VtxoProjectorSig == nil {
				errs = multierror.Append(errs, ErrUpholdMissingVtxoProjectorSig)
			} else if err := c.vtxoProjectorCtx.InsertPartialSig(key, *uphold.VtxoProjectorSig); err != nil {
				errs = multierror.Append(errs, ErrUpholdInvalidVtxoProjectorSig)
			}
		}
	}

	if c.connectorProjectorCtx != nil {
		if _, ok := c.connectorProjectorNonces[xb]; ok {
			if uphold.ConnectorProjectorSig == nil {
				errs = multierror.Append(errs, ErrUpholdMissingConnectorProjectorSig)
			} else if err := c.connectorProjectorCtx.InsertPartialSig(key, *uphold.ConnectorProjectorSig); err != nil {
				errs = multierror.Append(errs, ErrUpholdInvalidConnectorProjectorSig)
			}
		}
	}

	if c.zkpContingentCtx != nil {
		if _, ok := c.zkpContingentNonces[xb]; ok {
			if uphold.ZKPContingentSig == nil {
				errs = multierror.Append(errs, ErrUpholdMissingZKPContingentSig)
			} else if err := c.zkpContingentCtx.InsertPartialSig(key, *uphold.ZKPContingentSig); err != nil {
				errs = multierror.Append(errs, ErrUpholdInvalidZKPContingentSig)
			}
		}
	}

	if perLift, ok := c.liftPrevtxoCtx[xb]; ok {
		for liftID, ctx := range perLift {
			sig, found := findLiftSig(uphold.LiftPrevtxoSigs, liftID)
			if !found {
				errs = multierror.Append(errs, ErrUpholdMissingLiftSig)
				continue
			}
			if err := ctx.InsertPartialSig(key, sig); err != nil {
				errs = multierror.Append(errs, ErrUpholdInvalidLiftSig)
			}
		}
	}

	if ctxList, ok := c.connectorTxoCtx[xb]; ok {
		for i, ctx := range ctxList {
			if i >= len(uphold.ConnectorTxoSigs) {
				errs = multierror.Append(errs, ErrUpholdMissingConnectorSig)
				continue
			}
			if err := ctx.InsertPartialSig(key, uphold.ConnectorTxoSigs[i]); err != nil {
				errs = multierror.Append(errs, ErrUpholdInvalidConnectorSig)
			}
		}
	}

	return errs.ErrorOrNil()
}

func findLiftSig(sigs []LiftPartialSig, liftID [32]byte) (crypto.Scalar, bool) {
	for _, s := range sigs {
		if s.LiftID == liftID {
			return s.Sig, true
		}
	}
	return crypto.Scalar{}, false
}

// BlameList returns every committing sender whose key appears in any
// covenant MuSig2 context's blame list.
func (c *Ctx) BlameList() []cpe.Account {
	c.mu.Lock()
	defer c.mu.Unlock()

	blamed := make(map[[32]byte]bool)
	var out []cpe.Account

	add := func(ctx *musig2.SessionCtx) {
		if ctx == nil {
			return
		}
		for _, k := range ctx.BlameList() {
			xb := k.XBytes()
			account, ok := c.senderAccounts[xb]
			if !ok || blamed[xb] {
				continue
			}
			blamed[xb] = true
			out = append(out, account)
		}
	}

	add(c.payloadAuthCtx)
	add(c.vtxoProjectorCtx)
	add(c.connectorProjectorCtx)
	add(c.zkpContingentCtx)
	for _, perLift := range c.liftPrevtxoCtx {
		for _, ctx := range perLift {
			add(ctx)
		}
	}
	for _, ctxList := range c.connectorTxoCtx {
		for _, ctx := range ctxList {
			add(ctx)
		}
	}

	return out
}

// Upheld advances the round once every expected partial signature has
// landed. The caller is responsible for deciding completeness (e.g. via
// an empty BlameList); Upheld itself only enforces the stage ordering.
func (c *Ctx) Upheld() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stage != Locked {
		return ErrSessionNotLocked
	}
	c.stage = Upheld
	return nil
}

// Finalized advances the round after aggregate signatures have been
// produced and distributed.
func (c *Ctx) Finalized() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stage != Upheld {
		return ErrSessionNotUpheld
	}
	c.stage = Finalized
	return nil
}
