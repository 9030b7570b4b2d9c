package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/brollup/coordinator/cpe"
	"github.com/brollup/coordinator/crypto"
	"github.com/brollup/coordinator/musig2"
)

// fakeGroup is a deterministic NoncePicker stand-in for an operator's
// NOIST directory: one fixed group key and a fresh random nonce pair on
// every draw, regardless of which operator key is asked for.
type fakeGroup struct {
	groupKey crypto.Point
	picks    int
}

func newFakeGroup(t *testing.T) *fakeGroup {
	t.Helper()
	s, err := crypto.RandomScalar()
	require.NoError(t, err)
	return &fakeGroup{groupKey: s.Point()}
}

func (f *fakeGroup) PickNoncePair() (crypto.Point, crypto.Point, crypto.Point, error) {
	f.picks++
	hs, err := crypto.RandomScalar()
	if err != nil {
		return crypto.Point{}, crypto.Point{}, crypto.Point{}, err
	}
	bs, err := crypto.RandomScalar()
	if err != nil {
		return crypto.Point{}, crypto.Point{}, crypto.Point{}, err
	}
	return f.groupKey, hs.Point(), bs.Point(), nil
}

func (f *fakeGroup) PickNoncePairFor(crypto.Point) (crypto.Point, crypto.Point, crypto.Point, error) {
	return f.PickNoncePair()
}

type fakeBlacklist struct {
	blocked map[[32]byte]bool
}

func (b *fakeBlacklist) IsBlacklisted(key crypto.Point) bool {
	if b.blocked == nil {
		return false
	}
	return b.blocked[key.XBytes()]
}

type fakeDirectories struct{ known map[[32]byte]bool }

func (d *fakeDirectories) HasDirectory(key crypto.Point) bool {
	return d.known != nil && d.known[key.XBytes()]
}

type fakeRegistry struct{}

func (fakeRegistry) AccountByKey(crypto.Point) (cpe.Account, bool) { return cpe.Account{}, false }

func mustAccount(t *testing.T) (cpe.Account, crypto.Scalar) {
	t.Helper()
	s, err := crypto.RandomScalar()
	require.NoError(t, err)
	return cpe.NewAccount(s.Point()), s
}

func newTestCtx(t *testing.T) (*Ctx, *fakeGroup) {
	t.Helper()
	group := newFakeGroup(t)
	return NewCtx(group, &fakeBlacklist{}, &fakeDirectories{}, fakeRegistry{}), group
}

func TestOnResetsAndAcceptsCommits(t *testing.T) {
	c, _ := newTestCtx(t)
	require.Equal(t, Off, c.Stage())
	c.On()
	require.Equal(t, On, c.Stage())
}

func TestOnAssignsAFreshRoundIDEveryTime(t *testing.T) {
	c, _ := newTestCtx(t)
	c.On()
	first := c.RoundID()
	require.NotEqual(t, uuid.Nil, first)

	c.On()
	require.NotEqual(t, first, c.RoundID())
}

func TestInsertCommitRejectsOutsideOn(t *testing.T) {
	c, _ := newTestCtx(t)
	account, _ := mustAccount(t)
	err := c.InsertCommit(Commit{MsgSender: account})
	require.ErrorIs(t, err, ErrSessionNotOn)
}

func TestInsertCommitRejectsOverlap(t *testing.T) {
	c, _ := newTestCtx(t)
	c.On()
	account, _ := mustAccount(t)
	require.NoError(t, c.InsertCommit(Commit{MsgSender: account}))
	require.ErrorIs(t, c.InsertCommit(Commit{MsgSender: account}), ErrSenderAlreadyCommitted)
}

func TestInsertCommitRejectsBlacklisted(t *testing.T) {
	group := newFakeGroup(t)
	account, _ := mustAccount(t)
	bl := &fakeBlacklist{blocked: map[[32]byte]bool{account.Key().XBytes(): true}}
	c := NewCtx(group, bl, &fakeDirectories{}, fakeRegistry{})
	c.On()
	require.ErrorIs(t, c.InsertCommit(Commit{MsgSender: account}), ErrCommitBlacklisted)
}

func TestInsertCommitValidatesLiftKeys(t *testing.T) {
	c, _ := newTestCtx(t)
	c.On()
	account, _ := mustAccount(t)
	operator, _ := mustAccount(t)

	// remote key must equal the sender's own key.
	other, _ := mustAccount(t)
	err := c.InsertCommit(Commit{
		MsgSender: account,
		LiftPrevtxoNonces: []LiftNonceCommit{
			{OperatorKey: operator.Key(), RemoteKey: other.Key(), HasOutpoint: true},
		},
	})
	require.ErrorIs(t, err, ErrCommitInvalidLiftRemoteKey)

	// operator key must resolve to a known directory.
	err = c.InsertCommit(Commit{
		MsgSender: account,
		LiftPrevtxoNonces: []LiftNonceCommit{
			{OperatorKey: operator.Key(), RemoteKey: account.Key(), HasOutpoint: true},
		},
	})
	require.ErrorIs(t, err, ErrCommitInvalidLiftOperatorKey)
}

func TestLockBuildsPayloadAuthContextAndAck(t *testing.T) {
	c, group := newTestCtx(t)
	c.On()

	accountA, _ := mustAccount(t)
	accountB, _ := mustAccount(t)

	_, pnA, err := musig2.GenerateSecretNonce()
	require.NoError(t, err)
	_, pnB, err := musig2.GenerateSecretNonce()
	require.NoError(t, err)

	require.NoError(t, c.InsertCommit(Commit{MsgSender: accountA, PayloadAuthNonce: pnA}))
	require.NoError(t, c.InsertCommit(Commit{MsgSender: accountB, PayloadAuthNonce: pnB}))

	require.NoError(t, c.Lock())
	require.Equal(t, Locked, c.Stage())
	require.Equal(t, 1, group.picks)

	ack, ok := c.CommitAck(accountA.Key())
	require.True(t, ok)
	require.NotNil(t, ack.PayloadAuthCtx)
	require.Len(t, ack.MsgSenders, 2)
	require.Nil(t, ack.VtxoProjectorCtx)
}

func TestLockFailsWithNoSenders(t *testing.T) {
	c, _ := newTestCtx(t)
	c.On()
	require.ErrorIs(t, c.Lock(), ErrPayloadAuthEmpty)
	require.Equal(t, Locked, c.Stage())
}

func TestUpholdInsertsPartialSigAndBlameListEmpties(t *testing.T) {
	c, _ := newTestCtx(t)
	c.On()

	accountA, secretA := mustAccount(t)
	accountB, secretB := mustAccount(t)

	snA, pnA, err := musig2.GenerateSecretNonce()
	require.NoError(t, err)
	snB, pnB, err := musig2.GenerateSecretNonce()
	require.NoError(t, err)

	require.NoError(t, c.InsertCommit(Commit{MsgSender: accountA, PayloadAuthNonce: pnA}))
	require.NoError(t, c.InsertCommit(Commit{MsgSender: accountB, PayloadAuthNonce: pnB}))
	require.NoError(t, c.Lock())

	ackA, ok := c.CommitAck(accountA.Key())
	require.True(t, ok)

	blamed := c.BlameList()
	require.Len(t, blamed, 2)

	sigA, err := ackA.PayloadAuthCtx.PartialSign(accountA.Key(), secretA, snA)
	require.NoError(t, err)
	require.NoError(t, c.InsertUphold(Uphold{MsgSender: accountA, PayloadAuthSig: sigA}))

	blamed = c.BlameList()
	require.Len(t, blamed, 1)
	require.True(t, blamed[0].Equal(accountB))

	sigB, err := ackA.PayloadAuthCtx.PartialSign(accountB.Key(), secretB, snB)
	require.NoError(t, err)
	require.NoError(t, c.InsertUphold(Uphold{MsgSender: accountB, PayloadAuthSig: sigB}))

	require.Empty(t, c.BlameList())

	require.NoError(t, c.Upheld())
	require.Equal(t, Upheld, c.Stage())
	require.NoError(t, c.Finalized())
	require.Equal(t, Finalized, c.Stage())
}

func TestInsertUpholdAggregatesPerCovenantErrors(t *testing.T) {
	c, _ := newTestCtx(t)
	c.On()

	accountA, _ := mustAccount(t)
	accountB, secretB := mustAccount(t)

	_, pnA, err := musig2.GenerateSecretNonce()
	require.NoError(t, err)
	snB, pnB, err := musig2.GenerateSecretNonce()
	require.NoError(t, err)

	require.NoError(t, c.InsertCommit(Commit{MsgSender: accountA, PayloadAuthNonce: pnA}))
	require.NoError(t, c.InsertCommit(Commit{MsgSender: accountB, PayloadAuthNonce: pnB}))
	require.NoError(t, c.Lock())

	ackA, ok := c.CommitAck(accountA.Key())
	require.True(t, ok)

	// a forged partial signature from the wrong signer's secret must be
	// rejected, and aggregated into the returned batch error rather than
	// silently swallowed by an early return.
	forged, err := ackA.PayloadAuthCtx.PartialSign(accountB.Key(), secretB, snB)
	require.NoError(t, err)
	err = c.InsertUphold(Uphold{MsgSender: accountA, PayloadAuthSig: forged})
	require.ErrorIs(t, err, ErrUpholdInvalidPayloadAuthSig)
}

func TestInsertUpholdRejectsBeforeLocked(t *testing.T) {
	c, _ := newTestCtx(t)
	c.On()
	account, _ := mustAccount(t)
	require.ErrorIs(t, c.InsertUphold(Uphold{MsgSender: account}), ErrSessionNotLocked)
}
