package coordinatorcli

import (
	"bytes"
	"context"
	"encoding/hex"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brollup/coordinator/coordinatorconfig"
	"github.com/brollup/coordinator/crypto"
	"github.com/brollup/coordinator/wire"
)

// newTestDaemon builds a daemon with a freshly generated identity and the
// given operator set, rooted under its own temp folder.
func newTestDaemon(t *testing.T, operators *coordinatorconfig.OperatorSet, listenAddr string) *Daemon {
	t.Helper()

	folder := t.TempDir()
	cfg := coordinatorconfig.New(
		coordinatorconfig.WithConfigFolder(folder),
		coordinatorconfig.WithListenAddr(listenAddr),
	)
	require.NoError(t, cfg.EnsureDirectories())

	id, err := coordinatorconfig.GenerateIdentity()
	require.NoError(t, err)
	require.NoError(t, coordinatorconfig.SaveIdentity(cfg.IdentityPath(), id))
	require.NoError(t, coordinatorconfig.SaveOperatorSet(cfg.OperatorSetPath(), operators))

	d, err := NewDaemon(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func buildOperatorSet(t *testing.T, n, threshold int) *coordinatorconfig.OperatorSet {
	t.Helper()
	set := &coordinatorconfig.OperatorSet{Threshold: threshold}
	for i := 0; i < n; i++ {
		s, err := crypto.RandomScalar()
		require.NoError(t, err)
		set.Operators = append(set.Operators, s.Point())
	}
	return set
}

func TestOperatorSetRoundTripThroughConfig(t *testing.T) {
	set := buildOperatorSet(t, 3, 2)
	d := newTestDaemon(t, set, "127.0.0.1:0")

	require.Len(t, d.Operators().Operators, 3)
	require.Equal(t, 2, d.Operators().Threshold)
}

func TestDaemonHandlePing(t *testing.T) {
	set := buildOperatorSet(t, 1, 1)
	d := newTestDaemon(t, set, "127.0.0.1:0")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, d.Start(ctx))

	peer, err := d.book.Connect(context.Background(), set.Operators[0], d.listener.Addr().String())
	require.NoError(t, err)
	defer peer.Close()

	rtt, err := peer.Ping(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, rtt, time.Duration(0))
}

func TestDaemonHandleRetrieveVSEKeymap(t *testing.T) {
	set := buildOperatorSet(t, 2, 2)
	d := newTestDaemon(t, set, "127.0.0.1:0")

	req := wire.Package{Kind: wire.RetrieveVSEKeymap}
	reply, err := d.Handle(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, reply)

	rec, err := decodeKeyMapRecord(reply)
	require.NoError(t, err)
	require.Equal(t, d.identity.Key.Point().XBytes(), rec.SignerKey)

	signer, err := crypto.NewPointFromXOnly(rec.SignerKey)
	require.NoError(t, err)
	require.True(t, signer.Equal(d.identity.Key.Point()))
}

func TestDaemonHandleUnknownRetrieveVSEDirectoryHeight(t *testing.T) {
	set := buildOperatorSet(t, 1, 1)
	d := newTestDaemon(t, set, "127.0.0.1:0")

	payload := make([]byte, 8)
	req := wire.Package{Kind: wire.RetrieveVSEDirectory, Payload: payload}
	reply, err := d.Handle(context.Background(), req)
	require.NoError(t, err)
	require.Empty(t, reply)
}

func TestReplHelpAndUnknownCommand(t *testing.T) {
	set := buildOperatorSet(t, 1, 1)
	d := newTestDaemon(t, set, "127.0.0.1:0")

	var out bytes.Buffer
	in := bytes.NewBufferString("help\nbogus\nexit\n")
	d.RunREPL(context.Background(), in, &out)

	require.Contains(t, out.String(), "commands:")
	require.Contains(t, out.String(), "unknown command")
}

func TestReplOpsListsOperators(t *testing.T) {
	set := buildOperatorSet(t, 2, 2)
	d := newTestDaemon(t, set, "127.0.0.1:0")

	var out bytes.Buffer
	in := bytes.NewBufferString("ops\nexit\n")
	d.RunREPL(context.Background(), in, &out)

	require.Contains(t, out.String(), "connected=false")
}

func TestReplBlistUnknownKey(t *testing.T) {
	set := buildOperatorSet(t, 1, 1)
	d := newTestDaemon(t, set, "127.0.0.1:0")

	s, err := crypto.RandomScalar()
	require.NoError(t, err)
	xb := s.Point().XBytes()

	var out bytes.Buffer
	in := bytes.NewBufferString("blist " + hex.EncodeToString(xb[:]) + "\nexit\n")
	d.RunREPL(context.Background(), in, &out)

	require.Contains(t, out.String(), "no blame record")
}

func TestReplDkgUsageOnMissingHeight(t *testing.T) {
	set := buildOperatorSet(t, 1, 1)
	d := newTestDaemon(t, set, "127.0.0.1:0")

	var out bytes.Buffer
	in := bytes.NewBufferString("dkg\nexit\n")
	d.RunREPL(context.Background(), in, &out)

	require.Contains(t, out.String(), "usage: dkg")
}

func TestIdentityPathUsedByConfig(t *testing.T) {
	folder := filepath.Join(t.TempDir(), "sub")
	cfg := coordinatorconfig.New(coordinatorconfig.WithConfigFolder(folder))
	require.Equal(t, filepath.Join(folder, coordinatorconfig.DefaultIdentityFile), cfg.IdentityPath())
}
