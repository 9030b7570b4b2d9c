package wire

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brollup/coordinator/log"
)

func TestPackageEncodeDecodeRoundTrip(t *testing.T) {
	p := New(SessionCommit, 1234567890, []byte("hello"))
	var buf bytes.Buffer
	_, err := p.WriteTo(&buf)
	require.NoError(t, err)

	decoded, err := Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, p.Kind, decoded.Kind)
	require.Equal(t, p.Timestamp, decoded.Timestamp)
	require.Equal(t, p.Payload, decoded.Payload)
}

func TestDecodeRejectsOversizedPayload(t *testing.T) {
	p := New(Ping, 0, PingRequestPayload)
	buf := p.Encode()
	buf[9] = 0xff
	buf[10] = 0xff
	buf[11] = 0xff
	buf[12] = 0xff

	_, err := Decode(bytes.NewReader(buf))
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

func pingHandler() Handler {
	return HandlerFunc(func(_ context.Context, req Package) ([]byte, error) {
		if req.Kind == Ping {
			return PingReplyPayload, nil
		}
		return nil, nil
	})
}

func TestPingRoundTrip(t *testing.T) {
	listener, err := Listen("127.0.0.1:0", pingHandler(), log.DefaultLogger())
	require.NoError(t, err)
	defer listener.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = listener.Serve(ctx) }()

	reqCtx, reqCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer reqCancel()

	peer, err := Dial(reqCtx, listener.Addr().String())
	require.NoError(t, err)
	defer peer.Close()

	dur, err := peer.Ping(reqCtx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, dur, time.Duration(0))
}

func TestRequestOnClosedPeerFails(t *testing.T) {
	listener, err := Listen("127.0.0.1:0", pingHandler(), log.DefaultLogger())
	require.NoError(t, err)
	defer listener.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = listener.Serve(ctx) }()

	peer, err := Dial(context.Background(), listener.Addr().String())
	require.NoError(t, err)
	require.NoError(t, peer.Close())

	_, err = peer.Request(context.Background(), Ping, PingRequestPayload)
	require.ErrorIs(t, err, ErrPeerClosed)
}
