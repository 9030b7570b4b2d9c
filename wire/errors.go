package wire

import "errors"

// ErrConn is returned whenever a peer request fails for any connection
// reason: timeout, reset, or unexpected EOF. Callers roll back partial
// state on this error rather than inserting it, since the peer never
// confirmed the round trip.
var ErrConn = errors.New("wire: connection error")

// ErrPeerClosed is returned when a request is attempted on a Peer whose
// underlying connection has already been closed.
var ErrPeerClosed = errors.New("wire: peer connection closed")
