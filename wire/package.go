// Package wire implements the coordinator's peer-to-peer framing: a single
// fixed-header envelope, the Package, carries every request and response
// over a plain TCP connection.
package wire

import (
	"encoding/binary"
	"errors"
	"io"
)

// Kind identifies what a Package carries.
type Kind uint8

const (
	Ping Kind = iota
	RetrieveVSEKeymap
	DeliverVSEDirectory
	RetrieveVSEDirectory
	SessionCommit
	SessionUphold
)

func (k Kind) String() string {
	switch k {
	case Ping:
		return "Ping"
	case RetrieveVSEKeymap:
		return "RetrieveVSEKeymap"
	case DeliverVSEDirectory:
		return "DeliverVSEDirectory"
	case RetrieveVSEDirectory:
		return "RetrieveVSEDirectory"
	case SessionCommit:
		return "SessionCommit"
	case SessionUphold:
		return "SessionUphold"
	default:
		return "Unknown"
	}
}

// PingRequestPayload and PingReplyPayload are the fixed one-byte bodies of a
// ping round-trip.
var (
	PingRequestPayload = []byte{0x00}
	PingReplyPayload   = []byte{0x01}
)

// MaxPayloadLen bounds a single Package's payload to guard against a
// corrupt or hostile length prefix forcing an unbounded allocation.
const MaxPayloadLen = 16 << 20

// ErrPayloadTooLarge is returned when a decoded length prefix exceeds
// MaxPayloadLen.
var ErrPayloadTooLarge = errors.New("wire: payload exceeds maximum size")

// ErrEmptyPayload is returned by a caller expecting a non-empty response
// when the payload came back empty; the wire protocol treats an
// empty-payload response as an error condition.
var ErrEmptyPayload = errors.New("wire: response payload is empty")

// Package is one framed message: kind, sender timestamp, and payload,
// always serialized big-endian as kind(1) || timestamp(8) || len(4) || payload.
type Package struct {
	Kind      Kind
	Timestamp int64
	Payload   []byte
}

// New builds a Package with kind and payload, stamped at timestamp (unix
// seconds).
func New(kind Kind, timestamp int64, payload []byte) Package {
	return Package{Kind: kind, Timestamp: timestamp, Payload: payload}
}

// Encode serializes p to its wire form.
func (p Package) Encode() []byte {
	buf := make([]byte, 1+8+4+len(p.Payload))
	buf[0] = byte(p.Kind)
	binary.BigEndian.PutUint64(buf[1:9], uint64(p.Timestamp))
	binary.BigEndian.PutUint32(buf[9:13], uint32(len(p.Payload)))
	copy(buf[13:], p.Payload)
	return buf
}

// WriteTo writes p's encoded form to w.
func (p Package) WriteTo(w io.Writer) (int64, error) {
	buf := p.Encode()
	n, err := w.Write(buf)
	return int64(n), err
}

// Decode reads one Package from r.
func Decode(r io.Reader) (Package, error) {
	var header [13]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Package{}, err
	}
	kind := Kind(header[0])
	timestamp := int64(binary.BigEndian.Uint64(header[1:9]))
	length := binary.BigEndian.Uint32(header[9:13])
	if length > MaxPayloadLen {
		return Package{}, ErrPayloadTooLarge
	}
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Package{}, err
		}
	}
	return Package{Kind: kind, Timestamp: timestamp, Payload: payload}, nil
}
