package wire

import (
	"context"
	"errors"
	"sync"

	"github.com/brollup/coordinator/crypto"
)

// ErrPeerNotRegistered is returned when a Book lookup misses.
var ErrPeerNotRegistered = errors.New("wire: peer not registered")

// Book is the coordinator's live address book: every operator or client it
// currently holds an open connection to, keyed by its public key.
type Book struct {
	mu    sync.RWMutex
	peers map[[32]byte]*Peer
	addrs map[[32]byte]string
}

// NewBook builds an empty address book.
func NewBook() *Book {
	return &Book{peers: make(map[[32]byte]*Peer), addrs: make(map[[32]byte]string)}
}

// Connect dials addr and registers the resulting Peer under key, closing
// and replacing any existing connection for that key.
func (b *Book) Connect(ctx context.Context, key crypto.Point, addr string) (*Peer, error) {
	peer, err := Dial(ctx, addr)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	xb := key.XBytes()
	if existing, ok := b.peers[xb]; ok {
		_ = existing.Close()
	}
	b.peers[xb] = peer
	b.addrs[xb] = addr
	return peer, nil
}

// Peer returns the registered connection for key, if any.
func (b *Book) Peer(key crypto.Point) (*Peer, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.peers[key.XBytes()]
	return p, ok
}

// Remove closes and forgets the registered connection for key.
func (b *Book) Remove(key crypto.Point) {
	b.mu.Lock()
	defer b.mu.Unlock()
	xb := key.XBytes()
	if p, ok := b.peers[xb]; ok {
		_ = p.Close()
	}
	delete(b.peers, xb)
	delete(b.addrs, xb)
}

// Entry is one registered peer, returned by Entries for display/listing.
type Entry struct {
	Key  crypto.Point
	Addr string
}

// Entries returns every registered peer and its dial address.
func (b *Book) Entries() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Entry, 0, len(b.peers))
	for xb, addr := range b.addrs {
		key, err := crypto.NewPointFromXOnly(xb)
		if err != nil {
			continue
		}
		out = append(out, Entry{Key: key, Addr: addr})
	}
	return out
}
