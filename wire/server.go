package wire

import (
	"context"
	"net"

	"github.com/brollup/coordinator/log"
)

// Handler answers one incoming Package with its reply payload, or an error
// to close the connection.
type Handler interface {
	Handle(ctx context.Context, req Package) (reply []byte, err error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, req Package) ([]byte, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, req Package) ([]byte, error) { return f(ctx, req) }

// Listener accepts inbound peer connections and dispatches every Package
// it reads to a Handler, one goroutine per connection and one request in
// flight per connection at a time (mirroring Peer's own one-at-a-time
// discipline on the client side).
type Listener struct {
	ln      net.Listener
	handler Handler
	log     log.Logger
}

// Listen binds addr and returns a Listener ready to Serve.
func Listen(addr string, handler Handler, l log.Logger) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln, handler: handler, log: l}, nil
}

// Addr returns the bound local address.
func (s *Listener) Addr() net.Addr { return s.ln.Addr() }

// Close stops accepting new connections.
func (s *Listener) Close() error { return s.ln.Close() }

// Serve accepts connections until ctx is canceled or the listener closes.
func (s *Listener) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.ln.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go s.serveConn(ctx, conn)
	}
}

func (s *Listener) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	for {
		req, err := Decode(conn)
		if err != nil {
			if s.log != nil {
				s.log.Debugw("", "wire", "connection closed", "remote", conn.RemoteAddr(), "err", err)
			}
			return
		}

		reply, err := s.handler.Handle(ctx, req)
		if err != nil {
			if s.log != nil {
				s.log.Warnw("", "wire", "handler error", "kind", req.Kind.String(), "err", err)
			}
			return
		}

		resp := New(req.Kind, req.Timestamp, reply)
		if _, err := resp.WriteTo(conn); err != nil {
			if s.log != nil {
				s.log.Debugw("", "wire", "write failed", "remote", conn.RemoteAddr(), "err", err)
			}
			return
		}
	}
}
