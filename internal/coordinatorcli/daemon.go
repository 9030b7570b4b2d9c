package coordinatorcli

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"github.com/brollup/coordinator/blame"
	"github.com/brollup/coordinator/coordinatorconfig"
	"github.com/brollup/coordinator/crypto"
	"github.com/brollup/coordinator/internal/metrics"
	"github.com/brollup/coordinator/log"
	"github.com/brollup/coordinator/noist"
	"github.com/brollup/coordinator/noist/vse"
	"github.com/brollup/coordinator/registry"
	"github.com/brollup/coordinator/session"
	"github.com/brollup/coordinator/store"
	"github.com/brollup/coordinator/wire"
)

// ErrMissingIdentity is returned when starting a daemon without a keypair
// generated first.
var ErrMissingIdentity = errors.New("coordinatorcli: no identity found, run the keygen command first")

// ErrMissingOperatorSet is returned when starting a daemon without an
// operator set configured first.
var ErrMissingOperatorSet = errors.New("coordinatorcli: no operator set found, run the init-operators command first")

// Daemon bundles every package this coordinator wires together: durable
// storage, the account/contract registries, the blame list, the NOIST
// manager and its nonce picker, the round state machine, and the peer
// address book and listener.
type Daemon struct {
	cfg      *coordinatorconfig.Config
	identity coordinatorconfig.Identity
	operators *coordinatorconfig.OperatorSet

	db       *store.DB
	registry *registry.Registry
	blacklist *blame.Directory
	manager  *noist.Manager
	picker   *noist.Picker
	ctx      *session.Ctx
	book     *wire.Book
	listener *wire.Listener

	mu       sync.Mutex
	ownMap   *vse.KeyMapRecord
	lockedAt time.Time
}

// NewDaemon loads a daemon's configuration and durable state from disk and
// wires every in-memory component together. It does not yet bind a
// listener — call Start for that.
func NewDaemon(cfg *coordinatorconfig.Config) (*Daemon, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	identity, err := coordinatorconfig.LoadIdentity(cfg.IdentityPath())
	if err != nil {
		return nil, ErrMissingIdentity
	}
	operators, err := coordinatorconfig.LoadOperatorSet(cfg.OperatorSetPath())
	if err != nil {
		return nil, ErrMissingOperatorSet
	}

	db, err := store.Open(cfg.DBFolder(), cfg.Logger())
	if err != nil {
		return nil, err
	}

	reg, err := registry.New(db.Registry())
	if err != nil {
		db.Close()
		return nil, err
	}
	blacklist, err := blame.NewDirectory(db.Blames())
	if err != nil {
		db.Close()
		return nil, err
	}

	manager := noist.NewManager(cfg.Logger(), db.Setups())
	picker := noist.NewPicker(manager)
	ctx := session.NewCtx(picker, blacklist, manager, reg.Accounts())

	return &Daemon{
		cfg:       cfg,
		identity:  identity,
		operators: operators,
		db:        db,
		registry:  reg,
		blacklist: blacklist,
		manager:   manager,
		picker:    picker,
		ctx:       ctx,
		book:      wire.NewBook(),
	}, nil
}

// Start binds the wire listener and begins serving connections until ctx
// is canceled.
func (d *Daemon) Start(ctx context.Context) error {
	listener, err := wire.Listen(d.cfg.ListenAddr(), wire.HandlerFunc(d.Handle), d.cfg.Logger())
	if err != nil {
		return err
	}
	d.listener = listener
	go func() {
		if err := listener.Serve(ctx); err != nil {
			d.cfg.Logger().Warnw("", "wire", "listener stopped", "err", err)
		}
	}()
	return nil
}

// Close releases the listener and database handle.
func (d *Daemon) Close() error {
	if d.listener != nil {
		_ = d.listener.Close()
	}
	return d.db.Close()
}

// Book returns the peer address book, used by the command shell to connect
// to and ping operators.
func (d *Daemon) Book() *wire.Book { return d.book }

// Blacklist returns the blame directory, used by the command shell to show
// a sender's blame record.
func (d *Daemon) Blacklist() *blame.Directory { return d.blacklist }

// Operators returns the fixed operator set this daemon coordinates.
func (d *Daemon) Operators() *coordinatorconfig.OperatorSet { return d.operators }

// Manager returns the NOIST directory manager.
func (d *Daemon) Manager() *noist.Manager { return d.manager }

// ownKeyMapRecord lazily builds and signs this coordinator's own VSE key
// map against the fixed operator set, caching it since it never changes
// across DKG rounds run against the same operator set.
func (d *Daemon) ownKeyMapRecord() vse.KeyMapRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ownMap != nil {
		return *d.ownMap
	}

	correspondents := make([]crypto.Point, 0, len(d.operators.Operators))
	for _, op := range d.operators.Operators {
		if !op.Equal(d.identity.Key.Point()) {
			correspondents = append(correspondents, op)
		}
	}
	km := vse.NewKeyMap(d.identity.Key, correspondents)
	auth, ok := crypto.NewAuthenticable[vse.KeyMap](km, d.identity.Key)
	if !ok {
		// identity.Key was already validated at load time; this cannot happen.
		panic("coordinatorcli: failed to sign own key map")
	}

	table := make([]vse.VSEKeyEntry, 0, len(correspondents))
	for _, c := range correspondents {
		k, _ := km.VSEKey(c)
		table = append(table, vse.VSEKeyEntry{Correspondent: c.XBytes(), Key: k.XBytes()})
	}
	rec := vse.KeyMapRecord{SignerKey: auth.Key(), Table: table, Signature: auth.Signature()}
	d.ownMap = &rec
	return rec
}

// Handle answers one inbound wire.Package, implementing wire.Handler. Per
// the protocol's own convention, an empty reply payload signals an
// application-level rejection (bad signature, wrong stage, unknown
// height); a Go error is reserved for connection-level failures that
// should drop the peer.
func (d *Daemon) Handle(ctx context.Context, req wire.Package) ([]byte, error) {
	metrics.WireRequestsTotal.WithLabelValues(req.Kind.String()).Inc()
	reply, err := d.handle(ctx, req)
	if err == nil && len(reply) == 0 {
		metrics.WireRejectionsTotal.WithLabelValues(req.Kind.String()).Inc()
	}
	return reply, err
}

func (d *Daemon) handle(_ context.Context, req wire.Package) ([]byte, error) {
	switch req.Kind {
	case wire.Ping:
		return wire.PingReplyPayload, nil

	case wire.RetrieveVSEKeymap:
		return encodeKeyMapRecord(d.ownKeyMapRecord())

	case wire.RetrieveVSEDirectory:
		dir, err := d.directoryForRequest(req.Payload)
		if err != nil {
			return nil, nil
		}
		_, signers, records := dir.Setup().Export()
		return encodeSetupWire(dir.Height(), signers, records)

	case wire.DeliverVSEDirectory:
		w, err := decodeSetupWire(req.Payload)
		if err != nil {
			return nil, nil
		}
		if _, err := d.manager.Directory(w.Height); err == nil {
			return nil, nil
		}
		signers := make([]crypto.Point, 0, len(w.Signers))
		for _, xb := range w.Signers {
			p, err := crypto.NewPointFromXOnly(xb)
			if err != nil {
				return nil, nil
			}
			signers = append(signers, p)
		}
		setup, err := vse.RehydrateSetup(w.Height, signers, w.Records)
		if err != nil || !setup.Validate() {
			return nil, nil
		}
		if _, err := d.manager.InsertSetup(w.Height, signers, setup); err != nil {
			return nil, nil
		}
		return wire.PingReplyPayload, nil

	case wire.SessionCommit:
		commit, err := decodeCommit(req.Payload)
		if err != nil {
			return nil, nil
		}
		if err := d.ctx.InsertCommit(commit); err != nil {
			return nil, nil
		}
		metrics.SessionCommitsReceived.Inc()
		metrics.SessionStage.Set(float64(d.ctx.Stage()))
		return wire.PingReplyPayload, nil

	case wire.SessionUphold:
		uphold, err := decodeUphold(req.Payload)
		if err != nil {
			return nil, nil
		}
		if err := d.ctx.InsertUphold(uphold); err != nil {
			return nil, nil
		}
		metrics.SessionUpholdsReceived.Inc()
		metrics.SessionStage.Set(float64(d.ctx.Stage()))
		return wire.PingReplyPayload, nil

	default:
		return nil, nil
	}
}

func (d *Daemon) directoryForRequest(payload []byte) (*noist.Directory, error) {
	if len(payload) == 0 {
		return d.manager.ActiveDirectory()
	}
	if len(payload) != 8 {
		return nil, errBadHeightPayload
	}
	height := binary.BigEndian.Uint64(payload)
	return d.manager.Directory(height)
}

var errBadHeightPayload = errors.New("coordinatorcli: height payload must be 8 bytes")
