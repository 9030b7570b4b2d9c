package coordinatorcli

import (
	"context"
	"fmt"

	"github.com/brollup/coordinator/coordinatorconfig"
	"github.com/brollup/coordinator/crypto"
	"github.com/brollup/coordinator/internal/metrics"
	"github.com/brollup/coordinator/noist"
	"github.com/brollup/coordinator/noist/vse"
	"github.com/brollup/coordinator/wire"
)

// PreprocessProgress reports one batch's outcome while the nonce-pool
// preprocessor tops a directory's pool up to its target, so a caller (the
// CLI's spinner) can surface progress.
type PreprocessProgress struct {
	Filled int
	Target int
}

// RunDKG collects every operator's VSE key map over the wire, including
// this coordinator's own, builds and validates a setup for height,
// installs it into the directory manager, and tops its nonce pool up to
// the configured target. onProgress, if non-nil, is called after every
// batch the preprocessor appends.
func (d *Daemon) RunDKG(ctx context.Context, height uint64, onProgress func(PreprocessProgress)) error {
	setup := vse.NewSetup(d.operators.Operators, height)

	own := d.ownKeyMapRecord()
	if !insertRecord(setup, own) {
		return fmt.Errorf("coordinatorcli: own key map rejected for height %d", height)
	}

	for _, op := range d.operators.Operators {
		if op.Equal(d.identity.Key.Point()) {
			continue
		}
		peer, ok := d.book.Peer(op)
		if !ok {
			return fmt.Errorf("coordinatorcli: no connection registered for operator %x", op.XBytes())
		}
		reqCtx, cancel := context.WithTimeout(ctx, coordinatorconfig.DefaultDirectoryFetchTimeout)
		resp, err := peer.Request(reqCtx, wire.RetrieveVSEKeymap, nil)
		cancel()
		if err != nil {
			return fmt.Errorf("coordinatorcli: fetching key map from %x: %w", op.XBytes(), err)
		}
		if len(resp.Payload) == 0 {
			return fmt.Errorf("coordinatorcli: operator %x returned no key map", op.XBytes())
		}
		rec, err := decodeKeyMapRecord(resp.Payload)
		if err != nil {
			return fmt.Errorf("coordinatorcli: decoding key map from %x: %w", op.XBytes(), err)
		}
		if !insertRecord(setup, rec) {
			return fmt.Errorf("coordinatorcli: key map from %x rejected", op.XBytes())
		}
	}

	if !setup.Validate() {
		return fmt.Errorf("coordinatorcli: collected setup at height %d failed validation", height)
	}

	dir, err := d.manager.InsertSetup(height, d.operators.Operators, setup)
	if err != nil {
		return err
	}

	d.preprocessNonces(dir, onProgress)

	metrics.DKGDirectoryHeight.Set(float64(height))
	metrics.DKGNoncePoolDepth.Set(float64(dir.PoolDepth()))
	return nil
}

// preprocessNonces tops dir's nonce pool up to the configured target, one
// batch at a time, reporting progress after each batch.
func (d *Daemon) preprocessNonces(dir *noist.Directory, onProgress func(PreprocessProgress)) {
	target := d.cfg.NoncePoolTarget()
	batch := d.cfg.NonceBatchSize()

	for dir.PoolSize() < target {
		n := batch
		if remaining := target - dir.PoolSize(); remaining < n {
			n = remaining
		}
		dir.AppendNonceSessions(n)
		if onProgress != nil {
			onProgress(PreprocessProgress{Filled: dir.PoolSize(), Target: target})
		}
	}
}

// insertRecord rehydrates rec against its claimed signer and, if it
// authenticates, inserts it into setup.
func insertRecord(setup *vse.Setup, rec vse.KeyMapRecord) bool {
	signer, err := crypto.NewPointFromXOnly(rec.SignerKey)
	if err != nil {
		return false
	}
	table := make(map[[32]byte]crypto.Point, len(rec.Table))
	for _, entry := range rec.Table {
		p, err := crypto.NewPointFromXOnly(entry.Key)
		if err != nil {
			return false
		}
		table[entry.Correspondent] = p
	}
	km := vse.RehydrateKeyMap(signer, table)
	auth := crypto.RehydrateAuthenticable[vse.KeyMap](km, rec.SignerKey, rec.Signature)
	return setup.Insert(auth)
}
