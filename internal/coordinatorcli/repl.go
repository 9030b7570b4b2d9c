package coordinatorcli

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/briandowns/spinner"

	"github.com/brollup/coordinator/coordinatorconfig"
	"github.com/brollup/coordinator/crypto"
	"github.com/brollup/coordinator/internal/metrics"
)

// spinnerRefreshRate is how often the dkg command's preprocessor spinner
// redraws.
const spinnerRefreshRate = 500 * time.Millisecond

// RunREPL reads commands from r, one per line, writing output to w, until
// the "exit" command or r reaches EOF.
func (d *Daemon) RunREPL(ctx context.Context, r io.Reader, w io.Writer) {
	fmt.Fprintln(w, "enter command (type help for options, type exit to quit)")

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "exit":
			return
		case "help":
			d.helpCommand(w)
		case "ops":
			d.opsCommand(w)
		case "blist":
			d.blistCommand(w, parts)
		case "conn":
			d.connCommand(ctx, w, parts)
		case "ping":
			d.pingCommand(ctx, w, parts)
		case "dkg":
			d.dkgCommand(ctx, w, parts)
		case "round":
			d.roundCommand(w, parts)
		default:
			fmt.Fprintf(w, "unknown command %q\n", parts[0])
		}
	}
}

func (d *Daemon) helpCommand(w io.Writer) {
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  ops                         list the fixed operator set")
	fmt.Fprintln(w, "  conn <key_hex> <addr>       dial and register a connection to an operator")
	fmt.Fprintln(w, "  ping <key_hex>              ping a registered connection")
	fmt.Fprintln(w, "  dkg <height>                run a DKG round for height against connected operators")
	fmt.Fprintln(w, "  round <on|lock|upheld|finalize|off|blame>   drive the round state machine")
	fmt.Fprintln(w, "  blist <key_hex>             show a sender's blame record")
	fmt.Fprintln(w, "  exit                        quit")
}

func (d *Daemon) roundCommand(w io.Writer, parts []string) {
	if len(parts) < 2 {
		fmt.Fprintln(w, "usage: round <on|lock|upheld|finalize|off|blame>")
		return
	}

	switch parts[1] {
	case "on":
		d.ctx.On()
		d.cfg.Logger().Infow("", "round", "on", "round_id", d.ctx.RoundID())
		fmt.Fprintf(w, "round on, id %s\n", d.ctx.RoundID())
	case "off":
		d.ctx.Off()
		fmt.Fprintln(w, "round off")
	case "lock":
		if err := d.ctx.Lock(); err != nil {
			fmt.Fprintf(w, "lock failed: %v\n", err)
			return
		}
		d.mu.Lock()
		d.lockedAt = time.Now()
		d.mu.Unlock()
		d.cfg.Logger().Infow("", "round", "locked", "round_id", d.ctx.RoundID())
		fmt.Fprintln(w, "round locked")
	case "upheld":
		if err := d.ctx.Upheld(); err != nil {
			fmt.Fprintf(w, "not upheld yet: %v\n", err)
			return
		}
		fmt.Fprintln(w, "round upheld")
	case "finalize":
		if err := d.ctx.Finalized(); err != nil {
			fmt.Fprintf(w, "finalize failed: %v\n", err)
			return
		}
		d.mu.Lock()
		lockedAt := d.lockedAt
		d.mu.Unlock()
		if !lockedAt.IsZero() {
			metrics.SessionFinalizeLatency.Observe(time.Since(lockedAt).Seconds())
		}
		metrics.SessionStage.Set(float64(d.ctx.Stage()))
		fmt.Fprintln(w, "round finalized")
	case "blame":
		for _, acc := range d.ctx.BlameList() {
			fmt.Fprintf(w, "%x\n", acc.Key().XBytes())
		}
	default:
		fmt.Fprintf(w, "unknown round subcommand %q\n", parts[1])
	}
}

func (d *Daemon) opsCommand(w io.Writer) {
	for i, op := range d.operators.Operators {
		xb := op.XBytes()
		_, connected := d.book.Peer(op)
		fmt.Fprintf(w, "%d: %x connected=%v\n", i, xb, connected)
	}
}

func (d *Daemon) blistCommand(w io.Writer, parts []string) {
	if len(parts) < 2 {
		fmt.Fprintln(w, "usage: blist <key_hex>")
		return
	}
	key, err := parseKeyHex(parts[1])
	if err != nil {
		fmt.Fprintln(w, err)
		return
	}
	metrics.BlacklistSize.Set(float64(d.blacklist.Len()))
	rec, ok := d.blacklist.Record(key)
	if !ok {
		fmt.Fprintln(w, "no blame record")
		return
	}
	fmt.Fprintf(w, "offenses=%d blacklisted_until=%d blacklisted=%v\n",
		rec.BlameCount, rec.BlacklistedUntil, d.blacklist.IsBlacklisted(key))
}

func (d *Daemon) connCommand(ctx context.Context, w io.Writer, parts []string) {
	if len(parts) < 3 {
		fmt.Fprintln(w, "usage: conn <key_hex> <addr>")
		return
	}
	key, err := parseKeyHex(parts[1])
	if err != nil {
		fmt.Fprintln(w, err)
		return
	}
	reqCtx, cancel := context.WithTimeout(ctx, coordinatorconfig.DefaultPingTimeout)
	defer cancel()
	if _, err := d.book.Connect(reqCtx, key, parts[2]); err != nil {
		fmt.Fprintf(w, "connect failed: %v\n", err)
		return
	}
	metrics.WirePeerCount.Set(float64(len(d.book.Entries())))
	fmt.Fprintln(w, "connected")
}

func (d *Daemon) pingCommand(ctx context.Context, w io.Writer, parts []string) {
	if len(parts) < 2 {
		fmt.Fprintln(w, "usage: ping <key_hex>")
		return
	}
	key, err := parseKeyHex(parts[1])
	if err != nil {
		fmt.Fprintln(w, err)
		return
	}
	peer, ok := d.book.Peer(key)
	if !ok {
		fmt.Fprintln(w, "not connected")
		return
	}
	reqCtx, cancel := context.WithTimeout(ctx, coordinatorconfig.DefaultPingTimeout)
	defer cancel()
	rtt, err := peer.Ping(reqCtx)
	if err != nil {
		fmt.Fprintf(w, "ping failed: %v\n", err)
		return
	}
	fmt.Fprintf(w, "pong in %s\n", rtt)
}

func (d *Daemon) dkgCommand(ctx context.Context, w io.Writer, parts []string) {
	if len(parts) < 2 {
		fmt.Fprintln(w, "usage: dkg <height>")
		return
	}
	height, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		fmt.Fprintln(w, "height must be a non-negative integer")
		return
	}

	var filled, target int64
	s := spinner.New(spinner.CharSets[9], spinnerRefreshRate, spinner.WithWriter(w))
	s.PreUpdate = func(spin *spinner.Spinner) {
		f, t := atomic.LoadInt64(&filled), atomic.LoadInt64(&target)
		if t == 0 {
			spin.Suffix = "  collecting key maps..."
			return
		}
		spin.Suffix = fmt.Sprintf("  preprocessing nonce pool %d/%d", f, t)
	}
	s.Start()
	err = d.RunDKG(ctx, height, func(p PreprocessProgress) {
		atomic.StoreInt64(&filled, int64(p.Filled))
		atomic.StoreInt64(&target, int64(p.Target))
	})
	s.Stop()

	if err != nil {
		fmt.Fprintf(w, "dkg failed: %v\n", err)
		return
	}
	fmt.Fprintf(w, "dkg complete for height %d\n", height)
}

func parseKeyHex(s string) (crypto.Point, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 32 {
		return crypto.Point{}, fmt.Errorf("invalid key %q", s)
	}
	var xb [32]byte
	copy(xb[:], raw)
	return crypto.NewPointFromXOnly(xb)
}
