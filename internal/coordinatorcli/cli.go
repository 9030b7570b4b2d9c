package coordinatorcli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v2"

	"github.com/brollup/coordinator/coordinatorconfig"
	"github.com/brollup/coordinator/internal/metrics"
)

var folderFlag = &cli.StringFlag{
	Name:  "folder",
	Usage: "folder to keep all coordinator state in",
	Value: coordinatorconfig.DefaultConfigFolder(),
}

var listenFlag = &cli.StringFlag{
	Name:  "listen",
	Usage: "address to listen for peer connections on",
	Value: coordinatorconfig.DefaultListenAddr,
}

var thresholdFlag = &cli.IntFlag{
	Name:     "threshold",
	Usage:    "signing threshold for the operator set",
	Required: true,
}

var operatorsFlag = &cli.StringSliceFlag{
	Name:     "operator",
	Usage:    "hex-encoded xonly public key of an operator; repeatable",
	Required: true,
}

var metricsFlag = &cli.StringFlag{
	Name:  "metrics",
	Usage: "address to serve prometheus metrics and pprof on; empty disables",
}

func toArray(flags ...cli.Flag) []cli.Flag {
	return flags
}

// CLI builds the coordinator's command-line application.
func CLI() *cli.App {
	app := cli.NewApp()
	app.Name = "coordinator"
	app.Usage = "runs a Bitcoin-anchored rollup coordinator node"
	app.Flags = toArray(folderFlag)

	app.Commands = []*cli.Command{
		{
			Name:  "keygen",
			Usage: "generates and saves this coordinator's identity keypair, if one does not already exist",
			Flags: toArray(folderFlag),
			Action: func(c *cli.Context) error {
				return keygenCmd(c.String(folderFlag.Name))
			},
		},
		{
			Name:  "init-operators",
			Usage: "builds and saves the fixed operator set this coordinator runs sessions with",
			Flags: toArray(folderFlag, thresholdFlag, operatorsFlag),
			Action: func(c *cli.Context) error {
				return initOperatorsCmd(c.String(folderFlag.Name), c.Int(thresholdFlag.Name), c.StringSlice(operatorsFlag.Name))
			},
		},
		{
			Name:  "start",
			Usage: "starts the coordinator daemon and its interactive command shell",
			Flags: toArray(folderFlag, listenFlag, metricsFlag),
			Action: func(c *cli.Context) error {
				return startCmd(c.String(folderFlag.Name), c.String(listenFlag.Name),
					c.String(metricsFlag.Name))
			},
		},
	}

	app.ExitErrHandler = func(c *cli.Context, err error) {
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	return app
}

func keygenCmd(folder string) error {
	cfg := coordinatorconfig.New(coordinatorconfig.WithConfigFolder(folder))
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	if _, err := coordinatorconfig.LoadIdentity(cfg.IdentityPath()); err == nil {
		return fmt.Errorf("coordinatorcli: identity already exists at %s", cfg.IdentityPath())
	}

	id, err := coordinatorconfig.GenerateIdentity()
	if err != nil {
		return err
	}
	if err := coordinatorconfig.SaveIdentity(cfg.IdentityPath(), id); err != nil {
		return err
	}
	fmt.Printf("generated identity, public key %x\n", id.Key.Point().XBytes())
	return nil
}

func initOperatorsCmd(folder string, threshold int, operatorHex []string) error {
	cfg := coordinatorconfig.New(coordinatorconfig.WithConfigFolder(folder))
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	set := &coordinatorconfig.OperatorSet{Threshold: threshold}
	for _, h := range operatorHex {
		key, err := parseKeyHex(h)
		if err != nil {
			return fmt.Errorf("coordinatorcli: %w", err)
		}
		set.Operators = append(set.Operators, key)
	}
	if threshold < 1 || threshold > len(set.Operators) {
		return fmt.Errorf("coordinatorcli: threshold %d out of range for %d operators", threshold, len(set.Operators))
	}

	if err := coordinatorconfig.SaveOperatorSet(cfg.OperatorSetPath(), set); err != nil {
		return err
	}
	fmt.Printf("saved operator set of %d keys, threshold %d\n", len(set.Operators), threshold)
	return nil
}

func startCmd(folder, listenAddr, metricsBind string) error {
	cfg := coordinatorconfig.New(
		coordinatorconfig.WithConfigFolder(folder),
		coordinatorconfig.WithListenAddr(listenAddr),
	)

	d, err := NewDaemon(cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	if metricsBind != "" {
		if l := metrics.Start(cfg.Logger(), metricsBind); l != nil {
			defer l.Close()
		}
	}

	monitor := metrics.NewThresholdMonitor(cfg.Logger(), len(d.Operators().Operators), d.Operators().Threshold)
	monitor.Start()
	defer monitor.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := d.Start(ctx); err != nil {
		return err
	}
	fmt.Printf("listening on %s\n", cfg.ListenAddr())

	d.RunREPL(ctx, bufio.NewReader(os.Stdin), os.Stdout)
	return nil
}
