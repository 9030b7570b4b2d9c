// Package coordinatorconfig holds the coordinator's runtime configuration:
// where it stores its data, which address it listens on, and the fixed set
// of operators it coordinates a session for.
package coordinatorconfig

import (
	"os"
	"path"
	"time"

	clock "github.com/jonboulle/clockwork"

	"github.com/brollup/coordinator/log"
)

// DefaultListenAddr is the address the coordinator listens on absent an
// explicit override.
const DefaultListenAddr = ":7645"

// DefaultDBFolder is the subdirectory of the config folder the on-disk
// bbolt database lives under.
const DefaultDBFolder = "db"

// DefaultOperatorSetFile is the TOML file holding the operator set, stored
// directly under the config folder.
const DefaultOperatorSetFile = "operators.toml"

// DefaultPingTimeout, DefaultDirectoryFetchTimeout are the per-call peer
// request timeouts.
const (
	DefaultPingTimeout             = 10 * time.Second
	DefaultDirectoryFetchTimeout   = 3 * time.Second
	DefaultDisconnectPingFailures  = 3
	DefaultDisconnectPingInterval  = 3 * time.Second
	DefaultReconnectBackoff        = 5 * time.Second
)

// DefaultNoncePoolTarget, DefaultNonceBatchSize govern the nonce-pool
// preprocessor: it tops the pool up to the target, one batch at a time.
const (
	DefaultNoncePoolTarget = 1000
	DefaultNonceBatchSize  = 64
)

// DefaultConfigFolder returns the coordinator's default config directory
// under the user's home directory.
func DefaultConfigFolder() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return path.Join(home, ".coordinator")
}

// Option applies one setting to a Config.
type Option func(*Config)

// Config holds all runtime configuration for one coordinator instance.
type Config struct {
	configFolder    string
	listenAddr      string
	logger          log.Logger
	clock           clock.Clock
	noncePoolTarget int
	nonceBatchSize  int
}

// New builds a Config with defaults, then applies opts.
func New(opts ...Option) *Config {
	c := &Config{
		configFolder:    DefaultConfigFolder(),
		listenAddr:      DefaultListenAddr,
		logger:          log.DefaultLogger(),
		clock:           clock.NewRealClock(),
		noncePoolTarget: DefaultNoncePoolTarget,
		nonceBatchSize:  DefaultNonceBatchSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithConfigFolder overrides the config directory.
func WithConfigFolder(folder string) Option {
	return func(c *Config) { c.configFolder = folder }
}

// WithListenAddr overrides the listen address.
func WithListenAddr(addr string) Option {
	return func(c *Config) { c.listenAddr = addr }
}

// WithLogger overrides the logger.
func WithLogger(l log.Logger) Option {
	return func(c *Config) { c.logger = l }
}

// WithClock overrides the clock, for tests.
func WithClock(c clock.Clock) Option {
	return func(cfg *Config) { cfg.clock = c }
}

// WithNoncePoolTarget overrides how many filled nonce sessions the
// preprocessor tops each directory's pool up to.
func WithNoncePoolTarget(n int) Option {
	return func(cfg *Config) { cfg.noncePoolTarget = n }
}

// WithNonceBatchSize overrides how many nonce sessions the preprocessor
// appends per batch while topping up the pool.
func WithNonceBatchSize(n int) Option {
	return func(cfg *Config) { cfg.nonceBatchSize = n }
}

// ConfigFolder returns the directory the coordinator stores its state under.
func (c *Config) ConfigFolder() string { return c.configFolder }

// DBFolder returns the directory the bbolt database lives under.
func (c *Config) DBFolder() string { return path.Join(c.configFolder, DefaultDBFolder) }

// OperatorSetPath returns the path to the operator set TOML file.
func (c *Config) OperatorSetPath() string { return path.Join(c.configFolder, DefaultOperatorSetFile) }

// IdentityPath returns the path to the coordinator's own keypair file.
func (c *Config) IdentityPath() string { return path.Join(c.configFolder, DefaultIdentityFile) }

// ListenAddr returns the address the coordinator's wire listener binds.
func (c *Config) ListenAddr() string { return c.listenAddr }

// Logger returns the configured logger.
func (c *Config) Logger() log.Logger { return c.logger }

// Clock returns the configured clock.
func (c *Config) Clock() clock.Clock { return c.clock }

// NoncePoolTarget returns how many filled nonce sessions the preprocessor
// tops each directory's pool up to.
func (c *Config) NoncePoolTarget() int { return c.noncePoolTarget }

// NonceBatchSize returns how many nonce sessions the preprocessor appends
// per batch while topping up the pool.
func (c *Config) NonceBatchSize() int { return c.nonceBatchSize }

// EnsureDirectories creates the config and db folders if they do not
// already exist.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.ConfigFolder(), 0740); err != nil {
		return err
	}
	return os.MkdirAll(c.DBFolder(), 0740)
}
