// Package config parses the ingestion core's environment into a
// validated Config, following the same go-flags struct-tag idiom the
// rest of the cmd/*/main.go entrypoints use.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jessevdk/go-flags"
)

// APIMode mirrors the node's STACKS_API_MODE values.
type APIMode string

const (
	ModeDefault   APIMode = "default"
	ModeReadOnly  APIMode = "readonly"
	ModeWriteOnly APIMode = "writeonly"
	ModeOffline   APIMode = "offline"
)

// Config is the ingestion core's full environment-derived
// configuration.
type Config struct {
	EventHost string `long:"event-host" env:"STACKS_CORE_EVENT_HOST" description:"host the HTTP event endpoint binds to" required:"true"`
	EventPort int    `long:"event-port" env:"STACKS_CORE_EVENT_PORT" description:"port the HTTP event endpoint binds to" required:"true"`
	ChainID   string `long:"chain-id" env:"STACKS_CHAIN_ID" description:"hex chain ID the node must report" required:"true"`

	APIMode string `long:"api-mode" env:"STACKS_API_MODE" description:"default, readonly, writeonly, or offline" default:"default"`
	// ReadOnlyMode and OfflineMode are the legacy boolean flags kept
	// for backwards compatibility with deployments that predate
	// STACKS_API_MODE.
	ReadOnlyMode bool `long:"read-only-mode" env:"STACKS_READ_ONLY_MODE" description:"legacy equivalent of api-mode=readonly"`
	OfflineMode  bool `long:"offline-mode" env:"STACKS_API_OFFLINE_MODE" description:"legacy equivalent of api-mode=offline"`

	DatabaseURL string `long:"database-url" env:"DATABASE_URL" description:"Postgres connection string" required:"true"`

	BurnchainNetwork string `long:"burnchain-network" env:"STACKS_BURNCHAIN_NETWORK" description:"mainnet, testnet, regtest, or signet" default:"mainnet"`
}

// Load parses os.Args/the environment into a Config and validates it.
func Load(args []string) (Config, error) {
	cfg := Config{}
	if _, err := flags.ParseArgs(&cfg, args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return Config{}, err
		}
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate normalizes and checks fields that go-flags' struct tags
// cannot express on their own: the http scheme stripped off
// EventHost, the STACKS_CORE_EVENT_PORT range, the hex
// STACKS_CHAIN_ID format, and the STACKS_API_MODE value. It does not
// resolve Mode() across the legacy boolean flags.
func (c *Config) Validate() error {
	c.EventHost = strings.TrimPrefix(c.EventHost, "http://")
	c.EventHost = strings.TrimPrefix(c.EventHost, "https://")

	if c.EventPort <= 0 || c.EventPort > 65535 {
		return fmt.Errorf("invalid STACKS_CORE_EVENT_PORT %d", c.EventPort)
	}

	hex := strings.TrimPrefix(c.ChainID, "0x")
	if _, err := strconv.ParseUint(hex, 16, 32); err != nil {
		return fmt.Errorf("invalid STACKS_CHAIN_ID %q: %w", c.ChainID, err)
	}

	switch APIMode(c.APIMode) {
	case ModeDefault, ModeReadOnly, ModeWriteOnly, ModeOffline:
	default:
		return fmt.Errorf("invalid STACKS_API_MODE %q", c.APIMode)
	}

	return nil
}

// Mode resolves the effective API mode, honoring the legacy boolean
// flags when STACKS_API_MODE was left at its default.
func (c *Config) Mode() APIMode {
	if c.APIMode != string(ModeDefault) {
		return APIMode(c.APIMode)
	}
	if c.OfflineMode {
		return ModeOffline
	}
	if c.ReadOnlyMode {
		return ModeReadOnly
	}
	return ModeDefault
}

// ValidateChainID compares the configured chain ID against a chain ID
// reported by the node, case-insensitively and ignoring a 0x prefix,
// and returns an error on mismatch. It does not exit the process, and
// nothing in cmd/eventserver calls it.
func (c *Config) ValidateChainID(reported string) error {
	want := strings.TrimPrefix(strings.ToLower(c.ChainID), "0x")
	got := strings.TrimPrefix(strings.ToLower(reported), "0x")
	if want != got {
		return fmt.Errorf("chain ID mismatch: configured %s, node reports %s", c.ChainID, reported)
	}
	return nil
}
