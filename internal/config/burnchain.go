package config

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
)

// BurnchainParams resolves the configured burnchain network name to
// the btcutil chain parameters used to validate reward-recipient
// addresses.
func (c *Config) BurnchainParams() (*chaincfg.Params, error) {
	switch c.BurnchainNetwork {
	case "mainnet", "":
		return &chaincfg.MainNetParams, nil
	case "testnet":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	default:
		return nil, fmt.Errorf("unknown STACKS_BURNCHAIN_NETWORK %q", c.BurnchainNetwork)
	}
}
