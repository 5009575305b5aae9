package lncore

import (
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
)

// Network is the bitcoin network the node operates on.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
	Regtest Network = "regtest"
	Signet  Network = "signet"
)

// DefaultNetwork is used when nothing (or garbage) was configured.
const DefaultNetwork = Regtest

// ParseNetwork accepts mainnet (or bitcoin), testnet, regtest and signet.
func ParseNetwork(s string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mainnet", "bitcoin":
		return Mainnet, nil
	case "testnet":
		return Testnet, nil
	case "regtest":
		return Regtest, nil
	case "signet":
		return Signet, nil
	}
	return "", ErrNetworkInvalid
}

// Params returns the btcd chain parameters for the network.
func (n Network) Params() *chaincfg.Params {
	switch n {
	case Mainnet:
		return &chaincfg.MainNetParams
	case Testnet:
		return &chaincfg.TestNet3Params
	case Signet:
		return &chaincfg.SigNetParams
	default:
		return &chaincfg.RegressionNetParams
	}
}

// InvoicePrefix is the human readable part used for invoices on the network.
func (n Network) InvoicePrefix() string {
	switch n {
	case Mainnet:
		return "lnbc"
	case Testnet:
		return "lntb"
	case Signet:
		return "lntbs"
	default:
		return "lnbcrt"
	}
}
