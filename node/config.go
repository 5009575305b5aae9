package node

import (
	"time"

	"github.com/mit-dci/litnode/db"
	"github.com/mit-dci/litnode/lncore"
	"github.com/mit-dci/litnode/logging"
)

const (
	DefaultStorageDirPath         = "/tmp/ldk_node/"
	DefaultChainSourceURL         = "http://localhost:3002"
	DefaultNetwork                = lncore.Regtest
	DefaultListeningAddress       = "0.0.0.0:9735"
	DefaultCltvExpiryDelta uint32 = 144
	DefaultShutdownTimeout        = 5 * time.Second
)

// background loop cadence
const (
	walletSyncInterval    = 20 * time.Second
	chainSyncInterval     = 5 * time.Second
	reconnectInterval     = time.Second
	eventProcessInterval  = 100 * time.Millisecond
	connectPollInterval   = 10 * time.Millisecond
	connectAttemptTimeout = 10 * time.Second
)

// to_self_delay we ask of channel counterparties
const theirToSelfDelay uint16 = 2016

// Config is everything needed to build a Node.
type Config struct {
	StorageDirPath string
	ChainSourceURL string
	Network        lncore.Network

	// ListeningAddress is host:port to accept peers on.  Empty disables
	// inbound connections.
	ListeningAddress string

	DefaultCltvExpiryDelta uint32

	StoreBackend    string
	NatMode         string
	ShutdownTimeout time.Duration
	LogLevel        logging.LogLevel
}

// DefaultConfig returns a regtest configuration with the stock paths and
// ports.
func DefaultConfig() Config {
	return Config{
		StorageDirPath:         DefaultStorageDirPath,
		ChainSourceURL:         DefaultChainSourceURL,
		Network:                DefaultNetwork,
		ListeningAddress:       DefaultListeningAddress,
		DefaultCltvExpiryDelta: DefaultCltvExpiryDelta,
		StoreBackend:           db.BackendBolt,
		ShutdownTimeout:        DefaultShutdownTimeout,
		LogLevel:               logging.LogLevelInfo,
	}
}
