package node

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mit-dci/litnode/db"
	"github.com/mit-dci/litnode/engine"
	"github.com/mit-dci/litnode/esplora"
	"github.com/mit-dci/litnode/eventqueue"
	"github.com/mit-dci/litnode/lncore"
	"github.com/mit-dci/litnode/logging"
	"github.com/mit-dci/litnode/nat"
	"github.com/mit-dci/litnode/peerstore"
	"github.com/mit-dci/litnode/qln"
	"github.com/mit-dci/litnode/wallit"
)

const (
	logFileName  = "litnode.log"
	seedFileName = "seed"
)

// Builder collects the options for a Node.  Anything not set falls back to
// DefaultConfig and to the built in engines.
type Builder struct {
	config Config

	log      *logging.Logger
	store    lncore.BlobStore
	protocol engine.Protocol
	wallet   engine.Wallet
	chain    engine.ChainSource
}

func NewBuilder() *Builder {
	return &Builder{config: DefaultConfig()}
}

// FromConfig starts from cfg instead of the defaults.
func FromConfig(cfg Config) *Builder {
	return &Builder{config: cfg}
}

func (b *Builder) SetStorageDirPath(path string) *Builder {
	b.config.StorageDirPath = path
	return b
}

// SetChainSourceURL sets the esplora server the built in chain source and
// wallet talk to.
func (b *Builder) SetChainSourceURL(url string) *Builder {
	b.config.ChainSourceURL = url
	return b
}

// SetNetwork selects mainnet, testnet, regtest or signet.  Anything else
// selects regtest.
func (b *Builder) SetNetwork(network string) *Builder {
	n, err := lncore.ParseNetwork(network)
	if err != nil {
		n = lncore.DefaultNetwork
	}
	b.config.Network = n
	return b
}

// SetListeningAddress sets host:port to accept peers on.  Empty disables
// listening.
func (b *Builder) SetListeningAddress(addr string) *Builder {
	b.config.ListeningAddress = addr
	return b
}

func (b *Builder) SetStoreBackend(backend string) *Builder {
	b.config.StoreBackend = backend
	return b
}

func (b *Builder) SetNatMode(mode string) *Builder {
	b.config.NatMode = mode
	return b
}

func (b *Builder) SetShutdownTimeout(d time.Duration) *Builder {
	b.config.ShutdownTimeout = d
	return b
}

// SetLogger replaces the default log file below the storage directory.
func (b *Builder) SetLogger(log *logging.Logger) *Builder {
	b.log = log
	return b
}

// SetBlobStore replaces the store opened from StoreBackend.  The node does
// not close it.
func (b *Builder) SetBlobStore(s lncore.BlobStore) *Builder {
	b.store = s
	return b
}

func (b *Builder) SetProtocol(p engine.Protocol) *Builder {
	b.protocol = p
	return b
}

func (b *Builder) SetWallet(w engine.Wallet) *Builder {
	b.wallet = w
	return b
}

func (b *Builder) SetChainSource(c engine.ChainSource) *Builder {
	b.chain = c
	return b
}

// Build opens storage, restores persisted state and sets up whatever engines
// weren't supplied.  Corrupt state is an error.
func (b *Builder) Build() (n *Node, err error) {
	cfg := b.config
	if cfg.DefaultCltvExpiryDelta == 0 {
		cfg.DefaultCltvExpiryDelta = DefaultCltvExpiryDelta
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Network == "" {
		cfg.Network = DefaultNetwork
	}
	if !nat.ValidMode(cfg.NatMode) {
		return nil, fmt.Errorf("unknown nat mode %q", cfg.NatMode)
	}

	if err := os.MkdirAll(cfg.StorageDirPath, 0700); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	var closers []io.Closer
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i].Close()
			}
		}
	}()

	log := b.log
	if log == nil {
		var lf io.Closer
		log, lf, err = logging.NewFileLogger(
			filepath.Join(cfg.StorageDirPath, logFileName), cfg.LogLevel, false)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		closers = append(closers, lf)
	}

	store := b.store
	if store == nil {
		s, err := db.Open(cfg.StoreBackend, cfg.StorageDirPath)
		if err != nil {
			return nil, fmt.Errorf("%w: open %s store: %v", lncore.ErrPersistenceFailed, cfg.StoreBackend, err)
		}
		closers = append(closers, s)
		store = s
	}

	queue, err := eventqueue.Load(store, log)
	if err != nil {
		return nil, err
	}
	peers, err := peerstore.Load(store, log)
	if err != nil {
		return nil, err
	}

	protocol, wallet, chain := b.protocol, b.wallet, b.chain
	if protocol == nil || wallet == nil || chain == nil {
		seed, err := wallit.ReadOrCreateSeed(filepath.Join(cfg.StorageDirPath, seedFileName))
		if err != nil {
			return nil, err
		}

		esp := esplora.NewClient(cfg.ChainSourceURL, log.With("esplora"))
		if chain == nil {
			chain = esp
		}
		if wallet == nil {
			w, err := wallit.New(seed, cfg.Network, store, esp, log.With("wallit"))
			if err != nil {
				return nil, err
			}
			wallet = w
		}
		if protocol == nil {
			key, err := wallit.NodeKey(seed, cfg.Network)
			if err != nil {
				return nil, err
			}
			ln, err := qln.New(key, cfg.Network, store, log.With("qln"))
			if err != nil {
				return nil, err
			}
			protocol = ln
		}
	}

	n = &Node{
		config:   cfg,
		log:      log.With("node"),
		rootLog:  log,
		protocol: protocol,
		wallet:   wallet,
		chain:    chain,
		queue:    queue,
		peers:    peers,
		inbound:  newPaymentStore(),
		outbound: newPaymentStore(),
		closers:  closers,

		connectTimeout: connectAttemptTimeout,
	}
	n.log.Infof("built node %s on %s, storage in %s", protocol.NodeID(), cfg.Network, cfg.StorageDirPath)
	return n, nil
}
