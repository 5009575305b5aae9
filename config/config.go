package config

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	flags "github.com/jessevdk/go-flags"
	"github.com/mit-dci/litnode/db"
	"github.com/mit-dci/litnode/logging"
	"github.com/mit-dci/litnode/node"
)

type Config struct { // define a struct for usage with go-flags
	LitHomeDir  string `long:"dir" description:"Specify Home Directory of litnode as an absolute path."`
	Network     string `long:"network" choice:"mainnet" choice:"bitcoin" choice:"testnet" choice:"regtest" choice:"signet" description:"Bitcoin network to operate on."`
	ChainSource string `long:"esplora" description:"Esplora server URL http|https://host:port"`
	ConfigFile  string

	Listen    string `long:"listen" description:"host:port to accept peers on."`
	NoListen  bool   `long:"nolisten" description:"Don't accept inbound peer connections."`
	NatMode   string `long:"nat" choice:"none" choice:"upnp" choice:"pmp" description:"Map the listening port on the router."`
	CltvDelta uint32 `long:"cltvdelta" description:"Final CLTV expiry delta for payments we send."`

	Store           string        `long:"store" choice:"bolt" choice:"badger" choice:"file" description:"Storage backend."`
	ShutdownTimeout time.Duration `long:"shutdowntimeout" description:"How long Stop waits for background tasks."`

	Verbose  bool   `short:"v" long:"verbose" description:"Set verbosity to true."`
	LogLevel string `long:"loglevel" choice:"error" choice:"warn" choice:"info" choice:"debug" description:"Log level."`

	Rpcport uint16 `short:"p" long:"rpcport" description:"Set RPC port to connect to"`
	Rpchost string `long:"rpchost" description:"Set RPC host to listen to"`
}

var (
	DefaultLitHomeDirName  = filepath.Join(os.Getenv("HOME"), ".litnode")
	DefaultConfigFilename  = "litnode.conf"
	DefaultRpcport         = uint16(8001)
	DefaultRpchost         = "localhost"
	DefaultListenPort      = "9735"
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = node.DefaultShutdownTimeout
)

// Default returns the configuration used when neither the config file nor
// the command line say otherwise.
func Default() Config {
	return Config{
		LitHomeDir:      DefaultLitHomeDirName,
		Network:         string(node.DefaultNetwork),
		ChainSource:     node.DefaultChainSourceURL,
		Listen:          node.DefaultListeningAddress,
		NatMode:         "none",
		CltvDelta:       node.DefaultCltvExpiryDelta,
		Store:           db.BackendBolt,
		ShutdownTimeout: DefaultShutdownTimeout,
		LogLevel:        DefaultLogLevel,
		Rpcport:         DefaultRpcport,
		Rpchost:         DefaultRpchost,
	}
}

// NewConfigParser returns a new command line flags parser.
func NewConfigParser(conf *Config, options flags.Options) *flags.Parser {
	parser := flags.NewParser(conf, options)
	return parser
}

// Level maps the configured level name to a logger level.
func (c *Config) Level() logging.LogLevel {
	switch c.LogLevel {
	case "error":
		return logging.LogLevelError
	case "warn":
		return logging.LogLevelWarning
	case "debug":
		return logging.LogLevelDebug
	}
	return logging.LogLevelInfo
}

// LogFile is where the daemon writes its log.
func (c *Config) LogFile() string {
	return filepath.Join(c.LitHomeDir, "litnode.log")
}

// RPCAddress is the address the RPC server listens on.
func (c *Config) RPCAddress() string {
	return net.JoinHostPort(c.Rpchost, strconv.Itoa(int(c.Rpcport)))
}
