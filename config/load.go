package config

import (
	"bufio"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"

	flags "github.com/jessevdk/go-flags"
	"github.com/mit-dci/litnode/lncore"
	"github.com/mit-dci/litnode/nat"
	"github.com/mit-dci/litnode/node"
)

// createDefaultConfigFile creates a config file  -- only call this if the
// config file isn't already there
func createDefaultConfigFile(destinationPath string) error {
	dest, err := os.OpenFile(filepath.Join(destinationPath, DefaultConfigFilename),
		os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer dest.Close()

	writer := bufio.NewWriter(dest)
	defaultArgs := []byte("network=regtest\n")
	if _, err := writer.Write(defaultArgs); err != nil {
		return err
	}
	return writer.Flush()
}

// Load fills conf from the command line and the config file in the home
// directory.  Command line options win over the file.  The home directory
// and a default config file are created if missing.  args excludes the
// program name.  A help request comes back as a *flags.Error of type
// flags.ErrHelp.
func Load(conf *Config, args []string) error {
	// Pre-parse the command line options to see if an alternative home
	// directory was specified.  Any errors aside from the help message
	// error can be ignored here since they will be caught by the final
	// parse below.
	preconf := *conf
	preParser := NewConfigParser(&preconf, flags.HelpFlag)
	if _, err := preParser.ParseArgs(args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return err
		}
	}

	// create home directory
	if err := os.MkdirAll(preconf.LitHomeDir, 0700); err != nil {
		return err
	}

	preconf.ConfigFile = filepath.Join(preconf.LitHomeDir, DefaultConfigFilename)
	if _, err := os.Stat(preconf.ConfigFile); os.IsNotExist(err) {
		// if there is no config file found over at the directory, create one
		if err := createDefaultConfigFile(preconf.LitHomeDir); err != nil {
			return err
		}
	}

	// lets parse the config file provided, if any
	parser := NewConfigParser(conf, flags.Default&^flags.PrintErrors)
	if err := flags.NewIniParser(parser).ParseFile(preconf.ConfigFile); err != nil {
		var perr *os.PathError
		if !errors.As(err, &perr) {
			return err
		}
	}

	// Parse command line options again to ensure they take precedence.
	if _, err := parser.ParseArgs(args); err != nil {
		return err
	}
	conf.ConfigFile = preconf.ConfigFile
	return nil
}

// NodeConfig converts the daemon configuration into what the node builder
// takes.
func (c *Config) NodeConfig() (node.Config, error) {
	network, err := lncore.ParseNetwork(c.Network)
	if err != nil {
		return node.Config{}, err
	}

	nc := node.DefaultConfig()
	nc.StorageDirPath = c.LitHomeDir
	nc.ChainSourceURL = c.ChainSource
	nc.Network = network
	nc.DefaultCltvExpiryDelta = c.CltvDelta
	nc.StoreBackend = c.Store
	nc.ShutdownTimeout = c.ShutdownTimeout
	nc.LogLevel = c.Level()

	nc.NatMode = c.NatMode
	if c.NatMode == "none" {
		nc.NatMode = nat.ModeNone
	}

	nc.ListeningAddress = ""
	if !c.NoListen && c.Listen != "" {
		nc.ListeningAddress = normalizeAddress(c.Listen, DefaultListenPort)
	}
	return nc, nil
}

// normalizeAddress normalizes an address by either setting a missing host to
// all interfaces or missing port to the default port.
func normalizeAddress(addr, defaultPort string) string {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		// If the address is an integer, then we assume it is *only* a
		// port.
		if _, err := strconv.Atoi(addr); err == nil {
			return net.JoinHostPort("0.0.0.0", addr)
		}

		// Otherwise, the address only contains the host so we'll use
		// the default port.
		return net.JoinHostPort(addr, defaultPort)
	}

	return addr
}
