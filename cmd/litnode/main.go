package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	flags "github.com/jessevdk/go-flags"

	"github.com/mit-dci/litnode/config"
	"github.com/mit-dci/litnode/litrpc"
	"github.com/mit-dci/litnode/lncore"
	"github.com/mit-dci/litnode/logging"
	"github.com/mit-dci/litnode/node"
)

func main() {
	conf := config.Default()
	if err := config.Load(&conf, os.Args[1:]); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			fmt.Println(err)
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := run(&conf); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("litnode:"), err)
		os.Exit(1)
	}
}

func run(conf *config.Config) error {
	log, logFile, err := logging.NewFileLogger(conf.LogFile(), conf.Level(), conf.Verbose)
	if err != nil {
		return err
	}
	defer logFile.Close()

	nodeConf, err := conf.NodeConfig()
	if err != nil {
		return err
	}
	n, err := node.FromConfig(nodeConf).SetLogger(log).Build()
	if err != nil {
		return err
	}
	defer n.Close()

	if err := n.Start(); err != nil {
		return err
	}

	banner := color.New(color.FgCyan, color.Bold)
	banner.Printf("litnode %s on %s\n", n.NodeID(), n.Network())
	if addr := n.BoundAddress(); addr != nil {
		fmt.Fprintf(color.Output, "accepting peers on %s\n", color.GreenString(addr.String()))
	}
	fmt.Fprintf(color.Output, "rpc on %s, logging to %s\n",
		color.GreenString(conf.RPCAddress()), conf.LogFile())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rpcl := litrpc.NewLitRPC(n, log.With("rpc"))
	go func() {
		select {
		case <-rpcl.OffButton:
			log.Info("got stop request")
			stop()
		case <-ctx.Done():
		}
	}()

	rpcErr := litrpc.RPCListen(ctx, rpcl, conf.RPCAddress())
	if rpcErr != nil {
		log.Errorf("rpc server: %s", rpcErr.Error())
	}

	log.Info("shutting down")
	if err := n.Stop(); err != nil && !errors.Is(err, lncore.ErrNotRunning) {
		return err
	}
	return rpcErr
}
