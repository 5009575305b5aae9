package main

import (
	"errors"
	"fmt"
	"io"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	flags "github.com/jessevdk/go-flags"
	"golang.org/x/net/websocket"

	"github.com/mit-dci/litnode/config"
)

/*
litsh

A text mode interface to litnode.  It connects over jsonrpc on a websocket to
a running node and tells that node what to do.
*/

const historyFilename = "litsh.history"

type shellConfig struct {
	Con        string `long:"con" description:"litnode rpc address host:port"`
	LitHomeDir string `long:"dir" description:"directory to keep shell history in"`
}

type litshClient struct {
	rpccon *rpc.Client
	out    io.Writer
}

type Command struct {
	Format           string
	Description      string
	ShortDescription string
}

// errUserExit ends the shell loop.
var errUserExit = errors.New("user exit")

func dial(con string) (*rpc.Client, error) {
	ws, err := websocket.Dial("ws://"+con+"/ws", "", "http://127.0.0.1/")
	if err != nil {
		return nil, err
	}
	return jsonrpc.NewClient(ws), nil
}

func main() {
	defaults := config.Default()
	conf := shellConfig{
		Con:        defaults.RPCAddress(),
		LitHomeDir: defaults.LitHomeDir,
	}
	if _, err := flags.NewParser(&conf, flags.Default).Parse(); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// create home directory if it does not exist
	if err := os.MkdirAll(conf.LitHomeDir, 0700); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rpccon, err := dial(conf.Con)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s can't reach litnode at %s: %s\n", Red("error:"), conf.Con, err)
		os.Exit(1)
	}
	lc := &litshClient{rpccon: rpccon, out: color.Output}
	defer lc.rpccon.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:       Prompt("litsh") + White("# "),
		HistoryFile:  filepath.Join(conf.LitHomeDir, historyFilename),
		AutoComplete: lc.NewAutoCompleter(),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer rl.Close()

	// main shell loop
	for {
		msg, err := rl.Readline()
		if err != nil {
			break
		}
		msg = strings.TrimSpace(msg)
		if len(msg) == 0 {
			continue
		}
		rl.SaveHistory(msg)

		if err := lc.Shellparse(strings.Fields(msg)); err != nil {
			if !errors.Is(err, errUserExit) {
				fmt.Fprintf(lc.out, "%s %s\n", Red("error:"), err)
			}
			break
		}
	}
}
