package main

import (
	"errors"
	"fmt"
	"net/rpc"
	"sort"
	"strconv"
	"strings"

	"github.com/mit-dci/litnode/litrpc"
)

var lsCommand = &Command{
	Format:           White("ls\n"),
	Description:      "Show our node id, peers, channels and on-chain balance.\n",
	ShortDescription: "Show various information about our current state\n",
}

var exitCommand = &Command{
	Format:           White("exit\n"),
	Description:      fmt.Sprintf("Alias: %s\nExit the interactive shell.\n", White("quit")),
	ShortDescription: "Exit the interactive shell.\n",
}

var helpCommand = &Command{
	Format:           fmt.Sprintf("%s%s\n", White("help"), OptColor("command")),
	Description:      "Show information about a given command\n",
	ShortDescription: "Show information about a given command\n",
}

var startCommand = &Command{
	Format:           White("start\n"),
	Description:      "Start the node's background tasks and peer listener.\n",
	ShortDescription: "Start the node.\n",
}

var stopCommand = &Command{
	Format:           White("stop\n"),
	Description:      fmt.Sprintf("Shut down litnode.  To keep the daemon up and only\nstop the node use %s.\n", White("halt")),
	ShortDescription: "Shut down litnode.\n",
}

var haltCommand = &Command{
	Format:           White("halt\n"),
	Description:      "Stop the node but keep the daemon and this shell's connection up.\n",
	ShortDescription: "Stop the node.\n",
}

type shellCmd struct {
	help *Command
	run  func(lc *litshClient, args []string) error
}

var commands map[string]shellCmd

func init() {
	commands = map[string]shellCmd{
		"ls":    {lsCommand, (*litshClient).Ls},
		"start": {startCommand, (*litshClient).Start},
		"halt":  {haltCommand, (*litshClient).Halt},
		"stop":  {stopCommand, (*litshClient).Stop},
		"adr":   {adrCommand, (*litshClient).Address},
		"bal":   {balCommand, (*litshClient).Balance},
		"sync":  {syncCommand, (*litshClient).Sync},
		"con":   {conCommand, (*litshClient).Connect},
		"dis":   {disCommand, (*litshClient).Disconnect},
		"fund":  {fundCommand, (*litshClient).FundChannel},
		"close": {closeCommand, (*litshClient).CloseChannel},
		"graph": {graphCommand, (*litshClient).Graph},
		"inv":   {invCommand, (*litshClient).Invoice},
		"pay":   {payCommand, (*litshClient).Pay},
		"send":  {sendCommand, (*litshClient).Send},
		"pinfo": {pinfoCommand, (*litshClient).PaymentInfo},
		"ev":    {evCommand, (*litshClient).Event},
		"ack":   {ackCommand, (*litshClient).Ack},
	}
}

func (lc *litshClient) printf(format string, args ...interface{}) {
	fmt.Fprintf(lc.out, format, args...)
}

// wantsHelp prints a command's usage if it was asked for with -h.
func (lc *litshClient) wantsHelp(c *Command, args []string) bool {
	if len(args) > 0 && args[0] == "-h" {
		lc.printf("%s%s", c.Format, c.Description)
		return true
	}
	return false
}

// Shellparse parses user input and hands it to command functions if
// matching.  Only errUserExit or a broken rpc connection come back; other
// command errors are printed.
func (lc *litshClient) Shellparse(cmdslice []string) error {
	if len(cmdslice) == 0 {
		return nil
	}
	cmd, args := cmdslice[0], cmdslice[1:]

	switch cmd {
	case "exit", "quit":
		return lc.Exit(args)
	case "help":
		if err := lc.Help(args); err != nil {
			lc.printf("help error: %s\n", err)
		}
		return nil
	}

	c, ok := commands[cmd]
	if !ok {
		lc.printf("Command not recognized. type help for command list.\n")
		return nil
	}
	if lc.wantsHelp(c.help, args) {
		return nil
	}

	err := c.run(lc, args)
	if err == nil {
		return nil
	}
	if errors.Is(err, errUserExit) || errors.Is(err, rpc.ErrShutdown) {
		return err
	}
	lc.printf("%s error: %s\n", cmd, err)
	return nil
}

func (lc *litshClient) Exit(args []string) error {
	if lc.wantsHelp(exitCommand, args) {
		return nil
	}
	if len(args) > 0 {
		lc.printf("Unexpected argument: %s\n", args[0])
		return nil
	}
	return errUserExit
}

func (lc *litshClient) Help(args []string) error {
	if len(args) == 0 {
		names := make([]string, 0, len(commands))
		for name := range commands {
			names = append(names, name)
		}
		sort.Strings(names)

		lc.printf("%s\n", Header("Commands:"))
		for _, name := range names {
			lc.printf("%-6s %s", White(name), commands[name].help.ShortDescription)
		}
		lc.printf("%-6s %s", White("exit"), exitCommand.ShortDescription)
		lc.printf("%-6s %s", White("help"), helpCommand.ShortDescription)
		return nil
	}
	if len(args) > 1 {
		return fmt.Errorf("help takes at most one argument")
	}

	var c *Command
	switch args[0] {
	case "-h", "help":
		c = helpCommand
	case "exit", "quit":
		c = exitCommand
	default:
		sc, ok := commands[args[0]]
		if !ok {
			return fmt.Errorf("unknown command %q", args[0])
		}
		c = sc.help
	}
	lc.printf("%s%s", c.Format, c.Description)
	return nil
}

func (lc *litshClient) Start(args []string) error {
	reply := new(litrpc.StatusReply)
	if err := lc.call("Start", litrpc.NoArgs{}, reply); err != nil {
		return err
	}
	lc.printf("%s\n", reply.Status)
	return nil
}

func (lc *litshClient) Halt(args []string) error {
	reply := new(litrpc.StatusReply)
	if err := lc.call("Stop", litrpc.NoArgs{}, reply); err != nil {
		return err
	}
	lc.printf("%s\n", reply.Status)
	return nil
}

// Stop asks the daemon to exit, which also ends the shell.
func (lc *litshClient) Stop(args []string) error {
	reply := new(litrpc.StatusReply)
	if err := lc.call("Shutdown", litrpc.NoArgs{}, reply); err != nil {
		return err
	}
	lc.printf("%s\n", reply.Status)
	return errUserExit
}

func (lc *litshClient) Ls(args []string) error {
	info := new(litrpc.NodeInfoReply)
	if err := lc.call("NodeID", litrpc.NoArgs{}, info); err != nil {
		return err
	}
	state := Red("stopped")
	if info.Running {
		state = Green("running")
	}
	lc.printf("%s %s on %s (%s)\n", Header("Node:"), White(info.NodeID), info.Network, state)
	if info.ListeningAddress != "" {
		lc.printf("listening on %s\n", info.ListeningAddress)
	}

	peers := new(litrpc.ListPeersReply)
	if err := lc.call("ListPeers", litrpc.NoArgs{}, peers); err != nil {
		return err
	}
	if len(peers.Peers) > 0 {
		lc.printf("\t%s\n", Header("Peers:"))
		for _, p := range peers.Peers {
			status := Red("offline")
			if p.Connected {
				status = Green("online")
			}
			lc.printf("%s %s %s\n", White(p.PubKey), p.Address, status)
		}
	}

	chans := new(litrpc.ChannelListReply)
	if err := lc.call("ListChannels", litrpc.NoArgs{}, chans); err != nil {
		return err
	}
	if len(chans.Channels) > 0 {
		lc.printf("\t%s\n", Header("Channels:"))
	}
	for _, c := range chans.Channels {
		if c.IsReady {
			lc.printf("%s", Green("Channel "))
		} else {
			lc.printf("%s", Red("Pending "))
		}
		lc.printf("%s peer %s\n\t cap: %s out: %s in: %s\n",
			White(c.ChannelID.String()), c.Counterparty,
			SatoshiColor(c.CapacitySats),
			SatoshiColor(c.OutboundCapacityMsat/1000), SatoshiColor(c.InboundCapacityMsat/1000))
	}

	return lc.Balance(nil)
}

// parseUint reads a positive amount argument.
func parseUint(name, s string) (uint64, error) {
	v, err := strconv.ParseUint(strings.ReplaceAll(s, "_", ""), 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("%s %q is not a positive integer", name, s)
	}
	return v, nil
}

func usage(c *Command) error {
	return errors.New("usage: " + strings.TrimSpace(c.Format))
}
