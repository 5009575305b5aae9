package main

import (
	"fmt"

	"github.com/mit-dci/litnode/litrpc"
)

var fundCommand = &Command{
	Format: fmt.Sprintf("%s%s%s\n", White("fund"),
		ReqColor("pubkey@host:port", "capacity"), OptColor("public")),
	Description: fmt.Sprintf("%s\n%s\n",
		"Establish and fund a new lightning channel with the given peer.",
		"The capacity is the amount of satoshi we put into the channel."),
	ShortDescription: "Establish and fund a new lightning channel with the given peer.\n",
}

var closeCommand = &Command{
	Format: fmt.Sprintf("%s%s\n", White("close"), ReqColor("channel id", "counterparty")),
	Description: fmt.Sprintf("%s\n%s\n",
		"Cooperatively close the channel with the given id.",
		"The counterparty is forgotten and not reconnected to."),
	ShortDescription: "Cooperatively close the channel with the given id.\n",
}

var graphCommand = &Command{
	Format:           White("graph\n"),
	Description:      "Print our channels as a graphviz dot graph.\n",
	ShortDescription: "Print our channels as a graphviz dot graph.\n",
}

func (lc *litshClient) FundChannel(args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return usage(fundCommand)
	}
	amt, err := parseUint("capacity", args[1])
	if err != nil {
		return err
	}
	fargs := litrpc.FundArgs{Peer: args[0], AmountSats: amt}
	if len(args) == 3 {
		if args[2] != "public" {
			return fmt.Errorf("unexpected argument %q", args[2])
		}
		fargs.Announce = true
	}

	reply := new(litrpc.StatusReply)
	if err := lc.call("OpenChannel", fargs, reply); err != nil {
		return err
	}
	lc.printf("%s\n", reply.Status)
	return nil
}

func (lc *litshClient) CloseChannel(args []string) error {
	if len(args) != 2 {
		return usage(closeCommand)
	}
	reply := new(litrpc.StatusReply)
	err := lc.call("CloseChannel", litrpc.CloseArgs{ChannelID: args[0], Counterparty: args[1]}, reply)
	if err != nil {
		return err
	}
	lc.printf("%s\n", reply.Status)
	return nil
}

func (lc *litshClient) Graph(args []string) error {
	reply := new(litrpc.ChannelGraphReply)
	if err := lc.call("ChannelGraph", litrpc.NoArgs{}, reply); err != nil {
		return err
	}
	lc.printf("%s\n", reply.Graph)
	return nil
}
