package main

import (
	"fmt"

	"github.com/mit-dci/litnode/litrpc"
)

var conCommand = &Command{
	Format: fmt.Sprintf("%s%s%s\n", White("con"), ReqColor("pubkey@host:port"), OptColor("keep")),
	Description: fmt.Sprintf("%s\n%s\n",
		"Make a connection to another node.",
		"With keep the peer is remembered and reconnected to after restarts."),
	ShortDescription: "Make a connection to another node.\n",
}

var disCommand = &Command{
	Format:           fmt.Sprintf("%s%s\n", White("dis"), ReqColor("pubkey")),
	Description:      "Forget a peer so it is no longer reconnected to.\n",
	ShortDescription: "Forget a peer.\n",
}

func (lc *litshClient) Connect(args []string) error {
	if len(args) < 1 {
		return usage(conCommand)
	}
	cargs := litrpc.ConnectArgs{LNAddr: args[0]}
	if len(args) > 1 {
		if args[1] != "keep" {
			return fmt.Errorf("unexpected argument %q", args[1])
		}
		cargs.Persist = true
	}

	reply := new(litrpc.StatusReply)
	if err := lc.call("Connect", cargs, reply); err != nil {
		return err
	}
	lc.printf("%s\n", reply.Status)
	return nil
}

func (lc *litshClient) Disconnect(args []string) error {
	if len(args) != 1 {
		return usage(disCommand)
	}
	reply := new(litrpc.StatusReply)
	if err := lc.call("Disconnect", litrpc.PubKeyArgs{PubKey: args[0]}, reply); err != nil {
		return err
	}
	lc.printf("%s\n", reply.Status)
	return nil
}
