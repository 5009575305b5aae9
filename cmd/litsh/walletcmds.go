package main

import (
	"github.com/mit-dci/litnode/litrpc"
)

var adrCommand = &Command{
	Format:           White("adr\n"),
	Description:      "Make a new on-chain address to fund the wallet with.\n",
	ShortDescription: "Make a new on-chain address.\n",
}

var balCommand = &Command{
	Format:           White("bal\n"),
	Description:      "Show the spendable and total on-chain balance.\n",
	ShortDescription: "Show the on-chain balance.\n",
}

var syncCommand = &Command{
	Format:           White("sync\n"),
	Description:      "Sync the wallet and channels with the chain now instead of waiting.\n",
	ShortDescription: "Sync with the chain now.\n",
}

func (lc *litshClient) Address(args []string) error {
	reply := new(litrpc.AddressReply)
	if err := lc.call("NewAddress", litrpc.NoArgs{}, reply); err != nil {
		return err
	}
	lc.printf("new address: %s\n", Address(reply.Address))
	return nil
}

func (lc *litshClient) Balance(args []string) error {
	reply := new(litrpc.BalanceReply)
	if err := lc.call("Balance", litrpc.NoArgs{}, reply); err != nil {
		return err
	}
	lc.printf("\t%s %s %s %s\n",
		Header("Spendable:"), SatoshiColor(reply.Spendable),
		Header("Total:"), SatoshiColor(reply.Total))
	return nil
}

func (lc *litshClient) Sync(args []string) error {
	reply := new(litrpc.StatusReply)
	if err := lc.call("Sync", litrpc.NoArgs{}, reply); err != nil {
		return err
	}
	lc.printf("%s\n", reply.Status)
	return nil
}
