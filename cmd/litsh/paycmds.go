package main

import (
	"fmt"
	"strings"

	"github.com/mit-dci/litnode/litrpc"
	"github.com/mit-dci/litnode/lncore"
)

var invCommand = &Command{
	Format: fmt.Sprintf("%s%s%s\n", White("inv"), OptColor("msat"), OptColor("description")),
	Description: fmt.Sprintf("%s\n%s\n",
		"Create an invoice for msat millisatoshi that expires in an hour.",
		"Without an amount the payer chooses how much to pay."),
	ShortDescription: "Create an invoice.\n",
}

var payCommand = &Command{
	Format:           fmt.Sprintf("%s%s\n", White("pay"), ReqColor("invoice")),
	Description:      "Pay an invoice over a channel with the payee.\n",
	ShortDescription: "Pay an invoice.\n",
}

var sendCommand = &Command{
	Format:           fmt.Sprintf("%s%s\n", White("send"), ReqColor("pubkey", "msat")),
	Description:      "Send msat millisatoshi to a node without an invoice.\n",
	ShortDescription: "Send to a node without an invoice.\n",
}

var pinfoCommand = &Command{
	Format:           fmt.Sprintf("%s%s\n", White("pinfo"), ReqColor("payment hash")),
	Description:      "Show the status of a payment we sent or received.\n",
	ShortDescription: "Show the status of a payment.\n",
}

var evCommand = &Command{
	Format: White("ev\n"),
	Description: fmt.Sprintf("%s\n%s%s\n",
		"Show the oldest event the node has for us.",
		"It stays there until confirmed with ", White("ack")),
	ShortDescription: "Show the next event.\n",
}

var ackCommand = &Command{
	Format:           White("ack\n"),
	Description:      "Confirm the event shown by ev so the next one comes up.\n",
	ShortDescription: "Confirm the current event.\n",
}

func (lc *litshClient) Invoice(args []string) error {
	iargs := litrpc.InvoiceArgs{ExpirySecs: 3600}
	if len(args) > 0 {
		amt, err := parseUint("msat", args[0])
		if err != nil {
			return err
		}
		iargs.AmountMsat = amt
		iargs.Description = strings.Join(args[1:], " ")
	}

	reply := new(litrpc.InvoiceReply)
	if err := lc.call("Invoice", iargs, reply); err != nil {
		return err
	}
	lc.printf("%s\npayment hash %s\n", Green(reply.Invoice), reply.PaymentHash)
	return nil
}

func (lc *litshClient) Pay(args []string) error {
	if len(args) != 1 {
		return usage(payCommand)
	}
	reply := new(litrpc.PaymentReply)
	if err := lc.call("Pay", litrpc.PayArgs{Invoice: args[0]}, reply); err != nil {
		return err
	}
	lc.printf("sending payment %s\n", White(reply.PaymentHash))
	return nil
}

func (lc *litshClient) Send(args []string) error {
	if len(args) != 2 {
		return usage(sendCommand)
	}
	amt, err := parseUint("msat", args[1])
	if err != nil {
		return err
	}
	reply := new(litrpc.PaymentReply)
	if err := lc.call("KeySend", litrpc.KeySendArgs{NodeID: args[0], AmountMsat: amt}, reply); err != nil {
		return err
	}
	lc.printf("sending payment %s\n", White(reply.PaymentHash))
	return nil
}

func (lc *litshClient) PaymentInfo(args []string) error {
	if len(args) != 1 {
		return usage(pinfoCommand)
	}
	reply := new(litrpc.PaymentInfoReply)
	if err := lc.call("PaymentInfo", litrpc.PaymentHashArgs{PaymentHash: args[0]}, reply); err != nil {
		return err
	}
	if !reply.Found {
		lc.printf("no payment %s\n", args[0])
		return nil
	}

	status := reply.Status
	switch status {
	case lncore.PaymentSucceeded.String():
		status = Green(status)
	case lncore.PaymentFailed.String():
		status = Red(status)
	}
	lc.printf("%s %s", Header("status:"), status)
	if reply.AmountMsat != nil {
		lc.printf(" %s %d msat", Header("amount:"), *reply.AmountMsat)
	}
	if reply.Preimage != "" {
		lc.printf(" %s %s", Header("preimage:"), reply.Preimage)
	}
	lc.printf("\n")
	return nil
}

func (lc *litshClient) Event(args []string) error {
	reply := new(litrpc.EventReply)
	if err := lc.call("NextEvent", litrpc.NoArgs{}, reply); err != nil {
		return err
	}
	if !reply.Found {
		lc.printf("no events\n")
		return nil
	}
	lc.printf("%s %s\n", Header(reply.Type), string(reply.Event))
	return nil
}

func (lc *litshClient) Ack(args []string) error {
	reply := new(litrpc.StatusReply)
	if err := lc.call("EventHandled", litrpc.NoArgs{}, reply); err != nil {
		return err
	}
	lc.printf("%s\n", reply.Status)
	return nil
}
