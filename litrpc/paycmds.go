package litrpc

import (
	"fmt"

	"github.com/mit-dci/litnode/lncore"
)

type PaymentReply struct {
	PaymentHash string
}

// ------------------------- pay

type PayArgs struct {
	Invoice string
}

func (r *LitRPC) Pay(args PayArgs, reply *PaymentReply) error {
	h, err := r.Node.SendPayment(args.Invoice)
	if err != nil {
		return err
	}
	reply.PaymentHash = h.String()
	return nil
}

// ------------------------- keysend

type KeySendArgs struct {
	NodeID     string
	AmountMsat uint64
}

func (r *LitRPC) KeySend(args KeySendArgs, reply *PaymentReply) error {
	if args.AmountMsat == 0 {
		return fmt.Errorf("amount must be positive")
	}
	h, err := r.Node.SendSpontaneousPayment(args.AmountMsat, args.NodeID)
	if err != nil {
		return err
	}
	reply.PaymentHash = h.String()
	return nil
}

// ------------------------- invoice

type InvoiceArgs struct {
	AmountMsat  uint64 // 0 lets the payer choose
	Description string
	ExpirySecs  uint32
}

type InvoiceReply struct {
	Invoice     string
	PaymentHash string
}

func (r *LitRPC) Invoice(args InvoiceArgs, reply *InvoiceReply) error {
	var amt *uint64
	if args.AmountMsat != 0 {
		amt = &args.AmountMsat
	}
	expiry := args.ExpirySecs
	if expiry == 0 {
		expiry = 3600
	}

	inv, err := r.Node.ReceivePayment(amt, args.Description, expiry)
	if err != nil {
		return err
	}
	reply.Invoice = inv.Encoded
	reply.PaymentHash = inv.PaymentHash.String()
	return nil
}

// ------------------------- paymentinfo

type PaymentHashArgs struct {
	PaymentHash string
}

type PaymentInfoReply struct {
	Found      bool
	Status     string
	AmountMsat *uint64
	Preimage   string
}

func (r *LitRPC) PaymentInfo(args PaymentHashArgs, reply *PaymentInfoReply) error {
	h, err := lncore.ParsePaymentHash(args.PaymentHash)
	if err != nil {
		return err
	}
	info, ok := r.Node.PaymentInfo(h)
	if !ok {
		return nil
	}

	reply.Found = true
	reply.Status = info.Status.String()
	reply.AmountMsat = info.AmountMsat
	if info.Preimage != nil {
		b, _ := info.Preimage.MarshalText()
		reply.Preimage = string(b)
	}
	return nil
}
