package node

import (
	"errors"
	"fmt"

	"github.com/mit-dci/litnode/engine"
	"github.com/mit-dci/litnode/lncore"
	"github.com/mit-dci/litnode/metrics"
)

// paymentStatus maps a payer result onto the status recorded for the
// payment, or an error for payments that never left.
func (n *Node) paymentStatus(err error) (lncore.PaymentStatus, error) {
	switch {
	case err == nil:
		return lncore.PaymentPending, nil
	case errors.Is(err, engine.ErrInvoice):
		n.log.Errorf("failed to send payment due to invalid invoice: %s", err.Error())
		return 0, fmt.Errorf("%w: %v", lncore.ErrInvoiceInvalid, err)
	case errors.Is(err, engine.ErrRouting):
		n.log.Errorf("failed to send payment due to routing failure: %s", err.Error())
		return 0, fmt.Errorf("%w: %v", lncore.ErrRoutingFailed, err)
	}
	n.log.Errorf("failed to send payment: %s", err.Error())
	return lncore.PaymentFailed, nil
}

// SendPayment pays an encoded invoice.  A payment that was attempted but
// failed to go out is still recorded, as failed, and its hash returned.
func (n *Node) SendPayment(invoice string) (lncore.PaymentHash, error) {
	rt, err := n.current()
	if err != nil {
		return lncore.PaymentHash{}, err
	}

	inv, err := n.protocol.ParseInvoice(invoice)
	if err != nil {
		return lncore.PaymentHash{}, fmt.Errorf("%w: %v", lncore.ErrInvoiceInvalid, err)
	}
	secret := inv.PaymentSecret
	if !n.outbound.reserve(inv.PaymentHash, lncore.PaymentInfo{
		Secret:     &secret,
		Status:     lncore.PaymentPending,
		AmountMsat: inv.AmountMsat,
	}) {
		return lncore.PaymentHash{}, lncore.ErrNonUniquePaymentHash
	}

	status, err := n.paymentStatus(rt.payer.PayInvoice(rt.ctx, inv))
	if err != nil {
		// never sent, the invoice may be tried again
		n.outbound.remove(inv.PaymentHash)
		return lncore.PaymentHash{}, err
	}
	if status == lncore.PaymentPending && inv.AmountMsat != nil {
		n.log.Infof("initiated sending %d msat to %s", *inv.AmountMsat, inv.Payee)
	}
	if status == lncore.PaymentFailed {
		metrics.IncPayment("outbound", status.String())
		n.outbound.update(inv.PaymentHash, func(p *lncore.PaymentInfo) {
			p.Status = lncore.PaymentFailed
		})
	}
	return inv.PaymentHash, nil
}

// SendSpontaneousPayment pays amountMsat to the node with the given hex
// pubkey without an invoice, using a fresh preimage.
func (n *Node) SendSpontaneousPayment(amountMsat uint64, nodeID string) (lncore.PaymentHash, error) {
	rt, err := n.current()
	if err != nil {
		return lncore.PaymentHash{}, err
	}

	pk, err := lncore.ParsePublicKey(nodeID)
	if err != nil {
		return lncore.PaymentHash{}, fmt.Errorf("%w: %v", lncore.ErrPeerInfoParseFailed, err)
	}

	preimage := lncore.NewPaymentPreimage()
	hash := preimage.Hash()

	err = rt.payer.PayPubkey(rt.ctx, pk, preimage, amountMsat, n.config.DefaultCltvExpiryDelta)
	status, err := n.paymentStatus(err)
	if err != nil {
		return lncore.PaymentHash{}, err
	}
	if status == lncore.PaymentPending {
		n.log.Infof("initiated sending %d msat to %s", amountMsat, pk)
	} else {
		metrics.IncPayment("outbound", status.String())
	}

	amt := amountMsat
	n.outbound.insert(hash, lncore.PaymentInfo{
		Preimage:   &preimage,
		Status:     status,
		AmountMsat: &amt,
	})
	return hash, nil
}

// ReceivePayment creates an invoice.  amountMsat nil means the payer picks
// the amount.
func (n *Node) ReceivePayment(amountMsat *uint64, description string, expirySecs uint32) (*engine.Invoice, error) {
	inv, err := n.protocol.CreateInvoice(amountMsat, description, expirySecs)
	if err != nil {
		n.log.Errorf("failed to create invoice: %s", err.Error())
		return nil, fmt.Errorf("%w: %v", lncore.ErrInvoiceCreationFailed, err)
	}
	n.log.Infof("invoice created: %s", inv)

	secret := inv.PaymentSecret
	var amt *uint64
	if amountMsat != nil {
		v := *amountMsat
		amt = &v
	}
	n.inbound.insert(inv.PaymentHash, lncore.PaymentInfo{
		Secret:     &secret,
		Status:     lncore.PaymentPending,
		AmountMsat: amt,
	})
	return inv, nil
}
