package node

import (
	"context"
	"errors"
	"time"

	"github.com/mit-dci/litnode/engine"
	"github.com/mit-dci/litnode/lncore"
	"github.com/mit-dci/litnode/logging"
)

const (
	paymentRetryTimeout  = 10 * time.Second
	paymentRetryInterval = 250 * time.Millisecond
)

// invoicePayer hands payments to the protocol engine, retrying sends that
// failed for a transient reason until retryTimeout has passed.
type invoicePayer struct {
	protocol      engine.Protocol
	log           *logging.Logger
	retryTimeout  time.Duration
	retryInterval time.Duration
}

func newInvoicePayer(p engine.Protocol, log *logging.Logger) *invoicePayer {
	return &invoicePayer{
		protocol:      p,
		log:           log.With("payer"),
		retryTimeout:  paymentRetryTimeout,
		retryInterval: paymentRetryInterval,
	}
}

func (p *invoicePayer) PayInvoice(ctx context.Context, inv *engine.Invoice) error {
	return p.retry(ctx, inv.PaymentHash, func() error {
		return p.protocol.PayInvoice(inv)
	})
}

func (p *invoicePayer) PayPubkey(ctx context.Context, peer lncore.PublicKey, preimage lncore.PaymentPreimage,
	amountMsat uint64, finalCltvExpiryDelta uint32) error {

	return p.retry(ctx, preimage.Hash(), func() error {
		return p.protocol.PayPubkey(peer, preimage, amountMsat, finalCltvExpiryDelta)
	})
}

func (p *invoicePayer) retry(ctx context.Context, h lncore.PaymentHash, send func() error) error {
	deadline := time.Now().Add(p.retryTimeout)
	for attempt := 1; ; attempt++ {
		err := send()
		if !errors.Is(err, engine.ErrSendingTransient) {
			return err
		}
		if time.Now().Add(p.retryInterval).After(deadline) {
			p.log.Warnf("payment %s: giving up after %d attempts", h, attempt)
			return err
		}
		p.log.Debugf("payment %s: attempt %d failed: %s, retrying", h, attempt, err.Error())

		select {
		case <-ctx.Done():
			return err
		case <-time.After(p.retryInterval):
		}
	}
}
