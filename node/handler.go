package node

import (
	"github.com/mit-dci/litnode/engine"
	"github.com/mit-dci/litnode/eventqueue"
	"github.com/mit-dci/litnode/lncore"
	"github.com/mit-dci/litnode/logging"
	"github.com/mit-dci/litnode/metrics"
)

// eventHandler turns protocol engine events into wallet calls, payment store
// updates and user events.  An error return leaves the event with the engine.
type eventHandler struct {
	protocol engine.Protocol
	wallet   engine.Wallet
	queue    *eventqueue.Queue
	inbound  *paymentStore
	outbound *paymentStore
	log      *logging.Logger
}

func (h *eventHandler) HandleEvent(e engine.Event) error {
	h.log.Debugf("engine event %s", e.EventName())

	switch ev := e.(type) {
	case engine.FundingGenerationReady:
		h.fundChannel(ev)
		return nil

	case engine.PaymentClaimable:
		h.claimOrFail(ev)
		return nil

	case engine.PaymentClaimed:
		h.inbound.update(ev.PaymentHash, func(p *lncore.PaymentInfo) {
			p.Status = lncore.PaymentSucceeded
			amt := ev.AmountMsat
			p.AmountMsat = &amt
		})
		h.log.Infof("received %d msat for payment %s", ev.AmountMsat, ev.PaymentHash)
		err := h.queue.Push(lncore.PaymentReceivedEvent{
			PaymentHash: ev.PaymentHash,
			AmountMsat:  ev.AmountMsat,
		})
		if err == nil {
			metrics.IncPayment("inbound", lncore.PaymentSucceeded.String())
		}
		return err

	case engine.PaymentSent:
		h.outbound.update(ev.PaymentHash, func(p *lncore.PaymentInfo) {
			p.Status = lncore.PaymentSucceeded
			pre := ev.Preimage
			p.Preimage = &pre
		})
		h.log.Infof("payment %s sent", ev.PaymentHash)
		err := h.queue.Push(lncore.PaymentSuccessfulEvent{PaymentHash: ev.PaymentHash})
		if err == nil {
			metrics.IncPayment("outbound", lncore.PaymentSucceeded.String())
		}
		return err

	case engine.PaymentFailed:
		h.outbound.update(ev.PaymentHash, func(p *lncore.PaymentInfo) {
			p.Status = lncore.PaymentFailed
		})
		h.log.Warnf("payment %s failed", ev.PaymentHash)
		err := h.queue.Push(lncore.PaymentFailedEvent{PaymentHash: ev.PaymentHash})
		if err == nil {
			metrics.IncPayment("outbound", lncore.PaymentFailed.String())
		}
		return err

	case engine.ChannelReady:
		h.log.Infof("channel %s with %s ready", ev.ChannelID, ev.Counterparty)
		return h.queue.Push(lncore.ChannelReadyEvent{
			ChannelID:     ev.ChannelID,
			UserChannelID: ev.UserChannelID,
		})

	case engine.ChannelClosed:
		h.log.Infof("channel %s closed: %s", ev.ChannelID, ev.Reason)
		return h.queue.Push(lncore.ChannelClosedEvent{
			ChannelID:     ev.ChannelID,
			UserChannelID: ev.UserChannelID,
		})

	case engine.PeerConnected:
		if !ev.Inbound {
			return nil
		}
		h.log.Infof("inbound connection from %s", ev.NodeID)
		return h.queue.Push(lncore.PeerConnectedEvent{NodeID: ev.NodeID, Inbound: true})
	}

	h.log.Warnf("ignoring unknown engine event %T", e)
	return nil
}

func (h *eventHandler) fundChannel(ev engine.FundingGenerationReady) {
	tx, err := h.wallet.CreateFundingTransaction(ev.OutputScript, ev.ValueSats)
	if err != nil {
		h.log.Errorf("funding tx for channel %s: %s, closing it", ev.TemporaryChannelID, err.Error())
		if err := h.protocol.CloseChannel(ev.TemporaryChannelID, ev.Counterparty); err != nil {
			h.log.Errorf("close unfunded channel %s: %s", ev.TemporaryChannelID, err.Error())
		}
		return
	}

	err = h.protocol.FundingTransactionGenerated(ev.TemporaryChannelID, ev.Counterparty, tx)
	if err != nil {
		h.log.Errorf("handing funding tx to engine for %s: %s", ev.TemporaryChannelID, err.Error())
	}
}

func (h *eventHandler) claimOrFail(ev engine.PaymentClaimable) {
	preimage, ok := h.inbound.preimage(ev.PaymentHash)
	if !ok && ev.Preimage != nil {
		preimage, ok = *ev.Preimage, true
	}

	if !ok {
		h.log.Warnf("no preimage for claimable payment %s, failing it back", ev.PaymentHash)
		if err := h.protocol.FailBackwards(ev.PaymentHash); err != nil {
			h.log.Errorf("fail back %s: %s", ev.PaymentHash, err.Error())
		}
		return
	}

	known := h.inbound.update(ev.PaymentHash, func(p *lncore.PaymentInfo) {
		if p.Preimage == nil {
			pre := preimage
			p.Preimage = &pre
		}
	})
	if !known {
		amt := ev.AmountMsat
		h.inbound.insert(ev.PaymentHash, lncore.PaymentInfo{
			Preimage:   &preimage,
			Secret:     ev.Secret,
			Status:     lncore.PaymentPending,
			AmountMsat: &amt,
		})
	}

	if err := h.protocol.ClaimFunds(preimage); err != nil {
		h.log.Errorf("claim %s: %s", ev.PaymentHash, err.Error())
	}
}
