package qln

import (
	"fmt"
	"time"

	"github.com/mit-dci/litnode/engine"
	"github.com/mit-dci/litnode/lncore"
)

const defaultFinalCltvDelta = 144

// PayInvoice pays inv over a direct channel with the payee.
func (nd *LitNode) PayInvoice(inv *engine.Invoice) error {
	switch {
	case inv.Network != nd.network:
		return fmt.Errorf("%w: invoice is for %s, we are on %s", engine.ErrInvoice, inv.Network, nd.network)
	case inv.AmountMsat == nil || *inv.AmountMsat == 0:
		return fmt.Errorf("%w: invoice has no amount", engine.ErrInvoice)
	case inv.IsExpired(time.Now()):
		return fmt.Errorf("%w: invoice expired", engine.ErrInvoice)
	case inv.Payee == nd.NodeID():
		return fmt.Errorf("%w: invoice is our own", engine.ErrInvoice)
	}

	secret := inv.PaymentSecret
	return nd.sendHTLC(inv.Payee, inv.PaymentHash, *inv.AmountMsat, defaultFinalCltvDelta, &secret, nil)
}

// PayPubkey sends a spontaneous payment carrying its own preimage.
func (nd *LitNode) PayPubkey(peer lncore.PublicKey, preimage lncore.PaymentPreimage, amountMsat uint64,
	finalCltvExpiryDelta uint32) error {

	if amountMsat == 0 {
		return fmt.Errorf("%w: zero amount", engine.ErrSending)
	}
	return nd.sendHTLC(peer, preimage.Hash(), amountMsat, finalCltvExpiryDelta, nil, &preimage)
}

func (nd *LitNode) sendHTLC(peer lncore.PublicKey, hash lncore.PaymentHash, amountMsat uint64, cltv uint32,
	secret *lncore.PaymentSecret, preimage *lncore.PaymentPreimage) error {

	nd.mtx.Lock()

	var q *Qchan
	haveChan := false
	for _, c := range nd.channels {
		if c.findHTLC(hash, false) >= 0 {
			nd.mtx.Unlock()
			return fmt.Errorf("%w: payment %s already in flight", engine.ErrSending, hash)
		}
		if c.Counterparty != peer || c.State != StateReady {
			continue
		}
		haveChan = true
		if q == nil && c.LocalMsat >= amountMsat {
			q = c
		}
	}
	if q == nil {
		nd.mtx.Unlock()
		if !haveChan {
			return fmt.Errorf("%w: no ready channel with %s", engine.ErrRouting, peer)
		}
		return fmt.Errorf("%w: not enough outbound capacity to %s for %d msat", engine.ErrRouting, peer, amountMsat)
	}
	if nd.PeerMan.GetPeer(peer) == nil {
		nd.mtx.Unlock()
		return fmt.Errorf("%w: %s is not connected", engine.ErrSendingTransient, peer)
	}

	q.LocalMsat -= amountMsat
	q.HTLCs = append(q.HTLCs, HTLC{PaymentHash: hash, AmountMsat: amountMsat})
	if err := nd.saveChannels(); err != nil {
		q.removeHTLC(len(q.HTLCs) - 1)
		q.LocalMsat += amountMsat
		nd.mtx.Unlock()
		return fmt.Errorf("%w: %v", engine.ErrSending, err)
	}
	msg := updateAddMsg{
		ChannelID:   q.ChannelID,
		PaymentHash: hash,
		AmountMsat:  amountMsat,
		CltvDelta:   cltv,
		Secret:      secret,
		Preimage:    preimage,
	}
	nd.mtx.Unlock()

	if err := nd.PeerMan.SendTo(peer, MSG_UPDATE_ADD, msg); err != nil {
		nd.mtx.Lock()
		if i := q.findHTLC(hash, false); i >= 0 {
			q.removeHTLC(i)
			q.LocalMsat += amountMsat
			nd.saveChannels()
		}
		nd.mtx.Unlock()
		return fmt.Errorf("%w: %v", engine.ErrSendingTransient, err)
	}

	nd.log.Infof("sent %d msat for %s over channel %s", amountMsat, hash, q.ChannelID)
	return nil
}

func (nd *LitNode) updateAddHandler(from lncore.PublicKey, m updateAddMsg) []outMsg {
	fail := func(reason string) []outMsg {
		nd.log.Warnf("failing htlc %s from %s: %s", m.PaymentHash, from, reason)
		return []outMsg{{to: from, mtype: MSG_UPDATE_FAIL, payload: updateFailMsg{
			ChannelID:   m.ChannelID,
			PaymentHash: m.PaymentHash,
			Reason:      reason,
		}}}
	}

	nd.mtx.Lock()
	defer nd.mtx.Unlock()

	i := nd.findChannel(m.ChannelID, from)
	if i < 0 || nd.channels[i].State != StateReady {
		return fail("unknown channel")
	}
	q := nd.channels[i]
	if m.AmountMsat == 0 || m.AmountMsat > q.RemoteMsat {
		return fail("amount exceeds sender balance")
	}
	if q.findHTLC(m.PaymentHash, true) >= 0 {
		return fail("duplicate payment hash")
	}

	claim := engine.PaymentClaimable{
		PaymentHash: m.PaymentHash,
		AmountMsat:  m.AmountMsat,
	}
	if m.Preimage != nil {
		if m.Preimage.Hash() != m.PaymentHash {
			return fail("preimage does not match hash")
		}
		pre := *m.Preimage
		claim.Preimage = &pre
	} else if rec, ok := nd.invoices[m.PaymentHash]; ok {
		if m.Secret == nil || *m.Secret != rec.Secret {
			return fail("payment secret mismatch")
		}
		if rec.AmountMsat != nil && m.AmountMsat < *rec.AmountMsat {
			return fail("amount below invoice")
		}
		pre, sec := rec.Preimage, rec.Secret
		claim.Preimage = &pre
		claim.Secret = &sec
	}

	q.RemoteMsat -= m.AmountMsat
	q.HTLCs = append(q.HTLCs, HTLC{PaymentHash: m.PaymentHash, AmountMsat: m.AmountMsat, Incoming: true})
	if err := nd.saveChannels(); err != nil {
		q.removeHTLC(len(q.HTLCs) - 1)
		q.RemoteMsat += m.AmountMsat
		return fail("temporary failure")
	}

	nd.queueEvent(claim)
	return nil
}

// ClaimFunds settles every incoming HTLC locked to the preimage's hash.
func (nd *LitNode) ClaimFunds(preimage lncore.PaymentPreimage) error {
	hash := preimage.Hash()

	nd.mtx.Lock()
	var out []outMsg
	for _, q := range nd.channels {
		i := q.findHTLC(hash, true)
		if i < 0 {
			continue
		}
		h := q.removeHTLC(i)
		q.LocalMsat += h.AmountMsat
		out = append(out, outMsg{to: q.Counterparty, mtype: MSG_UPDATE_FULFILL, payload: updateFulfillMsg{
			ChannelID: q.ChannelID,
			Preimage:  preimage,
		}})
		nd.queueEvent(engine.PaymentClaimed{PaymentHash: hash, AmountMsat: h.AmountMsat})
	}
	if len(out) == 0 {
		nd.mtx.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownPayment, hash)
	}
	if err := nd.saveChannels(); err != nil {
		nd.log.Errorf("saving claim of %s: %s", hash, err.Error())
	}
	nd.mtx.Unlock()

	nd.send(out...)
	return nil
}

// FailBackwards rejects every incoming HTLC with hash.
func (nd *LitNode) FailBackwards(hash lncore.PaymentHash) error {
	nd.mtx.Lock()
	var out []outMsg
	for _, q := range nd.channels {
		i := q.findHTLC(hash, true)
		if i < 0 {
			continue
		}
		h := q.removeHTLC(i)
		q.RemoteMsat += h.AmountMsat
		out = append(out, outMsg{to: q.Counterparty, mtype: MSG_UPDATE_FAIL, payload: updateFailMsg{
			ChannelID:   q.ChannelID,
			PaymentHash: hash,
			Reason:      "rejected by payee",
		}})
	}
	if len(out) == 0 {
		nd.mtx.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownPayment, hash)
	}
	if err := nd.saveChannels(); err != nil {
		nd.log.Errorf("saving failure of %s: %s", hash, err.Error())
	}
	nd.mtx.Unlock()

	nd.send(out...)
	return nil
}

func (nd *LitNode) updateFulfillHandler(from lncore.PublicKey, m updateFulfillMsg) error {
	hash := m.Preimage.Hash()

	nd.mtx.Lock()
	defer nd.mtx.Unlock()

	i := nd.findChannel(m.ChannelID, from)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrChannelNotFound, m.ChannelID)
	}
	q := nd.channels[i]
	j := q.findHTLC(hash, false)
	if j < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownPayment, hash)
	}
	h := q.removeHTLC(j)
	q.RemoteMsat += h.AmountMsat
	if err := nd.saveChannels(); err != nil {
		nd.log.Errorf("saving fulfill of %s: %s", hash, err.Error())
	}

	nd.queueEvent(engine.PaymentSent{PaymentHash: hash, Preimage: m.Preimage})
	return nil
}

func (nd *LitNode) updateFailHandler(from lncore.PublicKey, m updateFailMsg) error {
	nd.mtx.Lock()
	defer nd.mtx.Unlock()

	i := nd.findChannel(m.ChannelID, from)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrChannelNotFound, m.ChannelID)
	}
	q := nd.channels[i]
	j := q.findHTLC(m.PaymentHash, false)
	if j < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownPayment, m.PaymentHash)
	}
	h := q.removeHTLC(j)
	q.LocalMsat += h.AmountMsat
	if err := nd.saveChannels(); err != nil {
		nd.log.Errorf("saving failure of %s: %s", m.PaymentHash, err.Error())
	}

	nd.log.Infof("payment %s failed at %s: %s", m.PaymentHash, from, m.Reason)
	nd.queueEvent(engine.PaymentFailed{PaymentHash: m.PaymentHash})
	return nil
}
