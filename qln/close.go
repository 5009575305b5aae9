package qln

import (
	"fmt"

	"github.com/mit-dci/litnode/engine"
	"github.com/mit-dci/litnode/lncore"
)

// CloseChannel drops the channel and tells the counterparty.  The channel is
// closed locally even if the peer can't be reached.  Payments still in
// flight over the channel fail.
func (nd *LitNode) CloseChannel(id lncore.ChannelID, counterparty lncore.PublicKey) error {
	nd.mtx.Lock()
	q, err := nd.removeChannel(id, counterparty)
	nd.mtx.Unlock()
	if err != nil {
		return err
	}

	nd.queueClosed(q, "closed by us")
	nd.send(outMsg{to: counterparty, mtype: MSG_SHUTDOWN, payload: shutdownMsg{ChannelID: id}})
	return nil
}

func (nd *LitNode) shutdownHandler(from lncore.PublicKey, m shutdownMsg) error {
	nd.mtx.Lock()
	q, err := nd.removeChannel(m.ChannelID, from)
	nd.mtx.Unlock()
	if err != nil {
		return err
	}

	nd.queueClosed(q, "closed by peer")
	return nil
}

// removeChannel takes the channel out and persists.  Caller holds mtx.
func (nd *LitNode) removeChannel(id lncore.ChannelID, counterparty lncore.PublicKey) (*Qchan, error) {
	i := nd.findChannel(id, counterparty)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s with %s", ErrChannelNotFound, id, counterparty)
	}
	q := nd.channels[i]

	rest := make([]*Qchan, 0, len(nd.channels)-1)
	rest = append(rest, nd.channels[:i]...)
	rest = append(rest, nd.channels[i+1:]...)

	prev := nd.channels
	nd.channels = rest
	if err := nd.saveChannels(); err != nil {
		nd.channels = prev
		return nil, err
	}
	return q, nil
}

func (nd *LitNode) queueClosed(q *Qchan, reason string) {
	nd.log.Infof("channel %s with %s %s", q.ChannelID, q.Counterparty, reason)
	for _, h := range q.HTLCs {
		if !h.Incoming {
			nd.queueEvent(engine.PaymentFailed{PaymentHash: h.PaymentHash})
		}
	}
	nd.queueEvent(engine.ChannelClosed{
		ChannelID:     q.ChannelID,
		UserChannelID: q.UserChannelID,
		Reason:        reason,
	})
}
