package qln

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/mit-dci/litnode/engine"
	"github.com/mit-dci/litnode/lncore"
	"github.com/mit-dci/litnode/lnp2p"
)

const minChannelSats = 1000

// fundingScript is the P2WSH output paying to a 2 of 2 multisig of both node
// keys, in sorted order.
func fundingScript(a, b lncore.PublicKey) ([]byte, error) {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	witness, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_2).
		AddData(a[:]).
		AddData(b[:]).
		AddOp(txscript.OP_2).
		AddOp(txscript.OP_CHECKMULTISIG).
		Script()
	if err != nil {
		return nil, err
	}
	h := sha256.Sum256(witness)
	return txscript.NewScriptBuilder().AddOp(txscript.OP_0).AddData(h[:]).Script()
}

// OpenChannel starts the channel open handshake with a connected peer.  The
// returned id is temporary until the funding transaction is known.
func (nd *LitNode) OpenChannel(peer lncore.PublicKey, amountSats, pushMsat uint64,
	userChannelID lncore.UserChannelID, cfg engine.ChannelConfig) (lncore.ChannelID, error) {

	var temp lncore.ChannelID

	if amountSats < minChannelSats {
		return temp, fmt.Errorf("%w: channel of %d sat below minimum %d", ErrChannelParams, amountSats, minChannelSats)
	}
	if pushMsat > amountSats*1000 {
		return temp, fmt.Errorf("%w: push %d msat exceeds capacity", ErrChannelParams, pushMsat)
	}
	if nd.PeerMan.GetPeer(peer) == nil {
		return temp, fmt.Errorf("%w: %s", lnp2p.ErrPeerNotConnected, peer)
	}
	if _, err := rand.Read(temp[:]); err != nil {
		return temp, err
	}

	q := &Qchan{
		ChannelID:        temp,
		TempID:           temp,
		UserChannelID:    userChannelID,
		Counterparty:     peer,
		CapacitySats:     amountSats,
		LocalMsat:        amountSats*1000 - pushMsat,
		RemoteMsat:       pushMsat,
		IsOutbound:       true,
		Public:           cfg.AnnouncedChannel,
		TheirToSelfDelay: cfg.TheirToSelfDelay,
		State:            StatePendingOpen,
	}

	nd.mtx.Lock()
	nd.channels = append(nd.channels, q)
	if err := nd.saveChannels(); err != nil {
		nd.channels = nd.channels[:len(nd.channels)-1]
		nd.mtx.Unlock()
		return temp, err
	}
	nd.mtx.Unlock()

	err := nd.PeerMan.SendTo(peer, MSG_OPEN_CHANNEL, openChannelMsg{
		TempID:       temp,
		CapacitySats: amountSats,
		PushMsat:     pushMsat,
		Announce:     cfg.AnnouncedChannel,
		ToSelfDelay:  cfg.TheirToSelfDelay,
	})
	if err != nil {
		nd.mtx.Lock()
		if i := nd.findChannel(temp, peer); i >= 0 {
			nd.channels = append(nd.channels[:i], nd.channels[i+1:]...)
			nd.saveChannels()
		}
		nd.mtx.Unlock()
		return temp, err
	}

	nd.log.Infof("sent open_channel %s to %s for %d sat", temp, peer, amountSats)
	return temp, nil
}

func (nd *LitNode) openChannelHandler(from lncore.PublicKey, m openChannelMsg) ([]outMsg, error) {
	if m.CapacitySats < minChannelSats || m.PushMsat > m.CapacitySats*1000 {
		return nil, fmt.Errorf("%w: capacity %d push %d", ErrChannelParams, m.CapacitySats, m.PushMsat)
	}
	script, err := fundingScript(nd.NodeID(), from)
	if err != nil {
		return nil, err
	}

	nd.mtx.Lock()
	defer nd.mtx.Unlock()

	if nd.findChannel(m.TempID, from) >= 0 {
		return nil, fmt.Errorf("%w: duplicate temporary id %s", ErrChannelParams, m.TempID)
	}

	q := &Qchan{
		ChannelID:        m.TempID,
		TempID:           m.TempID,
		UserChannelID:    lncore.NewUserChannelID(),
		Counterparty:     from,
		CapacitySats:     m.CapacitySats,
		LocalMsat:        m.PushMsat,
		RemoteMsat:       m.CapacitySats*1000 - m.PushMsat,
		Public:           m.Announce,
		TheirToSelfDelay: m.ToSelfDelay,
		State:            StateAwaitingFunding,
		FundingScript:    script,
	}
	nd.channels = append(nd.channels, q)
	if err := nd.saveChannels(); err != nil {
		nd.channels = nd.channels[:len(nd.channels)-1]
		return nil, err
	}

	return []outMsg{{to: from, mtype: MSG_ACCEPT_CHANNEL, payload: acceptChannelMsg{TempID: m.TempID}}}, nil
}

func (nd *LitNode) acceptChannelHandler(from lncore.PublicKey, m acceptChannelMsg) error {
	script, err := fundingScript(nd.NodeID(), from)
	if err != nil {
		return err
	}

	nd.mtx.Lock()
	defer nd.mtx.Unlock()

	q := nd.findByTempID(m.TempID, from, StatePendingOpen)
	if q == nil || !q.IsOutbound {
		return fmt.Errorf("%w: no pending open %s", ErrChannelNotFound, m.TempID)
	}
	q.State = StateAwaitingFunding
	q.FundingScript = script
	if err := nd.saveChannels(); err != nil {
		return err
	}

	nd.queueEvent(engine.FundingGenerationReady{
		TemporaryChannelID: q.TempID,
		Counterparty:       from,
		ValueSats:          q.CapacitySats,
		OutputScript:       script,
		UserChannelID:      q.UserChannelID,
	})
	return nil
}

// FundingTransactionGenerated takes the funding transaction for a channel we
// opened.  The transaction must pay the full capacity to the funding script.
// The channel id becomes the funding txid.
func (nd *LitNode) FundingTransactionGenerated(tempID lncore.ChannelID, counterparty lncore.PublicKey, tx []byte) error {
	var ftx wire.MsgTx
	if err := ftx.Deserialize(bytes.NewReader(tx)); err != nil {
		return fmt.Errorf("decoding funding transaction: %w", err)
	}

	nd.mtx.Lock()
	q := nd.findByTempID(tempID, counterparty, StateAwaitingFunding)
	if q == nil || !q.IsOutbound {
		nd.mtx.Unlock()
		return fmt.Errorf("%w: %s not awaiting funding", ErrChannelNotFound, tempID)
	}

	found := false
	for _, out := range ftx.TxOut {
		if bytes.Equal(out.PkScript, q.FundingScript) && uint64(out.Value) == q.CapacitySats {
			found = true
			break
		}
	}
	if !found {
		nd.mtx.Unlock()
		return fmt.Errorf("funding transaction %s has no %d sat output to the channel", ftx.TxHash(), q.CapacitySats)
	}

	q.ChannelID = lncore.ChannelID(ftx.TxHash())
	q.State = StateFunded
	if err := nd.saveChannels(); err != nil {
		q.ChannelID = tempID
		q.State = StateAwaitingFunding
		nd.mtx.Unlock()
		return err
	}
	msg := fundingCreatedMsg{TempID: tempID, ChannelID: q.ChannelID}
	nd.mtx.Unlock()

	nd.log.Infof("channel %s funded by %s", tempID, msg.ChannelID)
	nd.send(outMsg{to: counterparty, mtype: MSG_FUNDING_CREATED, payload: msg})
	return nil
}

func (nd *LitNode) fundingCreatedHandler(from lncore.PublicKey, m fundingCreatedMsg) error {
	nd.mtx.Lock()
	defer nd.mtx.Unlock()

	q := nd.findByTempID(m.TempID, from, StateAwaitingFunding)
	if q == nil || q.IsOutbound {
		return fmt.Errorf("%w: %s not awaiting funding", ErrChannelNotFound, m.TempID)
	}
	q.ChannelID = m.ChannelID
	q.State = StateFunded
	return nd.saveChannels()
}
