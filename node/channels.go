package node

import (
	"fmt"

	"github.com/mit-dci/litnode/engine"
	"github.com/mit-dci/litnode/lncore"
)

// ConnectOpenChannel connects to the peer given as pubkey@host:port if
// needed and asks it to open a channel of amountSats.  The peer is
// remembered and reconnected to from then on.
func (n *Node) ConnectOpenChannel(peer string, amountSats uint64, announce bool) error {
	rt, err := n.current()
	if err != nil {
		return err
	}

	pi, err := lncore.ParsePeerInfo(peer)
	if err != nil {
		return err
	}

	if err := n.connectPeerIfNecessary(rt.ctx, pi); err != nil {
		return err
	}

	cfg := engine.ChannelConfig{
		AnnouncedChannel: announce,
		TheirToSelfDelay: theirToSelfDelay,
	}
	userChannelID := lncore.NewUserChannelID()

	_, err = n.protocol.OpenChannel(pi.PubKey, amountSats, 0, userChannelID, cfg)
	if err != nil {
		n.log.Errorf("failed to initiate channel creation: %s", err.Error())
		return fmt.Errorf("%w: %v", lncore.ErrChannelCreationFailed, err)
	}

	if err := n.peers.Add(pi); err != nil {
		return err
	}
	n.log.Infof("initiated channel creation with peer %s", pi.PubKey)
	return nil
}

// CloseChannel cooperatively closes a channel.  The counterparty is dropped
// from the peer directory first.
func (n *Node) CloseChannel(id lncore.ChannelID, counterparty lncore.PublicKey) error {
	if err := n.peers.Remove(counterparty); err != nil {
		return err
	}
	if err := n.protocol.CloseChannel(id, counterparty); err != nil {
		n.log.Errorf("failed to close channel %s: %s", id, err.Error())
		return fmt.Errorf("%w: %v", lncore.ErrChannelClosingFailed, err)
	}
	n.log.Infof("closing channel %s", id)
	return nil
}

func (n *Node) ListChannels() []engine.ChannelDetails {
	return n.protocol.ListChannels()
}
