package litrpc

import (
	"github.com/mit-dci/litnode/lncore"
)

// ------------------------- connect

type ConnectArgs struct {
	LNAddr  string // pubkey@host:port
	Persist bool
}

func (r *LitRPC) Connect(args ConnectArgs, reply *StatusReply) error {
	if err := r.Node.Connect(args.LNAddr, args.Persist); err != nil {
		return err
	}
	reply.Status = "connected to " + args.LNAddr
	return nil
}

// ------------------------- disconnect

type PubKeyArgs struct {
	PubKey string
}

func (r *LitRPC) Disconnect(args PubKeyArgs, reply *StatusReply) error {
	pk, err := lncore.ParsePublicKey(args.PubKey)
	if err != nil {
		return err
	}
	if err := r.Node.Disconnect(pk); err != nil {
		return err
	}
	reply.Status = "forgot peer " + pk.String()
	return nil
}

// ------------------------- listpeers

type PeerInfo struct {
	PubKey    string
	Address   string
	Connected bool
}

type ListPeersReply struct {
	Peers []PeerInfo
}

// ListPeers returns the remembered peers plus any connected peer that isn't
// remembered.
func (r *LitRPC) ListPeers(args NoArgs, reply *ListPeersReply) error {
	connected := make(map[lncore.PublicKey]bool)
	for _, pk := range r.Node.ConnectedPeers() {
		connected[pk] = true
	}

	reply.Peers = []PeerInfo{}
	seen := make(map[lncore.PublicKey]bool)
	for _, pi := range r.Node.ListPeers() {
		seen[pi.PubKey] = true
		reply.Peers = append(reply.Peers, PeerInfo{
			PubKey:    pi.PubKey.String(),
			Address:   pi.Address,
			Connected: connected[pi.PubKey],
		})
	}
	for _, pk := range r.Node.ConnectedPeers() {
		if !seen[pk] {
			reply.Peers = append(reply.Peers, PeerInfo{PubKey: pk.String(), Connected: true})
		}
	}
	return nil
}
