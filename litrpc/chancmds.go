package litrpc

import (
	"fmt"
	"strconv"

	"github.com/awalterschulze/gographviz"

	"github.com/mit-dci/litnode/engine"
	"github.com/mit-dci/litnode/lncore"
)

// ------------------------- fund

type FundArgs struct {
	Peer       string // pubkey@host:port
	AmountSats uint64
	Announce   bool
}

func (r *LitRPC) OpenChannel(args FundArgs, reply *StatusReply) error {
	if args.AmountSats == 0 {
		return fmt.Errorf("channel amount must be positive")
	}
	if err := r.Node.ConnectOpenChannel(args.Peer, args.AmountSats, args.Announce); err != nil {
		return err
	}
	reply.Status = fmt.Sprintf("opening %d sat channel with %s", args.AmountSats, args.Peer)
	return nil
}

// ------------------------- close

type CloseArgs struct {
	ChannelID    string
	Counterparty string
}

func (r *LitRPC) CloseChannel(args CloseArgs, reply *StatusReply) error {
	id, err := lncore.ParseChannelID(args.ChannelID)
	if err != nil {
		return err
	}
	pk, err := lncore.ParsePublicKey(args.Counterparty)
	if err != nil {
		return err
	}
	if err := r.Node.CloseChannel(id, pk); err != nil {
		return err
	}
	reply.Status = "closing channel " + id.String()
	return nil
}

// ------------------------- list

type ChannelListReply struct {
	Channels []engine.ChannelDetails
}

func (r *LitRPC) ListChannels(args NoArgs, reply *ChannelListReply) error {
	reply.Channels = r.Node.ListChannels()
	if reply.Channels == nil {
		reply.Channels = []engine.ChannelDetails{}
	}
	return nil
}

// ------------------------- graph

type ChannelGraphReply struct {
	Graph string
}

// ChannelGraph renders our channels as a graphviz dot graph, one edge per
// channel pointing from us to the counterparty.
func (r *LitRPC) ChannelGraph(args NoArgs, reply *ChannelGraphReply) error {
	graph := gographviz.NewGraph()
	if err := graph.SetName("Lit"); err != nil {
		return err
	}
	if err := graph.SetDir(true); err != nil {
		return err
	}

	self := strconv.Quote(r.Node.NodeID().String())
	if err := graph.AddNode("Lit", self, nil); err != nil {
		return err
	}

	for _, c := range r.Node.ListChannels() {
		peer := strconv.Quote(c.Counterparty.String())
		if !graph.IsNode(peer) {
			if err := graph.AddNode("Lit", peer, nil); err != nil {
				return err
			}
		}

		attrs := map[string]string{
			"label": strconv.Quote(fmt.Sprintf("%d sat", c.CapacitySats)),
		}
		if !c.IsReady {
			attrs["style"] = "dashed"
		}
		if err := graph.AddEdge(self, peer, true, attrs); err != nil {
			return err
		}
	}

	reply.Graph = graph.String()
	return nil
}
