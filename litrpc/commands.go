package litrpc

import (
	"encoding/json"

	"github.com/mit-dci/litnode/lncore"
)

type NoArgs struct {
	// nothing
}

type StatusReply struct {
	Status string
}

// ------------------------- lifecycle

func (r *LitRPC) Start(args NoArgs, reply *StatusReply) error {
	if err := r.Node.Start(); err != nil {
		return err
	}
	reply.Status = "node started"
	return nil
}

func (r *LitRPC) Stop(args NoArgs, reply *StatusReply) error {
	if err := r.Node.Stop(); err != nil {
		return err
	}
	reply.Status = "node stopped"
	return nil
}

// Shutdown stops the whole daemon, not just the node.
func (r *LitRPC) Shutdown(args NoArgs, reply *StatusReply) error {
	select {
	case r.OffButton <- true:
	default:
	}
	reply.Status = "shutting down"
	return nil
}

// ------------------------- info

type NodeInfoReply struct {
	NodeID           string
	Network          string
	ListeningAddress string
	Running          bool
	ConnectedPeers   int
}

func (r *LitRPC) NodeID(args NoArgs, reply *NodeInfoReply) error {
	reply.NodeID = r.Node.NodeID().String()
	reply.Network = string(r.Node.Network())
	reply.Running = r.Node.IsRunning()
	reply.ConnectedPeers = len(r.Node.ConnectedPeers())

	if addr := r.Node.BoundAddress(); addr != nil {
		reply.ListeningAddress = addr.String()
	} else if addr, ok := r.Node.ListeningAddress(); ok {
		reply.ListeningAddress = addr
	}
	return nil
}

// ------------------------- events

type EventReply struct {
	Found bool
	Type  string
	Event json.RawMessage
}

// NextEvent returns the event at the head of the queue without waiting.
// Found is false if there is none.  The same event comes back until
// EventHandled is called.
func (r *LitRPC) NextEvent(args NoArgs, reply *EventReply) error {
	ev, ok := r.Node.TryNextEvent()
	if !ok {
		return nil
	}
	raw, err := lncore.MarshalEvent(ev)
	if err != nil {
		return err
	}
	reply.Found = true
	reply.Type = string(ev.Type())
	reply.Event = raw
	return nil
}

func (r *LitRPC) EventHandled(args NoArgs, reply *StatusReply) error {
	if err := r.Node.EventHandled(); err != nil {
		return err
	}
	reply.Status = "ok"
	return nil
}
