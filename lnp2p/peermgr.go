package lnp2p

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/mit-dci/litnode/eventbus"
	"github.com/mit-dci/litnode/lncore"
	"github.com/mit-dci/litnode/logging"
)

// ErrPeerNotConnected is returned when sending to a peer we have no
// connection to.
var ErrPeerNotConnected = errors.New("peer not connected")

// PeerManager owns all peer connections of a node.
type PeerManager struct {
	idkey *btcec.PrivateKey
	ebus  *eventbus.EventBus
	log   *logging.Logger

	// Peer tracking.
	peerMap map[lncore.PublicKey]*Peer

	// every open connection, including ones still in the handshake
	conns map[net.Conn]struct{}

	// Sync.
	mtx sync.Mutex
	wg  sync.WaitGroup
}

// NewPeerManager creates a peer manager that identifies as idkey.
func NewPeerManager(idkey *btcec.PrivateKey, bus *eventbus.EventBus, log *logging.Logger) *PeerManager {
	return &PeerManager{
		idkey:   idkey,
		ebus:    bus,
		log:     log,
		peerMap: map[lncore.PublicKey]*Peer{},
		conns:   map[net.Conn]struct{}{},
	}
}

// NodeID returns our own node id.
func (pm *PeerManager) NodeID() lncore.PublicKey {
	return lncore.PublicKeyFromBtcec(pm.idkey.PubKey())
}

// GetPeer returns the peer with the given node id, or nil.
func (pm *PeerManager) GetPeer(pk lncore.PublicKey) *Peer {
	pm.mtx.Lock()
	defer pm.mtx.Unlock()
	return pm.peerMap[pk]
}

// Peers lists the node ids of all connected peers, sorted.
func (pm *PeerManager) Peers() []lncore.PublicKey {
	pm.mtx.Lock()
	out := make([]lncore.PublicKey, 0, len(pm.peerMap))
	for pk := range pm.peerMap {
		out = append(out, pk)
	}
	pm.mtx.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

// SendTo sends a message to a connected peer.
func (pm *PeerManager) SendTo(pk lncore.PublicKey, mtype string, payload interface{}) error {
	p := pm.GetPeer(pk)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrPeerNotConnected, pk)
	}
	return p.Send(mtype, payload)
}

// HandleInbound runs an accepted connection until it closes.
func (pm *PeerManager) HandleInbound(conn net.Conn) error {
	return pm.runConn(conn, nil, make(chan struct{}))
}

// ConnectOutbound dials addr and runs the connection in the background.  The
// returned channel is closed when the connection is gone, which includes a
// failed handshake or a remote that isn't expect.
func (pm *PeerManager) ConnectOutbound(ctx context.Context, expect lncore.PublicKey, addr string) (<-chan struct{}, error) {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	pm.wg.Add(1)
	go func() {
		defer pm.wg.Done()
		if err := pm.runConn(conn, &expect, done); err != nil {
			pm.log.Warnf("outbound connection to %s@%s: %s", expect, addr, err.Error())
		}
	}()
	return done, nil
}

// DisconnectAll closes every connection, handshaking ones included.
func (pm *PeerManager) DisconnectAll() {
	pm.mtx.Lock()
	conns := make([]net.Conn, 0, len(pm.conns))
	for c := range pm.conns {
		conns = append(conns, c)
	}
	peers := make([]*Peer, 0, len(pm.peerMap))
	for _, p := range pm.peerMap {
		peers = append(peers, p)
	}
	pm.mtx.Unlock()

	for _, p := range peers {
		p.Close()
	}
	for _, c := range conns {
		c.Close()
	}
}

// Wait blocks until all outbound connection goroutines returned.
func (pm *PeerManager) Wait() {
	pm.wg.Wait()
}

func (pm *PeerManager) runConn(conn net.Conn, expect *lncore.PublicKey, done chan struct{}) error {
	defer close(done)

	pm.mtx.Lock()
	pm.conns[conn] = struct{}{}
	pm.mtx.Unlock()
	defer func() {
		pm.mtx.Lock()
		delete(pm.conns, conn)
		pm.mtx.Unlock()
		conn.Close()
	}()

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 4096), MaxMessageSize)

	remote, err := handshake(conn, sc, pm.idkey)
	if err != nil {
		return err
	}
	if expect != nil && remote != *expect {
		return fmt.Errorf("%w: wanted %s, got %s", ErrUnexpectedPeer, *expect, remote)
	}
	if remote == pm.NodeID() {
		return fmt.Errorf("%w: connected to ourselves", ErrHandshake)
	}

	p := &Peer{
		nodeID:  remote,
		inbound: expect == nil,
		conn:    conn,
		done:    done,
	}
	pm.registerPeer(p)
	reason := pm.processConnectionFeed(p, sc)
	pm.unregisterPeer(p, reason)
	return nil
}

func (pm *PeerManager) registerPeer(p *Peer) {
	pm.mtx.Lock()
	old := pm.peerMap[p.nodeID]
	pm.peerMap[p.nodeID] = p
	pm.mtx.Unlock()

	if old != nil {
		pm.log.Infof("replacing connection to %s", p.nodeID)
		old.Close()
	}

	pm.log.Infof("peer %s connected (inbound: %t)", p.nodeID, p.inbound)
	pm.ebus.Publish(NewPeerEvent{
		Peer:            p,
		RemoteInitiated: p.inbound,
	})
}

func (pm *PeerManager) unregisterPeer(p *Peer, reason string) {
	pm.mtx.Lock()
	if pm.peerMap[p.nodeID] == p {
		delete(pm.peerMap, p.nodeID)
	}
	pm.mtx.Unlock()

	pm.log.Infof("peer %s disconnected: %s", p.nodeID, reason)
	pm.ebus.Publish(PeerDisconnectEvent{
		Peer:   p,
		Reason: reason,
	})
}

func (pm *PeerManager) processConnectionFeed(p *Peer, sc *bufio.Scanner) string {
	for {
		msg, err := readMessage(sc)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return "connection closed"
			}
			return err.Error()
		}
		pm.ebus.Publish(MessageEvent{Peer: p, Msg: msg})
	}
}
