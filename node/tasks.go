package node

import (
	"context"
	"errors"
	"net"
	goruntime "runtime"
	"time"

	"github.com/mit-dci/litnode/engine"
	"github.com/mit-dci/litnode/lncore"
	"github.com/mit-dci/litnode/metrics"
)

// every runs f, then again each interval, until ctx is done.
func every(ctx context.Context, interval time.Duration, f func(ctx context.Context)) {
	for {
		if ctx.Err() != nil {
			return
		}
		f(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// walletSyncLoop runs pinned to one OS thread.
func (n *Node) walletSyncLoop(ctx context.Context) {
	goruntime.LockOSThread()
	defer goruntime.UnlockOSThread()

	every(ctx, walletSyncInterval, func(ctx context.Context) {
		start := time.Now()
		err := n.wallet.Sync(ctx)
		metrics.ObserveSync("wallet", start, err)
		if err != nil {
			if ctx.Err() == nil {
				n.log.Errorf("wallet sync failed: %s", err.Error())
			}
			return
		}
		n.log.Debugf("wallet sync done in %s", time.Since(start))
	})
}

func (n *Node) chainSyncLoop(ctx context.Context) {
	every(ctx, chainSyncInterval, func(ctx context.Context) {
		start := time.Now()
		err := n.chain.Sync(ctx, n.protocol.Confirmables())
		metrics.ObserveSync("chain", start, err)
		if err != nil {
			if ctx.Err() == nil {
				n.log.Errorf("chain sync failed: %s", err.Error())
			}
			return
		}
		n.log.Debugf("chain sync done in %s", time.Since(start))
	})
}

// acceptLoop hands every inbound connection to the protocol engine on its
// own goroutine.  It returns once the listener is closed.
func (n *Node) acceptLoop(rt *runtime) {
	for {
		conn, err := rt.listener.Accept()
		if err != nil {
			if rt.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			n.log.Errorf("accept: %s", err.Error())
			select {
			case <-rt.ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		metrics.IncInboundConn()
		n.log.Debugf("inbound connection from %s", conn.RemoteAddr())
		rt.spawn(func(ctx context.Context) {
			remote := conn.RemoteAddr()
			if err := n.protocol.SetupInbound(conn); err != nil && ctx.Err() == nil {
				n.log.Warnf("connection from %s: %s", remote, err.Error())
			}
		})
	}
}

// reconnectLoop keeps us connected to the counterparties of our channels,
// as long as we know where to reach them.
func (n *Node) reconnectLoop(ctx context.Context) {
	every(ctx, reconnectInterval, func(ctx context.Context) {
		connected := map[lncore.PublicKey]bool{}
		for _, pk := range n.protocol.ConnectedPeers() {
			connected[pk] = true
		}

		for _, ch := range n.protocol.ListChannels() {
			pk := ch.Counterparty
			if connected[pk] {
				continue
			}
			// only one attempt per peer and round
			connected[pk] = true

			pi, ok := n.peers.Get(pk)
			if !ok {
				continue
			}

			err := n.connectPeerIfNecessary(ctx, pi)
			if err != nil && ctx.Err() == nil {
				n.log.Warnf("reconnecting to %s: %s", pi, err.Error())
			}
		}
	})
}

func (n *Node) eventLoop(ctx context.Context, h engine.EventHandler) {
	every(ctx, eventProcessInterval, func(ctx context.Context) {
		n.protocol.ProcessPendingEvents(h)
	})
}
