// Package node runs a payment channel node: it wires a protocol engine, an
// on-chain wallet and a chain source to durable storage, keeps the background
// tasks going while started, and exposes the node's API.
package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mit-dci/litnode/engine"
	"github.com/mit-dci/litnode/eventqueue"
	"github.com/mit-dci/litnode/lncore"
	"github.com/mit-dci/litnode/logging"
	"github.com/mit-dci/litnode/metrics"
	"github.com/mit-dci/litnode/nat"
	"github.com/mit-dci/litnode/peerstore"
)

// Node is a built node.  The API may be called from any goroutine; methods
// documented as needing a running node return lncore.ErrNotRunning otherwise.
type Node struct {
	config  Config
	log     *logging.Logger
	rootLog *logging.Logger

	protocol engine.Protocol
	wallet   engine.Wallet
	chain    engine.ChainSource

	queue    *eventqueue.Queue
	peers    *peerstore.Directory
	inbound  *paymentStore
	outbound *paymentStore

	// bounds each connection attempt, manual or from the reconnector
	connectTimeout time.Duration

	// released by Close, last first
	closers []io.Closer

	mtx     sync.RWMutex
	running *runtime
}

// runtime is the state that only exists while the node is started.  All
// background tasks share ctx.
type runtime struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	listener net.Listener
	mapping  nat.Mapping
	payer    *invoicePayer
	handler  *eventHandler
}

func (rt *runtime) spawn(f func(ctx context.Context)) {
	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		f(rt.ctx)
	}()
}

// Start brings up the background tasks.  It fails if the listening address
// can't be bound.
func (n *Node) Start() error {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	if n.running != nil {
		return lncore.ErrAlreadyRunning
	}

	rt, err := n.setupRuntime()
	if err != nil {
		return err
	}
	n.running = rt
	metrics.SetRunning(true)

	n.log.Infof("started with node id %s", n.protocol.NodeID())
	return nil
}

func (n *Node) setupRuntime() (*runtime, error) {
	ctx, cancel := context.WithCancel(context.Background())
	rt := &runtime{
		ctx:    ctx,
		cancel: cancel,
		payer:  newInvoicePayer(n.protocol, n.rootLog),
		handler: &eventHandler{
			protocol: n.protocol,
			wallet:   n.wallet,
			queue:    n.queue,
			inbound:  n.inbound,
			outbound: n.outbound,
			log:      n.rootLog.With("events"),
		},
	}

	if n.config.ListeningAddress != "" {
		ln, err := net.Listen("tcp", n.config.ListeningAddress)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("listen on %s: %w", n.config.ListeningAddress, err)
		}
		rt.listener = ln
		n.log.Infof("listening on %s", ln.Addr())

		if n.config.NatMode != nat.ModeNone {
			port := uint16(ln.Addr().(*net.TCPAddr).Port)
			m, err := nat.Map(ctx, n.config.NatMode, port, n.rootLog.With("nat"))
			if err != nil {
				n.log.Warnf("port mapping failed, continuing without: %s", err.Error())
			}
			rt.mapping = m
		}
	}

	rt.spawn(n.walletSyncLoop)
	rt.spawn(n.chainSyncLoop)
	if rt.listener != nil {
		rt.spawn(func(ctx context.Context) {
			n.acceptLoop(rt)
		})
	}
	rt.spawn(n.reconnectLoop)
	rt.spawn(func(ctx context.Context) {
		n.eventLoop(ctx, rt.handler)
	})

	return rt, nil
}

// Stop cancels the background tasks, drops all peer connections and waits
// up to the configured shutdown timeout for the tasks to return.
func (n *Node) Stop() error {
	rt, err := n.teardown()
	if err != nil {
		return err
	}

	// joined without the lock so status calls don't wait on slow tasks
	done := make(chan struct{})
	go func() {
		rt.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		n.log.Infof("stopped")
	case <-time.After(n.config.ShutdownTimeout):
		n.log.Warnf("background tasks still running %s after stop", n.config.ShutdownTimeout)
	}
	return nil
}

// teardown cancels the runtime and clears the slot.
func (n *Node) teardown() (*runtime, error) {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	rt := n.running
	if rt == nil {
		return nil, lncore.ErrNotRunning
	}

	rt.cancel()
	if rt.listener != nil {
		if err := rt.listener.Close(); err != nil {
			n.log.Warnf("closing listener: %s", err.Error())
		}
	}
	if rt.mapping != nil {
		if err := rt.mapping.Close(); err != nil {
			n.log.Warnf("removing port mapping: %s", err.Error())
		}
	}
	n.protocol.DisconnectAllPeers()
	n.running = nil
	metrics.SetRunning(false)
	return rt, nil
}

// IsRunning reports whether Start succeeded and Stop hasn't been called since.
func (n *Node) IsRunning() bool {
	n.mtx.RLock()
	defer n.mtx.RUnlock()
	return n.running != nil
}

// Close stops the node if needed and releases its storage.  The node can't
// be used afterwards.
func (n *Node) Close() error {
	if err := n.Stop(); err != nil && !errors.Is(err, lncore.ErrNotRunning) {
		return err
	}
	var firstErr error
	for i := len(n.closers) - 1; i >= 0; i-- {
		if err := n.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	n.closers = nil
	return firstErr
}

// current returns the runtime, or ErrNotRunning.  The read lock is only held
// for the lookup; a Stop racing with the caller cancels rt.ctx.
func (n *Node) current() (*runtime, error) {
	n.mtx.RLock()
	defer n.mtx.RUnlock()
	if n.running == nil {
		return nil, lncore.ErrNotRunning
	}
	return n.running, nil
}

// NextEvent blocks until there is an event and returns it.  The same event is
// returned until EventHandled is called.
func (n *Node) NextEvent() lncore.Event {
	return n.queue.NextEvent()
}

// TryNextEvent returns the pending event, if there is one.
func (n *Node) TryNextEvent() (lncore.Event, bool) {
	return n.queue.TryNextEvent()
}

// EventHandled confirms the event last returned by NextEvent.
func (n *Node) EventHandled() error {
	return n.queue.EventHandled()
}

func (n *Node) NodeID() lncore.PublicKey {
	return n.protocol.NodeID()
}

// ListeningAddress returns the configured listening address, if any.
func (n *Node) ListeningAddress() (string, bool) {
	return n.config.ListeningAddress, n.config.ListeningAddress != ""
}

// BoundAddress returns the address the listener actually bound, which
// differs from ListeningAddress when port 0 was configured.  nil if not
// listening.
func (n *Node) BoundAddress() net.Addr {
	n.mtx.RLock()
	defer n.mtx.RUnlock()
	if n.running == nil || n.running.listener == nil {
		return nil
	}
	return n.running.listener.Addr()
}

func (n *Node) Network() lncore.Network {
	return n.config.Network
}

func (n *Node) NewFundingAddress() (string, error) {
	addr, err := n.wallet.NewAddress()
	if err != nil {
		return "", fmt.Errorf("%w: %v", lncore.ErrWalletOperationFailed, err)
	}
	n.log.Infof("generated new funding address %s", addr)
	return addr, nil
}

func (n *Node) OnchainBalance() (lncore.Balance, error) {
	bal, err := n.wallet.Balance()
	if err != nil {
		return lncore.Balance{}, fmt.Errorf("%w: %v", lncore.ErrWalletOperationFailed, err)
	}
	return bal, nil
}

func (n *Node) SpendableOnchainBalanceSats() (uint64, error) {
	bal, err := n.OnchainBalance()
	return bal.Spendable, err
}

func (n *Node) TotalOnchainBalanceSats() (uint64, error) {
	bal, err := n.OnchainBalance()
	return bal.Total, err
}

// SyncWallets brings the on-chain wallet and the protocol engine up to date
// with the chain.  Both also happen periodically in the background.
func (n *Node) SyncWallets() error {
	rt, err := n.current()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(rt.ctx)
	g.Go(func() error {
		start := time.Now()
		err := n.wallet.Sync(ctx)
		metrics.ObserveSync("wallet", start, err)
		if err != nil {
			return fmt.Errorf("%w: %v", lncore.ErrWalletOperationFailed, err)
		}
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		err := n.chain.Sync(ctx, n.protocol.Confirmables())
		metrics.ObserveSync("chain", start, err)
		if err != nil {
			return fmt.Errorf("%w: %v", lncore.ErrTxSyncFailed, err)
		}
		return nil
	})
	return g.Wait()
}

// PaymentInfo looks up a payment by hash, outbound payments first.
func (n *Node) PaymentInfo(h lncore.PaymentHash) (*lncore.PaymentInfo, bool) {
	if p, ok := n.outbound.get(h); ok {
		return p, true
	}
	return n.inbound.get(h)
}
