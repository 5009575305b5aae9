package lnp2p

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/mit-dci/litnode/eventbus"
	"github.com/mit-dci/litnode/lncore"
	"github.com/mit-dci/litnode/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testNode struct {
	pm  *PeerManager
	bus *eventbus.EventBus

	mtx   sync.Mutex
	msgs  []MessageEvent
	gone  []lncore.PublicKey
	added []NewPeerEvent
}

func newTestNode(t *testing.T) *testNode {
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	tn := &testNode{bus: eventbus.NewEventBus(logging.Nop())}
	tn.pm = NewPeerManager(key, tn.bus, logging.Nop())

	tn.bus.RegisterHandler(EventMsg, func(e eventbus.Event) eventbus.Result {
		tn.mtx.Lock()
		tn.msgs = append(tn.msgs, e.(MessageEvent))
		tn.mtx.Unlock()
		return eventbus.Continue
	})
	tn.bus.RegisterHandler(EventPeerNew, func(e eventbus.Event) eventbus.Result {
		tn.mtx.Lock()
		tn.added = append(tn.added, e.(NewPeerEvent))
		tn.mtx.Unlock()
		return eventbus.Continue
	})
	tn.bus.RegisterHandler(EventPeerDisconnect, func(e eventbus.Event) eventbus.Result {
		tn.mtx.Lock()
		tn.gone = append(tn.gone, e.(PeerDisconnectEvent).Peer.NodeID())
		tn.mtx.Unlock()
		return eventbus.Continue
	})
	return tn
}

func (tn *testNode) messages() []MessageEvent {
	tn.mtx.Lock()
	defer tn.mtx.Unlock()
	return append([]MessageEvent(nil), tn.msgs...)
}

func (tn *testNode) peersAdded() []NewPeerEvent {
	tn.mtx.Lock()
	defer tn.mtx.Unlock()
	return append([]NewPeerEvent(nil), tn.added...)
}

func (tn *testNode) disconnected() []lncore.PublicKey {
	tn.mtx.Lock()
	defer tn.mtx.Unlock()
	return append([]lncore.PublicKey(nil), tn.gone...)
}

// listen accepts connections for tn until the test ends.
func (tn *testNode) listen(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				tn.pm.HandleInbound(conn)
			}()
		}
	}()

	t.Cleanup(func() {
		l.Close()
		tn.pm.DisconnectAll()
		wg.Wait()
	})
	return l.Addr().String()
}

func TestConnectAndMessage(t *testing.T) {
	a, b := newTestNode(t), newTestNode(t)
	addr := b.listen(t)

	done, err := a.pm.ConnectOutbound(context.Background(), b.pm.NodeID(), addr)
	require.NoError(t, err)
	defer a.pm.Wait()
	defer a.pm.DisconnectAll()

	require.Eventually(t, func() bool {
		return len(a.peersAdded()) == 1 && len(b.peersAdded()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, b.pm.NodeID(), a.pm.Peers()[0])
	assert.Equal(t, a.pm.NodeID(), b.pm.Peers()[0])

	assert.True(t, b.peersAdded()[0].RemoteInitiated)
	assert.False(t, a.peersAdded()[0].RemoteInitiated)

	require.NoError(t, a.pm.SendTo(b.pm.NodeID(), "ping", map[string]int{"n": 7}))
	require.Eventually(t, func() bool {
		return len(b.messages()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	ev := b.messages()[0]
	assert.Equal(t, "ping", ev.Msg.Type)
	assert.Equal(t, a.pm.NodeID(), ev.Peer.NodeID())
	var body map[string]int
	require.NoError(t, ev.Msg.Decode(&body))
	assert.Equal(t, 7, body["n"])

	a.pm.DisconnectAll()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("outbound connection did not shut down")
	}
	require.Eventually(t, func() bool {
		return len(b.disconnected()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Empty(t, b.pm.Peers())
	assert.Equal(t, []lncore.PublicKey{a.pm.NodeID()}, b.disconnected())
}

func TestConnectWrongKey(t *testing.T) {
	a, b := newTestNode(t), newTestNode(t)
	addr := b.listen(t)

	other, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	done, err := a.pm.ConnectOutbound(context.Background(), lncore.PublicKeyFromBtcec(other.PubKey()), addr)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("connection to the wrong node was kept")
	}
	a.pm.Wait()
	assert.Empty(t, a.pm.Peers())
	assert.Empty(t, a.peersAdded())
}

func TestConnectRefused(t *testing.T) {
	a := newTestNode(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	l.Close()

	_, err = a.pm.ConnectOutbound(context.Background(), a.pm.NodeID(), addr)
	assert.Error(t, err)
}

func TestSendToUnknownPeer(t *testing.T) {
	a, b := newTestNode(t), newTestNode(t)
	err := a.pm.SendTo(b.pm.NodeID(), "ping", nil)
	assert.ErrorIs(t, err, ErrPeerNotConnected)
}

func TestHandshakeGarbage(t *testing.T) {
	b := newTestNode(t)
	addr := b.listen(t)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	_, err = conn.Write([]byte("{\"type\":\"proof\",\"data\":{}}\n"))
	require.NoError(t, err)

	// b gives up on us and closes the connection
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	buf := make([]byte, 4096)
	for {
		if _, err := conn.Read(buf); err != nil {
			break
		}
	}
	conn.Close()
	assert.Empty(t, b.pm.Peers())
}
