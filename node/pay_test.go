package node

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-dci/litnode/engine"
	"github.com/mit-dci/litnode/engine/enginetest"
	"github.com/mit-dci/litnode/lncore"
	"github.com/mit-dci/litnode/logging"
)

func newInvoice(t *testing.T, h *harness, amt uint64) *engine.Invoice {
	t.Helper()
	inv, err := h.protocol.CreateInvoice(&amt, "test", 3600)
	require.NoError(t, err)
	return inv
}

func TestSendPayment(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.node.Start())
	defer h.node.Stop()

	inv := newInvoice(t, h, 7000)
	hash, err := h.node.SendPayment(inv.Encoded)
	require.NoError(t, err)
	assert.Equal(t, inv.PaymentHash, hash)

	info, ok := h.node.PaymentInfo(hash)
	require.True(t, ok)
	assert.Equal(t, lncore.PaymentPending, info.Status)
	assert.Equal(t, uint64(7000), *info.AmountMsat)
	assert.Equal(t, inv.PaymentSecret, *info.Secret)

	_, err = h.node.SendPayment(inv.Encoded)
	assert.ErrorIs(t, err, lncore.ErrNonUniquePaymentHash)
}

func TestSendPaymentErrors(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.node.Start())
	defer h.node.Stop()

	_, err := h.node.SendPayment("lnbcrt1unknown")
	assert.ErrorIs(t, err, lncore.ErrInvoiceInvalid)

	h.protocol.PayErr = engine.ErrInvoice
	inv := newInvoice(t, h, 1000)
	_, err = h.node.SendPayment(inv.Encoded)
	assert.ErrorIs(t, err, lncore.ErrInvoiceInvalid)
	_, ok := h.node.outbound.get(inv.PaymentHash)
	assert.False(t, ok)

	h.protocol.PayErr = engine.ErrRouting
	inv = newInvoice(t, h, 1000)
	_, err = h.node.SendPayment(inv.Encoded)
	assert.ErrorIs(t, err, lncore.ErrRoutingFailed)

	h.protocol.PayErr = engine.ErrSending
	inv = newInvoice(t, h, 1000)
	hash, err := h.node.SendPayment(inv.Encoded)
	require.NoError(t, err)
	info, ok := h.node.PaymentInfo(hash)
	require.True(t, ok)
	assert.Equal(t, lncore.PaymentFailed, info.Status)
}

func TestSendSpontaneousPayment(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.node.Start())
	defer h.node.Stop()

	_, err := h.node.SendSpontaneousPayment(1000, "zz")
	assert.ErrorIs(t, err, lncore.ErrPeerInfoParseFailed)

	hash, err := h.node.SendSpontaneousPayment(1500, keyPeer)
	require.NoError(t, err)
	info, ok := h.node.PaymentInfo(hash)
	require.True(t, ok)
	require.NotNil(t, info.Preimage)
	assert.Equal(t, hash, info.Preimage.Hash())
	assert.Equal(t, uint64(1500), *info.AmountMsat)
	assert.Equal(t, lncore.PaymentPending, info.Status)

	h.protocol.PayErr = engine.ErrRouting
	_, err = h.node.SendSpontaneousPayment(1500, keyPeer)
	assert.ErrorIs(t, err, lncore.ErrRoutingFailed)
}

// slowProtocol holds every invoice payment for a while and counts them.
type slowProtocol struct {
	*enginetest.Protocol
	calls atomic.Int32
}

func (s *slowProtocol) PayInvoice(inv *engine.Invoice) error {
	s.calls.Add(1)
	time.Sleep(100 * time.Millisecond)
	return nil
}

func TestSendPaymentConcurrentDuplicate(t *testing.T) {
	sp := &slowProtocol{Protocol: enginetest.NewProtocol(mustKey(t, keyOurs))}
	n, err := NewBuilder().
		SetStorageDirPath(t.TempDir()).
		SetListeningAddress("").
		SetShutdownTimeout(2 * time.Second).
		SetLogger(logging.Nop()).
		SetBlobStore(enginetest.NewMemStore()).
		SetProtocol(sp).
		SetWallet(&enginetest.Wallet{}).
		SetChainSource(&enginetest.ChainSource{}).
		Build()
	require.NoError(t, err)
	t.Cleanup(func() { n.Close() })
	require.NoError(t, n.Start())
	defer n.Stop()

	amt := uint64(2500)
	inv, err := sp.CreateInvoice(&amt, "twice", 3600)
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		ok   atomic.Int32
		dupe atomic.Int32
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := n.SendPayment(inv.Encoded)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, lncore.ErrNonUniquePaymentHash):
				dupe.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(3), dupe.Load())
	assert.Equal(t, int32(1), sp.calls.Load())
}

func TestSendPaymentRetryAfterRoutingFailure(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.node.Start())
	defer h.node.Stop()

	inv := newInvoice(t, h, 1000)
	h.protocol.PayErr = engine.ErrRouting
	_, err := h.node.SendPayment(inv.Encoded)
	assert.ErrorIs(t, err, lncore.ErrRoutingFailed)

	h.protocol.PayErr = nil
	hash, err := h.node.SendPayment(inv.Encoded)
	require.NoError(t, err)
	info, ok := h.node.PaymentInfo(hash)
	require.True(t, ok)
	assert.Equal(t, lncore.PaymentPending, info.Status)
}

// flakyProtocol fails the first sends with a transient error.
type flakyProtocol struct {
	*enginetest.Protocol
	failures int32
	calls    atomic.Int32
}

func (f *flakyProtocol) PayInvoice(inv *engine.Invoice) error {
	if f.calls.Add(1) <= f.failures {
		return engine.ErrSendingTransient
	}
	return nil
}

func TestPayerRetriesTransientFailures(t *testing.T) {
	fp := &flakyProtocol{Protocol: enginetest.NewProtocol(mustKey(t, keyOurs)), failures: 2}
	p := newInvoicePayer(fp, logging.Nop())
	p.retryInterval = time.Millisecond

	require.NoError(t, p.PayInvoice(context.Background(), &engine.Invoice{}))
	assert.Equal(t, int32(3), fp.calls.Load())
}

func TestPayerGivesUpAfterTimeout(t *testing.T) {
	fp := &flakyProtocol{Protocol: enginetest.NewProtocol(mustKey(t, keyOurs)), failures: 1 << 30}
	p := newInvoicePayer(fp, logging.Nop())
	p.retryInterval = time.Millisecond
	p.retryTimeout = 50 * time.Millisecond

	err := p.PayInvoice(context.Background(), &engine.Invoice{})
	assert.ErrorIs(t, err, engine.ErrSendingTransient)
	assert.Greater(t, fp.calls.Load(), int32(1))
}

func TestPayerStopsOnCancel(t *testing.T) {
	fp := &flakyProtocol{Protocol: enginetest.NewProtocol(mustKey(t, keyOurs)), failures: 1 << 30}
	p := newInvoicePayer(fp, logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.PayInvoice(ctx, &engine.Invoice{})
	assert.ErrorIs(t, err, engine.ErrSendingTransient)
	assert.Equal(t, int32(1), fp.calls.Load())
}
