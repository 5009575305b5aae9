package enginetest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/mit-dci/litnode/engine"
	"github.com/mit-dci/litnode/lncore"
)

// Wallet is a scriptable engine.Wallet.
type Wallet struct {
	Bal        lncore.Balance
	FundingErr error

	syncs     atomic.Int32
	mtx       sync.Mutex
	syncErr   error
	nextIndex int
}

// SetSyncErr makes Sync fail with err from now on.
func (w *Wallet) SetSyncErr(err error) {
	w.mtx.Lock()
	w.syncErr = err
	w.mtx.Unlock()
}

func (w *Wallet) NewAddress() (string, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	w.nextIndex++
	return fmt.Sprintf("bcrt1qtestaddress%d", w.nextIndex), nil
}

func (w *Wallet) Balance() (lncore.Balance, error) {
	return w.Bal, nil
}

func (w *Wallet) Sync(ctx context.Context) error {
	w.syncs.Add(1)
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return w.syncErr
}

// Syncs counts Sync calls.
func (w *Wallet) Syncs() int {
	return int(w.syncs.Load())
}

func (w *Wallet) CreateFundingTransaction(outputScript []byte, valueSats uint64) ([]byte, error) {
	if w.FundingErr != nil {
		return nil, w.FundingErr
	}
	return append([]byte("fundingtx:"), outputScript...), nil
}

// ChainSource is a scriptable engine.ChainSource reporting a fixed tip.
type ChainSource struct {
	Height uint32

	syncs atomic.Int32
	mtx   sync.Mutex
	err   error
}

// SetErr makes Sync fail with err from now on.
func (c *ChainSource) SetErr(err error) {
	c.mtx.Lock()
	c.err = err
	c.mtx.Unlock()
}

func (c *ChainSource) Sync(ctx context.Context, confirmables []engine.Confirmable) error {
	c.syncs.Add(1)
	c.mtx.Lock()
	err := c.err
	c.mtx.Unlock()
	if err != nil {
		return err
	}
	for _, cf := range confirmables {
		cf.BestBlockUpdated(fmt.Sprintf("%064x", c.Height), c.Height)
	}
	return nil
}

// Syncs counts Sync calls.
func (c *ChainSource) Syncs() int {
	return int(c.syncs.Load())
}
