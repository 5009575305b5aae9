// Package wallit is a small BIP84 on-chain wallet.  It learns about its
// coins by asking an Esplora server for the UTXOs of every address it handed
// out, and builds the unsigned funding transactions for new channels.
package wallit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"golang.org/x/sync/errgroup"

	"github.com/mit-dci/litnode/esplora"
	"github.com/mit-dci/litnode/lncore"
	"github.com/mit-dci/litnode/logging"
)

// indexKey is where the next unused address indexes are kept.
const indexKey = "wallit/next_index"

// parallel UTXO queries per sync
const syncConcurrency = 4

// UTXOSource answers which outputs pay to an address.
type UTXOSource interface {
	AddressUTXOs(ctx context.Context, addr string) ([]esplora.UTXO, error)
}

// Utxo is a spendable output of the wallet.
type Utxo struct {
	Txid      string
	Vout      uint32
	Value     uint64
	Confirmed bool
	Address   string
}

type indexes struct {
	External uint32 `json:"external"`
	Internal uint32 `json:"internal"`
}

// Wallit is safe for concurrent use.
type Wallit struct {
	params  *chaincfg.Params
	account *hdkeychain.ExtendedKey
	store   lncore.BlobStore
	chain   UTXOSource
	log     *logging.Logger

	mtx   sync.Mutex
	next  indexes
	utxos []Utxo
}

// New sets up the wallet for seed on network and restores its address
// indexes from store.
func New(seed []byte, network lncore.Network, store lncore.BlobStore, chain UTXOSource,
	log *logging.Logger) (*Wallit, error) {

	p := network.Params()
	root, err := hdkeychain.NewMaster(seed, p)
	if err != nil {
		return nil, fmt.Errorf("%w: master key: %v", lncore.ErrWalletOperationFailed, err)
	}
	account, err := derivePath(root, purposeBIP84, coinType(p), 0)
	if err != nil {
		return nil, fmt.Errorf("%w: account key: %v", lncore.ErrWalletOperationFailed, err)
	}

	w := &Wallit{
		params:  p,
		account: account,
		store:   store,
		chain:   chain,
		log:     log,
	}

	raw, ok, err := store.Read(indexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", lncore.ErrPersistenceFailed, indexKey, err)
	}
	if ok {
		if err := json.Unmarshal(raw, &w.next); err != nil {
			return nil, fmt.Errorf("decode %s: %w", indexKey, err)
		}
	}
	return w, nil
}

// caller holds w.mtx
func (w *Wallit) saveIndexes(next indexes) error {
	raw, err := json.Marshal(next)
	if err != nil {
		return err
	}
	if err := w.store.Write(indexKey, raw); err != nil {
		return fmt.Errorf("%w: %v", lncore.ErrPersistenceFailed, err)
	}
	w.next = next
	return nil
}

// NewAddress hands out the next receive address.
func (w *Wallit) NewAddress() (string, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	adr, err := w.addressAt(chainExternal, w.next.External)
	if err != nil {
		return "", err
	}
	next := w.next
	next.External++
	if err := w.saveIndexes(next); err != nil {
		return "", err
	}
	return adr.EncodeAddress(), nil
}

// newChangeAddress hands out the next change address.  Caller holds w.mtx.
func (w *Wallit) newChangeAddress() (string, error) {
	adr, err := w.addressAt(chainInternal, w.next.Internal)
	if err != nil {
		return "", err
	}
	next := w.next
	next.Internal++
	if err := w.saveIndexes(next); err != nil {
		return "", err
	}
	return adr.EncodeAddress(), nil
}

// addresses lists everything handed out so far.
func (w *Wallit) addresses() ([]string, error) {
	w.mtx.Lock()
	next := w.next
	w.mtx.Unlock()

	var out []string
	for _, c := range []struct{ chain, n uint32 }{
		{chainExternal, next.External},
		{chainInternal, next.Internal},
	} {
		chain := c.chain
		for i := uint32(0); i < c.n; i++ {
			adr, err := w.addressAt(chain, i)
			if err != nil {
				return nil, err
			}
			out = append(out, adr.EncodeAddress())
		}
	}
	return out, nil
}

// Sync refreshes the UTXO set from the chain source.
func (w *Wallit) Sync(ctx context.Context) error {
	adrs, err := w.addresses()
	if err != nil {
		return err
	}

	results := make([][]esplora.UTXO, len(adrs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(syncConcurrency)
	for i, adr := range adrs {
		i, adr := i, adr
		g.Go(func() error {
			u, err := w.chain.AddressUTXOs(gctx, adr)
			if err != nil {
				return fmt.Errorf("utxos of %s: %v", adr, err)
			}
			results[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var utxos []Utxo
	for i, us := range results {
		for _, u := range us {
			utxos = append(utxos, Utxo{
				Txid:      u.Txid,
				Vout:      u.Vout,
				Value:     u.Value,
				Confirmed: u.Status.Confirmed,
				Address:   adrs[i],
			})
		}
	}

	w.mtx.Lock()
	w.utxos = utxos
	w.mtx.Unlock()

	w.log.Debugf("synced %d addresses, %d utxos", len(adrs), len(utxos))
	return nil
}

// Balance sums the known UTXOs.  Only confirmed ones count as spendable.
func (w *Wallit) Balance() (lncore.Balance, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	var bal lncore.Balance
	for _, u := range w.utxos {
		bal.Total += u.Value
		if u.Confirmed {
			bal.Spendable += u.Value
		}
	}
	return bal, nil
}
