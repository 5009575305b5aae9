package wallit

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/mit-dci/litnode/lncore"
)

const (
	// flat fee rate for funding transactions, sat/vbyte
	feeRate = 2

	dustLimit = 546

	// vbyte estimates for a p2wpkh spend
	txOverheadVSize   = 11
	p2wpkhInputVSize  = 68
	p2wpkhOutputVSize = 31
)

func estimateFee(nIn int, outputScript []byte, change bool) uint64 {
	size := txOverheadVSize + nIn*p2wpkhInputVSize + 9 + len(outputScript)
	if change {
		size += p2wpkhOutputVSize
	}
	return uint64(size) * feeRate
}

// CreateFundingTransaction builds a transaction paying valueSats to
// outputScript from confirmed coins, largest first, with change going to a
// fresh address.  The inputs are not signed.  Coins it uses are not offered
// again until the next Sync.
func (w *Wallit) CreateFundingTransaction(outputScript []byte, valueSats uint64) ([]byte, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	var candidates []Utxo
	for _, u := range w.utxos {
		if u.Confirmed {
			candidates = append(candidates, u)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Value > candidates[j].Value
	})

	var picked []Utxo
	var sum uint64
	for _, u := range candidates {
		picked = append(picked, u)
		sum += u.Value
		if sum >= valueSats+estimateFee(len(picked), outputScript, true) {
			break
		}
	}
	fee := estimateFee(len(picked), outputScript, true)
	if sum < valueSats+fee {
		return nil, fmt.Errorf("%w: have %d sat confirmed, need %d", lncore.ErrFundingTxCreationFailed,
			sum, valueSats+fee)
	}

	tx := wire.NewMsgTx(2)
	for _, u := range picked {
		h, err := chainhash.NewHashFromStr(u.Txid)
		if err != nil {
			return nil, fmt.Errorf("%w: bad txid %s: %v", lncore.ErrFundingTxCreationFailed, u.Txid, err)
		}
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(h, u.Vout), nil, nil))
	}
	tx.AddTxOut(wire.NewTxOut(int64(valueSats), outputScript))

	change := sum - valueSats - fee
	if change >= dustLimit {
		adr, err := w.newChangeAddress()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", lncore.ErrFundingTxCreationFailed, err)
		}
		script, err := w.payToAddrScript(adr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", lncore.ErrFundingTxCreationFailed, err)
		}
		tx.AddTxOut(wire.NewTxOut(int64(change), script))
	}

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", lncore.ErrFundingTxCreationFailed, err)
	}

	w.removeUtxos(picked)
	w.log.Infof("funding tx %s: %d inputs, %d sat out, %d sat fee", tx.TxHash(), len(picked), valueSats, fee)
	return buf.Bytes(), nil
}

func (w *Wallit) payToAddrScript(adr string) ([]byte, error) {
	a, err := btcutil.DecodeAddress(adr, w.params)
	if err != nil {
		return nil, err
	}
	return txscript.PayToAddrScript(a)
}

// caller holds w.mtx
func (w *Wallit) removeUtxos(used []Utxo) {
	gone := map[string]bool{}
	for _, u := range used {
		gone[fmt.Sprintf("%s:%d", u.Txid, u.Vout)] = true
	}
	kept := w.utxos[:0]
	for _, u := range w.utxos {
		if !gone[fmt.Sprintf("%s:%d", u.Txid, u.Vout)] {
			kept = append(kept, u)
		}
	}
	w.utxos = kept
}
