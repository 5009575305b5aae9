package wallit

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/mit-dci/litnode/lncore"
)

/*
Key derivation follows BIP84 for the on-chain wallet:
m / 84' / coin' / 0' / change / index
with change 0 for receive addresses and 1 for change.
The node identity key is m / 1017' / coin' / 0'.
*/

const (
	purposeBIP84    = 84
	purposeIdentity = 1017

	chainExternal = 0
	chainInternal = 1
)

func coinType(p *chaincfg.Params) uint32 {
	if p.Net == chaincfg.MainNetParams.Net {
		return 0
	}
	return 1
}

// derivePath descends from root along path, all steps hardened.
func derivePath(root *hdkeychain.ExtendedKey, path ...uint32) (*hdkeychain.ExtendedKey, error) {
	k := root
	for _, step := range path {
		var err error
		k, err = k.Derive(hdkeychain.HardenedKeyStart + step)
		if err != nil {
			return nil, err
		}
	}
	return k, nil
}

// NodeKey derives the node identity key from the wallet seed.
func NodeKey(seed []byte, network lncore.Network) (*btcec.PrivateKey, error) {
	p := network.Params()
	root, err := hdkeychain.NewMaster(seed, p)
	if err != nil {
		return nil, err
	}
	k, err := derivePath(root, purposeIdentity, coinType(p), 0)
	if err != nil {
		return nil, err
	}
	return k.ECPrivKey()
}

// keyAt returns the private key at change/index below the account.
func (w *Wallit) keyAt(chain, index uint32) (*btcec.PrivateKey, error) {
	branch, err := w.account.Derive(chain)
	if err != nil {
		return nil, err
	}
	k, err := branch.Derive(index)
	if err != nil {
		return nil, err
	}
	return k.ECPrivKey()
}

// addressAt returns the P2WPKH address at change/index.
func (w *Wallit) addressAt(chain, index uint32) (*btcutil.AddressWitnessPubKeyHash, error) {
	priv, err := w.keyAt(chain, index)
	if err != nil {
		return nil, err
	}
	hash := btcutil.Hash160(priv.PubKey().SerializeCompressed())
	return btcutil.NewAddressWitnessPubKeyHash(hash, w.params)
}
