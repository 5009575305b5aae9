package lnp2p

import (
	"bufio"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/mit-dci/litnode/lncore"
)

const (
	msgHello = "hello"
	msgProof = "proof"

	handshakeTimeout = 10 * time.Second
	dialTimeout      = 10 * time.Second
	nonceLen         = 32
)

var (
	// ErrHandshake is returned when the remote side did not complete the
	// hello exchange.
	ErrHandshake = errors.New("peer handshake failed")

	// ErrUnexpectedPeer means the remote proved a different key than the
	// one we dialed.
	ErrUnexpectedPeer = errors.New("remote node id does not match")
)

type hello struct {
	NodeID lncore.PublicKey `json:"node_id"`
	Nonce  []byte           `json:"nonce"`
}

type proof struct {
	Sig []byte `json:"sig"`
}

// proofDigest is what a node signs to show it holds the key it claimed.  The
// nonce comes from the other side.
func proofDigest(nonce []byte, signer lncore.PublicKey) []byte {
	h := sha256.New()
	h.Write([]byte("litnode-hello"))
	h.Write(nonce)
	h.Write(signer[:])
	return h.Sum(nil)
}

// handshake runs the hello exchange on a fresh connection and returns the
// remote node id.  Both sides send the same messages, so there is no
// initiator role.
func handshake(conn net.Conn, sc *bufio.Scanner, idkey *btcec.PrivateKey) (lncore.PublicKey, error) {
	var remote lncore.PublicKey

	conn.SetDeadline(time.Now().Add(handshakeTimeout))
	defer conn.SetDeadline(time.Time{})

	local := lncore.PublicKeyFromBtcec(idkey.PubKey())
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return remote, err
	}

	if err := writeMessage(conn, msgHello, hello{NodeID: local, Nonce: nonce}); err != nil {
		return remote, fmt.Errorf("%w: %v", ErrHandshake, err)
	}

	var theirs hello
	if err := expect(sc, msgHello, &theirs); err != nil {
		return remote, err
	}
	if len(theirs.Nonce) != nonceLen {
		return remote, fmt.Errorf("%w: bad nonce length %d", ErrHandshake, len(theirs.Nonce))
	}
	remote = theirs.NodeID

	sig := ecdsa.Sign(idkey, proofDigest(theirs.Nonce, local))
	if err := writeMessage(conn, msgProof, proof{Sig: sig.Serialize()}); err != nil {
		return remote, fmt.Errorf("%w: %v", ErrHandshake, err)
	}

	var p proof
	if err := expect(sc, msgProof, &p); err != nil {
		return remote, err
	}
	rsig, err := ecdsa.ParseDERSignature(p.Sig)
	if err != nil {
		return remote, fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	rpub, err := btcec.ParsePubKey(remote[:])
	if err != nil {
		return remote, fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	if !rsig.Verify(proofDigest(nonce, remote), rpub) {
		return remote, fmt.Errorf("%w: bad signature from %s", ErrHandshake, remote)
	}
	return remote, nil
}

func expect(sc *bufio.Scanner, mtype string, v interface{}) error {
	msg, err := readMessage(sc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	if msg.Type != mtype {
		return fmt.Errorf("%w: expected %s, got %s", ErrHandshake, mtype, msg.Type)
	}
	if err := msg.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	return nil
}
