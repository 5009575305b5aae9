package lnp2p

import (
	"bufio"
	"encoding/json"
	"io"
	"net"
	"sync"
	"time"

	"github.com/mit-dci/litnode/lncore"
)

const writeTimeout = 10 * time.Second

// A Peer is a remote node that finished the handshake with us.
type Peer struct {
	nodeID  lncore.PublicKey
	inbound bool

	conn      net.Conn
	sendMtx   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// NodeID returns the key the remote proved during the handshake.
func (p *Peer) NodeID() lncore.PublicKey {
	return p.nodeID
}

// Inbound reports whether the remote dialed us.
func (p *Peer) Inbound() bool {
	return p.inbound
}

// GetRemoteAddr returns the remote network address.
func (p *Peer) GetRemoteAddr() string {
	return p.conn.RemoteAddr().String()
}

// Send writes one message.  Concurrent calls are serialized.
func (p *Peer) Send(mtype string, payload interface{}) error {
	p.sendMtx.Lock()
	defer p.sendMtx.Unlock()

	p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return writeMessage(p.conn, mtype, payload)
}

// Close drops the connection.  Done is closed once the read loop noticed.
func (p *Peer) Close() {
	p.closeOnce.Do(func() {
		p.conn.Close()
	})
}

// Done is closed when the peer went away.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

func writeMessage(w io.Writer, mtype string, payload interface{}) error {
	msg, err := NewMessage(mtype, payload)
	if err != nil {
		return err
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

func readMessage(sc *bufio.Scanner) (Message, error) {
	var msg Message
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return msg, err
		}
		return msg, io.EOF
	}
	err := json.Unmarshal(sc.Bytes(), &msg)
	return msg, err
}
