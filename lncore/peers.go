package lncore

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// PeerInfo is a remembered peer endpoint.
type PeerInfo struct {
	PubKey  PublicKey `json:"pubkey"`
	Address string    `json:"address"` // host:port
}

// ParsePeerInfo splits a string like
// "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798@10.0.0.1:9735"
// into the node id and the network address.  Both parts are required.
func ParsePeerInfo(s string) (PeerInfo, error) {
	var pi PeerInfo

	idHost := strings.Split(strings.TrimSpace(s), "@")
	if len(idHost) != 2 {
		return pi, ErrPeerInfoParseFailed
	}

	pk, err := ParsePublicKey(idHost[0])
	if err != nil {
		return pi, fmt.Errorf("%w: %s", ErrPeerInfoParseFailed, err.Error())
	}

	host, port, err := net.SplitHostPort(idHost[1])
	if err != nil || host == "" {
		return pi, ErrPeerInfoParseFailed
	}
	if p, err := strconv.ParseUint(port, 10, 16); err != nil || p == 0 {
		return pi, ErrPeerInfoParseFailed
	}

	pi.PubKey = pk
	pi.Address = net.JoinHostPort(host, port)
	return pi, nil
}

func (pi PeerInfo) String() string {
	return pi.PubKey.String() + "@" + pi.Address
}
