package nat

import (
	"errors"
	"net"
	"time"

	"github.com/jackpal/gateway"
	natpmp "github.com/jackpal/go-nat-pmp"
)

// requested lifetime of a NAT-PMP mapping, in seconds
const pmpLifetime = 3600

// ErrMultipleNAT means the gateway itself only has a private address.
var ErrMultipleNAT = errors.New("multiple NATs detected")

// RFC 1918 ranges
var privateNets = mustCIDRs("10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16")

func mustCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}

func isPrivateIP(ip net.IP) bool {
	for _, n := range privateNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

type pmpMapping struct {
	client *natpmp.Client
	ip     net.IP
	port   int
}

// SetupPmp forwards port on the default gateway, giving up on each request
// after timeout.
func SetupPmp(timeout time.Duration, port uint16) (Mapping, error) {
	gw, err := gateway.DiscoverGateway()
	if err != nil {
		return nil, err
	}
	m := &pmpMapping{
		client: natpmp.NewClientWithTimeout(gw, timeout),
		port:   int(port),
	}

	// a private external address means another NAT sits above this one
	res, err := m.client.GetExternalAddress()
	if err != nil {
		return nil, err
	}
	m.ip = net.IP(res.ExternalIPAddress[:])
	if isPrivateIP(m.ip) {
		return nil, ErrMultipleNAT
	}

	if _, err := m.client.AddPortMapping("tcp", m.port, m.port, pmpLifetime); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *pmpMapping) ExternalIP() string {
	return m.ip.String()
}

// Close asks for a zero lifetime, which deletes the mapping.
func (m *pmpMapping) Close() error {
	_, err := m.client.AddPortMapping("tcp", m.port, 0, 0)
	return err
}
