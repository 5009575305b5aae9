package nat

import (
	"context"
	"fmt"

	UpnP "github.com/NebulousLabs/go-upnp"
)

type upnpMapping struct {
	igd  *UpnP.IGD
	ip   string
	port uint16
}

// SetupUpnp discovers the router and forwards port.
func SetupUpnp(ctx context.Context, port uint16) (Mapping, error) {
	// Connect to router
	igd, err := UpnP.DiscoverCtx(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to discover router: %v", err)
	}
	ip, err := igd.ExternalIP()
	if err != nil {
		return nil, fmt.Errorf("unable to get external ip: %v", err)
	}
	err = igd.Forward(port, "litnode peer port")
	if err != nil {
		return nil, fmt.Errorf("unable to forward peer port %d: %v", port, err)
	}
	return &upnpMapping{igd: igd, ip: ip, port: port}, nil
}

func (m *upnpMapping) ExternalIP() string {
	return m.ip
}

func (m *upnpMapping) Close() error {
	return m.igd.Clear(m.port)
}
