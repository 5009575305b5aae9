// Package nat asks the local router to forward the node's listening port.
package nat

import (
	"context"
	"fmt"
	"time"

	"github.com/mit-dci/litnode/logging"
)

const (
	ModeNone = ""
	ModeUpnp = "upnp"
	ModePmp  = "pmp"
)

// discovery timeout for both protocols
const discoverTimeout = 10 * time.Second

// A Mapping is an active port forward.  Close removes it again.
type Mapping interface {
	ExternalIP() string
	Close() error
}

// ValidMode reports whether mode names a supported mapping protocol.
func ValidMode(mode string) bool {
	switch mode {
	case ModeNone, ModeUpnp, ModePmp:
		return true
	}
	return false
}

// Map forwards the TCP port using mode.  ModeNone returns a nil Mapping.
func Map(ctx context.Context, mode string, port uint16, log *logging.Logger) (Mapping, error) {
	switch mode {
	case ModeNone:
		return nil, nil
	case ModeUpnp:
		ctx, cancel := context.WithTimeout(ctx, discoverTimeout)
		defer cancel()
		m, err := SetupUpnp(ctx, port)
		if err != nil {
			return nil, err
		}
		log.Infof("upnp: forwarding port %d, external IP is %s", port, m.ExternalIP())
		return m, nil
	case ModePmp:
		m, err := SetupPmp(discoverTimeout, port)
		if err != nil {
			return nil, err
		}
		log.Infof("nat-pmp: forwarding port %d, external IP is %s", port, m.ExternalIP())
		return m, nil
	}
	return nil, fmt.Errorf("unknown nat mode %q", mode)
}
