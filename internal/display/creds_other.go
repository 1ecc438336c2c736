//go:build !linux

package display

import (
	"errors"
	"net"
)

func peerCredentials(net.Conn) (Credentials, error) {
	return Credentials{}, errors.New("peer credentials are only read on linux")
}
