//go:build !linux

package portio

import "errors"

// DevPort is only available on Linux, where /dev/port exposes the I/O
// port space.
type DevPort struct{}

func Open() (*DevPort, error) {
	return nil, errors.New("portio: /dev/port is only available on linux")
}

func (p *DevPort) ReadPort(addr uint16) byte { return 0 }

func (p *DevPort) WritePort(addr uint16, value byte) {}

func (p *DevPort) Err() error { return nil }

func (p *DevPort) Close() error { return nil }
