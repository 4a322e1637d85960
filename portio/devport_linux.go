//go:build linux

package portio

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// claimed guards the process against opening the hardware ports twice.
// Two ports talking to the same 8042 would interleave command sequences.
var claimed atomic.Bool

// DevPort performs register access through /dev/port, where the file
// offset is the I/O port address. Requires CAP_SYS_RAWIO or root.
type DevPort struct {
	fd  int
	err error
}

// Open claims the hardware ports for this process and opens /dev/port.
// Only one DevPort may be live at a time; Close releases the claim.
func Open() (*DevPort, error) {
	if !claimed.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("portio: hardware ports already claimed")
	}

	fd, err := unix.Open("/dev/port", unix.O_CLOEXEC|unix.O_RDWR|unix.O_SYNC, 0)
	if err != nil {
		claimed.Store(false)
		return nil, fmt.Errorf("portio: open /dev/port: %w", err)
	}

	return &DevPort{fd: fd}, nil
}

// ReadPort reads one byte from the given I/O port. Failures are sticky
// and surfaced through Err.
func (p *DevPort) ReadPort(addr uint16) byte {
	var buf [1]byte
	n, err := unix.Pread(p.fd, buf[:], int64(addr))
	if err == nil && n != 1 {
		err = fmt.Errorf("portio: short read at port 0x%02x", addr)
	}
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("portio: read port 0x%02x: %w", addr, err)
	}
	return buf[0]
}

// WritePort writes one byte to the given I/O port. Failures are sticky
// and surfaced through Err.
func (p *DevPort) WritePort(addr uint16, value byte) {
	buf := [1]byte{value}
	n, err := unix.Pwrite(p.fd, buf[:], int64(addr))
	if err == nil && n != 1 {
		err = fmt.Errorf("portio: short write at port 0x%02x", addr)
	}
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("portio: write port 0x%02x: %w", addr, err)
	}
}

// Err returns the first access failure, if any. The register interface
// has no error channel of its own, so callers check this after a
// command sequence.
func (p *DevPort) Err() error { return p.err }

// Close releases /dev/port and the process-wide claim.
func (p *DevPort) Close() error {
	if p.fd < 0 {
		return nil
	}
	fd := p.fd
	p.fd = -1
	claimed.Store(false)
	if err := unix.Close(fd); err != nil {
		return fmt.Errorf("portio: close /dev/port: %w", err)
	}
	return nil
}
