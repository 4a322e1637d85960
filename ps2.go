// Package ps2 is a polling driver for the legacy 8042 PS/2 controller and
// the keyboard and mouse devices attached to it. It speaks the byte-oriented
// command/acknowledgment protocol over the two fixed register addresses and
// leaves raw port access to a pluggable RegisterPort implementation, so it
// can run against real hardware (see the portio package) or an emulated
// controller (see internal/emu).
//
// References:
//   - https://wiki.osdev.org/%228042%22_PS/2_Controller
//   - https://wiki.osdev.org/PS/2_Keyboard
//   - https://wiki.osdev.org/PS/2_Mouse
//   - https://web.archive.org/web/20091124055529/http://www.computer-engineering.org/index.php?title=Main_Page
package ps2

// Register addresses of the 8042 on the ISA bus. The data register carries
// device bytes in both directions; a write to the command register issues a
// controller command and a read returns the Status bitfield.
const (
	DataRegister    uint16 = 0x60
	CommandRegister uint16 = 0x64
)

// RegisterPort performs single-byte bus cycles against the two 8042
// registers. Implementations must not buffer or block; each call is one bus
// cycle. The Controller only ever passes DataRegister or CommandRegister.
type RegisterPort interface {
	ReadPort(addr uint16) byte
	WritePort(addr uint16, value byte)
}
