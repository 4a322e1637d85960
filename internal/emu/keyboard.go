package emu

const (
	kbdCommandSetLeds      = 0xed
	kbdCommandEcho         = 0xee
	kbdCommandScancodeSet  = 0xf0
	kbdCommandIdentify     = 0xf2
	kbdCommandSetTypematic = 0xf3
	kbdCommandEnable       = 0xf4
	kbdCommandDisable      = 0xf5
	kbdCommandSetDefaults  = 0xf6
	kbdCommandSetKeyFirst  = 0xfb
	kbdCommandSetKeyLast   = 0xfd
	kbdCommandResend       = 0xfe
	kbdCommandReset        = 0xff

	kbdResponseAck      = 0xfa
	kbdResponseEcho     = 0xee
	kbdResponseResend   = 0xfe
	kbdResponseTestPass = 0xaa

	defaultScancodeSet = 2
	defaultTypematic   = 0x2b // 10.9 Hz, 500 ms
)

// Keyboard emulates an MF2 PS/2 keyboard behind the controller. Commands
// follow the acknowledgment cycle the driver expects: one ack per opcode
// and one per data byte.
type Keyboard struct {
	c *I8042

	scancodeSet byte
	typematic   byte
	leds        byte
	scanning    bool

	// expecting is the opcode whose data byte is outstanding, 0 if none.
	expecting byte

	lastSent byte

	// id is the two-byte identify response, 0xab 0x83 for an MF2.
	id [2]byte
}

func newKeyboard(c *I8042) *Keyboard {
	k := &Keyboard{c: c, id: [2]byte{0xab, 0x83}}
	k.resetLocked()
	return k
}

func (k *Keyboard) resetLocked() {
	k.scancodeSet = defaultScancodeSet
	k.typematic = defaultTypematic
	k.leds = 0
	k.scanning = true
	k.expecting = 0
}

// Leds returns the LED state for test assertions.
func (k *Keyboard) Leds() byte {
	k.c.mu.Lock()
	defer k.c.mu.Unlock()
	return k.leds
}

// ScancodeSet returns the active scancode set for test assertions.
func (k *Keyboard) ScancodeSet() byte {
	k.c.mu.Lock()
	defer k.c.mu.Unlock()
	return k.scancodeSet
}

// Typematic returns the packed typematic byte for test assertions.
func (k *Keyboard) Typematic() byte {
	k.c.mu.Lock()
	defer k.c.mu.Unlock()
	return k.typematic
}

// PressKey queues a make code as if the key had been pressed. Nothing is
// queued while scanning is disabled.
func (k *Keyboard) PressKey(scancode byte) {
	k.c.mu.Lock()
	defer k.c.mu.Unlock()
	if !k.scanning {
		return
	}
	k.sendLocked(scancode)
}

func (k *Keyboard) sendLocked(value byte) {
	k.lastSent = value
	k.c.queueOutputLocked(value)
}

func (k *Keyboard) handleByteLocked(value byte) {
	if k.expecting != 0 {
		expecting := k.expecting
		k.expecting = 0
		k.handleDataLocked(expecting, value)
		return
	}

	switch {
	case value == kbdCommandSetLeds,
		value == kbdCommandSetTypematic,
		value == kbdCommandScancodeSet,
		value >= kbdCommandSetKeyFirst && value <= kbdCommandSetKeyLast:
		k.expecting = value
		k.sendLocked(kbdResponseAck)

	case value == kbdCommandEcho:
		k.sendLocked(kbdResponseEcho)

	case value == kbdCommandIdentify:
		k.sendLocked(kbdResponseAck)
		k.sendLocked(k.id[0])
		k.sendLocked(k.id[1])

	case value == kbdCommandEnable:
		k.scanning = true
		k.sendLocked(kbdResponseAck)

	case value == kbdCommandDisable:
		k.scanning = false
		k.typematic = defaultTypematic
		k.sendLocked(kbdResponseAck)

	case value == kbdCommandSetDefaults:
		k.typematic = defaultTypematic
		k.scancodeSet = defaultScancodeSet
		k.sendLocked(kbdResponseAck)

	case value >= 0xf7 && value <= 0xfa:
		// Set-all-keys group; a mode change has no observable effect
		// outside scancode set 3, only the ack matters.
		k.sendLocked(kbdResponseAck)

	case value == kbdCommandResend:
		k.c.queueOutputLocked(k.lastSent)

	case value == kbdCommandReset:
		k.sendLocked(kbdResponseAck)
		k.resetLocked()
		k.sendLocked(kbdResponseTestPass)

	default:
		k.sendLocked(kbdResponseResend)
	}
}

func (k *Keyboard) handleDataLocked(command, value byte) {
	switch {
	case command == kbdCommandSetLeds:
		k.leds = value
		k.sendLocked(kbdResponseAck)

	case command == kbdCommandSetTypematic:
		k.typematic = value & 0x7f
		k.sendLocked(kbdResponseAck)

	case command == kbdCommandScancodeSet:
		switch {
		case value == 0:
			// Sub-parameter 0 queries the active set; the set number is
			// data, not a handshake byte.
			k.sendLocked(kbdResponseAck)
			k.sendLocked(k.scancodeSet)
		case value >= 1 && value <= 3:
			k.scancodeSet = value
			k.sendLocked(kbdResponseAck)
		default:
			k.sendLocked(kbdResponseResend)
		}

	case command >= kbdCommandSetKeyFirst && command <= kbdCommandSetKeyLast:
		// Single-key mode change; accept the scancode.
		k.sendLocked(kbdResponseAck)
	}
}
