// Package emu provides a software 8042 controller with an attached PS/2
// keyboard and mouse. It implements the driver's RegisterPort interface,
// so the full protocol stack can be exercised without hardware: the
// ps2probe tool uses it as a backend and the driver tests run against it.
package emu

import "sync"

const (
	dataPort    = 0x60
	commandPort = 0x64

	commandReadRAMBase              = 0x20
	commandWriteRAMBase             = 0x60
	commandDisableMouse             = 0xa7
	commandEnableMouse              = 0xa8
	commandTestMouse                = 0xa9
	commandTestController           = 0xaa
	commandTestKeyboard             = 0xab
	commandDiagnosticDump           = 0xac
	commandDisableKeyboard          = 0xad
	commandEnableKeyboard           = 0xae
	commandReadInputPort            = 0xc0
	commandReadOutputPort           = 0xd0
	commandWriteOutputPort          = 0xd1
	commandWriteKeyboardBuffer      = 0xd2
	commandWriteMouseBuffer         = 0xd3
	commandWriteMouse               = 0xd4
	commandReadTestPort             = 0xe0
	commandPulseOutputBase          = 0xf0

	ramAddressMask = 0x1f
	ramSize        = 32
)

const (
	statusOutputFull      = 1 << 0
	statusSystemFlag      = 1 << 2
	statusKeyLock         = 1 << 4
	statusMouseOutputFull = 1 << 5
)

const (
	configSystemFlag      = 1 << 2
	configDisableKeyboard = 1 << 4
	configDisableMouse    = 1 << 5
)

const (
	responseSelfTestOK = 0x55
	responsePortOK     = 0x00
)

// pendingWrite records which command is waiting for its data byte on the
// data port.
type pendingWrite int

const (
	pendingNone pendingWrite = iota
	pendingRAMWrite
	pendingOutputPort
	pendingKeyboardBuffer
	pendingMouseBuffer
	pendingMouseCommand
)

type outputByte struct {
	value byte
	mouse bool
}

// I8042 emulates the 8042 controller with a keyboard and mouse attached.
// Unlike real hardware the output buffer is a FIFO, so multi-byte
// responses (identification bytes, movement packets, the diagnostic dump)
// survive until the driver reads them.
type I8042 struct {
	mu sync.Mutex

	ram        [ramSize]byte
	inputPort  byte
	outputPort byte
	testPort   byte

	output []outputByte

	pending        pendingWrite
	pendingRAMAddr byte

	resetPulsed bool

	keyboard *Keyboard
	mouse    *Mouse
}

// NewI8042 returns a controller with an MF2 keyboard and a standard PS/2
// mouse attached, the system flag set and the A20 gate enabled.
func NewI8042() *I8042 {
	c := &I8042{
		inputPort:  0xa0,
		outputPort: 0x02,
		testPort:   0x0f, // all device lines idle high
	}
	c.ram[0] = configSystemFlag
	c.keyboard = newKeyboard(c)
	c.mouse = newMouse(c)
	return c
}

// Keyboard returns the attached keyboard device.
func (c *I8042) Keyboard() *Keyboard { return c.keyboard }

// Mouse returns the attached mouse device.
func (c *I8042) Mouse() *Mouse { return c.mouse }

// ResetPulsed reports whether the CPU reset line was pulsed low since
// construction.
func (c *I8042) ResetPulsed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resetPulsed
}

// ReadPort implements the driver's RegisterPort.
func (c *I8042) ReadPort(addr uint16) byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch addr {
	case commandPort:
		return c.statusLocked()
	case dataPort:
		return c.readDataLocked()
	default:
		return 0
	}
}

// WritePort implements the driver's RegisterPort.
func (c *I8042) WritePort(addr uint16, value byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch addr {
	case commandPort:
		c.handleCommandLocked(value)
	case dataPort:
		c.handleDataWriteLocked(value)
	}
}

func (c *I8042) statusLocked() byte {
	status := byte(statusKeyLock)
	if len(c.output) > 0 {
		status |= statusOutputFull
		if c.output[0].mouse {
			status |= statusMouseOutputFull
		}
	}
	status |= c.ram[0] & configSystemFlag
	return status
}

func (c *I8042) readDataLocked() byte {
	if len(c.output) == 0 {
		return 0x00
	}
	value := c.output[0].value
	c.output = c.output[1:]
	return value
}

func (c *I8042) handleCommandLocked(command byte) {
	switch {
	case command >= commandReadRAMBase && command < commandReadRAMBase+ramSize:
		c.queueOutputLocked(c.ram[command&ramAddressMask])
	case command >= commandWriteRAMBase && command < commandWriteRAMBase+ramSize:
		c.pending = pendingRAMWrite
		c.pendingRAMAddr = command & ramAddressMask
	case command == commandDisableMouse:
		c.ram[0] |= configDisableMouse
	case command == commandEnableMouse:
		c.ram[0] &^= configDisableMouse
	case command == commandTestMouse:
		c.queueOutputLocked(responsePortOK)
	case command == commandTestController:
		c.ram[0] |= configSystemFlag
		c.queueOutputLocked(responseSelfTestOK)
	case command == commandTestKeyboard:
		c.queueOutputLocked(responsePortOK)
	case command == commandDiagnosticDump:
		for _, b := range c.ram {
			c.queueOutputLocked(b)
		}
	case command == commandDisableKeyboard:
		c.ram[0] |= configDisableKeyboard
	case command == commandEnableKeyboard:
		c.ram[0] &^= configDisableKeyboard
	case command == commandReadInputPort:
		c.queueOutputLocked(c.inputPort)
	case command == commandReadOutputPort:
		c.queueOutputLocked(c.outputPort)
	case command == commandWriteOutputPort:
		c.pending = pendingOutputPort
	case command == commandWriteKeyboardBuffer:
		c.pending = pendingKeyboardBuffer
	case command == commandWriteMouseBuffer:
		c.pending = pendingMouseBuffer
	case command == commandWriteMouse:
		c.pending = pendingMouseCommand
	case command == commandReadTestPort:
		c.queueOutputLocked(c.testPort)
	case command >= commandPulseOutputBase:
		// The low nibble is an active-low line mask; line 0 is CPU reset.
		if command&0x01 == 0 {
			c.resetPulsed = true
		}
	}
}

func (c *I8042) handleDataWriteLocked(value byte) {
	pending := c.pending
	c.pending = pendingNone

	switch pending {
	case pendingRAMWrite:
		c.ram[c.pendingRAMAddr] = value
	case pendingOutputPort:
		c.outputPort = value
	case pendingKeyboardBuffer:
		c.queueOutputLocked(value)
	case pendingMouseBuffer:
		c.queueMouseOutputLocked(value)
	case pendingMouseCommand:
		c.mouse.handleByteLocked(value)
	default:
		// Parameter bytes for a mouse command arrive without a fresh
		// 0xd4 prefix, so a mouse waiting on one claims the write.
		if c.mouse.expecting != 0 {
			c.mouse.handleByteLocked(value)
			return
		}
		if c.ram[0]&configDisableKeyboard == 0 {
			c.keyboard.handleByteLocked(value)
		}
	}
}

func (c *I8042) queueOutputLocked(value byte) {
	c.output = append(c.output, outputByte{value: value})
}

func (c *I8042) queueMouseOutputLocked(value byte) {
	c.output = append(c.output, outputByte{value: value, mouse: true})
}
