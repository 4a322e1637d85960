package emu

const (
	mouseCommandScaling1To1      = 0xe6
	mouseCommandScaling2To1      = 0xe7
	mouseCommandSetResolution    = 0xe8
	mouseCommandStatusRequest    = 0xe9
	mouseCommandSetStreamMode    = 0xea
	mouseCommandReadData         = 0xeb
	mouseCommandResetWrapMode    = 0xec
	mouseCommandSetWrapMode      = 0xee
	mouseCommandSetRemoteMode    = 0xf0
	mouseCommandIdentify         = 0xf2
	mouseCommandSetSampleRate    = 0xf3
	mouseCommandEnableReporting  = 0xf4
	mouseCommandDisableReporting = 0xf5
	mouseCommandSetDefaults      = 0xf6
	mouseCommandResend           = 0xfe
	mouseCommandReset            = 0xff

	mouseResponseAck      = 0xfa
	mouseResponseTestPass = 0xaa

	defaultSampleRate      = 100
	defaultResolutionIndex = 2 // 4 counts/mm
)

// Mouse emulates a standard three-button PS/2 mouse on the controller's
// auxiliary port. All of its traffic is routed through the 0xd4 path and
// queued with the mouse flag set, so the driver sees StatusMouseOutputFull.
type Mouse struct {
	c *I8042

	sampleRate      byte
	resolutionIndex byte
	scaling2To1     bool
	reporting       bool
	remote          bool
	wrap            bool

	buttons byte
	dx, dy  int16

	// expecting is the opcode whose data byte is outstanding, 0 if none.
	expecting byte

	lastPacket [3]byte

	// id is the identify response, 0x00 for a standard mouse.
	id byte
}

func newMouse(c *I8042) *Mouse {
	m := &Mouse{c: c}
	m.setDefaultsLocked()
	return m
}

func (m *Mouse) setDefaultsLocked() {
	m.sampleRate = defaultSampleRate
	m.resolutionIndex = defaultResolutionIndex
	m.scaling2To1 = false
	m.reporting = false
	m.remote = false
	m.wrap = false
	m.expecting = 0
}

// SampleRate returns the configured sample rate for test assertions.
func (m *Mouse) SampleRate() byte {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	return m.sampleRate
}

// ResolutionIndex returns the configured resolution index for test
// assertions.
func (m *Mouse) ResolutionIndex() byte {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	return m.resolutionIndex
}

// Move sets the deltas and button state reported by the next movement
// packet.
func (m *Mouse) Move(dx, dy int16, buttons byte) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	m.dx = dx
	m.dy = dy
	m.buttons = buttons & 0x07
}

func (m *Mouse) sendLocked(value byte) {
	m.c.queueMouseOutputLocked(value)
}

func (m *Mouse) handleByteLocked(value byte) {
	// In wrap mode every byte is echoed except the two that leave it.
	if m.wrap && value != mouseCommandResetWrapMode && value != mouseCommandReset {
		m.sendLocked(value)
		return
	}

	if m.expecting != 0 {
		expecting := m.expecting
		m.expecting = 0
		m.handleDataLocked(expecting, value)
		return
	}

	switch value {
	case mouseCommandScaling1To1:
		m.scaling2To1 = false
		m.sendLocked(mouseResponseAck)

	case mouseCommandScaling2To1:
		m.scaling2To1 = true
		m.sendLocked(mouseResponseAck)

	case mouseCommandSetResolution, mouseCommandSetSampleRate:
		m.expecting = value
		m.sendLocked(mouseResponseAck)

	case mouseCommandStatusRequest:
		m.sendLocked(mouseResponseAck)
		m.sendLocked(m.statusByteLocked())
		m.sendLocked(m.resolutionIndex)
		m.sendLocked(m.sampleRate)

	case mouseCommandSetStreamMode:
		m.remote = false
		m.sendLocked(mouseResponseAck)

	case mouseCommandReadData:
		m.sendLocked(mouseResponseAck)
		m.sendPacketLocked()

	case mouseCommandResetWrapMode:
		m.wrap = false
		m.sendLocked(mouseResponseAck)

	case mouseCommandSetWrapMode:
		m.wrap = true
		m.sendLocked(mouseResponseAck)

	case mouseCommandSetRemoteMode:
		m.remote = true
		m.sendLocked(mouseResponseAck)

	case mouseCommandIdentify:
		m.sendLocked(mouseResponseAck)
		m.sendLocked(m.id)

	case mouseCommandEnableReporting:
		m.reporting = true
		m.sendLocked(mouseResponseAck)

	case mouseCommandDisableReporting:
		m.reporting = false
		m.sendLocked(mouseResponseAck)

	case mouseCommandSetDefaults:
		m.setDefaultsLocked()
		m.sendLocked(mouseResponseAck)

	case mouseCommandResend:
		for _, b := range m.lastPacket {
			m.sendLocked(b)
		}

	case mouseCommandReset:
		m.sendLocked(mouseResponseAck)
		m.setDefaultsLocked()
		m.sendLocked(mouseResponseTestPass)
		m.sendLocked(m.id)

	default:
		m.sendLocked(mouseResponseAck)
	}
}

func (m *Mouse) handleDataLocked(command, value byte) {
	switch command {
	case mouseCommandSetResolution:
		m.resolutionIndex = value & 0x03
		m.sendLocked(mouseResponseAck)
	case mouseCommandSetSampleRate:
		m.sampleRate = value
		m.sendLocked(mouseResponseAck)
	}
}

func (m *Mouse) statusByteLocked() byte {
	status := m.buttons
	if m.scaling2To1 {
		status |= 1 << 4
	}
	if m.reporting {
		status |= 1 << 5
	}
	if m.remote {
		status |= 1 << 6
	}
	return status
}

// sendPacketLocked encodes the pending deltas as a movement packet: the
// sign of each 9-bit delta lives in the flags byte, deltas beyond the
// 9-bit range set the overflow flags.
func (m *Mouse) sendPacketLocked() {
	flags := m.buttons | 1<<3 // bit 3 is always set on the wire

	encode := func(delta int16, signBit, overflowBit byte) byte {
		if delta < 0 {
			flags |= signBit
		}
		if delta < -256 || delta > 255 {
			flags |= overflowBit
		}
		return byte(delta & 0xff)
	}

	x := encode(m.dx, 1<<4, 1<<6)
	y := encode(m.dy, 1<<5, 1<<7)

	m.lastPacket = [3]byte{flags, x, y}
	m.dx, m.dy = 0, 0
	for _, b := range m.lastPacket {
		m.sendLocked(b)
	}
}
