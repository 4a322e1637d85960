package ps2

import "fmt"

// Mouse command opcodes. These overlap the keyboard range and are only
// distinguished by being routed through the controller's mouse-select path
// (Controller.WriteMouse) instead of the plain data write.
const (
	mouseCommandSetScaling1To1       = 0xe6
	mouseCommandSetScaling2To1       = 0xe7
	mouseCommandSetResolution        = 0xe8
	mouseCommandStatusRequest        = 0xe9
	mouseCommandSetStreamMode        = 0xea
	mouseCommandReadData             = 0xeb
	mouseCommandResetWrapMode        = 0xec
	mouseCommandSetWrapMode          = 0xee
	mouseCommandSetRemoteMode        = 0xf0
	mouseCommandGetDeviceID          = 0xf2
	mouseCommandSetSampleRate        = 0xf3
	mouseCommandEnableDataReporting  = 0xf4
	mouseCommandDisableDataReporting = 0xf5
	mouseCommandSetDefaults          = 0xf6
	mouseCommandResendLastByte       = 0xfe
	mouseCommandResetAndSelfTest     = 0xff
)

// mouseResolutions maps the wire encoding (the index) to counts per
// millimeter.
var mouseResolutions = [4]byte{1, 2, 4, 8}

// mouseSampleRates are the valid sample rates in samples per second. The
// rate is transmitted as-is, not as a table index.
var mouseSampleRates = [7]byte{10, 20, 40, 60, 80, 100, 200}

// MouseType identifies the mouse model from the single identification byte
// returned by the identify command. Unrecognized bytes are preserved
// verbatim, so any value outside the named constants is an unknown device.
type MouseType byte

const (
	MouseStandard             MouseType = 0x00
	MouseIntelliMouse         MouseType = 0x03
	MouseIntelliMouseExplorer MouseType = 0x04
	MouseTyphoon              MouseType = 0x08
)

func (t MouseType) String() string {
	switch t {
	case MouseStandard:
		return "standard PS/2 mouse"
	case MouseIntelliMouse:
		return "IntelliMouse"
	case MouseIntelliMouseExplorer:
		return "IntelliMouse Explorer"
	case MouseTyphoon:
		return "Typhoon"
	default:
		return fmt.Sprintf("unknown mouse (id 0x%02x)", byte(t))
	}
}

// MouseStatusReport is the decoded three-byte status packet.
type MouseStatusReport struct {
	Status MouseStatus
	// Resolution in counts per millimeter (1, 2, 4 or 8), decoded from
	// the wire index.
	Resolution byte
	// SampleRate in samples per second.
	SampleRate byte
}

// MouseMovementPacket is the decoded three-byte movement packet. X and Y
// are the 9-bit two's-complement deltas, sign-extended from the raw bytes
// and the sign bits in Flags.
type MouseMovementPacket struct {
	Flags MouseMovement
	X, Y  int16
}

// Mouse issues mouse commands through a Controller. Command opcodes are
// routed via the controller's mouse-select path so they reach the mouse
// endpoint rather than the keyboard.
type Mouse struct {
	c *Controller
}

func (m *Mouse) checkResponseLocked() error {
	response, err := m.c.readDataLocked()
	if err != nil {
		return fmt.Errorf("mouse: %w", err)
	}
	switch response {
	case responseAck:
		return nil
	case responseResend:
		return ErrResend
	default:
		return &InvalidResponseError{Byte: response}
	}
}

func (m *Mouse) commandLocked(command byte) error {
	if err := m.c.writeMouseLocked(command); err != nil {
		return fmt.Errorf("mouse: %w", err)
	}
	return m.checkResponseLocked()
}

func (m *Mouse) commandWithDataLocked(command, data byte) error {
	if err := m.commandLocked(command); err != nil {
		return err
	}
	if err := m.c.writeDataLocked(data); err != nil {
		return fmt.Errorf("mouse: %w", err)
	}
	return m.checkResponseLocked()
}

// SetScalingOneToOne disables 2:1 movement scaling.
func (m *Mouse) SetScalingOneToOne() error {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	return m.commandLocked(mouseCommandSetScaling1To1)
}

// SetScalingTwoToOne enables 2:1 movement scaling.
func (m *Mouse) SetScalingTwoToOne() error {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	return m.commandLocked(mouseCommandSetScaling2To1)
}

// SetResolution sets the resolution in counts per millimeter. Valid values
// are 1, 2, 4 and 8; anything else is rejected before a single byte is
// sent. The value is translated to its table index for transmission.
func (m *Mouse) SetResolution(countsPerMM byte) error {
	index := -1
	for i, counts := range mouseResolutions {
		if counts == countsPerMM {
			index = i
			break
		}
	}
	if index < 0 {
		return &InvalidResolutionError{Resolution: countsPerMM}
	}

	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	return m.commandWithDataLocked(mouseCommandSetResolution, byte(index))
}

// SetSampleRate sets the sample rate in samples per second. Valid values
// are 10, 20, 40, 60, 80, 100 and 200; anything else is rejected before a
// single byte is sent.
func (m *Mouse) SetSampleRate(rate byte) error {
	if !validSampleRate(rate) {
		return &InvalidSampleRateError{Rate: rate}
	}

	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	return m.commandWithDataLocked(mouseCommandSetSampleRate, rate)
}

func validSampleRate(rate byte) bool {
	for _, r := range mouseSampleRates {
		if r == rate {
			return true
		}
	}
	return false
}

// GetStatusPacket requests and decodes the three-byte status packet. The
// trailing resolution and sample rate bytes are validated against the same
// tables as the setters; an out-of-table value is a decoding error, not
// silently accepted.
func (m *Mouse) GetStatusPacket() (MouseStatusReport, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()

	var report MouseStatusReport
	if err := m.commandLocked(mouseCommandStatusRequest); err != nil {
		return report, err
	}

	status, err := m.c.readDataLocked()
	if err != nil {
		return report, fmt.Errorf("mouse: %w", err)
	}
	report.Status = mouseStatusFromBits(status)

	index, err := m.c.readDataLocked()
	if err != nil {
		return report, fmt.Errorf("mouse: %w", err)
	}
	if int(index) >= len(mouseResolutions) {
		return report, &InvalidResolutionError{Resolution: index}
	}
	report.Resolution = mouseResolutions[index]

	rate, err := m.c.readDataLocked()
	if err != nil {
		return report, fmt.Errorf("mouse: %w", err)
	}
	if !validSampleRate(rate) {
		return report, &InvalidSampleRateError{Rate: rate}
	}
	report.SampleRate = rate

	return report, nil
}

// SetStreamMode puts the mouse in stream mode, where movement packets are
// sent as they happen.
func (m *Mouse) SetStreamMode() error {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	return m.commandLocked(mouseCommandSetStreamMode)
}

// RequestDataPacket asks the mouse for a movement packet and decodes it.
// This is the polling path; use ReadDataPacket from an interrupt handler
// that already knows a packet is pending.
func (m *Mouse) RequestDataPacket() (MouseMovementPacket, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	if err := m.commandLocked(mouseCommandReadData); err != nil {
		return MouseMovementPacket{}, err
	}
	return m.readDataPacketLocked()
}

// ReadDataPacket decodes a movement packet that is already pending in the
// data buffer, without sending a command first.
func (m *Mouse) ReadDataPacket() (MouseMovementPacket, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	return m.readDataPacketLocked()
}

func (m *Mouse) readDataPacketLocked() (MouseMovementPacket, error) {
	var raw [3]byte
	for i := range raw {
		b, err := m.c.readDataLocked()
		if err != nil {
			return MouseMovementPacket{}, fmt.Errorf("mouse: %w", err)
		}
		raw[i] = b
	}
	return decodeMovementPacket(raw[0], raw[1], raw[2]), nil
}

// decodeMovementPacket sign-extends the 9-bit deltas: the ninth bit of
// each delta lives in the flags byte, and when set the top byte of the
// 16-bit value becomes all-ones.
func decodeMovementPacket(flags, rawX, rawY byte) MouseMovementPacket {
	packet := MouseMovementPacket{Flags: MouseMovement(flags) & mouseMovementDefined}
	x := uint16(rawX)
	if packet.Flags.Has(MouseMovementXSign) {
		x |= 0xff00
	}
	y := uint16(rawY)
	if packet.Flags.Has(MouseMovementYSign) {
		y |= 0xff00
	}
	packet.X = int16(x)
	packet.Y = int16(y)
	return packet
}

// ResetWrapMode restores the mode the mouse was in before entering wrap
// mode.
func (m *Mouse) ResetWrapMode() error {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	return m.commandLocked(mouseCommandResetWrapMode)
}

// SetWrapMode puts the mouse in wrap (echo) mode.
func (m *Mouse) SetWrapMode() error {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	return m.commandLocked(mouseCommandSetWrapMode)
}

// SetRemoteMode puts the mouse in remote mode, where movement packets are
// only sent when requested.
func (m *Mouse) SetRemoteMode() error {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	return m.commandLocked(mouseCommandSetRemoteMode)
}

// GetMouseType identifies the attached mouse from its single
// identification byte.
func (m *Mouse) GetMouseType() (MouseType, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	if err := m.commandLocked(mouseCommandGetDeviceID); err != nil {
		return 0, err
	}
	id, err := m.c.readDataLocked()
	if err != nil {
		return 0, fmt.Errorf("mouse: %w", err)
	}
	return MouseType(id), nil
}

// EnableDataReporting starts movement packet reporting in stream mode.
func (m *Mouse) EnableDataReporting() error {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	return m.commandLocked(mouseCommandEnableDataReporting)
}

// DisableDataReporting stops movement packet reporting.
func (m *Mouse) DisableDataReporting() error {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	return m.commandLocked(mouseCommandDisableDataReporting)
}

// SetDefaults restores the power-on defaults: 100 samples per second,
// 4 counts/mm, 1:1 scaling, stream mode with reporting disabled.
func (m *Mouse) SetDefaults() error {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	return m.commandLocked(mouseCommandSetDefaults)
}

// ResendLastPacket asks the mouse to retransmit its last packet. The
// resent bytes are not decoded here; the caller drains the expected
// number of bytes through Controller.ReadData.
func (m *Mouse) ResendLastPacket() error {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	if err := m.c.writeMouseLocked(mouseCommandResendLastByte); err != nil {
		return fmt.Errorf("mouse: %w", err)
	}
	return nil
}

// ResetAndSelfTest resets the mouse and runs its basic assurance test. A
// mouse reset is always followed by the device ID byte, which is consumed
// regardless of the test outcome so the data buffer is left empty.
func (m *Mouse) ResetAndSelfTest() error {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	if err := m.commandLocked(mouseCommandResetAndSelfTest); err != nil {
		return err
	}
	result, err := m.c.readDataLocked()
	if err != nil {
		return fmt.Errorf("mouse: %w", err)
	}

	var testErr error
	switch result {
	case responseSelfTestPassed:
	case responseSelfTestFailed:
		testErr = ErrSelfTestFailed
	case responseResend:
		testErr = ErrResend
	default:
		testErr = &InvalidResponseError{Byte: result}
	}

	// The ID byte follows the test result either way; leave the buffer
	// empty before reporting the outcome.
	if _, err := m.c.readDataLocked(); err != nil {
		return fmt.Errorf("mouse: %w", err)
	}
	return testErr
}
