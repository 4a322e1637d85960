package ps2

import "sync"

// DefaultTimeout is the number of status-register polls an operation
// attempts before giving up with ErrTimeout. The bound is an iteration
// count, not wall-clock time: the hardware offers no interrupt-free
// blocking primitive, so an absent or wedged device must not hang the
// caller forever.
const DefaultTimeout = 10_000

// Controller command opcodes, written to CommandRegister. Internal RAM
// access and output pulses compute their opcode from a base value instead
// (see ReadInternalRAM and PulseOutputLowNibble).
const (
	commandReadInternalRAM              = 0x20
	commandWriteInternalRAM             = 0x60
	commandDisableMouse                 = 0xa7
	commandEnableMouse                  = 0xa8
	commandTestMouse                    = 0xa9
	commandTestController               = 0xaa
	commandTestKeyboard                 = 0xab
	commandDiagnosticDump               = 0xac
	commandDisableKeyboard              = 0xad
	commandEnableKeyboard               = 0xae
	commandReadInputPort                = 0xc0
	commandWriteLowInputNibbleToStatus  = 0xc1
	commandWriteHighInputNibbleToStatus = 0xc2
	commandReadOutputPort               = 0xd0
	commandWriteOutputPort              = 0xd1
	commandWriteKeyboardBuffer          = 0xd2
	commandWriteMouseBuffer             = 0xd3
	commandWriteMouse                   = 0xd4
	commandReadTestPort                 = 0xe0
	commandPulseOutput                  = 0xf0

	// Internal RAM addresses are 5 bits, OR'd into the base opcode.
	internalRAMAddressMask = 0x1f
)

const internalRAMSize = 32

// Controller mediates all traffic with the two 8042 registers.
//
// The caller must guarantee that nothing else in the process touches the
// two register addresses while the Controller exists, and that at most one
// goroutine calls into the Controller and its device handles at a time. In
// blocking read mode the caller must additionally guarantee that no
// interrupt handler is concurrently draining the data buffer, or reads may
// stall until the timeout. The portio package enforces the single-owner
// contract for real hardware; over an arbitrary RegisterPort it is the
// caller's responsibility.
//
// The internal mutex only serializes one command/acknowledgment sequence
// at a time so that two device conversations cannot interleave their bytes
// on the shared data register.
type Controller struct {
	mu sync.Mutex

	port         RegisterPort
	timeout      int
	blockingRead bool
}

// NewController returns a Controller over port using DefaultTimeout.
func NewController(port RegisterPort) *Controller {
	return NewControllerWithTimeout(port, DefaultTimeout)
}

// NewControllerWithTimeout is like NewController with an explicit poll
// bound.
func NewControllerWithTimeout(port RegisterPort, timeout int) *Controller {
	return &Controller{
		port:         port,
		timeout:      timeout,
		blockingRead: true,
	}
}

// Keyboard returns a handle for issuing keyboard commands through this
// controller. The handle is only valid for single-threaded use.
func (c *Controller) Keyboard() *Keyboard {
	return &Keyboard{c: c}
}

// Mouse returns a handle for issuing mouse commands through this
// controller. The handle is only valid for single-threaded use.
func (c *Controller) Mouse() *Mouse {
	return &Mouse{c: c}
}

// EnableBlockingRead makes ReadData poll for data up to the timeout bound.
// This is the default.
func (c *Controller) EnableBlockingRead() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blockingRead = true
}

// DisableBlockingRead makes ReadData fail immediately with ErrWouldBlock
// when no data is ready, for use from interrupt handlers that must not
// spin.
func (c *Controller) DisableBlockingRead() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blockingRead = false
}

// ReadStatus reads the controller status register. A status read is a
// single unconditional bus cycle and never fails.
func (c *Controller) ReadStatus() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readStatusLocked()
}

func (c *Controller) readStatusLocked() Status {
	return Status(c.port.ReadPort(CommandRegister))
}

func (c *Controller) waitForReadLocked() error {
	for cycles := 0; cycles < c.timeout; cycles++ {
		if c.readStatusLocked().Has(StatusOutputFull) {
			return nil
		}
	}
	return ErrTimeout
}

func (c *Controller) waitForWriteLocked() error {
	for cycles := 0; cycles < c.timeout; cycles++ {
		if !c.readStatusLocked().Has(StatusInputFull) {
			return nil
		}
	}
	return ErrTimeout
}

// ReadData reads a byte from the data buffer once it is full. In blocking
// mode this polls up to the timeout bound; in non-blocking mode it returns
// ErrWouldBlock immediately if no data is ready.
func (c *Controller) ReadData() (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readDataLocked()
}

func (c *Controller) readDataLocked() (byte, error) {
	if c.blockingRead {
		if err := c.waitForReadLocked(); err != nil {
			return 0, err
		}
	} else if !c.readStatusLocked().Has(StatusOutputFull) {
		return 0, ErrWouldBlock
	}
	return c.port.ReadPort(DataRegister), nil
}

// WriteData writes a byte to the data buffer once it is empty.
func (c *Controller) WriteData(data byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeDataLocked(data)
}

func (c *Controller) writeDataLocked(data byte) error {
	if err := c.waitForWriteLocked(); err != nil {
		return err
	}
	c.port.WritePort(DataRegister, data)
	return nil
}

func (c *Controller) writeCommandLocked(command byte) error {
	if err := c.waitForWriteLocked(); err != nil {
		return err
	}
	c.port.WritePort(CommandRegister, command)
	return nil
}

// ReadInternalRAM reads one of the controller's 32 internal RAM bytes.
// The address is masked to 5 bits and OR'd into the base opcode; byte 0 is
// the configuration byte.
func (c *Controller) ReadInternalRAM(byteNumber byte) (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readInternalRAMLocked(byteNumber)
}

func (c *Controller) readInternalRAMLocked(byteNumber byte) (byte, error) {
	command := byte(commandReadInternalRAM) | byteNumber&internalRAMAddressMask
	if err := c.writeCommandLocked(command); err != nil {
		return 0, err
	}
	return c.readDataLocked()
}

// WriteInternalRAM writes one of the controller's 32 internal RAM bytes.
func (c *Controller) WriteInternalRAM(byteNumber, data byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeInternalRAMLocked(byteNumber, data)
}

func (c *Controller) writeInternalRAMLocked(byteNumber, data byte) error {
	command := byte(commandWriteInternalRAM) | byteNumber&internalRAMAddressMask
	if err := c.writeCommandLocked(command); err != nil {
		return err
	}
	return c.writeDataLocked(data)
}

// ReadConfig reads the configuration byte (internal RAM byte 0). Undefined
// bits are masked to zero.
func (c *Controller) ReadConfig() (Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := c.readInternalRAMLocked(0)
	if err != nil {
		return 0, err
	}
	return configFromBits(b), nil
}

// WriteConfig writes the configuration byte (internal RAM byte 0).
// Undefined bits are truncated, never rejected.
func (c *Controller) WriteConfig(config Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeInternalRAMLocked(0, byte(config&configDefined))
}

// DisableKeyboard drives the keyboard clock line low, setting
// ConfigDisableKeyboard.
func (c *Controller) DisableKeyboard() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeCommandLocked(commandDisableKeyboard)
}

// EnableKeyboard clears ConfigDisableKeyboard.
func (c *Controller) EnableKeyboard() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeCommandLocked(commandEnableKeyboard)
}

// DisableMouse drives the mouse clock line low, setting ConfigDisableMouse.
func (c *Controller) DisableMouse() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeCommandLocked(commandDisableMouse)
}

// EnableMouse clears ConfigDisableMouse.
func (c *Controller) EnableMouse() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeCommandLocked(commandEnableMouse)
}

// TestController runs the controller self-test. Any response other than
// 0x55 is reported as a TestFailedError carrying the response byte.
func (c *Controller) TestController() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selfTestLocked(commandTestController, 0x55)
}

// TestKeyboard tests the keyboard port. The expected response is 0x00.
func (c *Controller) TestKeyboard() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selfTestLocked(commandTestKeyboard, 0x00)
}

// TestMouse tests the mouse port. The expected response is 0x00.
func (c *Controller) TestMouse() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selfTestLocked(commandTestMouse, 0x00)
}

func (c *Controller) selfTestLocked(command, pass byte) error {
	if err := c.writeCommandLocked(command); err != nil {
		return err
	}
	response, err := c.readDataLocked()
	if err != nil {
		return err
	}
	if response != pass {
		return &TestFailedError{Response: response}
	}
	return nil
}

// DiagnosticDump reads all 32 bytes of the controller's internal RAM in
// sequence.
func (c *Controller) DiagnosticDump() ([internalRAMSize]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var dump [internalRAMSize]byte
	if err := c.writeCommandLocked(commandDiagnosticDump); err != nil {
		return dump, err
	}
	for i := range dump {
		b, err := c.readDataLocked()
		if err != nil {
			return dump, err
		}
		dump[i] = b
	}
	return dump, nil
}

// ReadInputPort reads the controller's auxiliary input port.
func (c *Controller) ReadInputPort() (InputPort, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.writeCommandLocked(commandReadInputPort); err != nil {
		return 0, err
	}
	b, err := c.readDataLocked()
	if err != nil {
		return 0, err
	}
	return inputPortFromBits(b), nil
}

// WriteInputLowNibbleToStatus copies the low nibble of the input port into
// the low nibble of the status register.
func (c *Controller) WriteInputLowNibbleToStatus() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeCommandLocked(commandWriteLowInputNibbleToStatus)
}

// WriteInputHighNibbleToStatus copies the high nibble of the input port
// into the high nibble of the status register.
func (c *Controller) WriteInputHighNibbleToStatus() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeCommandLocked(commandWriteHighInputNibbleToStatus)
}

// ReadOutputPort reads the controller's auxiliary output port.
func (c *Controller) ReadOutputPort() (OutputPort, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.writeCommandLocked(commandReadOutputPort); err != nil {
		return 0, err
	}
	b, err := c.readDataLocked()
	if err != nil {
		return 0, err
	}
	return OutputPort(b), nil
}

// WriteOutputPort writes the controller's auxiliary output port. Note that
// OutputPortSystemReset and OutputPortA20Gate take effect immediately.
func (c *Controller) WriteOutputPort(output OutputPort) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.writeCommandLocked(commandWriteOutputPort); err != nil {
		return err
	}
	return c.writeDataLocked(byte(output))
}

// WriteKeyboardBuffer injects a byte into the data buffer as if it had
// arrived from the keyboard. This raises IRQ1 if keyboard interrupts are
// enabled, a side effect the caller must account for.
func (c *Controller) WriteKeyboardBuffer(data byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.writeCommandLocked(commandWriteKeyboardBuffer); err != nil {
		return err
	}
	return c.writeDataLocked(data)
}

// WriteMouseBuffer injects a byte into the data buffer as if it had
// arrived from the mouse. This raises IRQ12 if mouse interrupts are
// enabled.
func (c *Controller) WriteMouseBuffer(data byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.writeCommandLocked(commandWriteMouseBuffer); err != nil {
		return err
	}
	return c.writeDataLocked(data)
}

// WriteMouse routes a byte to the mouse instead of the keyboard. The
// controller has one shared data register but two logical endpoints; the
// 0xd4 opcode selects the mouse as the target of the following data byte.
func (c *Controller) WriteMouse(data byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeMouseLocked(data)
}

func (c *Controller) writeMouseLocked(data byte) error {
	if err := c.writeCommandLocked(commandWriteMouse); err != nil {
		return err
	}
	return c.writeDataLocked(data)
}

// ReadTestPort reads the state of the device clock and data lines.
func (c *Controller) ReadTestPort() (TestPort, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.writeCommandLocked(commandReadTestPort); err != nil {
		return 0, err
	}
	b, err := c.readDataLocked()
	if err != nil {
		return 0, err
	}
	return testPortFromBits(b), nil
}

// PulseOutputLowNibble pulses output-port lines selected by the low nibble
// of mask, which is active-low. The opcode's high nibble is already
// all-ones, so OR'ing the mask in preserves it; pulsing line 0 resets the
// CPU without a full output-port write/readback cycle.
func (c *Controller) PulseOutputLowNibble(mask byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeCommandLocked(commandPulseOutput | mask)
}
