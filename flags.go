package ps2

// The 8042 register bitfields. Each type is a fixed 8-bit layout with named
// bits. Values read from the controller are masked to the defined bits, so
// undefined bits are always zero; writes are truncated the same way rather
// than rejected.

// Status is the controller status register, read from CommandRegister.
type Status byte

const (
	// StatusOutputFull is set when there is data to read at the data register.
	StatusOutputFull Status = 1 << 0
	// StatusInputFull is set while data written to the controller is still
	// being consumed. Writes must wait for this bit to clear.
	StatusInputFull Status = 1 << 1
	// StatusSystemFlag is set once the power-on self-test has passed.
	StatusSystemFlag Status = 1 << 2
	// StatusInputIsCommand is set when the last write targeted the command
	// register rather than a device.
	StatusInputIsCommand Status = 1 << 3
	// StatusKeyboardLock is set while keyboard functionality is inhibited.
	StatusKeyboardLock Status = 1 << 4
	// StatusMouseOutputFull is set when the pending output byte came from
	// the mouse.
	StatusMouseOutputFull Status = 1 << 5
	// StatusTimeoutErr indicates a transmission timeout on the device link.
	StatusTimeoutErr Status = 1 << 6
	// StatusParityErr indicates a parity error on the device link.
	StatusParityErr Status = 1 << 7
)

// Has reports whether all bits in flag are set.
func (s Status) Has(flag Status) bool { return s&flag == flag }

// Config is the controller configuration byte, stored at internal RAM byte 0.
type Config byte

const (
	ConfigEnableKeyboardInterrupt Config = 1 << 0
	ConfigEnableMouseInterrupt    Config = 1 << 1
	ConfigSetSystemFlag           Config = 1 << 2
	ConfigDisableKeyboard         Config = 1 << 4
	ConfigDisableMouse            Config = 1 << 5
	ConfigEnableTranslate         Config = 1 << 6

	configDefined Config = 0b0111_0111
)

func (c Config) Has(flag Config) bool { return c&flag == flag }

func configFromBits(b byte) Config { return Config(b) & configDefined }

// InputPort is the controller's auxiliary input port, read with a dedicated
// command. Several bits are hardwired board straps on real machines.
type InputPort byte

const (
	InputPortKeyboardData          InputPort = 1 << 0
	InputPortMouseData             InputPort = 1 << 1
	InputPortEnableExtraRAM        InputPort = 1 << 4
	InputPortNoManufacturingJumper InputPort = 1 << 5
	InputPortMonochromeDisplay     InputPort = 1 << 6
	InputPortKeyboardEnabled       InputPort = 1 << 7

	inputPortDefined InputPort = 0b1111_0011
)

func (p InputPort) Has(flag InputPort) bool { return p&flag == flag }

func inputPortFromBits(b byte) InputPort { return InputPort(b) & inputPortDefined }

// OutputPort is the controller's auxiliary output port. Bit 0 drives the CPU
// reset line and bit 1 the A20 gate, so writes here have system-wide effect.
type OutputPort byte

const (
	OutputPortSystemReset       OutputPort = 1 << 0
	OutputPortA20Gate           OutputPort = 1 << 1
	OutputPortMouseData         OutputPort = 1 << 2
	OutputPortMouseClock        OutputPort = 1 << 3
	OutputPortKeyboardInterrupt OutputPort = 1 << 4
	OutputPortMouseInterrupt    OutputPort = 1 << 5
	OutputPortKeyboardClock     OutputPort = 1 << 6
	OutputPortKeyboardData      OutputPort = 1 << 7
)

func (p OutputPort) Has(flag OutputPort) bool { return p&flag == flag }

// TestPort reflects the state of the device clock and data lines.
type TestPort byte

const (
	TestPortKeyboardClock TestPort = 1 << 0
	TestPortKeyboardData  TestPort = 1 << 1
	TestPortMouseData     TestPort = 1 << 2
	TestPortMouseClock    TestPort = 1 << 3

	testPortDefined TestPort = 0b0000_1111
)

func (p TestPort) Has(flag TestPort) bool { return p&flag == flag }

func testPortFromBits(b byte) TestPort { return TestPort(b) & testPortDefined }

// KeyboardLeds selects which keyboard indicator LEDs are lit.
type KeyboardLeds byte

const (
	LedScrollLock KeyboardLeds = 1 << 0
	LedNumLock    KeyboardLeds = 1 << 1
	LedCapsLock   KeyboardLeds = 1 << 2

	keyboardLedsDefined KeyboardLeds = 0b0000_0111
)

// MouseStatus is the first byte of the mouse status packet.
type MouseStatus byte

const (
	MouseStatusRightButton          MouseStatus = 1 << 0
	MouseStatusMiddleButton         MouseStatus = 1 << 1
	MouseStatusLeftButton           MouseStatus = 1 << 2
	MouseStatusScaling2To1          MouseStatus = 1 << 4
	MouseStatusDataReportingEnabled MouseStatus = 1 << 5
	MouseStatusRemoteModeEnabled    MouseStatus = 1 << 6

	mouseStatusDefined MouseStatus = 0b0111_0111
)

func (s MouseStatus) Has(flag MouseStatus) bool { return s&flag == flag }

func mouseStatusFromBits(b byte) MouseStatus { return MouseStatus(b) & mouseStatusDefined }

// MouseMovement is the flags byte of the mouse movement packet. The sign
// bits extend the 8-bit X/Y delta bytes to 9-bit two's-complement values.
type MouseMovement byte

const (
	MouseMovementLeftButton   MouseMovement = 1 << 0
	MouseMovementRightButton  MouseMovement = 1 << 1
	MouseMovementMiddleButton MouseMovement = 1 << 2
	MouseMovementXSign        MouseMovement = 1 << 4
	MouseMovementYSign        MouseMovement = 1 << 5
	MouseMovementXOverflow    MouseMovement = 1 << 6
	MouseMovementYOverflow    MouseMovement = 1 << 7

	mouseMovementDefined MouseMovement = 0b1111_0111
)

func (m MouseMovement) Has(flag MouseMovement) bool { return m&flag == flag }
