package ps2

import (
	"errors"
	"testing"
)

type portWrite struct {
	addr  uint16
	value byte
}

// fakePort is a scripted register port: bytes queued in pending are served
// from the data register in order, every write is recorded, and the status
// register is synthesized from the queue state. Setting inputFull makes
// the controller look permanently busy so writes time out.
type fakePort struct {
	pending   []byte
	writes    []portWrite
	inputFull bool
}

func (p *fakePort) ReadPort(addr uint16) byte {
	switch addr {
	case CommandRegister:
		var status Status
		if len(p.pending) > 0 {
			status |= StatusOutputFull
		}
		if p.inputFull {
			status |= StatusInputFull
		}
		return byte(status)
	case DataRegister:
		if len(p.pending) == 0 {
			return 0
		}
		value := p.pending[0]
		p.pending = p.pending[1:]
		return value
	default:
		return 0
	}
}

func (p *fakePort) WritePort(addr uint16, value byte) {
	p.writes = append(p.writes, portWrite{addr: addr, value: value})
}

// respond queues bytes for the driver to read.
func (p *fakePort) respond(bytes ...byte) {
	p.pending = append(p.pending, bytes...)
}

// dataWrites returns only the bytes written to the data register.
func (p *fakePort) dataWrites() []byte {
	var values []byte
	for _, w := range p.writes {
		if w.addr == DataRegister {
			values = append(values, w.value)
		}
	}
	return values
}

// newTestController returns a controller with a short poll bound so
// timeout paths finish quickly.
func newTestController() (*Controller, *fakePort) {
	port := &fakePort{}
	return NewControllerWithTimeout(port, 16), port
}

func TestReadStatusNeverFails(t *testing.T) {
	ctrl, port := newTestController()

	if status := ctrl.ReadStatus(); status != 0 {
		t.Fatalf("expected empty status, got 0x%02x", byte(status))
	}

	port.respond(0x42)
	if status := ctrl.ReadStatus(); !status.Has(StatusOutputFull) {
		t.Fatalf("expected output full, got 0x%02x", byte(status))
	}
	if len(port.pending) != 1 {
		t.Fatalf("status read must not consume the data byte")
	}
}

func TestReadDataTimeout(t *testing.T) {
	ctrl, _ := newTestController()

	if _, err := ctrl.ReadData(); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestWriteDataTimeout(t *testing.T) {
	ctrl, port := newTestController()
	port.inputFull = true

	if err := ctrl.WriteData(0x12); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if len(port.writes) != 0 {
		t.Fatalf("no byte must be written after a timeout, got %d writes", len(port.writes))
	}
}

func TestNonBlockingRead(t *testing.T) {
	ctrl, port := newTestController()
	ctrl.DisableBlockingRead()

	if _, err := ctrl.ReadData(); !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("expected ErrWouldBlock, got %v", err)
	}

	port.respond(0x9c)
	value, err := ctrl.ReadData()
	if err != nil {
		t.Fatalf("read with data pending failed: %v", err)
	}
	if value != 0x9c {
		t.Fatalf("expected 0x9c, got 0x%02x", value)
	}

	ctrl.EnableBlockingRead()
	if _, err := ctrl.ReadData(); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout after re-enabling blocking reads, got %v", err)
	}
}

func TestInternalRAMAddressMasking(t *testing.T) {
	for byteNumber := byte(0); byteNumber <= 32; byteNumber++ {
		ctrl, port := newTestController()
		port.respond(0x00)

		if _, err := ctrl.ReadInternalRAM(byteNumber); err != nil {
			t.Fatalf("read internal RAM byte %d failed: %v", byteNumber, err)
		}

		want := byte(commandReadInternalRAM) | byteNumber&0x1f
		if len(port.writes) != 1 || port.writes[0].addr != CommandRegister {
			t.Fatalf("byte %d: expected one command write, got %v", byteNumber, port.writes)
		}
		if got := port.writes[0].value; got != want {
			t.Fatalf("byte %d: expected opcode 0x%02x, got 0x%02x", byteNumber, want, got)
		}
	}
}

func TestWriteInternalRAMAddressMasking(t *testing.T) {
	for byteNumber := byte(0); byteNumber <= 32; byteNumber++ {
		ctrl, port := newTestController()

		if err := ctrl.WriteInternalRAM(byteNumber, 0x5a); err != nil {
			t.Fatalf("write internal RAM byte %d failed: %v", byteNumber, err)
		}

		want := byte(commandWriteInternalRAM) | byteNumber&0x1f
		if len(port.writes) != 2 {
			t.Fatalf("byte %d: expected opcode and data writes, got %v", byteNumber, port.writes)
		}
		if got := port.writes[0]; got.addr != CommandRegister || got.value != want {
			t.Fatalf("byte %d: expected opcode 0x%02x on the command register, got %v", byteNumber, want, got)
		}
		if got := port.writes[1]; got.addr != DataRegister || got.value != 0x5a {
			t.Fatalf("byte %d: expected data byte 0x5a, got %v", byteNumber, got)
		}
	}
}

func TestConfigRoundTrip(t *testing.T) {
	ctrl, port := newTestController()

	// Write all bits set; only the defined bits may reach the wire.
	if err := ctrl.WriteConfig(Config(0xff)); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	written := port.dataWrites()
	if len(written) != 1 || written[0] != byte(configDefined) {
		t.Fatalf("expected truncated config 0x%02x on the wire, got %v", byte(configDefined), written)
	}

	// Reading a config byte with undefined bits set must mask them off.
	port.respond(0xff)
	config, err := ctrl.ReadConfig()
	if err != nil {
		t.Fatalf("read config failed: %v", err)
	}
	if config != configDefined {
		t.Fatalf("expected config 0x%02x, got 0x%02x", byte(configDefined), byte(config))
	}
}

func TestControllerSelfTest(t *testing.T) {
	cases := []struct {
		name     string
		response byte
		pass     bool
	}{
		{"pass", 0x55, true},
		{"off by one", 0x54, false},
		{"zero", 0x00, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl, port := newTestController()
			port.respond(tc.response)

			err := ctrl.TestController()
			if tc.pass {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				return
			}

			var failed *TestFailedError
			if !errors.As(err, &failed) {
				t.Fatalf("expected TestFailedError, got %v", err)
			}
			if failed.Response != tc.response {
				t.Fatalf("expected failing byte 0x%02x, got 0x%02x", tc.response, failed.Response)
			}
		})
	}
}

func TestPortSelfTests(t *testing.T) {
	ctrl, port := newTestController()

	port.respond(0x00)
	if err := ctrl.TestKeyboard(); err != nil {
		t.Fatalf("keyboard port test failed: %v", err)
	}

	port.respond(0x01)
	var failed *TestFailedError
	if err := ctrl.TestMouse(); !errors.As(err, &failed) {
		t.Fatalf("expected TestFailedError, got %v", err)
	}
	if failed.Response != 0x01 {
		t.Fatalf("expected failing byte 0x01, got 0x%02x", failed.Response)
	}
}

func TestDiagnosticDump(t *testing.T) {
	ctrl, port := newTestController()
	var want [32]byte
	for i := range want {
		want[i] = byte(i) ^ 0xa5
		port.respond(want[i])
	}

	dump, err := ctrl.DiagnosticDump()
	if err != nil {
		t.Fatalf("diagnostic dump failed: %v", err)
	}
	if dump != want {
		t.Fatalf("dump mismatch: expected %v, got %v", want, dump)
	}
	if len(port.pending) != 0 {
		t.Fatalf("dump must consume exactly 32 bytes, %d left", len(port.pending))
	}
}

func TestDiagnosticDumpTimesOutMidstream(t *testing.T) {
	ctrl, port := newTestController()
	port.respond(0x01, 0x02, 0x03)

	if _, err := ctrl.DiagnosticDump(); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout after the queue drained, got %v", err)
	}
}

func TestWriteMouseRoutesThroughSelect(t *testing.T) {
	ctrl, port := newTestController()

	if err := ctrl.WriteMouse(0x12); err != nil {
		t.Fatalf("write mouse failed: %v", err)
	}

	want := []portWrite{
		{addr: CommandRegister, value: commandWriteMouse},
		{addr: DataRegister, value: 0x12},
	}
	if len(port.writes) != len(want) {
		t.Fatalf("expected %d writes, got %v", len(want), port.writes)
	}
	for i, w := range want {
		if port.writes[i] != w {
			t.Fatalf("write %d: expected %v, got %v", i, w, port.writes[i])
		}
	}
}

func TestPulseOutputLowNibble(t *testing.T) {
	cases := []struct {
		mask byte
		want byte
	}{
		{0x00, 0xf0},
		{0x0e, 0xfe}, // pulse line 0 (active low): CPU reset
		{0x0f, 0xff},
	}

	for _, tc := range cases {
		ctrl, port := newTestController()
		if err := ctrl.PulseOutputLowNibble(tc.mask); err != nil {
			t.Fatalf("pulse 0x%02x failed: %v", tc.mask, err)
		}
		if len(port.writes) != 1 {
			t.Fatalf("pulse 0x%02x: expected a single command write, got %v", tc.mask, port.writes)
		}
		if got := port.writes[0]; got.addr != CommandRegister || got.value != tc.want {
			t.Fatalf("pulse 0x%02x: expected opcode 0x%02x, got %v", tc.mask, tc.want, got)
		}
	}
}

func TestOutputPortReadWrite(t *testing.T) {
	ctrl, port := newTestController()

	port.respond(0x02)
	output, err := ctrl.ReadOutputPort()
	if err != nil {
		t.Fatalf("read output port failed: %v", err)
	}
	if !output.Has(OutputPortA20Gate) {
		t.Fatalf("expected A20 gate bit set, got 0x%02x", byte(output))
	}

	if err := ctrl.WriteOutputPort(output | OutputPortSystemReset); err != nil {
		t.Fatalf("write output port failed: %v", err)
	}
	written := port.dataWrites()
	if len(written) != 1 || written[0] != 0x03 {
		t.Fatalf("expected output byte 0x03, got %v", written)
	}
}

func TestBufferInjection(t *testing.T) {
	ctrl, port := newTestController()

	if err := ctrl.WriteKeyboardBuffer(0x1c); err != nil {
		t.Fatalf("keyboard buffer injection failed: %v", err)
	}
	if err := ctrl.WriteMouseBuffer(0x08); err != nil {
		t.Fatalf("mouse buffer injection failed: %v", err)
	}

	want := []portWrite{
		{addr: CommandRegister, value: commandWriteKeyboardBuffer},
		{addr: DataRegister, value: 0x1c},
		{addr: CommandRegister, value: commandWriteMouseBuffer},
		{addr: DataRegister, value: 0x08},
	}
	if len(port.writes) != len(want) {
		t.Fatalf("expected %d writes, got %v", len(want), port.writes)
	}
	for i, w := range want {
		if port.writes[i] != w {
			t.Fatalf("write %d: expected %v, got %v", i, w, port.writes[i])
		}
	}
}
