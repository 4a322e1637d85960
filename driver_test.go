package ps2_test

import (
	"testing"

	"github.com/tinyrange/ps2"
	"github.com/tinyrange/ps2/internal/emu"
)

// newEmulatedController pairs the driver with the emulated 8042 so the
// full command sequences run end to end.
func newEmulatedController() (*ps2.Controller, *emu.I8042) {
	dev := emu.NewI8042()
	return ps2.NewController(dev), dev
}

func TestEmulatedSelfTests(t *testing.T) {
	c, _ := newEmulatedController()

	if err := c.TestController(); err != nil {
		t.Fatalf("controller self-test: %v", err)
	}
	if err := c.TestKeyboard(); err != nil {
		t.Fatalf("keyboard port test: %v", err)
	}
	if err := c.TestMouse(); err != nil {
		t.Fatalf("mouse port test: %v", err)
	}
}

func TestEmulatedConfigRoundTrip(t *testing.T) {
	c, _ := newEmulatedController()

	config, err := c.ReadConfig()
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !config.Has(ps2.ConfigSetSystemFlag) {
		t.Fatalf("expected system flag after power-on, got 0x%02x", byte(config))
	}

	if err := c.WriteConfig(config | ps2.ConfigDisableMouse); err != nil {
		t.Fatalf("write config: %v", err)
	}
	config, err = c.ReadConfig()
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !config.Has(ps2.ConfigDisableMouse) {
		t.Fatalf("expected mouse disable bit, got 0x%02x", byte(config))
	}
}

func TestEmulatedDiagnosticDump(t *testing.T) {
	c, _ := newEmulatedController()

	if err := c.WriteInternalRAM(5, 0x77); err != nil {
		t.Fatalf("write internal RAM: %v", err)
	}

	dump, err := c.DiagnosticDump()
	if err != nil {
		t.Fatalf("diagnostic dump: %v", err)
	}
	if dump[5] != 0x77 {
		t.Fatalf("expected 0x77 at RAM 5, got 0x%02x", dump[5])
	}
}

func TestEmulatedKeyboardIdentify(t *testing.T) {
	c, _ := newEmulatedController()

	kbdType, err := c.Keyboard().GetKeyboardType()
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	if kbdType.Kind != ps2.KeyboardMF2 {
		t.Fatalf("expected MF2 keyboard, got %s", kbdType)
	}
}

func TestEmulatedKeyboardSettings(t *testing.T) {
	c, dev := newEmulatedController()
	kbd := c.Keyboard()

	if err := kbd.SetLeds(ps2.LedCapsLock | ps2.LedNumLock); err != nil {
		t.Fatalf("set leds: %v", err)
	}
	if got := dev.Keyboard().Leds(); got != 0x06 {
		t.Fatalf("expected leds 0x06, got 0x%02x", got)
	}

	if err := kbd.SetScancodeSet(1); err != nil {
		t.Fatalf("set scancode set: %v", err)
	}
	set, err := kbd.GetScancodeSet()
	if err != nil {
		t.Fatalf("get scancode set: %v", err)
	}
	if set != 1 {
		t.Fatalf("expected scancode set 1, got %d", set)
	}

	// 16.0 Hz falls between two encodable rates and rounds up.
	if err := kbd.SetTypematicRateAndDelay(16.0, 500); err != nil {
		t.Fatalf("set typematic: %v", err)
	}
	if got := dev.Keyboard().Typematic(); got != 0x30 {
		t.Fatalf("expected typematic byte 0x30, got 0x%02x", got)
	}
}

func TestEmulatedScancodeFlow(t *testing.T) {
	c, dev := newEmulatedController()

	dev.Keyboard().PressKey(0x1c)

	data, err := c.ReadData()
	if err != nil {
		t.Fatalf("read scancode: %v", err)
	}
	if data != 0x1c {
		t.Fatalf("expected scancode 0x1c, got 0x%02x", data)
	}

	c.DisableBlockingRead()
	if _, err := c.ReadData(); err != ps2.ErrWouldBlock {
		t.Fatalf("expected ErrWouldBlock on empty buffer, got %v", err)
	}
}

func TestEmulatedKeyboardReset(t *testing.T) {
	c, _ := newEmulatedController()

	if err := c.Keyboard().ResetAndSelfTest(); err != nil {
		t.Fatalf("keyboard reset: %v", err)
	}
}

func TestEmulatedMouseSettings(t *testing.T) {
	c, dev := newEmulatedController()
	mouse := c.Mouse()

	if err := mouse.SetResolution(4); err != nil {
		t.Fatalf("set resolution: %v", err)
	}
	if got := dev.Mouse().ResolutionIndex(); got != 2 {
		t.Fatalf("expected resolution index 2, got %d", got)
	}

	if err := mouse.SetSampleRate(40); err != nil {
		t.Fatalf("set sample rate: %v", err)
	}
	if got := dev.Mouse().SampleRate(); got != 40 {
		t.Fatalf("expected sample rate 40, got %d", got)
	}

	// The wire carries the resolution index; the report carries the
	// decoded counts/mm.
	report, err := mouse.GetStatusPacket()
	if err != nil {
		t.Fatalf("status packet: %v", err)
	}
	if report.Resolution != 4 || report.SampleRate != 40 {
		t.Fatalf("expected 4 counts/mm at rate 40, got %d and %d",
			report.Resolution, report.SampleRate)
	}
}

func TestEmulatedMouseMovement(t *testing.T) {
	c, dev := newEmulatedController()

	dev.Mouse().Move(-3, 7, 0x01)

	packet, err := c.Mouse().RequestDataPacket()
	if err != nil {
		t.Fatalf("request data packet: %v", err)
	}
	if packet.X != -3 || packet.Y != 7 {
		t.Fatalf("expected movement (-3, 7), got (%d, %d)", packet.X, packet.Y)
	}
	if !packet.Flags.Has(ps2.MouseMovementLeftButton) {
		t.Fatalf("expected left button flag, got 0x%02x", byte(packet.Flags))
	}
}

func TestEmulatedMouseReset(t *testing.T) {
	c, _ := newEmulatedController()

	if err := c.Mouse().ResetAndSelfTest(); err != nil {
		t.Fatalf("mouse reset: %v", err)
	}

	mouseType, err := c.Mouse().GetMouseType()
	if err != nil {
		t.Fatalf("get mouse type: %v", err)
	}
	if mouseType != ps2.MouseStandard {
		t.Fatalf("expected standard mouse, got %s", mouseType)
	}
}

func TestEmulatedOutputPortPulse(t *testing.T) {
	c, dev := newEmulatedController()

	if err := c.PulseOutputLowNibble(0x0e); err != nil {
		t.Fatalf("pulse: %v", err)
	}
	if !dev.ResetPulsed() {
		t.Fatalf("expected reset line pulse for mask 0x0e")
	}
}
