// ps2probe pokes at an i8042 keyboard controller, either the real one
// through /dev/port or a built-in emulation for trying the tool safely.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/tinyrange/ps2"
	"github.com/tinyrange/ps2/internal/emu"
	"github.com/tinyrange/ps2/portio"
	"golang.org/x/term"
)

// backend pairs a register port with lifecycle hooks. The /dev/port
// backend reports access failures through Err since register reads and
// writes have no error channel of their own.
type backend interface {
	ps2.RegisterPort
	Err() error
	Close() error
}

// emuBackend adapts the emulated controller to the backend interface.
type emuBackend struct {
	*emu.I8042
}

func (emuBackend) Err() error   { return nil }
func (emuBackend) Close() error { return nil }

func openBackend(config Config) (backend, error) {
	switch config.Backend {
	case "emu":
		return emuBackend{emu.NewI8042()}, nil
	default:
		port, err := portio.Open()
		if err != nil {
			return nil, err
		}
		return port, nil
	}
}

func runSelfTest(c *ps2.Controller) error {
	if err := c.TestController(); err != nil {
		return fmt.Errorf("controller self-test: %w", err)
	}
	fmt.Println("controller: pass")

	if err := c.TestKeyboard(); err != nil {
		fmt.Printf("keyboard port: %v\n", err)
	} else {
		fmt.Println("keyboard port: pass")
	}

	if err := c.TestMouse(); err != nil {
		fmt.Printf("mouse port: %v\n", err)
	} else {
		fmt.Println("mouse port: pass")
	}
	return nil
}

func runDump(c *ps2.Controller) error {
	dump, err := c.DiagnosticDump()
	if err != nil {
		return fmt.Errorf("diagnostic dump: %w", err)
	}
	for i, b := range dump {
		fmt.Printf("%02x ", b)
		if i%8 == 7 {
			fmt.Println()
		}
	}

	config, err := c.ReadConfig()
	if err != nil {
		return fmt.Errorf("read config byte: %w", err)
	}
	fmt.Printf("config byte: 0x%02x\n", byte(config))
	return nil
}

func runIdentify(c *ps2.Controller) error {
	kbd := c.Keyboard()
	if err := kbd.DisableScanning(); err != nil {
		return fmt.Errorf("disable scanning: %w", err)
	}
	defer func() {
		if err := kbd.EnableScanning(); err != nil {
			slog.Warn("re-enable scanning", "error", err)
		}
	}()

	kbdType, err := kbd.GetKeyboardType()
	if err != nil {
		return fmt.Errorf("identify keyboard: %w", err)
	}
	fmt.Printf("keyboard: %s\n", kbdType)

	mouseType, err := c.Mouse().GetMouseType()
	if err != nil {
		fmt.Printf("mouse: not responding (%v)\n", err)
		return nil
	}
	fmt.Printf("mouse: %s\n", mouseType)
	return nil
}

func runStatus(c *ps2.Controller) error {
	status := c.ReadStatus()
	fmt.Printf("status byte: 0x%02x\n", byte(status))
	fmt.Printf("  output full: %v\n", status.Has(ps2.StatusOutputFull))
	fmt.Printf("  input full:  %v\n", status.Has(ps2.StatusInputFull))
	fmt.Printf("  system flag: %v\n", status.Has(ps2.StatusSystemFlag))
	fmt.Printf("  key lock:    %v\n", status.Has(ps2.StatusKeyboardLock))

	report, err := c.Mouse().GetStatusPacket()
	if err != nil {
		fmt.Printf("mouse status: not responding (%v)\n", err)
		return nil
	}
	fmt.Printf("mouse status: 0x%02x resolution %d counts/mm sample rate %d/s\n",
		byte(report.Status), report.Resolution, report.SampleRate)
	return nil
}

// runMonitor prints scancodes as they arrive. With the emulated
// backend, bytes typed on the raw terminal are injected as make codes
// so the loop has something to show.
func runMonitor(c *ps2.Controller, b backend) error {
	stdin := int(os.Stdin.Fd())
	if !term.IsTerminal(stdin) {
		return fmt.Errorf("monitor mode needs a terminal on stdin")
	}

	oldState, err := term.MakeRaw(stdin)
	if err != nil {
		return fmt.Errorf("enable raw mode: %w", err)
	}
	defer term.Restore(stdin, oldState)

	fmt.Print("monitoring scancodes, press q to quit\r\n")

	// Poll without a timeout budget: an idle keyboard is not an error
	// here.
	c.DisableBlockingRead()

	keys := make(chan byte)
	go func() {
		var buf [1]byte
		for {
			if _, err := os.Stdin.Read(buf[:]); err != nil {
				close(keys)
				return
			}
			keys <- buf[0]
		}
	}()

	eb, emulated := b.(emuBackend)
	for {
		select {
		case key, ok := <-keys:
			if !ok || key == 'q' || key == 0x03 {
				return nil
			}
			if emulated {
				eb.Keyboard().PressKey(key)
			}
		default:
		}

		data, err := c.ReadData()
		if errors.Is(err, ps2.ErrWouldBlock) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read scancode: %w", err)
		}
		fmt.Printf("0x%02x\r\n", data)
	}
}

func run() error {
	configPath := flag.String("config", "ps2probe.yaml", "path to the YAML config file")
	backendFlag := flag.String("backend", "", "register port backend: devport or emu (overrides config)")
	timeout := flag.Int("timeout", 0, "status polls before giving up (overrides config)")
	nonBlocking := flag.Bool("nonblocking", false, "fail reads immediately when the output buffer is empty")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `ps2probe - poke at an i8042 keyboard controller

USAGE:
  ps2probe [flags] <mode>

MODES:
  selftest   Run the controller and port self-tests
  dump       Print the controller RAM and config byte
  identify   Identify the attached keyboard and mouse
  status     Print the status byte and mouse settings
  monitor    Print scancodes until q is pressed (raw terminal)

FLAGS:
  -config PATH   YAML config file (default: ps2probe.yaml, missing is fine)
  -backend NAME  devport for real hardware, emu for the built-in emulation
  -timeout N     Status polls before a read or write gives up
  -nonblocking   Fail reads immediately instead of polling

The devport backend reads /dev/port and needs root or CAP_SYS_RAWIO.
`)
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	mode := flag.Arg(0)

	config, err := LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *backendFlag != "" {
		config.Backend = *backendFlag
		if err := config.normalize(); err != nil {
			return err
		}
	}
	if *timeout > 0 {
		config.Timeout = *timeout
	}
	if *nonBlocking {
		config.NonBlocking = true
	}

	slog.Debug("opening backend", "backend", config.Backend, "timeout", config.Timeout)

	b, err := openBackend(config)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			slog.Warn("close backend", "error", err)
		}
	}()

	c := ps2.NewControllerWithTimeout(b, config.Timeout)
	if config.NonBlocking {
		c.DisableBlockingRead()
	}

	switch mode {
	case "selftest":
		err = runSelfTest(c)
	case "dump":
		err = runDump(c)
	case "identify":
		err = runIdentify(c)
	case "status":
		err = runStatus(c)
	case "monitor":
		err = runMonitor(c, b)
	default:
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		return err
	}

	if err := b.Err(); err != nil {
		return fmt.Errorf("register access: %w", err)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ps2probe: %v\n", err)
		os.Exit(1)
	}
}
