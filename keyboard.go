package ps2

import (
	"errors"
	"fmt"
	"math"
)

// Keyboard command opcodes, sent through the plain data write path. The
// range overlaps the mouse opcodes; only the routing path disambiguates.
const (
	keyboardCommandSetLeds                     = 0xed
	keyboardCommandEcho                        = 0xee
	keyboardCommandGetOrSetScancodeSet         = 0xf0
	keyboardCommandIdentify                    = 0xf2
	keyboardCommandSetTypematicRateAndDelay    = 0xf3
	keyboardCommandEnableScanning              = 0xf4
	keyboardCommandDisableScanning             = 0xf5
	keyboardCommandSetDefaults                 = 0xf6
	keyboardCommandSetAllKeysTypematic         = 0xf7
	keyboardCommandSetAllKeysMakeBreak         = 0xf8
	keyboardCommandSetAllKeysMakeOnly          = 0xf9
	keyboardCommandSetAllKeysTypematicMakeBrk  = 0xfa
	keyboardCommandSetKeyTypematic             = 0xfb
	keyboardCommandSetKeyMakeBreak             = 0xfc
	keyboardCommandSetKeyMakeOnly              = 0xfd
	keyboardCommandResendLastByte              = 0xfe
	keyboardCommandResetAndSelfTest            = 0xff
)

// typematicDelays are the valid initial repeat delays in milliseconds. The
// packed configuration byte carries the index, shifted into bits 5-6.
var typematicDelays = [4]uint16{250, 500, 750, 1000}

const (
	typematicRateMask       = 0x1f
	typematicDelayShift     = 5
	typematicMinRateHz      = 2.0
	typematicMaxRateHz      = 30.0
	typematicRateStepHz     = 28.0 / 31.0
)

// Keyboard issues keyboard commands through a Controller. Apart from real
// keyboards this drives any PS/2 device that acts like one, such as
// barcode scanners and card readers.
//
// Each operation holds the controller for the whole command/acknowledgment
// sequence so that no other device conversation can interleave bytes on
// the shared data register.
type Keyboard struct {
	c *Controller
}

func (k *Keyboard) checkResponseLocked() error {
	response, err := k.c.readDataLocked()
	if err != nil {
		return fmt.Errorf("keyboard: %w", err)
	}
	switch response {
	case responseAck:
		return nil
	case responseResend:
		return ErrResend
	case responseBufferOverrun:
		return ErrBufferOverrun
	case responseKeyDetection:
		return ErrKeyDetection
	default:
		return &InvalidResponseError{Byte: response}
	}
}

func (k *Keyboard) commandLocked(command byte) error {
	if err := k.c.writeDataLocked(command); err != nil {
		return fmt.Errorf("keyboard: %w", err)
	}
	return k.checkResponseLocked()
}

func (k *Keyboard) commandWithDataLocked(command, data byte) error {
	if err := k.commandLocked(command); err != nil {
		return err
	}
	if err := k.c.writeDataLocked(data); err != nil {
		return fmt.Errorf("keyboard: %w", err)
	}
	return k.checkResponseLocked()
}

// SetLeds sets the state of the keyboard indicator LEDs.
func (k *Keyboard) SetLeds(leds KeyboardLeds) error {
	k.c.mu.Lock()
	defer k.c.mu.Unlock()
	return k.commandWithDataLocked(keyboardCommandSetLeds, byte(leds&keyboardLedsDefined))
}

// Echo runs the diagnostic echo command. The keyboard answers 0xee instead
// of the usual acknowledge.
func (k *Keyboard) Echo() error {
	k.c.mu.Lock()
	defer k.c.mu.Unlock()
	if err := k.c.writeDataLocked(keyboardCommandEcho); err != nil {
		return fmt.Errorf("keyboard: %w", err)
	}
	response, err := k.c.readDataLocked()
	if err != nil {
		return fmt.Errorf("keyboard: %w", err)
	}
	switch response {
	case responseEcho:
		return nil
	case responseResend:
		return ErrResend
	default:
		return &InvalidResponseError{Byte: response}
	}
}

// GetScancodeSet returns the number of the active scancode set (1, 2
// or 3). The set number arrives as a data byte after the acknowledgment,
// not as a second handshake byte.
func (k *Keyboard) GetScancodeSet() (byte, error) {
	k.c.mu.Lock()
	defer k.c.mu.Unlock()
	if err := k.commandWithDataLocked(keyboardCommandGetOrSetScancodeSet, 0); err != nil {
		return 0, err
	}
	set, err := k.c.readDataLocked()
	if err != nil {
		return 0, fmt.Errorf("keyboard: %w", err)
	}
	return set, nil
}

// SetScancodeSet selects scancode set 1, 2 or 3.
func (k *Keyboard) SetScancodeSet(scancodeSet byte) error {
	k.c.mu.Lock()
	defer k.c.mu.Unlock()
	return k.commandWithDataLocked(keyboardCommandGetOrSetScancodeSet, scancodeSet)
}

// GetKeyboardType identifies the attached keyboard. The identify response
// is variable-length: XT-class keyboards reject the command outright, AT
// keyboards with translation acknowledge but send no identification bytes,
// and everything newer sends a two-byte identifier looked up in a fixed
// table.
func (k *Keyboard) GetKeyboardType() (KeyboardType, error) {
	k.c.mu.Lock()
	defer k.c.mu.Unlock()

	switch err := k.commandLocked(keyboardCommandIdentify); {
	case err == nil:
	case errors.Is(err, ErrResend):
		// XT keyboards never acknowledge the identify command.
		return KeyboardType{Kind: KeyboardXT}, nil
	default:
		return KeyboardType{}, err
	}

	first, err := k.c.readDataLocked()
	if errors.Is(err, ErrTimeout) {
		// A missing first byte is itself the answer: AT keyboards with
		// translation acknowledge identify but send nothing further.
		return KeyboardType{Kind: KeyboardATWithTranslation}, nil
	} else if err != nil {
		return KeyboardType{}, fmt.Errorf("keyboard: %w", err)
	}

	second, err := k.c.readDataLocked()
	if err != nil {
		return KeyboardType{}, fmt.Errorf("keyboard: %w", err)
	}
	return keyboardTypeFromID(first, second), nil
}

// SetTypematicRateAndDelay configures the key repeat rate in Hz (2.0 to
// 30.0) and the initial delay in milliseconds (250, 500, 750 or 1000).
// Invalid parameters are rejected before any byte is sent to the device.
func (k *Keyboard) SetTypematicRateAndDelay(rateHz float64, delayMS uint16) error {
	if rateHz < typematicMinRateHz || rateHz > typematicMaxRateHz {
		return &InvalidRateError{Rate: rateHz}
	}
	delayIndex := -1
	for i, delay := range typematicDelays {
		if delay == delayMS {
			delayIndex = i
			break
		}
	}
	if delayIndex < 0 {
		return &InvalidDelayError{Delay: delayMS}
	}

	// 30 Hz encodes as 0 and each step down subtracts 28/31 Hz, giving
	// 2 Hz at the maximum encoding of 31.
	scaled := (typematicMaxRateHz - rateHz) / typematicRateStepHz
	rateBits := byte(math.Round(scaled)) & typematicRateMask
	config := rateBits | byte(delayIndex)<<typematicDelayShift

	k.c.mu.Lock()
	defer k.c.mu.Unlock()
	return k.commandWithDataLocked(keyboardCommandSetTypematicRateAndDelay, config)
}

// EnableScanning clears the data buffer and the last typematic key, then
// enables scancode reporting.
func (k *Keyboard) EnableScanning() error {
	k.c.mu.Lock()
	defer k.c.mu.Unlock()
	return k.commandLocked(keyboardCommandEnableScanning)
}

// DisableScanning resets the keyboard to its power-on state and disables
// scancode reporting.
func (k *Keyboard) DisableScanning() error {
	k.c.mu.Lock()
	defer k.c.mu.Unlock()
	return k.commandLocked(keyboardCommandDisableScanning)
}

// SetDefaults restores all default key settings and clears the data
// buffer.
func (k *Keyboard) SetDefaults() error {
	k.c.mu.Lock()
	defer k.c.mu.Unlock()
	return k.commandLocked(keyboardCommandSetDefaults)
}

// SetAllKeysTypematic makes every key repeat-only. Effective only under
// scancode set 3.
func (k *Keyboard) SetAllKeysTypematic() error {
	k.c.mu.Lock()
	defer k.c.mu.Unlock()
	return k.commandLocked(keyboardCommandSetAllKeysTypematic)
}

// SetAllKeysMakeBreak makes every key report make and break codes only.
// Effective only under scancode set 3.
func (k *Keyboard) SetAllKeysMakeBreak() error {
	k.c.mu.Lock()
	defer k.c.mu.Unlock()
	return k.commandLocked(keyboardCommandSetAllKeysMakeBreak)
}

// SetAllKeysMakeOnly makes every key report make codes only. Effective
// only under scancode set 3.
func (k *Keyboard) SetAllKeysMakeOnly() error {
	k.c.mu.Lock()
	defer k.c.mu.Unlock()
	return k.commandLocked(keyboardCommandSetAllKeysMakeOnly)
}

// SetAllKeysTypematicMakeBreak makes every key typematic with make and
// break codes. Effective only under scancode set 3.
func (k *Keyboard) SetAllKeysTypematicMakeBreak() error {
	k.c.mu.Lock()
	defer k.c.mu.Unlock()
	return k.commandLocked(keyboardCommandSetAllKeysTypematicMakeBrk)
}

// SetKeyTypematic makes a single key repeat-only. Effective only under
// scancode set 3.
func (k *Keyboard) SetKeyTypematic(scancode byte) error {
	k.c.mu.Lock()
	defer k.c.mu.Unlock()
	return k.commandWithDataLocked(keyboardCommandSetKeyTypematic, scancode)
}

// SetKeyMakeBreak makes a single key report make and break codes only.
// Effective only under scancode set 3.
func (k *Keyboard) SetKeyMakeBreak(scancode byte) error {
	k.c.mu.Lock()
	defer k.c.mu.Unlock()
	return k.commandWithDataLocked(keyboardCommandSetKeyMakeBreak, scancode)
}

// SetKeyMakeOnly makes a single key report make codes only. Effective only
// under scancode set 3.
func (k *Keyboard) SetKeyMakeOnly(scancode byte) error {
	k.c.mu.Lock()
	defer k.c.mu.Unlock()
	return k.commandWithDataLocked(keyboardCommandSetKeyMakeOnly, scancode)
}

// ResendLastByte asks the keyboard to retransmit the previous byte and
// returns it. A resend response here is itself an error: the device cannot
// resend the resend.
func (k *Keyboard) ResendLastByte() (byte, error) {
	k.c.mu.Lock()
	defer k.c.mu.Unlock()
	if err := k.c.writeDataLocked(keyboardCommandResendLastByte); err != nil {
		return 0, fmt.Errorf("keyboard: %w", err)
	}
	response, err := k.c.readDataLocked()
	if err != nil {
		return 0, fmt.Errorf("keyboard: %w", err)
	}
	if response == responseResend {
		return 0, ErrResend
	}
	return response, nil
}

// ResetAndSelfTest resets the keyboard and runs its basic assurance test.
func (k *Keyboard) ResetAndSelfTest() error {
	k.c.mu.Lock()
	defer k.c.mu.Unlock()
	if err := k.commandLocked(keyboardCommandResetAndSelfTest); err != nil {
		return err
	}
	result, err := k.c.readDataLocked()
	if err != nil {
		return fmt.Errorf("keyboard: %w", err)
	}
	switch result {
	case responseSelfTestPassed:
		return nil
	case responseSelfTestFailed:
		return ErrSelfTestFailed
	case responseResend:
		return ErrResend
	default:
		return &InvalidResponseError{Byte: result}
	}
}
