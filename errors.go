package ps2

import (
	"errors"
	"fmt"
)

// Transport-level failures returned by the Controller.
var (
	// ErrTimeout means the bounded status-register poll was exhausted
	// before the controller became ready. It is not retried automatically.
	ErrTimeout = errors.New("timeout waiting for controller")
	// ErrWouldBlock is returned by reads in non-blocking mode when no data
	// is ready.
	ErrWouldBlock = errors.New("no data ready")
)

// Protocol-level failures returned by the Keyboard and Mouse layers. Any
// underlying transport failure is wrapped, never replaced, so errors.Is
// against ErrTimeout and ErrWouldBlock still works on device errors.
var (
	// ErrResend means the device asked for the last byte to be sent again.
	// The driver surfaces this instead of retrying; use the explicit
	// resend operations if retransmission is wanted.
	ErrResend = errors.New("device requested resend")
	// ErrSelfTestFailed means a device reset reported a failed self-test.
	ErrSelfTestFailed = errors.New("device self-test failed")
	// ErrBufferOverrun means the device's internal buffer overflowed.
	ErrBufferOverrun = errors.New("device buffer overrun")
	// ErrKeyDetection means the keyboard reported a key detection error.
	ErrKeyDetection = errors.New("key detection error")
)

// TestFailedError is returned by the controller self-test commands when the
// response byte is not the expected pass value.
type TestFailedError struct {
	Response byte
}

func (e *TestFailedError) Error() string {
	return fmt.Sprintf("self-test failed with response 0x%02x", e.Response)
}

// InvalidResponseError is returned when a handshake byte is expected and the
// device sends a byte outside the reserved response set.
type InvalidResponseError struct {
	Byte byte
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid response byte 0x%02x", e.Byte)
}

// InvalidRateError rejects a typematic repeat rate outside [2, 30] Hz.
type InvalidRateError struct {
	Rate float64
}

func (e *InvalidRateError) Error() string {
	return fmt.Sprintf("invalid typematic rate %g Hz, want 2.0 to 30.0", e.Rate)
}

// InvalidDelayError rejects a typematic delay that is not one of 250, 500,
// 750 or 1000 ms.
type InvalidDelayError struct {
	Delay uint16
}

func (e *InvalidDelayError) Error() string {
	return fmt.Sprintf("invalid typematic delay %d ms, want 250, 500, 750 or 1000", e.Delay)
}

// InvalidResolutionError rejects a mouse resolution that is not 1, 2, 4 or 8
// counts per millimeter. It is also returned when a status packet carries an
// out-of-table resolution index, in which case Resolution holds the raw
// index byte.
type InvalidResolutionError struct {
	Resolution byte
}

func (e *InvalidResolutionError) Error() string {
	return fmt.Sprintf("mouse resolution byte 0x%02x is outside the 1, 2, 4, 8 counts/mm table", e.Resolution)
}

// InvalidSampleRateError rejects a mouse sample rate outside the standard
// set of 10, 20, 40, 60, 80, 100 and 200 samples per second. It is also
// returned when a status packet carries an out-of-table sample rate byte.
type InvalidSampleRateError struct {
	Rate byte
}

func (e *InvalidSampleRateError) Error() string {
	return fmt.Sprintf("invalid mouse sample rate %d, want 10, 20, 40, 60, 80, 100 or 200", e.Rate)
}
