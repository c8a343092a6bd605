package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceAccess matches every *DeviceAccessError.
	ErrDeviceAccess = errors.New("capture: microphone unavailable")

	// ErrEmptyRecording is returned by Stop when no audio was captured.
	ErrEmptyRecording = errors.New("capture: no audio captured")

	// ErrEncodingInvariant means the encoded buffer failed its header check
	// and was discarded.
	ErrEncodingInvariant = errors.New("capture: encoded audio failed verification")

	// ErrSessionActive is returned by Start while a session is recording.
	ErrSessionActive = errors.New("capture: a recording is already in progress")

	// ErrSessionClosed is returned by Stop on a session that already stopped.
	ErrSessionClosed = errors.New("capture: session already stopped")
)

// DeviceAccessError reports a refused or missing input device.
type DeviceAccessError struct {
	Op  string
	Err error
}

func (e *DeviceAccessError) Error() string {
	return fmt.Sprintf("capture: %s: %v (grant microphone permission and try again)", e.Op, e.Err)
}

func (e *DeviceAccessError) Unwrap() error { return e.Err }

func (e *DeviceAccessError) Is(target error) bool { return target == ErrDeviceAccess }
