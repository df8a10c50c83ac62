// ABOUTME: Capture error taxonomy and classification
// ABOUTME: Maps backend failures to kinds with user-facing guidance
package capture

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind distinguishes capture failures that need different user action
type ErrorKind int

const (
	Unknown ErrorKind = iota
	PermissionDenied
	DeviceNotFound
	DeviceBusy
	ConstraintUnsatisfiable
)

// Sentinels a Source may wrap to report a specific kind directly
var (
	ErrPermissionDenied      = errors.New("microphone permission denied")
	ErrDeviceNotFound        = errors.New("no capture device found")
	ErrDeviceBusy            = errors.New("capture device busy")
	ErrUnsupportedConstraint = errors.New("unsupported capture constraint")
)

// ErrStopped is returned by Start when Stop was called while opening
var ErrStopped = errors.New("capture stopped during start")

func (k ErrorKind) String() string {
	switch k {
	case PermissionDenied:
		return "PermissionDenied"
	case DeviceNotFound:
		return "DeviceNotFound"
	case DeviceBusy:
		return "DeviceBusy"
	case ConstraintUnsatisfiable:
		return "ConstraintUnsatisfiable"
	default:
		return "Unknown"
	}
}

// DeviceError is returned by Capture.Start when the source cannot be opened
type DeviceError struct {
	Kind   ErrorKind
	Source string
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("capture %s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// UserMessage returns actionable guidance for the error kind
func (e *DeviceError) UserMessage() string {
	switch e.Kind {
	case PermissionDenied:
		return "Microphone access was denied. Allow microphone access for this terminal in your system privacy settings and start recording again."
	case DeviceNotFound:
		return "No microphone was found. Connect an input device and start recording again."
	case DeviceBusy:
		return "The microphone is in use by another application. Close it and start recording again."
	case ConstraintUnsatisfiable:
		return "The microphone does not support the requested settings. Try a different device or sample rate."
	default:
		return "The microphone could not be started. Check the log for details and try again."
	}
}

// Classify maps a backend error to an ErrorKind.
// Wrapped sentinels win; otherwise the message text is inspected since
// native audio libraries report failures as opaque result strings.
func Classify(err error) ErrorKind {
	if err == nil {
		return Unknown
	}

	var derr *DeviceError
	switch {
	case errors.As(err, &derr):
		return derr.Kind
	case errors.Is(err, ErrPermissionDenied):
		return PermissionDenied
	case errors.Is(err, ErrDeviceNotFound):
		return DeviceNotFound
	case errors.Is(err, ErrDeviceBusy):
		return DeviceBusy
	case errors.Is(err, ErrUnsupportedConstraint):
		return ConstraintUnsatisfiable
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "denied", "permission", "not allowed"):
		return PermissionDenied
	case containsAny(msg, "no device", "device not found", "does not exist", "no such", "no backend"):
		return DeviceNotFound
	case containsAny(msg, "busy", "in use", "unavailable"):
		return DeviceBusy
	case containsAny(msg, "not supported", "invalid sample rate", "invalid device", "unsupported", "format not"):
		return ConstraintUnsatisfiable
	}
	return Unknown
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
