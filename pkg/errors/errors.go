// Unified error handling for the Marlin host migration
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package errors

import (
	"fmt"
)

// ErrorCode represents the category of error
type ErrorCode string

const (
	// Host protocol faults (recoverable via a resend cycle)
	ErrProtoLineNumber ErrorCode = "PROTO_LINE_NUMBER"
	ErrProtoChecksum   ErrorCode = "PROTO_CHECKSUM"
	ErrProtoNoChecksum ErrorCode = "PROTO_NO_CHECKSUM"

	// Input faults
	ErrInputLineTooLong ErrorCode = "INPUT_LINE_TOO_LONG"

	// Queue conditions
	ErrQueueFull       ErrorCode = "QUEUE_FULL"
	ErrInjectTruncated ErrorCode = "INJECT_TRUNCATED"

	// Transport and media errors
	ErrTransport ErrorCode = "TRANSPORT"
	ErrMedia     ErrorCode = "MEDIA"

	// Configuration errors
	ErrConfigSection    ErrorCode = "CONFIG_SECTION"
	ErrConfigOption     ErrorCode = "CONFIG_OPTION"
	ErrConfigValidation ErrorCode = "CONFIG_VALIDATION"
)

// HostError is the unified error type for the host system
type HostError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Port is the originating input port, or -1 when not port-specific
	Port int

	// Err wraps the underlying error
	Err error
}

// Error implements the error interface
func (e *HostError) Error() string {
	if e.Port >= 0 {
		return fmt.Sprintf("[%s] port %d: %s", e.Code, e.Port, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *HostError) Unwrap() error {
	return e.Err
}

// SetPort records the originating port
func (e *HostError) SetPort(port int) *HostError {
	e.Port = port
	return e
}

// New creates a new HostError
func New(code ErrorCode, message string) *HostError {
	return &HostError{Code: code, Message: message, Port: -1}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *HostError {
	return &HostError{Code: code, Message: message, Port: -1, Err: err}
}

// Protocol faults

// LineNumberError reports a non-sequential host line number.
// The message text mirrors the firmware's serial error strings so
// existing host software recognizes it.
func LineNumberError(port int, lastN int64) *HostError {
	return New(ErrProtoLineNumber,
		fmt.Sprintf("Line Number is not Last Line Number+1, Last Line: %d", lastN)).
		SetPort(port)
}

// ChecksumError reports a checksum validation failure
func ChecksumError(port int, lastN int64) *HostError {
	return New(ErrProtoChecksum,
		fmt.Sprintf("checksum mismatch, Last Line: %d", lastN)).
		SetPort(port)
}

// NoChecksumError reports a numbered line that arrived without a checksum
func NoChecksumError(port int, lastN int64) *HostError {
	return New(ErrProtoNoChecksum,
		fmt.Sprintf("No Checksum with line number, Last Line: %d", lastN)).
		SetPort(port)
}

// Input faults

// LineTooLongError reports a command line exceeding the accumulation buffer
func LineTooLongError(port, maxSize int) *HostError {
	return New(ErrInputLineTooLong,
		fmt.Sprintf("Line exceeds maximum length (%d)", maxSize)).
		SetPort(port)
}

// Queue conditions

// QueueFullError reports a rejected enqueue under backpressure
func QueueFullError() *HostError {
	return New(ErrQueueFull, "command ring buffer full")
}

// InjectTruncatedError reports that an injected command burst was cut to
// the runtime channel's capacity
func InjectTruncatedError(capacity int) *HostError {
	return New(ErrInjectTruncated,
		fmt.Sprintf("injected commands truncated to %d bytes", capacity))
}

// Transport and media

// TransportError wraps a transport read/write failure
func TransportError(port int, op string, err error) *HostError {
	return Wrap(err, ErrTransport, fmt.Sprintf("%s failed", op)).SetPort(port)
}

// MediaError wraps an offline-media failure
func MediaError(op string, err error) *HostError {
	return Wrap(err, ErrMedia, fmt.Sprintf("%s failed", op))
}

// Configuration errors

// ConfigSectionError creates an error for missing config section
func ConfigSectionError(section string) *HostError {
	return New(ErrConfigSection, fmt.Sprintf("section '%s' not found", section))
}

// ConfigOptionError creates an error for missing or invalid config option
func ConfigOptionError(section, option string) *HostError {
	return New(ErrConfigOption, fmt.Sprintf("option '%s' not found in section '%s'", option, section))
}

// ConfigValidationError creates an error for config validation failure
func ConfigValidationError(section, option, reason string) *HostError {
	return New(ErrConfigValidation, fmt.Sprintf("option '%s' in section '%s': %s", option, section, reason))
}

// Is checks if error matches given error code
func Is(err error, code ErrorCode) bool {
	if hostErr, ok := err.(*HostError); ok {
		return hostErr.Code == code
	}
	return false
}

// IsProtocol checks if error is a host protocol fault, which a port
// recovers from via a resend cycle
func IsProtocol(err error) bool {
	return Is(err, ErrProtoLineNumber) ||
		Is(err, ErrProtoChecksum) ||
		Is(err, ErrProtoNoChecksum) ||
		Is(err, ErrInputLineTooLong)
}

// PortOf returns the originating port of an error, or -1
func PortOf(err error) int {
	if hostErr, ok := err.(*HostError); ok {
		return hostErr.Port
	}
	return -1
}
