// Package model defines the domain types for the lotscan CLI.
//
// These are the value types shared between the scanning core, the hosts
// (TUI, HTTP shell, CLI commands) and the configuration layer: the kind of
// identifier being scanned, how input is ingested, how far duplicate checks
// reach, and the exit-code carrying CLIError.
package model

import (
	"fmt"
	"strings"
)

// IdentifierKind is the type of device identifier a station scans.
// The kind fixes the exact token length accepted by the scanner.
type IdentifierKind string

const (
	// KindSerial is the 11-digit device serial printed on the unit.
	KindSerial IdentifierKind = "serial"

	// KindIMEI is the 15-digit IMEI of the device's modem.
	KindIMEI IdentifierKind = "imei"
)

// String returns the string representation of IdentifierKind.
func (k IdentifierKind) String() string {
	return string(k)
}

// IsValid checks whether the IdentifierKind is one of the known kinds.
func (k IdentifierKind) IsValid() bool {
	switch k {
	case KindSerial, KindIMEI:
		return true
	default:
		return false
	}
}

// TokenLength returns the exact number of digits a token of this kind has.
// Unknown kinds return 0.
func (k IdentifierKind) TokenLength() int {
	switch k {
	case KindSerial:
		return 11
	case KindIMEI:
		return 15
	default:
		return 0
	}
}

// Label returns the operator-facing name of the kind ("Serial", "IMEI"),
// used in validation messages.
func (k IdentifierKind) Label() string {
	switch k {
	case KindIMEI:
		return "IMEI"
	default:
		return "Serial"
	}
}

// ParseIdentifierKind converts a string to an IdentifierKind.
func ParseIdentifierKind(s string) (IdentifierKind, error) {
	kind := IdentifierKind(strings.ToLower(s))
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid identifier kind: %q (valid: serial, imei)", s)
	}
	return kind, nil
}

// IngestMode selects how a submitted line is turned into tokens.
type IngestMode string

const (
	// ModeSingle accepts exactly one token per submission.
	ModeSingle IngestMode = "single"

	// ModePaste accepts a block of concatenated digits (for example the
	// payload of a master carton QR code), strips everything that is not a
	// digit and chunks the rest into tokens.
	ModePaste IngestMode = "paste"
)

// String returns the string representation of IngestMode.
func (m IngestMode) String() string {
	return string(m)
}

// IsValid checks whether the IngestMode is one of the known modes.
func (m IngestMode) IsValid() bool {
	return m == ModeSingle || m == ModePaste
}

// ParseIngestMode converts a string to an IngestMode.
func ParseIngestMode(s string) (IngestMode, error) {
	mode := IngestMode(strings.ToLower(s))
	if !mode.IsValid() {
		return "", fmt.Errorf("invalid ingest mode: %q (valid: single, paste)", s)
	}
	return mode, nil
}

// DuplicateScope controls how far the duplicate check reaches.
type DuplicateScope string

const (
	// ScopeLot rejects a token only if it is already in the active lot.
	// The same token may appear again in a later lot.
	ScopeLot DuplicateScope = "lot"

	// ScopeSession rejects a token that appears in any lot of the session.
	ScopeSession DuplicateScope = "session"
)

// String returns the string representation of DuplicateScope.
func (s DuplicateScope) String() string {
	return string(s)
}

// IsValid checks whether the DuplicateScope is one of the known scopes.
func (s DuplicateScope) IsValid() bool {
	return s == ScopeLot || s == ScopeSession
}

// ParseDuplicateScope converts a string to a DuplicateScope.
func ParseDuplicateScope(s string) (DuplicateScope, error) {
	scope := DuplicateScope(strings.ToLower(s))
	if !scope.IsValid() {
		return "", fmt.Errorf("invalid duplicate scope: %q (valid: lot, session)", s)
	}
	return scope, nil
}

// ExitCode defines the process exit codes of the CLI. Scripts driving the
// station (for example a batch export in a cron job) branch on these.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitConfigError indicates the configuration file is unreadable or
	// holds invalid values.
	ExitConfigError ExitCode = 2

	// ExitValidationError indicates a scanned token was rejected
	// (malformed, duplicate, or lot at capacity).
	ExitValidationError ExitCode = 3

	// ExitNothingToExport indicates an export was requested with no lot data.
	ExitNothingToExport ExitCode = 4

	// ExitPersistenceError indicates the generated artifact could not be saved.
	ExitPersistenceError ExitCode = 5

	// ExitAPIError indicates the inventory API rejected a request or could
	// not be reached.
	ExitAPIError ExitCode = 6

	// ExitNotSignedIn indicates a command needs a stored session and none exists.
	ExitNotSignedIn ExitCode = 7

	// ExitUserCancelled indicates the user quit an interactive screen
	// before completing the operation.
	ExitUserCancelled ExitCode = 8
)

// CLIError is an error that carries an exit code, so the CLI layer can
// translate domain errors into process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error returns the message, followed by the underlying error if present.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
