package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// BridgeConflict indicates the process is already bound to a different
	// runtime environment. Fatal and non-retryable: the binding cannot be
	// changed without restarting the host process.
	BridgeConflict ErrorCode = "BRIDGE_CONFLICT"
	// BridgeUnbound indicates an operation needed the runtime bridge before
	// any environment was bound
	BridgeUnbound ErrorCode = "BRIDGE_UNBOUND"
	// UnknownJurisdiction indicates the jurisdiction string could not be
	// resolved to a canonical key
	UnknownJurisdiction ErrorCode = "UNKNOWN_JURISDICTION"
	// UnknownSource indicates a source id not present in the registry
	UnknownSource ErrorCode = "UNKNOWN_SOURCE"
	// DiscoveryUnavailable indicates the remote universe could not be
	// enumerated; callers degrade to snapshot-only
	DiscoveryUnavailable ErrorCode = "DISCOVERY_UNAVAILABLE"
	// FetchFailed indicates the retrieval pipeline failed; callers degrade
	// to snapshot-only
	FetchFailed ErrorCode = "FETCH_FAILED"
	// SnapshotMissingColumn indicates persisted snapshot data violates the
	// canonical column contract
	SnapshotMissingColumn ErrorCode = "SNAPSHOT_MISSING_COLUMN"
	// InvalidArguments indicates a malformed or ambiguous request
	InvalidArguments ErrorCode = "INVALID_ARGUMENTS"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// RestartProcess suggests restarting the host process
	RestartProcess FixActionType = "restart-process"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// DownballotError represents an error with a stable code, a message naming
// the offending value, and suggested remediation steps
type DownballotError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new DownballotError with the default fixes for its code
func New(code ErrorCode, message string, cause error) *DownballotError {
	return &DownballotError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Error implements the error interface
func (e *DownballotError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DownballotError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *DownballotError) WithDetails(details interface{}) *DownballotError {
	e.Details = details
	return e
}

// WithFixes replaces the suggested fixes on the error
func (e *DownballotError) WithFixes(fixes ...FixAction) *DownballotError {
	e.SuggestedFixes = fixes
	return e
}

// CodeOf extracts the ErrorCode from an error chain, or InternalError if the
// chain contains no DownballotError
func CodeOf(err error) ErrorCode {
	var de *DownballotError
	if errors.As(err, &de) {
		return de.Code
	}
	return InternalError
}

// IsCode reports whether the error chain carries the given code
func IsCode(err error, code ErrorCode) bool {
	var de *DownballotError
	return errors.As(err, &de) && de.Code == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	BridgeConflict: {
		{
			Type:        RestartProcess,
			Description: "Restart the host process; the runtime binding cannot be changed in-place",
		},
	},
	BridgeUnbound: {
		{
			Type:        RunCommand,
			Command:     "downballot status",
			Safe:        true,
			Description: "Check which runtime environment is configured and whether it is ready",
		},
	},
	UnknownJurisdiction: {
		{
			Type:        RunCommand,
			Command:     "downballot sources jurisdictions <source>",
			Safe:        true,
			Description: "List the jurisdictions each source covers",
		},
	},
	UnknownSource: {
		{
			Type:        RunCommand,
			Command:     "downballot sources list",
			Safe:        true,
			Description: "List registered sources",
		},
	},
	DiscoveryUnavailable: {
		{
			Type:        RunCommand,
			Command:     "downballot status",
			Safe:        true,
			Description: "Check network and environment readiness, then retry",
		},
	},
	FetchFailed: {
		{
			Type:        RunCommand,
			Command:     "downballot status",
			Safe:        true,
			Description: "Check transport readiness; cached snapshot data was returned instead",
		},
	},
	SnapshotMissingColumn: {
		{
			Type:        RunCommand,
			Command:     "downballot results --refresh",
			Safe:        false,
			Description: "Rebuild the snapshot from the remote source",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
