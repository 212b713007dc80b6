package errors

import "strings"

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	ErrCodeInternal       ErrorCode = "COMMON_001"
	ErrCodeBadRequest     ErrorCode = "COMMON_002"
	ErrCodeNotFound       ErrorCode = "COMMON_003"
	ErrCodeConflict       ErrorCode = "COMMON_004"
	ErrCodeTimeout        ErrorCode = "COMMON_005"
	ErrCodeValidation     ErrorCode = "COMMON_006"
	ErrCodeSerialization  ErrorCode = "COMMON_007"
	ErrCodeCacheError     ErrorCode = "COMMON_008"
	ErrCodeStorageError   ErrorCode = "COMMON_009"
	ErrCodeNotImplemented ErrorCode = "COMMON_010"
)

// Script module error codes (Dragon script construction and loading).
const (
	ErrCodeScriptInvalidWeight      ErrorCode = "SCRIPT_001"
	ErrCodeScriptBlockOutOfRange    ErrorCode = "SCRIPT_002"
	ErrCodeScriptInvalidMolFormat   ErrorCode = "SCRIPT_003"
	ErrCodeScriptInvalidMolInput    ErrorCode = "SCRIPT_004"
	ErrCodeScriptVersionUnsupported ErrorCode = "SCRIPT_005"
	ErrCodeScriptMissingSections    ErrorCode = "SCRIPT_006"
	ErrCodeScriptParseFailed        ErrorCode = "SCRIPT_007"
	ErrCodeScriptNotBuilt           ErrorCode = "SCRIPT_008"
	ErrCodeScriptWriteFailed        ErrorCode = "SCRIPT_009"
)

// Process module error codes (external Dragon shell invocation).
const (
	ErrCodeProcessLaunchFailed ErrorCode = "PROC_001"
	ErrCodeProcessWaitFailed   ErrorCode = "PROC_002"
)

// Dataset module error codes (table read/merge/split utilities).
const (
	ErrCodeTableReadFailed    ErrorCode = "DATA_001"
	ErrCodeTableWriteFailed   ErrorCode = "DATA_002"
	ErrCodeTableShapeMismatch ErrorCode = "DATA_003"
	ErrCodeTableBadSplit      ErrorCode = "DATA_004"
)

// Job module error codes (descriptor calculation jobs).
const (
	ErrCodeJobNotFound      ErrorCode = "JOB_001"
	ErrCodeJobNotReady      ErrorCode = "JOB_002"
	ErrCodeJobStoreFailed   ErrorCode = "JOB_003"
	ErrCodeJobArchiveFailed ErrorCode = "JOB_004"
	ErrCodeJobInvalidState  ErrorCode = "JOB_005"
)

// Aliases kept short for call-site readability.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:       "internal error",
	ErrCodeBadRequest:     "bad request",
	ErrCodeNotFound:       "resource not found",
	ErrCodeConflict:       "resource conflict",
	ErrCodeTimeout:        "operation timed out",
	ErrCodeValidation:     "validation failed",
	ErrCodeSerialization:  "serialization failed",
	ErrCodeCacheError:     "cache error",
	ErrCodeStorageError:   "object storage error",
	ErrCodeNotImplemented: "not implemented",

	ErrCodeScriptInvalidWeight:      "invalid descriptor weight name",
	ErrCodeScriptBlockOutOfRange:    "descriptor block id out of range",
	ErrCodeScriptInvalidMolFormat:   "invalid molecule input format",
	ErrCodeScriptInvalidMolInput:    "invalid molecule input source",
	ErrCodeScriptVersionUnsupported: "unsupported Dragon version",
	ErrCodeScriptMissingSections:    "script is missing mandatory sections",
	ErrCodeScriptParseFailed:        "failed to parse Dragon script",
	ErrCodeScriptNotBuilt:           "script has not been built",
	ErrCodeScriptWriteFailed:        "failed to write Dragon script",

	ErrCodeProcessLaunchFailed: "failed to launch Dragon shell",
	ErrCodeProcessWaitFailed:   "Dragon shell did not complete",

	ErrCodeTableReadFailed:    "failed to read table",
	ErrCodeTableWriteFailed:   "failed to write table",
	ErrCodeTableShapeMismatch: "table shapes do not match",
	ErrCodeTableBadSplit:      "invalid table split point",

	ErrCodeJobNotFound:      "job not found",
	ErrCodeJobNotReady:      "job output not ready",
	ErrCodeJobStoreFailed:   "failed to persist job record",
	ErrCodeJobArchiveFailed: "failed to archive job artifacts",
	ErrCodeJobInvalidState:  "job is in an invalid state",
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
