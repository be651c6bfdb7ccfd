// Package errors provides structured error handling for casefind.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Store/IO errors
//   - 3XX: Upstream source and provider errors
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates store and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryUpstream indicates errors from external sources and providers.
	CategoryUpstream Category = "UPSTREAM"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Store/IO errors (200-299)
	ErrCodeStoreIO       = "ERR_201_STORE_IO"
	ErrCodeRecordMissing = "ERR_202_RECORD_MISSING"
	ErrCodeStoreLocked   = "ERR_203_STORE_LOCKED"

	// Upstream errors (300-399)
	ErrCodeSourceUnavailable     = "ERR_301_SOURCE_UNAVAILABLE"
	ErrCodeProviderMisconfigured = "ERR_302_PROVIDER_MISCONFIGURED"
	ErrCodeProviderRequest       = "ERR_303_PROVIDER_REQUEST"
	ErrCodeScoreParse            = "ERR_304_SCORE_PARSE"

	// Validation errors (400-499)
	ErrCodeInvalidInput   = "ERR_401_INVALID_INPUT"
	ErrCodeQueryEmpty     = "ERR_402_QUERY_EMPTY"
	ErrCodeWorkspaceEmpty = "ERR_403_WORKSPACE_EMPTY"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeFusionFailed = "ERR_502_FUSION_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryUpstream
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode derives severity from error code.
// Upstream failures degrade the pipeline instead of aborting it, so they
// are warnings; config and validation problems stop the request.
func severityFromCode(code string) Severity {
	switch categoryFromCode(code) {
	case CategoryUpstream:
		return SeverityWarning
	case CategoryConfig:
		return SeverityFatal
	default:
		return SeverityError
	}
}

// isRetryableCode reports whether an operation that failed with this code
// may succeed on retry. Only transient upstream failures qualify.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeSourceUnavailable, ErrCodeProviderRequest:
		return true
	default:
		return false
	}
}
