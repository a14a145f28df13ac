// File: codes.go
// Title: Error Code Definitions
// Description: Defines the error codes used by lendbot to classify failures
//              of the matcher, the ledger, the reply catalogue and the
//              message sources.
// Author: msto63
// Version: v0.2.0
// Created: 2025-01-24
// Modified: 2026-10-14
//
// Change History:
// - 2025-01-24 v0.1.0: Initial implementation with core error codes
// - 2026-10-14 v0.2.0: Reduced to the lendbot code set, added matcher codes

package error

// Code represents a structured error code for categorizing errors
type Code string

const (
	// Generic codes
	CodeUnknown      Code = "UNKNOWN"
	CodeInternal     Code = "INTERNAL"
	CodeNotFound     Code = "NOT_FOUND"
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeTimeout      Code = "TIMEOUT"

	// Database and storage
	CodeDatabaseError  Code = "DATABASE_ERROR"
	CodeDuplicateEntry Code = "DUPLICATE_ENTRY"

	// Ledger rules
	CodeBusinessRule     Code = "BUSINESS_RULE"
	CodeInvalidOperation Code = "INVALID_OPERATION"

	// Command matching
	CodePatternInvalid Code = "PATTERN_INVALID"
	CodeMatchState     Code = "MATCH_STATE"

	// Replies and transport
	CodeTemplateError Code = "TEMPLATE_ERROR"
	CodeSourceError   Code = "SOURCE_ERROR"

	// Configuration
	CodeConfigError Code = "CONFIG_ERROR"
)

// String returns the string representation of the error code
func (c Code) String() string {
	return string(c)
}

// Category returns the high-level category of the error code
func (c Code) Category() string {
	switch c {
	case CodeDatabaseError, CodeDuplicateEntry:
		return "database"
	case CodeBusinessRule, CodeInvalidOperation:
		return "business"
	case CodePatternInvalid, CodeMatchState:
		return "matcher"
	case CodeTemplateError, CodeSourceError:
		return "io"
	case CodeConfigError:
		return "configuration"
	default:
		return "generic"
	}
}
