// File: severity.go
// Title: Error Severity Levels
// Description: Defines severity levels for errors so that the logger can pick
//              a matching log level.
// Author: msto63
// Version: v0.2.0
// Created: 2025-01-24
// Modified: 2026-10-14
//
// Change History:
// - 2025-01-24 v0.1.0: Initial implementation with severity levels
// - 2026-10-14 v0.2.0: Severity mapping for the lendbot code set

package error

// Severity represents the severity level of an error
type Severity int

const (
	// SeverityLow is used for bad user input that simply gets a usage reply
	SeverityLow Severity = iota

	// SeverityMedium is the default for errors without a specific code
	SeverityMedium

	// SeverityHigh marks storage or transport failures
	SeverityHigh

	// SeverityCritical marks programmer errors such as grammar bugs
	SeverityCritical
)

// String returns the string representation of the severity level
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// GetSeverityFromCode determines appropriate severity level based on error code
func GetSeverityFromCode(code Code) Severity {
	switch code {
	case CodePatternInvalid, CodeMatchState, CodeInternal:
		return SeverityCritical
	case CodeDatabaseError, CodeSourceError, CodeConfigError, CodeTemplateError:
		return SeverityHigh
	case CodeInvalidInput, CodeNotFound, CodeBusinessRule, CodeInvalidOperation, CodeDuplicateEntry:
		return SeverityLow
	default:
		return SeverityMedium
	}
}
