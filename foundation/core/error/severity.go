// File: severity.go
// Title: Error Severity Levels
// Description: Severity classification for structured errors. The logger
//              uses it to pick the level an error is reported at.
// Author: msto63
// Version: v0.1.0
// Created: 2026-03-02
// Modified: 2026-03-02
//
// Change History:
// - 2026-03-02 v0.1.0: Initial implementation

package error

// Severity represents the severity level of an error
type Severity int

const (
	// SeverityLow covers caller mistakes such as malformed queries
	SeverityLow Severity = iota

	// SeverityMedium covers failures with an obvious workaround
	SeverityMedium

	// SeverityHigh covers storage and service failures
	SeverityHigh

	// SeverityCritical covers corrupted data
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

// ShouldAlert returns true if this severity level should trigger alerts
func (s Severity) ShouldAlert() bool {
	return s >= SeverityHigh
}

// GetSeverityFromCode determines the severity implied by an error code
func GetSeverityFromCode(code Code) Severity {
	switch code {
	case CodeDataCorruption:
		return SeverityCritical
	case CodeDatabaseError, CodeServiceUnavailable, CodeInternal:
		return SeverityHigh
	case CodeInvalidInput, CodeQuerySyntax, CodeInvalidFormat, CodeNotFound, CodeCanceled:
		return SeverityLow
	default:
		return SeverityMedium
	}
}
