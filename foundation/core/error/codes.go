// File: codes.go
// Title: Error Codes
// Description: Defines the structured error codes used across ecsq. Codes
//              classify failures so callers can map them to query status
//              values, gRPC status codes and shell messages.
// Author: msto63
// Version: v0.2.0
// Created: 2026-03-02
// Modified: 2026-03-09
//
// Change History:
// - 2026-03-02 v0.1.0: Initial code set
// - 2026-03-09 v0.2.0: Query and fixture codes

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
	CodeCanceled     Code = "CANCELED"

	// Query language
	CodeQuerySyntax    Code = "QUERY_SYNTAX"
	CodeQueryExecution Code = "QUERY_EXECUTION"

	// Registry and storage
	CodeDuplicateEntry Code = "DUPLICATE_ENTRY"
	CodeDatabaseError  Code = "DATABASE_ERROR"
	CodeDataCorruption Code = "DATA_CORRUPTION"

	// Configuration and fixtures
	CodeConfigError   Code = "CONFIG_ERROR"
	CodeInvalidConfig Code = "INVALID_CONFIG"
	CodeInvalidFormat Code = "INVALID_FORMAT"

	// Service
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
)

var knownCodes = map[Code]string{
	CodeUnknown:            "generic",
	CodeInternal:           "generic",
	CodeNotFound:           "generic",
	CodeInvalidInput:       "generic",
	CodeTimeout:            "generic",
	CodeCanceled:           "generic",
	CodeQuerySyntax:        "query",
	CodeQueryExecution:     "query",
	CodeDuplicateEntry:     "storage",
	CodeDatabaseError:      "storage",
	CodeDataCorruption:     "storage",
	CodeConfigError:        "config",
	CodeInvalidConfig:      "config",
	CodeInvalidFormat:      "config",
	CodeServiceUnavailable: "service",
}

// String returns the string representation of the error code
func (c Code) String() string {
	return string(c)
}

// IsValid reports whether the code is one of the defined codes
func (c Code) IsValid() bool {
	_, ok := knownCodes[c]
	return ok
}

// Category returns the broad category of the code ("generic", "query",
// "storage", "config", "service" or "unknown")
func (c Code) Category() string {
	if cat, ok := knownCodes[c]; ok {
		return cat
	}
	return "unknown"
}
