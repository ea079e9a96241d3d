// ============================================================================
// ecsq - Entity Component Query
// ============================================================================
//
// Package:     logging
// Description: Level type for the key/value Logger wrapper
// Author:      Mike Stoffels
// Created:     2026-03-14
// License:     MIT
// ============================================================================

package logging

// Level is the coarse severity accepted by Logger.WithLevel
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the level
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}
