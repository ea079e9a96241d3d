// ============================================================================
// ecsq - Entity Component Query
// ============================================================================
//
// Package:     world
// Description: Error definitions for world fixtures
// Author:      Mike Stoffels
// Created:     2026-03-15
// License:     MIT
// ============================================================================

package world

import "errors"

var (
	// Validation errors
	ErrMissingName        = errors.New("component name is required")
	ErrInvalidSize        = errors.New("component size must be positive")
	ErrDuplicateComponent = errors.New("component declared twice")
	ErrUnknownComponent   = errors.New("undeclared component")
	ErrInvalidValue       = errors.New("invalid component value")
	ErrSizeMismatch       = errors.New("component value does not match declared size")

	// Loading errors
	ErrInvalidYAML = errors.New("invalid YAML syntax")
	ErrInvalidID   = errors.New("invalid entity id")
)
