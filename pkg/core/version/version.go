// ============================================================================
// ecsq - Entity Component Query
// ============================================================================
//
// Package:     version
// Description: Central version management for the CLI and network surfaces
// Author:      Mike Stoffels
// Created:     2026-03-14
// License:     MIT
// ============================================================================

package version

import (
	"fmt"
	"runtime"
)

// Version constants for the ecsq components
const (
	// Platform version
	Platform = "0.3.0"

	// Component versions
	Language = "0.3.0"
	Shell    = "0.2.0"
	Server   = "0.2.0"
	Store    = "0.1.0"
)

// Commit is set at build time with -ldflags "-X .../version.Commit=..."
var Commit = "dev"

// ComponentVersion returns the version for a given component name
func ComponentVersion(name string) string {
	switch name {
	case "language", "query":
		return Language
	case "shell", "tui":
		return Shell
	case "server", "grpc", "websocket":
		return Server
	case "store":
		return Store
	default:
		return Platform
	}
}

// String returns the full version line printed by "ecsq version"
func String() string {
	return fmt.Sprintf("ecsq %s (language %s, commit %s, %s %s/%s)",
		Platform, Language, Commit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
