// ============================================================================
// lendbot - Community Lending Bot
// ============================================================================
//
// Package:     version
// Description: Central version management for the bot and its components
// Author:      Mike Stoffels
// Created:     2025-12-06
// License:     MIT
// ============================================================================

package version

import (
	"fmt"
	"runtime"
)

// Version constants for the bot components
const (
	// Bot release version
	Bot = "1.0.0"

	// Command grammar version, bumped when a command's syntax changes
	Commands = "1.0.0"

	// Ledger database schema version
	Schema = 1
)

// Set at build time via -ldflags "-X github.com/msto63/lendbot/pkg/core/version.Commit=..."
var (
	Commit    = "dev"
	BuildDate = "unknown"
)

// ComponentVersion returns the version for a given component name
func ComponentVersion(name string) string {
	switch name {
	case "commands":
		return Commands
	case "schema":
		return fmt.Sprintf("%d", Schema)
	default:
		return Bot
	}
}

// Info returns a one-line build description
func Info() string {
	return fmt.Sprintf("lendbot %s (commit %s, built %s, %s %s/%s)",
		Bot, Commit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
