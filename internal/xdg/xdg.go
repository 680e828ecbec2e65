// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

// Package xdg resolves XDG Base Directory paths for the research portal.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "researchportal"

// ConfigDir returns the XDG config directory for the portal.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// ConfigFile returns ConfigDir()/config.yaml if that file exists, else "".
func ConfigFile() string {
	path := filepath.Join(ConfigDir(), "config.yaml")
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ""
	}
	return path
}
