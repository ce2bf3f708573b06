// Package misc keeps build time information.
package misc

import (
	"path/filepath"
	"runtime/debug"
	"strings"
)

// These are set with -ldflags at build time.
var (
	version = "dev"
	hash    = ""
	appName = "tblview"
)

// GetVersion returns program version.
func GetVersion() string {
	return version
}

// GetGitHash returns hash of the commit program was built from. When not set
// at build time it is taken from embedded VCS information if available.
func GetGitHash() string {
	if len(hash) > 0 {
		return hash
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}

// GetAppName returns program name without extension.
func GetAppName() string {
	if len(appName) > 0 {
		return appName
	}
	if info, ok := debug.ReadBuildInfo(); ok && len(info.Path) > 0 {
		return strings.TrimSuffix(filepath.Base(info.Path), filepath.Ext(info.Path))
	}
	return "tblview"
}
