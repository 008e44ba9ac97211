// Package buildinfo exposes the runner's version string, used as the
// Control.Version attribute (spec §3) so an operator can tell which
// build is holding a given runner name.
package buildinfo

import (
	"os/exec"
	"strings"
	"sync"
)

// version is set at build time via -ldflags "-X .../buildinfo.version=...".
// Unreleased builds keep the "0.0.0-dev" default.
var version = "0.0.0-dev"

var (
	gitOnce sync.Once
	gitSHA  string
)

// gitVersion memoizes `git rev-parse --short HEAD`, mirroring
// original_source/asdb_jobs/__init__.py's get_git_version. An error
// (not a git checkout, no git binary) just yields an empty string.
func gitVersion() string {
	gitOnce.Do(func() {
		out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output()
		if err != nil {
			return
		}
		gitSHA = strings.TrimSpace(string(out))
	})
	return gitSHA
}

// Version returns "<version>-<gitsha>", or just "<version>" outside a
// git checkout.
func Version() string {
	if sha := gitVersion(); sha != "" {
		return version + "-" + sha
	}
	return version
}
