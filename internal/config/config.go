// Package config holds the process-wide RunConfig (spec §3) and the
// reload logic that keeps a dispatcher's view of it current.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/antismash/asdb-jobs/internal/platform/logger"
)

// ConnParams is the immutable database-connection subset, set once from
// CLI flags/environment and never reloaded (spec §9 Design Notes: "not
// every RunConfig attribute is safely re-readable at runtime").
type ConnParams struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// reloadable is the subset of RunConfig that TOML config-file reload is
// allowed to touch. Unknown TOML keys are ignored by construction: only
// fields named here can ever be set via the file.
type reloadable struct {
	CPUs    int `toml:"cpus"`
	MaxJobs int `toml:"max_jobs"`
}

// RunConfig is the shared, mutable runtime configuration described in
// spec §3 and §5. Fields set at startup (ConfigFile, DBDir, Workdir,
// Name, Conn) are immutable after New returns. CPUs and MaxJobs
// are reloadable and are only ever mutated through ReadFile or the
// counters below, all under mu.
type RunConfig struct {
	ConfigFile string
	DBDir      string
	Workdir    string
	Name       string
	Conn       ConnParams

	mu          sync.Mutex
	cpus        int
	maxJobs     int
	fileDigest  string
	runningJobs int
}

func New(configFile, dbDir, workdir, name string, conn ConnParams, cpus, maxJobs int) *RunConfig {
	return &RunConfig{
		ConfigFile: configFile,
		DBDir:      dbDir,
		Workdir:    workdir,
		Name:       name,
		Conn:       conn,
		cpus:       cpus,
		maxJobs:    maxJobs,
	}
}

// ReadFile re-reads ConfigFile and merges recognised keys into the
// reloadable subset, but only if the file's content changed since the
// last read (spec §4.2 step 1, §6). A missing file is not an error: it
// just means nothing to merge, matching how a freshly-deployed runner
// with no config file yet should behave.
func (c *RunConfig) ReadFile(log *logger.Logger) error {
	data, err := os.ReadFile(c.ConfigFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file %s: %w", c.ConfigFile, err)
	}

	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])

	c.mu.Lock()
	unchanged := digest == c.fileDigest
	c.mu.Unlock()
	if unchanged {
		return nil
	}

	var parsed reloadable
	// Seed defaults with the current values so a config file that only
	// sets one of the two keys doesn't zero out the other.
	c.mu.Lock()
	parsed.CPUs = c.cpus
	parsed.MaxJobs = c.maxJobs
	c.mu.Unlock()

	if _, err := toml.Decode(string(data), &parsed); err != nil {
		return fmt.Errorf("parse config file %s: %w", c.ConfigFile, err)
	}

	c.mu.Lock()
	c.fileDigest = digest
	c.cpus = parsed.CPUs
	c.maxJobs = parsed.MaxJobs
	c.mu.Unlock()

	log.Debug("config file reloaded", "file", c.ConfigFile, "cpus", parsed.CPUs, "max_jobs", parsed.MaxJobs)
	return nil
}

func (c *RunConfig) CPUs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cpus
}

func (c *RunConfig) MaxJobs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxJobs
}

// SetMaxJobs is used by the supervisor to force max_jobs=0 when a drain
// has been scheduled (spec §4.3 step 1).
func (c *RunConfig) SetMaxJobs(n int) {
	c.mu.Lock()
	c.maxJobs = n
	c.mu.Unlock()
}

// RunningJobs returns the live count of dispatcher goroutines currently
// up (spec §3 invariant: running_jobs >= 0 at all times).
func (c *RunConfig) RunningJobs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runningJobs
}

// Up is called when a dispatcher starts.
func (c *RunConfig) Up() {
	c.mu.Lock()
	c.runningJobs++
	c.mu.Unlock()
}

// Down is called when a dispatcher exits.
func (c *RunConfig) Down() {
	c.mu.Lock()
	c.runningJobs--
	c.mu.Unlock()
}

// WantMoreJobs reports whether the supervisor should spawn another
// dispatcher.
func (c *RunConfig) WantMoreJobs() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runningJobs < c.maxJobs
}

// WantLessJobs reports whether a dispatcher should elect itself to
// shrink the pool (spec §4.2 step 2).
func (c *RunConfig) WantLessJobs() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runningJobs > c.maxJobs
}
