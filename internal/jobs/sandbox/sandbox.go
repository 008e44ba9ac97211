// Package sandbox runs a single external analysis tool inside an
// ephemeral podman container and enforces the wall-clock timeout (spec
// §4.4, §6).
package sandbox

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/antismash/asdb-jobs/internal/jobs/joberr"
	"github.com/antismash/asdb-jobs/internal/platform/logger"
)

// Outcome is the result classification of a sandboxed run (spec §4.4).
type Outcome string

const (
	Success       Outcome = "success"
	Failure       Outcome = "failure"
	Timeout       Outcome = "timeout"
	InternalError Outcome = "internal_error"
)

// containerNameRE matches the container runtime identifier grammar: it
// must start with an alphanumeric and may continue with alphanumerics,
// underscore, dot, or dash (spec §4.4).
var containerNameRE = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

const maxContainerNameLen = 253

// ValidateContainerName reports whether name is legal to pass as a
// podman --name argument. Job IDs double as container names (spec §3),
// so this must be checked before the sandbox is ever invoked.
func ValidateContainerName(name string) error {
	if len(name) == 0 || len(name) > maxContainerNameLen || !containerNameRE.MatchString(name) {
		return joberr.InvalidContainerName(name)
	}
	return nil
}

type result struct {
	outcome Outcome
	stdout  []string
	stderr  []string
}

// Run starts cmdline as a child process, feeds it stdin, and waits for
// either exit or timeout — whichever comes first wins and the other is
// discarded (spec §4.4). containerName must already have passed
// ValidateContainerName; it is used only to target the out-of-band
// `podman kill` on timeout.
func Run(ctx context.Context, log *logger.Logger, cmdline []string, stdin []byte, containerName string, timeout time.Duration) (Outcome, []string, []string, error) {
	if len(cmdline) == 0 {
		return InternalError, nil, nil, fmt.Errorf("sandbox: empty command line")
	}

	cmd := exec.Command(cmdline[0], cmdline[1:]...)

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return InternalError, nil, nil, fmt.Errorf("sandbox: stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return InternalError, nil, nil, fmt.Errorf("sandbox: stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return InternalError, nil, nil, fmt.Errorf("sandbox: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return InternalError, nil, nil, fmt.Errorf("sandbox: start %s: %w", cmdline[0], err)
	}

	done := make(chan result, 1)
	timedOut := make(chan struct{})

	go func() {
		var stdout, stderr bytes.Buffer

		g, _ := errgroup.WithContext(context.Background())
		g.Go(func() error {
			defer stdinPipe.Close()
			_, err := stdinPipe.Write(stdin)
			return err
		})
		g.Go(func() error {
			_, err := stdout.ReadFrom(stdoutPipe)
			return err
		})
		g.Go(func() error {
			_, err := stderr.ReadFrom(stderrPipe)
			return err
		})
		_ = g.Wait()

		waitErr := cmd.Wait()

		select {
		case <-timedOut:
			// The timeout goroutine already delivered a result; this one
			// lost the race and is discarded.
			return
		default:
		}

		outcome := Success
		if waitErr != nil {
			outcome = Failure
		}
		done <- result{outcome: outcome, stdout: splitLines(stdout.String()), stderr: splitLines(stderr.String())}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		close(timedOut)
		killContainer(log, containerName)
		return InternalError, nil, nil, ctx.Err()
	case <-timer.C:
		close(timedOut)
		killContainer(log, containerName)
		return Timeout, nil, []string{"Runtime exceeded"}, nil
	case r := <-done:
		return r.outcome, r.stdout, r.stderr, nil
	}
}

// killContainer issues the out-of-band kill once the wall-clock timeout
// has fired or ctx has been cancelled. Its own failure is logged and ignored: the child may
// already be exiting on its own (spec §6 "Kill path").
func killContainer(log *logger.Logger, containerName string) {
	cmd := exec.Command("podman", "kill", containerName)
	if err := cmd.Run(); err != nil {
		log.Warn("podman kill failed, ignoring", "container", containerName, "error", err)
	}
}

func splitLines(s string) []string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader([]byte(s)))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}
