package processor

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// stderrCap keeps the first KB of the child's stderr for diagnostics and
// discards the rest.
const stderrCapLimit = 4096

type stderrCap struct {
	buf bytes.Buffer
}

func (w *stderrCap) Write(p []byte) (int, error) {
	if remaining := stderrCapLimit - w.buf.Len(); remaining > 0 {
		if len(p) > remaining {
			w.buf.Write(p[:remaining])
		} else {
			w.buf.Write(p)
		}
	}
	return len(p), nil
}

// CommandRunner shells out to an external cleaning tool. The command is
// invoked as: <command> <inputPath> <outputPath>. Lines on stdout that are
// bare integers are interpreted as progress percentages.
type CommandRunner struct {
	command string
	timeout time.Duration
}

func NewCommandRunner(command string, timeout time.Duration) (*CommandRunner, error) {
	if command == "" {
		return nil, fmt.Errorf("processor command is not configured")
	}
	if _, err := exec.LookPath(command); err != nil {
		return nil, fmt.Errorf("processor binary not found in PATH: %s", command)
	}
	return &CommandRunner{
		command: command,
		timeout: timeout,
	}, nil
}

func (r *CommandRunner) Run(ctx context.Context, inputPath, outputPath string, report ProgressFunc) error {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.command, inputPath, outputPath)

	var stderr stderrCap
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start processor: %w", err)
	}

	// Stdout must be drained either way or the child can block on a full pipe.
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if report == nil {
			continue
		}
		if pct, err := strconv.Atoi(line); err == nil && pct >= 0 && pct <= 100 {
			report(pct)
		}
	}
	scanErr := scanner.Err()

	if err := cmd.Wait(); err != nil {
		if runCtx.Err() != nil {
			return fmt.Errorf("processor timed out after %s: %w", r.timeout, runCtx.Err())
		}
		if msg := strings.TrimSpace(stderr.buf.String()); msg != "" {
			return fmt.Errorf("processor exited with error: %w: %s", err, msg)
		}
		return fmt.Errorf("processor exited with error: %w", err)
	}
	if scanErr != nil {
		return fmt.Errorf("failed to read processor output: %w", scanErr)
	}
	return nil
}
