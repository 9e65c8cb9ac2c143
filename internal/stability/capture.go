package stability

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrCaptureUnavailable means the configured capture program cannot be found.
var ErrCaptureUnavailable = errors.New("screen capture tool unavailable")

// Capturer grabs the current screen as encoded image bytes.
type Capturer interface {
	Capture(ctx context.Context) ([]byte, error)
}

// CommandCapturer runs an external screenshot program that writes to Path,
// then reads the file back. "{path}" in Args is replaced by Path.
type CommandCapturer struct {
	Program string
	Args    []string
	Path    string
}

// NewCommandCapturer builds the gnome-screenshot capturer writing to path.
func NewCommandCapturer(program string, args []string, path string) *CommandCapturer {
	if program == "" {
		program = "gnome-screenshot"
		args = []string{"-f", "{path}"}
	}
	return &CommandCapturer{Program: program, Args: args, Path: path}
}

// Check verifies the program is on PATH. Missing tools are a setup failure.
func (c *CommandCapturer) Check() error {
	if _, err := exec.LookPath(c.Program); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCaptureUnavailable, c.Program, err)
	}
	return nil
}

func (c *CommandCapturer) Capture(ctx context.Context) ([]byte, error) {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = strings.ReplaceAll(a, "{path}", c.Path)
	}
	cmd := exec.CommandContext(ctx, c.Program, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", c.Program, err, strings.TrimSpace(string(out)))
	}
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, fmt.Errorf("read capture: %w", err)
	}
	return data, nil
}
