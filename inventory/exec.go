package inventory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	zlog "github.com/cloudkiwi/vnetaudit/logger"
)

var (
	ErrEmptyCommand     = errors.New("command string is empty")
	ErrCommandFailed    = errors.New("command exited with an error")
	ErrResponseTooLarge = errors.New("command output exceeded the response size limit")
)

// commandPattern splits a command string on spaces while keeping quoted
// substrings together, so KQL queries survive as a single argument.
var commandPattern = regexp.MustCompile(`'([^']*)'\s*|"([^"]*)"\s*|([^'\s]*)\s*`)

// Runner executes an external command and returns its stdout. The audit
// pipeline only ever sees its output as bytes; tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, command string) (string, error)
}

// CLIRunner runs commands through the local shell environment (in practice,
// the az CLI using whatever session the operator already has).
type CLIRunner struct {
	// MaxOutputBytes aborts on responses larger than this; 0 means no limit
	MaxOutputBytes int
}

func (r CLIRunner) Run(ctx context.Context, command string) (string, error) {
	logger := zlog.GetLogger()
	logger.Debug().Str("command", command).Msg("running external command")

	args := SplitCommand(command)
	if len(args) == 0 {
		return "", ErrEmptyCommand
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		logger.Warn().Str("command", args[0]).Str("stderr", stderr.String()).Msg("external command failed")
		return "", fmt.Errorf("%w: %s: %s", ErrCommandFailed, args[0], strings.TrimSpace(stderr.String()))
	}

	if r.MaxOutputBytes > 0 && stdout.Len() > r.MaxOutputBytes {
		return "", fmt.Errorf("%w: got %d bytes", ErrResponseTooLarge, stdout.Len())
	}

	logger.Debug().Int("stdout_bytes", stdout.Len()).Msg("external command succeeded")
	return stdout.String(), nil
}

// SplitCommand splits a command string on spaces, preserving single- or
// double-quoted substrings as single arguments with the quotes stripped.
func SplitCommand(input string) []string {
	var args []string
	for _, m := range commandPattern.FindAllString(input, -1) {
		trimmed := strings.TrimSpace(m)
		if trimmed == "" {
			continue
		}
		if len(trimmed) >= 2 && (trimmed[0] == '\'' || trimmed[0] == '"') {
			trimmed = strings.Trim(trimmed, string(trimmed[0]))
		}
		args = append(args, trimmed)
	}
	return args
}
