package git

import (
	"errors"
	"fmt"
	"strings"
)

// Git-specific error values.
var (
	// ErrNotARepo is returned when the path is not the top level of a Git repository.
	ErrNotARepo = errors.New("not a git repository")

	// ErrNotADirectory is returned when the working-copy path is missing or a file.
	ErrNotADirectory = errors.New("working copy path is not a directory")

	// ErrRemoteNotFound is returned when a named remote is not configured.
	ErrRemoteNotFound = errors.New("remote not found")
)

// CommandError is a failed git invocation. Stderr is already redacted.
type CommandError struct {
	Args     []string
	Stderr   string
	ExitCode int
	Err      error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("git %s: %s: %v", strings.Join(e.Args, " "), e.Stderr, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// redactedArgs hides credential-bearing `-c url.<auth>.insteadOf=` values.
func redactedArgs(args []string, secret string) []string {
	if secret == "" {
		return args
	}
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = Redact(a, secret)
	}
	return out
}

// Redact replaces every occurrence of secret in s with "****".
func Redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "****")
}
