// Package syncerr is the closed error taxonomy of the sync core. Engine and
// hosting failures are classified once, here, and callers switch on Kind.
package syncerr

import (
	"errors"
	"fmt"
)

// Kind is the category of a sync failure.
type Kind int

// Error kinds. Unknown is the zero value.
const (
	Unknown Kind = iota
	NotARepository
	AuthenticationFailed
	NetworkUnreachable
	NonFastForward
	UnrelatedHistories
	MergeConflict
	NothingToCommit
	UpstreamNotSet
	RemoteAlreadyExists
	ValidationError
)

var kindNames = [...]string{
	Unknown:              "Unknown",
	NotARepository:       "NotARepository",
	AuthenticationFailed: "AuthenticationFailed",
	NetworkUnreachable:   "NetworkUnreachable",
	NonFastForward:       "NonFastForward",
	UnrelatedHistories:   "UnrelatedHistories",
	MergeConflict:        "MergeConflict",
	NothingToCommit:      "NothingToCommit",
	UpstreamNotSet:       "UpstreamNotSet",
	RemoteAlreadyExists:  "RemoteAlreadyExists",
	ValidationError:      "ValidationError",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText renders the kind by name in JSON and YAML output.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Action is the user action the kind implies.
func (k Kind) Action() string {
	switch k {
	case NotARepository:
		return "Initialize a repository or link an existing one."
	case AuthenticationFailed:
		return "Re-enter the access token."
	case NetworkUnreachable:
		return "Check the connection and retry later."
	case NonFastForward:
		return "Pull first."
	case UnrelatedHistories, MergeConflict:
		return "Resolve manually."
	case NothingToCommit:
		return "Stage files first."
	case RemoteAlreadyExists:
		return "Use a different name."
	case ValidationError:
		return "Correct the input."
	default:
		return ""
	}
}

// SyncError is a classified failure.
type SyncError struct {
	Kind    Kind   `json:"kind" yaml:"kind"`
	Op      string `json:"op,omitempty" yaml:"op,omitempty"`
	Message string `json:"message" yaml:"message"`
	Cause   error  `json:"-" yaml:"-"`
}

func (e *SyncError) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return e.Op + ": " + e.Message
}

func (e *SyncError) Unwrap() error { return e.Cause }

// New returns an unwrapped SyncError.
func New(kind Kind, op, message string) *SyncError {
	return &SyncError{Kind: kind, Op: op, Message: message}
}

// Validation rejects input locally, before any engine or API call.
func Validation(op, message string) *SyncError {
	return New(ValidationError, op, message)
}

// KindOf returns the kind of err, or Unknown when err is not a SyncError.
func KindOf(err error) Kind {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Kind
	}
	return Unknown
}

// Is reports whether err is a SyncError of the given kind.
func Is(err error, kind Kind) bool {
	var se *SyncError
	return errors.As(err, &se) && se.Kind == kind
}
