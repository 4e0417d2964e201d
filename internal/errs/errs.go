// Package errs defines the error kinds shared across impressionism's
// components and their mapping onto CLI exit codes.
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies which class of failure occurred, per the error design
// in the specification's error-handling section.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfig
	KindStoreUnavailable
	KindStoreBusy
	KindSchemaMismatch
	KindParse
	KindEmbedFailed
	KindPolicyFailed
	KindSandboxViolation
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "ConfigError"
	case KindStoreUnavailable:
		return "StoreUnavailable"
	case KindStoreBusy:
		return "StoreBusy"
	case KindSchemaMismatch:
		return "SchemaMismatch"
	case KindParse:
		return "ParseError"
	case KindEmbedFailed:
		return "EmbedFailed"
	case KindPolicyFailed:
		return "PolicyFailed"
	case KindSandboxViolation:
		return "SandboxViolation"
	case KindCancelled:
		return "Cancelled"
	default:
		return "UnknownError"
	}
}

// ExitCode returns the process exit code associated with this error kind.
func (k Kind) ExitCode() int {
	switch k {
	case KindConfig:
		return 2
	case KindStoreUnavailable, KindStoreBusy, KindSchemaMismatch:
		return 3
	case KindPolicyFailed, KindSandboxViolation:
		return 0 // the pipeline as a whole is not fatal; see PolicyFailed semantics
	case KindCancelled:
		return 0
	case KindUnknown:
		return 1
	default:
		return 1
	}
}

// Error wraps an underlying error with an operation name and a Kind,
// mirroring the teacher's Op-tagged error wrapping.
type Error struct {
	Kind Kind
	Op   string
	Err  error

	// Detail carries extra provenance for SandboxViolation, e.g. the
	// denied call or require path that triggered the refusal.
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("impressionism: %s: %s: %v (%s)", e.Kind, e.Op, e.Err, e.Detail)
	}
	if e.Op == "" {
		return fmt.Sprintf("impressionism: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("impressionism: %s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return errors.Is(e.Err, target)
}

// Wrap produces an *Error of the given kind with operation context.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// WrapDetail is Wrap plus extra provenance, used for SandboxViolation.
func WrapDetail(kind Kind, op string, err error, detail string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err, Detail: detail}
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error; otherwise returns KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Sentinel errors for common conditions, analogous to the teacher's
// package-level Err* vars.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidDimension  = errors.New("invalid vector dimension")
	ErrInvalidVector     = errors.New("invalid vector data")
	ErrStoreClosed       = errors.New("store is closed")
	ErrDuplicateSequence = errors.New("duplicate (session, sequence)")
	ErrUnknownSkill      = errors.New("unknown skill id")
)
