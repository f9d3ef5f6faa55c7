// Package errors defines the discriminated error taxonomy shared by every
// package in the asset pipeline: blob/doc gateways, the metadata probe, the
// pipeline engine, and the external job coordinators all return errors
// constructed here so that callers can use errors.As/Is against a small,
// stable set of types instead of string-matching messages.
package errors

import (
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
)

// Validation marks a caller error: unknown step id, unsupported asset type
// for a step, a malformed gs:// URI, and similar. Never retried automatically.
type Validation struct {
	Msg   string
	Cause error
}

func (e Validation) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation: %s: %s", e.Msg, e.Cause)
	}
	return "validation: " + e.Msg
}

func (e Validation) Unwrap() error { return e.Cause }

func NewValidation(msg string, cause error) error {
	return Validation{Msg: msg, Cause: cause}
}

// IsValidation reports whether err (or anything it wraps) is a Validation error.
func IsValidation(err error) bool {
	return errors.As(err, &Validation{})
}

// NotFound marks a missing asset, pipeline state, or job record.
type NotFound struct {
	Msg   string
	Cause error
}

func (e NotFound) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("not found: %s: %s", e.Msg, e.Cause)
	}
	return "not found: " + e.Msg
}

func (e NotFound) Unwrap() error { return e.Cause }

func NewNotFound(msg string, cause error) error {
	return NotFound{Msg: msg, Cause: cause}
}

func IsNotFound(err error) bool {
	return errors.As(err, &NotFound{})
}

// Backend marks a blob store / document store / broker I/O failure. The
// worker pool does not requeue tasks: a task that returns a Backend error,
// like any other error, has its status set to failed.
type Backend struct {
	Msg   string
	Cause error
}

func (e Backend) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("backend: %s: %s", e.Msg, e.Cause)
	}
	return "backend: " + e.Msg
}

func (e Backend) Unwrap() error { return e.Cause }

func NewBackend(msg string, cause error) error {
	return Backend{Msg: msg, Cause: cause}
}

func IsBackend(err error) bool {
	return errors.As(err, &Backend{})
}

// ProbeFailed, ProbeTimeout and ProbeUnavailable discriminate the failure
// modes of the metadata probe (§4.C): a non-zero exit, a hard timeout, and a
// missing probe binary respectively.
type ProbeFailed struct {
	Msg   string
	Cause error
}

func (e ProbeFailed) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("probe failed: %s: %s", e.Msg, e.Cause)
	}
	return "probe failed: " + e.Msg
}
func (e ProbeFailed) Unwrap() error { return e.Cause }

type ProbeTimeout struct{ Msg string }

func (e ProbeTimeout) Error() string { return "probe timeout: " + e.Msg }

type ProbeUnavailable struct {
	Msg   string
	Cause error
}

func (e ProbeUnavailable) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("probe unavailable: %s: %s", e.Msg, e.Cause)
	}
	return "probe unavailable: " + e.Msg
}
func (e ProbeUnavailable) Unwrap() error { return e.Cause }

func IsProbeFailed(err error) bool      { return errors.As(err, &ProbeFailed{}) }
func IsProbeTimeout(err error) bool     { return errors.As(err, &ProbeTimeout{}) }
func IsProbeUnavailable(err error) bool { return errors.As(err, &ProbeUnavailable{}) }

// RemoteJobTimeout marks an external job coordinator poll loop exceeding its
// kind-specific maximum wait.
type RemoteJobTimeout struct {
	Msg string
}

func (e RemoteJobTimeout) Error() string { return "remote job timeout: " + e.Msg }

func NewRemoteJobTimeout(msg string) error { return RemoteJobTimeout{Msg: msg} }

func IsRemoteJobTimeout(err error) bool { return errors.As(err, &RemoteJobTimeout{}) }

// RemoteJobFailed marks a permanent failure reported by a remote service
// (transcoder, CloudConvert, speech-to-text).
type RemoteJobFailed struct {
	Msg   string
	Cause error
}

func (e RemoteJobFailed) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("remote job failed: %s: %s", e.Msg, e.Cause)
	}
	return "remote job failed: " + e.Msg
}
func (e RemoteJobFailed) Unwrap() error { return e.Cause }

func NewRemoteJobFailed(msg string, cause error) error {
	return RemoteJobFailed{Msg: msg, Cause: cause}
}

func IsRemoteJobFailed(err error) bool { return errors.As(err, &RemoteJobFailed{}) }

// QuotaExhausted marks an LLM API response indicating the current key has
// exhausted its quota; callers rotate the key rotator (§4.D) and retry.
type QuotaExhausted struct {
	Msg string
}

func (e QuotaExhausted) Error() string { return "quota exhausted: " + e.Msg }

func NewQuotaExhausted(msg string) error { return QuotaExhausted{Msg: msg} }

func IsQuotaExhausted(err error) bool { return errors.As(err, &QuotaExhausted{}) }

// UnretriableError marks an error as not to be retried, whatever its
// underlying kind (e.g. Backend). The worker pool does not consult this
// mark; it never requeues a failed task.
type UnretriableError struct{ error }

// Unretriable marks err unretriable and also makes it a backoff.PermanentError.
func Unretriable(err error) error { return UnretriableError{backoff.Permanent(err)} }

func MarkUnretriable(err error) error {
	return UnretriableError{err}
}

func (e UnretriableError) Unwrap() error { return e.error }

func IsUnretriable(err error) bool {
	return errors.As(err, &UnretriableError{})
}

// NewObjectNotFoundError builds a NotFound error that is also marked unretriable.
func NewObjectNotFoundError(msg string, cause error) error { return MarkUnretriable(NewNotFound(msg, cause)) }

func IsObjectNotFound(err error) bool { return IsNotFound(err) }
