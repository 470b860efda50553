package faults

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the CLI can pick an exit code and callers can
// decide whether to retry.
type Kind string

const (
	// KindNetwork covers timeouts, connection failures and non-success
	// responses from the remote provider. Retryable.
	KindNetwork Kind = "network"
	// KindIntegrity covers conflicting immutable reference rows and foreign
	// key violations. Never retried or silently resolved.
	KindIntegrity Kind = "integrity"
	// KindDecode covers malformed image bytes and layer dimension mismatches.
	// Fatal for the output being produced, harmless to the cache.
	KindDecode Kind = "decode"
	// KindContention covers lock timeouts against a concurrent writer.
	KindContention Kind = "contention"
)

// Fault tags an error with a kind and the resource it concerns.
type Fault struct {
	Kind     Kind
	Resource string
	err      error
}

func (f *Fault) Error() string {
	if f.err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Resource, f.err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Resource)
}

func (f *Fault) Unwrap() error { return f.err }

// New wraps err as a Fault of the given kind. Resource identifies what was
// being fetched or written, e.g. "IDR023" or "daily/r3gx2f".
func New(kind Kind, resource string, err error) *Fault {
	return &Fault{Kind: kind, Resource: resource, err: err}
}

func Network(resource string, err error) *Fault   { return New(KindNetwork, resource, err) }
func Integrity(resource string, err error) *Fault { return New(KindIntegrity, resource, err) }
func Decode(resource string, err error) *Fault    { return New(KindDecode, resource, err) }
func Contention(resource string, err error) *Fault {
	return New(KindContention, resource, err)
}

// KindOf reports the kind of err, or "" if err carries no Fault.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// IsKind reports whether err is tagged with the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
