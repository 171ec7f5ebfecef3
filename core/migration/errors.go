// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package migration

import (
	"github.com/juju/errors"
)

const (
	// TransportError is the kind of errors raised when the conversion
	// host, the source hypervisor or the cloud API cannot be reached.
	TransportError = errors.ConstError("transport error")

	// ConversionError is the kind of errors raised when the conversion
	// script reported output on its error stream.
	ConversionError = errors.ConstError("conversion error")

	// DependencyError is the kind of errors raised when a resource
	// required by a provisioning step does not resolve.
	DependencyError = errors.ConstError("dependency error")

	// ProvisioningError is the kind of errors raised when the cloud
	// control plane rejects a create request.
	ProvisioningError = errors.ConstError("provisioning error")

	// PowerOffTimeout is the kind of errors raised when the source
	// machine did not power off within the allowed time.
	PowerOffTimeout = errors.ConstError("power off timeout")
)

// kindError tags an error with one of the kinds above without changing
// its message.
type kindError struct {
	kind errors.ConstError
	err  error
}

// Error is part of the error interface.
func (e *kindError) Error() string {
	return e.err.Error()
}

// Unwrap returns the tagged error.
func (e *kindError) Unwrap() error {
	return e.err
}

// Is reports whether target is the kind this error is tagged with.
func (e *kindError) Is(target error) bool {
	kind, ok := target.(errors.ConstError)
	return ok && kind == e.kind
}

// WithKind tags err with the given kind so that errors.Is(err, kind)
// holds. A nil err returns nil.
func WithKind(err error, kind errors.ConstError) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: err}
}

// KindOf returns the first known kind err is tagged with, or the empty
// string.
func KindOf(err error) errors.ConstError {
	for _, kind := range []errors.ConstError{
		TransportError, ConversionError, DependencyError, ProvisioningError, PowerOffTimeout,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ""
}
