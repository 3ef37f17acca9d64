// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bed

import (
	stderrors "errors"

	"github.com/grailbio/base/errors"
)

// Kind tags the fixed taxonomy of errors this package returns. Unlike
// github.com/grailbio/base/errors.Kind, which is a generic cross-package
// vocabulary (NotExist, Precondition, ...), Kind here names the specific
// failure modes of the .bed format and the subset-read engine.
type Kind int

const (
	// Unknown is the zero Kind; it should never be returned to a caller.
	Unknown Kind = iota
	// NotBed means the magic prefix is absent, or the file is shorter than
	// three bytes.
	NotBed
	// NotSnpMajor means the header's third byte declares individual-major
	// layout, which this package refuses to transpose silently.
	NotSnpMajor
	// Truncated means the declared (iidCount, sidCount) geometry requires
	// more bytes than the file contains (or the file is larger than that
	// geometry implies).
	Truncated
	// IndexOutOfBounds means an index value fell outside [0, n) for its
	// dimension.
	IndexOutOfBounds
	// IndexTooLarge means an index array's length exceeds the positive
	// 32-bit range. The dense path only enforces this as a soft limit.
	IndexTooLarge
	// MetadataLengthMismatch means a caller-supplied property array's length
	// disagrees with a previously established count. Reserved for the
	// higher-level metadata-holding wrapper (fid/iid/sex/... arrays cached
	// alongside a handle); this package's own ReadFam/ReadBim never raise it
	// since they return row counts, not arrays checked against a cache.
	MetadataLengthMismatch
	// UnknownProperty means a property key outside the fixed set of twelve
	// names (the .fam/.bim columns) was requested. Reserved for the same
	// wrapper as MetadataLengthMismatch.
	UnknownProperty
	// UnsupportedDtype means the output (or input, for Write) buffer's
	// element type is not one of i8, f32, f64.
	UnsupportedDtype
	// UnsupportedLayout means the requested layout is neither "F" (column-
	// major) nor "C" (row-major).
	UnsupportedLayout
	// InvalidConfiguration covers non-positive thread counts and other
	// malformed call-time configuration.
	InvalidConfiguration
	// InvalidGenotype means the writer was given a value outside
	// {0, 1, 2, missing}.
	InvalidGenotype
	// IOError wraps an underlying filesystem or transport failure.
	IOError
)

func (k Kind) String() string {
	switch k {
	case NotBed:
		return "NotBed"
	case NotSnpMajor:
		return "NotSnpMajor"
	case Truncated:
		return "Truncated"
	case IndexOutOfBounds:
		return "IndexOutOfBounds"
	case IndexTooLarge:
		return "IndexTooLarge"
	case MetadataLengthMismatch:
		return "MetadataLengthMismatch"
	case UnknownProperty:
		return "UnknownProperty"
	case UnsupportedDtype:
		return "UnsupportedDtype"
	case UnsupportedLayout:
		return "UnsupportedLayout"
	case InvalidConfiguration:
		return "InvalidConfiguration"
	case InvalidGenotype:
		return "InvalidGenotype"
	case IOError:
		return "IOError"
	default:
		return "Unknown"
	}
}

// Error is the error type returned across this package's boundary. It
// mirrors the two-layer shape of *errors.Error (a Kind plus a detail chain
// built by errors.E) used throughout github.com/grailbio/base.
type Error struct {
	Kind Kind
	err  error
}

func (e *Error) Error() string {
	if e.err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.err.Error()
}

func (e *Error) Unwrap() error { return e.err }

// newError builds a Kind-tagged error. args are passed to errors.E verbatim,
// so an underlying error, a path, and free-form context can all be mixed in
// the same call, following the errors.E(err, "context", path) convention.
func newError(kind Kind, args ...interface{}) error {
	return &Error{Kind: kind, err: errors.E(args...)}
}

// Is reports whether err (or any error it wraps) is a *Error of the given
// Kind.
func Is(err error, kind Kind) bool {
	var be *Error
	if stderrors.As(err, &be) {
		return be.Kind == kind
	}
	return false
}
