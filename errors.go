// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package onisave

import "fmt"

// TruncatedError is returned when a read runs past the end of the input
// buffer. It always carries the cursor offset at the moment of failure.
type TruncatedError struct {
	Offset int64
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("truncated save data at offset 0x%x", e.Offset)
}

// CorruptionError is returned for any malformed-bytes condition: invalid
// identifiers, bad lengths, missing magic markers, descriptor flag
// conflicts, a declared length that doesn't match bytes consumed, failed
// decompression, or failed header JSON parsing.
type CorruptionError struct {
	Message   string
	Offset    int64
	HasOffset bool
}

func (e *CorruptionError) Error() string {
	if e.HasOffset {
		return fmt.Sprintf("corrupt save data: %s (offset 0x%x)", e.Message, e.Offset)
	}
	return fmt.Sprintf("corrupt save data: %s", e.Message)
}

func corrupt(offset int64, format string, args ...any) *CorruptionError {
	return &CorruptionError{Message: fmt.Sprintf(format, args...), Offset: offset, HasOffset: true}
}

func corruptNoOffset(format string, args ...any) *CorruptionError {
	return &CorruptionError{Message: fmt.Sprintf(format, args...)}
}

// VersionMismatchError is returned when the save's major/minor version
// doesn't satisfy the caller's version gate (see LoadOptions).
type VersionMismatchError struct {
	ExpectedMajor int32
	ExpectedMinor int32
	ActualMajor   int32
	ActualMinor   int32
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("save version %d.%d is incompatible, expected %d.%d",
		e.ActualMajor, e.ActualMinor, e.ExpectedMajor, e.ExpectedMinor)
}
