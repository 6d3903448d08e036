// Package fserr enumerates the error kinds surfaced by the filesystem
// core. Callers classify failures with errors.Is; sites add context by
// wrapping with fmt.Errorf("...: %w", kind).
package fserr

import "errors"

var (
	// ErrOutOfSpace: no free inode or data block for the request.
	ErrOutOfSpace = errors.New("out of space")

	// ErrNotFound: no directory entry with the requested name.
	ErrNotFound = errors.New("not found")

	// ErrExists: a directory entry with the requested name exists.
	ErrExists = errors.New("already exists")

	// ErrNameTooLong: the name does not fit the fixed entry buffer.
	ErrNameTooLong = errors.New("name too long")

	// ErrInvalidArg: inode or block number outside the valid range.
	ErrInvalidArg = errors.New("invalid argument")

	// ErrCorrupt: on-disk state failed validation (bad magic, invalid
	// mode, out-of-range pointer, inconsistent counts).
	ErrCorrupt = errors.New("corrupt filesystem state")

	// ErrIo: the underlying block read, write, or flush failed. Always
	// fatal to the current operation; never retried.
	ErrIo = errors.New("i/o failure")
)

// ErrDirFull: the parent directory's fixed entry array is full. A member
// of the out-of-space family: errors.Is(err, ErrOutOfSpace) also holds.
var ErrDirFull error = &dirFullError{}

type dirFullError struct{}

func (e *dirFullError) Error() string { return "directory full" }

func (e *dirFullError) Is(target error) bool {
	return target == ErrOutOfSpace
}
