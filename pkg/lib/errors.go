package lib

import "errors"

// Sentinel errors returned by the SDK. The returned errors wrap these with
// operation context, inspect them with [errors.Is].
var (
	// ErrNotFound is returned when the referenced task or platform does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when a task with the same name already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotValid is returned when the input of an operation is invalid
	// (e.g. bounds or zoom levels the platform cannot serve).
	ErrNotValid = errors.New("not valid")

	// ErrIllegalState is returned when an operation is not legal for the
	// task's current status (e.g. pausing a task that is not downloading).
	ErrIllegalState = errors.New("illegal state")

	// ErrOutOfRange is returned when a numeric parameter is outside its
	// allowed range (e.g. parallelism beyond [MaxParallelism]).
	ErrOutOfRange = errors.New("out of range")
)
