package model

import "errors"

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrIllegalState is returned when an operation is not legal for the
	// task's current status. Messages wrapping it carry that status.
	ErrIllegalState = errors.New("illegal state")
	// ErrOutOfRange is returned when a numeric parameter is outside its
	// allowed range. Messages wrapping it carry the valid range.
	ErrOutOfRange = errors.New("out of range")
)
