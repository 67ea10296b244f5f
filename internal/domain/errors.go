// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateTitle indicates a task with the same title already exists in the target collection.
var ErrDuplicateTitle = errors.New("duplicate title")

// ErrValidation indicates malformed input reached the domain.
var ErrValidation = errors.New("validation")

// ErrCorrupt indicates persisted state exists but cannot be decoded or fails its integrity check.
var ErrCorrupt = errors.New("corrupt snapshot")
