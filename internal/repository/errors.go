// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// reservation engine to distinguish between different failure scenarios
// without inspecting driver specific errors.
package repository

import "errors"

// ErrNotFound is returned when a lookup by key matches no row.  The engine
// translates it into the domain specific not-found error for the entity.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write cannot be applied because the row
// changed underneath the caller or a unique index rejected it, such as a
// second confirmed booking for the same order.
var ErrConflict = errors.New("conflict")
