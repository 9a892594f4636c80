// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrDuplicate signals that a unique key (email, slug,
// verification code) is already taken, while ErrInvalidReference means a
// write named a related row that does not exist.
package repository

import (
	"errors"
	"strings"
)

// ErrDuplicate is returned when an insert or update violates a unique
// index.
var ErrDuplicate = errors.New("duplicate entry")

// isDuplicate recognises unique-key violations from MySQL (error 1062)
// and SQLite.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "1062") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "UNIQUE constraint")
}

// ErrInvalidReference is returned when a write names a related row (a
// product, user or expedition) that does not exist.
var ErrInvalidReference = errors.New("referenced row does not exist")

// isForeignKey recognises foreign-key violations from MySQL (error 1452)
// and SQLite.
func isForeignKey(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "1452") || strings.Contains(msg, "FOREIGN KEY constraint")
}
