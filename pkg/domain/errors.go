package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCode is returned when an entity without a code is added or validated.
	ErrEmptyCode = errors.New("entity code is required")
	// ErrMissingName is returned when a contact has neither name nor surname.
	ErrMissingName = errors.New("contact name or surname is required")
	// ErrNotFound matches every NotFoundError via errors.Is.
	ErrNotFound = errors.New("entity not found")
	// ErrDuplicateCode matches every DuplicateCodeError via errors.Is.
	ErrDuplicateCode = errors.New("duplicate entity code")
)

// DuplicateCodeError reports an attempt to add an entity whose code already exists.
type DuplicateCodeError struct {
	Entity EntityType
	Code   string
}

func (e DuplicateCodeError) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("%s %q already exists", e.Entity, e.Code)
	}
	return fmt.Sprintf("code %q already exists", e.Code)
}

// Is lets errors.Is match ErrDuplicateCode.
func (e DuplicateCodeError) Is(target error) bool { return target == ErrDuplicateCode }

// NotFoundError reports a lookup for a code that is not present.
type NotFoundError struct {
	Entity EntityType
	Code   string
}

func (e NotFoundError) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("%s %q not found", e.Entity, e.Code)
	}
	return fmt.Sprintf("code %q not found", e.Code)
}

// Is lets errors.Is match ErrNotFound.
func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }
