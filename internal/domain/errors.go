package domain

import "errors"

var (
	// ErrNotFound is returned by repositories when the requested row does not
	// exist, including the case where a referenced poll was deleted between
	// validation and write.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller is not the owner of the
	// resource it is trying to mutate.
	ErrForbidden = errors.New("forbidden")
)
