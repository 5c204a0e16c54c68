package registry

import "errors"

var (
	// ErrNotFound indicates the requested model name is not published.
	ErrNotFound = errors.New("model not found")

	// ErrAlreadyExists indicates a create collided with a published name.
	ErrAlreadyExists = errors.New("model already exists")

	// ErrNoMergeSource indicates none of a merge's named sources resolved.
	ErrNoMergeSource = errors.New("no merge source resolved")
)
