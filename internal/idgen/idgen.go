package idgen

import "github.com/google/uuid"

// NewFunc produces a new globally unique identifier. Override in tests for
// deterministic task ids.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new globally unique identifier as string.
func New() string { return NewFunc() }
