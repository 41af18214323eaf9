package repository

import "errors"

// ErrNotFound indicates a record was not located.
var ErrNotFound = errors.New("repository: not found")
