package interfaces

import "errors"

// ErrNotFound is the identity shared by the not-found errors of every backend
var ErrNotFound = errors.New("not found")
