package domain

import "errors"

// ErrUnauthenticated marks credential failures that callers answer with 401.
// Errors without it in their chain are treated as server faults.
var ErrUnauthenticated = errors.New("unauthenticated")
