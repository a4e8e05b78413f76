package catalog

import "errors"

// Catalog errors.
var (
	ErrServiceNotFound   = errors.New("service not found")
	ErrServiceNameExists = errors.New("service name already exists")
	ErrInvalidStatus     = errors.New("invalid service status")
	ErrMissingFields     = errors.New("name and description are required")
)
