package incidents

import "errors"

// Incident errors.
var (
	ErrIncidentNotFound    = errors.New("incident not found")
	ErrMissingFields       = errors.New("missing required fields")
	ErrInvalidType         = errors.New("invalid incident type")
	ErrInvalidStatus       = errors.New("invalid incident status")
	ErrInvalidImpact       = errors.New("invalid impact on service")
	ErrDescriptionTooShort = errors.New("description must be at least 10 characters")
	ErrForbidden           = errors.New("not allowed to manage incidents for this service")
)
