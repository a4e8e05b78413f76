package domain

import "time"

// ServiceStatus represents the displayed status of a service.
//
// Admins set one of the three coarse labels directly. Incident writes copy the
// incident's impact label into the same field, so a service can also carry any
// Impact value.
type ServiceStatus string

// Service statuses.
const (
	ServiceStatusOperational ServiceStatus = "Operational"
	ServiceStatusDegraded    ServiceStatus = "Degraded"
	ServiceStatusOutage      ServiceStatus = "Outage"
)

// IsValid checks if the service status is one of the admin labels or an impact label.
func (s ServiceStatus) IsValid() bool {
	switch s {
	case ServiceStatusOperational, ServiceStatusDegraded, ServiceStatusOutage:
		return true
	}
	return Impact(s).IsValid()
}

// Service represents a monitored service.
type Service struct {
	ID          string        `json:"_id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      ServiceStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}
