package domain

import "time"

// IncidentType distinguishes unplanned incidents from planned maintenance.
type IncidentType string

// Incident types.
const (
	IncidentTypeIncident    IncidentType = "Incident"
	IncidentTypeMaintenance IncidentType = "Maintenance"
)

// IsValid checks if the incident type is valid.
func (t IncidentType) IsValid() bool {
	return t == IncidentTypeIncident || t == IncidentTypeMaintenance
}

// IncidentStatus represents the lifecycle status of an incident.
// Any status may be written at any time; transitions are not enforced.
type IncidentStatus string

// Incident statuses.
const (
	IncidentStatusOpen       IncidentStatus = "Open"
	IncidentStatusInProgress IncidentStatus = "In Progress"
	IncidentStatusResolved   IncidentStatus = "Resolved"
)

// IsValid checks if the incident status is valid.
func (s IncidentStatus) IsValid() bool {
	switch s {
	case IncidentStatusOpen, IncidentStatusInProgress, IncidentStatusResolved:
		return true
	}
	return false
}

// IsResolved reports whether the status closes the incident.
func (s IncidentStatus) IsResolved() bool {
	return s == IncidentStatusResolved
}

// Impact describes how an incident affects its service.
type Impact string

// Impact levels.
const (
	ImpactOperational         Impact = "Operational"
	ImpactPartialOutage       Impact = "Partial Outage"
	ImpactDegradedPerformance Impact = "Degraded Performance"
	ImpactMajorOutage         Impact = "Major Outage"
	ImpactUnderMaintenance    Impact = "Under Maintenance"
)

// IsValid checks if the impact is valid.
func (i Impact) IsValid() bool {
	switch i {
	case ImpactOperational, ImpactPartialOutage, ImpactDegradedPerformance,
		ImpactMajorOutage, ImpactUnderMaintenance:
		return true
	}
	return false
}

// ServiceStatus returns the service status an incident with this impact imposes.
func (i Impact) ServiceStatus() ServiceStatus {
	return ServiceStatus(i)
}

// Incident represents an incident or a maintenance window on a service.
// ServiceName references Service.Name by exact string match.
type Incident struct {
	ID              string         `json:"_id"`
	ServiceName     string         `json:"serviceName"`
	Type            IncidentType   `json:"type"`
	Description     string         `json:"description"`
	Status          IncidentStatus `json:"status"`
	ImpactOnService Impact         `json:"impactOnService"`
	ResolvedAt      *time.Time     `json:"resolvedAt,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}
