package domain

// LiveEvent names a change notification pushed to connected viewers.
type LiveEvent string

// Live events. Service events carry a Service payload, incident events an Incident.
const (
	LiveServiceCreated  LiveEvent = "serviceCreated"
	LiveServiceUpdated  LiveEvent = "serviceUpdated"
	LiveServiceDeleted  LiveEvent = "serviceDeleted"
	LiveIncidentCreated LiveEvent = "incidentCreated"
	LiveIncidentUpdated LiveEvent = "incidentUpdated"
	LiveIncidentDeleted LiveEvent = "incidentDeleted"
)
