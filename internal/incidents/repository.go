package incidents

import (
	"context"

	"github.com/algostatus/statuspage/internal/domain"
	"github.com/jackc/pgx/v5"
)

// Repository defines the interface for incident storage.
type Repository interface {
	GetIncident(ctx context.Context, id string) (*domain.Incident, error)
	ListIncidents(ctx context.Context) ([]domain.Incident, error)

	// Transaction support
	BeginTx(ctx context.Context) (pgx.Tx, error)
	CreateIncidentTx(ctx context.Context, tx pgx.Tx, incident *domain.Incident) error
	// GetIncidentForUpdateTx loads an incident and locks its row until tx ends.
	GetIncidentForUpdateTx(ctx context.Context, tx pgx.Tx, id string) (*domain.Incident, error)
	UpdateIncidentTx(ctx context.Context, tx pgx.Tx, incident *domain.Incident) error
	DeleteIncidentTx(ctx context.Context, tx pgx.Tx, id string) (*domain.Incident, error)
}

// ServiceStatusUpdater sets the derived status of the service an incident names.
// A nil service with a nil error means no service has that name.
type ServiceStatusUpdater interface {
	SetStatusByNameTx(ctx context.Context, tx pgx.Tx, name string, status domain.ServiceStatus) (*domain.Service, error)
}

// Publisher delivers change events to live viewers.
type Publisher interface {
	Publish(ctx context.Context, event domain.LiveEvent, payload interface{})
}
