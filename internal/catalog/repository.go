package catalog

import (
	"context"

	"github.com/algostatus/statuspage/internal/domain"
	"github.com/jackc/pgx/v5"
)

// Repository defines the interface for service data operations.
type Repository interface {
	CreateService(ctx context.Context, service *domain.Service) error
	GetServiceByID(ctx context.Context, id string) (*domain.Service, error)
	ListServices(ctx context.Context) ([]domain.Service, error)

	// UpdateService writes only the non-nil fields of update and returns the
	// resulting row. Columns left nil keep whatever value is stored.
	UpdateService(ctx context.Context, id string, update ServiceUpdate) (*domain.Service, error)
	DeleteService(ctx context.Context, id string) (*domain.Service, error)

	// SetServiceStatusByNameTx sets the status of the service with the given
	// exact name inside tx and returns the updated row.
	SetServiceStatusByNameTx(ctx context.Context, tx pgx.Tx, name string, status domain.ServiceStatus) (*domain.Service, error)
}

// ServiceUpdate is a column-level partial update. Nil fields are left untouched.
type ServiceUpdate struct {
	Name        *string
	Description *string
	Status      *domain.ServiceStatus
}
