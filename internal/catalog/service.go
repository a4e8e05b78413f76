package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/algostatus/statuspage/internal/domain"
	"github.com/algostatus/statuspage/internal/pkg/ctxlog"
	"github.com/jackc/pgx/v5"
)

// Publisher delivers change events to live viewers.
type Publisher interface {
	Publish(ctx context.Context, event domain.LiveEvent, payload interface{})
}

// Service implements business logic for status page services.
type Service struct {
	repo      Repository
	publisher Publisher
}

// NewService creates a new catalog service.
func NewService(repo Repository, publisher Publisher) *Service {
	return &Service{repo: repo, publisher: publisher}
}

// CreateServiceInput holds data for creating a service.
type CreateServiceInput struct {
	Name        string
	Description string
	Status      domain.ServiceStatus
}

// UpdateServiceInput holds a partial service update. Nil fields keep their value.
type UpdateServiceInput struct {
	Name        *string
	Description *string
	Status      *domain.ServiceStatus
}

// CreateService creates a service, defaulting its status to Operational.
func (s *Service) CreateService(ctx context.Context, input CreateServiceInput) (*domain.Service, error) {
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Description) == "" {
		return nil, ErrMissingFields
	}

	status := input.Status
	if status == "" {
		status = domain.ServiceStatusOperational
	}
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}

	service := &domain.Service{
		Name:        input.Name,
		Description: input.Description,
		Status:      status,
	}
	if err := s.repo.CreateService(ctx, service); err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}

	s.publisher.Publish(ctx, domain.LiveServiceCreated, service)
	return service, nil
}

// GetService returns a service by ID.
func (s *Service) GetService(ctx context.Context, id string) (*domain.Service, error) {
	service, err := s.repo.GetServiceByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	return service, nil
}

// ListServices returns all services.
func (s *Service) ListServices(ctx context.Context) ([]domain.Service, error) {
	services, err := s.repo.ListServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return services, nil
}

// UpdateService applies a partial update to a service.
// Only supplied fields are written, so an edit without a status keeps the
// status last set by an incident.
func (s *Service) UpdateService(ctx context.Context, id string, input UpdateServiceInput) (*domain.Service, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, ErrMissingFields
	}
	if input.Description != nil && strings.TrimSpace(*input.Description) == "" {
		return nil, ErrMissingFields
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, ErrInvalidStatus
	}

	service, err := s.repo.UpdateService(ctx, id, ServiceUpdate{
		Name:        input.Name,
		Description: input.Description,
		Status:      input.Status,
	})
	if err != nil {
		return nil, fmt.Errorf("update service: %w", err)
	}

	s.publisher.Publish(ctx, domain.LiveServiceUpdated, service)
	return service, nil
}

// DeleteService removes a service and returns the deleted record.
// Incidents that reference the service by name are left untouched.
func (s *Service) DeleteService(ctx context.Context, id string) (*domain.Service, error) {
	service, err := s.repo.DeleteService(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delete service: %w", err)
	}

	s.publisher.Publish(ctx, domain.LiveServiceDeleted, service)
	return service, nil
}

// SetStatusByNameTx sets the status of the named service inside tx.
// It returns nil without error when no service has that name.
// No event is published; the caller publishes after commit.
func (s *Service) SetStatusByNameTx(ctx context.Context, tx pgx.Tx, name string, status domain.ServiceStatus) (*domain.Service, error) {
	service, err := s.repo.SetServiceStatusByNameTx(ctx, tx, name, status)
	if errors.Is(err, ErrServiceNotFound) {
		ctxlog.FromContext(ctx).Debug("no service matches incident", "service_name", name)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("set service status: %w", err)
	}
	return service, nil
}
