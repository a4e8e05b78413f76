package incidents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/algostatus/statuspage/internal/domain"
	"github.com/algostatus/statuspage/internal/pkg/ctxlog"
	"github.com/jackc/pgx/v5"
)

// MinDescriptionLength is the shortest accepted incident description, in characters.
const MinDescriptionLength = 10

// Service implements incident business logic, including the service status cascade.
type Service struct {
	repo      Repository
	services  ServiceStatusUpdater
	publisher Publisher
}

// NewService creates a new incident service.
func NewService(repo Repository, services ServiceStatusUpdater, publisher Publisher) *Service {
	return &Service{
		repo:      repo,
		services:  services,
		publisher: publisher,
	}
}

// CreateIncidentInput holds data for creating an incident.
type CreateIncidentInput struct {
	ServiceName     string
	Type            domain.IncidentType
	Description     string
	Status          domain.IncidentStatus
	ImpactOnService domain.Impact
}

// UpdateIncidentInput holds a partial incident update. Nil fields keep their value.
type UpdateIncidentInput struct {
	Status          *domain.IncidentStatus
	ImpactOnService *domain.Impact
	ResolvedAt      *time.Time
}

func (in CreateIncidentInput) validate() error {
	if strings.TrimSpace(in.ServiceName) == "" || in.Type == "" ||
		strings.TrimSpace(in.Description) == "" || in.ImpactOnService == "" {
		return ErrMissingFields
	}
	if !in.Type.IsValid() {
		return ErrInvalidType
	}
	if !in.ImpactOnService.IsValid() {
		return ErrInvalidImpact
	}
	if in.Status != "" && !in.Status.IsValid() {
		return ErrInvalidStatus
	}
	if utf8.RuneCountInString(in.Description) < MinDescriptionLength {
		return ErrDescriptionTooShort
	}
	return nil
}

func (in UpdateIncidentInput) validate() error {
	if in.Status != nil && !in.Status.IsValid() {
		return ErrInvalidStatus
	}
	if in.ImpactOnService != nil && !in.ImpactOnService.IsValid() {
		return ErrInvalidImpact
	}
	return nil
}

// cascadeStatus returns the service status an update imposes, if any.
// Resolving takes priority over a simultaneously supplied impact.
func (in UpdateIncidentInput) cascadeStatus() (domain.ServiceStatus, bool) {
	if in.Status != nil && in.Status.IsResolved() {
		return domain.ServiceStatusOperational, true
	}
	if in.ImpactOnService != nil {
		return in.ImpactOnService.ServiceStatus(), true
	}
	return "", false
}

func authorize(principal *domain.Principal, serviceName string) error {
	if principal != nil && !principal.CanManageService(serviceName) {
		return ErrForbidden
	}
	return nil
}

func rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		ctxlog.FromContext(ctx).Error("failed to rollback transaction", "error", err)
	}
}

// CreateIncident records an incident and sets the named service's status to its impact.
// A missing service is not an error; only incidentCreated is published then.
// A nil principal skips the per-service authorization check.
func (s *Service) CreateIncident(ctx context.Context, principal *domain.Principal, input CreateIncidentInput) (*domain.Incident, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if err := authorize(principal, input.ServiceName); err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = domain.IncidentStatusOpen
	}

	incident := &domain.Incident{
		ServiceName:     input.ServiceName,
		Type:            input.Type,
		Description:     input.Description,
		Status:          status,
		ImpactOnService: input.ImpactOnService,
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	if err := s.repo.CreateIncidentTx(ctx, tx, incident); err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}

	service, err := s.services.SetStatusByNameTx(ctx, tx, incident.ServiceName, incident.ImpactOnService.ServiceStatus())
	if err != nil {
		return nil, fmt.Errorf("cascade service status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	ctxlog.FromContext(ctx).Info("incident created",
		"incident_id", incident.ID,
		"service_name", incident.ServiceName,
		"impact", incident.ImpactOnService,
		"service_found", service != nil,
	)

	s.publisher.Publish(ctx, domain.LiveIncidentCreated, incident)
	if service != nil {
		s.publisher.Publish(ctx, domain.LiveServiceUpdated, service)
	}
	return incident, nil
}

// GetIncident returns an incident by ID.
func (s *Service) GetIncident(ctx context.Context, id string) (*domain.Incident, error) {
	incident, err := s.repo.GetIncident(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get incident: %w", err)
	}
	return incident, nil
}

// ListIncidents returns all incidents.
func (s *Service) ListIncidents(ctx context.Context) ([]domain.Incident, error) {
	incidents, err := s.repo.ListIncidents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	return incidents, nil
}

// UpdateIncident applies a partial update and cascades the result to the service.
//
// Setting status to Resolved forces the service to Operational, even when an
// impact is supplied in the same call. Otherwise a supplied impact becomes the
// service status. Without either, the service is left alone.
func (s *Service) UpdateIncident(ctx context.Context, principal *domain.Principal, id string, input UpdateIncidentInput) (*domain.Incident, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	incident, err := s.repo.GetIncidentForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("get incident: %w", err)
	}
	if err := authorize(principal, incident.ServiceName); err != nil {
		return nil, err
	}

	if input.Status != nil {
		incident.Status = *input.Status
	}
	if input.ImpactOnService != nil {
		incident.ImpactOnService = *input.ImpactOnService
	}
	if input.ResolvedAt != nil {
		incident.ResolvedAt = input.ResolvedAt
	} else if input.Status != nil && input.Status.IsResolved() && incident.ResolvedAt == nil {
		now := time.Now().UTC()
		incident.ResolvedAt = &now
	}

	if err := s.repo.UpdateIncidentTx(ctx, tx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}

	var service *domain.Service
	if status, ok := input.cascadeStatus(); ok {
		service, err = s.services.SetStatusByNameTx(ctx, tx, incident.ServiceName, status)
		if err != nil {
			return nil, fmt.Errorf("cascade service status: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	ctxlog.FromContext(ctx).Info("incident updated",
		"incident_id", incident.ID,
		"status", incident.Status,
		"service_updated", service != nil,
	)

	s.publisher.Publish(ctx, domain.LiveIncidentUpdated, incident)
	if service != nil {
		s.publisher.Publish(ctx, domain.LiveServiceUpdated, service)
	}
	return incident, nil
}

// DeleteIncident removes an incident and resets its service to Operational.
// The reset happens even when other open incidents still name the service.
func (s *Service) DeleteIncident(ctx context.Context, principal *domain.Principal, id string) (*domain.Incident, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	incident, err := s.repo.GetIncidentForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("get incident: %w", err)
	}
	if err := authorize(principal, incident.ServiceName); err != nil {
		return nil, err
	}

	deleted, err := s.repo.DeleteIncidentTx(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("delete incident: %w", err)
	}

	service, err := s.services.SetStatusByNameTx(ctx, tx, deleted.ServiceName, domain.ServiceStatusOperational)
	if err != nil {
		return nil, fmt.Errorf("reset service status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	ctxlog.FromContext(ctx).Info("incident deleted",
		"incident_id", deleted.ID,
		"service_name", deleted.ServiceName,
		"service_reset", service != nil,
	)

	s.publisher.Publish(ctx, domain.LiveIncidentDeleted, deleted)
	if service != nil {
		s.publisher.Publish(ctx, domain.LiveServiceUpdated, service)
	}
	return deleted, nil
}
