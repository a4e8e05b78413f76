package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/algostatus/statuspage/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	services map[string]*domain.Service
	nextID     int
	err        error
	lastUpdate *ServiceUpdate
}

func newMockRepository() *mockRepository {
	return &mockRepository{services: make(map[string]*domain.Service)}
}

func (m *mockRepository) nameTaken(name, exceptID string) bool {
	for id, s := range m.services {
		if s.Name == name && id != exceptID {
			return true
		}
	}
	return false
}

func (m *mockRepository) CreateService(_ context.Context, service *domain.Service) error {
	if m.err != nil {
		return m.err
	}
	if m.nameTaken(service.Name, "") {
		return ErrServiceNameExists
	}
	m.nextID++
	service.ID = fmt.Sprintf("svc-%d", m.nextID)
	service.CreatedAt = time.Now()
	service.UpdatedAt = service.CreatedAt
	stored := *service
	m.services[service.ID] = &stored
	return nil
}

func (m *mockRepository) GetServiceByID(_ context.Context, id string) (*domain.Service, error) {
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.services[id]
	if !ok {
		return nil, ErrServiceNotFound
	}
	out := *s
	return &out, nil
}

func (m *mockRepository) ListServices(_ context.Context) ([]domain.Service, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Service, 0, len(m.services))
	for _, s := range m.services {
		out = append(out, *s)
	}
	return out, nil
}

func (m *mockRepository) UpdateService(_ context.Context, id string, update ServiceUpdate) (*domain.Service, error) {
	m.lastUpdate = &update
	if m.err != nil {
		return nil, m.err
	}
	stored, ok := m.services[id]
	if !ok {
		return nil, ErrServiceNotFound
	}
	if update.Name != nil && m.nameTaken(*update.Name, id) {
		return nil, ErrServiceNameExists
	}
	if update.Name != nil {
		stored.Name = *update.Name
	}
	if update.Description != nil {
		stored.Description = *update.Description
	}
	if update.Status != nil {
		stored.Status = *update.Status
	}
	stored.UpdatedAt = time.Now()
	out := *stored
	return &out, nil
}

func (m *mockRepository) DeleteService(_ context.Context, id string) (*domain.Service, error) {
	s, ok := m.services[id]
	if !ok {
		return nil, ErrServiceNotFound
	}
	delete(m.services, id)
	return s, nil
}

func (m *mockRepository) SetServiceStatusByNameTx(_ context.Context, _ pgx.Tx, name string, status domain.ServiceStatus) (*domain.Service, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, s := range m.services {
		if s.Name == name {
			s.Status = status
			out := *s
			return &out, nil
		}
	}
	return nil, ErrServiceNotFound
}

type publishedEvent struct {
	event   domain.LiveEvent
	payload interface{}
}

// mockPublisher records published events.
type mockPublisher struct {
	events []publishedEvent
}

func (m *mockPublisher) Publish(_ context.Context, event domain.LiveEvent, payload interface{}) {
	m.events = append(m.events, publishedEvent{event: event, payload: payload})
}

func (m *mockPublisher) names() []domain.LiveEvent {
	names := make([]domain.LiveEvent, 0, len(m.events))
	for _, e := range m.events {
		names = append(names, e.event)
	}
	return names
}

func newTestService() (*Service, *mockRepository, *mockPublisher) {
	repo := newMockRepository()
	pub := &mockPublisher{}
	return NewService(repo, pub), repo, pub
}

func TestCreateService_DefaultsToOperational(t *testing.T) {
	// Arrange
	svc, _, pub := newTestService()

	// Act
	service, err := svc.CreateService(context.Background(), CreateServiceInput{
		Name:        "API Gateway",
		Description: "Edge routing",
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.ServiceStatusOperational, service.Status)
	assert.NotEmpty(t, service.ID)
	assert.Equal(t, []domain.LiveEvent{domain.LiveServiceCreated}, pub.names())
	assert.Same(t, service, pub.events[0].payload)
}

func TestCreateService_DuplicateName(t *testing.T) {
	svc, _, pub := newTestService()
	input := CreateServiceInput{Name: "API Gateway", Description: "Edge routing"}

	_, firstErr := svc.CreateService(context.Background(), input)
	_, secondErr := svc.CreateService(context.Background(), input)

	require.NoError(t, firstErr)
	assert.ErrorIs(t, secondErr, ErrServiceNameExists)
	assert.Len(t, pub.events, 1)
}

func TestCreateService_Validation(t *testing.T) {
	tests := []struct {
		name    string
		input   CreateServiceInput
		wantErr error
	}{
		{
			name:    "missing name",
			input:   CreateServiceInput{Description: "Edge routing"},
			wantErr: ErrMissingFields,
		},
		{
			name:    "missing description",
			input:   CreateServiceInput{Name: "API Gateway"},
			wantErr: ErrMissingFields,
		},
		{
			name:    "unknown status",
			input:   CreateServiceInput{Name: "API Gateway", Description: "Edge routing", Status: "Sleeping"},
			wantErr: ErrInvalidStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, pub := newTestService()

			_, err := svc.CreateService(context.Background(), tt.input)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, pub.events)
		})
	}
}

func TestCreateService_AcceptsImpactLabel(t *testing.T) {
	svc, _, _ := newTestService()

	service, err := svc.CreateService(context.Background(), CreateServiceInput{
		Name:        "Search",
		Description: "Full text search",
		Status:      domain.ServiceStatus(domain.ImpactUnderMaintenance),
	})

	require.NoError(t, err)
	assert.Equal(t, domain.ServiceStatus("Under Maintenance"), service.Status)
}

func TestGetService_RoundTrip(t *testing.T) {
	svc, _, _ := newTestService()
	created, err := svc.CreateService(context.Background(), CreateServiceInput{
		Name:        "API Gateway",
		Description: "Edge routing",
		Status:      domain.ServiceStatusDegraded,
	})
	require.NoError(t, err)

	got, err := svc.GetService(context.Background(), created.ID)

	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)
	assert.Equal(t, created.Description, got.Description)
	assert.Equal(t, created.Status, got.Status)
}

func TestDeleteService_ThenGetIsNotFound(t *testing.T) {
	svc, _, pub := newTestService()
	created, err := svc.CreateService(context.Background(), CreateServiceInput{Name: "API Gateway", Description: "Edge routing"})
	require.NoError(t, err)

	deleted, err := svc.DeleteService(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)

	_, err = svc.GetService(context.Background(), created.ID)
	assert.ErrorIs(t, err, ErrServiceNotFound)
	assert.Equal(t, []domain.LiveEvent{domain.LiveServiceCreated, domain.LiveServiceDeleted}, pub.names())
}

func TestDeleteService_NotFound(t *testing.T) {
	svc, _, pub := newTestService()

	_, err := svc.DeleteService(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrServiceNotFound)
	assert.Empty(t, pub.events)
}

func TestUpdateService_Partial(t *testing.T) {
	// Arrange
	svc, _, pub := newTestService()
	created, err := svc.CreateService(context.Background(), CreateServiceInput{Name: "API Gateway", Description: "Edge routing"})
	require.NoError(t, err)
	status := domain.ServiceStatusOutage

	// Act
	updated, err := svc.UpdateService(context.Background(), created.ID, UpdateServiceInput{Status: &status})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "API Gateway", updated.Name)
	assert.Equal(t, "Edge routing", updated.Description)
	assert.Equal(t, domain.ServiceStatusOutage, updated.Status)
	assert.Equal(t, []domain.LiveEvent{domain.LiveServiceCreated, domain.LiveServiceUpdated}, pub.names())
}

func TestUpdateService_Errors(t *testing.T) {
	svc, _, _ := newTestService()
	first, err := svc.CreateService(context.Background(), CreateServiceInput{Name: "API Gateway", Description: "Edge routing"})
	require.NoError(t, err)
	_, err = svc.CreateService(context.Background(), CreateServiceInput{Name: "Search", Description: "Full text search"})
	require.NoError(t, err)

	taken := "Search"
	empty := " "
	bad := domain.ServiceStatus("Sleeping")

	tests := []struct {
		name    string
		id      string
		input   UpdateServiceInput
		wantErr error
	}{
		{name: "not found", id: "missing", input: UpdateServiceInput{}, wantErr: ErrServiceNotFound},
		{name: "name collision", id: first.ID, input: UpdateServiceInput{Name: &taken}, wantErr: ErrServiceNameExists},
		{name: "blank name", id: first.ID, input: UpdateServiceInput{Name: &empty}, wantErr: ErrMissingFields},
		{name: "invalid status", id: first.ID, input: UpdateServiceInput{Status: &bad}, wantErr: ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateService(context.Background(), tt.id, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUpdateService_NameOnlyKeepsCascadedStatus(t *testing.T) {
	// Arrange
	svc, repo, _ := newTestService()
	created, err := svc.CreateService(context.Background(), CreateServiceInput{Name: "API Gateway", Description: "Edge routing"})
	require.NoError(t, err)
	_, err = repo.SetServiceStatusByNameTx(context.Background(), nil, "API Gateway", domain.ServiceStatusOutage)
	require.NoError(t, err)
	renamed := "Edge Gateway"

	// Act
	updated, err := svc.UpdateService(context.Background(), created.ID, UpdateServiceInput{Name: &renamed})

	// Assert
	require.NoError(t, err)
	require.NotNil(t, repo.lastUpdate)
	assert.Nil(t, repo.lastUpdate.Status)
	assert.Nil(t, repo.lastUpdate.Description)
	assert.Equal(t, "Edge Gateway", updated.Name)
	assert.Equal(t, domain.ServiceStatusOutage, updated.Status)
}

func TestUpdateService_InvalidInputSkipsStore(t *testing.T) {
	svc, repo, pub := newTestService()
	bad := domain.ServiceStatus("Sleeping")

	_, err := svc.UpdateService(context.Background(), "svc-1", UpdateServiceInput{Status: &bad})

	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Nil(t, repo.lastUpdate)
	assert.Empty(t, pub.events)
}

func TestUpdateService_KeepsOwnName(t *testing.T) {
	svc, _, _ := newTestService()
	created, err := svc.CreateService(context.Background(), CreateServiceInput{Name: "API Gateway", Description: "Edge routing"})
	require.NoError(t, err)
	same := "API Gateway"

	_, err = svc.UpdateService(context.Background(), created.ID, UpdateServiceInput{Name: &same})

	assert.NoError(t, err)
}

func TestSetStatusByNameTx(t *testing.T) {
	svc, repo, pub := newTestService()
	created, err := svc.CreateService(context.Background(), CreateServiceInput{Name: "API Gateway", Description: "Edge routing"})
	require.NoError(t, err)
	pub.events = nil

	t.Run("matching name", func(t *testing.T) {
		service, err := svc.SetStatusByNameTx(context.Background(), nil, "API Gateway", domain.ServiceStatus(domain.ImpactMajorOutage))

		require.NoError(t, err)
		require.NotNil(t, service)
		assert.Equal(t, domain.ServiceStatus("Major Outage"), repo.services[created.ID].Status)
	})

	t.Run("name match is case sensitive", func(t *testing.T) {
		service, err := svc.SetStatusByNameTx(context.Background(), nil, "api gateway", domain.ServiceStatusOperational)

		require.NoError(t, err)
		assert.Nil(t, service)
	})

	t.Run("store failure", func(t *testing.T) {
		repo.err = errors.New("connection reset")
		defer func() { repo.err = nil }()

		_, err := svc.SetStatusByNameTx(context.Background(), nil, "API Gateway", domain.ServiceStatusOperational)

		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrServiceNotFound)
	})

	assert.Empty(t, pub.events)
}
