// Package postgres provides PostgreSQL implementation of the catalog repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/algostatus/statuspage/internal/catalog"
	"github.com/algostatus/statuspage/internal/domain"
	pgutil "github.com/algostatus/statuspage/internal/pkg/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const serviceColumns = `id, name, description, status, created_at, updated_at`

// Repository implements the catalog.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanService(row pgx.Row) (*domain.Service, error) {
	var service domain.Service
	err := row.Scan(
		&service.ID,
		&service.Name,
		&service.Description,
		&service.Status,
		&service.CreatedAt,
		&service.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &service, nil
}

// CreateService inserts a service and fills its generated fields.
func (r *Repository) CreateService(ctx context.Context, service *domain.Service) error {
	query := `
		INSERT INTO services (name, description, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		service.Name,
		service.Description,
		service.Status,
	).Scan(&service.ID, &service.CreatedAt, &service.UpdatedAt)

	if err != nil {
		if pgutil.IsUniqueViolation(err) {
			return catalog.ErrServiceNameExists
		}
		return fmt.Errorf("insert service: %w", err)
	}
	return nil
}

// GetServiceByID retrieves a service by its ID.
func (r *Repository) GetServiceByID(ctx context.Context, id string) (*domain.Service, error) {
	if !pgutil.IsValidID(id) {
		return nil, catalog.ErrServiceNotFound
	}

	query := `SELECT ` + serviceColumns + ` FROM services WHERE id = $1`
	service, err := scanService(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrServiceNotFound
		}
		return nil, fmt.Errorf("select service by id: %w", err)
	}
	return service, nil
}

// ListServices retrieves all services in creation order.
func (r *Repository) ListServices(ctx context.Context) ([]domain.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services ORDER BY created_at, name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	services := make([]domain.Service, 0)
	for rows.Next() {
		service, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, *service)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}
	return services, nil
}

// UpdateService writes the fields set in update and returns the stored row.
func (r *Repository) UpdateService(ctx context.Context, id string, update catalog.ServiceUpdate) (*domain.Service, error) {
	if !pgutil.IsValidID(id) {
		return nil, catalog.ErrServiceNotFound
	}

	query := `
		UPDATE services
		SET name = COALESCE($2, name),
			description = COALESCE($3, description),
			status = COALESCE($4, status),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + serviceColumns
	service, err := scanService(r.db.QueryRow(ctx, query,
		id,
		update.Name,
		update.Description,
		update.Status,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrServiceNotFound
		}
		if pgutil.IsUniqueViolation(err) {
			return nil, catalog.ErrServiceNameExists
		}
		return nil, fmt.Errorf("update service: %w", err)
	}
	return service, nil
}

// DeleteService deletes a service by its ID and returns the removed row.
func (r *Repository) DeleteService(ctx context.Context, id string) (*domain.Service, error) {
	if !pgutil.IsValidID(id) {
		return nil, catalog.ErrServiceNotFound
	}

	query := `DELETE FROM services WHERE id = $1 RETURNING ` + serviceColumns
	service, err := scanService(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrServiceNotFound
		}
		return nil, fmt.Errorf("delete service: %w", err)
	}
	return service, nil
}

// SetServiceStatusByNameTx updates the status of the named service within a transaction.
func (r *Repository) SetServiceStatusByNameTx(ctx context.Context, tx pgx.Tx, name string, status domain.ServiceStatus) (*domain.Service, error) {
	query := `
		UPDATE services SET status = $2, updated_at = NOW()
		WHERE name = $1
		RETURNING ` + serviceColumns
	service, err := scanService(tx.QueryRow(ctx, query, name, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrServiceNotFound
		}
		return nil, fmt.Errorf("update service status: %w", err)
	}
	return service, nil
}
