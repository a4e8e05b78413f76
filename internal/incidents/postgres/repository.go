// Package postgres provides PostgreSQL implementation of the incidents repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/algostatus/statuspage/internal/domain"
	"github.com/algostatus/statuspage/internal/incidents"
	pgutil "github.com/algostatus/statuspage/internal/pkg/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const incidentColumns = `id, service_name, type, description, status, impact_on_service, resolved_at, created_at, updated_at`

// Repository implements incidents.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanIncident(row pgx.Row) (*domain.Incident, error) {
	var incident domain.Incident
	err := row.Scan(
		&incident.ID,
		&incident.ServiceName,
		&incident.Type,
		&incident.Description,
		&incident.Status,
		&incident.ImpactOnService,
		&incident.ResolvedAt,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &incident, nil
}

func notFound(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return incidents.ErrIncidentNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// GetIncident retrieves an incident by ID.
func (r *Repository) GetIncident(ctx context.Context, id string) (*domain.Incident, error) {
	if !pgutil.IsValidID(id) {
		return nil, incidents.ErrIncidentNotFound
	}

	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1`
	incident, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "select incident")
	}
	return incident, nil
}

// ListIncidents retrieves all incidents, newest first.
func (r *Repository) ListIncidents(ctx context.Context) ([]domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		result = append(result, *incident)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incidents: %w", err)
	}
	return result, nil
}

// BeginTx starts a new transaction.
func (r *Repository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.db.Begin(ctx)
}

// CreateIncidentTx inserts an incident within a transaction.
func (r *Repository) CreateIncidentTx(ctx context.Context, tx pgx.Tx, incident *domain.Incident) error {
	query := `
		INSERT INTO incidents (service_name, type, description, status, impact_on_service, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := tx.QueryRow(ctx, query,
		incident.ServiceName,
		incident.Type,
		incident.Description,
		incident.Status,
		incident.ImpactOnService,
		incident.ResolvedAt,
	).Scan(&incident.ID, &incident.CreatedAt, &incident.UpdatedAt)

	if err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}
	return nil
}

// GetIncidentForUpdateTx retrieves an incident and locks its row.
func (r *Repository) GetIncidentForUpdateTx(ctx context.Context, tx pgx.Tx, id string) (*domain.Incident, error) {
	if !pgutil.IsValidID(id) {
		return nil, incidents.ErrIncidentNotFound
	}

	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1 FOR UPDATE`
	incident, err := scanIncident(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "select incident for update")
	}
	return incident, nil
}

// UpdateIncidentTx writes the mutable incident fields and refreshes updated_at.
func (r *Repository) UpdateIncidentTx(ctx context.Context, tx pgx.Tx, incident *domain.Incident) error {
	query := `
		UPDATE incidents
		SET status = $2, impact_on_service = $3, resolved_at = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := tx.QueryRow(ctx, query,
		incident.ID,
		incident.Status,
		incident.ImpactOnService,
		incident.ResolvedAt,
	).Scan(&incident.UpdatedAt)

	if err != nil {
		return notFound(err, "update incident")
	}
	return nil
}

// DeleteIncidentTx deletes an incident and returns the removed row.
func (r *Repository) DeleteIncidentTx(ctx context.Context, tx pgx.Tx, id string) (*domain.Incident, error) {
	if !pgutil.IsValidID(id) {
		return nil, incidents.ErrIncidentNotFound
	}

	query := `DELETE FROM incidents WHERE id = $1 RETURNING ` + incidentColumns
	incident, err := scanIncident(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "delete incident")
	}
	return incident, nil
}
