package testutil

import (
	"context"
	"fmt"
	"os"

	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// postgresImageEnv overrides the database image used by integration tests.
const postgresImageEnv = "STATUSPAGE_TEST_POSTGRES_IMAGE"

const defaultPostgresImage = "postgres:16-alpine"

// PostgresContainer is a throwaway database for integration tests.
type PostgresContainer struct {
	*postgres.PostgresContainer
	ConnectionString string
}

// NewPostgresContainer starts a database and waits until it accepts connections.
// Schema setup is left to the application's migration runner.
func NewPostgresContainer(ctx context.Context) (*PostgresContainer, error) {
	image := os.Getenv(postgresImageEnv)
	if image == "" {
		image = defaultPostgresImage
	}

	container, err := postgres.Run(ctx, image,
		postgres.WithDatabase("statuspage"),
		postgres.WithUsername("statuspage"),
		postgres.WithPassword("statuspage"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres container %s: %w", image, err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, fmt.Errorf("get connection string: %w", err)
	}

	return &PostgresContainer{
		PostgresContainer: container,
		ConnectionString:  connStr,
	}, nil
}
