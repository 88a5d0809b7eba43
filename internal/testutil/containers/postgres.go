package containers

import (
	"context"
	"fmt"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const (
	defaultImage    = "postgres:16-alpine"
	defaultDatabase = "ptd_test"
)

// PostgresOption tweaks the container before it starts
type PostgresOption func(*postgresSettings)

type postgresSettings struct {
	image    string
	database string
	extra    []testcontainers.ContainerCustomizer
}

// WithImage overrides the postgres image
func WithImage(image string) PostgresOption {
	return func(s *postgresSettings) { s.image = image }
}

// WithDatabase overrides the database name
func WithDatabase(name string) PostgresOption {
	return func(s *postgresSettings) { s.database = name }
}

// WithCustomizer passes a raw testcontainers customizer through
func WithCustomizer(c testcontainers.ContainerCustomizer) PostgresOption {
	return func(s *postgresSettings) { s.extra = append(s.extra, c) }
}

// PostgresContainer is a running postgres with its DSN resolved
type PostgresContainer struct {
	*postgres.PostgresContainer
	ConnectionString string
}

// NewPostgresContainer starts a disposable postgres. Callers terminate it.
func NewPostgresContainer(ctx context.Context, opts ...PostgresOption) (*PostgresContainer, error) {
	settings := postgresSettings{image: defaultImage, database: defaultDatabase}
	for _, opt := range opts {
		opt(&settings)
	}

	customizers := append([]testcontainers.ContainerCustomizer{
		postgres.WithDatabase(settings.database),
		postgres.WithUsername("ptd"),
		postgres.WithPassword("ptd"),
		postgres.BasicWaitStrategies(),
	}, settings.extra...)

	c, err := postgres.Run(ctx, settings.image, customizers...)
	if err != nil {
		return nil, fmt.Errorf("start postgres %s: %w", settings.image, err)
	}

	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = testcontainers.TerminateContainer(c)
		return nil, fmt.Errorf("resolve postgres dsn: %w", err)
	}

	return &PostgresContainer{PostgresContainer: c, ConnectionString: dsn}, nil
}
