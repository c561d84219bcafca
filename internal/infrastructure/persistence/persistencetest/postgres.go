package persistencetest

import (
	"context"
	"testing"
	"time"

	"github.com/meterbill/backend/internal/infrastructure/migration"
	"github.com/meterbill/backend/internal/infrastructure/persistence"
	"github.com/meterbill/backend/migrations"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PostgresImage is the server version the migrations target
const PostgresImage = "postgres:16-alpine"

// NewPostgresDB starts a throwaway PostgreSQL container, applies the embedded
// migrations and returns a connection to it. The test is skipped in short
// mode or when no container runtime is reachable.
func NewPostgresDB(t *testing.T, opts ...persistence.Option) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping PostgreSQL integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		PostgresImage,
		tcpostgres.WithDatabase("meterbill_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	database, err := persistence.Open(postgres.Open(dsn), opts...)
	require.NoError(t, err)
	sqlDB, err := database.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(5)
	t.Cleanup(func() { _ = sqlDB.Close() })

	m, err := migration.New(sqlDB, migrations.FS, nil)
	require.NoError(t, err)
	require.NoError(t, m.Up())

	return database.DB
}
