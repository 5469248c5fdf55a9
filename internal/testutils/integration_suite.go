package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"citeweb/internal/config"
)

// IntegrationSuite starts Postgres and Redis in containers for tests that
// need the real stores.
type IntegrationSuite struct {
	T     *testing.T
	DB    *sql.DB
	Redis *redis.Client

	SkipMigrations bool

	pgContainer    *postgres.PostgresContainer
	redisContainer testcontainers.Container

	dbHost    string
	dbPort    int
	redisAddr string
}

func NewIntegrationSuite(t *testing.T) *IntegrationSuite {
	if testing.Short() {
		t.Skip("skipping integration suite in short mode")
	}
	return &IntegrationSuite{T: t}
}

func (s *IntegrationSuite) Setup() {
	ctx := context.Background()

	// 1. Postgres
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("citeweb_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(s.T, err)
	s.pgContainer = pgContainer

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(s.T, err)

	s.DB, err = sql.Open("postgres", connStr)
	require.NoError(s.T, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(s.T, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(s.T, err)
	s.dbHost = host
	s.dbPort, err = strconv.Atoi(port.Port())
	require.NoError(s.T, err)

	if !s.SkipMigrations {
		m, err := migrate.New(MigrationPath(), connStr)
		require.NoError(s.T, err)
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			require.NoError(s.T, err)
		}
	}

	// 2. Redis
	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(s.T, err)
	s.redisContainer = redisC

	redisHost, err := redisC.Host(ctx)
	require.NoError(s.T, err)
	redisPort, err := redisC.MappedPort(ctx, "6379")
	require.NoError(s.T, err)
	s.redisAddr = fmt.Sprintf("%s:%s", redisHost, redisPort.Port())

	s.Redis = redis.NewClient(&redis.Options{Addr: s.redisAddr})
	require.NoError(s.T, s.Redis.Ping(ctx).Err())
}

// GetAppConfig returns a config pointing at the suite's containers.
// Upstream provider keys are left empty.
func (s *IntegrationSuite) GetAppConfig() *config.Config {
	return &config.Config{
		DBHost:        s.dbHost,
		DBPort:        s.dbPort,
		DBUser:        "test",
		DBPass:        "test",
		DBName:        "citeweb_test",
		MigrationPath: MigrationPath(),

		RedisAddr:     s.redisAddr,
		ShareTTLHours: 1,

		CompletionBaseURL: "http://127.0.0.1:1/v1",
		DefaultModel:      "llama3-8b-8192",

		SearchTopK:           5,
		PageWordBudget:       700,
		CorpusWordBudget:     20000,
		StructuredWordBudget: 2500,
		StructuredMaxEntries: 25,
		FetchConcurrency:     8,
		FetchTimeoutSeconds:  5,
		FetchMaxBodyBytes:    1 << 20,
		ScrapeTimeoutSeconds: 10,
		ChatTimeoutSeconds:   10,

		ServerPort:      8081,
		QueryLogPath:    filepath.Join(s.T.TempDir(), "query.log"),
		MaxRequestBytes: 1 << 20,

		BootstrapRetryAttempts:     5,
		BootstrapRetryDelaySeconds: 1,
	}
}

func (s *IntegrationSuite) Teardown() {
	ctx := context.Background()
	if s.Redis != nil {
		s.Redis.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
	if s.pgContainer != nil {
		s.pgContainer.Terminate(ctx)
	}
	if s.redisContainer != nil {
		s.redisContainer.Terminate(ctx)
	}
}

// MigrationPath resolves the migrations directory as a file:// source URL.
func MigrationPath() string {
	_, b, _, _ := runtime.Caller(0)
	return fmt.Sprintf("file://%s", filepath.Join(filepath.Dir(b), "..", "..", "migrations"))
}
