package pgdb

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/abgdnv/inventory/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const skipIntegrationTests = "INVENTORY_SKIP_INTEGRATION_TESTS"

// PgDBSuite runs the backend against a real PostgreSQL container.
type PgDBSuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer
	dbPool      *pgxpool.Pool
	backend     *PgDB
	logger      *slog.Logger
	ctx         context.Context
}

func (s *PgDBSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var err error
	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase("inventory"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to run PostgreSQL container")

	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get connection string from container")

	require.NoError(s.T(), Migrate(connStr, s.logger), "Failed to apply migrations")
	// a second run must be a no-op
	require.NoError(s.T(), Migrate(connStr, s.logger))

	s.dbPool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err, "Failed to create pgxpool")
	s.backend = New(s.dbPool)
}

func (s *PgDBSuite) TearDownSuite() {
	if s.dbPool != nil {
		s.dbPool.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(s.ctx); err != nil {
			s.logger.Warn("failed to terminate PostgreSQL container", "error", err)
		}
	}
}

func (s *PgDBSuite) SetupTest() {
	_, err := s.dbPool.Exec(s.ctx, `TRUNCATE inventory_documents`)
	s.Require().NoError(err)
}

func TestPgDBSuite(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests")
	}
	suite.Run(t, new(PgDBSuite))
}

func (s *PgDBSuite) TestLoad_Empty() {
	doc, err := s.backend.Load(s.ctx)
	s.Require().NoError(err)
	s.Nil(doc)
}

func (s *PgDBSuite) TestSave_Upserts() {
	first := &store.Document{Products: []store.Product{{ID: "1", SKU: "A"}}, NextID: store.NewCounter(2)}
	second := &store.Document{Products: []store.Product{{ID: "1", SKU: "A"}, {ID: "2", SKU: "B"}}, NextID: store.NewCounter(3)}

	s.Require().NoError(s.backend.Save(s.ctx, first))
	s.Require().NoError(s.backend.Save(s.ctx, second))

	loaded, err := s.backend.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal(second, loaded)

	var rows int
	s.Require().NoError(s.dbPool.QueryRow(s.ctx, `SELECT COUNT(*) FROM inventory_documents`).Scan(&rows))
	s.Equal(1, rows)
}

func (s *PgDBSuite) TestStore_RepairsStaleCounter() {
	// given
	stale := &store.Document{
		Products: []store.Product{{ID: "35", Name: "Old", SKU: "OLD-35", Category: "Misc"}},
		NextID:   store.NewCounter(10),
	}
	s.Require().NoError(s.backend.Save(s.ctx, stale))

	// when
	st, err := store.Open(s.ctx, s.backend)

	// then
	s.Require().NoError(err)
	h := st.Health()
	assert.True(s.T(), h.NextIDRepaired)
	assert.EqualValues(s.T(), 36, h.NextID)
	persisted, err := s.backend.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal(store.NewCounter(36), persisted.NextID)
}
