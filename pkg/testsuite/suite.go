package testsuite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/namoruso/inventory/migrations"
	"github.com/namoruso/inventory/pkg/db"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

type Options struct {
	Postgres bool
	Redis    bool
	Kafka    bool
}

// BaseSuite starts the requested containers; postgres comes up migrated.
// Suites embedding it are skipped under go test -short.
type BaseSuite struct {
	suite.Suite
	PgContainer    *postgres.PostgresContainer
	RedisContainer *tcredis.RedisContainer
	KafkaContainer *kafka.KafkaContainer
	DbPool         *pgxpool.Pool
	DatabaseURL    string
	Redis          *goredis.Client
	KafkaBrokers   []string
	Ctx            context.Context
}

func (s *BaseSuite) SetupInfrastructure(opts Options) {
	if testing.Short() {
		s.T().Skip("integration suite skipped in short mode")
	}

	s.Ctx = context.Background()

	var err error
	if opts.Postgres {
		s.PgContainer, err = postgres.Run(
			s.Ctx,
			"postgres:17-alpine",
			postgres.WithDatabase("inventory_test"),
			postgres.WithUsername("test_user"),
			postgres.WithPassword("test_password"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		s.Require().NoError(err)

		s.DatabaseURL, err = s.PgContainer.ConnectionString(s.Ctx, "sslmode=disable")
		s.Require().NoError(err)

		s.Require().NoError(db.Migrate(s.DatabaseURL, migrations.FS))

		s.DbPool, err = pgxpool.New(s.Ctx, s.DatabaseURL)
		s.Require().NoError(err)
	}

	if opts.Redis {
		s.RedisContainer, err = tcredis.Run(s.Ctx, "redis:7-alpine")
		s.Require().NoError(err)

		redisURL, err := s.RedisContainer.ConnectionString(s.Ctx)
		s.Require().NoError(err)

		redisOpts, err := goredis.ParseURL(redisURL)
		s.Require().NoError(err)

		s.Redis = goredis.NewClient(redisOpts)
	}

	if opts.Kafka {
		s.KafkaContainer, err = kafka.Run(
			s.Ctx,
			"confluentinc/cp-kafka:7.5.0",
			kafka.WithClusterID("test-cluster"),
		)
		s.Require().NoError(err)

		s.KafkaBrokers, err = s.KafkaContainer.Brokers(s.Ctx)
		s.Require().NoError(err)
	}
}

func (s *BaseSuite) TearDownInfrastructure() {
	if s.DbPool != nil {
		s.DbPool.Close()
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}

	if s.PgContainer != nil {
		s.terminate("postgres", s.PgContainer)
	}
	if s.RedisContainer != nil {
		s.terminate("redis", s.RedisContainer)
	}
	if s.KafkaContainer != nil {
		s.terminate("kafka", s.KafkaContainer)
	}
}

func (s *BaseSuite) terminate(name string, c testcontainers.Container) {
	if err := testcontainers.TerminateContainer(c); err != nil {
		s.T().Logf("failed to terminate %s container: %v", name, err)
	}
}

func (s *BaseSuite) TruncateTable(tableNames ...string) {
	for _, tableName := range tableNames {
		_, err := s.DbPool.Exec(s.Ctx, fmt.Sprintf("TRUNCATE %s RESTART IDENTITY CASCADE", tableName))
		s.Require().NoError(err)
	}
}
