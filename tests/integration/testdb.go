// Package integration runs the sync and import flows against a real
// PostgreSQL started with testcontainers and migrated with the embedded
// schema migrations.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/supplysync/backend/internal/domain/supplier"
	"github.com/supplysync/backend/internal/infrastructure/config"
	"github.com/supplysync/backend/internal/infrastructure/migration"
	"github.com/supplysync/backend/internal/infrastructure/persistence"
	"github.com/supplysync/backend/migrations"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testDBName     = "supplysync_test"
	testDBUser     = "postgres"
	testDBPassword = "admin123"
)

var (
	// Shared container for all tests in a package
	sharedContainer   testcontainers.Container
	sharedContainerMu sync.Mutex
	sharedEndpoint    endpoint
)

type endpoint struct {
	dsn  string
	host string
	port int
}

// TestDB represents a test database connection
type TestDB struct {
	DB        *gorm.DB
	SqlDB     *sql.DB
	Container testcontainers.Container
	DSN       string
	Host      string
	Port      int
	t         *testing.T
}

// NewTestDB creates a new PostgreSQL container for testing.
// This creates a fresh container for each test, providing complete isolation.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	skipIfShort(t)

	container := startPostgres(t)
	ep := resolveEndpoint(t, container)

	db, sqlDB := connectToDatabase(t, ep.dsn)
	runMigrations(t, sqlDB)

	testDB := &TestDB{
		DB:        db,
		SqlDB:     sqlDB,
		Container: container,
		DSN:       ep.dsn,
		Host:      ep.host,
		Port:      ep.port,
		t:         t,
	}
	t.Cleanup(testDB.Close)

	return testDB
}

// NewSharedTestDB returns a connection to a container shared by the
// package. Tests using it should call CleanTables first.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()
	skipIfShort(t)

	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	if sharedContainer == nil {
		container := startPostgres(t)
		sharedEndpoint = resolveEndpoint(t, container)
		sharedContainer = container

		_, sqlDB := connectToDatabase(t, sharedEndpoint.dsn)
		runMigrations(t, sqlDB)
		_ = sqlDB.Close()
	}

	db, sqlDB := connectToDatabase(t, sharedEndpoint.dsn)
	testDB := &TestDB{
		DB:        db,
		SqlDB:     sqlDB,
		Container: sharedContainer,
		DSN:       sharedEndpoint.dsn,
		Host:      sharedEndpoint.host,
		Port:      sharedEndpoint.port,
		t:         t,
	}

	// the container outlives the test; only the connection is closed
	t.Cleanup(func() {
		if testDB.SqlDB != nil {
			_ = testDB.SqlDB.Close()
		}
	})

	return testDB
}

// Close closes the database connection and terminates the container
func (tdb *TestDB) Close() {
	if tdb.SqlDB != nil {
		_ = tdb.SqlDB.Close()
	}

	if tdb.Container != nil && tdb.Container != sharedContainer {
		if err := tdb.Container.Terminate(context.Background()); err != nil {
			tdb.t.Logf("Warning: Failed to terminate container: %v", err)
		}
	}
}

// Config returns an application config pointing at this database, with
// in-process counters and local artifact storage under dir.
func (tdb *TestDB) Config(dir string) *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "supplysync", Env: "test"},
		Database: config.DatabaseConfig{
			Driver:          config.DatabaseDriverPostgres,
			Host:            tdb.Host,
			Port:            tdb.Port,
			User:            testDBUser,
			Password:        testDBPassword,
			DBName:          testDBName,
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5,
			ConnMaxIdleTime: 1,
		},
		Log:     config.LogConfig{Level: "error"},
		Storage: config.StorageConfig{Type: config.StorageTypeLocal, LocalDir: dir},
		Sync: config.SyncConfig{
			LockTTL:         time.Minute,
			DefaultPageSize: 20,
			DefaultMaxPages: 5,
		},
		Import: config.ImportConfig{
			TmpPrefix:      "tmp/imports",
			DefaultPerPage: 50,
			MaxUploadBytes: 1 << 20,
			CleanupAfter:   24 * time.Hour,
		},
	}
}

// CleanTables truncates every table except the migration bookkeeping
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()

	var tables []string
	err := tdb.DB.Raw(`
		SELECT tablename FROM pg_tables
		WHERE schemaname = 'public'
		AND tablename != 'schema_migrations'
	`).Scan(&tables).Error
	require.NoError(tdb.t, err, "Failed to get table names")

	for _, table := range tables {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			tdb.t.Logf("Warning: Failed to truncate table %s: %v", table, err)
		}
	}
}

// Count returns the row count of a table
func (tdb *TestDB) Count(table string) int64 {
	tdb.t.Helper()

	var n int64
	require.NoError(tdb.t, tdb.DB.Table(table).Count(&n).Error)
	return n
}

// CreateProviderAccount stores an active account for code with creds
func (tdb *TestDB) CreateProviderAccount(code string, creds supplier.Credentials) *supplier.ProviderAccount {
	tdb.t.Helper()

	account, err := supplier.NewProviderAccount(code, code+" test account", creds)
	require.NoError(tdb.t, err)
	require.NoError(tdb.t, persistence.NewGormProviderAccountRepository(tdb.DB).Save(context.Background(), account))
	return account
}

// WithTransaction runs fn inside a transaction that is always rolled back
func (tdb *TestDB) WithTransaction(fn func(tx *gorm.DB)) {
	tdb.t.Helper()

	tx := tdb.DB.Begin()
	require.NoError(tdb.t, tx.Error, "Failed to begin transaction")
	defer tx.Rollback()

	fn(tx)
}

func skipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL container test in short mode")
	}
}

func startPostgres(t *testing.T) *tcpostgres.PostgresContainer {
	t.Helper()

	container, err := tcpostgres.Run(context.Background(),
		"postgres:16-alpine",
		tcpostgres.WithDatabase(testDBName),
		tcpostgres.WithUsername(testDBUser),
		tcpostgres.WithPassword(testDBPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	return container
}

func resolveEndpoint(t *testing.T, container *tcpostgres.PostgresContainer) endpoint {
	t.Helper()
	ctx := context.Background()

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return endpoint{dsn: dsn, host: host, port: port.Int()}
}

func connectToDatabase(t *testing.T, dsn string) (*gorm.DB, *sql.DB) {
	t.Helper()

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	if os.Getenv("TEST_DB_DEBUG") != "" {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(gormpostgres.Open(dsn), gormConfig)
	require.NoError(t, err, "Failed to connect to database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "Failed to get underlying SQL DB")

	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, sqlDB
}

// runMigrations applies the embedded migrations through the same migrator
// cmd/migrate uses
func runMigrations(t *testing.T, sqlDB *sql.DB) {
	t.Helper()

	m, err := migration.New(sqlDB, migrations.FS, zap.NewNop())
	require.NoError(t, err, "Failed to create migrator")
	require.NoError(t, m.Up(), "Failed to run migrations")
}

// CleanupSharedContainer terminates the shared container. Call it from
// TestMain after m.Run.
func CleanupSharedContainer() {
	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	if sharedContainer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = sharedContainer.Terminate(ctx)
		sharedContainer = nil
		sharedEndpoint = endpoint{}
	}
}
