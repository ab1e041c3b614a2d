package fixtures

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/ory/dockertest/v3"
	"go.uber.org/zap"
)

const DEFAULT_POSTGRES_REPO = "postgres"
const DEFAULT_POSTGRES_VERSION = "13-alpine"

type PostgresOpt func(*Postgres)

func NewPostgres(d *Docker, opts ...PostgresOpt) *Postgres {
	f := &Postgres{
		docker: d,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func PostgresDocker(d *Docker) PostgresOpt {
	return func(f *Postgres) {
		f.docker = d
	}
}

func PostgresSettings(settings *ConnectionSettings) PostgresOpt {
	return func(f *Postgres) {
		f.settings = settings
	}
}

func PostgresRepo(repo string) PostgresOpt {
	return func(f *Postgres) {
		f.repo = repo
	}
}

func PostgresVersion(version string) PostgresOpt {
	return func(f *Postgres) {
		f.version = version
	}
}

// Tell docker to kill the container after an unreasonable amount of test time to prevent orphans. Defaults to 600 seconds.
func PostgresExpireAfter(expireAfter uint) PostgresOpt {
	return func(f *Postgres) {
		f.expireAfter = expireAfter
	}
}

// Wait this long for operations to execute. Defaults to 30 seconds.
func PostgresTimeoutAfter(timeoutAfter uint) PostgresOpt {
	return func(f *Postgres) {
		f.timeoutAfter = timeoutAfter
	}
}

func PostgresSkipTearDown() PostgresOpt {
	return func(f *Postgres) {
		f.skipTearDown = true
	}
}

func PostgresMounts(mounts []string) PostgresOpt {
	return func(f *Postgres) {
		f.mounts = mounts
	}
}

func PostgresLogger(logger *zap.Logger) PostgresOpt {
	return func(f *Postgres) {
		f.log = logger
	}
}

type Postgres struct {
	BaseFixture
	log          *zap.Logger
	docker       *Docker
	settings     *ConnectionSettings
	resource     *dockertest.Resource
	repo         string
	version      string
	expireAfter  uint
	timeoutAfter uint
	skipTearDown bool
	mounts       []string
}

func (f *Postgres) GetSettings() *ConnectionSettings {
	return f.settings
}

func (f *Postgres) SetUp(ctx context.Context) error {
	if f.log == nil {
		f.log = logger()
	}
	if f.repo == "" {
		f.repo = DEFAULT_POSTGRES_REPO
	}
	if f.version == "" {
		f.version = DEFAULT_POSTGRES_VERSION
	}
	if f.settings == nil {
		f.settings = &ConnectionSettings{
			User:       "postgres",
			Password:   GenerateString(),
			Database:   f.docker.GetNamePrefix(),
			DisableSSL: true,
		}
	}
	networks := make([]*dockertest.Network, 0)
	if f.docker.GetNetwork() != nil {
		networks = append(networks, f.docker.GetNetwork())
	}
	opts := dockertest.RunOptions{
		Repository: f.repo,
		Tag:        f.version,
		Env: []string{
			"POSTGRES_USER=" + f.settings.User,
			"POSTGRES_PASSWORD=" + f.settings.Password,
			"POSTGRES_DB=" + f.settings.Database,
		},
		Networks: networks,
		Cmd: []string{
			// https://www.postgresql.org/docs/current/non-durability.html
			"-c", "fsync=off",
			"-c", "synchronous_commit=off",
			"-c", "full_page_writes=off",
			"-c", "random_page_cost=1.1",
			"-c", fmt.Sprintf("shared_buffers=%vMB", memoryMB()/8),
			"-c", fmt.Sprintf("work_mem=%vMB", memoryMB()/8),
		},
		Mounts: f.mounts,
	}
	var err error
	f.resource, err = f.docker.GetPool().RunWithOptions(&opts)
	if err != nil {
		return err
	}

	f.settings.Host = GetContainerAddress(f.resource, f.docker.GetNetwork())

	if f.expireAfter == 0 {
		f.expireAfter = 600
	}
	if err := f.resource.Expire(f.expireAfter); err != nil {
		return err
	}

	if f.timeoutAfter == 0 {
		f.timeoutAfter = 15
	}
	if err := f.WaitForReady(ctx, time.Second*time.Duration(f.timeoutAfter)); err != nil {
		return err
	}
	return nil
}

func (f *Postgres) TearDown(ctx context.Context) error {
	defer f.log.Sync()
	if f.skipTearDown || f.resource == nil {
		return nil
	}
	wg.Add(1)
	go purge(f.log, f.docker.GetPool(), f.resource)
	return nil
}

func (f *Postgres) GetConnection(ctx context.Context, database string) (*pgx.Conn, error) {
	settings := f.settings.Copy()
	if database != "" {
		settings.Database = database
	}
	return settings.Connect(ctx)
}

// Connect returns a pool on the default database. The caller must close it.
func (f *Postgres) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	return f.settings.ConnectPool(ctx)
}

func (f *Postgres) MustConnect(ctx context.Context) *pgxpool.Pool {
	pool, err := f.Connect(ctx)
	if err != nil {
		panic(err)
	}
	return pool
}

// Collection creates the backing table if needed and returns a fixture collection over it.
func (f *Postgres) Collection(ctx context.Context, pool *pgxpool.Pool, table string) (*PostgresCollection, error) {
	c, err := NewPostgresCollection(pool, table)
	if err != nil {
		return nil, err
	}
	if err := c.EnsureTable(ctx); err != nil {
		return nil, err
	}
	f.log.Debug("collection", zap.String("table", table), zap.String("database", f.settings.Database))
	return c, nil
}

func (f *Postgres) GetHostName() string {
	return GetHostName(f.resource)
}

func (f *Postgres) Ping(ctx context.Context) error {
	db, err := f.GetConnection(ctx, "")
	if err != nil {
		return err
	}
	defer db.Close(ctx)
	return db.Ping(ctx)
}

func (f *Postgres) CreateDatabase(ctx context.Context, name string) error {
	if name == "" {
		return errors.New("must provide a database name")
	}
	db, err := f.GetConnection(ctx, "")
	if err != nil {
		return err
	}
	defer db.Close(ctx)
	if _, err := db.Exec(ctx, fmt.Sprintf("CREATE DATABASE %v TEMPLATE template0", pgx.Identifier{name}.Sanitize())); err != nil {
		return fmt.Errorf("failed to create database %v: %w", name, err)
	}
	f.log.Debug("create database", zap.String("database", name), zap.String("container", f.GetHostName()))
	return nil
}

func (f *Postgres) DropDatabase(ctx context.Context, name string) error {
	if name == "" || name == f.settings.Database {
		return fmt.Errorf("refusing to drop database %q", name)
	}
	db, err := f.GetConnection(ctx, "")
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	// Terminate all connections.
	if _, err := db.Exec(ctx, "SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1 AND pid <> pg_backend_pid()", name); err != nil {
		return err
	}
	if _, err := db.Exec(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS %v", pgx.Identifier{name}.Sanitize())); err != nil {
		return fmt.Errorf("failed to drop database %v: %w", name, err)
	}
	f.log.Debug("drop database", zap.String("database", name), zap.String("container", f.GetHostName()))
	return nil
}

// https://github.com/ory/dockertest/blob/v3/examples/PostgreSQL.md
func (f *Postgres) WaitForReady(ctx context.Context, d time.Duration) error {
	if err := Retry(d, func() error {
		port := GetContainerTcpPort(f.resource, f.docker.GetNetwork(), "5432")
		if port == "" {
			return fmt.Errorf("could not get port from container: %+v", f.resource.Container)
		}
		f.settings.Port = port

		db, err := f.settings.Connect(ctx)
		if err != nil {
			return err
		}
		return db.Close(ctx)
	}); err != nil {
		return fmt.Errorf("gave up waiting for postgres: %w: %v", err, getLogs(f.log, f.resource.Container.ID, f.docker.GetPool()))
	}
	return nil
}

func (f *Postgres) TableExists(ctx context.Context, database, schema, table string) (bool, error) {
	db, err := f.GetConnection(ctx, database)
	if err != nil {
		return false, err
	}
	defer db.Close(ctx)
	query := "SELECT count(*) FROM pg_catalog.pg_tables WHERE schemaname = $1 AND tablename = $2"
	count := 0
	if err := db.QueryRow(ctx, query, schema, table).Scan(&count); err != nil {
		return false, err
	}
	return count == 1, nil
}
