package fixtures

import (
	"context"
	"fmt"
	"time"

	"github.com/ory/dockertest/v3"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const DEFAULT_MONGO_REPO = "mongo"

// 4.0 is the last release with the eval command, which script execution needs.
const DEFAULT_MONGO_VERSION = "4.0"

type MongoOpt func(*Mongo)

func NewMongo(d *Docker, opts ...MongoOpt) *Mongo {
	f := &Mongo{
		docker: d,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func MongoSettingsOpt(settings *MongoSettings) MongoOpt {
	return func(f *Mongo) {
		f.settings = settings
	}
}

func MongoRepo(repo string) MongoOpt {
	return func(f *Mongo) {
		f.repo = repo
	}
}

func MongoVersion(version string) MongoOpt {
	return func(f *Mongo) {
		f.version = version
	}
}

// Tell docker to kill the container after an unreasonable amount of test time to prevent orphans. Defaults to 600 seconds.
func MongoExpireAfter(expireAfter uint) MongoOpt {
	return func(f *Mongo) {
		f.expireAfter = expireAfter
	}
}

// Wait this long for the server to accept connections. Defaults to 30 seconds.
func MongoTimeoutAfter(timeoutAfter uint) MongoOpt {
	return func(f *Mongo) {
		f.timeoutAfter = timeoutAfter
	}
}

func MongoSkipTearDown() MongoOpt {
	return func(f *Mongo) {
		f.skipTearDown = true
	}
}

func MongoLogger(logger *zap.Logger) MongoOpt {
	return func(f *Mongo) {
		f.log = logger
	}
}

type Mongo struct {
	BaseFixture
	log          *zap.Logger
	docker       *Docker
	settings     *MongoSettings
	resource     *dockertest.Resource
	client       *mongo.Client
	repo         string
	version      string
	expireAfter  uint
	timeoutAfter uint
	skipTearDown bool
}

func (f *Mongo) GetSettings() *MongoSettings {
	return f.settings
}

func (f *Mongo) SetUp(ctx context.Context) error {
	if f.log == nil {
		f.log = logger()
	}
	if f.repo == "" {
		f.repo = DEFAULT_MONGO_REPO
	}
	if f.version == "" {
		f.version = DEFAULT_MONGO_VERSION
	}
	if f.settings == nil {
		f.settings = &MongoSettings{
			User:       "mongo",
			Password:   GenerateString(),
			Database:   f.docker.GetNamePrefix(),
			AuthSource: "admin",
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
			"MONGO_INITDB_ROOT_USERNAME=" + f.settings.User,
			"MONGO_INITDB_ROOT_PASSWORD=" + f.settings.Password,
			"MONGO_INITDB_DATABASE=" + f.settings.Database,
		},
		Networks: networks,
		Cmd: []string{
			"mongod",
			"--nojournal",
			"--wiredTigerCacheSizeGB", wiredTigerCacheGB(memoryMB()),
		},
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
		f.timeoutAfter = 30
	}
	return f.WaitForReady(ctx, time.Second*time.Duration(f.timeoutAfter))
}

func (f *Mongo) TearDown(ctx context.Context) error {
	defer f.log.Sync()
	if f.client != nil {
		if err := f.client.Disconnect(ctx); err != nil {
			f.log.Warn("failed to disconnect", zap.Error(err))
		}
		f.client = nil
	}
	if f.skipTearDown || f.resource == nil {
		return nil
	}
	wg.Add(1)
	go purge(f.log, f.docker.GetPool(), f.resource)
	return nil
}

func (f *Mongo) GetHostName() string {
	return GetHostName(f.resource)
}

// Client returns a shared client, connecting on first use. It is disconnected on teardown.
func (f *Mongo) Client(ctx context.Context) (*mongo.Client, error) {
	if f.client != nil {
		return f.client, nil
	}
	client, err := f.settings.Connect(ctx)
	if err != nil {
		return nil, err
	}
	f.client = client
	return client, nil
}

// Connect returns a new client which the caller must disconnect.
func (f *Mongo) Connect(ctx context.Context) (*mongo.Client, error) {
	return f.settings.Connect(ctx)
}

func (f *Mongo) Database(ctx context.Context) (*mongo.Database, error) {
	client, err := f.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Database(f.settings.Database), nil
}

// Collection returns a fixture collection in the default database.
func (f *Mongo) Collection(ctx context.Context, name string) (*MongoCollection, error) {
	db, err := f.Database(ctx)
	if err != nil {
		return nil, err
	}
	return NewMongoCollection(db.Collection(name)), nil
}

func (f *Mongo) Ping(ctx context.Context) error {
	client, err := f.Client(ctx)
	if err != nil {
		return err
	}
	return client.Ping(ctx, nil)
}

func (f *Mongo) DropDatabase(ctx context.Context, name string) error {
	client, err := f.Client(ctx)
	if err != nil {
		return err
	}
	if err := client.Database(name).Drop(ctx); err != nil {
		return err
	}
	f.log.Debug("drop database", zap.String("database", name), zap.String("container", f.GetHostName()))
	return nil
}

func (f *Mongo) WaitForReady(ctx context.Context, d time.Duration) error {
	if err := Retry(d, func() error {
		port := GetContainerTcpPort(f.resource, f.docker.GetNetwork(), "27017")
		if port == "" {
			return fmt.Errorf("could not get port from container: %+v", f.resource.Container)
		}
		f.settings.Port = port

		client, err := f.settings.Connect(ctx)
		if err != nil {
			return err
		}
		return client.Disconnect(ctx)
	}); err != nil {
		return fmt.Errorf("gave up waiting for mongo: %w: %v", err, getLogs(f.log, f.resource.Container.ID, f.docker.GetPool()))
	}
	f.log.Debug("mongo ready", zap.String("container", f.GetHostName()), zap.String("uri", f.settings.String()))
	return nil
}
