package fixtures

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultMongoHost = "localhost"
	defaultMongoPort = "27017"
)

type MongoSettings struct {
	Host string
	Port string
	// Servers is a comma separated list of host:port replica set seeds. It takes precedence over Host and Port.
	Servers        string
	User           string
	Password       string
	Database       string
	AuthSource     string
	ReplicaSet     string
	ConnectTimeout time.Duration
}

func (s *MongoSettings) hosts() string {
	if s.Servers != "" {
		seeds := []string{}
		for _, seed := range strings.Split(s.Servers, ",") {
			if seed = strings.TrimSpace(seed); seed != "" {
				seeds = append(seeds, seed)
			}
		}
		if len(seeds) > 0 {
			return strings.Join(seeds, ",")
		}
	}
	host, port := s.Host, s.Port
	if host == "" {
		host = defaultMongoHost
	}
	if port == "" {
		port = defaultMongoPort
	}
	return host + ":" + port
}

func (s *MongoSettings) URI() string {
	u := url.URL{
		Scheme: "mongodb",
		Host:   s.hosts(),
		Path:   "/" + s.Database,
	}
	if s.User != "" {
		u.User = url.UserPassword(s.User, s.Password)
	}
	q := url.Values{}
	if s.AuthSource != "" {
		q.Set("authSource", s.AuthSource)
	}
	if s.ReplicaSet != "" {
		q.Set("replicaSet", s.ReplicaSet)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (s *MongoSettings) String() string {
	redacted := s.Copy()
	if redacted.Password != "" {
		redacted.Password = "xxxxx"
	}
	return redacted.URI()
}

func (s *MongoSettings) Copy() *MongoSettings {
	c := *s
	return &c
}

func (s *MongoSettings) Connect(ctx context.Context) (*mongo.Client, error) {
	timeout := s.ConnectTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	ctxConnect, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	opts := options.Client().ApplyURI(s.URI()).SetConnectTimeout(timeout).SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(ctxConnect, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %v: %w", s, err)
	}
	if err := client.Ping(ctxConnect, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping %v: %w", s, err)
	}
	return client, nil
}
