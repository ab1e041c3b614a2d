package fixtures

import (
	"errors"
	"log"
	"strings"

	"github.com/vrischmann/envconfig"
)

type environment struct {
	Debug bool `envconfig:"default=false"`
	Mongo struct {
		Host        string `envconfig:"optional"`
		Port        string `envconfig:"optional"`
		Servers     string `envconfig:"optional"`
		Credentials string `envconfig:"optional"`
		DB          string `envconfig:"optional"`
	}
}

var env *environment

func init() {
	env = &environment{}
	if err := envconfig.Init(env); err != nil {
		log.Fatal(err)
	}
}

func getEnv() *environment {
	return env
}

// MongoSettingsFromEnv reads MONGO_HOST, MONGO_PORT, MONGO_SERVERS, MONGO_CREDENTIALS (user:password)
// and MONGO_DB. MONGO_DB is required.
func MongoSettingsFromEnv() (*MongoSettings, error) {
	return mongoSettingsFrom(getEnv())
}

func mongoSettingsFrom(e *environment) (*MongoSettings, error) {
	m := e.Mongo
	if strings.TrimSpace(m.DB) == "" {
		return nil, errors.New("MONGO_DB must be given")
	}
	s := &MongoSettings{
		Host:     strings.TrimSpace(m.Host),
		Port:     strings.TrimSpace(m.Port),
		Servers:  strings.TrimSpace(m.Servers),
		Database: strings.TrimSpace(m.DB),
	}
	if creds := strings.TrimSpace(m.Credentials); creds != "" {
		user, password, ok := strings.Cut(creds, ":")
		if !ok || user == "" {
			return nil, errors.New("MONGO_CREDENTIALS must be user:password")
		}
		s.User = user
		s.Password = password
		s.AuthSource = "admin"
	}
	return s, nil
}
