package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port       int    `envconfig:"PORT" default:"4000"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	SchemaPath string `envconfig:"SCHEMA_PATH"`
	Playground bool   `envconfig:"PLAYGROUND_ENABLED" default:"true"`

	// Remote query services
	HillsServiceURL string        `envconfig:"HILLS_SERVICE_URL" default:"http://localhost:5001/graphql"`
	QueryTimeout    time.Duration `envconfig:"QUERY_TIMEOUT" default:"30s"`

	// Broadcast
	NATSURL                string `envconfig:"NATS_URL" default:"nats://127.0.0.1:4222"`
	BroadcastSubjectPrefix string `envconfig:"BROADCAST_SUBJECT_PREFIX" default:"corewar."`

	// Worker
	MongoURI      string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"corewar"`
	WorkerQueue   string `envconfig:"WORKER_QUEUE" default:"hill-worker"`
	WorkerPort    int    `envconfig:"WORKER_PORT" default:"4001"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"corewar-api"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.String("hills.url", c.HillsServiceURL),
		attribute.String("broadcast.prefix", c.BroadcastSubjectPrefix),
		attribute.Bool("schema.external", c.SchemaPath != ""),
	}
}
