package main

import (
	"context"

	"github.com/corewar/corewar-api/internal/config"
	"github.com/corewar/corewar-api/internal/graphql"
	"github.com/corewar/corewar-api/internal/telemetry"
	"github.com/corewar/corewar-api/pkg/broadcast"
	"github.com/corewar/corewar-api/pkg/gqlclient"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}

	_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version, cfg.Attributes()...)
	return shutdown, err
}

func initClientRegistry(cfg *config.Config) *gqlclient.Registry {
	registry := gqlclient.NewRegistry()
	registry.Register(graphql.HillsScope, gqlclient.NewHTTPClient(gqlclient.HTTPClientConfig{
		Scope:   graphql.HillsScope,
		URL:     cfg.HillsServiceURL,
		Timeout: cfg.QueryTimeout,
	}))
	return registry
}

func initBroadcaster(cfg *config.Config, logger *otelzap.Logger, name string) (*broadcast.NATS, error) {
	return broadcast.Connect(broadcast.Config{
		URL:           cfg.NATSURL,
		Name:          name,
		SubjectPrefix: cfg.BroadcastSubjectPrefix,
	}, logger)
}
