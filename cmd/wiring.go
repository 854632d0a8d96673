package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/account-service/config"
	"github.com/oksasatya/account-service/internal/application"
	"github.com/oksasatya/account-service/internal/domain/repository"
	esinfra "github.com/oksasatya/account-service/internal/infrastructure/elasticsearch"
	"github.com/oksasatya/account-service/internal/infrastructure/eventlog"
	gcsinfra "github.com/oksasatya/account-service/internal/infrastructure/gcs"
	kafkainfra "github.com/oksasatya/account-service/internal/infrastructure/kafka"
	"github.com/oksasatya/account-service/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/account-service/internal/infrastructure/postgres"
	rabbitinfra "github.com/oksasatya/account-service/internal/infrastructure/rabbitmq"
	"github.com/oksasatya/account-service/pkg/helpers"
)

// buildStore returns the pool too so main can migrate and close it; the
// pool is nil for the memory driver.
func buildStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (repository.Store, *pgxpool.Pool, error) {
	if cfg.StoreDriver == "memory" {
		logger.Warn("using in-memory store; data is lost on restart")
		return memory.NewStore(), nil, nil
	}
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
		MaxConnLife: cfg.DBMaxConnLife,
	})
	if err != nil {
		return nil, nil, err
	}
	return pginfra.NewStore(pool, cfg.DBStatementTimeout), pool, nil
}

func buildPublisher(cfg *config.Config, logger *logrus.Logger) (application.EventPublisher, func(), error) {
	switch cfg.EventBus {
	case config.EventBusKafka:
		client, err := kafkainfra.NewClient(cfg.KafkaBrokerList())
		if err != nil {
			return nil, nil, fmt.Errorf("kafka client: %w", err)
		}
		logger.WithField("topic", cfg.KafkaEventsTopic).Info("publishing events to kafka")
		return kafkainfra.NewPublisher(client, cfg.KafkaEventsTopic), client.Close, nil
	case config.EventBusRabbitMQ:
		conn, err := helpers.DialRabbit(cfg.RabbitMQURL)
		if err != nil {
			return nil, nil, fmt.Errorf("rabbitmq dial: %w", err)
		}
		if err := conn.DeclareExchange(cfg.RabbitMQEventsExchange, cfg.RabbitMQEventsExchangeKind); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("rabbitmq exchange: %w", err)
		}
		logger.WithField("exchange", cfg.RabbitMQEventsExchange).Info("publishing events to rabbitmq")
		return rabbitinfra.NewPublisher(conn.Channel, cfg.RabbitMQEventsExchange), conn.Close, nil
	}
	return eventlog.NewPublisher(logger), func() {}, nil
}

// buildIndexer returns nil when the search projection is disabled.
func buildIndexer(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (application.SearchIndexer, error) {
	if !cfg.ElasticsearchEnabled {
		return nil, nil
	}
	es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		return nil, err
	}
	if err := helpers.EnsureESIndex(ctx, es, cfg.ESAccountsIndex, esinfra.Mapping); err != nil {
		return nil, err
	}
	logger.WithField("index", cfg.ESAccountsIndex).Info("indexing accounts into elasticsearch")
	return esinfra.NewIndexer(es, cfg.ESAccountsIndex, cfg.DBStatementTimeout), nil
}

// buildAvatarStore returns nil when no bucket is configured; avatar uploads
// then fail with ErrAvatarStorageDisabled.
func buildAvatarStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (application.AvatarStorage, func(), error) {
	if cfg.GCSBucket == "" {
		logger.Info("GCS_BUCKET not set; avatar uploads disabled")
		return nil, func() {}, nil
	}
	client, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
	if err != nil {
		return nil, nil, err
	}
	return gcsinfra.NewAvatarStore(client, cfg.GCSBucket, cfg.GCSPublicBaseURL), func() { _ = client.Close() }, nil
}
