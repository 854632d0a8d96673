package main

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/oksasatya/account-service/config"
	kafkainfra "github.com/oksasatya/account-service/internal/infrastructure/kafka"
	"github.com/oksasatya/account-service/pkg/mailer"
)

const sendAttempts = 3

// retryBackoff is the wait before the second attempt; it doubles after that.
var retryBackoff = time.Second

func consumeKafka(ctx context.Context, cfg *config.Config, d *mailer.Dispatcher, logger *logrus.Logger) error {
	client, err := kafkainfra.NewClient(cfg.KafkaBrokerList(),
		kgo.ConsumerGroup(cfg.KafkaConsumerGroup),
		kgo.ConsumeTopics(cfg.KafkaEventsTopic),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	logger.WithFields(logrus.Fields{"topic": cfg.KafkaEventsTopic, "group": cfg.KafkaConsumerGroup}).Info("email worker listening")
	for {
		fetches := client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			logger.WithError(err).WithFields(logrus.Fields{"topic": topic, "partition": partition}).Warn("fetch error")
		})
		fetches.EachRecord(func(r *kgo.Record) {
			handleRecord(ctx, d, logger, r)
		})
		if err := client.CommitUncommittedOffsets(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Warn("commit offsets failed")
		}
	}
}

// handleRecord retries transient send failures a few times, then gives up
// so one bad address cannot stall the partition.
func handleRecord(ctx context.Context, d *mailer.Dispatcher, logger *logrus.Logger, r *kgo.Record) {
	entry := logger.WithFields(logrus.Fields{"key": string(r.Key), "offset": r.Offset, "partition": r.Partition})
	backoff := retryBackoff
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		err := d.Handle(ctx, r.Value)
		if err == nil {
			return
		}
		if errors.Is(err, mailer.ErrPermanent) {
			entry.WithError(err).Error("dropping record")
			return
		}
		entry.WithError(err).WithField("attempt", attempt).Warn("send failed")
		if attempt == sendAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	entry.Error("giving up on record after retries")
}
