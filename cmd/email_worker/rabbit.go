package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/account-service/config"
	"github.com/oksasatya/account-service/pkg/helpers"
	"github.com/oksasatya/account-service/pkg/mailer"
)

func consumeRabbit(ctx context.Context, cfg *config.Config, d *mailer.Dispatcher, logger *logrus.Logger) error {
	conn, err := helpers.DialRabbit(cfg.RabbitMQURL)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	defer conn.Close()

	// Prefetch for fair dispatch
	if err := conn.Channel.Qos(16, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	if err := conn.DeclareExchange(cfg.RabbitMQEventsExchange, cfg.RabbitMQEventsExchangeKind); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	// events are routed by account id
	if err := conn.BindQueue(cfg.RabbitMQEmailQueue, cfg.RabbitMQEventsExchange, "#"); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	msgs, err := conn.Channel.Consume(cfg.RabbitMQEmailQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	logger.WithFields(logrus.Fields{"queue": cfg.RabbitMQEmailQueue, "exchange": cfg.RabbitMQEventsExchange}).Info("email worker listening")
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			err := d.Handle(ctx, msg.Body)
			switch {
			case err == nil:
				_ = msg.Ack(false)
			case errors.Is(err, mailer.ErrPermanent):
				logger.WithError(err).WithField("message_id", msg.MessageId).Error("dropping message")
				_ = msg.Nack(false, false)
			default:
				logger.WithError(err).WithField("message_id", msg.MessageId).Warn("send failed, requeueing")
				_ = msg.Nack(false, true)
			}
		}
	}
}
