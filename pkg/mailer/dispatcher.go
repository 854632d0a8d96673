package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/account-service/config"
	"github.com/oksasatya/account-service/internal/domain/event"
)

// ErrPermanent marks failures that redelivery cannot fix, such as an
// undecodable payload or a broken template.
var ErrPermanent = errors.New("permanent email failure")

// Dispatcher turns published account events into emails.
type Dispatcher struct {
	Cfg         *config.Config
	Sender      Sender
	Logger      *logrus.Logger
	SendTimeout time.Duration
}

func NewDispatcher(cfg *config.Config, sender Sender, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{Cfg: cfg, Sender: sender, Logger: logger, SendTimeout: 15 * time.Second}
}

// Handle processes one message body. Events without an email are skipped
// and return nil. Send failures are returned unwrapped so the caller can
// redeliver.
func (d *Dispatcher) Handle(ctx context.Context, body []byte) error {
	e, err := event.Decode(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	}
	job, ok := JobFor(d.Cfg, e)
	if !ok {
		return nil
	}
	subject, text, html, err := job.Render()
	if err != nil {
		return fmt.Errorf("%w: render %s: %v", ErrPermanent, job.Template, err)
	}

	c, cancel := context.WithTimeout(ctx, d.SendTimeout)
	defer cancel()
	if err := d.Sender.Send(c, job.To, subject, text, html); err != nil {
		return fmt.Errorf("send %s: %w", job.Template, err)
	}
	d.Logger.WithFields(logrus.Fields{
		"event_id":   e.ID(),
		"account_id": e.AccountID(),
		"template":   job.Template,
	}).Info("email sent")
	return nil
}
