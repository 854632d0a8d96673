package helpers

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitConn is one AMQP connection with a single channel.
type RabbitConn struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
}

func DialRabbit(url string) (*RabbitConn, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &RabbitConn{Conn: conn, Channel: ch}, nil
}

// DeclareExchange declares a durable exchange of the given kind.
func (r *RabbitConn) DeclareExchange(name, kind string) error {
	return r.Channel.ExchangeDeclare(
		name,
		kind,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
}

// BindQueue declares a durable queue and binds it to exchange for each key.
func (r *RabbitConn) BindQueue(queue, exchange string, keys ...string) error {
	if _, err := r.Channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return err
	}
	for _, key := range keys {
		if err := r.Channel.QueueBind(queue, key, exchange, false, nil); err != nil {
			return err
		}
	}
	return nil
}

func (r *RabbitConn) Close() {
	if r == nil {
		return
	}
	if r.Channel != nil {
		_ = r.Channel.Close()
	}
	if r.Conn != nil {
		_ = r.Conn.Close()
	}
}
