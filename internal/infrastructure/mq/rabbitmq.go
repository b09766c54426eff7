package mq

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"devtransfer/config"
	"devtransfer/internal/domain/transfer"
)

// "Rely on metrics, not guesses."
const bufferSize = 128

type (
	publishFunc func(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error

	RabbitMQ struct {
		cfg     config.MQ
		log     *zap.Logger
		conn    *amqp091.Connection
		pubCh   *amqp091.Channel
		in      chan transfer.Event
		publish publishFunc
	}
)

func New(cfg config.MQ, logger *zap.Logger) *RabbitMQ {
	return &RabbitMQ{
		cfg: cfg,
		log: logger,
		in:  make(chan transfer.Event, bufferSize),
	}
}

func (r *RabbitMQ) Connect(ctx context.Context, dsn string) error {
	dialer := &net.Dialer{Timeout: 10 * time.Second}

	amqpCfg := amqp091.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Properties: amqp091.Table{
			"connection_name": "devtransfer",
		},
		Dial: func(network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		},
	}

	var err error
	r.conn, err = amqp091.DialConfig(dsn, amqpCfg)
	if err != nil {
		return err
	}
	r.pubCh, err = r.conn.Channel()
	if err != nil {
		_ = r.conn.Close()
		return err
	}
	r.publish = r.pubCh.PublishWithContext

	r.log.Info("rabbitmq connected successfully")

	return nil
}

// Init declares the exchange and the audit queue bound to every event kind.
func (r *RabbitMQ) Init() error {
	if err := r.pubCh.ExchangeDeclare(
		r.cfg.Exchange,
		r.cfg.ExchangeType,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		_ = r.pubCh.Close()
		return err
	}
	q, err := r.pubCh.QueueDeclare(
		r.cfg.QueueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	for _, kind := range transfer.EventKinds {
		if err = r.pubCh.QueueBind(q.Name, string(kind), r.cfg.Exchange, false, nil); err != nil {
			return err
		}
	}

	return nil
}

// Emit queues an event for publishing. A full buffer drops the event.
func (r *RabbitMQ) Emit(e transfer.Event) {
	select {
	case r.in <- e:
	default:
		// alert
		r.log.Warn("mq buffer full, event dropped",
			zap.String("kind", string(e.Kind)),
			zap.String("code", e.Code),
		)
	}
}

func (r *RabbitMQ) PublisherWorker(ctx context.Context) {
	r.log.Info("starting publisher worker")

	defer func() {
		r.log.Info("publisher worker gracefully stopped")
	}()

	for {
		select {
		case e := <-r.in:
			if err := r.send(ctx, e); err != nil {
				// alert
				r.log.Error("mq publish error", zap.Error(err), zap.String("kind", string(e.Kind)))
			}
		case <-ctx.Done():
			if r.pubCh != nil {
				_ = r.pubCh.Close()
			}
			return
		}
	}
}

func (r *RabbitMQ) send(ctx context.Context, e transfer.Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}

	pub := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    e.ID.String(),
		Timestamp:    e.TS,
		Type:         string(e.Kind),
		Body:         b,
	}

	return r.publish(ctx, r.cfg.Exchange, string(e.Kind), true, false, pub)
}

func (r *RabbitMQ) GetConn() *amqp091.Connection { return r.conn }
