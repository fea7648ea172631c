package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Jeffersson-hub/apiTruthtalent/internal/config"
	"github.com/Jeffersson-hub/apiTruthtalent/internal/logger"
)

// RabbitMQ publishes and consumes CV pipeline events over AMQP. Channels
// are pooled; declarations are cached so topology calls stay cheap on the
// hot path.
type RabbitMQ struct {
	conn         *amqp.Connection
	channelPool  sync.Pool
	exchangeMap  map[string]bool
	queueMap     map[string]bool
	bindingMap   map[string]bool
	declareMutex sync.Mutex
	publishMutex sync.Mutex
	cfg          *config.RabbitMQConfig
}

// NewRabbitMQ dials the broker and verifies a channel can be opened.
func NewRabbitMQ(cfg *config.RabbitMQConfig) (*RabbitMQ, error) {
	if cfg == nil {
		return nil, fmt.Errorf("rabbitmq config cannot be nil")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connecting to rabbitmq: %w", err)
	}

	mq := &RabbitMQ{
		conn:        conn,
		exchangeMap: make(map[string]bool),
		queueMap:    make(map[string]bool),
		bindingMap:  make(map[string]bool),
		cfg:         cfg,
	}
	mq.channelPool = sync.Pool{
		New: func() interface{} {
			ch, chErr := conn.Channel()
			if chErr != nil {
				logger.Error().Err(chErr).Msg("opening rabbitmq channel failed")
				return nil
			}
			return ch
		},
	}

	testCh := mq.getChannel()
	if testCh == nil {
		conn.Close()
		return nil, fmt.Errorf("cannot open rabbitmq channel")
	}
	mq.putChannel(testCh)

	logger.Info().Str("url", cfg.URL).Msg("connected to rabbitmq")
	return mq, nil
}

func (r *RabbitMQ) getChannel() *amqp.Channel {
	ch := r.channelPool.Get()
	if ch == nil {
		newCh, err := r.conn.Channel()
		if err != nil {
			logger.Error().Err(err).Msg("opening rabbitmq channel failed")
			return nil
		}
		return newCh
	}
	return ch.(*amqp.Channel)
}

func (r *RabbitMQ) putChannel(ch *amqp.Channel) {
	if ch != nil {
		r.channelPool.Put(ch)
	}
}

// Close closes the broker connection and with it all pooled channels.
func (r *RabbitMQ) Close() error {
	return r.conn.Close()
}

// EnsureExchange declares a durable-or-not exchange once per process.
func (r *RabbitMQ) EnsureExchange(exchangeName, exchangeType string, durable bool) error {
	if exchangeName == "" {
		return fmt.Errorf("exchange name cannot be empty")
	}

	r.declareMutex.Lock()
	defer r.declareMutex.Unlock()
	if r.exchangeMap[exchangeName] {
		return nil
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("cannot open rabbitmq channel")
	}
	defer r.putChannel(ch)

	err := ch.ExchangeDeclare(exchangeName, exchangeType, durable, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declaring exchange %s: %w", exchangeName, err)
	}
	r.exchangeMap[exchangeName] = true
	return nil
}

// EnsureQueue declares a queue once per process.
func (r *RabbitMQ) EnsureQueue(queueName string, durable bool) error {
	r.declareMutex.Lock()
	defer r.declareMutex.Unlock()
	if r.queueMap[queueName] {
		return nil
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("cannot open rabbitmq channel")
	}
	defer r.putChannel(ch)

	if _, err := ch.QueueDeclare(queueName, durable, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring queue %s: %w", queueName, err)
	}
	r.queueMap[queueName] = true
	return nil
}

// BindQueue binds a queue to an exchange under a routing key.
func (r *RabbitMQ) BindQueue(queueName, exchangeName, routingKey string) error {
	bindingKey := fmt.Sprintf("%s:%s:%s", exchangeName, queueName, routingKey)

	r.declareMutex.Lock()
	defer r.declareMutex.Unlock()
	if r.bindingMap[bindingKey] {
		return nil
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("cannot open rabbitmq channel")
	}
	defer r.putChannel(ch)

	if err := ch.QueueBind(queueName, routingKey, exchangeName, false, nil); err != nil {
		return fmt.Errorf("binding queue %s to %s: %w", queueName, exchangeName, err)
	}
	r.bindingMap[bindingKey] = true
	return nil
}

// EnsureUploadTopology declares the exchange, queue and binding the upload
// event flow uses. Idempotent.
func (r *RabbitMQ) EnsureUploadTopology() error {
	if err := r.EnsureExchange(r.cfg.CVEventsExchange, "direct", true); err != nil {
		return err
	}
	if err := r.EnsureQueue(r.cfg.UploadedQueue, true); err != nil {
		return err
	}
	return r.BindQueue(r.cfg.UploadedQueue, r.cfg.CVEventsExchange, r.cfg.UploadedRoutingKey)
}

// RetryInterval is the configured delay before a failed delivery is handed
// back to the queue.
func (r *RabbitMQ) RetryInterval() time.Duration {
	return config.GetDuration(r.cfg.RetryInterval, 5*time.Second)
}

// PublishMessage publishes raw bytes to an exchange.
func (r *RabbitMQ) PublishMessage(ctx context.Context, exchangeName, routingKey string, message []byte, persistent bool) error {
	r.publishMutex.Lock()
	defer r.publishMutex.Unlock()

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("cannot open rabbitmq channel")
	}
	defer r.putChannel(ch)

	var deliveryMode uint8 = amqp.Transient
	if persistent {
		deliveryMode = amqp.Persistent
	}

	return ch.PublishWithContext(ctx, exchangeName, routingKey, false, false,
		amqp.Publishing{
			DeliveryMode: deliveryMode,
			ContentType:  "application/json",
			Body:         message,
			Timestamp:    time.Now(),
		})
}

// PublishJSON marshals data and publishes it.
func (r *RabbitMQ) PublishJSON(ctx context.Context, exchangeName, routingKey string, data interface{}, persistent bool) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}
	return r.PublishMessage(ctx, exchangeName, routingKey, jsonData, persistent)
}

// PublishCVUploaded announces a new upload on the events exchange.
func (r *RabbitMQ) PublishCVUploaded(ctx context.Context, event *CVUploadedEvent) error {
	return r.PublishJSON(ctx, r.cfg.CVEventsExchange, r.cfg.UploadedRoutingKey, event, true)
}

// StartConsumer consumes queueName on a dedicated channel; handler returning
// true acks the delivery, false nacks it back onto the queue. The returned
// channel stops the consumer when closed.
func (r *RabbitMQ) StartConsumer(queueName string, prefetchCount int, handler func([]byte) bool) (chan<- struct{}, error) {
	stopCh := make(chan struct{})

	ch := r.getChannel()
	if ch == nil {
		return nil, fmt.Errorf("cannot open rabbitmq channel")
	}

	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		r.putChannel(ch)
		return nil, fmt.Errorf("setting qos: %w", err)
	}

	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		r.putChannel(ch)
		return nil, fmt.Errorf("registering consumer on %s: %w", queueName, err)
	}

	go func() {
		defer r.putChannel(ch)
		defer logger.Info().Str("queue", queueName).Msg("rabbitmq consumer stopped")

		logger.Info().Str("queue", queueName).Int("prefetch", prefetchCount).Msg("rabbitmq consumer started")
		for {
			select {
			case <-stopCh:
				return
			case delivery, ok := <-deliveries:
				if !ok {
					logger.Warn().Str("queue", queueName).Msg("rabbitmq delivery channel closed")
					return
				}
				if handler(delivery.Body) {
					if err := delivery.Ack(false); err != nil {
						logger.Error().Err(err).Msg("ack failed")
					}
				} else {
					if err := delivery.Nack(false, true); err != nil {
						logger.Error().Err(err).Msg("nack failed")
					}
				}
			}
		}
	}()

	return stopCh, nil
}
