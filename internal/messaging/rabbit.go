// internal/messaging/rabbit.go
package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"message-sender/internal/metrics"
	"message-sender/internal/model"
)

type RabbitClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	URL     string

	eventsQueue   string
	requestsQueue string
	log           logrus.FieldLogger
}

func NewRabbitClient(url, eventsQueue, requestsQueue string, log logrus.FieldLogger) (*RabbitClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	return &RabbitClient{
		conn:          conn,
		channel:       ch,
		URL:           url,
		eventsQueue:   eventsQueue,
		requestsQueue: requestsQueue,
		log:           log,
	}, nil
}

func (r *RabbitClient) GetChannel() *amqp.Channel {
	return r.channel
}

func (r *RabbitClient) GetConnection() *amqp.Connection {
	return r.conn
}

func (r *RabbitClient) EventsQueue() string {
	return r.eventsQueue
}

func (r *RabbitClient) RequestsQueue() string {
	return r.requestsQueue
}

// DeclareQueues creates the durable events and requests queues. Each one
// dead-letters into its own "<name>_dlq".
func (r *RabbitClient) DeclareQueues() error {
	for _, name := range []string{r.eventsQueue, r.requestsQueue} {
		if err := r.declareWithDLQ(name); err != nil {
			return err
		}
	}
	r.log.WithFields(logrus.Fields{
		"events":   r.eventsQueue,
		"requests": r.requestsQueue,
	}).Info("[Rabbit] Queues declared")
	return nil
}

func (r *RabbitClient) declareWithDLQ(queueName string) error {
	dlqName := queueName + "_dlq"

	// 1. DLQ
	_, err := r.channel.QueueDeclare(
		dlqName,
		true, false, false, false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare DLQ %s: %w", dlqName, err)
	}

	// 2. Main Queue with DLQ binding
	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlqName,
	}
	_, err = r.channel.QueueDeclare(
		queueName,
		true, false, false, false,
		args,
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", queueName, err)
	}
	return nil
}

// Publish sends body to the named queue through the default exchange
func (r *RabbitClient) Publish(queueName string, body []byte) error {
	err := r.channel.Publish(
		"",        // default exchange
		queueName, // routing key (queue name)
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to queue %s: %w", queueName, err)
	}
	return nil
}

// PublishRun announces a finished run on the events queue
func (r *RabbitClient) PublishRun(run *model.Run) error {
	body, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", run.ID, err)
	}
	return r.Publish(r.eventsQueue, body)
}

// Close cleans up connection and channel
func (r *RabbitClient) Close() error {
	if err := r.channel.Close(); err != nil {
		return err
	}
	if err := r.conn.Close(); err != nil {
		return err
	}
	return nil
}

func (r *RabbitClient) UpdateQueueDepth() {
	for _, name := range []string{r.eventsQueue, r.requestsQueue} {
		q, err := r.channel.QueueInspect(name)
		if err != nil {
			r.log.WithError(err).WithField("queue", name).Warn("[Rabbit] Failed to inspect queue")
			continue
		}
		metrics.QueueDepth.WithLabelValues(name).Set(float64(q.Messages))
	}
}
