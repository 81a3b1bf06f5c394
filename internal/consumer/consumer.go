// internal/consumer/consumer.go
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"message-sender/internal/manager"
	"message-sender/internal/model"
)

// RequestHandlerFunc starts a run for a queued request. A returned error
// sends the delivery to the dead-letter queue, unless the request could not
// start yet (see Retryable).
type RequestHandlerFunc func(req model.RunRequest) error

// Delivery is the part of amqp.Delivery the consumer acknowledges through.
type Delivery interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
	Reject(requeue bool) error
}

// Retryable reports whether a valid request failed only because it could not
// start now: another run held the slot or the service is shutting down.
func Retryable(err error) bool {
	return errors.Is(err, manager.ErrBusy) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Consumer holds control channels and metadata for a running request consumer
type Consumer struct {
	QueueName   string
	Channel     *amqp.Channel
	StopChan    chan struct{}
	DoneChan    chan struct{}
	Handler     RequestHandlerFunc
	ConsumerTag string
	log         logrus.FieldLogger
}

// StartConsumer starts a goroutine that consumes run requests from queueName
func StartConsumer(conn *amqp.Connection, queueName string, handler RequestHandlerFunc, log logrus.FieldLogger) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("queue %s: failed to open channel: %w", queueName, err)
	}

	// one run at a time; the next request waits in the queue
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("queue %s: failed to set qos: %w", queueName, err)
	}

	consumerTag := fmt.Sprintf("loadgen-%s", queueName)
	msgs, err := ch.Consume(
		queueName,
		consumerTag,
		false, // autoAck: false to handle manually
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("queue %s: failed to start consuming: %w", queueName, err)
	}

	c := &Consumer{
		QueueName:   queueName,
		Channel:     ch,
		StopChan:    make(chan struct{}),
		DoneChan:    make(chan struct{}),
		Handler:     handler,
		ConsumerTag: consumerTag,
		log:         log.WithField("queue", queueName),
	}

	go c.consumeLoop(msgs)

	c.log.Info("[Consumer] Started")
	return c, nil
}

// consumeLoop processes deliveries until StopChan is closed
func (c *Consumer) consumeLoop(msgs <-chan amqp.Delivery) {
	defer close(c.DoneChan)

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				c.log.Warn("[Consumer] Delivery channel closed")
				return
			}
			c.handle(msg.Body, &msg)

		case <-c.StopChan:
			c.log.Info("[Consumer] Stopping")
			_ = c.Channel.Cancel(c.ConsumerTag, false)
			return
		}
	}
}

func (c *Consumer) handle(body []byte, d Delivery) {
	err := HandleRequest(body, c.Handler)
	if Retryable(err) {
		c.log.WithError(err).Info("[Consumer] Requeueing request")
		_ = d.Nack(false, true)
		return
	}
	if err != nil {
		c.log.WithError(err).Warn("[Consumer] Rejecting request")
		_ = d.Reject(false)
		return
	}
	_ = d.Ack(false)
}

// HandleRequest decodes and validates a queued run request and passes it on
func HandleRequest(body []byte, handler RequestHandlerFunc) error {
	var req model.RunRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	if req.MessageCount < 1 {
		return fmt.Errorf("request message_count %d must be at least 1", req.MessageCount)
	}
	if req.Port < 0 || req.Port > 65535 {
		return fmt.Errorf("request port %d out of range", req.Port)
	}
	return handler(req)
}

// Stop signals the consumer to stop and waits for cleanup
func (c *Consumer) Stop() {
	close(c.StopChan)
	<-c.DoneChan
	_ = c.Channel.Close()
	c.log.Info("[Consumer] Stopped")
}
