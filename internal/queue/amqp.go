package queue

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// AMQPQueue is the durable Queue implementation backed by RabbitMQ. One job
// per recipient survives process restarts; redelivery is bounded by the
// x-retry-count header.
type AMQPQueue struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger zerolog.Logger

	MaxRetries int
}

func DialAMQP(url string, logger zerolog.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	return &AMQPQueue{conn: conn, ch: ch, logger: logger, MaxRetries: 3}, nil
}

func (q *AMQPQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}

func (q *AMQPQueue) declare(topic string) (amqp.Queue, error) {
	return q.ch.QueueDeclare(
		topic,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
}

func (q *AMQPQueue) Publish(topic string, job Job) error {
	queue, err := q.declare(topic)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	return q.ch.Publish(
		"",
		queue.Name,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// Subscribe consumes the topic with manual acks. A failing handler gets the
// job redelivered up to MaxRetries times, then the delivery is dropped.
func (q *AMQPQueue) Subscribe(topic string, handler func(job Job) error) error {
	queue, err := q.declare(topic)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	msgs, err := q.ch.Consume(
		queue.Name,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	go func() {
		for d := range msgs {
			var job Job
			if err := json.Unmarshal(d.Body, &job); err != nil {
				q.logger.Error().Err(err).Msg("invalid job payload, dropping")
				d.Ack(false)
				continue
			}

			if err := handler(job); err != nil {
				retryCount := 0
				if v, ok := d.Headers["x-retry-count"].(int32); ok {
					retryCount = int(v)
				}
				if retryCount < q.MaxRetries {
					q.logger.Warn().Err(err).Int("retry", retryCount+1).
						Int("campaign_id", job.CampaignID).Msg("job failed, requeueing")
					q.republish(queue.Name, d.Body, retryCount+1)
				} else {
					q.logger.Error().Err(err).Int("campaign_id", job.CampaignID).
						Str("address", job.Address).Msg("job permanently failed")
				}
			}
			d.Ack(false)
		}
	}()

	return nil
}

func (q *AMQPQueue) republish(name string, body []byte, retryCount int) {
	err := q.ch.Publish(
		"",
		name,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Headers:      amqp.Table{"x-retry-count": int32(retryCount)},
			Body:         body,
		},
	)
	if err != nil {
		q.logger.Error().Err(err).Msg("failed to requeue job")
	}
}
