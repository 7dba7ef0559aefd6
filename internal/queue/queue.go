package queue

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Job is one durable unit of dispatch work: a single recipient of a single
// campaign, carrying its personalization variables so the worker can render
// without another lookup.
type Job struct {
	CampaignID int    `json:"campaign_id"`
	Address    string `json:"address"`
	Name       string `json:"name,omitempty"`
	Value      string `json:"value,omitempty"`
	From       string `json:"from,omitempty"`
}

// Queue interface
type Queue interface {
	Publish(topic string, job Job) error
	Subscribe(topic string, handler func(job Job) error) error
}

// InMemoryQueue is an in-process queue with retry, used in tests and
// single-binary deployments.
type InMemoryQueue struct {
	mu       sync.Mutex
	wg       sync.WaitGroup
	handlers map[string][]func(job Job) error
	logger   zerolog.Logger

	// MaxRetries bounds redelivery per job; Backoff spaces the attempts.
	MaxRetries int
	Backoff    time.Duration
}

func NewInMemoryQueue(logger zerolog.Logger) *InMemoryQueue {
	return &InMemoryQueue{
		handlers:   make(map[string][]func(job Job) error),
		logger:     logger,
		MaxRetries: 3,
		Backoff:    100 * time.Millisecond,
	}
}

// Publish hands the job to all subscribers of the topic.
func (q *InMemoryQueue) Publish(topic string, job Job) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, handler := range handlers {
		q.wg.Add(1)
		go q.processJob(handler, job)
	}
	return nil
}

func (q *InMemoryQueue) processJob(handler func(job Job) error, job Job) {
	defer q.wg.Done()
	for attempt := 0; ; attempt++ {
		err := handler(job)
		if err == nil {
			return
		}
		if attempt >= q.MaxRetries {
			q.logger.Error().Err(err).Int("campaign_id", job.CampaignID).Str("address", job.Address).
				Msg("job permanently failed")
			return
		}
		q.logger.Warn().Err(err).Int("attempt", attempt+1).Int("campaign_id", job.CampaignID).
			Msg("job failed, retrying")
		time.Sleep(time.Duration(attempt+1) * q.Backoff)
	}
}

// Subscribe adds a handler for a topic.
func (q *InMemoryQueue) Subscribe(topic string, handler func(job Job) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Wait blocks until all published jobs have been processed. Test helper.
func (q *InMemoryQueue) Wait() {
	q.wg.Wait()
}
