package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/teranga-pos/payments/internal/config"
	"github.com/teranga-pos/payments/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue default queue name.
	DefaultQueue = constants.QueueDefault
	// CriticalQueue queue for webhook processing.
	CriticalQueue = constants.QueueCritical
)

// Client wraps the asynq producer.
type Client struct {
	client       *asynq.Client
	enabled      bool
	defaultQueue string
}

// NewClient creates a queue client.
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{enabled: false, defaultQueue: DefaultQueue}, nil
	}
	opt := buildRedisOpt(cfg)
	client := asynq.NewClient(opt)
	return &Client{
		client:       client,
		enabled:      true,
		defaultQueue: DefaultQueue,
	}, nil
}

// Enabled reports whether the queue is usable.
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close closes the client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueuePaymentWebhook pushes a webhook processing task. maxRetries bounds
// asynq's exponential backoff before the event is parked for manual
// reconciliation.
func (c *Client) EnqueuePaymentWebhook(payload PaymentWebhookPayload, maxRetries int) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewPaymentWebhookTask(payload)
	if err != nil {
		return err
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	options := []asynq.Option{asynq.Queue(CriticalQueue), asynq.MaxRetry(maxRetries)}
	_, err = c.client.Enqueue(task, options...)
	return err
}

// EnqueuePaymentStatusPoll pushes a delayed status poll task. Poll retry
// bookkeeping lives in the payload, so asynq-level retries stay at zero.
func (c *Client) EnqueuePaymentStatusPoll(payload PaymentStatusPollPayload, delay time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	if delay < 0 {
		delay = 0
	}
	task, err := NewPaymentStatusPollTask(payload)
	if err != nil {
		return err
	}
	options := []asynq.Option{
		asynq.Queue(c.defaultQueue),
		asynq.ProcessIn(delay),
		asynq.MaxRetry(0),
	}
	_, err = c.client.Enqueue(task, options...)
	return err
}

// BuildServerConfig builds the worker server configuration.
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	opt := buildRedisOpt(cfg)
	concurrency := 10
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{DefaultQueue: 5, CriticalQueue: 5}
	if cfg != nil && len(cfg.Queues) > 0 {
		queues = cfg.Queues
	}
	return opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host := "127.0.0.1"
	port := 6379
	password := ""
	db := 0
	if cfg != nil {
		if strings.TrimSpace(cfg.Host) != "" {
			host = strings.TrimSpace(cfg.Host)
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		password = cfg.Password
		db = cfg.DB
	}
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	}
}
