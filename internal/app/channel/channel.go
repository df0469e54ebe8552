// Package channel talks to the two status-reporting channels of the transcoding
// pipeline: a key-value status store and a message queue.
package channel

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"video-conversion/internal/app/model"
	"video-conversion/internal/config"
)

// StatusStore looks up the latest status record of a content hash for this tenant.
// An absent record is (nil, nil).
type StatusStore interface {
	GetStatus(ctx context.Context, contentHash string) (*model.StatusRecord, error)
}

// Queue pulls up to max pending status messages. The broker keeps each delivery until
// it is acked or requeued.
type Queue interface {
	Receive(ctx context.Context, max int) ([]Delivery, error)
}

// Delivery is a received message awaiting settlement.
type Delivery struct {
	Message model.QueueMessage

	ack     func() error
	requeue func() error
}

// NewDelivery wraps msg with its settlement callbacks. A nil callback is a no-op, for
// brokers that settle on read.
func NewDelivery(msg model.QueueMessage, ack, requeue func() error) Delivery {
	return Delivery{Message: msg, ack: ack, requeue: requeue}
}

// Ack removes the message from the broker.
func (d Delivery) Ack() error {
	if d.ack == nil {
		return nil
	}
	return d.ack()
}

// Requeue hands the message back to the broker for a later receive.
func (d Delivery) Requeue() error {
	if d.requeue == nil {
		return nil
	}
	return d.requeue()
}

// NewStatusStore builds the backend named by cfg.Backend; "none" yields nil.
func NewStatusStore(cfg config.StatusStoreConfig, tenantID string, logger *zap.Logger) (StatusStore, error) {
	switch cfg.Backend {
	case config.BackendSDK:
		return NewRedisStatusStore(cfg, tenantID), nil
	case config.BackendHosted:
		return NewHostedClient(cfg.HostedURL, cfg.APIToken, tenantID, cfg.Timeout, logger), nil
	case config.BackendNone, "":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown status store backend %q", cfg.Backend)
}

// NewQueue builds the backend named by cfg.Backend; "none" yields nil.
func NewQueue(cfg config.QueueConfig, site string, logger *zap.Logger) (Queue, error) {
	switch cfg.Backend {
	case config.BackendSDK:
		q, err := DialAMQP(cfg.AMQPURL, cfg.QueueName, logger)
		if err != nil {
			return nil, err
		}
		return q, nil
	case config.BackendHosted:
		return NewHostedClient(cfg.HostedURL, cfg.APIToken, site, cfg.Timeout, logger), nil
	case config.BackendNone, "":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown queue backend %q", cfg.Backend)
}
