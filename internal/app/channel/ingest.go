package channel

import (
	"context"
	"time"

	"go.uber.org/zap"

	apperrors "video-conversion/internal/app/errors"
	"video-conversion/internal/app/metrics"
	"video-conversion/internal/app/model"
)

const maxBatchesPerIngest = 10

// MessageSink stores deduplicated messages.
type MessageSink interface {
	InsertMessage(ctx context.Context, msg *model.StoredMessage) error
}

// Ingestor drains the queue into the message store. Other tenants' messages go back to
// the queue; redundant deliveries are acked and dropped.
type Ingestor struct {
	queue        Queue
	sink         MessageSink
	tenantPrefix string
	siteID       string
	batchSize    int
	metrics      *metrics.Collector
	logger       *zap.Logger
	now          func() time.Time
}

type IngestStats struct {
	Received   int
	Stored     int
	Duplicates int
	Foreign    int
	Invalid    int
}

func NewIngestor(queue Queue, sink MessageSink, tenantPrefix, siteID string, batchSize int,
	m *metrics.Collector, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		queue:        queue,
		sink:         sink,
		tenantPrefix: tenantPrefix,
		siteID:       siteID,
		batchSize:    batchSize,
		metrics:      m,
		logger:       logger,
		now:          time.Now,
	}
}

// BelongsToTenant accepts messages whose object key starts with the tenant prefix.
// Older producers keyed objects by site id, which is accepted as a fallback.
func (i *Ingestor) BelongsToTenant(msg model.QueueMessage) bool {
	segment := msg.TenantSegment()
	if segment == i.tenantPrefix {
		return true
	}
	if i.siteID == "" {
		return false
	}
	return msg.Site == i.siteID || segment == i.siteID
}

// Ingest pulls batches until the queue runs short or the per-pass batch limit is hit.
// A message is acked only once it is stored or known to be a duplicate. When the store
// fails the rest of the batch is requeued for the next pass.
func (i *Ingestor) Ingest(ctx context.Context) (IngestStats, error) {
	var (
		stats IngestStats
		// foreign deliveries stay unacked until the drain ends so this pass does not
		// receive them again.
		foreign []Delivery
	)
	defer func() { i.requeue(foreign) }()

	for n := 0; n < maxBatchesPerIngest; n++ {
		deliveries, err := i.queue.Receive(ctx, i.batchSize)
		if err != nil {
			i.requeue(deliveries)
			i.metrics.ChannelError("queue")
			return stats, err
		}
		stats.Received += len(deliveries)

		for idx, d := range deliveries {
			if !i.BelongsToTenant(d.Message) {
				stats.Foreign++
				i.metrics.QueueMessage("foreign")
				foreign = append(foreign, d)
				continue
			}
			if err := i.store(ctx, d.Message, &stats); err != nil {
				i.requeue(deliveries[idx:])
				return stats, err
			}
			if err := d.Ack(); err != nil {
				i.logger.Warn("ack failed, message will be redelivered",
					zap.String("message_id", d.Message.ID), zap.Error(err))
			}
		}
		if len(deliveries) < i.batchSize {
			break
		}
	}
	if stats.Received > 0 {
		i.logger.Debug("ingested queue messages",
			zap.Int("received", stats.Received),
			zap.Int("stored", stats.Stored),
			zap.Int("duplicates", stats.Duplicates),
			zap.Int("foreign", stats.Foreign),
			zap.Int("invalid", stats.Invalid))
	}
	return stats, nil
}

func (i *Ingestor) requeue(deliveries []Delivery) {
	for _, d := range deliveries {
		if err := d.Requeue(); err != nil {
			i.logger.Warn("requeue failed", zap.String("message_id", d.Message.ID), zap.Error(err))
		}
	}
}

func (i *Ingestor) store(ctx context.Context, msg model.QueueMessage, stats *IngestStats) error {
	hash := msg.ContentHash()
	if hash == "" {
		stats.Invalid++
		i.metrics.QueueMessage("invalid")
		i.logger.Warn("status message without content hash", zap.String("key", msg.ObjectKey))
		return nil
	}

	sentAt := msg.SentAt
	if sentAt.IsZero() {
		sentAt = i.now()
	}
	stored := &model.StoredMessage{
		MessageID:   msg.ID,
		PayloadHash: PayloadHash(msg),
		ContentHash: hash,
		Process:     msg.Process,
		Status:      msg.Status,
		ObjectKey:   msg.ObjectKey,
		Payload:     msg.Payload,
		SentAt:      sentAt,
		TimeCreated: i.now(),
	}
	err := i.sink.InsertMessage(ctx, stored)
	switch {
	case err == nil:
		stats.Stored++
		i.metrics.QueueMessage("stored")
	case apperrors.IsDuplicate(err):
		stats.Duplicates++
		i.metrics.QueueMessage("duplicate")
	default:
		return err
	}
	return nil
}
