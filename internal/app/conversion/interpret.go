package conversion

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"video-conversion/internal/app/logsink"
	"video-conversion/internal/app/model"
	"video-conversion/internal/app/storage"
)

const (
	sourceStatusStore = "status_store"
	sourceQueue       = "queue"
)

// transcoderSignal is a transcoder status report from either channel.
type transcoderSignal struct {
	source       string
	raw          string
	outcome      model.Outcome
	jobID        string
	errorMessage string
}

func signalFromRecord(rec *model.StatusRecord) transcoderSignal {
	return transcoderSignal{
		source:       sourceStatusStore,
		raw:          rec.Status,
		outcome:      model.ParseOutcome(rec.Status),
		jobID:        rec.JobID,
		errorMessage: rec.ErrorMessage,
	}
}

func (e *Engine) signalFromMessage(msg model.StoredMessage) transcoderSignal {
	sig := transcoderSignal{
		source:  sourceQueue,
		raw:     msg.Status,
		outcome: model.ParseOutcome(msg.Status),
	}
	payload, err := msg.DecodePayload()
	if err != nil {
		e.logger.Warn("ignoring malformed message payload",
			zap.String("content_hash", msg.ContentHash),
			zap.String("message_id", msg.MessageID),
			zap.Error(err))
		return sig
	}
	sig.jobID = payload.JobID
	sig.errorMessage = payload.ErrorMessage
	return sig
}

// applyTranscoderSignal updates job in place. Progress and unknown statuses change
// nothing. An error means the signal could not be applied
// this pass and should be retried.
func (e *Engine) applyTranscoderSignal(ctx context.Context, job *model.ConversionJob, sig transcoderSignal) error {
	if job.TranscoderStatus.Terminal() {
		return nil
	}

	switch sig.outcome {
	case model.OutcomeSuccess:
		page, err := storage.ListAll(ctx, e.objects, storage.AreaOutput,
			storage.ListOptions{Prefix: e.OutputPrefix(job.ContentHash)}).Unwrap()
		if err != nil {
			return fmt.Errorf("list output of %s: %w", job.ContentHash, err)
		}
		var size int64
		hls := false
		for _, obj := range page.Items {
			size += obj.Size
			if strings.HasSuffix(obj.Key, e.opts.HLSSuffix) {
				hls = true
			}
		}
		job.OutputSize = size
		job.HasHLS = hls
		job.TranscoderStatus = model.StatusFinished
		job.TimeModified = e.now()
		e.prefixes.Add(job.ContentHash)

		e.logger.Info("transcoding finished",
			zap.String("content_hash", job.ContentHash),
			zap.String("source", sig.source),
			zap.Int("objects", len(page.Items)),
			zap.Int64("output_size", size),
			zap.Bool("hls", hls))
		return nil

	case model.OutcomeFailure:
		job.TranscoderStatus = model.StatusError
		job.TimeModified = e.now()
		e.events.Error(ctx, model.SubsystemTranscoder, job.ContentHash, logsink.Detail{
			"source":        sig.source,
			"status":        sig.raw,
			"job_id":        sig.jobID,
			"error_message": sig.errorMessage,
		}, true)
		return nil
	}
	return nil
}
