package conversion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	apperrors "video-conversion/internal/app/errors"
	"video-conversion/internal/app/model"
	"video-conversion/internal/app/storage"
)

// JobView is a job together with its subtitle sub-jobs.
type JobView struct {
	Job       model.ConversionJob
	Subtitles []model.SubtitleJob
}

// Job returns the job for a content hash with its subtitle sub-jobs.
func (e *Engine) Job(ctx context.Context, contentHash string) (*JobView, error) {
	job, err := e.store.GetJob(ctx, contentHash)
	if err != nil {
		return nil, err
	}
	subs, err := e.store.ListSubtitles(ctx, contentHash)
	if err != nil {
		return nil, err
	}
	return &JobView{Job: *job, Subtitles: subs}, nil
}

// HasOutput reports whether the output area holds renditions for the content hash.
func (e *Engine) HasOutput(ctx context.Context, contentHash string) (bool, error) {
	return e.prefixes.Has(ctx, contentHash)
}

// DeleteJob removes a job with everything stored for it: output renditions, the input
// object, subtitle sub-jobs and queue messages.
func (e *Engine) DeleteJob(ctx context.Context, contentHash string) error {
	unlock := e.locks.Lock(contentHash)
	defer unlock()

	if _, err := e.store.GetJob(ctx, contentHash); err != nil {
		return err
	}

	page, err := storage.ListAll(ctx, e.objects, storage.AreaOutput,
		storage.ListOptions{Prefix: e.OutputPrefix(contentHash)}).Unwrap()
	if err != nil {
		return fmt.Errorf("list output: %w", err)
	}
	if len(page.Items) > 0 {
		keys := lo.Map(page.Items, func(o storage.ObjectInfo, _ int) string { return o.Key })
		results, err := e.objects.DeleteMany(ctx, storage.AreaOutput, keys).Unwrap()
		if err != nil {
			return fmt.Errorf("delete output: %w", err)
		}
		var errs []error
		for _, r := range results {
			if r.Err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", r.Key, r.Err))
			}
		}
		if len(errs) > 0 {
			return fmt.Errorf("delete output: %w", errors.Join(errs...))
		}
	}
	e.prefixes.Delete(contentHash)

	res := e.objects.Delete(ctx, storage.AreaInput, e.InputKey(contentHash))
	if !res.OK() && !isMissingObject(res.StatusCode, res.Err) {
		return fmt.Errorf("delete input: %w", res.Err)
	}

	if err := e.store.DeleteMessages(ctx, contentHash); err != nil {
		return err
	}
	if err := e.store.DeleteSubtitles(ctx, contentHash); err != nil {
		return err
	}
	if err := e.store.DeleteJob(ctx, contentHash); err != nil {
		return err
	}
	e.logger.Info("conversion job deleted",
		zap.String("content_hash", contentHash), zap.Int("output_objects", len(page.Items)))
	return nil
}

// PurgeMessages drops queue messages older than retention that are processed or belong
// to no open job.
func (e *Engine) PurgeMessages(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, apperrors.InvalidField("retention", "must be positive")
	}
	n, err := e.store.PurgeMessages(ctx, e.now().Add(-retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		e.logger.Debug("purged queue messages", zap.Int64("count", n))
	}
	return n, nil
}
