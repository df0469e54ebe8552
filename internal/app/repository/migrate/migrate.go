package migrate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	apperrors "video-conversion/internal/app/errors"
	"video-conversion/internal/app/model"
	"video-conversion/internal/app/repository"
)

const batchSize = 1000

// Source is a store that can be paged by ID.
type Source interface {
	repository.SubtitleDAO
	ListAfter(ctx context.Context, afterID int64, limit int) ([]model.ConversionJob, error)
}

// Stats summarizes a copy run.
type Stats struct {
	Jobs      int
	Subtitles int
	Skipped   int
	LastID    int64
}

// Copy moves conversions and their subtitle sub-jobs from src to dst, starting after
// afterID. Rows already present in dst are skipped, so an interrupted copy can be rerun.
func Copy(ctx context.Context, src Source, dst repository.Store, afterID int64, logger *zap.Logger) (Stats, error) {
	stats := Stats{LastID: afterID}
	if err := dst.Migrate(ctx); err != nil {
		return stats, err
	}

	for {
		jobs, err := src.ListAfter(ctx, stats.LastID, batchSize)
		if err != nil {
			return stats, fmt.Errorf("read batch after %d: %w", stats.LastID, err)
		}
		if len(jobs) == 0 {
			return stats, nil
		}

		for i := range jobs {
			job := jobs[i]
			stats.LastID = job.ID

			if err := dst.CreateJob(ctx, &job); err != nil {
				if !apperrors.IsDuplicate(err) {
					return stats, err
				}
				stats.Skipped++
				logger.Debug("conversion already migrated", zap.String("content_hash", job.ContentHash))
			} else {
				stats.Jobs++
			}

			subs, err := src.ListSubtitles(ctx, job.ContentHash)
			if err != nil {
				return stats, err
			}
			for j := range subs {
				if err := dst.CreateSubtitle(ctx, &subs[j]); err != nil {
					if !apperrors.IsDuplicate(err) {
						return stats, err
					}
					continue
				}
				stats.Subtitles++
			}
		}
		logger.Info("migrated batch", zap.Int("jobs", stats.Jobs), zap.Int64("last_id", stats.LastID))
	}
}
