package conversion

import (
	"context"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"video-conversion/internal/app/channel"
	"video-conversion/internal/app/common"
	apperrors "video-conversion/internal/app/errors"
	"video-conversion/internal/app/logsink"
	"video-conversion/internal/app/model"
)

// ReconcileStats summarizes one reconciliation pass.
type ReconcileStats struct {
	Candidates int
	Updated    int
	Completed  int
	TimedOut   int
	Failed     int
	Ingest     channel.IngestStats
}

// candidate is a job selected for this pass together with what the status store said.
type candidate struct {
	hash       string
	record     *model.StatusRecord
	needsQueue bool
}

type jobResult struct {
	changed   bool
	completed bool
	timedOut  bool
}

// Reconcile folds both status channels into the state of every in-progress job and of
// finished jobs that still have open subtitle sub-jobs. Jobs run in parallel, each
// under its own lock; a failure on one job is logged and does not stop the others.
func (e *Engine) Reconcile(ctx context.Context) (ReconcileStats, error) {
	start := time.Now()
	defer func() { e.metrics.ObservePass(PassReconcile, time.Since(start)) }()

	var stats ReconcileStats
	jobs, err := e.store.ListReconcilable(ctx, e.opts.ReconcileBatchSize)
	if err != nil {
		return stats, err
	}
	stats.Candidates = len(jobs)
	if len(jobs) == 0 {
		return stats, nil
	}

	candidates := e.prepare(ctx, jobs)

	if e.ingestor != nil && lo.SomeBy(candidates, func(c *candidate) bool { return c.needsQueue }) {
		ingested, err := e.ingestor.Ingest(ctx)
		stats.Ingest = ingested
		if err != nil {
			e.metrics.ChannelError("queue")
			e.logger.Warn("queue ingestion failed, using stored messages only", zap.Error(err))
		}
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(e.opts.Concurrency)
	e.observer.PassStarted(PassReconcile, len(candidates))
	for _, c := range candidates {
		g.Go(func() error {
			res, err := e.reconcileJob(ctx, c)
			e.observer.JobDone(PassReconcile)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Failed++
				e.logger.Warn("reconciliation failed", zap.String("content_hash", c.hash), zap.Error(err))
				return nil
			}
			if res.changed {
				stats.Updated++
			}
			if res.completed {
				stats.Completed++
			}
			if res.timedOut {
				stats.TimedOut++
			}
			return nil
		})
	}
	g.Wait()

	e.logger.Info("reconciliation pass complete",
		zap.Int("candidates", stats.Candidates),
		zap.Int("updated", stats.Updated),
		zap.Int("completed", stats.Completed),
		zap.Int("timed_out", stats.TimedOut),
		zap.Int("failed", stats.Failed),
		zap.Int("messages_stored", stats.Ingest.Stored))
	return stats, ctx.Err()
}

// prepare looks up the status store for every candidate whose transcoder is still
// running and works out whether any of them needs the queue.
func (e *Engine) prepare(ctx context.Context, jobs []model.ConversionJob) []*candidate {
	candidates := make([]*candidate, len(jobs))
	var g errgroup.Group
	g.SetLimit(e.opts.Concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			c := &candidate{hash: job.ContentHash}
			candidates[i] = c

			transcoderOpen := !job.TranscoderStatus.Terminal()
			if transcoderOpen && e.status != nil {
				rec, err := e.status.GetStatus(ctx, job.ContentHash)
				if err != nil {
					e.metrics.ChannelError("status_store")
					e.logger.Warn("status store lookup failed",
						zap.String("content_hash", job.ContentHash), zap.Error(err))
				}
				c.record = rec
			}
			if transcoderOpen && c.record == nil {
				c.needsQueue = true
				return nil
			}

			subs, err := e.store.ListSubtitles(ctx, job.ContentHash)
			if err != nil {
				c.needsQueue = true
				return nil
			}
			c.needsQueue = lo.SomeBy(subs, func(s model.SubtitleJob) bool { return s.Status.Open() })
			return nil
		})
	}
	g.Wait()
	return candidates
}

// reconcileJob runs the per-job steps under the job lock.
func (e *Engine) reconcileJob(ctx context.Context, c *candidate) (jobResult, error) {
	var res jobResult
	unlock := e.locks.Lock(c.hash)
	defer unlock()

	job, err := e.store.GetJob(ctx, c.hash)
	if apperrors.Is(err, apperrors.ErrJobNotFound) {
		return res, nil
	}
	if err != nil {
		return res, err
	}
	subs, err := e.store.ListSubtitles(ctx, c.hash)
	if err != nil {
		return res, err
	}
	logger := common.JobLogger(e.logger, c.hash)
	before := *job
	// transcoderBlocked holds back later signals once one could not be applied.
	transcoderBlocked := false
	// transcoderHeard is set by any transcoder record or message, progress included.
	transcoderHeard := c.record != nil

	// 1. The status store wins whenever it has a record.
	if c.record != nil {
		if err := e.applyTranscoderSignal(ctx, job, signalFromRecord(c.record)); err != nil {
			logger.Warn("status store signal not applied", zap.Error(err))
			transcoderBlocked = true
		}
	}

	// 2. Stored queue messages, oldest first.
	msgs, err := e.store.PendingMessages(ctx, c.hash,
		[]model.Process{model.ProcessTranscoder, model.ProcessSubtitle})
	if err != nil {
		return res, err
	}
	processed := make([]int64, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Process {
		case model.ProcessSubtitle:
			e.applySubtitleMessage(ctx, subs, msg)
		case model.ProcessTranscoder:
			transcoderHeard = true
			if transcoderBlocked {
				continue
			}
			if c.record == nil {
				if err := e.applyTranscoderSignal(ctx, job, e.signalFromMessage(msg)); err != nil {
					logger.Warn("queue signal not applied", zap.Error(err))
					transcoderBlocked = true
					continue
				}
			}
		}
		processed = append(processed, msg.ID)
	}
	if len(processed) > 0 {
		if err := e.store.MarkProcessed(ctx, processed); err != nil {
			return res, err
		}
	}

	now := e.now()
	e.expireSubtitles(ctx, subs, now)

	// 3. The transcoder has been silent for too long. A job that still reports progress
	// is left to the completion timeout below.
	if job.TranscoderStatus == model.StatusInProgress && !transcoderHeard &&
		job.OlderThan(e.opts.StatusTimeout, now) {
		job.TranscoderStatus = model.StatusError
		res.timedOut = true
		e.events.Error(ctx, model.SubsystemTranscoder, c.hash, logsink.Detail{
			"reason":        "no status received",
			"last_modified": job.TimeModified.UTC().Format(time.RFC3339),
		}, true)
	}

	// 4. Overall status.
	if !job.Status.Terminal() {
		status, done := e.overallStatus(job, subs, now)
		if res.timedOut {
			status, done = model.StatusError, true
		}
		if done {
			e.complete(ctx, job, status)
			res.completed = true
		}
	}

	res.changed = jobChanged(&before, job)
	if res.changed {
		if err := e.store.UpdateJob(ctx, job); err != nil {
			return res, err
		}
	}

	if before.TranscoderStatus != model.StatusFinished && job.TranscoderStatus == model.StatusFinished {
		if err := e.unhider.Unhide(ctx, c.hash); err != nil {
			e.events.Error(ctx, model.SubsystemTranscoder, c.hash, logsink.Detail{
				"operation": "unhide",
				"error":     err.Error(),
			}, true)
		}
	}
	return res, nil
}

// overallStatus decides whether the job is done: every tracked sub-process is terminal,
// or nothing changed for longer than the completion timeout.
func (e *Engine) overallStatus(job *model.ConversionJob, subs []model.SubtitleJob, now time.Time) (model.Status, bool) {
	done := job.TranscoderStatus.Terminal()
	if done && e.opts.SubtitlesBlockCompletion {
		done = lo.EveryBy(subs, func(s model.SubtitleJob) bool { return s.Status.Terminal() })
	}
	if !done && !job.OlderThan(e.opts.CompletionTimeout, now) {
		return job.Status, false
	}

	switch job.TranscoderStatus {
	case model.StatusError, model.StatusUploadError:
		return model.StatusError, true
	case model.StatusNotFound:
		return model.StatusNotFound, true
	}
	return model.StatusFinished, true
}

// applySubtitleMessage applies one subtitle message to the matching sub-jobs in subs.
func (e *Engine) applySubtitleMessage(ctx context.Context, subs []model.SubtitleJob, msg model.StoredMessage) {
	outcome := model.ParseOutcome(msg.Status)
	target, ok := subtitleTarget(outcome)
	if !ok {
		return
	}
	payload, err := msg.DecodePayload()
	if err != nil {
		e.logger.Warn("ignoring malformed subtitle message",
			zap.String("content_hash", msg.ContentHash),
			zap.String("message_id", msg.MessageID),
			zap.Error(err))
		return
	}

	langs := lo.Map(payload.Languages(), func(l string, _ int) string { return normalizeLanguage(l) })
	if len(langs) == 0 {
		langs = e.resolver.Resolve(outcome, subs)
		e.logger.Debug("subtitle message names no language, guessed",
			zap.String("content_hash", msg.ContentHash), zap.Strings("languages", langs))
	}
	detail := payload.ErrorMessage
	if detail == "" {
		detail = msg.Status
	}

	for _, lang := range langs {
		_, idx, found := lo.FindIndexOf(subs, func(s model.SubtitleJob) bool { return s.Language == lang })
		if !found {
			e.logger.Debug("no subtitle sub-job for language",
				zap.String("content_hash", msg.ContentHash), zap.String("language", lang))
			continue
		}
		if _, err := e.advanceSubtitle(ctx, &subs[idx], target, detail, msg.MessageID); err != nil {
			if apperrors.Is(err, apperrors.ErrInvalidTransition) {
				e.logger.Debug("ignoring subtitle transition",
					zap.String("content_hash", msg.ContentHash),
					zap.String("language", lang),
					zap.Error(err))
				continue
			}
			e.logger.Warn("subtitle update failed",
				zap.String("content_hash", msg.ContentHash),
				zap.String("language", lang),
				zap.Error(err))
		}
	}
}

// expireSubtitles fails sub-jobs that stayed open past the completion timeout.
func (e *Engine) expireSubtitles(ctx context.Context, subs []model.SubtitleJob, now time.Time) {
	for i := range subs {
		sub := &subs[i]
		if !sub.Status.Open() || now.Sub(sub.TimeRequested) < e.opts.CompletionTimeout {
			continue
		}
		if _, err := e.advanceSubtitle(ctx, sub, model.SubtitleFailed, "no subtitle status received before timeout", ""); err != nil {
			e.logger.Warn("subtitle expiry failed",
				zap.String("content_hash", sub.ContentHash),
				zap.String("language", sub.Language),
				zap.Error(err))
		}
	}
}

func jobChanged(before, after *model.ConversionJob) bool {
	return before.Status != after.Status ||
		before.TranscoderStatus != after.TranscoderStatus ||
		before.OutputSize != after.OutputSize ||
		before.HasHLS != after.HasHLS ||
		before.InputDeleted != after.InputDeleted ||
		!before.TimeModified.Equal(after.TimeModified)
}
