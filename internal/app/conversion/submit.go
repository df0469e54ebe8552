package conversion

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"video-conversion/internal/app/common"
	apperrors "video-conversion/internal/app/errors"
	"video-conversion/internal/app/logsink"
	"video-conversion/internal/app/model"
	"video-conversion/internal/app/storage"
)

// SubmitStats summarizes one submission pass.
type SubmitStats struct {
	Submitted    int
	NotFound     int
	UploadErrors int
	Skipped      int
	Failed       int
}

// SubmitPending submits accepted jobs, newest first, up to the submit batch size.
// A failure on one job is logged and does not stop the others.
func (e *Engine) SubmitPending(ctx context.Context) (SubmitStats, error) {
	start := time.Now()
	defer func() { e.metrics.ObservePass(PassSubmit, time.Since(start)) }()

	jobs, err := e.store.ListByStatus(ctx, model.StatusAccepted, e.opts.SubmitBatchSize)
	if err != nil {
		return SubmitStats{}, err
	}

	var (
		stats SubmitStats
		mu    sync.Mutex
		g     errgroup.Group
	)
	g.SetLimit(e.opts.Concurrency)
	e.observer.PassStarted(PassSubmit, len(jobs))
	for _, job := range jobs {
		hash := job.ContentHash
		g.Go(func() error {
			status, err := e.Submit(ctx, hash)
			e.observer.JobDone(PassSubmit)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				stats.Failed++
				e.logger.Warn("submission failed", zap.String("content_hash", hash), zap.Error(err))
			case status == model.StatusInProgress:
				stats.Submitted++
			case status == model.StatusNotFound:
				stats.NotFound++
			case status == model.StatusUploadError:
				stats.UploadErrors++
			default:
				stats.Skipped++
			}
			return nil
		})
	}
	g.Wait()

	if len(jobs) > 0 {
		e.logger.Info("submission pass complete",
			zap.Int("jobs", len(jobs)),
			zap.Int("submitted", stats.Submitted),
			zap.Int("not_found", stats.NotFound),
			zap.Int("upload_errors", stats.UploadErrors),
			zap.Int("failed", stats.Failed))
	}
	return stats, ctx.Err()
}

// Submit uploads the source of one accepted job to the input area and returns the
// resulting status. Jobs that are no longer accepted are left untouched.
func (e *Engine) Submit(ctx context.Context, contentHash string) (model.Status, error) {
	unlock := e.locks.Lock(contentHash)
	defer unlock()

	job, err := e.store.GetJob(ctx, contentHash)
	if err != nil {
		return "", err
	}
	if job.Status != model.StatusAccepted {
		return job.Status, nil
	}
	logger := common.JobLogger(e.logger, contentHash)

	f, size, err := e.openSource(job)
	if apperrors.Is(err, apperrors.ErrFileNotFound) {
		logger.Warn("source file missing, job will not be submitted")
		e.metrics.Submitted("not_found")
		return e.finishSubmission(ctx, job, model.StatusNotFound, model.StatusNotFound)
	}
	if err != nil {
		return "", err
	}
	defer f.Close()

	settings, err := e.buildSettings(ctx, job)
	if err != nil {
		return "", err
	}
	key := e.InputKey(contentHash)
	res := e.objects.Upload(ctx, storage.AreaInput, key, f, size, settingsMetadata(settings))
	if !res.OK() {
		e.metrics.Submitted("upload_error")
		e.events.Error(ctx, model.SubsystemObjectStore, contentHash, logsink.Detail{
			"operation":   "upload",
			"key":         key,
			"status_code": res.StatusCode,
			"error":       res.Err.Error(),
		}, true)
		return e.finishSubmission(ctx, job, model.StatusUploadError, model.StatusError)
	}

	logger.Info("submitted for conversion",
		zap.String("key", key),
		zap.Int64("size", size),
		zap.String("transcoder", settings.Transcoder))
	e.metrics.Submitted("submitted")
	return e.finishSubmission(ctx, job, model.StatusInProgress, model.StatusInProgress)
}

func (e *Engine) finishSubmission(ctx context.Context, job *model.ConversionJob, status, transcoder model.Status) (model.Status, error) {
	job.Status = status
	job.TranscoderStatus = transcoder
	job.TimeModified = e.now()
	if status.Terminal() {
		e.metrics.Transition(string(status))
	}
	if err := e.store.UpdateJob(ctx, job); err != nil {
		return "", err
	}
	return status, nil
}

// buildSettings assembles the payload the transcoder reads from the uploaded object.
func (e *Engine) buildSettings(ctx context.Context, job *model.ConversionJob) (model.SubmissionSettings, error) {
	settings := model.SubmissionSettings{
		Site:       e.opts.SiteID,
		Transcoder: e.opts.TranscoderBackend,
		MediaInfo:  job.MediaInfo,
	}
	if job.AltTranscoder {
		settings.Transcoder = e.opts.AlternateBackend
	}

	info, err := model.ParseMediaInfo(job.MediaInfo)
	if err != nil {
		e.logger.Warn("ignoring unreadable media info",
			zap.String("content_hash", job.ContentHash), zap.Error(err))
		settings.MediaInfo = nil
	} else if w, h, ok := info.VideoSize(); ok {
		res := ScaleToFit(w, h, e.opts.MaxWidth, e.opts.MaxHeight)
		settings.Resolution = &res
	}

	sub, err := e.store.GetSubtitle(ctx, job.ContentHash, e.opts.DefaultLanguage)
	switch {
	case err == nil:
		if sub.Status == model.SubtitlePending {
			settings.Subtitles = true
			settings.SubtitleLanguage = sub.Language
		}
	case apperrors.Is(err, apperrors.ErrSubtitleNotFound):
	default:
		return settings, err
	}
	return settings, nil
}

// settingsMetadata flattens settings into object metadata.
func settingsMetadata(s model.SubmissionSettings) map[string]string {
	raw, _ := json.Marshal(s)
	meta := map[string]string{
		"settings":   string(raw),
		"site":       s.Site,
		"transcoder": s.Transcoder,
		"subtitles":  strconv.FormatBool(s.Subtitles),
	}
	if s.Resolution != nil {
		meta["width"] = strconv.Itoa(s.Resolution.Width)
		meta["height"] = strconv.Itoa(s.Resolution.Height)
	}
	if s.SubtitleLanguage != "" {
		meta["subtitle_language"] = s.SubtitleLanguage
	}
	return meta
}

// openSource opens the job's upload through its storage path digest. Jobs created
// without one are looked up by content hash.
func (e *Engine) openSource(job *model.ConversionJob) (*os.File, int64, error) {
	if job.PathHash != "" {
		return e.files.OpenPath(job.PathHash)
	}
	return e.files.Open(job.ContentHash)
}
