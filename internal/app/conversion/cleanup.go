package conversion

import (
	"context"
	"net/http"

	apperrors "video-conversion/internal/app/errors"
	"video-conversion/internal/app/logsink"
	"video-conversion/internal/app/model"
	"video-conversion/internal/app/storage"
)

// complete moves job into a terminal overall status and removes its uploaded input.
func (e *Engine) complete(ctx context.Context, job *model.ConversionJob, status model.Status) {
	now := e.now()
	job.Status = status
	job.TimeModified = now
	job.TimeCompleted = &now
	e.metrics.Transition(string(status))
	e.cleanupInput(ctx, job)
}

// cleanupInput deletes the job's input object. A missing object counts as deleted. A
// failure is logged and leaves the job status as it is.
func (e *Engine) cleanupInput(ctx context.Context, job *model.ConversionJob) {
	key := e.InputKey(job.ContentHash)
	res := e.objects.Delete(ctx, storage.AreaInput, key)
	if res.OK() || isMissingObject(res.StatusCode, res.Err) {
		job.InputDeleted = true
		e.events.Info(ctx, model.SubsystemCleanup, job.ContentHash, logsink.Detail{
			"key":    key,
			"status": string(job.Status),
		})
		return
	}
	e.events.Error(ctx, model.SubsystemCleanup, job.ContentHash, logsink.Detail{
		"key":         key,
		"status":      string(job.Status),
		"status_code": res.StatusCode,
		"error":       res.Err.Error(),
	}, false)
}

func isMissingObject(statusCode int, err error) bool {
	return statusCode == http.StatusNotFound || apperrors.Is(err, apperrors.ErrObjectNotFound)
}
