package conversion

import (
	"context"

	"go.uber.org/zap"

	"video-conversion/internal/app/logsink"
	"video-conversion/internal/app/model"
)

// ApplySubtitleStatus moves the subtitle sub-job for language towards next and reports
// whether anything changed. Requesting the current state is a no-op; moving backwards
// fails with ErrInvalidTransition.
func (e *Engine) ApplySubtitleStatus(ctx context.Context, contentHash, language string, next model.SubtitleStatus, detail string) (bool, error) {
	unlock := e.locks.Lock(contentHash)
	defer unlock()

	sub, err := e.store.GetSubtitle(ctx, contentHash, normalizeLanguage(language))
	if err != nil {
		return false, err
	}
	return e.advanceSubtitle(ctx, sub, next, detail, "")
}

// advanceSubtitle applies next to sub in place. A completion reported for a sub-job that
// never saw a progress notice passes through processing first. Callers hold the job lock.
func (e *Engine) advanceSubtitle(ctx context.Context, sub *model.SubtitleJob, next model.SubtitleStatus, detail, messageID string) (bool, error) {
	steps := []model.SubtitleStatus{next}
	if sub.Status == model.SubtitlePending && next == model.SubtitleCompleted {
		steps = []model.SubtitleStatus{model.SubtitleProcessing, model.SubtitleCompleted}
	}

	current := sub.Status
	for _, step := range steps {
		ok, err := current.CanTransition(step)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		current = step
	}

	previous := *sub
	sub.Status = current
	if messageID != "" {
		sub.MessageID = messageID
	}
	if current == model.SubtitleFailed {
		sub.LastError = detail
	}
	if current.Terminal() {
		now := e.now()
		sub.TimeCompleted = &now
	}
	if err := e.store.UpdateSubtitle(ctx, sub); err != nil {
		*sub = previous
		return false, err
	}

	e.logger.Debug("subtitle status changed",
		zap.String("content_hash", sub.ContentHash),
		zap.String("language", sub.Language),
		zap.String("from", string(previous.Status)),
		zap.String("to", string(current)))
	switch current {
	case model.SubtitleCompleted:
		e.events.Info(ctx, model.SubsystemSubtitle, sub.ContentHash, logsink.Detail{
			"language": sub.Language,
			"status":   string(current),
		})
	case model.SubtitleFailed:
		e.events.Error(ctx, model.SubsystemSubtitle, sub.ContentHash, logsink.Detail{
			"language": sub.Language,
			"error":    detail,
		}, false)
	}
	return true, nil
}

// subtitleTarget maps a message outcome onto the subtitle state it requests.
func subtitleTarget(outcome model.Outcome) (model.SubtitleStatus, bool) {
	switch outcome {
	case model.OutcomeSuccess:
		return model.SubtitleCompleted, true
	case model.OutcomeFailure:
		return model.SubtitleFailed, true
	case model.OutcomeProgress:
		return model.SubtitleProcessing, true
	}
	return "", false
}
