package conversion

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	apperrors "video-conversion/internal/app/errors"
	"video-conversion/internal/app/model"
)

// CreateRequest registers an uploaded video for conversion.
type CreateRequest struct {
	ContentHash string
	PathHash    string
	Name        string
	MediaInfo   json.RawMessage
	// SubtitleLanguage, when set, also requests subtitles in that language.
	SubtitleLanguage string
}

// CreateJob inserts an accepted job for the content hash. Creating a job that already
// exists, including losing a concurrent insert race, returns the existing job.
func (e *Engine) CreateJob(ctx context.Context, req CreateRequest) (*model.ConversionJob, error) {
	hash := strings.TrimSpace(req.ContentHash)
	if hash == "" {
		return nil, apperrors.RequiredField("content_hash")
	}
	if _, err := hex.DecodeString(req.PathHash); err != nil {
		return nil, apperrors.InvalidField("path_hash", "not hexadecimal")
	}
	if len(req.MediaInfo) > 0 && !json.Valid(req.MediaInfo) {
		return nil, apperrors.InvalidField("media_info", "not valid JSON")
	}

	now := e.now()
	job := &model.ConversionJob{
		ContentHash:      hash,
		PathHash:         req.PathHash,
		Name:             req.Name,
		Status:           model.StatusAccepted,
		TranscoderStatus: model.StatusAccepted,
		AltTranscoder:    e.opts.UseAlternate,
		MediaInfo:        req.MediaInfo,
		TimeCreated:      now,
		TimeModified:     now,
	}
	err := e.store.CreateJob(ctx, job)
	switch {
	case err == nil:
		e.logger.Info("conversion job created", zap.String("content_hash", hash), zap.String("name", req.Name))
	case apperrors.IsDuplicate(err):
		existing, gerr := e.store.GetJob(ctx, hash)
		if gerr != nil {
			return nil, gerr
		}
		job = existing
	default:
		return nil, err
	}

	if lang := normalizeLanguage(req.SubtitleLanguage); lang != "" {
		if _, err := e.createSubtitle(ctx, hash, lang); err != nil {
			return nil, err
		}
	}
	return job, nil
}

// CreateSubtitleJob requests subtitles for an existing job. A repeated request for the
// same language returns the existing sub-job unchanged.
func (e *Engine) CreateSubtitleJob(ctx context.Context, contentHash, language string) (*model.SubtitleJob, error) {
	lang := normalizeLanguage(language)
	if lang == "" {
		return nil, apperrors.RequiredField("language")
	}
	if _, err := e.store.GetJob(ctx, contentHash); err != nil {
		return nil, err
	}
	return e.createSubtitle(ctx, contentHash, lang)
}

func (e *Engine) createSubtitle(ctx context.Context, contentHash, lang string) (*model.SubtitleJob, error) {
	sub := &model.SubtitleJob{
		ContentHash:   contentHash,
		Language:      lang,
		Status:        model.SubtitlePending,
		TimeRequested: e.now(),
	}
	err := e.store.CreateSubtitle(ctx, sub)
	if apperrors.IsDuplicate(err) {
		return e.store.GetSubtitle(ctx, contentHash, lang)
	}
	if err != nil {
		return nil, fmt.Errorf("request %s subtitles: %w", lang, err)
	}
	return sub, nil
}

func normalizeLanguage(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}
