package conversion

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "video-conversion/internal/app/errors"
	"video-conversion/internal/app/model"
	"video-conversion/internal/app/storage"
)

func TestJob_IncludesSubtitles(t *testing.T) {
	h := newHarness(t)
	h.insertJob("abc123", model.StatusInProgress, model.StatusInProgress, base)
	h.addSubtitle("abc123", "de", model.SubtitlePending, base.Add(-time.Minute))
	h.addSubtitle("abc123", "en", model.SubtitleProcessing, base.Add(-2*time.Minute))

	view, err := h.engine.Job(h.ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", view.Job.ContentHash)
	assert.Equal(t, []string{"en", "de"}, lo.Map(view.Subtitles, func(s model.SubtitleJob, _ int) string { return s.Language }))

	_, err = h.engine.Job(h.ctx, "ffff00")
	assert.True(t, apperrors.Is(err, apperrors.ErrJobNotFound))
}

func TestDeleteJob_RemovesEverything(t *testing.T) {
	h := newHarness(t)
	h.insertJob("abc123", model.StatusFinished, model.StatusFinished, base)
	h.addSubtitle("abc123", "fr", model.SubtitleCompleted, base)
	h.storeMessage("m1", model.ProcessTranscoder, "COMPLETED", "abc123", "", base)
	h.objects.Put(storage.AreaOutput, "acme/abc123/video.mp4", []byte("video"))
	h.objects.Put(storage.AreaOutput, "acme/abc123/hls/index.m3u8", []byte("hls"))
	h.objects.Put(storage.AreaOutput, "acme/abc1234/video.mp4", []byte("neighbour"))
	h.engine.prefixes.Add("abc123")

	require.NoError(t, h.engine.DeleteJob(h.ctx, "abc123"))

	_, err := h.db.GetJob(h.ctx, "abc123")
	assert.True(t, apperrors.Is(err, apperrors.ErrJobNotFound))
	subs, err := h.db.ListSubtitles(h.ctx, "abc123")
	require.NoError(t, err)
	assert.Empty(t, subs)
	msgs, err := h.db.PendingMessages(h.ctx, "abc123", []model.Process{model.ProcessTranscoder})
	require.NoError(t, err)
	assert.Empty(t, msgs)

	page, err := storage.ListAll(h.ctx, h.objects, storage.AreaOutput, storage.ListOptions{Prefix: "acme/"}).Unwrap()
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "acme/abc1234/video.mp4", page.Items[0].Key)

	exists, _ := h.objects.Exists(h.ctx, storage.AreaInput, h.engine.InputKey("abc123")).Unwrap()
	assert.False(t, exists)

	err = h.engine.DeleteJob(h.ctx, "abc123")
	assert.True(t, apperrors.Is(err, apperrors.ErrJobNotFound))
}

func TestDeleteJob_ToleratesMissingInput(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.db.CreateJob(h.ctx, &model.ConversionJob{
		ContentHash:      "abc123",
		Status:           model.StatusFinished,
		TranscoderStatus: model.StatusFinished,
		InputDeleted:     true,
		TimeCreated:      base,
		TimeModified:     base,
	}))

	assert.NoError(t, h.engine.DeleteJob(h.ctx, "abc123"))
}

func TestPurgeMessages(t *testing.T) {
	h := newHarness(t)
	h.insertJob("abc123", model.StatusInProgress, model.StatusInProgress, base)
	h.storeMessage("old", model.ProcessTranscoder, "PROCESSING", "abc123", "", base.Add(-10*24*time.Hour))
	h.storeMessage("recent", model.ProcessTranscoder, "PROCESSING", "abc123", `{"job_id":"x"}`, base.Add(-time.Hour))
	h.storeMessage("unread", model.ProcessSubtitle, "PROCESSING", "abc123", "", base.Add(-9*24*time.Hour))
	h.storeMessage("orphan", model.ProcessTranscoder, "COMPLETED", "fff000", "", base.Add(-8*24*time.Hour))

	pending, err := h.db.PendingMessages(h.ctx, "abc123", []model.Process{model.ProcessTranscoder})
	require.NoError(t, err)
	require.NoError(t, h.db.MarkProcessed(h.ctx, lo.Map(pending, func(m model.StoredMessage, _ int) int64 { return m.ID })))

	n, err := h.engine.PurgeMessages(h.ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "processed and orphaned messages past retention go")

	orphans, err := h.db.PendingMessages(h.ctx, "fff000", []model.Process{model.ProcessTranscoder})
	require.NoError(t, err)
	assert.Empty(t, orphans)

	left, err := h.db.PendingMessages(h.ctx, "abc123", []model.Process{model.ProcessSubtitle})
	require.NoError(t, err)
	assert.Len(t, left, 1)

	_, err = h.engine.PurgeMessages(h.ctx, 0)
	assert.Error(t, err)
}

func TestApplySubtitleStatus_Errors(t *testing.T) {
	h := newHarness(t)
	h.insertJob("abc123", model.StatusFinished, model.StatusFinished, base)
	h.addSubtitle("abc123", "fr", model.SubtitleCompleted, base)

	_, err := h.engine.ApplySubtitleStatus(h.ctx, "abc123", "fr", model.SubtitleProcessing, "")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidTransition))
	assert.Equal(t, model.SubtitleCompleted, h.subtitle("abc123", "fr").Status)

	_, err = h.engine.ApplySubtitleStatus(h.ctx, "abc123", "de", model.SubtitleProcessing, "")
	assert.True(t, apperrors.Is(err, apperrors.ErrSubtitleNotFound))
}

func TestApplySubtitleStatus_Failure(t *testing.T) {
	h := newHarness(t)
	h.insertJob("abc123", model.StatusFinished, model.StatusFinished, base)
	h.addSubtitle("abc123", "fr", model.SubtitlePending, base)

	changed, err := h.engine.ApplySubtitleStatus(h.ctx, "abc123", " FR", model.SubtitleFailed, "model unavailable")
	require.NoError(t, err)
	assert.True(t, changed)

	sub := h.subtitle("abc123", "fr")
	assert.Equal(t, model.SubtitleFailed, sub.Status)
	assert.Equal(t, "model unavailable", sub.LastError)
	require.NotNil(t, sub.TimeCompleted)
	assert.Len(t, h.logs("abc123", model.LogError, model.SubsystemSubtitle), 1)
}
