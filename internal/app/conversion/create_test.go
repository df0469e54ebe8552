package conversion

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "video-conversion/internal/app/errors"
	"video-conversion/internal/app/model"
)

func TestCreateJob_Idempotent(t *testing.T) {
	h := newHarness(t)

	first, err := h.engine.CreateJob(h.ctx, CreateRequest{ContentHash: "abc123", Name: "intro.mp4", SubtitleLanguage: " FR "})
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, first.Status)
	assert.Equal(t, model.StatusAccepted, first.TranscoderStatus)

	second, err := h.engine.CreateJob(h.ctx, CreateRequest{ContentHash: "abc123", Name: "renamed.mp4", SubtitleLanguage: "fr"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "intro.mp4", second.Name)

	jobs, err := h.db.ListByStatus(h.ctx, model.StatusAccepted, 10)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	subs, err := h.db.ListSubtitles(h.ctx, "abc123")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "fr", subs[0].Language)
	assert.Equal(t, model.SubtitlePending, subs[0].Status)
}

func TestCreateJob_ConcurrentCreatorsLeaveOneRow(t *testing.T) {
	h := newHarness(t)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	ids := make([]int64, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			job, err := h.engine.CreateJob(h.ctx, CreateRequest{ContentHash: "abc123", Name: "race.mp4"})
			errs[i] = err
			if job != nil {
				ids[i] = job.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	jobs, err := h.db.ListByStatus(h.ctx, model.StatusAccepted, 10)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestCreateJob_Validation(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.CreateJob(h.ctx, CreateRequest{ContentHash: "  "})
	assert.EqualError(t, err, "content_hash is required")

	_, err = h.engine.CreateJob(h.ctx, CreateRequest{ContentHash: "abc123", MediaInfo: []byte("{not json")})
	assert.Error(t, err)
}

func TestCreateJob_AlternateTranscoderFlag(t *testing.T) {
	h := newHarness(t, withOptions(func(o *Options) { o.UseAlternate = true }))

	job, err := h.engine.CreateJob(h.ctx, CreateRequest{ContentHash: "abc123"})
	require.NoError(t, err)
	assert.True(t, job.AltTranscoder)
	assert.True(t, h.job("abc123").AltTranscoder)
}

func TestCreateSubtitleJob(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.CreateSubtitleJob(h.ctx, "abc123", "fr")
	assert.True(t, apperrors.Is(err, apperrors.ErrJobNotFound))

	_, err = h.engine.CreateJob(h.ctx, CreateRequest{ContentHash: "abc123"})
	require.NoError(t, err)

	first, err := h.engine.CreateSubtitleJob(h.ctx, "abc123", "fr")
	require.NoError(t, err)
	again, err := h.engine.CreateSubtitleJob(h.ctx, "abc123", "FR")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	_, err = h.engine.CreateSubtitleJob(h.ctx, "abc123", "")
	assert.Error(t, err)

	subs, err := h.db.ListSubtitles(h.ctx, "abc123")
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}
