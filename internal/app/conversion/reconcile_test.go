package conversion

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"video-conversion/internal/app/model"
	"video-conversion/internal/app/storage"
	"video-conversion/internal/app/testutil"
)

const jobHash = "abc123"

func completedRecord(status string) *model.StatusRecord {
	return &model.StatusRecord{ContentHash: jobHash, TenantID: "site-1", Status: status, JobID: "mc-1"}
}

func TestReconcile_StatusStoreCompletion(t *testing.T) {
	kv := &testutil.MockStatusStore{}
	kv.On("GetStatus", mock.Anything, jobHash).Return(completedRecord("COMPLETED"), nil)
	h := newHarness(t, withStatusStore(kv))

	h.insertJob(jobHash, model.StatusInProgress, model.StatusInProgress, base.Add(-time.Hour))
	h.objects.Put(storage.AreaOutput, "acme/abc123/video_1080.mp4", make([]byte, 10))
	h.objects.Put(storage.AreaOutput, "acme/abc123/hls/master.m3u8", make([]byte, 5))
	h.objects.Put(storage.AreaOutput, "acme/other/video.mp4", make([]byte, 99))

	stats, err := h.engine.Reconcile(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Candidates)
	assert.Equal(t, 1, stats.Completed)
	assert.Zero(t, h.queue.Receives, "no queue pull when the status store answered")

	job := h.job(jobHash)
	assert.Equal(t, model.StatusFinished, job.Status)
	assert.Equal(t, model.StatusFinished, job.TranscoderStatus)
	assert.Equal(t, int64(15), job.OutputSize)
	assert.True(t, job.HasHLS)
	assert.True(t, job.InputDeleted)
	require.NotNil(t, job.TimeCompleted)
	assert.True(t, job.TimeCompleted.Equal(base))

	exists, _ := h.objects.Exists(h.ctx, storage.AreaInput, h.engine.InputKey(jobHash)).Unwrap()
	assert.False(t, exists, "input removed on completion")
	assert.Len(t, h.logs(jobHash, model.LogInfo, model.SubsystemCleanup), 1)

	has, err := h.engine.HasOutput(h.ctx, jobHash)
	require.NoError(t, err)
	assert.True(t, has)

	_, err = h.engine.Reconcile(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, h.unhider.Calls(jobHash), "unhide runs once")
	kv.AssertNumberOfCalls(t, "GetStatus", 1)
}

func TestReconcile_StatusStorePreferredOverQueue(t *testing.T) {
	kv := &testutil.MockStatusStore{}
	kv.On("GetStatus", mock.Anything, jobHash).Return(completedRecord("COMPLETE"), nil)
	h := newHarness(t, withStatusStore(kv))

	h.insertJob(jobHash, model.StatusInProgress, model.StatusInProgress, base.Add(-time.Hour))
	h.storeMessage("q-1", model.ProcessTranscoder, "ERROR", jobHash, `{"error_message":"stale"}`, base.Add(-time.Minute))

	_, err := h.engine.Reconcile(h.ctx)
	require.NoError(t, err)

	job := h.job(jobHash)
	assert.Equal(t, model.StatusFinished, job.TranscoderStatus)
	assert.Equal(t, model.StatusFinished, job.Status)
	assert.Empty(t, h.logs(jobHash, model.LogError, model.SubsystemTranscoder))

	pending, err := h.db.PendingMessages(h.ctx, jobHash, []model.Process{model.ProcessTranscoder})
	require.NoError(t, err)
	assert.Empty(t, pending, "superseded message is consumed")
	kv.AssertExpectations(t)
}

func TestReconcile_StatusStoreProgressChangesNothing(t *testing.T) {
	kv := &testutil.MockStatusStore{}
	kv.On("GetStatus", mock.Anything, jobHash).Return(completedRecord("PROGRESSING"), nil)
	h := newHarness(t, withStatusStore(kv))
	modified := base.Add(-time.Hour)
	h.insertJob(jobHash, model.StatusInProgress, model.StatusInProgress, modified)

	stats, err := h.engine.Reconcile(h.ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Updated)

	job := h.job(jobHash)
	assert.Equal(t, model.StatusInProgress, job.TranscoderStatus)
	assert.True(t, job.TimeModified.Equal(modified))
}

func TestReconcile_StatusStoreFailureFallsBackToQueue(t *testing.T) {
	kv := &testutil.MockStatusStore{}
	kv.On("GetStatus", mock.Anything, jobHash).Return(nil, errors.New("connection refused"))
	h := newHarness(t, withStatusStore(kv))
	h.insertJob(jobHash, model.StatusInProgress, model.StatusInProgress, base.Add(-time.Hour))
	h.queue.Push(testutil.QueueMessage("q-1", model.ProcessTranscoder, "COMPLETED", "acme", jobHash, "", base))

	_, err := h.engine.Reconcile(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, h.queue.Receives)
	assert.Equal(t, model.StatusFinished, h.job(jobHash).Status)
}

func TestReconcile_QueueErrorMarksJobFailed(t *testing.T) {
	h := newHarness(t)
	h.insertJob(jobHash, model.StatusInProgress, model.StatusInProgress, base.Add(-time.Hour))
	h.queue.Push(testutil.QueueMessage("q-1", model.ProcessTranscoder, "FAILED", "acme", jobHash,
		`{"job_id":"mc-42","error_message":"unsupported codec"}`, base))

	stats, err := h.engine.Reconcile(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Ingest.Stored)

	job := h.job(jobHash)
	assert.Equal(t, model.StatusError, job.TranscoderStatus)
	assert.Equal(t, model.StatusError, job.Status)
	assert.True(t, job.InputDeleted)
	assert.Zero(t, h.unhider.Calls(jobHash))

	entries := h.logs(jobHash, model.LogError, model.SubsystemTranscoder)
	require.Len(t, entries, 1)
	var detail map[string]string
	require.NoError(t, json.Unmarshal(entries[0].Detail, &detail))
	assert.Equal(t, "mc-42", detail["job_id"])
	assert.Equal(t, "unsupported codec", detail["error_message"])
	assert.Equal(t, "queue", detail["source"])
}

func TestReconcile_DuplicateQueueDeliveriesStoredOnce(t *testing.T) {
	h := newHarness(t)
	h.insertJob(jobHash, model.StatusInProgress, model.StatusInProgress, base.Add(-time.Hour))

	msg := testutil.QueueMessage("q-1", model.ProcessTranscoder, "PROCESSING", "acme", jobHash, `{"job_id":"mc-1"}`, base)
	redelivered := msg
	redelivered.ID = "q-2"
	h.queue.Push(msg, redelivered)

	stats, err := h.engine.Reconcile(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Ingest.Stored)
	assert.Equal(t, 1, stats.Ingest.Duplicates)

	var n int
	require.NoError(t, h.db.DB().QueryRow("SELECT COUNT(*) FROM conversion_messages").Scan(&n))
	assert.Equal(t, 1, n)
	assert.Equal(t, model.StatusInProgress, h.job(jobHash).TranscoderStatus)
}

func TestReconcile_StatusTimeout(t *testing.T) {
	tests := []struct {
		name       string
		age        time.Duration
		wantStatus model.Status
	}{
		{"silent for 25h", 25 * time.Hour, model.StatusError},
		{"silent for 23h", 23 * time.Hour, model.StatusInProgress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.insertJob(jobHash, model.StatusInProgress, model.StatusInProgress, base.Add(-tt.age))

			stats, err := h.engine.Reconcile(h.ctx)
			require.NoError(t, err)

			job := h.job(jobHash)
			assert.Equal(t, tt.wantStatus, job.Status)
			assert.Equal(t, tt.wantStatus, job.TranscoderStatus)
			if tt.wantStatus == model.StatusError {
				assert.Equal(t, 1, stats.TimedOut)
				assert.Len(t, h.logs(jobHash, model.LogError, model.SubsystemTranscoder), 1)
			}
		})
	}
}

func TestReconcile_ProgressReportsReachCompletionTimeout(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) *harness
	}{
		{
			name: "status store says progressing",
			setup: func(t *testing.T) *harness {
				kv := &testutil.MockStatusStore{}
				kv.On("GetStatus", mock.Anything, jobHash).Return(completedRecord("PROGRESSING"), nil)
				return newHarness(t, withStatusStore(kv))
			},
		},
		{
			name: "queue says processing",
			setup: func(t *testing.T) *harness {
				h := newHarness(t)
				h.queue.Push(testutil.QueueMessage("q-1", model.ProcessTranscoder, "PROCESSING", "acme", jobHash, "", base.Add(-time.Minute)))
				return h
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := tt.setup(t)
			h.insertJob(jobHash, model.StatusInProgress, model.StatusInProgress, base.Add(-25*time.Hour))

			stats, err := h.engine.Reconcile(h.ctx)
			require.NoError(t, err)
			assert.Zero(t, stats.TimedOut)
			assert.Equal(t, 1, stats.Completed)

			job := h.job(jobHash)
			assert.Equal(t, model.StatusFinished, job.Status)
			assert.Equal(t, model.StatusInProgress, job.TranscoderStatus, "remote status stays unknown")
			assert.True(t, job.InputDeleted)
			assert.Empty(t, h.logs(jobHash, model.LogError, model.SubsystemTranscoder))
			assert.Zero(t, h.unhider.Calls(jobHash))
		})
	}
}

func TestReconcile_FinishedRequiresEverySubProcess(t *testing.T) {
	kv := &testutil.MockStatusStore{}
	kv.On("GetStatus", mock.Anything, jobHash).Return(completedRecord("SUCCEEDED"), nil)
	h := newHarness(t, withStatusStore(kv))
	h.insertJob(jobHash, model.StatusInProgress, model.StatusInProgress, base.Add(-time.Hour))
	h.addSubtitle(jobHash, "fr", model.SubtitlePending, base.Add(-time.Hour))

	_, err := h.engine.Reconcile(h.ctx)
	require.NoError(t, err)
	job := h.job(jobHash)
	assert.Equal(t, model.StatusFinished, job.TranscoderStatus)
	assert.Equal(t, model.StatusInProgress, job.Status, "open subtitle keeps the job open")
	assert.Nil(t, job.TimeCompleted)
	assert.False(t, job.InputDeleted)
	assert.Equal(t, 1, h.unhider.Calls(jobHash))

	h.queue.Push(testutil.QueueMessage("q-1", model.ProcessSubtitle, "COMPLETED", "acme", jobHash, `{"target_lang":"fr"}`, base))
	_, err = h.engine.Reconcile(h.ctx)
	require.NoError(t, err)

	job = h.job(jobHash)
	assert.Equal(t, model.StatusFinished, job.Status)
	assert.True(t, job.InputDeleted)
	assert.Equal(t, model.SubtitleCompleted, h.subtitle(jobHash, "fr").Status)
	assert.Equal(t, 1, h.unhider.Calls(jobHash))
}

func TestReconcile_SubtitlesIgnoredForCompletion(t *testing.T) {
	h := newHarness(t, withOptions(func(o *Options) { o.SubtitlesBlockCompletion = false }))
	h.insertJob(jobHash, model.StatusInProgress, model.StatusInProgress, base.Add(-time.Hour))
	h.addSubtitle(jobHash, "fr", model.SubtitlePending, base.Add(-time.Hour))
	h.queue.Push(testutil.QueueMessage("q-1", model.ProcessTranscoder, "COMPLETED", "acme", jobHash, "", base))

	_, err := h.engine.Reconcile(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFinished, h.job(jobHash).Status)
	assert.Equal(t, model.SubtitlePending, h.subtitle(jobHash, "fr").Status)
}

func TestReconcile_CompletionTimeoutFinishesOpenJob(t *testing.T) {
	h := newHarness(t)
	h.insertJob(jobHash, model.StatusInProgress, model.StatusFinished, base.Add(-25*time.Hour))
	h.addSubtitle(jobHash, "fr", model.SubtitlePending, base.Add(-time.Hour))

	stats, err := h.engine.Reconcile(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, model.StatusFinished, h.job(jobHash).Status)
	assert.Equal(t, model.SubtitlePending, h.subtitle(jobHash, "fr").Status, "sub-job is still tracked")

	stats, err = h.engine.Reconcile(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Candidates, "finished job with open subtitles is still polled")
}

func TestReconcile_FrenchSubtitleLifecycle(t *testing.T) {
	h := newHarness(t)
	h.insertJob(jobHash, model.StatusFinished, model.StatusFinished, base.Add(-time.Hour))
	h.addSubtitle(jobHash, "fr", model.SubtitlePending, base.Add(-time.Hour))

	h.queue.Push(testutil.QueueMessage("m1", model.ProcessSubtitle, "PROCESSING", "acme", jobHash, `{"target_lang":"fr"}`, base))
	_, err := h.engine.Reconcile(h.ctx)
	require.NoError(t, err)
	sub := h.subtitle(jobHash, "fr")
	assert.Equal(t, model.SubtitleProcessing, sub.Status)
	assert.Nil(t, sub.TimeCompleted)

	h.queue.Push(testutil.QueueMessage("m2", model.ProcessSubtitle, "COMPLETED", "acme", jobHash, `{"target_lang":"fr"}`, base.Add(time.Minute)))
	_, err = h.engine.Reconcile(h.ctx)
	require.NoError(t, err)
	sub = h.subtitle(jobHash, "fr")
	assert.Equal(t, model.SubtitleCompleted, sub.Status)
	assert.Equal(t, "m2", sub.MessageID)
	require.NotNil(t, sub.TimeCompleted)

	changed, err := h.engine.ApplySubtitleStatus(h.ctx, jobHash, "fr", model.SubtitleCompleted, "")
	require.NoError(t, err)
	assert.False(t, changed, "repeated completion is a no-op")
	assert.Equal(t, "m2", h.subtitle(jobHash, "fr").MessageID)
}

func TestReconcile_SubtitleLanguageBestGuess(t *testing.T) {
	h := newHarness(t)
	h.insertJob(jobHash, model.StatusFinished, model.StatusFinished, base.Add(-time.Hour))
	h.addSubtitle(jobHash, "en", model.SubtitlePending, base.Add(-3*time.Hour))
	h.addSubtitle(jobHash, "de", model.SubtitlePending, base.Add(-2*time.Hour))
	h.addSubtitle(jobHash, "es", model.SubtitlePending, base.Add(-time.Hour))

	h.queue.Push(
		testutil.QueueMessage("m1", model.ProcessSubtitle, "COMPLETED", "acme", jobHash, "", base),
		testutil.QueueMessage("m2", model.ProcessSubtitle, "PROCESSING", "acme", jobHash, "{}", base.Add(time.Second)),
	)
	_, err := h.engine.Reconcile(h.ctx)
	require.NoError(t, err)

	assert.Equal(t, model.SubtitleCompleted, h.subtitle(jobHash, "en").Status, "oldest open language completed")
	assert.Equal(t, model.SubtitleProcessing, h.subtitle(jobHash, "de").Status)
	assert.Equal(t, model.SubtitleProcessing, h.subtitle(jobHash, "es").Status)
}

func TestReconcile_SubtitleFailureAndMultipleLanguages(t *testing.T) {
	h := newHarness(t)
	h.insertJob(jobHash, model.StatusFinished, model.StatusFinished, base.Add(-time.Hour))
	h.addSubtitle(jobHash, "fr", model.SubtitleProcessing, base.Add(-time.Hour))
	h.addSubtitle(jobHash, "de", model.SubtitlePending, base.Add(-time.Hour))

	h.queue.Push(testutil.QueueMessage("m1", model.ProcessSubtitle, "ERROR", "acme", jobHash,
		`{"target_langs":["FR","de"],"error_message":"speech not detected"}`, base))
	_, err := h.engine.Reconcile(h.ctx)
	require.NoError(t, err)

	for _, lang := range []string{"fr", "de"} {
		sub := h.subtitle(jobHash, lang)
		assert.Equal(t, model.SubtitleFailed, sub.Status, lang)
		assert.Equal(t, "speech not detected", sub.LastError, lang)
	}
	assert.Len(t, h.logs(jobHash, model.LogError, model.SubsystemSubtitle), 2)
}

func TestReconcile_SubtitleNeverMovesBackward(t *testing.T) {
	h := newHarness(t)
	h.insertJob(jobHash, model.StatusFinished, model.StatusFinished, base.Add(-time.Hour))
	h.addSubtitle(jobHash, "fr", model.SubtitleCompleted, base.Add(-time.Hour))
	h.addSubtitle(jobHash, "de", model.SubtitlePending, base.Add(-time.Hour))

	h.queue.Push(testutil.QueueMessage("m1", model.ProcessSubtitle, "PROCESSING", "acme", jobHash, `{"language":"fr"}`, base))
	_, err := h.engine.Reconcile(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, model.SubtitleCompleted, h.subtitle(jobHash, "fr").Status)

	pending, err := h.db.PendingMessages(h.ctx, jobHash, []model.Process{model.ProcessSubtitle})
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestReconcile_ExpiresStaleSubtitles(t *testing.T) {
	h := newHarness(t)
	h.insertJob(jobHash, model.StatusFinished, model.StatusFinished, base.Add(-30*time.Hour))
	h.addSubtitle(jobHash, "fr", model.SubtitlePending, base.Add(-25*time.Hour))

	_, err := h.engine.Reconcile(h.ctx)
	require.NoError(t, err)

	sub := h.subtitle(jobHash, "fr")
	assert.Equal(t, model.SubtitleFailed, sub.Status)
	assert.NotEmpty(t, sub.LastError)

	stats, err := h.engine.Reconcile(h.ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Candidates)
}

func TestReconcile_ForeignTenantMessagesIgnored(t *testing.T) {
	h := newHarness(t)
	h.insertJob(jobHash, model.StatusInProgress, model.StatusInProgress, base.Add(-time.Hour))
	h.queue.Push(testutil.QueueMessage("q-1", model.ProcessTranscoder, "COMPLETED", "someone-else", jobHash, "", base))

	stats, err := h.engine.Reconcile(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Ingest.Foreign)
	assert.Equal(t, model.StatusInProgress, h.job(jobHash).Status)
	assert.Equal(t, 1, h.queue.Len(), "left for the tenant it belongs to")
	assert.Empty(t, h.queue.Acked())
}

func TestReconcile_QueueMessageSurvivesStoreFailure(t *testing.T) {
	h := newHarness(t)
	h.insertJob(jobHash, model.StatusInProgress, model.StatusInProgress, base.Add(-time.Hour))
	h.queue.Push(testutil.QueueMessage("q-1", model.ProcessTranscoder, "COMPLETED", "acme", jobHash, "", base))

	_, err := h.db.DB().Exec("DROP TABLE conversion_messages")
	require.NoError(t, err)
	stats, err := h.engine.Reconcile(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Zero(t, stats.Ingest.Stored)
	assert.Equal(t, model.StatusInProgress, h.job(jobHash).TranscoderStatus)
	assert.Equal(t, 1, h.queue.Len())
	assert.Empty(t, h.queue.Acked())
}

func TestReconcile_ListingFailureRetriesNextPass(t *testing.T) {
	kv := &testutil.MockStatusStore{}
	kv.On("GetStatus", mock.Anything, jobHash).Return(completedRecord("COMPLETED"), nil)
	h := newHarness(t, withStatusStore(kv), withOptions(func(o *Options) { o.CompletionTimeout = 72 * time.Hour }))
	h.insertJob(jobHash, model.StatusInProgress, model.StatusInProgress, base.Add(-25*time.Hour))
	h.engine.objects = failingLister{h.objects}

	_, err := h.engine.Reconcile(h.ctx)
	require.NoError(t, err)
	job := h.job(jobHash)
	assert.Equal(t, model.StatusInProgress, job.TranscoderStatus, "not timed out while a result is waiting")
	assert.Equal(t, model.StatusInProgress, job.Status)

	h.engine.objects = h.objects
	_, err = h.engine.Reconcile(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFinished, h.job(jobHash).Status)
}

func TestReconcile_NoCandidates(t *testing.T) {
	h := newHarness(t)
	h.insertJob(jobHash, model.StatusAccepted, model.StatusAccepted, base)

	stats, err := h.engine.Reconcile(h.ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Candidates)
	assert.Zero(t, h.queue.Receives)
}

// failingLister fails every output listing.
type failingLister struct {
	*storage.MemoryStore
}

func (f failingLister) List(ctx context.Context, area storage.Area, opts storage.ListOptions) storage.Result[storage.ListPage] {
	return storage.Failure[storage.ListPage](500, errors.New("internal error"))
}
