package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "video-conversion/internal/app/errors"
)

func TestSubtitleStatus_CanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    SubtitleStatus
		to      SubtitleStatus
		want    bool
		wantErr bool
	}{
		{"pending to processing", SubtitlePending, SubtitleProcessing, true, false},
		{"pending to failed", SubtitlePending, SubtitleFailed, true, false},
		{"processing to completed", SubtitleProcessing, SubtitleCompleted, true, false},
		{"processing to failed", SubtitleProcessing, SubtitleFailed, true, false},
		{"same state is a no-op", SubtitleProcessing, SubtitleProcessing, false, false},
		{"completed repeated", SubtitleCompleted, SubtitleCompleted, false, false},
		{"pending skips processing", SubtitlePending, SubtitleCompleted, false, true},
		{"completed back to processing", SubtitleCompleted, SubtitleProcessing, false, true},
		{"failed back to pending", SubtitleFailed, SubtitlePending, false, true},
		{"processing back to pending", SubtitleProcessing, SubtitlePending, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.from.CanTransition(tt.to)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				assert.True(t, apperrors.Is(err, apperrors.ErrInvalidTransition))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseOutcome(t *testing.T) {
	tests := map[string]Outcome{
		"COMPLETE":    OutcomeSuccess,
		"completed":   OutcomeSuccess,
		"SUCCEEDED":   OutcomeSuccess,
		"ERROR":       OutcomeFailure,
		" failed ":    OutcomeFailure,
		"PROCESSING":  OutcomeProgress,
		"PROGRESSING": OutcomeProgress,
		"":            OutcomeUnknown,
		"QUEUED?":     OutcomeUnknown,
	}
	for raw, want := range tests {
		assert.Equal(t, want, ParseOutcome(raw), raw)
	}
}

func TestQueueMessage_KeySegments(t *testing.T) {
	msg := QueueMessage{ObjectKey: "site-a/abc123/output/video.m3u8"}
	assert.Equal(t, "site-a", msg.TenantSegment())
	assert.Equal(t, "abc123", msg.ContentHash())

	short := QueueMessage{ObjectKey: "orphan"}
	assert.Equal(t, "orphan", short.TenantSegment())
	assert.Empty(t, short.ContentHash())
}

func TestMessagePayload_Languages(t *testing.T) {
	p := MessagePayload{TargetLang: "fr", TargetLangs: []string{"de", "fr"}, Language: "es"}
	assert.Equal(t, []string{"fr", "de", "es"}, p.Languages())
	assert.Empty(t, MessagePayload{}.Languages())
}

func TestMediaInfo_VideoSize(t *testing.T) {
	info, err := ParseMediaInfo([]byte(`{"streams":[{"codec_type":"audio"},{"codec_type":"video","width":1920,"height":1200}]}`))
	assert.NoError(t, err)
	w, h, ok := info.VideoSize()
	assert.True(t, ok)
	assert.Equal(t, 1920, w)
	assert.Equal(t, 1200, h)

	empty, err := ParseMediaInfo(nil)
	assert.NoError(t, err)
	_, _, ok = empty.VideoSize()
	assert.False(t, ok)
}
