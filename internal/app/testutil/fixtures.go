package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"video-conversion/internal/app/model"
	"video-conversion/internal/app/util/files"
)

// NewJob builds a job whose overall and transcoder status are both status.
func NewJob(hash string, status model.Status, at time.Time) *model.ConversionJob {
	return &model.ConversionJob{
		ContentHash:      hash,
		Name:             hash + ".mp4",
		Status:           status,
		TranscoderStatus: status,
		TimeCreated:      at,
		TimeModified:     at,
	}
}

// MediaInfo returns ffprobe-style metadata with one video stream of the given size.
func MediaInfo(width, height int) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"duration":93.5,"streams":[{"codec_type":"audio","codec_name":"aac"},`+
			`{"codec_type":"video","codec_name":"h264","width":%d,"height":%d}]}`, width, height))
}

// StoreSourceFile writes data to a temp file and imports it into the content-addressed
// root, returning its content hash.
func StoreSourceFile(t *testing.T, root string, data []byte) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), "upload.mp4")
	if err := os.WriteFile(src, data, 0o644); err != nil {
		t.Fatalf("Failed to write source file: %v", err)
	}
	hash, err := files.NewLocator(root).Import(src)
	if err != nil {
		t.Fatalf("Failed to import source file: %v", err)
	}
	return hash
}

// QueueMessage builds a queue notification for an object below tenant/hash.
func QueueMessage(id string, process model.Process, status, tenant, hash, payload string, sent time.Time) model.QueueMessage {
	msg := model.QueueMessage{
		ID:        id,
		Process:   process,
		Status:    status,
		ObjectKey: tenant + "/" + hash + "/output",
		SentAt:    sent,
	}
	if payload != "" {
		msg.Payload = json.RawMessage(payload)
	}
	return msg
}
