package media

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-conversion/internal/app/model"
)

const sampleOutput = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1280, "height": 720},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "sample_rate": "44100"}
  ],
  "format": {"filename": "clip.mp4", "duration": "93.500000", "size": "1048576"}
}`

func TestDecode(t *testing.T) {
	raw, err := Decode([]byte(sampleOutput))
	require.NoError(t, err)

	info, err := model.ParseMediaInfo(raw)
	require.NoError(t, err)
	assert.InDelta(t, 93.5, info.Duration, 0.0001)
	require.Len(t, info.Streams, 2)

	w, h, ok := info.VideoSize()
	assert.True(t, ok)
	assert.Equal(t, 1280, w)
	assert.Equal(t, 720, h)
}

func TestDecode_AudioOnly(t *testing.T) {
	raw, err := Decode([]byte(`{"streams":[{"codec_type":"audio","codec_name":"mp3"}],"format":{}}`))
	require.NoError(t, err)

	info, err := model.ParseMediaInfo(raw)
	require.NoError(t, err)
	_, _, ok := info.VideoSize()
	assert.False(t, ok)
	assert.Zero(t, info.Duration)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.ErrorContains(t, err, "decode ffprobe output")

	_, err = Decode([]byte(`{"streams":[],"format":{"duration":"N/A"}}`))
	assert.ErrorContains(t, err, `parse duration "N/A"`)
}

func TestProbe_FakeBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a POSIX shell")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "ffprobe")
	body := "#!/bin/sh\ncat <<'EOF'\n" + sampleOutput + "\nEOF\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))

	old := Binary
	Binary = script
	defer func() { Binary = old }()

	assert.True(t, Available())
	raw, err := Probe(context.Background(), "clip.mp4")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"width":1280`)
}

func TestProbe_MissingBinary(t *testing.T) {
	old := Binary
	Binary = filepath.Join(t.TempDir(), "no-such-ffprobe")
	defer func() { Binary = old }()

	assert.False(t, Available())
	_, err := Probe(context.Background(), "clip.mp4")
	assert.Error(t, err)
}
