// Package media reads container metadata from uploads with ffprobe.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"video-conversion/internal/app/model"
)

// Binary is the ffprobe executable looked up on PATH.
var Binary = "ffprobe"

type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Available reports whether ffprobe can be found.
func Available() bool {
	_, err := exec.LookPath(Binary)
	return err == nil
}

// Probe runs ffprobe on path and returns the metadata in the form stored with a job.
func Probe(ctx context.Context, path string) (json.RawMessage, error) {
	cmd := exec.CommandContext(ctx, Binary, "-v", "quiet", "-print_format", "json",
		"-show_format", "-show_streams", path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %v, stderr: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	return Decode(output)
}

// Decode reduces raw ffprobe JSON to model.MediaInfo.
func Decode(output []byte) (json.RawMessage, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("decode ffprobe output: %w", err)
	}

	var info model.MediaInfo
	if probe.Format.Duration != "" {
		d, err := strconv.ParseFloat(strings.TrimSpace(probe.Format.Duration), 64)
		if err != nil {
			return nil, fmt.Errorf("parse duration %q: %w", probe.Format.Duration, err)
		}
		info.Duration = d
	}
	for _, s := range probe.Streams {
		info.Streams = append(info.Streams, model.MediaStream{
			CodecType: s.CodecType,
			CodecName: s.CodecName,
			Width:     s.Width,
			Height:    s.Height,
		})
	}
	return json.Marshal(info)
}
