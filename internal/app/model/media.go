package model

import "encoding/json"

// MediaInfo is the subset of ffprobe output kept with a conversion job.
type MediaInfo struct {
	Duration float64       `json:"duration,omitempty"`
	Streams  []MediaStream `json:"streams"`
}

type MediaStream struct {
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

// ParseMediaInfo decodes stored probe metadata. Empty input yields a zero value.
func ParseMediaInfo(raw json.RawMessage) (MediaInfo, error) {
	var info MediaInfo
	if len(raw) == 0 || string(raw) == "null" {
		return info, nil
	}
	err := json.Unmarshal(raw, &info)
	return info, err
}

// VideoSize returns the dimensions of the first video stream.
func (m MediaInfo) VideoSize() (width, height int, ok bool) {
	for _, s := range m.Streams {
		if s.CodecType == "video" && s.Width > 0 && s.Height > 0 {
			return s.Width, s.Height, true
		}
	}
	return 0, 0, false
}

// Resolution is an output frame size.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// SubmissionSettings travels with the uploaded input and configures the transcoder.
type SubmissionSettings struct {
	Site             string          `json:"site"`
	Transcoder       string          `json:"transcoder"`
	MediaInfo        json.RawMessage `json:"media_info,omitempty"`
	Resolution       *Resolution     `json:"resolution,omitempty"`
	Subtitles        bool            `json:"subtitles"`
	SubtitleLanguage string          `json:"subtitle_language,omitempty"`
}
