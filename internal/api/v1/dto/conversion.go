package dto

import (
	"encoding/json"
	"strings"
	"time"

	"video-conversion/internal/api/errors"
	"video-conversion/internal/app/conversion"
	"video-conversion/internal/app/model"
)

// CreateConversionRequest registers an uploaded video for conversion
type CreateConversionRequest struct {
	ContentHash      string          `json:"content_hash" binding:"required,hexadecimal,min=4,max=128"`
	PathHash         string          `json:"path_hash,omitempty" binding:"omitempty,hexadecimal,min=4,max=128"`
	Name             string          `json:"name,omitempty" binding:"max=512"`
	MediaInfo        json.RawMessage `json:"media_info,omitempty"`
	SubtitleLanguage string          `json:"subtitle_language,omitempty" binding:"omitempty,min=2,max=16"`
}

// Validate performs domain-specific validation
func (r *CreateConversionRequest) Validate() error {
	validationErrors := make(map[string]string)

	if len(r.MediaInfo) > 0 && !json.Valid(r.MediaInfo) {
		validationErrors["media_info"] = "must be valid JSON"
	}
	if strings.ContainsAny(r.SubtitleLanguage, "/ ") {
		validationErrors["subtitle_language"] = "must be a language code"
	}

	if len(validationErrors) > 0 {
		return errors.NewValidationError("Invalid conversion request", validationErrors)
	}
	return nil
}

// ToCreateRequest maps the body onto the engine request.
func (r *CreateConversionRequest) ToCreateRequest() conversion.CreateRequest {
	return conversion.CreateRequest{
		ContentHash:      strings.ToLower(r.ContentHash),
		PathHash:         strings.ToLower(r.PathHash),
		Name:             r.Name,
		MediaInfo:        r.MediaInfo,
		SubtitleLanguage: r.SubtitleLanguage,
	}
}

// CreateSubtitleRequest asks for subtitles in one more language
type CreateSubtitleRequest struct {
	Language string `json:"language" binding:"required,min=2,max=16"`
}

// SubtitleResponse represents a subtitle sub-job in API responses
type SubtitleResponse struct {
	Language    string     `json:"language"`
	Status      string     `json:"status"`
	LastError   string     `json:"last_error,omitempty"`
	RequestedAt time.Time  `json:"requested_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ConversionResponse represents a conversion job in API responses
type ConversionResponse struct {
	ContentHash      string             `json:"content_hash"`
	Name             string             `json:"name,omitempty"`
	Status           string             `json:"status"`
	TranscoderStatus string             `json:"transcoder_status"`
	AltTranscoder    bool               `json:"alt_transcoder"`
	OutputSize       int64              `json:"output_size"`
	HasHLS           bool               `json:"has_hls"`
	InputDeleted     bool               `json:"input_deleted"`
	HasOutput        *bool              `json:"has_output,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
	CompletedAt      *time.Time         `json:"completed_at,omitempty"`
	Subtitles        []SubtitleResponse `json:"subtitles"`
}

// NewConversionResponse builds the response body for a job and its sub-jobs.
func NewConversionResponse(job model.ConversionJob, subs []model.SubtitleJob) *ConversionResponse {
	resp := &ConversionResponse{
		ContentHash:      job.ContentHash,
		Name:             job.Name,
		Status:           string(job.Status),
		TranscoderStatus: string(job.TranscoderStatus),
		AltTranscoder:    job.AltTranscoder,
		OutputSize:       job.OutputSize,
		HasHLS:           job.HasHLS,
		InputDeleted:     job.InputDeleted,
		CreatedAt:        job.TimeCreated,
		UpdatedAt:        job.TimeModified,
		CompletedAt:      job.TimeCompleted,
		Subtitles:        make([]SubtitleResponse, 0, len(subs)),
	}
	for _, s := range subs {
		resp.Subtitles = append(resp.Subtitles, NewSubtitleResponse(s))
	}
	return resp
}

func NewSubtitleResponse(s model.SubtitleJob) SubtitleResponse {
	return SubtitleResponse{
		Language:    s.Language,
		Status:      string(s.Status),
		LastError:   s.LastError,
		RequestedAt: s.TimeRequested,
		CompletedAt: s.TimeCompleted,
	}
}
