package services

import (
	"context"

	"go.uber.org/zap"

	"video-conversion/internal/api/v1/dto"
	"video-conversion/internal/app/conversion"
	"video-conversion/internal/app/model"
)

// ConversionService defines the interface for conversion operations
type ConversionService interface {
	CreateConversion(ctx context.Context, req *dto.CreateConversionRequest) (*dto.ConversionResponse, error)
	GetConversion(ctx context.Context, contentHash string) (*dto.ConversionResponse, error)
	RequestSubtitles(ctx context.Context, contentHash string, req *dto.CreateSubtitleRequest) (*dto.SubtitleResponse, error)
	DeleteConversion(ctx context.Context, contentHash string) error
}

// Engine is the part of conversion.Engine the API needs.
type Engine interface {
	CreateJob(ctx context.Context, req conversion.CreateRequest) (*model.ConversionJob, error)
	CreateSubtitleJob(ctx context.Context, contentHash, language string) (*model.SubtitleJob, error)
	Job(ctx context.Context, contentHash string) (*conversion.JobView, error)
	HasOutput(ctx context.Context, contentHash string) (bool, error)
	DeleteJob(ctx context.Context, contentHash string) error
}

// ConversionServiceImpl implements ConversionService on top of the engine
type ConversionServiceImpl struct {
	engine Engine
	logger *zap.Logger
}

// NewConversionService creates a new conversion service
func NewConversionService(engine Engine, logger *zap.Logger) ConversionService {
	return &ConversionServiceImpl{engine: engine, logger: logger}
}

// CreateConversion registers the job and returns its current state.
func (s *ConversionServiceImpl) CreateConversion(ctx context.Context, req *dto.CreateConversionRequest) (*dto.ConversionResponse, error) {
	job, err := s.engine.CreateJob(ctx, req.ToCreateRequest())
	if err != nil {
		return nil, err
	}
	return s.GetConversion(ctx, job.ContentHash)
}

// GetConversion returns the job, its subtitle sub-jobs and whether output exists.
func (s *ConversionServiceImpl) GetConversion(ctx context.Context, contentHash string) (*dto.ConversionResponse, error) {
	view, err := s.engine.Job(ctx, contentHash)
	if err != nil {
		return nil, err
	}
	resp := dto.NewConversionResponse(view.Job, view.Subtitles)

	has, err := s.engine.HasOutput(ctx, contentHash)
	if err != nil {
		s.logger.Warn("output lookup failed", zap.String("content_hash", contentHash), zap.Error(err))
	} else {
		resp.HasOutput = &has
	}
	return resp, nil
}

// RequestSubtitles adds a subtitle sub-job for another language.
func (s *ConversionServiceImpl) RequestSubtitles(ctx context.Context, contentHash string, req *dto.CreateSubtitleRequest) (*dto.SubtitleResponse, error) {
	sub, err := s.engine.CreateSubtitleJob(ctx, contentHash, req.Language)
	if err != nil {
		return nil, err
	}
	resp := dto.NewSubtitleResponse(*sub)
	return &resp, nil
}

// DeleteConversion removes the job and everything stored for it.
func (s *ConversionServiceImpl) DeleteConversion(ctx context.Context, contentHash string) error {
	return s.engine.DeleteJob(ctx, contentHash)
}
