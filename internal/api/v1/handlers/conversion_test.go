package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"video-conversion/internal/api/middleware"
	"video-conversion/internal/api/v1/dto"
	"video-conversion/internal/api/v1/handlers"
	apperrors "video-conversion/internal/app/errors"
)

type mockConversionService struct {
	mock.Mock
}

func (m *mockConversionService) CreateConversion(ctx context.Context, req *dto.CreateConversionRequest) (*dto.ConversionResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*dto.ConversionResponse)
	return resp, args.Error(1)
}

func (m *mockConversionService) GetConversion(ctx context.Context, contentHash string) (*dto.ConversionResponse, error) {
	args := m.Called(ctx, contentHash)
	resp, _ := args.Get(0).(*dto.ConversionResponse)
	return resp, args.Error(1)
}

func (m *mockConversionService) RequestSubtitles(ctx context.Context, contentHash string, req *dto.CreateSubtitleRequest) (*dto.SubtitleResponse, error) {
	args := m.Called(ctx, contentHash, req)
	resp, _ := args.Get(0).(*dto.SubtitleResponse)
	return resp, args.Error(1)
}

func (m *mockConversionService) DeleteConversion(ctx context.Context, contentHash string) error {
	return m.Called(ctx, contentHash).Error(0)
}

func setupTestRouter(svc *mockConversionService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.RequestID())
	h := handlers.NewConversionHandler(svc)
	router.POST("/api/v1/conversions", h.Create)
	router.GET("/api/v1/conversions/:hash", h.Get)
	router.DELETE("/api/v1/conversions/:hash", h.Delete)
	router.POST("/api/v1/conversions/:hash/subtitles", h.RequestSubtitles)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestConversionHandler_Create(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		setupMocks     func(*mockConversionService)
		expectedStatus int
		validateBody   func(*testing.T, map[string]interface{})
	}{
		{
			name: "new job",
			body: map[string]interface{}{"content_hash": "ABC123", "name": "intro.mp4", "subtitle_language": "fr"},
			setupMocks: func(ms *mockConversionService) {
				ms.On("CreateConversion", mock.Anything, mock.MatchedBy(func(r *dto.CreateConversionRequest) bool {
					return r.ToCreateRequest().ContentHash == "abc123" && r.SubtitleLanguage == "fr"
				})).Return(&dto.ConversionResponse{ContentHash: "abc123", Status: "accepted", CreatedAt: time.Now()}, nil)
			},
			expectedStatus: http.StatusCreated,
			validateBody: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "abc123", body["content_hash"])
				assert.Equal(t, "accepted", body["status"])
			},
		},
		{
			name: "existing job",
			body: map[string]interface{}{"content_hash": "abc123"},
			setupMocks: func(ms *mockConversionService) {
				ms.On("CreateConversion", mock.Anything, mock.Anything).
					Return(&dto.ConversionResponse{ContentHash: "abc123", Status: "in_progress"}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing content hash",
			body:           map[string]interface{}{"name": "intro.mp4"},
			setupMocks:     func(ms *mockConversionService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			validateBody: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "validation", body["kind"])
				details := body["details"].(map[string]interface{})
				assert.Equal(t, "is required", details["content_hash"])
			},
		},
		{
			name:           "non-hex content hash",
			body:           map[string]interface{}{"content_hash": "../etc/passwd"},
			setupMocks:     func(ms *mockConversionService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			validateBody: func(t *testing.T, body map[string]interface{}) {
				details := body["details"].(map[string]interface{})
				assert.Equal(t, "must be hexadecimal", details["content_hash"])
			},
		},
		{
			name:           "malformed json",
			body:           `{"content_hash":`,
			setupMocks:     func(ms *mockConversionService) {},
			expectedStatus: http.StatusBadRequest,
			validateBody: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "bad_request", body["kind"])
				assert.Equal(t, "Malformed JSON body", body["message"])
			},
		},
		{
			name:           "subtitle language with a space",
			body:           map[string]interface{}{"content_hash": "abc123", "subtitle_language": "e n"},
			setupMocks:     func(ms *mockConversionService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			validateBody: func(t *testing.T, body map[string]interface{}) {
				details := body["details"].(map[string]interface{})
				assert.Contains(t, details, "subtitle_language")
			},
		},
		{
			name: "engine failure",
			body: map[string]interface{}{"content_hash": "abc123"},
			setupMocks: func(ms *mockConversionService) {
				ms.On("CreateConversion", mock.Anything, mock.Anything).
					Return(nil, errors.New("database is locked"))
			},
			expectedStatus: http.StatusInternalServerError,
			validateBody: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "internal", body["kind"])
				assert.NotContains(t, body["message"], "locked")
				assert.NotEmpty(t, body["request_id"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockConversionService{}
			tt.setupMocks(svc)
			router := setupTestRouter(svc)

			rec, body := doJSON(t, router, http.MethodPost, "/api/v1/conversions", tt.body)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.validateBody != nil {
				tt.validateBody(t, body)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestConversionHandler_Get(t *testing.T) {
	svc := &mockConversionService{}
	svc.On("GetConversion", mock.Anything, "abc123").
		Return(&dto.ConversionResponse{ContentHash: "abc123", Status: "finished", Subtitles: []dto.SubtitleResponse{}}, nil)
	svc.On("GetConversion", mock.Anything, "ffff00").
		Return(nil, apperrors.Wrap(apperrors.ErrJobNotFound, "ffff00"))
	router := setupTestRouter(svc)

	rec, body := doJSON(t, router, http.MethodGet, "/api/v1/conversions/ABC123", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "finished", body["status"])

	rec, body = doJSON(t, router, http.MethodGet, "/api/v1/conversions/ffff00", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", body["kind"])
	assert.Equal(t, rec.Header().Get(middleware.RequestIDHeader), body["request_id"])
}

func TestConversionHandler_RequestSubtitles(t *testing.T) {
	svc := &mockConversionService{}
	svc.On("RequestSubtitles", mock.Anything, "abc123", &dto.CreateSubtitleRequest{Language: "de"}).
		Return(&dto.SubtitleResponse{Language: "de", Status: "pending"}, nil)
	svc.On("RequestSubtitles", mock.Anything, "ffff00", mock.Anything).
		Return(nil, apperrors.Wrap(apperrors.ErrJobNotFound, "ffff00"))
	router := setupTestRouter(svc)

	rec, body := doJSON(t, router, http.MethodPost, "/api/v1/conversions/abc123/subtitles", map[string]string{"language": "de"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "pending", body["status"])

	rec, _ = doJSON(t, router, http.MethodPost, "/api/v1/conversions/abc123/subtitles", map[string]string{})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = doJSON(t, router, http.MethodPost, "/api/v1/conversions/ffff00/subtitles", map[string]string{"language": "de"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConversionHandler_Delete(t *testing.T) {
	svc := &mockConversionService{}
	svc.On("DeleteConversion", mock.Anything, "abc123").Return(nil)
	svc.On("DeleteConversion", mock.Anything, "ffff00").Return(apperrors.Wrap(apperrors.ErrJobNotFound, "ffff00"))
	router := setupTestRouter(svc)

	rec, _ := doJSON(t, router, http.MethodDelete, "/api/v1/conversions/abc123", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = doJSON(t, router, http.MethodDelete, "/api/v1/conversions/ffff00", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
