// Package host holds the callbacks into the platform that embeds converted videos.
package host

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "video-conversion/internal/app/errors"
	"video-conversion/internal/config"
)

// Unhider makes content that embeds a converted video visible once the output is ready.
type Unhider interface {
	Unhide(ctx context.Context, contentHash string) error
}

// New returns a webhook unhider when a URL is configured, a logging one otherwise.
func New(cfg config.HostConfig, logger *zap.Logger) Unhider {
	if cfg.UnhideURL == "" {
		return NewLogUnhider(logger)
	}
	return NewWebhookUnhider(cfg.UnhideURL, cfg.APIToken, cfg.Timeout)
}

// WebhookUnhider POSTs {"content_hash": ...} to the host.
type WebhookUnhider struct {
	url      string
	apiToken string
	client   *http.Client
}

func NewWebhookUnhider(url, apiToken string, timeout time.Duration) *WebhookUnhider {
	if timeout <= 0 {
		timeout = config.DefaultHTTPTimeout
	}
	return &WebhookUnhider{url: url, apiToken: apiToken, client: &http.Client{Timeout: timeout}}
}

func (w *WebhookUnhider) Unhide(ctx context.Context, contentHash string) error {
	body, err := json.Marshal(map[string]string{"content_hash": contentHash})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+w.apiToken)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrRequestFailed, err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperrors.Wrapf(apperrors.ErrRequestFailed, "unhide %s: status %d: %s",
			contentHash, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// LogUnhider only records the request, for hosts that poll job status instead.
type LogUnhider struct {
	logger *zap.Logger
}

func NewLogUnhider(logger *zap.Logger) *LogUnhider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogUnhider{logger: logger}
}

func (l *LogUnhider) Unhide(ctx context.Context, contentHash string) error {
	l.logger.Info("conversion output ready", zap.String("content_hash", contentHash))
	return nil
}
