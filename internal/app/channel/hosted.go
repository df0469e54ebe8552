package channel

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
	"video-conversion/internal/app/model"
)

// HostedClient reaches both channels through a hosted HTTP proxy. It serves as
// StatusStore (POST /status) and as Queue (POST /messages).
type HostedClient struct {
	baseURL  string
	apiToken string
	identity string
	client   *http.Client
	logger   *zap.Logger
}

var (
	_ StatusStore = (*HostedClient)(nil)
	_ Queue       = (*HostedClient)(nil)
)

// NewHostedClient creates a proxy client; identity is the tenant id for status lookups
// and the site id for queue pulls.
func NewHostedClient(baseURL, apiToken, identity string, timeout time.Duration, logger *zap.Logger) *HostedClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HostedClient{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		apiToken: apiToken,
		identity: identity,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

func (h *HostedClient) post(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiToken)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrRequestFailed, err.Error())
	}
	return resp, nil
}

func unexpectedStatus(path string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return apperrors.Wrapf(apperrors.ErrRequestFailed, "%s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
}

type statusRequest struct {
	ContentHash string `json:"content_hash"`
	TenantID    string `json:"tenant_id"`
}

func (h *HostedClient) GetStatus(ctx context.Context, contentHash string) (*model.StatusRecord, error) {
	resp, err := h.post(ctx, "/status", statusRequest{ContentHash: contentHash, TenantID: h.identity})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusNoContent:
		return nil, nil
	case http.StatusOK:
	default:
		return nil, unexpectedStatus("/status", resp)
	}

	var rec model.StatusRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrResponseInvalid, err.Error())
	}
	if rec.Status == "" {
		return nil, nil
	}
	rec.ContentHash = contentHash
	rec.TenantID = h.identity
	return &rec, nil
}

type messagesRequest struct {
	Max  int    `json:"max"`
	Site string `json:"site"`
}

type messagesResponse struct {
	Messages []json.RawMessage `json:"messages"`
}

// Receive fetches up to max messages. The hosted broker removes messages as it hands
// them out, so the deliveries carry no settlement callbacks.
func (h *HostedClient) Receive(ctx context.Context, max int) ([]Delivery, error) {
	resp, err := h.post(ctx, "/messages", messagesRequest{Max: max, Site: h.identity})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, unexpectedStatus("/messages", resp)
	}

	var body messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrResponseInvalid, err.Error())
	}

	out := make([]Delivery, 0, len(body.Messages))
	for _, raw := range body.Messages {
		msg, err := decodeMessage(raw, "")
		if err != nil {
			h.logger.Warn("dropping malformed status message", zap.Error(err))
			continue
		}
		out = append(out, NewDelivery(msg, nil, nil))
	}
	return out, nil
}
