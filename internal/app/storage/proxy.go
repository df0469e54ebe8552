package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "video-conversion/internal/app/errors"
	"video-conversion/internal/config"
)

// ProxyStore implements Store through a hosted broker that hands out signed URLs.
// Each operation is two requests: POST {broker}/sign, then the signed request itself.
type ProxyStore struct {
	brokerURL string
	apiToken  string
	site      string
	client    *http.Client
}

var _ Store = (*ProxyStore)(nil)

// SignRequest is sent to the broker.
type SignRequest struct {
	Action            string            `json:"action"`
	Area              Area              `json:"area"`
	Key               string            `json:"key,omitempty"`
	Site              string            `json:"site"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	Prefix            string            `json:"prefix,omitempty"`
	ContinuationToken string            `json:"continuation_token,omitempty"`
	Delimiter         string            `json:"delimiter,omitempty"`
	MaxKeys           int               `json:"max_keys,omitempty"`
}

// SignedURL is the broker's answer.
type SignedURL struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers,omitempty"`
}

// NewProxyStore creates a broker-backed store. A nil client gets cfg.Timeout.
func NewProxyStore(cfg config.StorageConfig, site string, client *http.Client) *ProxyStore {
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = config.DefaultHTTPTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &ProxyStore{
		brokerURL: strings.TrimSuffix(cfg.BrokerURL, "/"),
		apiToken:  cfg.APIToken,
		site:      site,
		client:    client,
	}
}

func (p *ProxyStore) sign(ctx context.Context, req SignRequest) (*SignedURL, int, error) {
	req.Site = p.site
	body, err := json.Marshal(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal sign request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.brokerURL+"/sign", bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create sign request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiToken)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, 0, apperrors.Wrap(apperrors.ErrRequestFailed, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, resp.StatusCode, apperrors.Wrapf(apperrors.ErrRequestFailed, "sign %s: status %d: %s",
			req.Action, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var signed SignedURL
	if err := json.NewDecoder(resp.Body).Decode(&signed); err != nil || signed.URL == "" {
		return nil, resp.StatusCode, apperrors.Wrapf(apperrors.ErrResponseInvalid, "sign %s", req.Action)
	}
	return &signed, resp.StatusCode, nil
}

func (p *ProxyStore) do(ctx context.Context, signed *SignedURL, fallbackMethod string, body io.Reader, size int64) (*http.Response, error) {
	method := signed.Method
	if method == "" {
		method = fallbackMethod
	}
	req, err := http.NewRequestWithContext(ctx, method, signed.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create signed request: %w", err)
	}
	if body != nil {
		req.ContentLength = size
	}
	for k, v := range signed.Headers {
		req.Header.Set(k, v)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrRequestFailed, err.Error())
	}
	return resp, nil
}

func statusError(op string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	sentinel := apperrors.ErrRequestFailed
	if resp.StatusCode == http.StatusNotFound {
		sentinel = apperrors.ErrObjectNotFound
	}
	return apperrors.Wrapf(sentinel, "%s: status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(msg)))
}

func (p *ProxyStore) Upload(ctx context.Context, area Area, key string, body io.Reader, size int64, metadata map[string]string) Result[UploadInfo] {
	signed, code, err := p.sign(ctx, SignRequest{Action: "put", Area: area, Key: key, Metadata: metadata})
	if err != nil {
		return Failure[UploadInfo](code, err)
	}
	resp, err := p.do(ctx, signed, http.MethodPut, body, size)
	if err != nil {
		return Failure[UploadInfo](0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Failure[UploadInfo](resp.StatusCode, statusError("upload "+key, resp))
	}
	return Success(UploadInfo{Key: key, Size: size, ETag: strings.Trim(resp.Header.Get("ETag"), `"`)})
}

// listBucketResult mirrors the S3 ListObjectsV2 response.
type listBucketResult struct {
	XMLName               xml.Name     `xml:"ListBucketResult"`
	IsTruncated           bool         `xml:"IsTruncated"`
	NextContinuationToken string       `xml:"NextContinuationToken"`
	Contents              []ObjectInfo `xml:"Contents"`
	CommonPrefixes        []struct {
		Prefix string `xml:"Prefix"`
	} `xml:"CommonPrefixes"`
}

func (p *ProxyStore) List(ctx context.Context, area Area, opts ListOptions) Result[ListPage] {
	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeys
	}
	signed, code, err := p.sign(ctx, SignRequest{
		Action:            "list",
		Area:              area,
		Prefix:            opts.Prefix,
		ContinuationToken: opts.ContinuationToken,
		Delimiter:         opts.Delimiter,
		MaxKeys:           maxKeys,
	})
	if err != nil {
		return Failure[ListPage](code, err)
	}
	resp, err := p.do(ctx, signed, http.MethodGet, nil, 0)
	if err != nil {
		return Failure[ListPage](0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Failure[ListPage](resp.StatusCode, statusError("list "+opts.Prefix, resp))
	}

	var result listBucketResult
	if err := xml.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Failure[ListPage](resp.StatusCode, apperrors.Wrap(apperrors.ErrResponseInvalid, err.Error()))
	}

	page := ListPage{
		Items:     result.Contents,
		Truncated: result.IsTruncated,
		NextToken: result.NextContinuationToken,
	}
	for _, cp := range result.CommonPrefixes {
		page.Prefixes = append(page.Prefixes, cp.Prefix)
	}
	return Success(page)
}

func (p *ProxyStore) Delete(ctx context.Context, area Area, key string) Result[struct{}] {
	signed, code, err := p.sign(ctx, SignRequest{Action: "delete", Area: area, Key: key})
	if err != nil {
		return Failure[struct{}](code, err)
	}
	resp, err := p.do(ctx, signed, http.MethodDelete, nil, 0)
	if err != nil {
		return Failure[struct{}](0, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299, resp.StatusCode == http.StatusNotFound:
		return Success(struct{}{})
	}
	return Failure[struct{}](resp.StatusCode, statusError("delete "+key, resp))
}

func (p *ProxyStore) DeleteMany(ctx context.Context, area Area, keys []string) Result[[]DeleteResult] {
	results := make([]DeleteResult, 0, len(keys))
	failed := 0
	for _, k := range keys {
		r := p.Delete(ctx, area, k)
		if !r.OK() {
			failed++
		}
		results = append(results, DeleteResult{Key: k, Err: r.Err})
	}
	res := Success(results)
	if failed > 0 {
		res.Err = fmt.Errorf("%d of %d deletes failed: %w", failed, len(keys), apperrors.ErrRequestFailed)
	}
	return res
}

func (p *ProxyStore) Exists(ctx context.Context, area Area, key string) Result[bool] {
	signed, code, err := p.sign(ctx, SignRequest{Action: "head", Area: area, Key: key})
	if err != nil {
		return Failure[bool](code, err)
	}
	resp, err := p.do(ctx, signed, http.MethodHead, nil, 0)
	if err != nil {
		return Failure[bool](0, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return Success(true)
	case resp.StatusCode == http.StatusNotFound:
		return Success(false)
	}
	return Failure[bool](resp.StatusCode, statusError("head "+key, resp))
}
