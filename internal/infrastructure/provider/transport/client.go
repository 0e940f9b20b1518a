// Package transport is the JSON-over-HTTP client shared by the settlement
// rail adapters.
package transport

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

	domainErrors "github.com/wekeepgrowing/grantpay/internal/domain/errors"
)

// Request is one provider call. Body is marshaled to JSON when non-nil and
// Sign, if set, adds headers computed from the encoded body.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Body    interface{}
	Sign    func(body []byte, header http.Header)
}

// Client sends JSON requests to one provider base URL.
type Client struct {
	rail    string
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a client for rail (used in errors and logs).
func NewClient(rail, baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return NewClientWithHTTP(rail, baseURL, &http.Client{Timeout: timeout}, logger)
}

// NewClientWithHTTP creates a client around an existing http.Client.
func NewClientWithHTTP(rail, baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	return &Client{
		rail:    rail,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

// Do sends req and decodes a 2xx response into out. It returns the HTTP
// status code whenever a response was received, so callers can treat
// specific statuses (such as 404 on a lookup) as results rather than errors.
func (c *Client) Do(ctx context.Context, req Request, out interface{}) (int, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = json.Marshal(req.Body)
		if err != nil {
			return 0, domainErrors.NewProviderError(c.rail, domainErrors.ProviderCodeMarshal,
				"failed to prepare request", err)
		}
	}

	url := c.baseURL + req.Path
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, bytes.NewReader(body))
	if err != nil {
		return 0, domainErrors.NewProviderError(c.rail, domainErrors.ProviderCodeRequest,
			"failed to create request", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.Sign != nil {
		req.Sign(body, httpReq.Header)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Error("Provider request failed",
			zap.String("rail", c.rail),
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Error(err))
		return 0, domainErrors.NewProviderError(c.rail, domainErrors.ProviderCodeRequest,
			"provider request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, domainErrors.NewProviderError(c.rail, domainErrors.ProviderCodeResponse,
			"failed to read response", err)
	}

	c.logger.Debug("Provider response received",
		zap.String("rail", c.rail),
		zap.String("path", req.Path),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, c.apiError(resp.StatusCode, respBody)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return resp.StatusCode, domainErrors.NewProviderError(c.rail, domainErrors.ProviderCodeParse,
				"failed to parse response", err)
		}
	}

	return resp.StatusCode, nil
}

// apiError keeps the provider's own code and message when the error body
// carries them.
func (c *Client) apiError(status int, body []byte) error {
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(body, &errResp)

	message := errResp.Message
	if message == "" {
		message = errResp.Error
	}
	if message == "" {
		message = fmt.Sprintf("provider returned HTTP %d", status)
	}

	code := domainErrors.ProviderCodeAPI
	if errResp.Code != "" {
		code = errResp.Code
	}

	c.logger.Warn("Provider rejected request",
		zap.String("rail", c.rail),
		zap.Int("status_code", status),
		zap.String("code", code),
		zap.String("message", message))

	return domainErrors.NewProviderError(c.rail, code, message, nil)
}
