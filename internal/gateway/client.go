// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/ragclient/internal/model"
	"github.com/jeranaias/ragclient/internal/util"
)

const (
	// DefaultBaseURL is the backend address used when none is configured.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultUserAgent is sent on every request.
	DefaultUserAgent = "ragclient"

	// MaxResponseSize caps how much of a response body is read.
	MaxResponseSize = 10 * 1024 * 1024

	// maxErrorBody caps the body text kept on a StatusError.
	maxErrorBody = 200
)

// Endpoint paths.
const (
	PathLogin  = "/login"
	PathQuery  = "/query"
	PathIngest = "/ingest"
	PathHealth = "/health"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// QueryResult is a successful answer from /query.
type QueryResult struct {
	Answer  string
	Sources []model.Source
	Metrics *model.Metrics
}

// IngestOptions carries the optional ingest fields.
type IngestOptions struct {
	Source string
	Title  string
}

// IngestResult is a successful /ingest response.
type IngestResult struct {
	DocID string
}

// Wire formats.

type queryRequest struct {
	Query string `json:"query"`
}

type wireSource struct {
	Text     string `json:"text"`
	Metadata struct {
		Title      string `json:"title"`
		Source     string `json:"source"`
		ChunkIndex int    `json:"chunk_index"`
	} `json:"metadata"`
}

type queryResponse struct {
	Answer  *string        `json:"answer"`
	Sources []wireSource   `json:"sources"`
	Metrics *model.Metrics `json:"metrics"`
}

type ingestRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Title  string `json:"title,omitempty"`
}

type ingestResponse struct {
	Status string `json:"status"`
	DocID  string `json:"doc_id"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the knowledge service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// New creates a client for baseURL. An empty baseURL uses DefaultBaseURL.
func New(baseURL string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		userAgent:  DefaultUserAgent,
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// WithTimeout sets a per-request timeout. Zero keeps the transport default.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = timeout
		c.httpClient = &hc
	}
	return c
}

// WithUserAgent sets the User-Agent header.
func (c *Client) WithUserAgent(ua string) *Client {
	if ua != "" {
		c.userAgent = ua
	}
	return c
}

// BaseURL returns the backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Query asks the service a question. The query endpoint is unauthenticated.
// Every failure wraps ErrServiceUnavailable.
func (c *Client) Query(ctx context.Context, text string) (*QueryResult, error) {
	body, err := c.post(ctx, PathQuery, queryRequest{Query: text}, "")
	if err != nil {
		return nil, classify(ErrServiceUnavailable, err)
	}

	var resp queryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, classify(ErrServiceUnavailable, fmt.Errorf("failed to parse response: %w", err))
	}
	if resp.Answer == nil {
		return nil, classify(ErrServiceUnavailable, fmt.Errorf("response has no answer"))
	}

	result := &QueryResult{Answer: *resp.Answer, Metrics: resp.Metrics}
	for i, s := range resp.Sources {
		result.Sources = append(result.Sources, model.Source{
			Text:       s.Text,
			Title:      s.Metadata.Title,
			Origin:     s.Metadata.Source,
			ChunkIndex: s.Metadata.ChunkIndex,
			Index:      i + 1,
		})
	}
	return result, nil
}

// Ingest submits text for indexing with the given token. An empty token
// fails with ErrUnauthenticated before any request is made. Every other
// failure wraps ErrIngestFailed.
func (c *Client) Ingest(ctx context.Context, text, token string, opts IngestOptions) (*IngestResult, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrUnauthenticated
	}

	req := ingestRequest{Text: text, Source: opts.Source, Title: opts.Title}
	body, err := c.post(ctx, PathIngest, req, token)
	if err != nil {
		return nil, classify(ErrIngestFailed, err)
	}

	// The document id is optional; an unparseable body still means success.
	var resp ingestResponse
	_ = json.Unmarshal(body, &resp)
	return &IngestResult{DocID: resp.DocID}, nil
}

// Login exchanges credentials for a token. A non-success status wraps
// ErrInvalidCredentials; a transport failure wraps ErrServiceUnavailable.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body, err := c.post(ctx, PathLogin, loginRequest{Username: username, Password: password}, "")
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return "", classify(ErrInvalidCredentials, err)
		}
		return "", classify(ErrServiceUnavailable, err)
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", classify(ErrServiceUnavailable, fmt.Errorf("failed to parse response: %w", err))
	}
	if resp.AccessToken == "" {
		return "", classify(ErrInvalidCredentials, fmt.Errorf("response has no access_token"))
	}
	return resp.AccessToken, nil
}

// Health checks that the service answers GET /health with 200.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+PathHealth, nil)
	if err != nil {
		return classify(ErrServiceUnavailable, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if _, err := c.do(req, PathHealth); err != nil {
		return classify(ErrServiceUnavailable, err)
	}
	return nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

// post sends payload as JSON and returns the body of a 200 response.
// Non-200 responses are returned as *StatusError.
func (c *Client) post(ctx context.Context, path string, payload any, token string) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.do(req, path)
}

func (c *Client) do(req *http.Request, endpoint string) ([]byte, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("GATEWAY_ERROR | endpoint=%s error=%v", endpoint, err)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	log.Printf("GATEWAY_RESPONSE | endpoint=%s status=%d duration=%v", endpoint, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Body:     util.TruncateRunes(strings.TrimSpace(string(body)), maxErrorBody),
		}
	}
	return body, nil
}

// readResponse reads at most MaxResponseSize bytes of the body.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}
