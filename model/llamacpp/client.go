// Package llamacpp runs inference against a llama.cpp llama-server.
//
// Tokenization and detokenization use the server's /tokenize and /detokenize
// endpoints. Generation streams /completion events and surfaces them to the
// caller one token per step.
package llamacpp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultBaseURL is where llama-server listens unless told otherwise.
const DefaultBaseURL = "http://127.0.0.1:8080"

// ErrLoading is returned by Health while the server is still loading the model.
var ErrLoading = errors.New("llama-server is loading the model")

// Client talks to one llama-server instance.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the server at baseURL.
// Requests carry no client-side timeout; generation runs until the server stops it.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string { return c.baseURL }

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

type errorEnvelope struct {
	Error *apiError `json:"error"`
}

// Health checks whether the server is up and has finished loading.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusServiceUnavailable:
		return ErrLoading
	}
	return fmt.Errorf("llama-server health check failed (status %d)", resp.StatusCode)
}

type tokenizeRequest struct {
	Content    string `json:"content"`
	AddSpecial bool   `json:"add_special"`
}

type tokenizeResponse struct {
	Tokens []int32 `json:"tokens"`
}

// Tokenize encodes text, adding the model's special prefix tokens.
func (c *Client) Tokenize(ctx context.Context, text string) ([]int32, error) {
	var result tokenizeResponse
	if err := c.post(ctx, "/tokenize", tokenizeRequest{Content: text, AddSpecial: true}, &result); err != nil {
		return nil, err
	}
	return result.Tokens, nil
}

type detokenizeRequest struct {
	Tokens []int32 `json:"tokens"`
}

type detokenizeResponse struct {
	Content string `json:"content"`
}

// Detokenize decodes tokens back to text.
func (c *Client) Detokenize(ctx context.Context, tokens []int32) (string, error) {
	var result detokenizeResponse
	if err := c.post(ctx, "/detokenize", detokenizeRequest{Tokens: tokens}, &result); err != nil {
		return "", err
	}
	return result.Content, nil
}

// completionRequest is the subset of /completion options askai sets.
type completionRequest struct {
	Prompt       []int32 `json:"prompt"`
	NPredict     int     `json:"n_predict"`
	Stream       bool    `json:"stream"`
	CachePrompt  bool    `json:"cache_prompt"`
	ReturnTokens bool    `json:"return_tokens"`
}

// completionEvent is one streamed /completion chunk.
type completionEvent struct {
	Content  string  `json:"content"`
	Tokens   []int32 `json:"tokens"`
	Stop     bool    `json:"stop"`
	StopType string  `json:"stop_type,omitempty"`
}

// completionStream reads server-sent completion events.
type completionStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

// complete starts a streaming completion seeded with prompt tokens.
func (c *Client) complete(ctx context.Context, req completionRequest) (*completionStream, error) {
	req.Stream = true
	req.ReturnTokens = true

	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/completion", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, statusError(resp.StatusCode, body)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &completionStream{body: resp.Body, scanner: scanner}, nil
}

// Next returns the next event. io.EOF means the stream ended.
func (s *completionStream) Next() (*completionEvent, error) {
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "error:"):
			return nil, streamError(strings.TrimSpace(strings.TrimPrefix(line, "error:")))
		case strings.HasPrefix(line, "data:"):
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "[DONE]" {
				return nil, io.EOF
			}
			var ev completionEvent
			if err := json.Unmarshal([]byte(payload), &ev); err != nil {
				return nil, fmt.Errorf("failed to parse completion event: %w (data: %s)", err, payload)
			}
			return &ev, nil
		}
		// Comments and other SSE fields carry nothing for us.
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Close releases the underlying response body.
func (s *completionStream) Close() error {
	return s.body.Close()
}

// post sends a JSON request and decodes a JSON response.
func (c *Client) post(ctx context.Context, path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w (body: %s)", path, err, string(body))
	}
	return nil
}

// statusError turns a non-200 response into an error, preferring the server's message.
func statusError(status int, body []byte) error {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil && env.Error.Message != "" {
		return fmt.Errorf("llama-server error (status %d): %s", status, env.Error.Message)
	}
	return fmt.Errorf("llama-server error (status %d): %s", status, strings.TrimSpace(string(body)))
}

func streamError(payload string) error {
	var env errorEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err == nil && env.Error != nil {
		return fmt.Errorf("llama-server stream error: %s", env.Error.Message)
	}
	var e apiError
	if err := json.Unmarshal([]byte(payload), &e); err == nil && e.Message != "" {
		return fmt.Errorf("llama-server stream error: %s", e.Message)
	}
	return fmt.Errorf("llama-server stream error: %s", payload)
}
