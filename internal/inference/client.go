package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrMissingAPIToken indicates that the client was configured without credentials.
var ErrMissingAPIToken = errors.New("inference: api token is required")

// Options configures the inference provider client.
type Options struct {
	APIToken     string
	BaseURL      string
	HTTPClient   *http.Client
	PollInterval time.Duration
}

// Client performs HTTP calls to a Replicate-compatible prediction API. A run
// blocks until the provider reports a terminal state and returns one binary
// stream per generated artifact, in output order.
type Client struct {
	apiToken     string
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
}

// Input is the dynamic parameter object sent to the model.
type Input map[string]interface{}

// Artifact is one generated output: a URL and its open byte stream.
// The caller owns Body and must close it.
type Artifact struct {
	URL  string
	Body io.ReadCloser
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
}

type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Status int    `json:"status"`
}

// NewClient constructs a client with sane defaults.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIToken) == "" {
		return nil, ErrMissingAPIToken
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.replicate.com/v1"
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Client{
		apiToken:     opts.APIToken,
		baseURL:      baseURL,
		httpClient:   httpClient,
		pollInterval: pollInterval,
	}, nil
}

// Run creates a prediction for modelVersion, waits for it to reach a terminal
// state and opens one stream per output artifact. Cancellation is limited to
// ctx propagation; the provider keeps computing once a request is accepted.
func (c *Client) Run(ctx context.Context, modelVersion string, input Input) ([]Artifact, error) {
	version := modelVersion
	if idx := strings.LastIndex(modelVersion, ":"); idx >= 0 {
		version = modelVersion[idx+1:]
	}
	pred, err := c.createPrediction(ctx, version, input)
	if err != nil {
		return nil, err
	}
	pred, err = c.waitForPrediction(ctx, pred)
	if err != nil {
		return nil, err
	}
	urls, err := decodeOutputURLs(pred.Output)
	if err != nil {
		return nil, err
	}
	artifacts := make([]Artifact, 0, len(urls))
	for _, outputURL := range urls {
		body, err := c.openStream(ctx, outputURL)
		if err != nil {
			closeArtifacts(artifacts)
			return nil, err
		}
		artifacts = append(artifacts, Artifact{URL: outputURL, Body: body})
	}
	return artifacts, nil
}

func (c *Client) createPrediction(ctx context.Context, version string, input Input) (*prediction, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"version": version,
		"input":   input,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predictions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "wait")
	return c.doPrediction(req)
}

func (c *Client) getPrediction(ctx context.Context, id string) (*prediction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/predictions/"+id, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	return c.doPrediction(req)
}

func (c *Client) doPrediction(req *http.Request) (*prediction, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if jsonErr := json.Unmarshal(body, &apiErr); jsonErr == nil && apiErr.Detail != "" {
			return nil, fmt.Errorf("inference: %s", apiErr.Detail)
		}
		return nil, fmt.Errorf("inference: unexpected status %s", resp.Status)
	}
	var pred prediction
	if err := json.Unmarshal(body, &pred); err != nil {
		return nil, fmt.Errorf("inference: decode response: %w", err)
	}
	return &pred, nil
}

func (c *Client) waitForPrediction(ctx context.Context, pred *prediction) (*prediction, error) {
	for {
		switch pred.Status {
		case "succeeded":
			return pred, nil
		case "failed", "canceled":
			if pred.Error != "" {
				return nil, fmt.Errorf("inference: prediction %s: %s", pred.Status, pred.Error)
			}
			return nil, fmt.Errorf("inference: prediction %s", pred.Status)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
		next, err := c.getPrediction(ctx, pred.ID)
		if err != nil {
			return nil, err
		}
		pred = next
	}
}

func (c *Client) openStream(ctx context.Context, outputURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, outputURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("inference: fetch output: unexpected status %s", resp.Status)
	}
	return resp.Body, nil
}

// decodeOutputURLs accepts either a JSON array of URLs or a single URL string.
func decodeOutputURLs(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var urls []string
	if err := json.Unmarshal(raw, &urls); err == nil {
		return urls, nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}, nil
	}
	return nil, errors.New("inference: unexpected output shape")
}

func closeArtifacts(artifacts []Artifact) {
	for _, a := range artifacts {
		_ = a.Body.Close()
	}
}
