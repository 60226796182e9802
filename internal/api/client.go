package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wgledger/internal/model"
)

const defaultTimeout = 10 * time.Second

// Client is a thin HTTP client for the peer fetch endpoint and for a running
// wgledger server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the given base URL. A zero timeout uses
// the default of ten seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchPeers invokes the fetch endpoint at the base URL and unwraps its
// {success, data, error} envelope.
func (c *Client) FetchPeers(ctx context.Context) ([]model.RawPeer, error) {
	var resp FetchResponse
	if err := c.postJSON(ctx, "", struct{}{}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		if resp.Error == "" {
			return nil, fmt.Errorf("fetch failed without an error message")
		}
		return nil, fmt.Errorf("fetch failed: %s", resp.Error)
	}
	out := make([]model.RawPeer, 0, len(resp.Data))
	for _, rec := range resp.Data {
		out = append(out, rec.Raw())
	}
	return out, nil
}

// Report fetches a filtered report from a wgledger server.
func (c *Client) Report(ctx context.Context, query, status string) (ReportResponse, error) {
	var resp ReportResponse
	v := url.Values{}
	if query != "" {
		v.Set("q", query)
	}
	if status != "" {
		v.Set("status", status)
	}
	endpoint := "/report"
	if len(v) > 0 {
		endpoint += "?" + v.Encode()
	}
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// Next fetches the next allocation from a wgledger server.
func (c *Client) Next(ctx context.Context) (NextResponse, error) {
	var resp NextResponse
	if err := c.getJSON(ctx, "/next", &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		msg := strings.TrimSpace(string(body))
		if msg != "" {
			return fmt.Errorf("request failed: %s: %s", res.Status, msg)
		}
		return fmt.Errorf("request failed: %s", res.Status)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Redacted(), err)
	}
	return nil
}
