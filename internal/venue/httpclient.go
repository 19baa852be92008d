package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"

	"hldesk/internal/apperr"
)

// HTTPClientConfig controls the shared venue HTTP client, using the same
// connection-pooling setup as internal/exchange/httpclient.go.
type HTTPClientConfig struct {
	ConnectTimeout      time.Duration
	TotalTimeout        time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	TLSHandshakeTimeout time.Duration
}

func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		ConnectTimeout:      5 * time.Second,
		TotalTimeout:        30 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
}

// Client is the shared HTTP client every adapter uses to call its venue.
// Each
// venue gets its own rate.Limiter since CEX APIs enforce per-endpoint quotas
// independently.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	json    jsoniter.API
}

var (
	globalTransport     *http.Transport
	globalTransportOnce sync.Once
)

func sharedTransport(cfg HTTPClientConfig) *http.Transport {
	globalTransportOnce.Do(func() {
		dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
		globalTransport = &http.Transport{
			DialContext:         dialer.DialContext,
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			MaxConnsPerHost:     cfg.MaxConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
			TLSHandshakeTimeout: cfg.TLSHandshakeTimeout,
		}
	})
	return globalTransport
}

// NewClient builds a venue HTTP client rate-limited to ratePerSec requests
// per second with a burst of burst.
func NewClient(ratePerSec float64, burst int) *Client {
	cfg := DefaultHTTPClientConfig()
	return &Client{
		http: &http.Client{
			Transport: sharedTransport(cfg),
			Timeout:   cfg.TotalTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		json:    jsoniter.ConfigCompatibleWithStandardLibrary,
	}
}

// GetJSON performs a rate-limited GET and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return apperr.Transport("rate limiter wait", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return apperr.Transport("build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Transport(fmt.Sprintf("GET %s", url), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Transport("read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperr.Transport(fmt.Sprintf("GET %s: status %d", url, resp.StatusCode), fmt.Errorf("%s", body))
	}

	if err := c.json.Unmarshal(body, out); err != nil {
		return apperr.Transport(fmt.Sprintf("decode response from %s", url), err)
	}
	return nil
}

// remarshal re-encodes src (typically a map[string]any or []any produced by
// decoding into an any-typed field) into dst's concrete type. Used for the
// Hyperliquid tuple response, whose two elements have unrelated shapes.
func remarshal(src any, dst any) error {
	buf, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(src)
	if err != nil {
		return err
	}
	return jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(buf, dst)
}

// PostJSON performs a rate-limited POST with a JSON body and decodes the
// JSON response into out. Used by the Hyperliquid adapter, whose info
// endpoint is POST-only.
func (c *Client) PostJSON(ctx context.Context, url string, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return apperr.Transport("rate limiter wait", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return apperr.Transport("encode request body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return apperr.Transport("build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Transport(fmt.Sprintf("POST %s", url), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Transport("read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperr.Transport(fmt.Sprintf("POST %s: status %d", url, resp.StatusCode), fmt.Errorf("%s", respBody))
	}

	if err := c.json.Unmarshal(respBody, out); err != nil {
		return apperr.Transport(fmt.Sprintf("decode response from %s", url), err)
	}
	return nil
}
