package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"config-conflict-detector/internal/model"
)

// Fetcher returns a snapshot of recent connection records for one host.
type Fetcher interface {
	FetchConnectionStats(ctx context.Context, host string) ([]model.FlowRecord, error)
}

// FetchError reports a failed snapshot fetch for Host. StatusCode is zero when
// no HTTP response was received.
type FetchError struct {
	Host       string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch connection stats for %s: status %d: %v", e.Host, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch connection stats for %s: %v", e.Host, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

const DefaultBaseURL = "http://127.0.0.1:8000"

// HTTPClient talks to the telemetry HTTP facade, which serves
// GET /<host>/connection_stats.
type HTTPClient struct {
	BaseURL string
	Token   string

	httpClient *http.Client
	limiter    *rate.Limiter
}

type Option func(*HTTPClient)

// WithHTTPClient replaces the default http.Client. A nil client is ignored.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) {
		if c != nil {
			h.httpClient = c
		}
	}
}

// WithRateLimit caps outgoing requests at perSecond. Zero disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(h *HTTPClient) {
		if perSecond > 0 {
			h.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTPClient) { h.httpClient.Timeout = d }
}

func NewHTTPClient(baseURL, token string, opts ...Option) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &HTTPClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) FetchConnectionStats(ctx context.Context, host string) ([]model.FlowRecord, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{Host: host, Err: err}
		}
	}

	endpoint := c.BaseURL + "/" + url.PathEscape(host) + "/connection_stats"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FetchError{Host: host, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Host: host, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Host: host, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Host: host, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	flows, err := DecodeConnectionStats(body)
	if err != nil {
		return nil, &FetchError{Host: host, StatusCode: resp.StatusCode, Err: err}
	}
	return flows, nil
}

// FileSource reads snapshots from <Dir>/<host>.json, using the same body
// format the HTTP facade returns.
type FileSource struct {
	Dir string
}

func (s FileSource) FetchConnectionStats(ctx context.Context, host string) ([]model.FlowRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Host: host, Err: err}
	}
	body, err := os.ReadFile(filepath.Join(s.Dir, host+".json"))
	if err != nil {
		return nil, &FetchError{Host: host, Err: err}
	}
	flows, err := DecodeConnectionStats(body)
	if err != nil {
		return nil, &FetchError{Host: host, Err: err}
	}
	return flows, nil
}

type connectionStatsBody struct {
	ConnectionStats []wireFlow `json:"connection_stats"`
	Error           string     `json:"error"`
}

type wireFlow struct {
	SrcIP            string        `json:"src_ip"`
	DstIP            string        `json:"dst_ip"`
	SrcPort          flexInt       `json:"src_port"`
	DstPort          flexInt       `json:"dst_port"`
	Protocol         flexInt       `json:"protocol"`
	IngressInterface string        `json:"ingress_interface"`
	EgressInterface  string        `json:"egress_interface"`
	Applications     []wireAppInfo `json:"applications"`
}

type wireAppInfo struct {
	ServiceName string `json:"app_service_name"`
}

// flexInt decodes a JSON number or a numeric string; the facade's protobuf
// JSON mapping renders 64-bit integers as strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid integer %q", s)
		}
		*f = flexInt(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

// DecodeConnectionStats parses a connection_stats body. A body that carries
// an "error" member is reported as an error.
func DecodeConnectionStats(body []byte) ([]model.FlowRecord, error) {
	var payload connectionStatsBody
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode connection stats: %w", err)
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("telemetry service: %s", payload.Error)
	}

	flows := make([]model.FlowRecord, 0, len(payload.ConnectionStats))
	for _, w := range payload.ConnectionStats {
		flow := model.FlowRecord{
			SrcIP:            w.SrcIP,
			DstIP:            w.DstIP,
			SrcPort:          int(w.SrcPort),
			DstPort:          int(w.DstPort),
			Protocol:         int(w.Protocol),
			IngressInterface: w.IngressInterface,
			EgressInterface:  w.EgressInterface,
		}
		for _, app := range w.Applications {
			flow.Applications = append(flow.Applications, model.Application{ServiceName: app.ServiceName})
		}
		flows = append(flows, flow)
	}
	return flows, nil
}
