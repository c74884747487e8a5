// Package remote is the client for the ads webhook API used by the campaign
// wizard and the dashboard.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/radiusdt/campaign-studio/internal/apperr"
	"github.com/radiusdt/campaign-studio/internal/config"
	"github.com/radiusdt/campaign-studio/internal/metrics"
	"go.uber.org/zap"
)

const maxResponseBytes = 8 << 20

// Operation names used in errors, logs and metrics.
const (
	OpCreateCampaign = "create_campaign"
	OpCreateAdSet    = "create_adset"
	OpUploadFile     = "upload_file"
	OpCreateAd       = "create_ad"
	OpFetchInsights  = "fetch_insights"
	OpSetStatus      = "set_campaign_status"
	OpFetchReport    = "fetch_report"
	OpAnalyzeReport  = "analyze_report"
)

// Client issues one request per operation. It never retries.
type Client struct {
	http    *http.Client
	cfg     config.RemoteConfig
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewClient creates a webhook client.
func NewClient(cfg config.RemoteConfig, logger *zap.Logger, m *metrics.Metrics) *Client {
	return &Client{
		http:    &http.Client{},
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
}

type response struct {
	status int
	body   []byte
}

func (c *Client) do(ctx context.Context, op, path, contentType string, body []byte) (*response, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	url := c.cfg.URL(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &apperr.RemoteCallError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		rerr := &apperr.RemoteCallError{Op: op, Err: err}
		c.metrics.RecordRemoteCall(op, rerr, time.Since(start))
		c.logger.Warn("remote call failed",
			zap.String("op", op),
			zap.String("url", url),
			zap.Error(err),
		)
		return nil, rerr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		rerr := &apperr.RemoteCallError{Op: op, StatusCode: resp.StatusCode, Err: err}
		c.metrics.RecordRemoteCall(op, rerr, time.Since(start))
		return nil, rerr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rerr := parseErrorBody(op, resp.StatusCode, data)
		c.metrics.RecordRemoteCall(op, rerr, time.Since(start))
		c.logger.Warn("remote call rejected",
			zap.String("op", op),
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
			zap.String("message", rerr.Message),
			zap.Int("provider_code", rerr.ProviderCode),
		)
		return nil, rerr
	}

	c.metrics.RecordRemoteCall(op, nil, time.Since(start))
	c.logger.Debug("remote call completed",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	return &response{status: resp.StatusCode, body: data}, nil
}

func (c *Client) postJSON(ctx context.Context, op, path string, payload interface{}) (*response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &apperr.RemoteCallError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
	}
	return c.do(ctx, op, path, "application/json", body)
}

// parseErrorBody extracts the server message and provider code from an error
// response. Both {"error":{"message","code"}} and {"message"} are accepted.
func parseErrorBody(op string, status int, body []byte) *apperr.RemoteCallError {
	rerr := &apperr.RemoteCallError{Op: op, StatusCode: status}

	obj, err := firstObject(body)
	if err != nil || obj == nil {
		return rerr
	}

	if raw, ok := obj["error"]; ok {
		var nested map[string]json.RawMessage
		if json.Unmarshal(raw, &nested) == nil {
			rerr.Message = rawString(nested["message"])
			rerr.ProviderCode = rawInt(nested["code"])
			return rerr
		}
		rerr.Message = rawString(raw)
		return rerr
	}
	rerr.Message = rawString(obj["message"])
	rerr.ProviderCode = rawInt(obj["code"])
	return rerr
}

// firstObject decodes body as a JSON object, or the first element of a JSON
// array. An empty body or empty array yields a nil map.
func firstObject(body []byte) (map[string]json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	switch body[0] {
	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(body, &arr); err != nil {
			return nil, err
		}
		if len(arr) == 0 {
			return nil, nil
		}
		return firstObject(arr[0])
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(body, &obj); err != nil {
			return nil, err
		}
		return obj, nil
	default:
		return nil, errors.New("response is not a JSON object")
	}
}

// rawString returns a JSON string or number as text, else "".
func rawString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
		return ""
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}

func rawInt(raw json.RawMessage) int {
	var n int
	if json.Unmarshal(raw, &n) == nil {
		return n
	}
	return 0
}
