package polygon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HaydenEquityAi/stockmarket/cmd/server/internal/httpx"
	"github.com/HaydenEquityAi/stockmarket/pkg/models"
)

const defaultBaseURL = "https://api.polygon.io"

// Config controls the Polygon client.
type Config struct {
	APIKey  string
	BaseURL string // overridable for tests; defaults to the public API
}

// Client fetches previous-close aggregates from Polygon. Polygon does not
// report deltas directly, so change and changePercent are derived from the
// bar's close and open.
type Client struct {
	cfg    Config
	client *httpx.Client
	logger *zap.Logger
}

func New(cfg Config, hc *httpx.Client, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Client{cfg: cfg, client: hc, logger: logger}
}

func (c *Client) Name() string { return "polygon" }

// Fetch issues one request per symbol. Per-symbol failures are logged and
// the symbol dropped; a batch where every request failed at the transport
// level is reported as a systemic error so the caller can fall back.
func (c *Client) Fetch(ctx context.Context, symbols []string) ([]models.Quote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	if c.cfg.APIKey == "" {
		c.logger.Error("Polygon API key not found")
		return nil, nil
	}

	out := make([]models.Quote, 0, len(symbols))
	var transportErrs int
	var lastErr error

	for _, symbol := range symbols {
		sym := strings.ToUpper(symbol)
		q, transport, err := c.fetchOne(ctx, sym)
		if err != nil {
			c.logger.Error("Polygon fetch failed", zap.String("symbol", sym), zap.Error(err))
			if transport {
				transportErrs++
				lastErr = err
			}
			continue
		}
		if q != nil {
			out = append(out, *q)
		}
	}

	if len(out) == 0 && transportErrs == len(symbols) {
		return nil, fmt.Errorf("polygon: all %d requests failed: %w", len(symbols), lastErr)
	}
	return out, nil
}

type aggsResponse struct {
	Results []struct {
		Open   *float64 `json:"o"`
		Close  *float64 `json:"c"`
		Volume *float64 `json:"v"`
	} `json:"results"`
}

// fetchOne returns a nil quote with a nil error when the upstream answered
// but had no usable bar for the symbol; that symbol is silently omitted. The
// bool marks transport-level failures, which count toward the systemic fault.
func (c *Client) fetchOne(ctx context.Context, symbol string) (*models.Quote, bool, error) {
	u := fmt.Sprintf("%s/v2/aggs/ticker/%s/prev?adjusted=true&apiKey=%s",
		c.cfg.BaseURL, url.PathEscape(symbol), url.QueryEscape(c.cfg.APIKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, false, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, fmt.Errorf("status %s", resp.Status)
	}

	var body aggsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, false, fmt.Errorf("decode: %w", err)
	}

	// Partial bars are dropped rather than defaulted.
	if len(body.Results) == 0 {
		return nil, false, nil
	}
	bar := body.Results[0]
	if bar.Close == nil || bar.Open == nil || *bar.Open == 0 {
		return nil, false, nil
	}

	change := *bar.Close - *bar.Open
	changePercent := change / *bar.Open * 100

	return &models.Quote{
		Symbol:        symbol,
		Price:         *bar.Close,
		Change:        &change,
		ChangePercent: &changePercent,
		Volume:        bar.Volume,
		Timestamp:     time.Now().UnixMilli(),
	}, false, nil
}
