package finnhub

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

const defaultBaseURL = "https://finnhub.io"

// Config controls the Finnhub client.
type Config struct {
	APIKey  string
	BaseURL string // overridable for tests; defaults to the public API
}

// Client fetches tick quotes from Finnhub, which reports change and percent
// change directly (no derivation needed) and no volume.
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

func (c *Client) Name() string { return "finnhub" }

func (c *Client) Fetch(ctx context.Context, symbols []string) ([]models.Quote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	if c.cfg.APIKey == "" {
		c.logger.Error("Finnhub API key not found")
		return nil, nil
	}

	out := make([]models.Quote, 0, len(symbols))
	var transportErrs int
	var lastErr error

	for _, symbol := range symbols {
		sym := strings.ToUpper(symbol)
		q, transport, err := c.fetchOne(ctx, sym)
		if err != nil {
			c.logger.Error("Finnhub fetch failed", zap.String("symbol", sym), zap.Error(err))
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
		return nil, fmt.Errorf("finnhub: all %d requests failed: %w", len(symbols), lastErr)
	}
	return out, nil
}

type quoteResponse struct {
	Current       *float64 `json:"c"`
	Change        *float64 `json:"d"`
	ChangePercent *float64 `json:"dp"`
}

func (c *Client) fetchOne(ctx context.Context, symbol string) (*models.Quote, bool, error) {
	u := fmt.Sprintf("%s/api/v1/quote?symbol=%s&token=%s",
		c.cfg.BaseURL, url.QueryEscape(symbol), url.QueryEscape(c.cfg.APIKey))

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

	var body quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, false, fmt.Errorf("decode: %w", err)
	}

	// Entries missing the price are dropped, not defaulted to zero.
	if body.Current == nil {
		return nil, false, nil
	}

	return &models.Quote{
		Symbol:        symbol,
		Price:         *body.Current,
		Change:        body.Change,
		ChangePercent: body.ChangePercent,
		Timestamp:     time.Now().UnixMilli(),
	}, false, nil
}
