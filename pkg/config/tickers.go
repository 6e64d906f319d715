package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Ticker is one entry of the ticker universe file. BasePrice is only used by
// the simulator as the anchor for its random walk.
type Ticker struct {
	Symbol    string  `yaml:"symbol"`
	BasePrice float64 `yaml:"base_price"`
}

type tickersFile struct {
	Tickers []Ticker `yaml:"tickers"`
}

// LoadTickers parses the ticker universe YAML file. A missing file is not an
// error; callers get an empty list and decide what that means for them.
func LoadTickers(path string) ([]Ticker, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read tickers file: %w", err)
	}

	var tf tickersFile
	if err := yaml.Unmarshal(b, &tf); err != nil {
		return nil, fmt.Errorf("parse tickers file: %w", err)
	}

	out := make([]Ticker, 0, len(tf.Tickers))
	for _, t := range tf.Tickers {
		sym := strings.ToUpper(strings.TrimSpace(t.Symbol))
		if sym == "" {
			continue
		}
		out = append(out, Ticker{Symbol: sym, BasePrice: t.BasePrice})
	}
	return out, nil
}
