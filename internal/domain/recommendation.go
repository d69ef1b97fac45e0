package domain

import (
	"fmt"
	"strings"
)

// Strategy names a recommendation ranking policy
type Strategy string

const (
	StrategyNewAndNotable            Strategy = "new_and_notable"
	StrategyPersonalized             Strategy = "personalized"
	StrategyFrequentlyBoughtTogether Strategy = "frequently_bought_together"
	StrategySimilar                  Strategy = "similar"
	StrategyTrending                 Strategy = "trending"
)

var strategies = []Strategy{
	StrategyNewAndNotable,
	StrategyPersonalized,
	StrategyFrequentlyBoughtTogether,
	StrategySimilar,
	StrategyTrending,
}

// ParseStrategy accepts the snake_case name, case-insensitively
func ParseStrategy(s string) (Strategy, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, st := range strategies {
		if string(st) == norm {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// NeedsSource reports whether the strategy ranks relative to a source product
func (s Strategy) NeedsSource() bool {
	return s == StrategyFrequentlyBoughtTogether || s == StrategySimilar
}

// RankedProduct is one entry of a recommendation list
type RankedProduct struct {
	Product Product `json:"product"`
	Rank    int     `json:"rank"`
	Signal  float64 `json:"signal"` // strategy-specific primary key
	Score   *Score  `json:"score,omitempty"`
}
