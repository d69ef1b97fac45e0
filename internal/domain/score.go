package domain

import "time"

// ModelVersion tags the scoring strategy that produced a Score
type ModelVersion string

const (
	// ModelRuleBasedV1 is the banded rule scorer
	ModelRuleBasedV1 ModelVersion = "rule_based_v1"
)

// Contribution is one factor's signed contribution to a score
type Contribution struct {
	Factor string  `json:"factor"`
	Points float64 `json:"points"`
}

// ScoreBreakdown lists the factor contributions behind each score
type ScoreBreakdown struct {
	Fit         []Contribution `json:"fit"`
	Feature     []Contribution `json:"feature"`
	Integration []Contribution `json:"integration"`
	Review      []Contribution `json:"review"`
	Weights     ScoreWeights   `json:"weights"`
}

// ScoreWeights are the overall-score weights in percent
type ScoreWeights struct {
	Fit         int `json:"fit"`
	Feature     int `json:"feature"`
	Integration int `json:"integration"`
	Review      int `json:"review"`
}

// Score is the derived quality record of one product. Every score is in [0,100].
type Score struct {
	ProductID        string         `json:"productId"`
	FitScore         int            `json:"fitScore"`
	FeatureScore     int            `json:"featureScore"`
	IntegrationScore int            `json:"integrationScore"`
	ReviewScore      int            `json:"reviewScore"`
	OverallScore     int            `json:"overallScore"`
	Breakdown        ScoreBreakdown `json:"breakdown"`
	ModelVersion     ModelVersion   `json:"modelVersion"`
	CalculatedAt     time.Time      `json:"calculatedAt"`
}

// Vector returns the four component scores in a fixed order
func (s Score) Vector() [4]int {
	return [4]int{s.FitScore, s.FeatureScore, s.IntegrationScore, s.ReviewScore}
}
