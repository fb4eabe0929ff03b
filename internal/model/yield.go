package model

import "strings"

// Action is the recommended next step for a crop.
type Action string

const (
	ActionHold     Action = "HOLD"
	ActionApply    Action = "APPLY"
	ActionDelay    Action = "DELAY"
	ActionHarvest  Action = "HARVEST"
	ActionIrrigate Action = "IRRIGATE"
)

// RiskLevel grades the urgency of a recommendation.
type RiskLevel string

const (
	RiskCritical RiskLevel = "critical"
	RiskWarning  RiskLevel = "warning"
	RiskOptimal  RiskLevel = "optimal"
	RiskNeutral  RiskLevel = "neutral"
)

// ParseAction returns the Action matching s, ignoring case and surrounding
// space. ok is false when s names no known action.
func ParseAction(s string) (Action, bool) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	switch a {
	case ActionHold, ActionApply, ActionDelay, ActionHarvest, ActionIrrigate:
		return a, true
	}
	return "", false
}

// ParseRiskLevel returns the RiskLevel matching s, ignoring case and
// surrounding space.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	r := RiskLevel(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RiskCritical, RiskWarning, RiskOptimal, RiskNeutral:
		return r, true
	}
	return "", false
}

// FarmInput describes the plot being analyzed.
type FarmInput struct {
	Crop     string  `json:"crop"`
	Area     float64 `json:"area"`
	State    string  `json:"state"`
	SoilType string  `json:"soilType"`
}

// WeatherSnapshot is the slice of current weather the analysis uses.
type WeatherSnapshot struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	RainChance  float64 `json:"rainChance"`
	WindSpeed   float64 `json:"windSpeed"`
	Condition   string  `json:"condition"`
	Location    string  `json:"location"`
}

// MarketSnapshot summarizes mandi prices for the crop, in rupees per quintal.
type MarketSnapshot struct {
	AvgPrice    float64 `json:"avgPrice"`
	MinPrice    float64 `json:"minPrice"`
	MaxPrice    float64 `json:"maxPrice"`
	RecordCount int     `json:"recordCount"`
}

// Recommendation is the headline advice produced by the analysis.
type Recommendation struct {
	Action          Action    `json:"action"`
	RiskLevel       RiskLevel `json:"riskLevel"`
	Headline        string    `json:"headline"`
	Rationale       string    `json:"rationale"`
	ProjectedImpact float64   `json:"projectedImpact"`
	Confidence      float64   `json:"confidence"`
}

// YieldAnalysis is the full result of a yield analysis run. Weather and
// Market are nil when their source was unavailable.
type YieldAnalysis struct {
	Weather         *WeatherSnapshot `json:"weather"`
	Market          *MarketSnapshot  `json:"market"`
	AIAnalysis      string           `json:"aiAnalysis"`
	Recommendation  Recommendation   `json:"recommendation"`
	SoilMoisture    float64          `json:"soilMoisture"`
	YieldProjection float64          `json:"yieldProjection"`
	FullAnalysis    string           `json:"fullAnalysis"`
	Provider        string           `json:"provider,omitempty"`
}
