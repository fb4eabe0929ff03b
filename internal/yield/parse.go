package yield

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/sells-group/agrimate/internal/model"
)

// Defaults applied when the model reply omits a field or cannot be parsed.
const (
	DefaultHeadline     = "Analysis complete — review recommendations below."
	DefaultRationale    = "Based on available data, a cautious approach is recommended."
	DefaultConfidence   = 70
	DefaultSoilMoisture = 50
	DefaultYield        = 30
)

// Parsed is the structured content recovered from a model reply.
type Parsed struct {
	Recommendation  model.Recommendation
	SoilMoisture    float64
	YieldProjection float64
	FullAnalysis    string
}

// Parse recovers a recommendation from raw. It tries the whole reply as
// JSON, then the first balanced {...} span, then the widest {...} span. Any
// field that is missing, zero, empty or of the wrong type takes its default.
// Parse never fails.
func Parse(raw string) Parsed {
	obj := extractObject(raw)

	p := Parsed{
		Recommendation: model.Recommendation{
			Action:          model.ActionDelay,
			RiskLevel:       model.RiskNeutral,
			Headline:        stringOr(obj, "headline", DefaultHeadline),
			Rationale:       stringOr(obj, "rationale", DefaultRationale),
			ProjectedImpact: numberOr(obj, "projectedImpact", 0),
			Confidence:      clamp(numberOr(obj, "confidence", DefaultConfidence), 0, 100),
		},
		SoilMoisture:    numberOr(obj, "soilMoistureEstimate", DefaultSoilMoisture),
		YieldProjection: numberOr(obj, "yieldProjection", DefaultYield),
		FullAnalysis:    stringOr(obj, "fullAnalysis", raw),
	}
	if a, ok := model.ParseAction(stringOr(obj, "action", "")); ok {
		p.Recommendation.Action = a
	}
	if r, ok := model.ParseRiskLevel(stringOr(obj, "riskLevel", "")); ok {
		p.Recommendation.RiskLevel = r
	}
	return p
}

// extractObject returns the first JSON object found in raw, or an empty
// result when there is none.
func extractObject(raw string) gjson.Result {
	trimmed := strings.TrimSpace(raw)
	if isObject(trimmed) {
		return gjson.Parse(trimmed)
	}
	if span, ok := balancedSpan(raw); ok && isObject(span) {
		return gjson.Parse(span)
	}
	start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}")
	if start >= 0 && end > start && isObject(raw[start:end+1]) {
		return gjson.Parse(raw[start : end+1])
	}
	return gjson.Result{}
}

func isObject(s string) bool {
	return strings.HasPrefix(s, "{") && gjson.Valid(s)
}

// balancedSpan returns the text from the first '{' to its matching '}',
// skipping braces inside JSON strings.
func balancedSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func stringOr(obj gjson.Result, key, def string) string {
	v := obj.Get(key)
	if v.Type == gjson.String && v.Str != "" {
		return v.Str
	}
	return def
}

func numberOr(obj gjson.Result, key string, def float64) float64 {
	v := obj.Get(key)
	if v.Type == gjson.Number && v.Num != 0 {
		return v.Num
	}
	return def
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
