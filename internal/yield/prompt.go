package yield

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/agrimate/internal/model"
)

var printer = message.NewPrinter(language.English)

const responseFormat = `RESPOND IN THIS EXACT JSON FORMAT (no markdown, no code blocks, just raw JSON):
{
    "action": "HOLD|APPLY|DELAY|HARVEST|IRRIGATE",
    "riskLevel": "critical|warning|optimal|neutral",
    "headline": "One-line decision headline",
    "rationale": "2-3 sentence explanation with specific numbers and ₹ figures",
    "projectedImpact": <number, positive=gain negative=loss in ₹/acre>,
    "confidence": <0-100>,
    "soilMoistureEstimate": <0-100 based on weather/season/soil type>,
    "yieldProjection": <quintals per hectare estimate>,
    "fullAnalysis": "Detailed 4-5 paragraph analysis covering: 1) Current conditions assessment 2) Market opportunity 3) Risk factors 4) Recommended action plan with timeline 5) Expected returns calculation in ₹"
}`

// BuildPrompt renders the analysis request for in. A nil snapshot is
// reported as unavailable.
func BuildPrompt(in model.FarmInput, w *model.WeatherSnapshot, m *model.MarketSnapshot) string {
	var b strings.Builder
	b.WriteString("You are the AgriMate Yield Optimizer AI. Analyze this farm data and give a STRUCTURED recommendation.\n\n")

	b.WriteString("FARM DATA:\n")
	b.WriteString("- Crop: " + in.Crop + "\n")
	b.WriteString("- Area: " + num(in.Area) + " hectares\n")
	b.WriteString("- State: " + in.State + "\n")
	b.WriteString("- Soil Type: " + in.SoilType + "\n\n")

	if w != nil {
		b.WriteString("LIVE WEATHER (" + w.Location + "):\n")
		b.WriteString("- Temperature: " + num(w.Temperature) + "°C\n")
		b.WriteString("- Humidity: " + num(w.Humidity) + "%\n")
		b.WriteString("- Rain Probability Today: " + num(w.RainChance) + "%\n")
		b.WriteString("- Wind: " + num(w.WindSpeed) + " km/h\n")
		b.WriteString("- Condition: " + w.Condition + "\n\n")
	} else {
		b.WriteString("WEATHER: Unavailable\n\n")
	}

	if m != nil {
		b.WriteString("LIVE MARKET PRICES (" + in.Crop + "):\n")
		b.WriteString("- Average Modal Price: ₹" + rupees(m.AvgPrice) + "/quintal\n")
		b.WriteString("- Price Range: ₹" + rupees(m.MinPrice) + " — ₹" + rupees(m.MaxPrice) + "/quintal\n")
		b.WriteString("- Data from " + strconv.Itoa(m.RecordCount) + " mandis\n\n")
	} else {
		b.WriteString("MARKET DATA: Unavailable\n\n")
	}

	b.WriteString(responseFormat)
	return b.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// rupees formats v with thousands separators, keeping up to three decimals.
func rupees(v float64) string {
	if v == float64(int64(v)) {
		return printer.Sprintf("%d", int64(v))
	}
	return strings.TrimRight(strings.TrimRight(printer.Sprintf("%.3f", v), "0"), ".")
}
