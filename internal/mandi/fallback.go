package mandi

import (
	_ "embed"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/agrimate/internal/model"
)

//go:embed fallback.yaml
var fallbackYAML []byte

// Entry is one commodity in the fallback table.
type Entry struct {
	Commodity string        `yaml:"commodity"`
	Markets   []MarketPrice `yaml:"markets"`
}

// MarketPrice is a representative price at one market.
type MarketPrice struct {
	State      string  `yaml:"state"`
	District   string  `yaml:"district"`
	Market     string  `yaml:"market"`
	Variety    string  `yaml:"variety"`
	Grade      string  `yaml:"grade"`
	MinPrice   float64 `yaml:"min_price"`
	MaxPrice   float64 `yaml:"max_price"`
	ModalPrice float64 `yaml:"modal_price"`
}

// Table is the static fallback price table.
type Table struct {
	Commodities []Entry `yaml:"commodities"`
}

// LoadTable parses a fallback table from YAML.
func LoadTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, eris.Wrap(err, "mandi: parse fallback table")
	}
	if len(t.Commodities) == 0 {
		return nil, eris.New("mandi: fallback table is empty")
	}
	return &t, nil
}

// DefaultTable returns the embedded fallback table.
func DefaultTable() *Table {
	t, err := LoadTable(fallbackYAML)
	if err != nil {
		panic(err)
	}
	return t
}

// Records expands the table into price records dated now. The commodity
// filter is applied before expansion and the state filter after; both ignore
// case. Prices get fresh jitter on every call: min and max move by up to 50,
// modal by up to 40. Prices are not re-ordered after jitter.
func (t *Table) Records(commodity, state string, rng *rand.Rand, now time.Time) []model.MandiRecord {
	date := ArrivalDate(now)

	var out []model.MandiRecord
	for _, e := range t.Commodities {
		if commodity != "" && !strings.EqualFold(e.Commodity, commodity) {
			continue
		}
		for _, m := range e.Markets {
			out = append(out, model.MandiRecord{
				State:       m.State,
				District:    m.District,
				Market:      m.Market,
				Commodity:   e.Commodity,
				Variety:     m.Variety,
				Grade:       m.Grade,
				ArrivalDate: date,
				MinPrice:    m.MinPrice + jitter(rng, 100),
				MaxPrice:    m.MaxPrice + jitter(rng, 100),
				ModalPrice:  m.ModalPrice + jitter(rng, 80),
			})
		}
	}

	if state == "" {
		return out
	}
	filtered := out[:0]
	for _, r := range out {
		if strings.EqualFold(r.State, state) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// ArrivalDate formats t as DD/MM/YYYY.
func ArrivalDate(t time.Time) string {
	return t.Format("02/01/2006")
}

// jitter returns round((u-0.5)*span) for u uniform in [0,1).
func jitter(rng *rand.Rand, span float64) float64 {
	return roundHalfUp((rng.Float64() - 0.5) * span)
}

// roundHalfUp rounds to the nearest integer with halves going toward +Inf.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
