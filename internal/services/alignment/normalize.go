package alignment

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"KronosAlign/internal/domain/models"
	applogger "KronosAlign/pkg/logger"
	"KronosAlign/pkg/util"
)

// TimestampAliases are the accepted timestamp column names, highest priority first.
var TimestampAliases = []string{"timestamps", "timestamp", "date"}

// RequiredColumns must be present in every input table.
var RequiredColumns = []string{"open", "high", "low", "close"}

// FallbackEpoch starts the hourly sequence used when a table has no timestamp
// column and positional fallback is enabled. Row i gets FallbackEpoch + i hours.
var FallbackEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// FallbackStep is the spacing of positional fallback timestamps.
const FallbackStep = time.Hour

// RawTable is untyped tabular input: a header row and string cells.
type RawTable struct {
	Columns []string
	Records [][]string
}

// NormalizeOptions tunes the normalizer.
type NormalizeOptions struct {
	// PositionalFallback synthesizes timestamps for tables without a timestamp
	// column. Meant for demo data only.
	PositionalFallback bool
}

// Normalizer coerces raw tables into canonical series.
type Normalizer struct {
	opts NormalizeOptions
	l    *applogger.Logger
}

// NewNormalizer creates a normalizer. l may be nil.
func NewNormalizer(l *applogger.Logger, opts NormalizeOptions) *Normalizer {
	return &Normalizer{opts: opts, l: l}
}

// Normalize converts t into a chronologically ordered series with UTC
// timestamps. Rows whose timestamp or any price cannot be parsed are dropped.
func (n *Normalizer) Normalize(t RawTable) (models.Series, error) {
	cols := columnIndex(t.Columns)

	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &models.SchemaError{Message: "missing required columns", Columns: missing}
	}

	tsCol := -1
	for _, alias := range TimestampAliases {
		if i, ok := cols[alias]; ok {
			tsCol = i
			break
		}
	}
	if tsCol < 0 {
		if !n.opts.PositionalFallback {
			return nil, &models.SchemaError{Message: "no timestamp column, expected one of", Columns: TimestampAliases}
		}
		if n.l != nil {
			n.l.Warn("no timestamp column, synthesizing hourly timestamps",
				applogger.String("epoch", FallbackEpoch.Format(time.RFC3339)),
				applogger.Int("rows", len(t.Records)),
			)
		}
	}

	volCol, hasVol := cols["volume"]
	amtCol, hasAmt := cols["amount"]

	out := make(models.Series, 0, len(t.Records))
	dropped := 0
	for i, rec := range t.Records {
		var ts time.Time
		if tsCol >= 0 {
			parsed, ok := util.ParseTime(cell(rec, tsCol))
			if !ok {
				dropped++
				continue
			}
			ts = parsed
		} else {
			ts = FallbackEpoch.Add(time.Duration(i) * FallbackStep)
		}

		var prices [4]float64
		valid := true
		for j, c := range RequiredColumns {
			v, ok := parseFloat(cell(rec, cols[c]))
			if !ok {
				valid = false
				break
			}
			prices[j] = v
		}
		if !valid {
			dropped++
			continue
		}

		row := models.CanonicalRow{
			Timestamp: ts,
			Open:      prices[0],
			High:      prices[1],
			Low:       prices[2],
			Close:     prices[3],
		}
		if hasVol {
			row.Volume, _ = parseFloat(cell(rec, volCol))
		}
		if hasAmt {
			row.Amount, _ = parseFloat(cell(rec, amtCol))
		}
		out = append(out, row)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	out, dupes := dedupe(out)

	if n.l != nil && (dropped > 0 || dupes > 0) {
		n.l.Warn("normalize dropped rows",
			applogger.Int("unparseable", dropped),
			applogger.Int("duplicate_timestamps", dupes),
			applogger.Int("kept", len(out)),
		)
	}
	if len(out) == 0 && len(t.Records) > 0 {
		return nil, &models.SchemaError{Message: "no valid rows after coercion"}
	}
	return out, nil
}

// dedupe keeps the first row of every run of equal timestamps. s must be sorted.
func dedupe(s models.Series) (models.Series, int) {
	if len(s) < 2 {
		return s, 0
	}
	out := s[:1]
	for _, r := range s[1:] {
		if r.Timestamp.Equal(out[len(out)-1].Timestamp) {
			continue
		}
		out = append(out, r)
	}
	return out, len(s) - len(out)
}

func columnIndex(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, seen := m[key]; !seen {
			m[key] = i
		}
	}
	return m
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
