package alignment

import (
	"KronosAlign/internal/domain/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Reconcile compares the first forecast row with the first actual row.
// It returns nil when either segment is empty. Fields whose actual value is
// zero get a nil percent gap and are listed in UndefinedFields.
// The percent gap divides by |actual|, so it stays non-negative for negative prices.
func Reconcile(forecast, actual models.Series) *models.ContinuityReport {
	if len(forecast) == 0 || len(actual) == 0 {
		return nil
	}
	f := forecast[0].Prices()
	a := actual[0].Prices()

	report := &models.ContinuityReport{
		LastForecast: f,
		FirstActual:  a,
	}
	for _, field := range models.PriceFields {
		fv := decimal.NewFromFloat(f.Get(field))
		av := decimal.NewFromFloat(a.Get(field))
		abs := fv.Sub(av).Abs()
		report.AbsoluteGap.Set(field, abs.InexactFloat64())

		if av.IsZero() {
			report.PercentGap.Set(field, nil)
			report.UndefinedFields = append(report.UndefinedFields, field)
			continue
		}
		pct := abs.Mul(hundred).DivRound(av.Abs(), 18).InexactFloat64()
		report.PercentGap.Set(field, &pct)
	}
	return report
}
