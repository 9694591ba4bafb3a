package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"KronosAlign/internal/domain/models"
	domrepo "KronosAlign/internal/domain/repository"
	"KronosAlign/pkg/config"
	xhttp "KronosAlign/pkg/http"
	applogger "KronosAlign/pkg/logger"
	"KronosAlign/pkg/util"
)

// YahooSource downloads bars from the public Yahoo Finance chart API.
type YahooSource struct {
	baseURL   string
	userAgent string
	client    *xhttp.Client
	l         *applogger.Logger
}

var _ domrepo.MarketSource = (*YahooSource)(nil)

// NewYahooSource builds a source from the market config section.
func NewYahooSource(cfg *config.Config, l *applogger.Logger) *YahooSource {
	ua := cfg.Market.UserAgent
	if ua == "" {
		ua = "Mozilla/5.0"
	}
	return &YahooSource{
		baseURL:   strings.TrimRight(cfg.Market.BaseURL, "/"),
		userAgent: ua,
		client: xhttp.NewClient(
			xhttp.WithTimeout(cfg.Market.Timeout),
			xhttp.WithRateLimit(cfg.Market.RateLimit, 2),
			xhttp.WithRetry(cfg.Market.RetryFor),
		),
		l: l,
	}
}

func (y *YahooSource) Name() string { return "yahoo" }

type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch downloads bars for q. Explicit start/end win over period. Intraday
// bars are filtered to regular trading hours when q.RTHOnly is set.
func (y *YahooSource) Fetch(ctx context.Context, q domrepo.MarketQuery) (models.Series, error) {
	spec, err := LookupInterval(q.Interval)
	if err != nil {
		return nil, err
	}
	ticker := util.NormalizeSymbol(q.Ticker)
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}

	params := map[string][]string{"interval": {spec.Provider}}
	if q.Start != nil || q.End != nil {
		start := time.Unix(0, 0)
		end := time.Now()
		if q.Start != nil {
			start = *q.Start
		}
		if q.End != nil {
			end = *q.End
		}
		params["period1"] = []string{strconv.FormatInt(start.Unix(), 10)}
		params["period2"] = []string{strconv.FormatInt(end.Unix(), 10)}
	} else {
		period := q.Period
		if period == "" {
			period = spec.DefaultPeriod
		}
		params["range"] = []string{period}
	}

	var chart yahooChart
	err = y.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         fmt.Sprintf("%s/v8/finance/chart/%s", y.baseURL, url.PathEscape(ticker)),
		Headers:     map[string]string{"User-Agent": y.userAgent},
		QueryParams: params,
	}, &chart)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch %s: %w", ticker, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%s @ %s: %w", ticker, spec.Label, domrepo.ErrNoMarketData)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make(models.Series, 0, len(result.Timestamp))
	skipped := 0
	for i, ts := range result.Timestamp {
		o, ok1 := at(quote.Open, i)
		h, ok2 := at(quote.High, i)
		l, ok3 := at(quote.Low, i)
		c, ok4 := at(quote.Close, i)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			skipped++
			continue
		}
		v, _ := at(quote.Volume, i)
		bars = append(bars, models.CanonicalRow{
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      o,
			High:      h,
			Low:       l,
			Close:     c,
			Volume:    v,
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })

	if q.RTHOnly && spec.Intraday() {
		if bars, err = FilterRTH(bars); err != nil {
			return nil, err
		}
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s @ %s: %w", ticker, spec.Label, domrepo.ErrNoMarketData)
	}
	if y.l != nil {
		y.l.Info("yahoo fetch complete",
			applogger.String("ticker", ticker),
			applogger.String("interval", spec.Label),
			applogger.Int("bars", len(bars)),
			applogger.Int("null_bars", skipped),
		)
	}
	return bars, nil
}

func at(vals []*float64, i int) (float64, bool) {
	if i >= len(vals) || vals[i] == nil {
		return 0, false
	}
	return *vals[i], true
}
