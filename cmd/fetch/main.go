// Command fetch downloads OHLCV bars for one ticker into the data root.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"KronosAlign/internal/domain/models"
	"KronosAlign/internal/services/alignment"
	"KronosAlign/internal/services/marketdata"
	"KronosAlign/internal/usecase"
	"KronosAlign/pkg/config"
	applogger "KronosAlign/pkg/logger"
	"KronosAlign/pkg/metrics"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	ticker := flag.String("ticker", "", "ticker symbol, e.g. AAPL")
	interval := flag.String("interval", "daily", "bar interval: 5m 15m 30m hourly daily weekly monthly")
	period := flag.String("period", "", "lookback period, e.g. 1y or 60d")
	start := flag.String("start", "", "start date (overrides period)")
	end := flag.String("end", "", "end date")
	rth := flag.Bool("rth", true, "keep regular trading hours only for intraday bars")
	flag.Parse()

	if *ticker == "" {
		flag.Usage()
		os.Exit(2)
	}
	_ = godotenv.Load()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	l := applogger.NewWriter(os.Stderr, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader := usecase.NewSeriesLoader(alignment.NewEngine(nil), nil, l)
	uc := usecase.NewFetchUseCase(marketdata.NewYahooSource(cfg, l), loader, nil, nil, cfg.Data.Root, metrics.Noop{}, l)

	res, err := uc.Fetch(ctx, models.FetchDataRequest{
		Ticker:   *ticker,
		Interval: *interval,
		Period:   *period,
		Start:    *start,
		End:      *end,
		RTHOnly:  rth,
	})
	if err != nil {
		log.Fatalf("fetch failed: %v", err)
	}

	size := "?"
	if st, err := os.Stat(res.FilePath); err == nil {
		size = humanize.Bytes(uint64(st.Size()))
	}
	fmt.Printf("%s %s: %s rows (%s to %s) -> %s [%s]\n",
		res.Ticker, res.Interval, humanize.Comma(int64(res.Rows)), res.Start, res.End, res.FilePath, size)
}
