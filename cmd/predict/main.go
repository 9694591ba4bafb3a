// Command predict runs one prediction window against a CSV file and prints
// the aligned result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"KronosAlign/internal/domain/models"
	domrepo "KronosAlign/internal/domain/repository"
	"KronosAlign/internal/repository"
	"KronosAlign/internal/services/alignment"
	"KronosAlign/internal/services/forecast"
	"KronosAlign/internal/services/registry"
	"KronosAlign/internal/usecase"
	"KronosAlign/pkg/config"
	applogger "KronosAlign/pkg/logger"
	"KronosAlign/pkg/metrics"

	"github.com/joho/godotenv"
)

// captureStore keeps the last record so it can be printed.
type captureStore struct {
	rec *models.ExportRecord
}

func (c *captureStore) Name() string { return "stdout" }

func (c *captureStore) Save(_ context.Context, rec *models.ExportRecord) (string, error) {
	c.rec = rec
	return "stdout", nil
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	file := flag.String("file", "", "CSV file with OHLC bars")
	lookback := flag.Int("lookback", 400, "historical window length")
	predLen := flag.Int("pred_len", 120, "forecast horizon")
	start := flag.String("start", "", "anchor timestamp; empty runs the latest window")
	model := flag.String("model", "kronos-small", "model preset key")
	device := flag.String("device", "", "device passed to the forecaster")
	url := flag.String("url", "", "forecaster base URL (overrides config)")
	save := flag.Bool("save", true, "write the record to the results directory")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}
	_ = godotenv.Load()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *url != "" {
		cfg.Forecaster.URL = *url
	}
	if *device == "" {
		*device = cfg.Forecaster.Device
	}
	l := applogger.NewWriter(os.Stderr, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := registry.New(forecast.NewClient(cfg), l)
	if _, err := reg.Load(ctx, *model, *device); err != nil {
		log.Fatalf("load model %s: %v", *model, err)
	}

	strategy, err := alignment.CadenceStrategyByName(cfg.Data.CadenceStrategy)
	if err != nil {
		log.Fatal(err)
	}
	engine := alignment.NewEngine(reg,
		alignment.WithCadenceStrategy(strategy),
		alignment.WithNormalizer(alignment.NewNormalizer(l, alignment.NormalizeOptions{PositionalFallback: cfg.Data.PositionalFallback})),
	)

	capture := &captureStore{}
	stores := []domrepo.RecordStore{capture}
	if *save {
		stores = append(stores, repository.NewJSONRecordStore(cfg.ResultsDir(), l))
	}
	uc := usecase.NewPredictionUseCase(engine, usecase.NewSeriesLoader(engine, nil, l), reg, stores, metrics.Noop{}, l)

	res, err := uc.Predict(ctx, models.PredictRequest{
		FilePath:    *file,
		Lookback:    *lookback,
		PredLen:     *predLen,
		Temperature: 1.0,
		TopP:        0.9,
		SampleCount: 1,
		StartDate:   *start,
	})
	if err != nil {
		log.Fatalf("predict: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(capture.rec); err != nil {
		log.Fatal(err)
	}
	for _, w := range res.Warnings {
		log.Printf("warning: %s", w)
	}
}
