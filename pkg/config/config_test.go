package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\ndata:\n  root: /tmp/kronos\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Server.Port != 7070 || c.Forecaster.Device != "cpu" || c.Cache.SeriesTTL != 10*time.Minute {
		t.Fatalf("defaults not applied: %+v", c.Server)
	}
	if c.ResultsDir() != filepath.Join("/tmp/kronos", "prediction_results") {
		t.Fatalf("results dir=%s", c.ResultsDir())
	}
	if c.RunIndexPath() != filepath.Join("/tmp/kronos", "runs.db") {
		t.Fatalf("sqlite path=%s", c.RunIndexPath())
	}
}

func TestParseExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	c, err := Parse([]byte("environment: test\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Data.Root != filepath.Join(home, "KronosData") {
		t.Fatalf("root=%s", c.Data.Root)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"bad cadence":       "data:\n  root: /x\n  cadence_strategy: mode\n",
		"kafka no brokers":  "data:\n  root: /x\npersistence:\n  kafka: true\n",
		"clickhouse host":   "data:\n  root: /x\npersistence:\n  clickhouse: true\n",
		"scheduler tickers": "data:\n  root: /x\nscheduler:\n  refresh:\n    enabled: true\n    spec: '@daily'\n",
	}
	for name, body := range cases {
		if _, err := Parse([]byte(body)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadWithEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("environment: test\ndata:\n  root: /tmp/a\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("KRONOS_DATA_DIR", "/tmp/b")
	t.Setenv("FORECASTER_URL", "http://sidecar:9000")
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	c, err := LoadWithEnv(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Data.Root != "/tmp/b" || c.Forecaster.URL != "http://sidecar:9000" || c.Server.Port != 9999 {
		t.Fatalf("env not applied: %+v", c)
	}
	if len(c.Kafka.Brokers) != 2 {
		t.Fatalf("brokers=%v", c.Kafka.Brokers)
	}
}

func TestLoadWithEnvIgnoresBadPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("data:\n  root: /tmp/a\nserver:\n  port: 8081\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HTTP_PORT", "not-a-port")
	c, err := LoadWithEnv(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != 8081 {
		t.Fatalf("port=%d", c.Server.Port)
	}
}
