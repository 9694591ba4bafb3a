package clickhouse

import (
	"net/url"
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	cfg := ClientConfig{
		Host:         "ch.local",
		Port:         9000,
		Database:     "kronos",
		User:         "svc",
		Password:     "p@ss",
		DialTimeout:  5 * time.Second,
		MaxExecTime:  30 * time.Second,
		AsyncInsert:  true,
		WaitForAsync: true,
	}
	u, err := url.Parse(buildDSN(cfg))
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	if u.Scheme != "clickhouse" || u.Host != "ch.local:9000" || u.Path != "/kronos" {
		t.Fatalf("dsn=%s", u)
	}
	if pw, _ := u.User.Password(); pw != "p@ss" || u.User.Username() != "svc" {
		t.Fatalf("credentials not preserved: %s", u)
	}
	q := u.Query()
	if q.Get("dial_timeout") != "5s" || q.Get("max_execution_time") != "30" || q.Get("async_insert") != "1" || q.Get("wait_for_async_insert") != "1" {
		t.Fatalf("query=%v", q)
	}
}

func TestBuildDSNHTTP(t *testing.T) {
	dsn := buildDSN(ClientConfig{Host: "h", Port: 8123, Database: "d", UseHTTP: true})
	if u, _ := url.Parse(dsn); u.Scheme != "http" || u.User != nil {
		t.Fatalf("dsn=%s", dsn)
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient(WithPort(9000)); err == nil {
		t.Fatalf("expected error without host")
	}
}
