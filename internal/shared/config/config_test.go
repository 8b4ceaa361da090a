package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoad_DefaultsForTradeService(t *testing.T) {
	t.Setenv("SERVICE_NAME", "")

	cfg := Load("trade-service")

	if cfg.HTTPPort != "8083" || cfg.MetricsPort != "9099" {
		t.Fatalf("unexpected ports: http=%s metrics=%s", cfg.HTTPPort, cfg.MetricsPort)
	}
	if cfg.TxTimeout != 5*time.Second {
		t.Errorf("expected tx timeout 5s, got %v", cfg.TxTimeout)
	}
	if cfg.DetachGrace != 2*time.Second {
		t.Errorf("expected detach grace 2s, got %v", cfg.DetachGrace)
	}
	if cfg.TopicEventFeed != "event_feed" {
		t.Errorf("unexpected feed topic %q", cfg.TopicEventFeed)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVICE_NAME", "event-processor-worker")
	t.Setenv("TRADE_MAX_RETRIES", "7")
	t.Setenv("TRADE_TX_TIMEOUT", "750ms")
	t.Setenv("DB_DRIVER", "sqlite3")

	// SERVICE_NAME do ambiente vence o nome do binário
	cfg := Load("trade-service")

	if cfg.MaxRetries != 7 {
		t.Errorf("expected 7 retries, got %d", cfg.MaxRetries)
	}
	if cfg.TxTimeout != 750*time.Millisecond {
		t.Errorf("expected 750ms, got %v", cfg.TxTimeout)
	}
	if cfg.DBDriver != "sqlite3" {
		t.Errorf("expected sqlite3 driver, got %s", cfg.DBDriver)
	}
	if cfg.ServiceName != "event-processor-worker" || cfg.HTTPPort != "" {
		t.Errorf("processor must not expose public http, got %s %q", cfg.ServiceName, cfg.HTTPPort)
	}
}

func TestLoad_PortsFollowBinaryName(t *testing.T) {
	cases := []struct {
		service string
		http    string
		metrics string
	}{
		{"trade-service", "8083", "9099"},
		{"event-feed-simulator", "8081", "9094"},
		{"event-processor-worker", "", "9097"},
		{"", "8080", "9095"},
	}
	for _, tc := range cases {
		t.Run(tc.service, func(t *testing.T) {
			t.Setenv("SERVICE_NAME", "")

			cfg := Load(tc.service)

			if cfg.ServiceName != tc.service {
				t.Errorf("expected service %q, got %q", tc.service, cfg.ServiceName)
			}
			if cfg.HTTPPort != tc.http || cfg.MetricsPort != tc.metrics {
				t.Fatalf("unexpected ports: http=%q metrics=%q", cfg.HTTPPort, cfg.MetricsPort)
			}
		})
	}
}

func TestFromViper_ExplicitValues(t *testing.T) {
	v := viper.New()
	v.Set("service_name", "event-feed-simulator")
	v.Set("http_port_simulator", "9000")
	v.Set("feed_max_events", 3)

	cfg := FromViper(v)

	if cfg.HTTPPort != "9000" {
		t.Errorf("expected port 9000, got %s", cfg.HTTPPort)
	}
	if cfg.FeedMaxEvents != 3 {
		t.Errorf("expected 3 max events, got %d", cfg.FeedMaxEvents)
	}
	if cfg.FeedTick != 10*time.Second {
		t.Errorf("expected default tick, got %v", cfg.FeedTick)
	}
}
