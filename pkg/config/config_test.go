package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "environment: test\n")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Scan.Window != 20 {
		t.Errorf("expected default window 20, got %d", c.Scan.Window)
	}
	if c.Scan.StdMultiplier != 2.0 {
		t.Errorf("expected default std multiplier 2.0, got %v", c.Scan.StdMultiplier)
	}
	if c.Scan.LowThreshold != 0.05 || c.Scan.HighThreshold != 0.95 {
		t.Errorf("unexpected default thresholds: %v / %v", c.Scan.LowThreshold, c.Scan.HighThreshold)
	}
	if c.Scan.Lookback != "6mo" || c.Scan.Interval != "1d" {
		t.Errorf("unexpected default lookback/interval: %s / %s", c.Scan.Lookback, c.Scan.Interval)
	}
	if c.Scan.Workers != 4 {
		t.Errorf("expected default workers 4, got %d", c.Scan.Workers)
	}
	if c.Provider.Timeout != 10*time.Second {
		t.Errorf("expected default provider timeout 10s, got %v", c.Provider.Timeout)
	}
	if len(c.Scan.Instruments) != 0 {
		t.Errorf("expected empty instrument list, got %v", c.Scan.Instruments)
	}
}

func TestLoadParsesScanSection(t *testing.T) {
	path := writeConfig(t, `
environment: test
scan:
  instruments: ["RELIANCE.NS", "TCS.NS"]
  window: 10
  std_multiplier: 1.5
  lookback: 1y
  interval: 1wk
  workers: 8
  timeout: 30s
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Scan.Instruments) != 2 || c.Scan.Instruments[0] != "RELIANCE.NS" {
		t.Errorf("unexpected instruments: %v", c.Scan.Instruments)
	}
	if c.Scan.Window != 10 || c.Scan.StdMultiplier != 1.5 {
		t.Errorf("unexpected band params: %d / %v", c.Scan.Window, c.Scan.StdMultiplier)
	}
	if c.Scan.Timeout != 30*time.Second {
		t.Errorf("unexpected scan timeout: %v", c.Scan.Timeout)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing environment", "scan:\n  window: 20\n"},
		{"window too small", "environment: test\nscan:\n  window: 1\n"},
		{"negative multiplier", "environment: test\nscan:\n  std_multiplier: -2\n"},
		{"low threshold out of range", "environment: test\nscan:\n  low_threshold: 1.5\n"},
		{"inverted thresholds", "environment: test\nscan:\n  low_threshold: 0.9\n  high_threshold: 0.2\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.body)
			if _, err := Load(path); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, "environment: test\nscan:\n  instruments: [\"AAA\"]\n")
	t.Setenv("INSTRUMENTS", "BBB.NS,CCC.NS")
	t.Setenv("REDIS_ADDR", "localhost:6390")
	c, err := LoadWithEnv(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Scan.Instruments) != 2 || c.Scan.Instruments[1] != "CCC.NS" {
		t.Errorf("env override not applied: %v", c.Scan.Instruments)
	}
	if !c.Redis.Enabled || c.Redis.Addr != "localhost:6390" {
		t.Errorf("redis env override not applied: %+v", c.Redis)
	}
}
