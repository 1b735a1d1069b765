package config

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.H264Port != 8888 || cfg.MJPEGPort != 8887 || cfg.ControlPort != 8889 {
		t.Fatalf("unexpected default ports: %+v", cfg)
	}
	if cfg.H264Device != "/dev/video11" || cfg.JPEGDevice != "/dev/video31" {
		t.Fatalf("unexpected default devices: %+v", cfg)
	}
	if cfg.JPEGQuality(zerolog.Nop()) != DefaultJPEGQuality {
		t.Fatalf("expected default jpeg quality, got %d", cfg.JPEGQuality(zerolog.Nop()))
	}
}

func TestJPEGQualityFallsBackOnInvalidValue(t *testing.T) {
	cfg := Config{JPEGQualityRaw: "abc"}
	if got := cfg.JPEGQuality(zerolog.Nop()); got != DefaultJPEGQuality {
		t.Fatalf("expected fallback quality, got %d", got)
	}

	cfg = Config{JPEGQualityRaw: "500"}
	if got := cfg.JPEGQuality(zerolog.Nop()); got != DefaultJPEGQuality {
		t.Fatalf("expected fallback quality for out-of-range value, got %d", got)
	}

	cfg = Config{JPEGQualityRaw: "42"}
	if got := cfg.JPEGQuality(zerolog.Nop()); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestUseCPUJPEGEncoder(t *testing.T) {
	if (Config{JPEGEncoder: "CPU"}).UseCPUJPEGEncoder() != true {
		t.Fatal("expected CPU to select the software encoder")
	}
	if (Config{JPEGEncoder: ""}).UseCPUJPEGEncoder() != false {
		t.Fatal("expected unset to select the hardware encoder")
	}
	if (Config{JPEGEncoder: "cpu"}).UseCPUJPEGEncoder() != false {
		t.Fatal("expected case-sensitive match per the documented contract")
	}
}
