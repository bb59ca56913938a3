package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	cfg := fromEnv()
	if cfg.ServerAddr != ":8080" {
		t.Errorf("ServerAddr = %q", cfg.ServerAddr)
	}
	if cfg.PresignTTL != time.Hour {
		t.Errorf("PresignTTL = %v, want 1h", cfg.PresignTTL)
	}
	if cfg.SessionTick != 250*time.Millisecond {
		t.Errorf("SessionTick = %v", cfg.SessionTick)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "MySQL")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("PRESIGN_TTL", "900")
	t.Setenv("CARD_CACHE_TTL", "2m")
	t.Setenv("REDIS_PORT", "6380")

	cfg := fromEnv()
	if cfg.DBDriver != "mysql" {
		t.Errorf("DBDriver = %q, want mysql", cfg.DBDriver)
	}
	if cfg.RedisDB != 3 || cfg.RedisPort != "6380" {
		t.Errorf("redis = %d %q", cfg.RedisDB, cfg.RedisPort)
	}
	if !cfg.MinioUseSSL {
		t.Error("MinioUseSSL = false")
	}
	if cfg.PresignTTL != 15*time.Minute {
		t.Errorf("PresignTTL = %v, want 15m", cfg.PresignTTL)
	}
	if cfg.CardCacheTTL != 2*time.Minute {
		t.Errorf("CardCacheTTL = %v, want 2m", cfg.CardCacheTTL)
	}
}

func TestRecordCacheTTL(t *testing.T) {
	tests := []struct {
		cache, presign, want time.Duration
	}{
		{10 * time.Minute, time.Hour, 10 * time.Minute},
		{10 * time.Minute, 10 * time.Minute, 5 * time.Minute},
	}
	for _, tc := range tests {
		cfg := &Config{CardCacheTTL: tc.cache, PresignTTL: tc.presign}
		if got := cfg.RecordCacheTTL(); got != tc.want {
			t.Errorf("RecordCacheTTL(%v, %v) = %v, want %v", tc.cache, tc.presign, got, tc.want)
		}
	}
}
