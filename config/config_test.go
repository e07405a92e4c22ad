package config

import (
	"os"
	"testing"
	"time"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("setenv %s failed: %v", key, err)
	}
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	_ = os.Unsetenv(key)
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		}
	})
}

func TestLoadRequiresMySQLDSN(t *testing.T) {
	unsetEnv(t, "MYSQL_DSN")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing MYSQL_DSN")
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	setEnv(t, "MYSQL_DSN", "root:root@tcp(localhost:3306)/vouchers?parseTime=true")
	setEnv(t, "APP_SERVICE_NAME", "vouchers-test")
	setEnv(t, "HTTP_PORT", "8181")
	setEnv(t, "MYSQL_MAX_OPEN_CONNS", "20")
	setEnv(t, "MYSQL_MAX_IDLE_CONNS", "8")
	setEnv(t, "MYSQL_CONN_MAX_LIFETIME_MINUTES", "40")
	setEnv(t, "GATEWAYS_PUBLIC_BASE_URL", "https://billing.example")
	setEnv(t, "DARAJA_HTTP_TIMEOUT_SECONDS", "12")
	setEnv(t, "SMS_PROVIDER", "africastalking")
	setEnv(t, "JOBS_EXPIRE_VOUCHERS_INTERVAL_MINUTES", "7")
	setEnv(t, "JOBS_BATCH_SIZE", "99")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.App.ServiceName != "vouchers-test" {
		t.Fatalf("unexpected app service name: %s", cfg.App.ServiceName)
	}
	if cfg.HTTP.Port != "8181" {
		t.Fatalf("unexpected http port: %s", cfg.HTTP.Port)
	}
	if cfg.MySQL.MaxOpenConns != 20 || cfg.MySQL.MaxIdleConns != 8 {
		t.Fatalf("unexpected mysql pool config: %+v", cfg.MySQL)
	}
	if cfg.MySQL.ConnMaxLifetime != 40*time.Minute {
		t.Fatalf("unexpected mysql lifetime: %v", cfg.MySQL.ConnMaxLifetime)
	}
	if cfg.Gateways.PublicBaseURL != "https://billing.example" {
		t.Fatalf("unexpected public base URL: %s", cfg.Gateways.PublicBaseURL)
	}
	if cfg.Gateways.DarajaBaseURL != "https://api.safaricom.co.ke" {
		t.Fatalf("unexpected daraja base URL: %s", cfg.Gateways.DarajaBaseURL)
	}
	if cfg.Gateways.DarajaHTTPTimeout != 12*time.Second {
		t.Fatalf("unexpected daraja timeout: %v", cfg.Gateways.DarajaHTTPTimeout)
	}
	if cfg.SMS.Provider != "africastalking" {
		t.Fatalf("unexpected sms provider: %s", cfg.SMS.Provider)
	}
	if cfg.Jobs.ExpireVouchersInterval != 7*time.Minute {
		t.Fatalf("unexpected expire interval: %v", cfg.Jobs.ExpireVouchersInterval)
	}
	if cfg.Jobs.BatchSize != 99 {
		t.Fatalf("unexpected batch size: %d", cfg.Jobs.BatchSize)
	}
}
