package config

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GRPCAddr != ":8080" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":8080")
	}
	if cfg.HTTPAddr != ":8081" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8081")
	}
	if cfg.CallerJWTIssuer != "device-checkin" {
		t.Errorf("CallerJWTIssuer = %q, want %q", cfg.CallerJWTIssuer, "device-checkin")
	}
	if cfg.CallerJWTAudience != "gcm-front" {
		t.Errorf("CallerJWTAudience = %q, want %q", cfg.CallerJWTAudience, "gcm-front")
	}
	if cfg.BroadcastKafkaTopic != "gcm-registrations" {
		t.Errorf("BroadcastKafkaTopic = %q, want default", cfg.BroadcastKafkaTopic)
	}
	if cfg.FrontWorkers != 4 || cfg.FrontQueueSize != 64 {
		t.Errorf("FrontWorkers=%d FrontQueueSize=%d, want 4 and 64", cfg.FrontWorkers, cfg.FrontQueueSize)
	}
	if cfg.Timeout() != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout())
	}
	if cfg.CallerTTL() != 720*time.Hour {
		t.Errorf("CallerTTL = %v, want 720h", cfg.CallerTTL())
	}
	if cfg.DatabaseURL != "" || cfg.CheckinURL != "" {
		t.Error("DATABASE_URL and CHECKIN_URL should default to empty")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("GRPC_ADDR", ":9091")
	os.Setenv("DATABASE_URL", "sqlite3:///var/lib/checkin/identity.db")
	os.Setenv("CHECKIN_URL", "http://localhost:9000/checkin")
	os.Setenv("CHECKIN_TIMEOUT", "5s")
	os.Setenv("FRONT_WORKERS", "8")
	os.Setenv("DEVICE_PROFILE", "/etc/checkin/device.toml")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GRPCAddr != ":9091" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":9091")
	}
	if cfg.DatabaseURL != "sqlite3:///var/lib/checkin/identity.db" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.CheckinURL != "http://localhost:9000/checkin" {
		t.Errorf("CheckinURL = %q", cfg.CheckinURL)
	}
	if cfg.Timeout() != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Timeout())
	}
	if cfg.FrontWorkers != 8 {
		t.Errorf("FrontWorkers = %d, want 8", cfg.FrontWorkers)
	}
	if cfg.DeviceProfile != "/etc/checkin/device.toml" {
		t.Errorf("DeviceProfile = %q", cfg.DeviceProfile)
	}
}

func TestLoad_Validation(t *testing.T) {
	testCases := []struct {
		name string
		key  string
		val  string
	}{
		{"zero workers", "FRONT_WORKERS", "0"},
		{"zero queue", "FRONT_QUEUE_SIZE", "0"},
		{"bad timeout", "CHECKIN_TIMEOUT", "soon"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv(tc.key, tc.val)
			if _, err := Load(); err == nil {
				t.Errorf("Load with %s=%q: want error", tc.key, tc.val)
			}
		})
	}
}

func TestLists(t *testing.T) {
	cfg := &Config{
		KafkaBrokers:   " localhost:9092, kafka:9092 ,,",
		DeniedSenders:  "1,2",
		DeniedPackages: "",
	}
	if got := cfg.KafkaBrokersList(); !reflect.DeepEqual(got, []string{"localhost:9092", "kafka:9092"}) {
		t.Errorf("KafkaBrokersList = %v", got)
	}
	if got := cfg.DeniedSendersList(); !reflect.DeepEqual(got, []string{"1", "2"}) {
		t.Errorf("DeniedSendersList = %v", got)
	}
	if got := cfg.DeniedPackagesList(); got != nil {
		t.Errorf("DeniedPackagesList = %v, want nil", got)
	}
	var nilCfg *Config
	if nilCfg.KafkaBrokersList() != nil {
		t.Error("nil config should have no brokers")
	}
}

func TestGinMode(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"", "release"},
		{"production", "release"},
		{"development", "debug"},
		{" Dev ", "debug"},
		{"test", "test"},
	}
	for _, tt := range tests {
		cfg := &Config{Env: tt.env}
		if got := cfg.GinMode(); got != tt.want {
			t.Errorf("GinMode(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}

func TestLoad_AppEnv(t *testing.T) {
	os.Clearenv()
	os.Setenv("APP_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want %q", cfg.Env, "development")
	}
	if cfg.GinMode() != "debug" {
		t.Errorf("GinMode = %q, want debug", cfg.GinMode())
	}
}
