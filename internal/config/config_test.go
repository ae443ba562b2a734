package config

import (
	"os"
	"testing"
	"time"
)

func TestGuardConfig_Defaults(t *testing.T) {
	// Set required env vars
	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!")
	os.Setenv("DB_PASSWORD", "test")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	tests := []struct {
		name     string
		actual   time.Duration
		expected time.Duration
	}{
		{"MaxSessionAge", cfg.Guard.MaxSessionAge, 8 * time.Hour},
		{"InactivityTimeout", cfg.Guard.InactivityTimeout, 30 * time.Minute},
		{"SweepInterval", cfg.Guard.SweepInterval, time.Minute},
		{"EscalationWindow", cfg.Guard.EscalationWindow, time.Hour},
		{"LockoutDuration", cfg.Guard.LockoutDuration, 30 * time.Minute},
	}

	for _, tt := range tests {
		if tt.actual != tt.expected {
			t.Errorf("%s: got %v, want %v", tt.name, tt.actual, tt.expected)
		}
	}

	if cfg.Guard.EscalationThreshold != 50 {
		t.Errorf("EscalationThreshold: got %d, want 50", cfg.Guard.EscalationThreshold)
	}
	if cfg.Guard.MaxFailedLogins != 5 {
		t.Errorf("MaxFailedLogins: got %d, want 5", cfg.Guard.MaxFailedLogins)
	}
}

func TestGuardConfig_CustomValues(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!")
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("MAX_SESSION_AGE", "4h")
	os.Setenv("INACTIVITY_TIMEOUT", "10m")
	os.Setenv("ESCALATION_THRESHOLD", "25")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Guard.MaxSessionAge != 4*time.Hour {
		t.Errorf("MaxSessionAge: got %v, want 4h", cfg.Guard.MaxSessionAge)
	}
	if cfg.Guard.InactivityTimeout != 10*time.Minute {
		t.Errorf("InactivityTimeout: got %v, want 10m", cfg.Guard.InactivityTimeout)
	}
	if cfg.Guard.EscalationThreshold != 25 {
		t.Errorf("EscalationThreshold: got %d, want 25", cfg.Guard.EscalationThreshold)
	}
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	os.Setenv("DB_PASSWORD", "test")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() succeeded without JWT_SECRET")
	}
}

func TestLoad_RequiresDBPassword(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() succeeded without DB_PASSWORD")
	}
}

func TestLoad_RejectsShortJWTSecretInProduction(t *testing.T) {
	os.Setenv("JWT_SECRET", "only-20-characters!!")
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("ENV", "production")
	os.Setenv("TOTP_ENCRYPTION_KEY", "000102030405060708090a0b0c0d0e0f000102030405060708090a0b0c0d0e0f")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() accepted a short JWT_SECRET in production")
	}
}

func TestTOTPEncryptionKey(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		env     string
		wantErr bool
	}{
		{"missing key in development falls back", "", "development", false},
		{"missing key in production", "", "production", true},
		{"valid 32-byte hex key", "000102030405060708090a0b0c0d0e0f000102030405060708090a0b0c0d0e0f", "production", false},
		{"not hex", "zz0102", "production", true},
		{"wrong length", "0001020304", "production", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := parseTOTPEncryptionKey(tt.raw, tt.env)
			if tt.wantErr {
				if err == nil {
					t.Fatal("parseTOTPEncryptionKey() = nil error, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseTOTPEncryptionKey() = %v, want nil", err)
			}
			if len(key) != 32 {
				t.Errorf("key length: got %d, want 32", len(key))
			}
		})
	}
}
