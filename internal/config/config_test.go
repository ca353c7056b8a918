package config

import (
	"testing"
	"time"
)

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		shouldSet    bool
		want         string
	}{
		{
			name:         "returns environment variable when set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			shouldSet:    true,
			want:         "custom",
		},
		{
			name:         "returns default when environment variable not set",
			key:          "TEST_VAR_MISSING",
			defaultValue: "default",
			envValue:     "",
			shouldSet:    false,
			want:         "default",
		},
		{
			name:         "returns default when environment variable is empty string",
			key:          "TEST_VAR_EMPTY",
			defaultValue: "default",
			envValue:     "",
			shouldSet:    true,
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				t.Setenv(tt.key, tt.envValue)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue int
		envValue     string
		shouldSet    bool
		want         int
	}{
		{
			name:         "returns environment variable as int when valid",
			key:          "TEST_INT_VAR",
			defaultValue: 100,
			envValue:     "200",
			shouldSet:    true,
			want:         200,
		},
		{
			name:         "returns default when not set",
			key:          "TEST_INT_VAR_MISSING",
			defaultValue: 100,
			envValue:     "",
			shouldSet:    false,
			want:         100,
		},
		{
			name:         "returns default when not an integer",
			key:          "TEST_INT_VAR_BAD",
			defaultValue: 100,
			envValue:     "not-a-number",
			shouldSet:    true,
			want:         100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				t.Setenv(tt.key, tt.envValue)
			}

			got := getEnvAsInt(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvAsInt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Run("parses valid duration", func(t *testing.T) {
		t.Setenv("TEST_DUR_VAR", "750ms")

		got := getEnvAsDuration("TEST_DUR_VAR", time.Second)
		if got != 750*time.Millisecond {
			t.Errorf("getEnvAsDuration() = %v, want 750ms", got)
		}
	})

	t.Run("returns default on invalid duration", func(t *testing.T) {
		t.Setenv("TEST_DUR_VAR_BAD", "soon")

		got := getEnvAsDuration("TEST_DUR_VAR_BAD", 2*time.Second)
		if got != 2*time.Second {
			t.Errorf("getEnvAsDuration() = %v, want 2s", got)
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("requires API_KEY", func(t *testing.T) {
		t.Setenv("API_KEY", "")

		_, err := Load()
		if err == nil {
			t.Fatal("expected error when API_KEY unset")
		}
	})

	t.Run("applies defaults", func(t *testing.T) {
		t.Setenv("API_KEY", "test-key")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}

		if cfg.SeenWindowHours != 6 {
			t.Errorf("SeenWindowHours = %d, want 6", cfg.SeenWindowHours)
		}

		if cfg.MaxPerUploader != 2 {
			t.Errorf("MaxPerUploader = %d, want 2", cfg.MaxPerUploader)
		}

		if cfg.GeneratorTimeout != 2*time.Second {
			t.Errorf("GeneratorTimeout = %v, want 2s", cfg.GeneratorTimeout)
		}
	})

	t.Run("rejects non-positive SEEN_WINDOW_HOURS", func(t *testing.T) {
		t.Setenv("API_KEY", "test-key")
		t.Setenv("SEEN_WINDOW_HOURS", "0")

		_, err := Load()
		if err == nil {
			t.Fatal("expected error for SEEN_WINDOW_HOURS=0")
		}
	})
}
