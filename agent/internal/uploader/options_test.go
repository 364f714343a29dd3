package uploader

import (
	"testing"
	"time"

	"github.com/wetterblick/uploader/agent/internal/config"
)

func TestOptionsFromConfig(t *testing.T) {
	t.Setenv("TEST_WB_PASSWORD", "s3cret")

	cfg := config.Defaults().Upload
	cfg.Username = "station-1"
	cfg.PasswordEnv = "TEST_WB_PASSWORD"
	cfg.Stale = 10 * time.Minute
	cfg.Timezone = "UTC"

	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("OptionsFromConfig() error = %v", err)
	}
	if opts.Password != "s3cret" {
		t.Errorf("Password = %q, want resolved env value", opts.Password)
	}
	if opts.Location != time.UTC {
		t.Errorf("Location = %v, want UTC", opts.Location)
	}
	if opts.MaxBacklog != config.UnboundedBacklog || opts.MaxTries != config.DefaultMaxTries {
		t.Errorf("defaults not carried: %+v", opts)
	}
	if opts.Stale != 10*time.Minute {
		t.Errorf("Stale = %v", opts.Stale)
	}
}

func TestOptionsFromConfig_Invalid(t *testing.T) {
	cfg := config.Defaults().Upload
	cfg.Username = "station-1"
	// no password at all
	if _, err := OptionsFromConfig(cfg); err == nil {
		t.Error("expected error for missing password")
	}

	cfg.Password = "pw"
	cfg.Timezone = "Not/AZone"
	if _, err := OptionsFromConfig(cfg); err == nil {
		t.Error("expected error for unknown timezone")
	}
}
