package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/modeltree/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestModelsConfig_Validation(t *testing.T) {
	cfg := ModelsConfig{Dir: ""}
	if err := cfg.Validate(); err == nil {
		t.Error("empty dir should fail")
	}

	cfg = ModelsConfig{Dir: "./models", AutoReload: true}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "requires watch") {
		t.Errorf("auto_reload without watch: err = %v", err)
	}

	cfg = ModelsConfig{Dir: "./models", Debounce: -time.Second}
	if err := cfg.Validate(); err == nil {
		t.Error("negative debounce should fail")
	}
}

func TestJournalConfig_PathRequiredWhenEnabled(t *testing.T) {
	if err := (&JournalConfig{Enabled: true}).Validate(); err == nil {
		t.Error("enabled journal without path should fail")
	}
	if err := (&JournalConfig{Enabled: false}).Validate(); err != nil {
		t.Errorf("disabled journal should pass: %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("MODELTREE_TEST_TOKEN", "from-env")
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `app:
  log_level: debug
  http:
    port: 9090
models:
  dir: ./testdata/models
  root: Portfolio
  watch: true
  auto_reload: true
  debounce: 500ms
journal:
  enabled: false
auth:
  mode: token
  token: ${MODELTREE_TEST_TOKEN}
events:
  tree_throttle: 1s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.LogLevel != slog.LevelDebug {
		t.Errorf("log level = %v, want debug", cfg.App.LogLevel)
	}
	if cfg.App.HTTP.Address() != ":9090" {
		t.Errorf("address = %q", cfg.App.HTTP.Address())
	}
	if cfg.Models.Root != "Portfolio" || !cfg.Models.AutoReload {
		t.Errorf("models = %+v", cfg.Models)
	}
	if cfg.Models.Debounce != 500*time.Millisecond {
		t.Errorf("debounce = %v", cfg.Models.Debounce)
	}
	if cfg.Events.TreeThrottle != time.Second {
		t.Errorf("tree throttle = %v", cfg.Events.TreeThrottle)
	}
	if cfg.Auth.Token != "from-env" {
		t.Errorf("token = %q, want env expansion", cfg.Auth.Token)
	}
	// Untouched sections keep their defaults.
	if !cfg.Metrics.Enabled {
		t.Error("metrics default lost")
	}
}
