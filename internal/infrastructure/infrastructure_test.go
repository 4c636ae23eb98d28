package infrastructure_test

import (
	"slices"
	"testing"

	"github.com/JaimeStill/lectern/internal/config"
	"github.com/JaimeStill/lectern/internal/infrastructure"
	"github.com/JaimeStill/lectern/pkg/auth"
	"github.com/JaimeStill/lectern/pkg/previews"
)

func validConfig() *config.Config {
	return &config.Config{
		Previews: previews.Config{Backend: previews.BackendMemory},
		Auth:     auth.Config{LocalSubject: "local"},
		I18n:     config.I18nConfig{DefaultLanguage: "en"},
		Version:  "0.1.0",
	}
}

func TestNew(t *testing.T) {
	infra, err := infrastructure.New(validConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if infra.Lifecycle == nil {
		t.Error("Lifecycle is nil")
	}
	if infra.Logger == nil {
		t.Error("Logger is nil")
	}
	if infra.Previews == nil {
		t.Error("Previews is nil")
	}
	if infra.Auth == nil {
		t.Error("Auth is nil")
	}
	if infra.I18n == nil {
		t.Fatal("I18n is nil")
	}

	langs := infra.I18n.Languages()
	for _, want := range []string{"en", "es", "fr"} {
		if !slices.Contains(langs, want) {
			t.Errorf("languages %v missing %s", langs, want)
		}
	}
}

func TestNewInvalidPreviewsBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Previews.Backend = "disk"

	if _, err := infrastructure.New(cfg); err == nil {
		t.Fatal("expected error for unknown previews backend")
	}
}

func TestNewInvalidStorageConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Previews.Backend = previews.BackendBlob
	cfg.Previews.Storage.ContainerName = "previews"
	cfg.Previews.Storage.ConnectionString = "not-a-connection-string"

	if _, err := infrastructure.New(cfg); err == nil {
		t.Fatal("expected error for invalid storage connection string")
	}
}

func TestStart(t *testing.T) {
	infra, err := infrastructure.New(validConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := infra.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if _, ok := infra.Auth.Identify(nil); !ok {
		t.Error("disabled auth gate should identify every request")
	}
}
