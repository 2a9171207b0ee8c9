package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cfg "github.com/bnrobert/gobro/internal/config"
)

func resetViper() {
	// Reset global viper state between tests
	viper.Reset()
}

func TestLoadConfig_DefaultsApply(t *testing.T) {
	tmp := t.TempDir()
	os.Setenv("XDG_CONFIG_HOME", tmp)
	defer os.Unsetenv("XDG_CONFIG_HOME")

	resetViper()
	defer resetViper()

	defaults := map[string]any{
		"database.type": "sqlite",
		"database.dsn":  "./gobro.db",
		"language":      "en",
	}
	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, defaults, nil)
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got.Database.Type != "sqlite" {
		t.Fatalf("expected sqlite, got %q", got.Database.Type)
	}
	if got.Language != "en" {
		t.Fatalf("expected en, got %q", got.Language)
	}
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	tmp := t.TempDir()
	os.Setenv("XDG_CONFIG_HOME", tmp)
	defer os.Unsetenv("XDG_CONFIG_HOME")

	cfgDir := filepath.Join(tmp, "gobro")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := "database:\n  type: postgres\n  dsn: host=db\nlanguage: fr\n"
	if err := os.WriteFile(filepath.Join(cfgDir, "gobro.yaml"), []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	resetViper()
	defer resetViper()

	defaults := map[string]any{
		"database.type": "sqlite",
		"database.dsn":  "./gobro.db",
		"language":      "en",
	}
	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, defaults, nil)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if got.Database.Type != "postgres" {
		t.Fatalf("expected postgres, got %q", got.Database.Type)
	}
	if got.Language != "fr" {
		t.Fatalf("expected fr, got %q", got.Language)
	}
}

func TestWriteConfigFile_CreatesFile(t *testing.T) {
	tmp := t.TempDir()
	os.Setenv("XDG_CONFIG_HOME", tmp)
	defer os.Unsetenv("XDG_CONFIG_HOME")

	resetViper()
	defer resetViper()

	c := cfg.Config{}
	c.Database.Type = "sqlite"
	c.Database.Dsn = "./gobro.db"
	c.Language = "en"

	if err := cfg.WriteConfigFile(&c, false); err != nil {
		t.Fatalf("WriteConfigFile: %v", err)
	}

	path := filepath.Join(tmp, "gobro", "gobro.yaml")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected config file at %s: %v", path, err)
	}
	if info.Size() == 0 {
		t.Fatalf("config file is empty")
	}
}
