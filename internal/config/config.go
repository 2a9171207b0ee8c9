// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

// package config loads and persists the Gobro configuration file. Values are
// resolved by viper in the usual precedence order: flags, environment
// variables (GOBRO_ prefix), config file, defaults.
package config // import "github.com/bnrobert/gobro/internal/config"

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the full application configuration as persisted in gobro.yaml.
type Config struct {
	Database struct {
		Type string `mapstructure:"type" yaml:"type"`
		Dsn  string `mapstructure:"dsn" yaml:"dsn"`
	} `mapstructure:"database" yaml:"database"`

	Language string `mapstructure:"language" yaml:"language"`

	Anonymize struct {
		// Workers is the batch pool size; 0 means one worker per CPU.
		Workers int `mapstructure:"workers" yaml:"workers"`
		// Station overrides the uppercase hostname written into StationName.
		Station string `mapstructure:"station" yaml:"station"`
		// OutputDir is the subdirectory created under a batch root.
		OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
	} `mapstructure:"anonymize" yaml:"anonymize"`

	Push struct {
		Host      string `mapstructure:"host" yaml:"host"`
		Port      int    `mapstructure:"port" yaml:"port"`
		User      string `mapstructure:"user" yaml:"user"`
		RemoteDir string `mapstructure:"remote_dir" yaml:"remote_dir"`
		KeyFile   string `mapstructure:"key_file" yaml:"key_file"`
	} `mapstructure:"push" yaml:"push"`

	QR struct {
		Size  int    `mapstructure:"size" yaml:"size"`
		Color string `mapstructure:"color" yaml:"color"`
	} `mapstructure:"qr" yaml:"qr"`
}

// getConfigPath returns the full path for the configuration file.
func getConfigPath(system bool) (string, error) {
	var configDir string
	var err error

	if system {
		// System-wide configuration paths
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "Gobro")
		default: // Linux, macOS, etc.
			configDir = "/etc/gobro"
		}
	} else {
		// User-specific configuration paths
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "gobro")
	}

	return filepath.Join(configDir, "gobro.yaml"), nil
}

// LoadConfig resolves the configuration from defaults, config files, the
// environment and the command's flags, then unmarshals it into T.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, additionalConfigFilePath *string) (T, error) {
	var c T
	v := viper.New()

	// 1. Set defaults
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// 2. Set up file search paths (gobro.yaml)
	v.SetConfigName("gobro")
	v.SetConfigType("yaml")

	// 3. Add explicit config file path if provided via --config flag.
	// This has the highest precedence for file-based configuration.
	if additionalConfigFilePath != nil {
		v.SetConfigFile(*additionalConfigFilePath)
	}

	// 4. Add standard config locations
	if userConfigPath, err := getConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := getConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".") // Look for gobro.yaml in current dir

	// 5. Read in the primary config file. A missing file is not fatal: the
	// defaults still apply and the not-found error is handed back so callers
	// can treat it as a first run.
	var notFound error
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			notFound = err
		} else {
			return c, err
		}
	}

	// 6. For backward compatibility, check for and merge `.gobro.yaml` in the current directory.
	mergeLegacyConfig(v)

	// 7. Read from environment variables
	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	v.SetEnvPrefix("gobro")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return c, err
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}

	return c, notFound
}

// mergeLegacyConfig checks for a `.gobro.yaml` file in the current directory
// and merges it into the viper configuration if found. This is for backward
// compatibility with early releases that wrote the dotfile form.
func mergeLegacyConfig(v *viper.Viper) {
	legacyConfigFile := ".gobro.yaml"
	if _, err := os.Stat(legacyConfigFile); err == nil {
		v.SetConfigFile(legacyConfigFile)
		// MergeInConfig will error on a malformed file only; ignore so a bad
		// legacy file cannot break startup.
		_ = v.MergeInConfig()
		v.SetConfigFile("")
	}
}

// WriteConfigFile persists the configuration to the user (or system) config
// path, creating the directory when needed.
func WriteConfigFile[T any](c *T, system bool) error {
	path, err := getConfigPath(system)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}

	// 0600: the push section may reference private key material.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return err
	}

	return nil
}
