package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	"rufas/internal/config"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - RUFAS_CONFIG_PATH: config file location (default: $XDG_CONFIG_HOME/rufas.toml)
//   - RUFAS_HOME: base directory for rufas data (default: $XDG_DATA_HOME/rufas)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
		"keys_dir":    filepath.Join(baseDir, "keys"),
	}, nil
}

// getConfigPath returns the config file path, checking RUFAS_CONFIG_PATH first,
// then the XDG config home, then ~/.config/rufas.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("RUFAS_CONFIG_PATH"); path != "" {
		return path, nil
	}

	xdg.Reload()
	if xdg.ConfigHome != "" {
		return filepath.Join(xdg.ConfigHome, "rufas.toml"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "rufas.toml"), nil
}

// getBaseDir returns the base directory for rufas data, checking RUFAS_HOME first,
// then the XDG data home, then ~/.local/share/rufas.
func getBaseDir() (string, error) {
	if path := os.Getenv("RUFAS_HOME"); path != "" {
		return path, nil
	}

	xdg.Reload()
	if xdg.DataHome != "" {
		return filepath.Join(xdg.DataHome, "rufas"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "rufas"), nil
}

// LoadConfig reads the config file at path on top of the defaults rooted at
// baseDir. A missing file yields the defaults, so every command works before
// `rufas config init` has been run.
func LoadConfig(path, baseDir string) (*config.Config, error) {
	cfg := config.NewConfig(baseDir)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	return config.ReadFromFileWithDefaults(path, cfg)
}
