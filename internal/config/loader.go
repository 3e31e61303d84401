package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/depctl"
	projectConfigDir = ".depctl"
	configFileName   = "config.yaml"
)

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		LogLevel: "info",
		Probe: ProbeSettings{
			PollIntervalSeconds: 2,
			BudgetSeconds:       300,
		},
	}
}

// Load loads the depctl settings by layering default, user, and project
// configuration. Missing files are not errors; malformed files are.
func Load() (Settings, error) {
	settings := Defaults()

	userConfigPath, err := getUserConfigPath()
	if err != nil {
		// User config is optional; keep going with defaults.
		fmt.Fprintf(os.Stderr, "Warning: Could not determine user config path: %v\n", err)
	} else {
		if _, err := os.Stat(userConfigPath); !os.IsNotExist(err) {
			userSettings, err := loadSettingsFromFile(userConfigPath)
			if err != nil {
				return Settings{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
			}
			settings = mergeSettings(settings, userSettings)
		}
	}

	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not determine project config path: %v\n", err)
	} else {
		if _, err := os.Stat(projectConfigPath); !os.IsNotExist(err) {
			projectSettings, err := loadSettingsFromFile(projectConfigPath)
			if err != nil {
				return Settings{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
			}
			settings = mergeSettings(settings, projectSettings)
		}
	}

	return settings, nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

func loadSettingsFromFile(filePath string) (Settings, error) {
	var settings Settings
	data, err := os.ReadFile(filePath)
	if err != nil {
		return Settings{}, err
	}
	err = yaml.Unmarshal(data, &settings)
	if err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// mergeSettings merges 'overlay' settings into 'base'; non-zero overlay
// fields win.
func mergeSettings(base, overlay Settings) Settings {
	merged := base
	if overlay.LogLevel != "" {
		merged.LogLevel = overlay.LogLevel
	}
	if overlay.StateDir != "" {
		merged.StateDir = overlay.StateDir
	}
	if overlay.Probe.PollIntervalSeconds != 0 {
		merged.Probe.PollIntervalSeconds = overlay.Probe.PollIntervalSeconds
	}
	if overlay.Probe.BudgetSeconds != 0 {
		merged.Probe.BudgetSeconds = overlay.Probe.BudgetSeconds
	}
	return merged
}

// GetUserConfigDir returns the user configuration directory path
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir), nil
}
