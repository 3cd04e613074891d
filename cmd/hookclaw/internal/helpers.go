package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/joho/godotenv"

	"github.com/tinyland-inc/hookclaw/pkg/config"
)

const Logo = "🪝"

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

func GetConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".hookclaw", "config.json")
}

// LoadConfig loads .env (when present), then the JSON config. A missing
// config file is written back with defaults so the first run leaves an
// editable file behind.
func LoadConfig() (*config.Config, error) {
	_ = godotenv.Load()

	path := GetConfigPath()
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := config.SaveConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}
		fmt.Printf("Created default config at %s\n", path)
	}

	return cfg, nil
}

// FormatVersion returns the version string with optional git commit
func FormatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

// FormatBuildInfo returns build time and go version info
func FormatBuildInfo() (string, string) {
	build := buildTime
	goVer := goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	return build, goVer
}

// GetVersion returns the version string
func GetVersion() string {
	return version
}
