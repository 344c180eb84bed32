package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// EnvFiles are loaded, if present, before the config is resolved. Variables
// already set in the environment win, and earlier files win over later ones.
var EnvFiles = []string{".env.local", ".env"}

// DefaultConfigPaths returns the search order for config files.
func DefaultConfigPaths() []string {
	paths := []string{"formprobe.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "formprobe", "config.yaml"))
	}
	paths = append(paths, "/etc/formprobe/config.yaml")
	return paths
}

// Resolve loads the config from the given explicit path, or searches the
// default locations and falls back to the built-in defaults. Environment
// overrides are applied and the result is validated.
func Resolve(explicit string) (*Config, error) {
	if err := LoadEnvFiles(EnvFiles...); err != nil {
		return nil, err
	}

	path, err := findConfig(explicit)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		cfg, err = Load(path)
		if err != nil {
			return nil, err
		}
	}

	ApplyEnv(cfg, os.Getenv)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFiles loads each existing dotenv file into the process environment.
func LoadEnvFiles(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

func findConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultConfigPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", nil
}
