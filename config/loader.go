package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/joho/godotenv"
)

// LoadEnvFile reads a .env file into a map for ${VAR} expansion.
// An empty path returns nil without error.
func LoadEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("env file not found: %s", path)
	}

	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}

	return env, nil
}

// FindConfigFile searches the standard locations: the working
// directory first, then the user's config directory
func FindConfigFile() (string, error) {
	candidates := []string{
		"backstage.yml",
		"backstage.yaml",
		".backstage.yml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".backstage", "config.yml"))
	}

	for _, name := range candidates {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}

	return "", fmt.Errorf("%w (tried: %v)", ErrConfigNotFound, candidates)
}

// CheckFilePermissions rejects world-writable config files: they can
// name passcodes and connection strings, and any local user could
// rewrite them
func CheckFilePermissions(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("checking file permissions: %w", err)
	}

	if info.Mode().Perm()&0002 != 0 {
		return fmt.Errorf("config file %s is world-writable; run: chmod o-w %s", path, path)
	}

	return nil
}
