// Package cli provides shared configuration and exit-code handling for
// the meshauthctl CLI.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const maxWalkDepth = 25

// Config is the meshauthctl configuration, loadable from meshauth.yaml
// with flag > env > file > default precedence.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// CacheConfig controls the expansion cache the engine is constructed with.
type CacheConfig struct {
	// Size bounds the LRU-backed cache. 0 means use the default unbounded map cache.
	Size int `mapstructure:"size"`
}

// AuthConfig controls authenticator verification behavior.
type AuthConfig struct {
	// AllowPlaintext enables the plaintext verifier scheme. Must stay
	// false outside test fixtures.
	AllowPlaintext bool `mapstructure:"allow_plaintext"`
}

// LoadConfig discovers and loads configuration with precedence
// env > config file > defaults. It binds no command-line flags; the
// caller applies those on top (see resolveDSN in meshauthctl).
func LoadConfig(explicitConfigPath string) (*Config, string, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MESHAUTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath, err := findConfigFile(explicitConfigPath)
	if err != nil {
		return nil, "", err
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, configPath, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.url", os.Getenv("DATABASE_URL"))
	v.SetDefault("cache.size", 0)
	v.SetDefault("auth.allow_plaintext", false)
}

// findConfigFile finds meshauth.yaml/.yml, walking up from cwd to the
// repo root (a .git boundary) or maxWalkDepth levels, whichever comes first.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}

	dir := cwd
	for i := 0; i < maxWalkDepth; i++ {
		for _, name := range []string{"meshauth.yaml", "meshauth.yml"} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil
}
