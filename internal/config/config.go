package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/passport/internal/imagecomp"
	"github.com/five82/passport/internal/kvstore"
	"github.com/five82/passport/internal/restcountries"
)

// Config holds the tracker settings. Fields tagged env can be overridden
// from the environment after the file is read.
type Config struct {
	DataDir      string  `toml:"data_dir" env:"PASSPORT_DATA_DIR"`
	QuotaBytes   int64   `toml:"quota_bytes" env:"PASSPORT_QUOTA_BYTES"`
	APIBase      string  `toml:"api_base" env:"PASSPORT_API_BASE"`
	RegistryPath string  `toml:"registry" env:"PASSPORT_REGISTRY"`
	MaxDimension int     `toml:"max_dimension"`
	Quality      float64 `toml:"quality"`
	LogPath      string  `toml:"log_path"`
}

const (
	defaultConfigPath = "~/.config/passport/config.toml"
	defaultDataDir    = "~/.local/share/passport"
	databaseName      = "passport.db"
	logName           = "passport.log"
)

// Default returns the settings used when no config file exists.
func Default() Config {
	return Config{
		DataDir:      defaultDataDir,
		QuotaBytes:   kvstore.DefaultQuota,
		APIBase:      restcountries.DefaultBaseURL,
		MaxDimension: imagecomp.DefaultMaxDimension,
		Quality:      imagecomp.DefaultQuality,
	}
}

// Load reads the config file at path (or the default location), fills in
// defaults for anything missing and applies environment overrides.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := readFile(resolved, &cfg); err != nil {
		return Config{}, err
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(bytes, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) normalize() error {
	def := Default()

	c.DataDir = strings.TrimSpace(c.DataDir)
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	dir, err := expandPath(c.DataDir)
	if err != nil {
		return fmt.Errorf("data_dir: %w", err)
	}
	c.DataDir = dir

	if c.QuotaBytes <= 0 {
		c.QuotaBytes = def.QuotaBytes
	}
	c.APIBase = strings.TrimSpace(c.APIBase)
	if c.APIBase == "" {
		c.APIBase = def.APIBase
	}
	if c.MaxDimension <= 0 {
		c.MaxDimension = def.MaxDimension
	}
	if c.Quality <= 0 || c.Quality > 1 {
		c.Quality = def.Quality
	}

	if p := strings.TrimSpace(c.RegistryPath); p != "" {
		if c.RegistryPath, err = expandPath(p); err != nil {
			return fmt.Errorf("registry: %w", err)
		}
	} else {
		c.RegistryPath = ""
	}
	if p := strings.TrimSpace(c.LogPath); p != "" {
		if c.LogPath, err = expandPath(p); err != nil {
			return fmt.Errorf("log_path: %w", err)
		}
	} else {
		c.LogPath = filepath.Join(c.DataDir, logName)
	}
	return nil
}

// DatabasePath is the SQLite file holding visits and cached facts.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, databaseName)
}

// CompressorOptions maps image settings onto imagecomp.
func (c Config) CompressorOptions() imagecomp.Options {
	return imagecomp.Options{MaxDimension: c.MaxDimension, Quality: c.Quality}
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
