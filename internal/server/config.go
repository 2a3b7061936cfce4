package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/vasilisp/pagechat/internal/util"
	"gopkg.in/yaml.v3"
)

const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"

	SourceHTTP    = "http"
	SourceBrowser = "browser"
)

type Config struct {
	Port              int    `json:"port,omitempty" yaml:"port,omitempty"`
	Storage           string `json:"storage,omitempty" yaml:"storage,omitempty"`
	StoragePath       string `json:"storagePath,omitempty" yaml:"storagePath,omitempty"`
	Source            string `json:"source,omitempty" yaml:"source,omitempty"`
	BrowserControlURL string `json:"browserControlURL,omitempty" yaml:"browserControlURL,omitempty"`
	BaseURL           string `json:"baseURL,omitempty" yaml:"baseURL,omitempty"`
	MaxPanels         int    `json:"maxPanels,omitempty" yaml:"maxPanels,omitempty"`
}

// DefaultConfigPath returns the first existing ~/.config/pagechat.{json,yaml,yml},
// or the JSON path when none exists.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	base := filepath.Join(homeDir, ".config", "pagechat")
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		if _, err := os.Stat(base + ext); err == nil {
			return base + ext, nil
		}
	}
	return base + ".json", nil
}

func decodeConfig(path string, data []byte, config *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	default:
		return json.Unmarshal(data, config)
	}
}

// LoadConfig reads the config at path, or at DefaultConfigPath when path is
// empty. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return nil, err
		}
	}

	var config Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := decodeConfig(path, data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := config.applyDefaults(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (config *Config) applyDefaults() error {
	if config.Port <= 0 {
		config.Port = 8080
	}

	if config.MaxPanels <= 0 {
		config.MaxPanels = 32
	}

	config.Storage = strings.ToLower(config.Storage)
	switch config.Storage {
	case "":
		config.Storage = StorageFile
	case StorageFile, StorageSQLite:
	default:
		return fmt.Errorf("storage must be %q or %q, got %q", StorageFile, StorageSQLite, config.Storage)
	}

	if config.StoragePath == "" {
		config.StoragePath = "~/.config/pagechat/storage.json"
		if config.Storage == StorageSQLite {
			config.StoragePath = "~/.config/pagechat/storage.db"
		}
	}

	storagePath, err := util.ExpandHome(config.StoragePath)
	if err != nil {
		return fmt.Errorf("failed to expand storage path: %w", err)
	}
	config.StoragePath = storagePath

	config.Source = strings.ToLower(config.Source)
	switch config.Source {
	case "":
		config.Source = SourceHTTP
	case SourceHTTP, SourceBrowser:
	default:
		return fmt.Errorf("source must be %q or %q, got %q", SourceHTTP, SourceBrowser, config.Source)
	}

	return nil
}
