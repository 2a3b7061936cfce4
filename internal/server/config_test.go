package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	config, err := LoadConfig(filepath.Join(home, "nope.json"))
	require.NoError(t, err)

	assert.Equal(t, 8080, config.Port)
	assert.Equal(t, 32, config.MaxPanels)
	assert.Equal(t, StorageFile, config.Storage)
	assert.Equal(t, filepath.Join(home, ".config", "pagechat", "storage.json"), config.StoragePath)
	assert.Equal(t, SourceHTTP, config.Source)
	assert.Empty(t, config.BaseURL)
}

func TestLoadConfigJSON(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "pagechat.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"port": 9000,
		"storage": "SQLite",
		"source": "browser",
		"browserControlURL": "ws://127.0.0.1:9222/devtools/browser/x",
		"baseURL": "http://localhost:11434/v1/",
		"maxPanels": 4
	}`), 0600))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, &Config{
		Port:              9000,
		Storage:           StorageSQLite,
		StoragePath:       filepath.Join(home, ".config", "pagechat", "storage.db"),
		Source:            SourceBrowser,
		BrowserControlURL: "ws://127.0.0.1:9222/devtools/browser/x",
		BaseURL:           "http://localhost:11434/v1/",
		MaxPanels:         4,
	}, config)
}

func TestLoadConfigYAML(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "pagechat.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9001\nstoragePath: ~/keys.json\n"), 0600))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9001, config.Port)
	assert.Equal(t, filepath.Join(home, "keys.json"), config.StoragePath)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"bad json", "c.json", "{"},
		{"bad yaml", "c.yaml", "port: [1"},
		{"bad storage", "c.json", `{"storage": "redis"}`},
		{"bad source", "c.json", `{"source": "telepathy"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))

			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestDefaultConfigPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := DefaultConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "pagechat.json"), path)

	yamlPath := filepath.Join(home, ".config", "pagechat.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(yamlPath), 0755))
	require.NoError(t, os.WriteFile(yamlPath, []byte("port: 1\n"), 0600))

	path, err = DefaultConfigPath()
	require.NoError(t, err)
	assert.Equal(t, yamlPath, path)
}
