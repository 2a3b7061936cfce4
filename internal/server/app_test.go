package server

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasilisp/pagechat/internal/page"
	"go.uber.org/zap"
)

func TestNewAppBrowserSource(t *testing.T) {
	config := &Config{
		Storage:           StorageSQLite,
		StoragePath:       filepath.Join(t.TempDir(), "storage.db"),
		Source:            SourceBrowser,
		BrowserControlURL: "ws://127.0.0.1:9222/devtools/browser/x",
	}
	require.NoError(t, config.applyDefaults())

	app, err := NewApp(config, zap.NewNop())
	require.NoError(t, err)

	source, ok := app.Source.(*page.BrowserSource)
	require.True(t, ok)
	assert.Implements(t, (*io.Closer)(nil), source)
	assert.Implements(t, (*io.Closer)(nil), app.Store)

	// nothing was connected yet; closing releases the store and the source
	app.Close()
}
