package server

import (
	"fmt"
	"io"

	"github.com/vasilisp/pagechat/internal/credential"
	"github.com/vasilisp/pagechat/internal/openai"
	"github.com/vasilisp/pagechat/internal/page"
	"github.com/vasilisp/pagechat/internal/panel"
	"github.com/vasilisp/pagechat/internal/util"
	"go.uber.org/zap"
)

// App holds the backends shared by every panel.
type App struct {
	Config *Config
	Store  credential.Store
	Source page.Source
	Client *openai.Client
	Log    *zap.Logger
}

func NewApp(config *Config, log *zap.Logger) (*App, error) {
	util.Assert(config != nil, "NewApp nil config")
	util.Assert(log != nil, "NewApp nil log")

	store, err := credential.Open(config.Storage, config.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	var source page.Source
	switch config.Source {
	case SourceBrowser:
		source = page.NewBrowserSource(config.BrowserControlURL, log.Named("browser"))
	default:
		source = page.NewHTTPSource(nil)
	}

	return &App{
		Config: config,
		Store:  store,
		Source: source,
		Client: openai.NewClient(config.BaseURL, log.Named("openai")),
		Log:    log,
	}, nil
}

func (app *App) NewController() *panel.Controller {
	util.Assert(app != nil, "NewController nil app")
	return panel.New(app.Store, app.Source, app.Client, app.Log.Named("panel"))
}

func (app *App) Close() {
	util.Assert(app != nil, "Close nil app")

	if closer, ok := app.Store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			app.Log.Warn("failed to close credential store", zap.Error(err))
		}
	}

	if closer, ok := app.Source.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			app.Log.Warn("failed to close page source", zap.Error(err))
		}
	}
}
