package page

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/vasilisp/pagechat/pkg/api"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// BrowserSource renders pages in Chromium over the DevTools protocol, so
// text produced by scripts is included. It connects on first use and keeps
// the connection until Close. With an empty control URL it launches a
// headless browser of its own.
type BrowserSource struct {
	controlURL string
	log        *zap.Logger

	mu       sync.Mutex
	browser  *rod.Browser
	ws       *cdp.WebSocket
	launcher *launcher.Launcher
}

func NewBrowserSource(controlURL string, log *zap.Logger) *BrowserSource {
	return &BrowserSource{controlURL: controlURL, log: log}
}

// connected returns the shared browser, connecting if needed. The
// connection outlives ctx; only the dial is bound to it.
func (s *BrowserSource) connected(ctx context.Context) (*rod.Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		return s.browser, nil
	}

	controlURL := s.controlURL
	var l *launcher.Launcher

	if controlURL == "" {
		l = launcher.New().Headless(true)
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to launch browser: %v", ErrNoListener, err)
		}
		controlURL = u
	}

	ws := &cdp.WebSocket{}
	if err := ws.Connect(ctx, controlURL, nil); err != nil {
		if l != nil {
			l.Kill()
		}
		return nil, fmt.Errorf("%w: connect to chrome: %v", ErrNoListener, err)
	}

	browser := rod.New().Client(cdp.New().Start(ws))
	if err := browser.Connect(); err != nil {
		ws.Close()
		if l != nil {
			l.Kill()
		}
		return nil, fmt.Errorf("%w: connect to chrome: %v", ErrNoListener, err)
	}

	s.browser, s.ws, s.launcher = browser, ws, l
	s.log.Debug("connected to browser", zap.Bool("launched", l != nil))
	return browser, nil
}

// closeLocked must be called with s.mu held. A browser this source did not
// launch is left running; only the connection to it is closed.
func (s *BrowserSource) closeLocked() error {
	if s.browser == nil {
		return nil
	}

	var err error
	if s.launcher != nil {
		err = s.browser.Close()
		s.launcher.Kill()
	}
	if closeErr := s.ws.Close(); err == nil {
		err = closeErr
	}

	s.browser, s.ws, s.launcher = nil, nil, nil
	return err
}

// drop forgets browser if it is still the shared one, so the next Send
// reconnects.
func (s *BrowserSource) drop(browser *rod.Browser) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != browser {
		return
	}
	if err := s.closeLocked(); err != nil {
		s.log.Debug("failed to close browser connection", zap.Error(err))
	}
}

func (s *BrowserSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *BrowserSource) Send(ctx context.Context, url string, req api.PageTextRequest) (api.PageTextResponse, error) {
	browser, err := s.connected(ctx)
	if err != nil {
		return api.PageTextResponse{}, err
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		if ctx.Err() == nil {
			s.drop(browser)
		}
		return api.PageTextResponse{}, fmt.Errorf("%w: failed to open page: %v", ErrNoListener, err)
	}
	defer func() {
		if err := page.Context(context.WithoutCancel(ctx)).Close(); err != nil {
			s.log.Debug("failed to close page", zap.Error(err))
		}
	}()

	if err := page.WaitLoad(); err != nil {
		return api.PageTextResponse{Error: fmt.Sprintf("page did not load: %v", err)}, nil
	}

	content, err := page.HTML()
	if err != nil {
		return api.PageTextResponse{Error: fmt.Sprintf("failed to read page: %v", err)}, nil
	}

	info, err := page.Info()
	if err != nil {
		return api.PageTextResponse{Error: fmt.Sprintf("failed to read page info: %v", err)}, nil
	}

	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return api.PageTextResponse{Error: fmt.Sprintf("failed to parse page: %v", err)}, nil
	}

	resp := answer(req, doc, info.URL)
	if resp.Success && info.Title != "" {
		resp.Title = info.Title
	}

	s.log.Debug("rendered page", zap.String("url", info.URL), zap.Int("chars", len(resp.Text)))
	return resp, nil
}
