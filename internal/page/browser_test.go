package page

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func closedControlURL(t *testing.T) string {
	t.Helper()
	server := httptest.NewServer(http.NotFoundHandler())
	controlURL := "ws://" + strings.TrimPrefix(server.URL, "http://")
	server.Close()
	return controlURL
}

func TestBrowserSourceNoBrowser(t *testing.T) {
	src := NewBrowserSource(closedControlURL(t), zap.NewNop())

	_, err := src.Send(context.Background(), "https://example.com", getText)
	assert.ErrorIs(t, err, ErrNoListener)

	// a failed dial keeps no connection around and is retried
	assert.Nil(t, src.browser)
	_, err = src.Send(context.Background(), "https://example.com", getText)
	assert.ErrorIs(t, err, ErrNoListener)
	assert.Nil(t, src.browser)
}

func TestBrowserSourceNotDevTools(t *testing.T) {
	// a plain HTTP server refuses the websocket upgrade
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	src := NewBrowserSource("ws://"+strings.TrimPrefix(server.URL, "http://"), zap.NewNop())
	_, err := src.Send(context.Background(), "https://example.com", getText)
	assert.ErrorIs(t, err, ErrNoListener)
	assert.Nil(t, src.ws)
}

func TestBrowserSourceCloseWithoutConnection(t *testing.T) {
	src := NewBrowserSource(closedControlURL(t), zap.NewNop())
	assert.NoError(t, src.Close())
	assert.NoError(t, src.Close())
}
