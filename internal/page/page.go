// Package page asks a page-resident extractor for the text of a page.
//
// A Source plays the role of the browser host: it delivers a getPageText
// message to whatever runs next to the page and returns its answer. An error
// from Send means the message never reached an extractor; a response with
// Success false means the extractor ran and failed.
package page

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vasilisp/pagechat/internal/chat"
	"github.com/vasilisp/pagechat/internal/extract"
	"github.com/vasilisp/pagechat/pkg/api"
	"golang.org/x/net/html"
)

var (
	ErrInternalPage = errors.New("internal browser page")
	ErrNoListener   = errors.New("no extractor listening on the page")
	ErrAccessDenied = errors.New("page access denied")
)

type Source interface {
	Send(ctx context.Context, url string, req api.PageTextRequest) (api.PageTextResponse, error)
}

var internalPrefixes = []string{
	"chrome://",
	"edge://",
	"about:",
	"chrome-extension://",
	"devtools://",
	"view-source:",
}

// IsInternalURL reports whether url belongs to the browser itself.
func IsInternalURL(url string) bool {
	url = strings.ToLower(strings.TrimSpace(url))
	for _, prefix := range internalPrefixes {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}

// answer is what the page-resident extractor replies to req.
func answer(req api.PageTextRequest, doc *html.Node, url string) api.PageTextResponse {
	if req.Action != api.ActionGetPageText {
		return api.PageTextResponse{Error: fmt.Sprintf("unsupported action %q", req.Action)}
	}

	title, text := extract.Document(doc)
	return api.PageTextResponse{
		Success: true,
		Text:    text,
		URL:     url,
		Title:   title,
	}
}

// Load extracts the page at url through src. An empty page is returned
// together with an EmptyExtraction error.
func Load(ctx context.Context, src Source, url string) (chat.PageContext, error) {
	page := chat.PageContext{URL: url}

	if IsInternalURL(url) {
		return page, chat.NewError(chat.ExtractionUnavailable, ErrInternalPage)
	}

	resp, err := src.Send(ctx, url, api.PageTextRequest{Action: api.ActionGetPageText})
	if err != nil {
		return page, chat.NewError(chat.ExtractionUnavailable, err)
	}

	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "unknown error"
		}
		return page, chat.NewError(chat.ExtractionUnavailable, errors.New(msg))
	}

	if resp.URL != "" {
		page.URL = resp.URL
	}
	page.Title = resp.Title
	page.Text = resp.Text

	if page.Text == "" {
		return page, chat.NewError(chat.EmptyExtraction, nil)
	}
	return page, nil
}
