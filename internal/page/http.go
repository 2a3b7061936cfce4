package page

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vasilisp/pagechat/pkg/api"
	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
)

const maxBodyBytes = 10 << 20

// HTTPSource fetches pages with a plain GET and extracts them locally.
type HTTPSource struct {
	client *http.Client
	md     goldmark.Markdown
}

func NewHTTPSource(client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &HTTPSource{
		client: client,
		md:     goldmark.New(),
	}
}

func isMarkdown(mediaType, path string) bool {
	switch mediaType {
	case "text/markdown", "text/x-markdown":
		return true
	case "text/plain":
		return strings.HasSuffix(path, ".md")
	}
	return false
}

func textDocument(text string) *html.Node {
	doc := &html.Node{Type: html.DocumentNode}
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	doc.AppendChild(body)
	body.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return doc
}

func (s *HTTPSource) document(contentType string, pageURL *url.URL, body []byte) (*html.Node, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)

	switch {
	case isMarkdown(mediaType, pageURL.Path):
		var buf bytes.Buffer
		if err := s.md.Convert(body, &buf); err != nil {
			return nil, fmt.Errorf("failed to convert markdown: %w", err)
		}
		return html.Parse(&buf)
	case mediaType == "text/plain":
		return textDocument(string(body)), nil
	case mediaType == "", mediaType == "text/html", mediaType == "application/xhtml+xml":
		r, err := charset.NewReader(bytes.NewReader(body), contentType)
		if err != nil {
			return nil, fmt.Errorf("failed to decode page: %w", err)
		}
		return html.Parse(r)
	default:
		return nil, fmt.Errorf("unsupported content type %q", mediaType)
	}
}

func (s *HTTPSource) Send(ctx context.Context, rawURL string, req api.PageTextRequest) (api.PageTextResponse, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return api.PageTextResponse{Error: fmt.Sprintf("invalid url: %v", err)}, nil
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return api.PageTextResponse{Error: fmt.Sprintf("unsupported scheme %q", u.Scheme)}, nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return api.PageTextResponse{Error: fmt.Sprintf("failed to create request: %v", err)}, nil
	}
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,text/markdown;q=0.9,text/plain;q=0.8")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return api.PageTextResponse{}, fmt.Errorf("%w: %v", ErrNoListener, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return api.PageTextResponse{}, fmt.Errorf("%w: %s", ErrAccessDenied, resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return api.PageTextResponse{Error: fmt.Sprintf("unexpected status %s", resp.Status)}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return api.PageTextResponse{Error: fmt.Sprintf("failed to read page: %v", err)}, nil
	}

	finalURL := resp.Request.URL
	doc, err := s.document(resp.Header.Get("Content-Type"), finalURL, body)
	if err != nil {
		return api.PageTextResponse{Error: err.Error()}, nil
	}

	return answer(req, doc, finalURL.String()), nil
}
