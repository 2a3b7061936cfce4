// Package cli is a terminal front end for a running pagechat server.
package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/vasilisp/pagechat/internal/util"
	"github.com/vasilisp/pagechat/pkg/api"
)

var ErrBusy = errors.New("still waiting for the previous reply")

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: client}
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*api.PanelResponse, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusNoContent:
		return nil, nil
	case http.StatusConflict:
		return nil, ErrBusy
	default:
		var apiErr api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("server error: %s: %s", resp.Status, apiErr.Error)
		}
		return nil, fmt.Errorf("server error: %s", resp.Status)
	}

	var result api.PanelResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

func (c *Client) Open(ctx context.Context, url string) (*api.PanelResponse, error) {
	return c.do(ctx, http.MethodPost, api.PanelsPath, api.OpenPanelRequest{URL: url})
}

func (c *Client) SaveKey(ctx context.Context, id, key string) (*api.PanelResponse, error) {
	return c.do(ctx, http.MethodPost, api.PanelsPath+"/"+id+"/key", api.SaveKeyRequest{Key: key})
}

func (c *Client) Send(ctx context.Context, id, message string) (*api.PanelResponse, error) {
	return c.do(ctx, http.MethodPost, api.PanelsPath+"/"+id+"/messages", api.SendRequest{Message: message})
}

func (c *Client) Close(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, api.PanelsPath+"/"+id, nil)
	return err
}

type printer struct {
	out      io.Writer
	renderer *glamour.TermRenderer
	printed  int
}

func (p *printer) print(entries []api.Entry) {
	for _, entry := range entries[min(p.printed, len(entries)):] {
		switch entry.Kind {
		case api.EntryAssistant:
			rendered, err := p.renderer.Render(entry.Text)
			if err != nil {
				rendered = entry.Text + "\n"
			}
			fmt.Fprint(p.out, rendered)
		case api.EntryError:
			fmt.Fprintf(p.out, "! %s\n", entry.Text)
		}
	}
	p.printed = len(entries)
}

func header(out io.Writer, panel *api.PanelResponse) {
	title := panel.Page.Title
	if title == "" {
		title = panel.Page.URL
	}
	fmt.Fprintf(out, "# %s (%d characters)\n", title, panel.Page.Chars)
	if panel.UI.Truncated {
		fmt.Fprintln(out, "(only the beginning of the page is used)")
	}
	if !panel.UI.KeyEntered {
		fmt.Fprintln(out, "No API key saved. Use /key <key> to enter one.")
	}
}

// Run opens a panel for pageURL and chats about it, one line of in per
// message, until in ends or /quit is read. "/key <key>" saves the API key.
func Run(ctx context.Context, client *Client, pageURL string, in io.Reader, out io.Writer, renderer *glamour.TermRenderer) error {
	util.Assert(client != nil, "Run nil client")
	util.Assert(renderer != nil, "Run nil renderer")

	panel, err := client.Open(ctx, pageURL)
	if err != nil {
		return err
	}
	defer client.Close(context.WithoutCancel(ctx), panel.ID)

	header(out, panel)
	p := &printer{out: out, renderer: renderer}
	p.print(panel.Entries)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		var next *api.PanelResponse
		switch {
		case line == "":
			continue
		case line == "/quit":
			return nil
		case strings.HasPrefix(line, "/key"):
			key := strings.TrimSpace(strings.TrimPrefix(line, "/key"))
			next, err = client.SaveKey(ctx, panel.ID, key)
			if err == nil && key != "" && next.UI.KeyEntered {
				fmt.Fprintln(out, "API key saved.")
			}
		default:
			next, err = client.Send(ctx, panel.ID, line)
		}

		if errors.Is(err, ErrBusy) {
			fmt.Fprintf(out, "! %s\n", err)
			continue
		}
		if err != nil {
			return err
		}
		panel = next
		p.print(panel.Entries)
	}

	return scanner.Err()
}
