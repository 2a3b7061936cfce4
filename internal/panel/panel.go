// Package panel drives one companion panel from activation to close: it
// loads the credential and the page, accepts messages, and keeps the
// transcript the user sees.
package panel

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/vasilisp/pagechat/internal/chat"
	"github.com/vasilisp/pagechat/internal/credential"
	"github.com/vasilisp/pagechat/internal/markdown"
	"github.com/vasilisp/pagechat/internal/page"
	"github.com/vasilisp/pagechat/internal/util"
	"github.com/vasilisp/pagechat/pkg/api"
	"go.uber.org/zap"
)

type Completer interface {
	Complete(ctx context.Context, messages []chat.Message, cred credential.Credential) (string, error)
}

type Controller struct {
	store     credential.Store
	source    page.Source
	completer Completer
	log       *zap.Logger

	mu        sync.Mutex
	session   *chat.Session
	cred      *credential.Credential
	entries   []api.Entry
	loading   bool
	truncated bool
}

func New(store credential.Store, source page.Source, completer Completer, log *zap.Logger) *Controller {
	util.Assert(store != nil, "New nil store")
	util.Assert(source != nil, "New nil source")
	util.Assert(completer != nil, "New nil completer")
	util.Assert(log != nil, "New nil log")

	return &Controller{
		store:     store,
		source:    source,
		completer: completer,
		log:       log,
		session:   chat.NewSession(),
	}
}

// fail must be called with c.mu held.
func (c *Controller) fail(err error) {
	c.entries = append(c.entries, api.Entry{Kind: api.EntryError, Text: message(err)})
}

// Activate loads the stored credential and the page at url. Failures are
// reported as transcript entries.
func (c *Controller) Activate(ctx context.Context, url string) {
	cred, credErr := c.store.Load(ctx)
	if credErr != nil {
		c.log.Warn("failed to load credential", zap.Error(credErr))
	}

	pageCtx, pageErr := page.Load(ctx, c.source, url)

	c.mu.Lock()
	defer c.mu.Unlock()

	if cred != nil && cred.APIKey != "" {
		c.cred = cred
		c.session.Unlock()
	}

	c.session.SetPage(pageCtx)

	if pageErr != nil {
		c.log.Info("page extraction failed", zap.String("url", url), zap.Error(pageErr))
		c.fail(pageErr)
		return
	}

	_, c.truncated = pageCtx.ContextText()
	if c.truncated {
		c.log.Info("page text truncated",
			zap.String("url", pageCtx.URL),
			zap.Int("chars", len([]rune(pageCtx.Text))))
	}
}

// SaveCredential persists key and unlocks the session.
func (c *Controller) SaveCredential(ctx context.Context, key string) {
	key = strings.TrimSpace(key)
	if key == "" {
		c.mu.Lock()
		c.entries = append(c.entries, api.Entry{Kind: api.EntryError, Text: MsgBlankKey})
		c.mu.Unlock()
		return
	}

	cred := credential.Credential{APIKey: key}
	err := c.store.Save(ctx, cred)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.log.Error("failed to save credential", zap.Error(err))
		c.fail(chat.NewError(chat.StorageFailure, err))
		return
	}

	c.cred = &cred
	c.session.Unlock()
}

// Send asks the model about the page. It returns chat.ErrBusy while an
// earlier message is still waiting for its reply; every other outcome ends
// up in the transcript.
func (c *Controller) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	c.mu.Lock()
	messages, err := c.session.Begin(text)
	switch {
	case errors.Is(err, chat.ErrBusy):
		c.mu.Unlock()
		return err
	case errors.Is(err, chat.ErrLocked):
		c.fail(chat.NewError(chat.InvalidCredential, err))
		c.mu.Unlock()
		return nil
	}
	util.Assert(err == nil, "Send unexpected Begin error")
	util.Assert(c.cred != nil, "Send unlocked without credential")

	c.entries = append(c.entries, api.Entry{Kind: api.EntryUser, Text: text})
	c.loading = true
	cred := *c.cred
	c.mu.Unlock()

	reply, err := c.completer.Complete(ctx, messages, cred)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.loading = false

	if err != nil {
		c.log.Warn("completion failed", zap.Stringer("kind", chat.KindOf(err)), zap.Error(err))
		c.session.Abort()
		c.fail(err)
		return nil
	}

	c.session.Finish(text, reply)
	c.entries = append(c.entries, api.Entry{
		Kind: api.EntryAssistant,
		Text: reply,
		HTML: markdown.Render(reply),
	})
	return nil
}

func (c *Controller) Entries() []api.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := make([]api.Entry, len(c.entries))
	copy(entries, c.entries)
	return entries
}

func (c *Controller) UI() api.UIState {
	c.mu.Lock()
	defer c.mu.Unlock()

	keyEntered := c.cred != nil
	return api.UIState{
		State:       c.session.State().String(),
		Loading:     c.loading,
		KeyEntered:  keyEntered,
		SendEnabled: keyEntered && !c.loading,
		Truncated:   c.truncated,
	}
}

func (c *Controller) Page() chat.PageContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Page()
}

func (c *Controller) History() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.History()
}

func (c *Controller) State() chat.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.State()
}
