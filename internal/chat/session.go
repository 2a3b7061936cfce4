// Package chat holds the conversation state of one panel: the page it is
// about, the turns exchanged so far, and whether a message may be sent.
package chat

import (
	"errors"

	"github.com/vasilisp/pagechat/internal/data"
	"github.com/vasilisp/pagechat/internal/util"
)

// MaxContextChars bounds the page text embedded in the system message.
const MaxContextChars = 10000

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type PageContext struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// ContextText returns the part of the page text used as conversation context
// and whether the rest was dropped.
func (p PageContext) ContextText() (string, bool) {
	return util.TruncateRunes(p.Text, MaxContextChars)
}

type State int

const (
	StateLocked State = iota
	StateIdle
	StateAwaiting
)

func (s State) String() string {
	switch s {
	case StateLocked:
		return "locked"
	case StateIdle:
		return "idle"
	case StateAwaiting:
		return "awaiting"
	default:
		return "unknown"
	}
}

var (
	ErrLocked = errors.New("no credential")
	ErrBusy   = errors.New("a request is already in flight")
)

// Session is not safe for concurrent use; the panel controller serializes
// access to it.
type Session struct {
	page    PageContext
	history []Message
	state   State
}

func NewSession() *Session {
	return &Session{state: StateLocked}
}

func (s *Session) SetPage(page PageContext) {
	s.page = page
}

func (s *Session) Page() PageContext {
	return s.page
}

func (s *Session) State() State {
	return s.state
}

// Unlock moves a locked session to idle. Other states are left alone.
func (s *Session) Unlock() {
	if s.state == StateLocked {
		s.state = StateIdle
	}
}

func (s *Session) AppendUser(content string) {
	util.Assert(content != "", "AppendUser empty content")
	s.history = append(s.history, Message{Role: RoleUser, Content: content})
}

func (s *Session) AppendAssistant(content string) {
	s.history = append(s.history, Message{Role: RoleAssistant, Content: content})
}

// History returns a copy of the turns exchanged so far.
func (s *Session) History() []Message {
	history := make([]Message, len(s.history))
	copy(history, s.history)
	return history
}

func (s *Session) systemMessage() Message {
	text, _ := s.page.ContextText()
	return Message{Role: RoleSystem, Content: data.SystemPrompt + "\n\n" + text}
}

// BuildRequestMessages returns the full message sequence for a request
// carrying userMessage.
func (s *Session) BuildRequestMessages(userMessage string) []Message {
	messages := make([]Message, 0, len(s.history)+2)
	messages = append(messages, s.systemMessage())
	messages = append(messages, s.history...)
	return append(messages, Message{Role: RoleUser, Content: userMessage})
}

// Begin accepts userMessage for sending and returns the request messages.
func (s *Session) Begin(userMessage string) ([]Message, error) {
	switch s.state {
	case StateLocked:
		return nil, ErrLocked
	case StateAwaiting:
		return nil, ErrBusy
	}

	messages := s.BuildRequestMessages(userMessage)
	s.state = StateAwaiting
	return messages, nil
}

// Finish commits a successful exchange to the history.
func (s *Session) Finish(userMessage, reply string) {
	util.Assert(s.state == StateAwaiting, "Finish not awaiting")

	s.AppendUser(userMessage)
	s.AppendAssistant(reply)
	s.state = StateIdle
}

// Abort ends a failed exchange without touching the history.
func (s *Session) Abort() {
	util.Assert(s.state == StateAwaiting, "Abort not awaiting")
	s.state = StateIdle
}
