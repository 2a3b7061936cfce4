package api

// ActionGetPageText asks the page-resident extractor for the page's text.
const ActionGetPageText = "getPageText"

type PageTextRequest struct {
	Action string `json:"action"`
}

type PageTextResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text,omitempty"`
	URL     string `json:"url,omitempty"`
	Title   string `json:"title,omitempty"`
	Error   string `json:"error,omitempty"`
}

const PanelsPath = "/api/panels"

type OpenPanelRequest struct {
	URL string `json:"url"`
}

type SaveKeyRequest struct {
	Key string `json:"key"`
}

type SendRequest struct {
	Message string `json:"message"`
}

const (
	EntryUser      = "user"
	EntryAssistant = "assistant"
	EntryError     = "error"
)

// Entry is one item of a panel's visible transcript. Only assistant entries
// carry HTML; error entries are plain text.
type Entry struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
	HTML string `json:"html,omitempty"`
}

type UIState struct {
	State       string `json:"state"`
	Loading     bool   `json:"loading"`
	KeyEntered  bool   `json:"key_entered"`
	SendEnabled bool   `json:"send_enabled"`
	Truncated   bool   `json:"truncated"`
}

type Page struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Chars int    `json:"chars"`
}

type PanelResponse struct {
	ID      string  `json:"id"`
	Page    Page    `json:"page"`
	UI      UIState `json:"ui"`
	Entries []Entry `json:"entries"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
