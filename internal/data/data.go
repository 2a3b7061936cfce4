package data

import (
	_ "embed"
	"strings"
)

//go:embed prompt.txt
var systemPrompt string

// SystemPrompt precedes the page text in every system message.
var SystemPrompt = strings.TrimRight(systemPrompt, "\n")

//go:embed index.html
var IndexHTML []byte

//go:embed style.css
var StyleCSS []byte
