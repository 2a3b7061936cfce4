// Package markdown turns assistant replies into a small, safe subset of HTML.
//
// The input is escaped first and then rewritten by an ordered list of rules.
// Fragments that must not be touched by later rules (code) are moved into a
// stash and replaced by placeholder tokens until the last rule has run.
package markdown

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const (
	placeholderOpen  = '\uE000'
	placeholderClose = '\uE001'
)

var (
	reFence       = regexp.MustCompile("(?s)```(.*?)```")
	reInlineCode  = regexp.MustCompile("`([^`]+)`")
	reH3          = regexp.MustCompile(`(?m)^### (.*)$`)
	reH2          = regexp.MustCompile(`(?m)^## (.*)$`)
	reH1          = regexp.MustCompile(`(?m)^# (.*)$`)
	reBold        = regexp.MustCompile(`\*\*(.*?)\*\*`)
	reItalic      = regexp.MustCompile(`\*(.*?)\*`)
	reLink        = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	reOrderedItem = regexp.MustCompile(`(?m)^\d+\. (.*)$`)
	rePlaceholder = regexp.MustCompile(`\x{E000}([0-9]+)\x{E001}`)
)

type stash []string

func (s *stash) put(fragment string) string {
	*s = append(*s, fragment)
	return string(placeholderOpen) + strconv.Itoa(len(*s)-1) + string(placeholderClose)
}

func (s stash) restore(text string) string {
	return rePlaceholder.ReplaceAllStringFunc(text, func(token string) string {
		i, err := strconv.Atoi(rePlaceholder.FindStringSubmatch(token)[1])
		if err != nil || i >= len(s) {
			return ""
		}
		return s[i]
	})
}

type rule struct {
	name  string
	apply func(text string, s *stash) string
}

func replace(re *regexp.Regexp, repl string) func(string, *stash) string {
	return func(text string, _ *stash) string {
		return re.ReplaceAllString(text, repl)
	}
}

func fencedCode(text string, s *stash) string {
	return reFence.ReplaceAllStringFunc(text, func(m string) string {
		code := reFence.FindStringSubmatch(m)[1]
		return s.put("<pre><code>" + strings.TrimSpace(code) + "</code></pre>")
	})
}

func inlineCode(text string, s *stash) string {
	return reInlineCode.ReplaceAllStringFunc(text, func(m string) string {
		code := reInlineCode.FindStringSubmatch(m)[1]
		return s.put("<code>" + code + "</code>")
	})
}

func headings(text string, _ *stash) string {
	text = reH3.ReplaceAllString(text, "<h3>${1}</h3>")
	text = reH2.ReplaceAllString(text, "<h2>${1}</h2>")
	return reH1.ReplaceAllString(text, "<h1>${1}</h1>")
}

// unorderedList wraps every run of consecutive "- " lines in one <ul>.
func unorderedList(text string, _ *stash) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	var items []string

	flush := func() {
		if len(items) > 0 {
			out = append(out, "<ul>"+strings.Join(items, "")+"</ul>")
			items = nil
		}
	}

	for _, line := range lines {
		if item, ok := strings.CutPrefix(line, "- "); ok {
			items = append(items, "<li>"+item+"</li>")
			continue
		}
		flush()
		out = append(out, line)
	}
	flush()

	return strings.Join(out, "\n")
}

func breaks(text string, _ *stash) string {
	text = strings.ReplaceAll(text, "\n\n", "</p><p>")
	return strings.ReplaceAll(text, "\n", "<br>")
}

func paragraph(text string, _ *stash) string {
	text = "<p>" + text + "</p>"
	text = strings.ReplaceAll(text, "<p></p>", "")
	return strings.ReplaceAll(text, "<p><br></p>", "")
}

// order matters: code must be stashed before emphasis rules see it, and
// lists must be built before newlines turn into <br>
var rules = []rule{
	{"fenced code", fencedCode},
	{"inline code", inlineCode},
	{"headings", headings},
	{"bold", replace(reBold, "<strong>${1}</strong>")},
	{"italic", replace(reItalic, "<em>${1}</em>")},
	{"links", replace(reLink, `<a href="${2}" target="_blank">${1}</a>`)},
	{"unordered list", unorderedList},
	{"ordered list", replace(reOrderedItem, "<li>${1}</li>")},
	{"breaks", breaks},
	{"paragraph", paragraph},
}

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "pre", "code", "h1", "h2", "h3", "strong", "em", "ul", "li")
	p.AllowStandardURLs()
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
	return p
}

func prepare(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.Map(func(r rune) rune {
		if r == placeholderOpen || r == placeholderClose {
			return -1
		}
		return r
	}, raw)
	return html.EscapeString(raw)
}

// toHTML runs the rule pipeline without the final sanitizer pass.
func toHTML(raw string) string {
	var s stash
	text := prepare(raw)
	for _, r := range rules {
		text = r.apply(text, &s)
	}
	return s.restore(text)
}

// Render converts raw assistant text to HTML. Any markup present in raw is
// shown literally.
func Render(raw string) string {
	return policy.Sanitize(toHTML(raw))
}
