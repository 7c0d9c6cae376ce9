package ui

import (
	"html"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/gtklocker/ting/pkg/chat"
	"github.com/gtklocker/ting/pkg/history"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
)

const maxCached = 1024

// Renderer turns history rows into terminal lines. Finalized text
// messages go through markdown rendering; everything is stripped of HTML
// first.
type Renderer struct {
	sanitizer *bluemonday.Policy
	markdown  *glamour.TermRenderer
	width     int
	cache     map[string]string
}

// NewRenderer builds a renderer for the given wrap width. style is a
// glamour style name; an empty style disables markdown.
func NewRenderer(width int, style string) *Renderer {
	r := &Renderer{
		sanitizer: bluemonday.StrictPolicy(),
		width:     width,
		cache:     map[string]string{},
	}
	if style != "" {
		md, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
			glamour.WithEmoji(),
		)
		if err != nil {
			log.Warn().Err(err).Str("component", "ui").Msg("markdown renderer unavailable")
		} else {
			r.markdown = md
		}
	}
	return r
}

// Rows renders every row, one or more lines each.
func (r *Renderer) Rows(rows []history.Row) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, r.Row(row))
	}
	return strings.Join(lines, "\n")
}

func (r *Renderer) Row(row history.Row) string {
	content := html.UnescapeString(r.sanitizer.Sanitize(row.MessageContent))
	name := usernameStyle.Render(row.Username)
	if row.Own {
		name = ownStyle.Render(row.Username)
	}
	prefix := ""
	if row.At != nil {
		prefix = timeStyle.Render(row.At.Local().Format("15:04")) + " "
	}

	switch {
	case row.Typing:
		return prefix + typingStyle.Render(row.Username+": "+content+"…")
	case row.MessageType == chat.MessageTypeEmote:
		return prefix + emoteStyle.Render("* "+row.Username+" "+content)
	default:
		return prefix + name + ": " + r.body(content)
	}
}

func (r *Renderer) body(content string) string {
	if r.markdown == nil {
		return content
	}
	if out, ok := r.cache[content]; ok {
		return out
	}
	out, err := r.markdown.Render(content)
	if err != nil {
		log.Debug().Err(err).Str("component", "ui").Msg("markdown render failed")
		return content
	}
	out = strings.Trim(out, "\n ")
	if len(r.cache) >= maxCached {
		r.cache = map[string]string{}
	}
	r.cache[content] = out
	return out
}
