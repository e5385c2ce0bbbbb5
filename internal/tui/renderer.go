package tui

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/vovakirdan/dmview/internal/conversation"
)

// DefaultWidth is used when the configured width is not positive.
const DefaultWidth = 80

// Frame is everything one render shows.
type Frame struct {
	Username string
	Header   string
	Rows     []conversation.Row
	Compose  string
	Notice   string
	Error    string
}

// Renderer draws frames as colored text.
type Renderer struct {
	width int

	navbar  *color.Color
	counter *color.Color
	own     *color.Color
	hint    *color.Color
	field   *color.Color
	label   *color.Color
	errText *color.Color
}

// NewRenderer creates a renderer that right-aligns own messages to width.
func NewRenderer(width int) *Renderer {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Renderer{
		width:   width,
		navbar:  color.New(color.FgHiBlack),
		counter: color.New(color.FgBlue, color.Bold),
		own:     color.New(color.Bold),
		hint:    color.New(color.FgHiBlack),
		field:   color.New(color.FgYellow),
		label:   color.New(color.Bold),
		errText: color.New(color.FgRed),
	}
}

// Render returns the frame as a string ending in a newline.
func (r *Renderer) Render(f Frame) string {
	var b strings.Builder

	user := f.Username
	if user == "" {
		user = "-"
	}
	r.line(&b, conversation.AlignLeft, r.navbar.Sprint("dmview · "+user))
	b.WriteString("\n")

	for _, row := range f.Rows {
		r.renderRow(&b, row)
	}

	r.line(&b, conversation.AlignLeft, r.label.Sprint(f.Header))
	if f.Compose != "" {
		r.line(&b, conversation.AlignLeft, "> "+f.Compose)
	}
	if f.Notice != "" {
		r.line(&b, conversation.AlignLeft, r.hint.Sprint(f.Notice))
	}
	if f.Error != "" {
		r.line(&b, conversation.AlignLeft, r.errText.Sprint(truncate(f.Error, r.width)))
	}
	return b.String()
}

func (r *Renderer) renderRow(b *strings.Builder, row conversation.Row) {
	ref := "[" + strconv.Itoa(row.Index) + "]"

	if row.Own {
		r.line(b, row.Align, r.own.Sprint(row.Label)+" "+r.hint.Sprint(ref))
	} else {
		r.line(b, row.Align, r.hint.Sprint(ref)+" "+r.counter.Sprint(row.Label))
	}

	if row.Editing {
		r.line(b, row.Align, r.field.Sprint("["+row.EditText+"]")+" "+r.hint.Sprint("/save"))
	} else {
		r.line(b, row.Align, row.Text)
	}

	if row.Own {
		idx := strconv.Itoa(row.Index)
		r.line(b, row.Align, r.hint.Sprint("/edit "+idx+"  /delete "+idx))
	}
	b.WriteString("\n")
}

func (r *Renderer) line(b *strings.Builder, align conversation.Align, s string) {
	if align == conversation.AlignRight {
		if pad := r.width - visibleWidth(s); pad > 0 {
			b.WriteString(strings.Repeat(" ", pad))
		}
	}
	b.WriteString(s)
	b.WriteString("\n")
}

// visibleWidth counts runes outside ANSI escape sequences.
func visibleWidth(s string) int {
	n := 0
	inEscape := false
	for _, c := range s {
		switch {
		case inEscape:
			if c == 'm' {
				inEscape = false
			}
		case c == '\x1b':
			inEscape = true
		default:
			n++
		}
	}
	return n
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
