package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/speechassess/cefrgrade/internal/ui"
)

// Logger is a tiny opt-in logger used across internal packages.
// When Writer is nil, logging is disabled.
//
// The output format is:
//
//	<ColoredPrefix> fold=<foldID> <formattedMessage>\n
//
// where <foldID> is trimmed and defaults to "(all)".
type Logger struct {
	Writer io.Writer

	PrefixText  string
	PrefixColor string

	// OmitFold controls whether the fold field is written.
	// When false (default), output includes: "fold=<id>".
	OmitFold bool
}

func (l *Logger) SetWriter(w io.Writer) { l.Writer = w }

func (l *Logger) Enabled() bool { return l != nil && l.Writer != nil }

func (l *Logger) Logf(foldID string, format string, args ...any) {
	if l == nil || l.Writer == nil {
		return
	}
	prefix := l.PrefixText
	if prefix == "" {
		prefix = "Log:"
	}
	if l.PrefixColor != "" {
		prefix = ui.Color(prefix, l.PrefixColor)
	}
	msg := fmt.Sprintf(format, args...)
	if l.OmitFold {
		fmt.Fprintf(l.Writer, "%s %s\n", prefix, msg)
		return
	}

	f := strings.TrimSpace(foldID)
	if f == "" {
		f = "(all)"
	}
	fmt.Fprintf(l.Writer, "%s fold=%s %s\n", prefix, f, msg)
}
