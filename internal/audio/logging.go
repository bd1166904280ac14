package audio

import (
	"io"

	"github.com/speechassess/cefrgrade/internal/logging"
	"github.com/speechassess/cefrgrade/internal/ui"
)

var logger = &logging.Logger{PrefixText: "Audio:", PrefixColor: ui.FgGreen}

// SetLogger sets an optional destination for audio decoding logs.
// When set to nil, logging is disabled.
func SetLogger(w io.Writer) { logger.SetWriter(w) }

func logf(file string, format string, args ...any) {
	logger.Logf(file, format, args...)
}
