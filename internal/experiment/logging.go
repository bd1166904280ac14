package experiment

import (
	"io"

	"github.com/speechassess/cefrgrade/internal/logging"
	"github.com/speechassess/cefrgrade/internal/ui"
)

var logger = &logging.Logger{PrefixText: "Experiment:", PrefixColor: ui.FgMagenta}

// SetLogger sets an optional destination for experiment logs.
// When set to nil, logging is disabled.
func SetLogger(w io.Writer) { logger.SetWriter(w) }

func logf(fold string, format string, args ...any) {
	logger.Logf(fold, format, args...)
}
