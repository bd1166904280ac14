package modelcard

import (
	"io"

	"github.com/speechassess/cefrgrade/internal/logging"
	"github.com/speechassess/cefrgrade/internal/ui"
)

var logger = &logging.Logger{PrefixText: "Model card:", PrefixColor: ui.FgCyan, OmitFold: true}

// SetLogger sets an optional destination for model card logs.
// When set to nil, logging is disabled.
func SetLogger(w io.Writer) { logger.SetWriter(w) }

func logf(runID string, format string, args ...any) {
	logger.Logf(runID, format, args...)
}
