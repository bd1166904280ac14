package dataset

import (
	"io"

	"github.com/speechassess/cefrgrade/internal/logging"
	"github.com/speechassess/cefrgrade/internal/ui"
)

var logger = &logging.Logger{PrefixText: "Dataset:", PrefixColor: ui.FgYellow, OmitFold: true}

// SetLogger sets an optional destination for dataset loading logs.
// When set to nil, logging is disabled.
func SetLogger(w io.Writer) { logger.SetWriter(w) }

func logf(format string, args ...any) {
	logger.Logf("", format, args...)
}
