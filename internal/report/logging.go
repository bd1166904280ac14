package report

import (
	"io"

	"github.com/speechassess/cefrgrade/internal/logging"
	"github.com/speechassess/cefrgrade/internal/ui"
)

var logger = &logging.Logger{PrefixText: "Fold Report:", PrefixColor: ui.FgCyan}

// SetLogger sets an optional destination for per-fold report output.
// When set to nil, report output is disabled.
func SetLogger(w io.Writer) { logger.SetWriter(w) }

func logf(fold string, format string, args ...any) {
	logger.Logf(fold, format, args...)
}
