package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/viper"

	"github.com/speechassess/cefrgrade/internal/audio"
	"github.com/speechassess/cefrgrade/internal/dataset"
	"github.com/speechassess/cefrgrade/internal/experiment"
	"github.com/speechassess/cefrgrade/internal/modelcard"
	"github.com/speechassess/cefrgrade/internal/report"
	"github.com/speechassess/cefrgrade/internal/store"
	"github.com/speechassess/cefrgrade/internal/validator"
)

// resolveLogLevel reads <command>.log-level from viper.
func resolveLogLevel(command string) (string, error) {
	level := strings.ToLower(strings.TrimSpace(viper.GetString(command + ".log-level")))
	if level == "" {
		level = "standard"
	}
	switch level {
	case "quiet", "standard", "debug":
		return level, nil
	}
	return "", fmt.Errorf("invalid --log-level %q (expected quiet|standard|debug)", level)
}

// wireLogging points every internal package logger at w in debug mode and
// disables them otherwise.
func wireLogging(level string, w io.Writer) {
	if level != "debug" {
		w = nil
	}
	audio.SetLogger(w)
	dataset.SetLogger(w)
	experiment.SetLogger(w)
	report.SetLogger(w)
	modelcard.SetLogger(w)
	store.SetLogger(w)
	validator.SetLogger(w)
}
