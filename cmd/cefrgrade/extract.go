package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/speechassess/cefrgrade/internal/apperr"
	"github.com/speechassess/cefrgrade/internal/audio"
	bomio "github.com/speechassess/cefrgrade/internal/io"
	"github.com/speechassess/cefrgrade/internal/scanner"
	"github.com/speechassess/cefrgrade/internal/ui"
)

var (
	extractInputs    []string
	extractPart      string
	extractOutput    string
	extractFormat    string
	extractFMin      float64
	extractFMax      float64
	extractThreshold float64
	extractKeepGoing bool
	extractLogLevel  string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract pitch and energy statistics from WAV recordings",
	Long: "Tracks f0 (YIN) and frame RMS energy for every recording and writes one feature row per file. " +
		"The speaker id is the file name up to the first '-', the test part is the second '-' field.",
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	level, err := resolveLogLevel("extract")
	if err != nil {
		return err
	}
	quiet := level == "quiet"
	wireLogging(level, cmd.ErrOrStderr())

	inputs := append(viper.GetStringSlice("extract.input"), args...)
	if len(inputs) == 0 {
		return apperr.User("--input is required (wav files or directories)")
	}
	part := viper.GetString("extract.part")
	output := viper.GetString("extract.output")
	if output == "" {
		output = "feats.xlsx"
	}
	if !bomio.IsTablePath(output) && viper.GetString("extract.format") == "auto" {
		return apperr.Userf("output %q must end in .xlsx or .csv", output)
	}

	recs, err := scanner.Expand(inputs, scanner.Options{Part: part})
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return apperr.User("no .wav recordings found")
	}

	opts := audio.DefaultPitchOptions()
	if v := viper.GetFloat64("extract.fmin"); v > 0 {
		opts.FMin = v
	}
	if v := viper.GetFloat64("extract.fmax"); v > 0 {
		opts.FMax = v
	}
	if v := viper.GetFloat64("extract.threshold"); v > 0 {
		opts.Threshold = v
	}
	if opts.FMin >= opts.FMax {
		return apperr.Userf("--fmin (%g) must be below --fmax (%g)", opts.FMin, opts.FMax)
	}

	names := make([]string, len(recs))
	for i, r := range recs {
		names[i] = filepath.Base(r.Path)
	}
	var tracker *ui.ProgressTracker
	if !quiet {
		tracker = ui.NewProgressTracker(cmd.OutOrStdout(), "Extracting acoustic features", names)
		tracker.Start()
	}

	ctx := cmd.Context()
	keepGoing := viper.GetBool("extract.keep-going")
	var rows []audio.FeatureRow
	var failed int
	for i, r := range recs {
		if ctx != nil && ctx.Err() != nil {
			err = ctx.Err()
			break
		}
		if tracker != nil {
			tracker.UpdateStep(i, ui.StatusRunning, "")
		}
		recPart := part
		if r.Part != "" {
			recPart = ""
		}
		row, exErr := audio.Extract(r.Path, recPart, opts)
		if exErr != nil {
			failed++
			if tracker != nil {
				tracker.UpdateStep(i, ui.StatusFailed, exErr.Error())
			}
			if !keepGoing {
				err = exErr
				break
			}
			continue
		}
		rows = append(rows, row)
		if tracker != nil {
			tracker.UpdateStep(i, ui.StatusComplete, fmt.Sprintf("%.1fs, speaker %s", row.Duration, row.Speaker))
		}
	}
	if err == nil && len(rows) > 0 {
		if tracker != nil {
			tracker.SetMessage("writing " + output)
		}
		if dir := filepath.Dir(output); dir != "." {
			err = os.MkdirAll(dir, 0o755)
		}
		if err == nil {
			err = bomio.WriteFeatureTable(output, viper.GetString("extract.format"), rows)
		}
	}
	if tracker != nil {
		tracker.Complete(err)
	}
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("all %d recordings failed", failed)
	}

	if !quiet {
		msg := fmt.Sprintf("Wrote %d feature rows to %s", len(rows), output)
		if failed > 0 {
			fmt.Fprintln(cmd.OutOrStdout(), ui.FormatStatus("warning", fmt.Sprintf("%s (%d failed)", msg, failed)))
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), ui.FormatStatus("success", msg))
		}
	}
	return nil
}

func init() {
	extractCmd.Flags().StringSliceVarP(&extractInputs, "input", "i", nil, "WAV files or directories (repeatable or comma-separated)")
	extractCmd.Flags().StringVar(&extractPart, "part", "", "Keep recordings of this test part; also labels files whose name has no part")
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "feats.xlsx", "Feature table path (.xlsx or .csv)")
	extractCmd.Flags().StringVarP(&extractFormat, "format", "f", "auto", "Feature table format: xlsx|csv|auto")
	extractCmd.Flags().Float64Var(&extractFMin, "fmin", 0, "Lowest detectable f0 in Hz (default C2, 65.41)")
	extractCmd.Flags().Float64Var(&extractFMax, "fmax", 0, "Highest detectable f0 in Hz (default C7, 2093)")
	extractCmd.Flags().Float64Var(&extractThreshold, "threshold", 0, "YIN voicing threshold (default 0.1)")
	extractCmd.Flags().BoolVar(&extractKeepGoing, "keep-going", false, "Skip recordings that fail to decode instead of stopping")
	extractCmd.Flags().StringVar(&extractLogLevel, "log-level", "", "Log level: quiet|standard|debug")

	viper.BindPFlag("extract.input", extractCmd.Flags().Lookup("input"))
	viper.BindPFlag("extract.part", extractCmd.Flags().Lookup("part"))
	viper.BindPFlag("extract.output", extractCmd.Flags().Lookup("output"))
	viper.BindPFlag("extract.format", extractCmd.Flags().Lookup("format"))
	viper.BindPFlag("extract.fmin", extractCmd.Flags().Lookup("fmin"))
	viper.BindPFlag("extract.fmax", extractCmd.Flags().Lookup("fmax"))
	viper.BindPFlag("extract.threshold", extractCmd.Flags().Lookup("threshold"))
	viper.BindPFlag("extract.keep-going", extractCmd.Flags().Lookup("keep-going"))
	viper.BindPFlag("extract.log-level", extractCmd.Flags().Lookup("log-level"))
}
