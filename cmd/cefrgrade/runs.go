package cmd

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/speechassess/cefrgrade/internal/apperr"
	"github.com/speechassess/cefrgrade/internal/store"
	"github.com/speechassess/cefrgrade/internal/ui"
)

var (
	runsLedger   string
	runsExpRoot  string
	runsLimit    int
	runsLogLevel string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List experiment runs recorded in the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := resolveLogLevel("runs")
		if err != nil {
			return err
		}
		wireLogging(level, cmd.ErrOrStderr())

		path := viper.GetString("runs.ledger")
		if path == "" {
			path = filepath.Join(viper.GetString("runs.exp-root"), "runs.db")
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return apperr.Userf("no run ledger at %s (run 'cefrgrade experiment' first)", path)
		}

		s, err := store.Open(path)
		if err != nil {
			return err
		}
		defer s.Close()

		runs, err := s.List(cmd.Context(), viper.GetInt("runs.limit"))
		if err != nil {
			return err
		}
		views := make([]ui.RunView, 0, len(runs))
		for _, r := range runs {
			views = append(views, ui.RunView{
				ID:         r.ID,
				StartedAt:  r.StartedAt,
				Model:      r.Model,
				Regressor:  r.Regressor,
				Aspect:     r.Aspect,
				Part:       r.Part,
				Folds:      r.Folds,
				Thresholds: r.Thresholds,
				Accuracy:   r.Accuracy,
				MacroF1:    r.MacroF1,
			})
		}
		ui.NewExperimentUI(cmd.OutOrStdout(), level == "quiet").PrintRuns(views)
		return nil
	},
}

func init() {
	runsCmd.Flags().StringVar(&runsLedger, "ledger", "", "SQLite run ledger (default <exp-root>/runs.db)")
	runsCmd.Flags().StringVar(&runsExpRoot, "exp-root", "exp", "Root directory for experiment outputs")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs to list (0 lists all)")
	runsCmd.Flags().StringVar(&runsLogLevel, "log-level", "", "Log level: quiet|standard|debug")

	viper.BindPFlag("runs.ledger", runsCmd.Flags().Lookup("ledger"))
	viper.BindPFlag("runs.exp-root", runsCmd.Flags().Lookup("exp-root"))
	viper.BindPFlag("runs.limit", runsCmd.Flags().Lookup("limit"))
	viper.BindPFlag("runs.log-level", runsCmd.Flags().Lookup("log-level"))
}
