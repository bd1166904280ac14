package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/speechassess/cefrgrade/internal/apperr"
	"github.com/speechassess/cefrgrade/internal/ui"
	"github.com/speechassess/cefrgrade/internal/validator"
)

var (
	validateInput    string
	validateFormat   string
	validateStrict   bool
	validateMinScore float64
	validateSpec     string
	validatePlain    bool
	validateLogLevel string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a model card written by 'experiment --bom'",
	Long:  "Checks that a CycloneDX model card carries the fields, metrics and properties cefrgrade records, and that their values are in range.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if validateInput == "" {
			return apperr.User("--input is required")
		}
		level, err := resolveLogLevel("validate")
		if err != nil {
			return err
		}
		wireLogging(level, cmd.ErrOrStderr())

		res, err := validator.ValidateFile(validateInput, viper.GetString("validate.format"), validator.ValidationOptions{
			StrictMode:           viper.GetBool("validate.strict"),
			MinCompletenessScore: viper.GetFloat64("validate.min-score"),
			SpecVersion:          viper.GetString("validate.spec"),
		})
		if err != nil {
			return fmt.Errorf("failed to read model card: %w", err)
		}

		report := ui.ValidationReport{
			Path:              validateInput,
			ModelName:         res.ModelName,
			Valid:             res.Valid,
			Errors:            res.Errors,
			Warnings:          res.Warnings,
			CompletenessScore: res.CompletenessScore,
			MissingRequired:   res.MissingRequired,
			MissingOptional:   res.MissingOptional,
		}
		for _, m := range res.Metrics {
			report.Metrics = append(report.Metrics, ui.MetricView{Type: m.Type, Slice: m.Slice, Value: m.Value})
		}

		vui := ui.NewValidationUI(cmd.OutOrStdout(), level == "quiet")
		switch {
		case viper.GetBool("validate.plain"):
			fmt.Fprintln(cmd.OutOrStdout(), validator.FormatSummary(res))
		case level == "quiet":
			vui.PrintSimpleReport(report)
		default:
			vui.PrintReport(report)
		}

		if !res.Valid {
			return fmt.Errorf("validation failed")
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateInput, "input", "i", "", "Path to the model card (required)")
	validateCmd.Flags().StringVarP(&validateFormat, "format", "f", "auto", "Input format: json|xml|auto")
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "Fail when completeness is below --min-score")
	validateCmd.Flags().Float64Var(&validateMinScore, "min-score", 0.8, "Minimum completeness score (0.0-1.0) in strict mode")
	validateCmd.Flags().StringVar(&validateSpec, "spec", "", "Required CycloneDX spec version (1.5|1.6)")
	validateCmd.Flags().BoolVar(&validatePlain, "plain", false, "Print a single summary line")
	validateCmd.Flags().StringVar(&validateLogLevel, "log-level", "", "Log level: quiet|standard|debug")

	validateCmd.MarkFlagRequired("input")

	viper.BindPFlag("validate.format", validateCmd.Flags().Lookup("format"))
	viper.BindPFlag("validate.strict", validateCmd.Flags().Lookup("strict"))
	viper.BindPFlag("validate.min-score", validateCmd.Flags().Lookup("min-score"))
	viper.BindPFlag("validate.spec", validateCmd.Flags().Lookup("spec"))
	viper.BindPFlag("validate.plain", validateCmd.Flags().Lookup("plain"))
	viper.BindPFlag("validate.log-level", validateCmd.Flags().Lookup("log-level"))
}
