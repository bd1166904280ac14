package cmd

import (
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/speechassess/cefrgrade/internal/apperr"
	bomio "github.com/speechassess/cefrgrade/internal/io"
	"github.com/speechassess/cefrgrade/internal/stats"
)

var (
	summarizeInput   string
	summarizePrefix  string
	summarizeVariant string
	summarizeProfile string
	summarizeFormat  string
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [values...]",
	Short: "Compute descriptive statistics over a numeric sequence",
	Long: "Reads numbers from arguments, a file (-i) or stdin (-i -) and prints number, mean, std, median, mad, summ, max and min. " +
		"--variant normalizes the sequence first; --profile pitch|energy prints every column of an acoustic profile instead. " +
		"JSON output writes NaN and infinities as the strings \"NaN\", \"+Inf\" and \"-Inf\".",
	RunE: runSummarize,
}

func runSummarize(cmd *cobra.Command, args []string) error {
	input := viper.GetString("summarize.input")
	if len(args) > 0 && input != "" {
		return apperr.User("values and --input cannot be combined")
	}

	var seq []float64
	var err error
	switch {
	case len(args) > 0:
		seq, err = parseSequence(strings.Join(args, " "))
	case input == "-":
		seq, err = readSequence(cmd.InOrStdin())
	case input != "":
		f, openErr := os.Open(input)
		if openErr != nil {
			return openErr
		}
		defer f.Close()
		seq, err = readSequence(f)
	default:
		return apperr.User("no values given (pass them as arguments or use --input file|-)")
	}
	if err != nil {
		return err
	}

	var cols []stats.Column
	switch profile := strings.ToLower(strings.TrimSpace(viper.GetString("summarize.profile"))); profile {
	case "":
		name := viper.GetString("summarize.variant")
		if strings.TrimSpace(name) == "" {
			name = stats.Raw.String()
		}
		variant, err := stats.ParseVariant(name)
		if err != nil {
			return apperr.User(err.Error())
		}
		cols = stats.Summarize(variant.Apply(seq)).Columns(viper.GetString("summarize.prefix"))
	case "pitch":
		cols = stats.PitchProfile(seq).Columns()
	case "energy":
		cols = stats.EnergyProfile(seq).Columns()
	default:
		return apperr.Userf("invalid --profile %q (expected pitch|energy)", profile)
	}

	return bomio.WriteRecord(cmd.OutOrStdout(), viper.GetString("summarize.format"), cols)
}

func readSequence(r io.Reader) ([]float64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return parseSequence(string(data))
}

// parseSequence accepts numbers separated by whitespace or commas, optionally
// wrapped in brackets as in the frame list columns of a feature table.
func parseSequence(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ',', '[', ']', ' ', '\t', '\n', '\r':
			return true
		}
		return false
	})
	seq := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, apperr.Userf("%q is not a number", f)
		}
		if math.IsInf(v, 0) {
			return nil, apperr.Userf("%q is not finite", f)
		}
		seq = append(seq, v)
	}
	return seq, nil
}

func init() {
	summarizeCmd.Flags().StringVarP(&summarizeInput, "input", "i", "", "File with numbers, or - for stdin")
	summarizeCmd.Flags().StringVar(&summarizePrefix, "prefix", "", "Prefix for the output keys (e.g. f0_)")
	summarizeCmd.Flags().StringVar(&summarizeVariant, "variant", "raw", "Normalization applied first: raw|filtered|zscore|minmax|log")
	summarizeCmd.Flags().StringVar(&summarizeProfile, "profile", "", "Print a full acoustic profile: pitch|energy")
	summarizeCmd.Flags().StringVarP(&summarizeFormat, "format", "f", "yaml", "Output format: yaml|json")

	viper.BindPFlag("summarize.input", summarizeCmd.Flags().Lookup("input"))
	viper.BindPFlag("summarize.prefix", summarizeCmd.Flags().Lookup("prefix"))
	viper.BindPFlag("summarize.variant", summarizeCmd.Flags().Lookup("variant"))
	viper.BindPFlag("summarize.profile", summarizeCmd.Flags().Lookup("profile"))
	viper.BindPFlag("summarize.format", summarizeCmd.Flags().Lookup("format"))
}
