package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/speechassess/cefrgrade/internal/apperr"
	"github.com/speechassess/cefrgrade/internal/grade"
)

var (
	bucketizeThresholds string
	bucketizePreset     string
	bucketizeRound      bool
	bucketizeInput      string
)

var bucketizeCmd = &cobra.Command{
	Use:   "bucketize [grades...]",
	Short: "Map grades to CEFR buckets",
	Long: "Prints one \"grade bucket\" line per grade. The bucket is the number of thresholds <= grade. " +
		"Grades come from arguments or, with --input -, from stdin. Presets: " + strings.Join(grade.PresetNames(), ", ") + ".",
	RunE: runBucketize,
}

func runBucketize(cmd *cobra.Command, args []string) error {
	t, err := grade.Resolve(viper.GetString("bucketize.thresholds"), viper.GetString("bucketize.preset"))
	if err != nil {
		return apperr.User(err.Error())
	}

	var grades []float64
	switch input := viper.GetString("bucketize.input"); {
	case len(args) > 0 && input != "":
		return apperr.User("grades and --input cannot be combined")
	case input == "-":
		grades, err = readSequence(cmd.InOrStdin())
	case input != "":
		return apperr.Userf("--input only accepts - (stdin), got %q", input)
	default:
		grades, err = parseSequence(strings.Join(args, " "))
	}
	if err != nil {
		return err
	}
	if len(grades) == 0 {
		return apperr.User("no grades given")
	}

	round := viper.GetBool("bucketize.round")
	out := cmd.OutOrStdout()
	for _, g := range grades {
		v := g
		if round {
			v = grade.RoundHalf(g)
		}
		fmt.Fprintf(out, "%s %d\n", strconv.FormatFloat(g, 'g', -1, 64), grade.Bucketize(v, t))
	}
	return nil
}

func init() {
	bucketizeCmd.Flags().StringVarP(&bucketizeThresholds, "thresholds", "t", "", "Comma separated cut points (overrides --preset), e.g. 4,5")
	bucketizeCmd.Flags().StringVarP(&bucketizePreset, "preset", "p", grade.DefaultPreset, "Threshold preset: "+strings.Join(grade.PresetNames(), "|"))
	bucketizeCmd.Flags().BoolVar(&bucketizeRound, "round", false, "Round grades to the nearest half point before bucketizing")
	bucketizeCmd.Flags().StringVarP(&bucketizeInput, "input", "i", "", "Read grades from stdin (-)")

	viper.BindPFlag("bucketize.thresholds", bucketizeCmd.Flags().Lookup("thresholds"))
	viper.BindPFlag("bucketize.preset", bucketizeCmd.Flags().Lookup("preset"))
	viper.BindPFlag("bucketize.round", bucketizeCmd.Flags().Lookup("round"))
	viper.BindPFlag("bucketize.input", bucketizeCmd.Flags().Lookup("input"))
}
