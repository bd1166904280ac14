// Package interactive collects experiment settings through a terminal form.
package interactive

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/speechassess/cefrgrade/internal/apperr"
	"github.com/speechassess/cefrgrade/internal/dataset"
	"github.com/speechassess/cefrgrade/internal/grade"
	"github.com/speechassess/cefrgrade/internal/model"
	"github.com/speechassess/cefrgrade/internal/ui"
)

// Settings are the experiment values the form can change. Fields hold the
// current flag values on entry and the confirmed values on return.
type Settings struct {
	Regressor  string
	Alpha      float64
	Folds      int
	Aspect     string
	Preset     string
	Thresholds string
	Scale      bool
	Format     string
	// SelectFeatures enables per-fold feature selection.
	SelectFeatures bool
}

// form keeps every field as a string so huh inputs can bind to it.
type form struct {
	regressor  string
	alpha      string
	folds      string
	aspect     string
	preset     string
	thresholds string
	scale      bool
	format     string
	selection  bool
}

func newForm(s Settings) *form {
	return &form{
		regressor:  s.Regressor,
		alpha:      strconv.FormatFloat(s.Alpha, 'g', -1, 64),
		folds:      strconv.Itoa(s.Folds),
		aspect:     s.Aspect,
		preset:     s.Preset,
		thresholds: s.Thresholds,
		scale:      s.Scale,
		format:     s.Format,
		selection:  s.SelectFeatures,
	}
}

// apply parses the form values back into s.
func (f *form) apply(s *Settings) error {
	alpha, err := parseAlpha(f.alpha)
	if err != nil {
		return err
	}
	folds, err := parseFolds(f.folds)
	if err != nil {
		return err
	}
	if _, err := dataset.AspectName(f.aspect); err != nil {
		return err
	}
	if strings.TrimSpace(f.thresholds) != "" {
		if _, err := grade.ParseThresholds(f.thresholds); err != nil {
			return err
		}
	}
	*s = Settings{
		Regressor:  f.regressor,
		Alpha:      alpha,
		Folds:      folds,
		Aspect:     f.aspect,
		Preset:     f.preset,
		Thresholds: strings.TrimSpace(f.thresholds),
		Scale:      f.scale,
		Format:     f.format,

		SelectFeatures: f.selection,
	}
	return nil
}

func parseAlpha(v string) (float64, error) {
	a, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("alpha must be a number")
	}
	if a < 0 {
		return 0, fmt.Errorf("alpha must be >= 0")
	}
	return a, nil
}

func parseFolds(v string) (int, error) {
	k, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || k < 2 {
		return 0, fmt.Errorf("folds must be an integer >= 2")
	}
	return k, nil
}

func validateThresholds(v string) error {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	_, err := grade.ParseThresholds(v)
	return err
}

func options(values ...string) []huh.Option[string] {
	out := make([]huh.Option[string], 0, len(values))
	for _, v := range values {
		out = append(out, huh.NewOption(v, v))
	}
	return out
}

func aspectOptions() []huh.Option[string] {
	var out []huh.Option[string]
	for _, id := range []string{"1", "2", "3"} {
		name, _ := dataset.AspectName(id)
		out = append(out, huh.NewOption(fmt.Sprintf("%s (%s)", id, name), id))
	}
	return out
}

func (f *form) groups() []*huh.Group {
	return []*huh.Group{
		huh.NewGroup(
			huh.NewNote().
				Title("Experiment").
				Description("Review the cross-validation settings.\nValues come from flags and config; press Enter to keep them.").
				Next(true).
				NextLabel("Continue"),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Model").
				Options(options(model.Names()...)...).
				Value(&f.regressor),
			huh.NewInput().
				Title("Alpha"+ui.Muted.Render(" (regularization strength of lasso and linear)")).
				Value(&f.alpha).
				Validate(func(s string) error { _, err := parseAlpha(s); return err }),
			huh.NewInput().
				Title("Folds").
				Value(&f.folds).
				Validate(func(s string) error { _, err := parseFolds(s); return err }),
			huh.NewConfirm().
				Title("Min-max scale features per fold?").
				Value(&f.scale),
			huh.NewConfirm().
				Title("Select features per fold?").
				Description(ui.Muted.Render("Keeps the features a randomized tree forest ranks at or above mean importance.")).
				Value(&f.selection),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Aspect").
				Options(aspectOptions()...).
				Value(&f.aspect),
			huh.NewSelect[string]().
				Title("Threshold preset").
				Options(options(grade.PresetNames()...)...).
				Value(&f.preset),
			huh.NewInput().
				Title("Thresholds").
				Description(ui.Muted.Render("Comma separated cut points; overrides the preset. Leave empty to use the preset.")).
				Placeholder("4,5").
				Value(&f.thresholds).
				Validate(validateThresholds),
			huh.NewSelect[string]().
				Title("Report format").
				Options(options("xlsx", "csv")...).
				Value(&f.format),
		),
	}
}

// Configure runs the form seeded with s and writes the confirmed values back.
// An aborted form yields apperr.ErrCancelled.
func Configure(s *Settings) error {
	f := newForm(*s)
	if err := huh.NewForm(f.groups()...).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return apperr.ErrCancelled
		}
		return fmt.Errorf("experiment form: %w", err)
	}
	return f.apply(s)
}
