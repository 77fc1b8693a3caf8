package config

import (
	"fmt"
	"regexp"
	"strings"

	foundationerrors "git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/toolexec"
)

// NormalizationResult captures adjustments & warnings from normalization pass.
type NormalizationResult struct{ Warnings []string }

// NormalizeConfig trims and bounds fields and checks that every pattern compiles and
// every option string splits into words. It mutates the provided config in-place.
// A broken pattern or option string is a fatal config error.
func NormalizeConfig(c *Config) (*NormalizationResult, error) {
	if c == nil {
		return nil, fmt.Errorf("config nil")
	}
	res := &NormalizationResult{}

	c.Source.Root = strings.TrimSpace(c.Source.Root)
	if c.Source.Root == "" {
		return nil, foundationerrors.ValidationError("source root must not be empty").
			WithContext("field", "source.root").Build()
	}
	c.Source.Exclude = normalizeStringSlice("source.exclude", c.Source.Exclude, res)
	c.Output.Directory = strings.TrimSpace(c.Output.Directory)
	c.Output.Include = normalizeStringSlice("output.include", c.Output.Include, res)
	c.Output.Exclude = normalizeStringSlice("output.exclude", c.Output.Exclude, res)

	targets := make([]string, 0, len(c.Latex.Targets))
	for _, t := range c.Latex.Targets {
		targets = append(targets, strings.ToLower(t))
	}
	c.Latex.Targets = normalizeStringSlice("latex.targets", targets, res)

	if c.Latex.MaxReruns < -1 {
		res.Warnings = append(res.Warnings, warnChanged("latex.max_reruns", c.Latex.MaxReruns, -1))
		c.Latex.MaxReruns = -1
	}

	if err := normalizePatterns(c, res); err != nil {
		return nil, err
	}
	for _, nt := range c.Tools.All() {
		nt.Tool.Command = strings.TrimSpace(nt.Tool.Command)
		nt.Tool.Options = strings.TrimSpace(nt.Tool.Options)
		if nt.Tool.Command == "" {
			return nil, foundationerrors.ValidationError("tool command must not be empty").
				WithContext("field", "tools."+nt.Name+".command").Build()
		}
		if _, err := toolexec.SplitOptions(nt.Tool.Options); err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "invalid options").
				Fatal().
				WithContext("field", "tools."+nt.Name+".options").
				Build()
		}
	}
	if c.Notify.URL != "" && strings.TrimSpace(c.Notify.Subject) == "" {
		res.Warnings = append(res.Warnings, warnChanged("notify.subject", c.Notify.Subject, "texbuilder.builds"))
		c.Notify.Subject = "texbuilder.builds"
	}
	return res, nil
}

func normalizePatterns(c *Config, res *NormalizationResult) error {
	checks := []struct {
		field   string
		pattern string
	}{
		{"latex.main_file_pattern", c.Latex.MainFilePattern},
		// T$T is replaced by a quoted document stem before use
		{"latex.created_from_main_pattern", strings.ReplaceAll(c.Latex.CreatedFromMainPattern, "T$T", "stem")},
	}
	for _, nt := range c.Tools.All() {
		prefix := "tools." + nt.Name + "."
		checks = append(checks,
			struct{ field, pattern string }{prefix + "error_pattern", nt.Tool.ErrorPattern},
			struct{ field, pattern string }{prefix + "warning_pattern", nt.Tool.WarningPattern},
			struct{ field, pattern string }{prefix + "rerun_pattern", nt.Tool.RerunPattern},
		)
	}
	for _, chk := range checks {
		if chk.pattern == "" {
			continue
		}
		if _, err := regexp.Compile(chk.pattern); err != nil {
			return foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "invalid pattern").
				Fatal().
				WithContext("field", chk.field).
				Build()
		}
	}
	if !strings.Contains(c.Latex.MainFilePattern, "(?P<docClass>") && !strings.Contains(c.Latex.MainFilePattern, "(?<docClass>") {
		res.Warnings = append(res.Warnings, "latex.main_file_pattern has no docClass group; document classes will not be reported")
	}
	return nil
}

// normalizeStringSlice trims and dedupes a string slice, preserving order.
// It records a warning when changes occur.
func normalizeStringSlice(label string, in []string, res *NormalizationResult) []string {
	if len(in) == 0 {
		return in
	}

	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	changed := false

	for _, v := range in {
		t := strings.TrimSpace(v)
		if t == "" {
			changed = true
			continue
		}
		if _, ok := seen[t]; ok {
			changed = true
			continue
		}
		if t != v {
			changed = true
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	if changed {
		res.Warnings = append(res.Warnings, fmt.Sprintf("normalized %s list (%d -> %d entries)", label, len(in), len(out)))
	}
	return out
}

func warnChanged(field string, from, to any) string {
	return fmt.Sprintf("normalized %s from '%v' to '%v'", field, from, to)
}
