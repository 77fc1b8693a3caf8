package config

import (
	"strconv"
	"strings"
)

// NamedTool pairs a tool with its configuration key.
type NamedTool struct {
	Name string
	Tool *Tool
}

// All lists every tool in a fixed order. Entries point into t.
func (t *ToolsConfig) All() []NamedTool {
	return []NamedTool{
		{"latex", &t.Latex},
		{"bibtex", &t.Bibtex},
		{"makeindex", &t.MakeIndex},
		{"splitindex", &t.SplitIndex},
		{"makeglossaries", &t.MakeGlossaries},
		{"xindy", &t.Xindy},
		{"pythontex", &t.Pythontex},
		{"fig2dev", &t.Fig2Dev},
		{"gnuplot", &t.Gnuplot},
		{"metapost", &t.MetaPost},
		{"inkscape", &t.Inkscape},
		{"ebb", &t.Ebb},
		{"dvi2pdf", &t.Dvi2Pdf},
		{"tex4ht", &t.Tex4ht},
		{"latex2rtf", &t.Latex2Rtf},
		{"odt2doc", &t.Odt2Doc},
		{"pdf2txt", &t.Pdf2Txt},
		{"chktex", &t.ChkTex},
	}
}

// Param is one named, read-only view on a configuration value.
type Param struct {
	Name string
	Get  func(*Config) string
}

// Params returns the parameters printed by `texbuilder cfg` and substituted into injected files.
// The list is explicit so that names stay stable when struct fields move.
func Params() []Param {
	params := []Param{
		{"source.root", func(c *Config) string { return c.Source.Root }},
		{"source.recursive", func(c *Config) string { return strconv.FormatBool(c.Source.Recursive) }},
		{"source.exclude", func(c *Config) string { return strings.Join(c.Source.Exclude, ",") }},
		{"source.respect_gitignore", func(c *Config) string { return strconv.FormatBool(c.Source.RespectGitignore) }},
		{"output.directory", func(c *Config) string { return c.Output.Directory }},
		{"output.clean_up", func(c *Config) string { return strconv.FormatBool(c.Output.CleanUp) }},
		{"output.include", func(c *Config) string { return strings.Join(c.Output.Include, ",") }},
		{"output.exclude", func(c *Config) string { return strings.Join(c.Output.Exclude, ",") }},
		{"latex.targets", func(c *Config) string { return strings.Join(c.Latex.Targets, ",") }},
		{"latex.pdf_via_dvi", func(c *Config) string { return strconv.FormatBool(c.Latex.PdfViaDvi) }},
		{"latex.max_reruns", func(c *Config) string { return strconv.Itoa(c.Latex.MaxReruns) }},
		{"latex.debug_bad_boxes", func(c *Config) string { return strconv.FormatBool(c.Latex.DebugBadBoxes) }},
		{"latex.debug_warnings", func(c *Config) string { return strconv.FormatBool(c.Latex.DebugWarnings) }},
		{"latex.create_bounding_boxes", func(c *Config) string { return strconv.FormatBool(c.Latex.CreateBoundingBoxes) }},
		{"latex.main_file_pattern", func(c *Config) string { return c.Latex.MainFilePattern }},
		{"latex.created_from_main_pattern", func(c *Config) string { return c.Latex.CreatedFromMainPattern }},
		{"latex.html_style_options", func(c *Config) string { return c.Latex.HTMLStyleOptions }},
	}
	names := (&ToolsConfig{}).All()
	for i := range names {
		idx := i
		prefix := "tools." + names[i].Name + "."
		tool := func(c *Config) *Tool { return c.Tools.All()[idx].Tool }
		params = append(params,
			Param{prefix + "command", func(c *Config) string { return tool(c).Command }},
			Param{prefix + "options", func(c *Config) string { return tool(c).Options }},
			Param{prefix + "error_pattern", func(c *Config) string { return tool(c).ErrorPattern }},
			Param{prefix + "warning_pattern", func(c *Config) string { return tool(c).WarningPattern }},
			Param{prefix + "rerun_pattern", func(c *Config) string { return tool(c).RerunPattern }},
		)
	}
	params = append(params,
		Param{"metrics.textfile_path", func(c *Config) string { return c.Metrics.TextfilePath }},
		Param{"history.path", func(c *Config) string { return c.History.Path }},
		Param{"notify.url", func(c *Config) string { return c.Notify.URL }},
		Param{"notify.subject", func(c *Config) string { return c.Notify.Subject }},
	)
	return params
}

// ParamMap evaluates every parameter against c.
func ParamMap(c *Config) map[string]string {
	out := make(map[string]string)
	for _, p := range Params() {
		out[p.Name] = p.Get(c)
	}
	return out
}
