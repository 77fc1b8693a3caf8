package config

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
)

func TestParseKeepsDefaultsForAbsentKeys(t *testing.T) {
	cfg, err := Parse([]byte(`
source:
  root: docs
tools:
  latex:
    command: pdflatex
latex:
  max_reruns: 3
`))
	require.NoError(t, err)

	assert.Equal(t, "docs", cfg.Source.Root)
	assert.True(t, cfg.Source.Recursive)
	assert.Equal(t, "pdflatex", cfg.Tools.Latex.Command)
	assert.Equal(t, DefaultLatexErrorPattern, cfg.Tools.Latex.ErrorPattern)
	assert.Equal(t, "bibtex", cfg.Tools.Bibtex.Command)
	assert.Equal(t, 3, cfg.Latex.MaxReruns)
	assert.True(t, cfg.Latex.DebugBadBoxes)
	assert.Equal(t, []string{"pdf"}, cfg.Latex.Targets)
	assert.True(t, cfg.Output.CleanUp)
}

func TestParseExpandsEnvironment(t *testing.T) {
	t.Setenv("TEXBUILDER_TEST_OUT", "/tmp/texout")
	cfg, err := Parse([]byte("output:\n  directory: ${TEXBUILDER_TEST_OUT}\n"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/texout", cfg.Output.Directory)
}

func TestNormalizeClampsMaxReruns(t *testing.T) {
	cfg, err := Parse([]byte("latex:\n  max_reruns: -7\n  targets: [PDF, ' html', pdf]\n"))
	require.NoError(t, err)
	assert.Equal(t, -1, cfg.Latex.MaxReruns)
	assert.Equal(t, []string{"pdf", "html"}, cfg.Latex.Targets)
	assert.NotEmpty(t, cfg.Warnings())
}

func TestNormalizeRejectsBrokenPattern(t *testing.T) {
	_, err := Parse([]byte("tools:\n  bibtex:\n    error_pattern: '(unclosed'\n"))
	require.Error(t, err)

	ce, ok := foundationerrors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, foundationerrors.CategoryConfig, ce.Category())
	field, _ := ce.Context().GetString("field")
	assert.Equal(t, "tools.bibtex.error_pattern", field)
}

func TestNormalizeRejectsEmptyCommand(t *testing.T) {
	_, err := Parse([]byte("tools:\n  chktex:\n    command: '  '\n"))
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryValidation))
}

func TestNormalizeRejectsBrokenOptions(t *testing.T) {
	_, err := Parse([]byte("tools:\n  chktex:\n    options: '-q \"unterminated'\n"))
	require.Error(t, err)

	ce, ok := foundationerrors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, foundationerrors.CategoryConfig, ce.Category())
	assert.True(t, ce.IsFatal())
	field, _ := ce.Context().GetString("field")
	assert.Equal(t, "tools.chktex.options", field)
}

func TestDefaultMainFilePatternGroups(t *testing.T) {
	re := regexp.MustCompile("(?m)" + DefaultMainFilePattern)

	head := "%! LMP docClass=beamer targets=pdf,chk\n% a comment\n\\RequirePackage{luatex85}\n\\documentclass[a4paper]{article}"
	m := re.FindStringSubmatch(head)
	require.NotNil(t, m)
	assert.Equal(t, "article", m[re.SubexpIndex("docClass")])
	assert.Equal(t, "beamer", m[re.SubexpIndex("docClassMagic")])
	assert.Equal(t, "pdf,chk", m[re.SubexpIndex("targetsMagic")])

	assert.False(t, re.MatchString("\\section{Intro}\n\\documentclass{article}"))
}

func TestLoadAndInitRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)

	require.NoError(t, Init(path, false))
	require.Error(t, Init(path, false), "existing file must not be overwritten without force")
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Tools, cfg.Tools)
	assert.Equal(t, ".texbuilder/history.db", cfg.History.Path)
	assert.Equal(t, DefaultCreatedFromMainPattern, cfg.Latex.CreatedFromMainPattern, "T$T must survive env expansion")

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestLoadEnvFileDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.NoError(t, os.WriteFile(".env", []byte("TEXBUILDER_ENV_A=from-file\nTEXBUILDER_ENV_B=from-file\n"), 0o600))
	t.Setenv("TEXBUILDER_ENV_A", "from-process")
	t.Setenv("TEXBUILDER_ENV_B", "")
	require.NoError(t, os.Unsetenv("TEXBUILDER_ENV_B"))

	require.NoError(t, loadEnvFile())
	assert.Equal(t, "from-process", os.Getenv("TEXBUILDER_ENV_A"))
	assert.Equal(t, "from-file", os.Getenv("TEXBUILDER_ENV_B"))
}

func TestParamsCoverEveryTool(t *testing.T) {
	cfg := Default()
	values := ParamMap(cfg)

	for _, nt := range cfg.Tools.All() {
		assert.Equal(t, nt.Tool.Command, values["tools."+nt.Name+".command"])
	}
	assert.Equal(t, "5", values["latex.max_reruns"])
	assert.Equal(t, "true", values["output.clean_up"])

	seen := map[string]bool{}
	for _, p := range Params() {
		assert.False(t, seen[p.Name], "duplicate parameter %s", p.Name)
		seen[p.Name] = true
	}
}
