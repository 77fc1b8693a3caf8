package commands

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/texbuilder/internal/config"
	"git.home.luguber.info/inful/texbuilder/internal/eventstore"
	foundationerrors "git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/scanfilter"
)

func parse(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli, kong.Bind(&Global{}), kong.Vars{"version": "test"}, kong.Exit(func(int) {}))
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	require.NoError(t, err)
	return &cli, ctx
}

func TestParseCommands(t *testing.T) {
	cli, ctx := parse(t, "build", "-t", "pdf,html", "--no-clean-up")
	assert.Equal(t, "build", ctx.Command())
	assert.Equal(t, []string{"pdf", "html"}, cli.Build.Targets)
	assert.True(t, cli.Build.NoCleanUp)

	cli, ctx = parse(t, "watch", "--interval", "10m")
	assert.Equal(t, "watch", ctx.Command())
	assert.Equal(t, 10*time.Minute, cli.Watch.Interval)
	assert.Equal(t, 500*time.Millisecond, cli.Watch.Debounce)

	_, ctx = parse(t, "history", "abc")
	assert.Equal(t, "history <build-id>", ctx.Command())

	_, ctx = parse(t, "inject", "latexmkrc")
	assert.Equal(t, "inject <names>", ctx.Command())
}

func TestParseLogLevel(t *testing.T) {
	t.Setenv("TEXBUILDER_LOG_LEVEL", "warn")
	assert.Equal(t, slog.LevelWarn, parseLogLevel(false))
	assert.Equal(t, slog.LevelDebug, parseLogLevel(true))

	t.Setenv("TEXBUILDER_LOG_LEVEL", "")
	assert.Equal(t, slog.LevelInfo, parseLogLevel(false))
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing default file yields defaults", func(t *testing.T) {
		t.Chdir(dir)
		cli := &CLI{Config: filepath.Join(dir, config.DefaultFileName)}
		cfg, err := cli.loadConfig()
		require.NoError(t, err)
		assert.Equal(t, config.Default().Latex.Targets, cfg.Latex.Targets)
	})

	t.Run("missing default name in another directory is a config error", func(t *testing.T) {
		cli := &CLI{Config: filepath.Join(dir, "papers", config.DefaultFileName)}
		_, err := cli.loadConfig()
		require.Error(t, err)
		assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))
	})

	t.Run("missing explicit file is a config error", func(t *testing.T) {
		cli := &CLI{Config: filepath.Join(dir, "other.yaml")}
		_, err := cli.loadConfig()
		require.Error(t, err)
		assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))
	})

	t.Run("flags override file", func(t *testing.T) {
		path := filepath.Join(dir, "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte("source:\n  root: papers\nlatex:\n  max_reruns: 2\n"), 0o600))
		cli := &CLI{Config: path, Output: filepath.Join(dir, "out")}
		cfg, err := cli.loadConfig()
		require.NoError(t, err)
		assert.Equal(t, "papers", cfg.Source.Root)
		assert.Equal(t, 2, cfg.Latex.MaxReruns)
		assert.Equal(t, filepath.Join(dir, "out"), cfg.Output.Directory)

		cli.Root = filepath.Join(dir, "src")
		cfg, err = cli.loadConfig()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "src"), cfg.Source.Root)
	})
}

func TestPrintParams(t *testing.T) {
	var buf bytes.Buffer
	PrintParams(&buf, config.Default())
	out := buf.String()
	assert.Contains(t, out, "tools.latex.command = lualatex\n")
	assert.Contains(t, out, "latex.max_reruns = 5\n")
	assert.Equal(t, len(config.Params()), strings.Count(out, "\n"))
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	PrintHistory(&buf, []eventstore.BuildSummary{{
		BuildID:   "b1",
		Command:   "build",
		Status:    "warning",
		StartedAt: time.Now(),
		Documents: 2,
		Warnings:  1,
		Duration:  1500 * time.Millisecond,
	}})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "BUILD"))
	assert.Contains(t, lines[1], "WARNING")
	assert.Contains(t, lines[1], "1.5s")
}

func TestWatchIgnoresHiddenExcludedAndOutput(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Source.Root = root
	cfg.Source.RespectGitignore = false
	cfg.Source.Exclude = []string{"drafts/**"}
	cfg.Output.Directory = filepath.Join(root, "build")
	filter, err := scanfilter.New(cfg)
	require.NoError(t, err)

	ignore := ignoreFunc(cfg, filter)
	assert.True(t, ignore(".git", true))
	assert.True(t, ignore(filepath.Join("chapter", ".hidden.tex"), false))
	assert.True(t, ignore("build", true))
	assert.True(t, ignore(filepath.Join("build", "paper.pdf"), false))
	assert.True(t, ignore(filepath.Join("drafts", "a.tex"), false))
	assert.False(t, ignore("paper.tex", false))
	assert.False(t, ignore("builder.tex", false))
}

func TestRunInitWritesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.DefaultFileName)
	require.NoError(t, RunInit(path, false))
	assert.FileExists(t, path)

	err := RunInit(path, false)
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))
	require.NoError(t, RunInit(path, true))
}
