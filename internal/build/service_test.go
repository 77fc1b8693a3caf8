package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/texbuilder/internal/config"
	"git.home.luguber.info/inful/texbuilder/internal/eventstore"
	foundationerrors "git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/report"
	tbtest "git.home.luguber.info/inful/texbuilder/internal/testing"
)

const paperSource = "\\documentclass{article}\n\\begin{document}\n\\includegraphics{fig1}\n\\end{document}\n"

func fakeTools() *tbtest.FakeTools {
	return tbtest.NewFakeTools().
		Script("lualatex", func(w *tbtest.Workdir, _ []string, _ int) int {
			w.Write("paper.pdf", "%PDF")
			w.Write("paper.log", "This is LuaHBTeX\n")
			w.Write("paper.aux", "\\relax\n")
			return 0
		}).
		Script("fig2dev", func(w *tbtest.Workdir, args []string, _ int) int {
			w.Write(args[len(args)-1], "fig2dev output")
			return 0
		}).
		Script("chktex", func(w *tbtest.Workdir, _ []string, _ int) int {
			w.Write("paper.clg", "Warning 1 in paper.tex line 1\n")
			return 0
		})
}

type recordingPublisher struct{ reports []*report.BuildReport }

func (p *recordingPublisher) Publish(rep *report.BuildReport) error {
	p.reports = append(p.reports, rep)
	return nil
}

type fixture struct {
	cfg  *config.Config
	fa   *tbtest.FileAssertions
	fake *tbtest.FakeTools
	svc  *DefaultService
}

func newFixture(t *testing.T, cb func(*tbtest.ConfigBuilder)) *fixture {
	t.Helper()
	root := t.TempDir()
	fa := tbtest.NewFileAssertions(t, root)
	fa.WriteFiles(map[string]string{"paper.tex": paperSource, "fig1.fig": "#FIG 3.2"}, "paper.tex", "fig1.fig")

	b := tbtest.NewConfigBuilder(t).WithRoot(root)
	if cb != nil {
		cb(b)
	}
	fake := fakeTools()
	svc := NewService().WithRunner(fake).WithClock(time.Now, tbtest.NoSleep)
	return &fixture{cfg: b.Build(), fa: fa, fake: fake, svc: svc}
}

func (f *fixture) run(t *testing.T, cmd Command) *Result {
	t.Helper()
	res, err := f.svc.Run(context.Background(), Request{Config: f.cfg, Command: cmd})
	require.NoError(t, err)
	return res
}

func TestBuildCopiesOutputsAndRestoresSourceTree(t *testing.T) {
	f := newFixture(t, nil)
	before := f.fa.Tree()

	res := f.run(t, CommandBuild)

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, []string{filepath.Join(f.cfg.Source.Root, "paper.tex")}, res.Documents)
	out := filepath.Join(f.cfg.Output.Directory, "paper.pdf")
	assert.Equal(t, []string{out}, res.Outputs)
	assert.FileExists(t, out)
	assert.FileExists(t, filepath.Join(f.cfg.Output.Directory, "build-report.json"))
	assert.Equal(t, 3, f.fake.Count("fig2dev"))
	assert.Equal(t, 1, f.fake.Count("lualatex"))

	assert.Equal(t, before, f.fa.Tree())
	assert.Positive(t, res.Deleted)
}

func TestBuildWithoutCleanUpKeepsCreatedFiles(t *testing.T) {
	f := newFixture(t, func(b *tbtest.ConfigBuilder) { b.WithoutCleanUp() })

	res := f.run(t, CommandBuild)

	assert.Zero(t, res.Deleted)
	f.fa.AssertFileExists("paper.pdf").AssertFileExists("fig1.ptx").AssertFileExists("paper.aux")

	res = f.run(t, CommandClear)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Positive(t, res.Deleted)
	f.fa.AssertFileNotExists("paper.pdf").AssertFileNotExists("fig1.ptx").AssertFileNotExists("paper.aux")
	f.fa.AssertFileExists("paper.tex").AssertFileExists("fig1.fig")
}

func TestGraphicsDoesNotCompile(t *testing.T) {
	f := newFixture(t, func(b *tbtest.ConfigBuilder) { b.WithoutCleanUp() })

	res := f.run(t, CommandGraphics)

	assert.Len(t, res.Documents, 1)
	assert.Empty(t, res.Outputs)
	assert.Zero(t, f.fake.Count("lualatex"))
	f.fa.AssertFileExists("fig1.pdf")
}

func TestCheckRunsStyleCheckerOnly(t *testing.T) {
	f := newFixture(t, nil)

	res := f.run(t, CommandCheck)

	assert.Equal(t, 1, f.fake.Count("chktex"))
	assert.Zero(t, f.fake.Count("lualatex"))
	assert.Equal(t, []string{"chk"}, res.Report.Targets)
	assert.Len(t, res.Report.IssuesWith(report.IssueChkTexFindings), 1)
}

func TestTargetsOverrideConfiguration(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.svc.Run(context.Background(), Request{Config: f.cfg, Command: CommandBuild, Targets: []string{"chk"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"chk"}, res.Report.Targets)
	assert.Zero(t, f.fake.Count("lualatex"))
	assert.Equal(t, []string{"pdf"}, f.cfg.Latex.Targets, "request must not modify the configuration")
}

func TestMissingRootIsFatal(t *testing.T) {
	cfg := tbtest.NewConfigBuilder(t).WithRoot(filepath.Join(t.TempDir(), "missing")).Build()

	res, err := NewService().Run(context.Background(), Request{Config: cfg, Command: CommandBuild})

	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryNotFound))
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, report.OutcomeFailed, res.Report.Outcome)
}

func TestRootMustBeDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "paper.tex")
	require.NoError(t, os.WriteFile(file, []byte(paperSource), 0o600))
	cfg := tbtest.NewConfigBuilder(t).WithRoot(file).Build()

	_, err := NewService().Run(context.Background(), Request{Config: cfg, Command: CommandClear})

	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryValidation))
}

func TestUnknownTargetIsFatal(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Run(context.Background(), Request{Config: f.cfg, Command: CommandBuild, Targets: []string{"epub"}})

	require.Error(t, err)
	assert.Zero(t, f.fake.Count("fig2dev"))
}

func TestConfigIsRequired(t *testing.T) {
	res, err := NewService().Run(context.Background(), Request{Command: CommandBuild})
	require.Error(t, err)
	assert.Equal(t, StatusFailed, res.Status)
}

func TestHistoryAndPublishing(t *testing.T) {
	store, err := eventstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	pub := &recordingPublisher{}

	f := newFixture(t, nil)
	f.svc.WithHistory(store).WithPublisher(pub)
	res := f.run(t, CommandBuild)

	require.Len(t, pub.reports, 1)
	assert.Same(t, res.Report, pub.reports[0])

	events, err := store.GetByBuildID(context.Background(), res.Report.BuildID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, eventstore.TypeBuildStarted, events[0].Type())
	assert.Equal(t, eventstore.TypeDocumentProcessed, events[1].Type())
	assert.Equal(t, eventstore.TypeBuildFinished, events[2].Type())

	p := eventstore.NewHistoryProjection(store, 0)
	require.NoError(t, p.Rebuild(context.Background()))
	s, ok := p.Get(res.Report.BuildID)
	require.True(t, ok)
	assert.Equal(t, "success", s.Status)
	assert.Equal(t, 1, s.Documents)
}

func TestCancelledPass(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.svc.Run(ctx, Request{Config: f.cfg, Command: CommandBuild})

	require.Error(t, err)
	assert.Equal(t, StatusCancelled, res.Status)
	assert.False(t, res.Status.IsSuccess())
}

func TestBibliographyAndIndexDocument(t *testing.T) {
	f := newFixture(t, nil)
	f.fake.
		Script("lualatex", func(w *tbtest.Workdir, _ []string, _ int) int {
			w.Write("paper.pdf", "%PDF")
			w.Write("paper.log", "This is LuaHBTeX\n")
			w.Write("paper.aux", "\\relax\n\\bibdata{refs}\n")
			w.Write("paper.idx", "\\indexentry{Knuth}{1}\n")
			return 0
		}).
		Script("bibtex", func(w *tbtest.Workdir, _ []string, _ int) int {
			w.Write("paper.bbl", `\begin{thebibliography}{1}`)
			w.Write("paper.blg", "This is BibTeX\n")
			return 0
		}).
		Script("makeindex", func(w *tbtest.Workdir, _ []string, _ int) int {
			w.Write("paper.ind", `\begin{theindex}`)
			w.Write("paper.ilg", "This is makeindex\n")
			return 0
		})
	before := f.fa.Tree()

	res := f.run(t, CommandBuild)

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 3, f.fake.Count("lualatex"), "first run plus two plain reruns")
	assert.Equal(t, 1, f.fake.Count("bibtex"))
	assert.Equal(t, 1, f.fake.Count("makeindex"))
	assert.Equal(t, 3, f.fake.Count("fig2dev"), "two graphics and one overlay")
	assert.Equal(t, 3, res.Report.ToolRuns["latex"])
	assert.Equal(t, before, f.fa.Tree())
}

func TestOutputInsideRootRequiresNoCleanUp(t *testing.T) {
	f := newFixture(t, nil)
	f.cfg.Output.Directory = filepath.Join(f.cfg.Source.Root, "out")

	_, err := f.svc.Run(context.Background(), Request{Config: f.cfg, Command: CommandBuild})
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))

	f.cfg.Output.CleanUp = false
	res := f.run(t, CommandBuild)
	assert.True(t, res.Status.IsSuccess())
	assert.FileExists(t, filepath.Join(f.cfg.Source.Root, "out", "paper.pdf"))
}
