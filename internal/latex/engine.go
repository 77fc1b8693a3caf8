// Package latex runs the compiler and its auxiliary tools on main documents until the
// logs no longer ask for another run, and converts the result into the requested
// targets.
package latex

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/texbuilder/internal/config"
	foundationerrors "git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/logscan"
	"git.home.luguber.info/inful/texbuilder/internal/metrics"
	"git.home.luguber.info/inful/texbuilder/internal/report"
	"git.home.luguber.info/inful/texbuilder/internal/toolexec"
)

// Tool names as used in the configuration, logs and metrics.
const (
	ToolLatex          = "latex"
	ToolBibtex         = "bibtex"
	ToolMakeIndex      = "makeindex"
	ToolSplitIndex     = "splitindex"
	ToolMakeGlossaries = "makeglossaries"
	ToolPythontex      = "pythontex"
	ToolDvi2Pdf        = "dvi2pdf"
	ToolTex4ht         = "tex4ht"
	ToolLatex2Rtf      = "latex2rtf"
	ToolOdt2Doc        = "odt2doc"
	ToolPdf2Txt        = "pdf2txt"
	ToolChkTex         = "chktex"
)

const (
	// Line of a .aux file declaring bibliography data.
	needBibtexPattern = `^\\bibdata`
	badBoxPattern     = `^(Ov|Und)erfull \\[hv]box \(`
)

// Engine processes main documents. It is used by one goroutine at a time.
type Engine struct {
	cfg      *config.Config
	exec     *toolexec.Executor
	rep      *report.BuildReport
	recorder metrics.Recorder
	logs     LogChecker
	device   Device
	xelatex  bool
}

// NewEngine creates an engine running tools through exec. Issues are recorded in the
// executor's report.
func NewEngine(cfg *config.Config, exec *toolexec.Executor) *Engine {
	return &Engine{
		cfg:      cfg,
		exec:     exec,
		rep:      exec.Report(),
		logs:     NewLogChecker(exec.Report(), cfg.Latex.DebugWarnings),
		recorder: metrics.NoopRecorder{},
		device:   DeviceFor(cfg.Latex.PdfViaDvi),
		xelatex:  isXelatex(cfg.Tools.Latex.Command),
	}
}

// WithRecorder sets the metrics recorder.
func (e *Engine) WithRecorder(r metrics.Recorder) *Engine {
	if r != nil {
		e.recorder = r
	}
	return e
}

// Plan is what the first compiler run revealed about a document.
type Plan struct {
	Bibliography bool
	Index        bool
	Glossary     bool
	Pythontex    bool
	// Reruns is the number of plain compiler reruns still due.
	Reruns int
}

// plainReruns decides how many times the compiler must run again after the auxiliary
// tools. lists reports a table of contents, list of figures, list of tables, list of
// listings or pythontex code; toc only the table of contents.
func plainReruns(bib, idxOrGls, toc, lists bool) int {
	switch {
	case bib:
		return 2
	case idxOrGls && toc:
		return 2
	case idxOrGls:
		return 1
	case lists:
		return 1
	default:
		return 0
	}
}

// prepare runs the compiler once and then every auxiliary tool the document needs.
func (e *Engine) prepare(ctx context.Context, doc *Document, dev Device) (Plan, error) {
	var p Plan
	if err := e.runLatex(ctx, doc, dev); err != nil {
		return p, err
	}
	var err error
	if p.Bibliography, err = e.runBibtexByNeed(ctx, doc); err != nil {
		return p, err
	}
	if p.Index, err = e.runIndexByNeed(ctx, doc); err != nil {
		return p, err
	}
	if p.Glossary, err = e.runGlossariesByNeed(ctx, doc); err != nil {
		return p, err
	}
	if p.Pythontex, err = e.runPythontexByNeed(ctx, doc); err != nil {
		return p, err
	}
	toc := doc.Exists(SuffixToc)
	lists := toc || p.Pythontex || doc.Exists(SuffixLof) || doc.Exists(SuffixLot) || doc.Exists(SuffixLol)
	p.Reruns = plainReruns(p.Bibliography, p.Index || p.Glossary, toc, lists)
	return p, nil
}

// converge prepares the document, performs the plain reruns and then reruns tools as
// long as the compiler log asks for it, at most max_reruns times. Hitting the bound
// is a warning.
func (e *Engine) converge(ctx context.Context, doc *Document, dev Device) error {
	plan, err := e.prepare(ctx, doc, dev)
	if err != nil {
		return err
	}
	reruns := 0
	defer func() { e.recorder.ObserveReruns(reruns) }()

	if plan.Reruns > 0 {
		slog.Debug("Rerunning compiler to update table of contents, bibliography or index",
			logfields.Document(doc.Name()), logfields.Count(plan.Reruns))
	}
	for range plan.Reruns {
		if err := e.runLatex(ctx, doc, dev); err != nil {
			return err
		}
		reruns++
	}

	limit := e.cfg.Latex.MaxReruns
	for i := 0; ; i++ {
		idxRerun := e.needRun(doc, ToolMakeIndex, e.cfg.Tools.MakeIndex.RerunPattern)
		glsRerun := e.needRun(doc, ToolMakeGlossaries, e.cfg.Tools.MakeGlossaries.RerunPattern)
		latexRerun := e.needRun(doc, ToolLatex, e.cfg.Tools.Latex.RerunPattern) || idxRerun || glsRerun
		if !latexRerun {
			return nil
		}
		if limit >= 0 && i >= limit {
			e.recorder.IncRerunLimitReached()
			e.rep.Warn(report.IssueRerunLimit, doc.Path, "LaTeX requires rerun but maximum number of reruns reached",
				logfields.MaxReruns(limit), logfields.Reruns(reruns))
			return nil
		}
		slog.Debug("LaTeX must be rerun", logfields.Document(doc.Name()), logfields.Reruns(reruns))
		if idxRerun {
			if _, err := e.runIndexByNeed(ctx, doc); err != nil {
				return err
			}
		}
		if glsRerun {
			if _, err := e.runGlossariesByNeed(ctx, doc); err != nil {
				return err
			}
		}
		if err := e.runLatex(ctx, doc, dev); err != nil {
			return err
		}
		reruns++
	}
}

// compile converges the document and reports the warnings of the final compiler log.
func (e *Engine) compile(ctx context.Context, doc *Document, dev Device) error {
	if err := e.converge(ctx, doc, dev); err != nil {
		return err
	}
	e.logLatexWarns(doc, e.cfg.Tools.Latex.Command)
	return nil
}

func (e *Engine) runLatex(ctx context.Context, doc *Document, dev Device) error {
	t := e.cfg.Tools.Latex
	opts, err := e.options(ToolLatex, t)
	if err != nil {
		return err
	}
	_, err = e.exec.Run(ctx, toolexec.Invocation{
		Tool:    ToolLatex,
		Command: t.Command,
		Args:    latexArgs(opts, dev, e.xelatex, doc.Name()),
		Dir:     doc.Dir,
		Outputs: []string{doc.File(dev.targetSuffix(e.xelatex))},
	})
	if err != nil {
		return err
	}
	e.logErrs(doc, doc.File(SuffixLog), t.Command, t.ErrorPattern)
	return nil
}

// options splits the configured option string of a tool.
func (e *Engine) options(name string, t config.Tool) ([]string, error) {
	opts, err := toolexec.SplitOptions(t.Options)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "invalid options for "+name).
			WithContext("field", "tools."+name+".options").
			Fatal().
			Build()
	}
	return opts, nil
}

func (e *Engine) logErrs(doc *Document, logName, command, pattern string) {
	e.logs.Errors(filepath.Join(doc.Dir, logName), command, pattern)
}

func (e *Engine) logWarns(doc *Document, logName, command, pattern string) {
	e.logs.Warnings(filepath.Join(doc.Dir, logName), command, pattern)
}

// logLatexWarns checks the compiler log for bad boxes and warnings.
func (e *Engine) logLatexWarns(doc *Document, command string) {
	path := doc.PathOf(SuffixLog)
	if !isRegular(path) {
		return
	}
	if e.cfg.Latex.DebugBadBoxes && e.logs.Matches(path, badBoxPattern, command) {
		e.rep.Warn(report.IssueBadBoxes, path, "Running "+command+" created bad boxes",
			logfields.Command(command))
	}
	e.logWarns(doc, doc.File(SuffixLog), command, e.cfg.Tools.Latex.WarningPattern)
}

// needRun tests the compiler log for the rerun pattern of tool. An unreadable log is
// reported and answered with no.
func (e *Engine) needRun(doc *Document, tool, pattern string) bool {
	if pattern == "" {
		return false
	}
	path := doc.PathOf(SuffixLog)
	res, err := logscan.MatchInFile(path, pattern)
	if err != nil {
		slog.Error("Invalid rerun pattern", logfields.Tool(tool), logfields.Error(err))
		return false
	}
	if !res.Readable() {
		e.rep.Warn(report.IssueLogUnreadable, path, "Cannot read log file; "+tool+" may require rerun",
			logfields.Tool(tool), logfields.Error(res.Err))
		return false
	}
	return res.Matched()
}

func isRegular(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
