package latex

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/logscan"
	"git.home.luguber.info/inful/texbuilder/internal/report"
	"git.home.luguber.info/inful/texbuilder/internal/toolexec"
	"git.home.luguber.info/inful/texbuilder/internal/util/sets"
)

// runBibtexByNeed runs bibtex if the .aux file declares bibliography data.
func (e *Engine) runBibtexByNeed(ctx context.Context, doc *Document) (bool, error) {
	t := e.cfg.Tools.Bibtex
	aux := doc.PathOf(SuffixAux)
	res, err := logscan.MatchInFile(aux, needBibtexPattern)
	if err != nil {
		return false, err
	}
	if !res.Readable() {
		e.rep.Warn(report.IssueLogUnreadable, aux, "Cannot read aux file; "+t.Command+" may require run",
			logfields.Tool(ToolBibtex), logfields.Error(res.Err))
		return false, nil
	}
	if !res.Matched() {
		return false, nil
	}

	opts, err := e.options(ToolBibtex, t)
	if err != nil {
		return true, err
	}
	slog.Debug("Running bibtex", logfields.Document(doc.Name()), logfields.Command(t.Command))
	if _, err := e.exec.Run(ctx, toolexec.Invocation{
		Tool:    ToolBibtex,
		Command: t.Command,
		Args:    withFile(opts, doc.File(SuffixAux)),
		Dir:     doc.Dir,
		Outputs: []string{doc.File(SuffixBbl)},
	}); err != nil {
		return true, err
	}
	e.logErrs(doc, doc.File(SuffixBlg), t.Command, t.ErrorPattern)
	e.logWarns(doc, doc.File(SuffixBlg), t.Command, t.WarningPattern)
	return true, nil
}

// runIndexByNeed runs makeindex, or splitindex if the raw index carries explicit index
// identifiers, provided the raw index exists.
func (e *Engine) runIndexByNeed(ctx context.Context, doc *Document) (bool, error) {
	idx := doc.PathOf(SuffixIdx)
	need := isRegular(idx)
	slog.Debug("MakeIndex run required?", logfields.Document(doc.Name()), slog.Bool("need", need))

	var idents sets.Set[string]
	if need {
		var ok bool
		var err error
		idents, ok, err = logscan.CollectMatches(idx, idxExplicitPattern, idxExplicitGroup)
		if err != nil {
			return false, err
		}
		if !ok {
			e.rep.Warn(report.IssueLogUnreadable, idx, "Cannot read idx file; skip creation of index",
				logfields.Tool(ToolMakeIndex))
			return false, nil
		}
	}

	if len(idents) == 0 && e.hasSplitIdxFiles(doc) {
		e.rep.Warn(report.IssueIndexHeuristic, doc.Path,
			"Found per-identifier idx files but no explicit index entries; package splitidx used without option split?")
	}

	if !need {
		return false, nil
	}
	if len(idents) == 0 {
		return true, e.runMakeIndex(ctx, doc)
	}
	return true, e.runSplitIndex(ctx, doc, idents)
}

// hasSplitIdxFiles reports whether files named <stem>-<ident>.idx exist next to doc.
func (e *Engine) hasSplitIdxFiles(doc *Document) bool {
	re, err := regexp.Compile("^" + regexp.QuoteMeta(doc.Stem+indexIdentSep) + `.+` + regexp.QuoteMeta(SuffixIdx) + "$")
	if err != nil {
		return false
	}
	entries, err := os.ReadDir(doc.Dir)
	if err != nil {
		e.rep.Warn(report.IssueDirUnreadable, doc.Dir, "Cannot list directory", logfields.Error(err))
		return false
	}
	for _, ent := range entries {
		if ent.Type().IsRegular() && re.MatchString(ent.Name()) {
			return true
		}
	}
	return false
}

func (e *Engine) runMakeIndex(ctx context.Context, doc *Document) error {
	t := e.cfg.Tools.MakeIndex
	opts, err := e.options(ToolMakeIndex, t)
	if err != nil {
		return err
	}
	slog.Debug("Running makeindex", logfields.Document(doc.Name()), logfields.Command(t.Command))
	if _, err := e.exec.Run(ctx, toolexec.Invocation{
		Tool:    ToolMakeIndex,
		Command: t.Command,
		Args:    withFile(opts, doc.File(SuffixIdx)),
		Dir:     doc.Dir,
		Outputs: []string{doc.File(SuffixInd)},
	}); err != nil {
		return err
	}
	e.logErrs(doc, doc.File(SuffixIlg), t.Command, t.ErrorPattern)
	e.logWarns(doc, doc.File(SuffixIlg), t.Command, t.WarningPattern)
	return nil
}

// runSplitIndex writes one sorted index <stem>-<ident>.ind per identifier, including
// the implicit identifier idx.
func (e *Engine) runSplitIndex(ctx context.Context, doc *Document, idents sets.Set[string]) error {
	split, mk := e.cfg.Tools.SplitIndex, e.cfg.Tools.MakeIndex
	splitOpts, err := e.options(ToolSplitIndex, split)
	if err != nil {
		return err
	}
	mkOpts, err := e.options(ToolMakeIndex, mk)
	if err != nil {
		return err
	}
	all := idents.Clone()
	all.Add(implicitIndexIdent)
	ordered := sets.Sorted(all)

	outputs := make([]string, 0, len(ordered))
	for _, id := range ordered {
		outputs = append(outputs, doc.Stem+indexIdentSep+id+SuffixInd)
	}
	slog.Debug("Running splitindex", logfields.Document(doc.Name()),
		logfields.Command(split.Command), slog.String("identifiers", strings.Join(ordered, ",")))
	if _, err := e.exec.Run(ctx, toolexec.Invocation{
		Tool:    ToolSplitIndex,
		Command: split.Command,
		Args:    splitIndexArgs(mk.Command, splitOpts, mkOpts, doc.Stem),
		Dir:     doc.Dir,
		Outputs: outputs,
	}); err != nil {
		return err
	}
	for _, id := range ordered {
		ilg := doc.Stem + indexIdentSep + id + SuffixIlg
		e.logErrs(doc, ilg, mk.Command, mk.ErrorPattern)
		e.logWarns(doc, ilg, mk.Command, mk.WarningPattern)
	}
	return nil
}

// runGlossariesByNeed runs makeglossaries if the raw glossary exists.
func (e *Engine) runGlossariesByNeed(ctx context.Context, doc *Document) (bool, error) {
	need := doc.Exists(SuffixGlo)
	slog.Debug("MakeGlossaries run required?", logfields.Document(doc.Name()), slog.Bool("need", need))
	if !need {
		return false, nil
	}
	t := e.cfg.Tools.MakeGlossaries
	opts, err := e.options(ToolMakeGlossaries, t)
	if err != nil {
		return true, err
	}
	if _, err := e.exec.Run(ctx, toolexec.Invocation{
		Tool:    ToolMakeGlossaries,
		Command: t.Command,
		Args:    withFile(opts, doc.Stem),
		Dir:     doc.Dir,
		Outputs: []string{doc.File(SuffixGls)},
	}); err != nil {
		return true, err
	}
	e.logErrs(doc, doc.File(SuffixGlg), t.Command, t.ErrorPattern)
	e.logWarns(doc, doc.File(SuffixGlg), t.Command, joinPatterns(e.cfg.Tools.MakeIndex.WarningPattern, e.cfg.Tools.Xindy.WarningPattern))
	return true, nil
}

// runPythontexByNeed runs pythontex if the compiler wrote python code. The macro file
// of a previous run is deleted first so that its rewrite can be verified.
func (e *Engine) runPythontexByNeed(ctx context.Context, doc *Document) (bool, error) {
	need := doc.Exists(SuffixPytxcode)
	slog.Debug("Pythontex run required?", logfields.Document(doc.Name()), slog.Bool("need", need))
	if !need {
		return false, nil
	}
	t := e.cfg.Tools.Pythontex
	opts, err := e.options(ToolPythontex, t)
	if err != nil {
		return true, err
	}
	macros := filepath.Join(PythontexDirPrefix+doc.Stem, doc.Stem+SuffixPytxmcr)
	if err := os.Remove(filepath.Join(doc.Dir, macros)); err != nil && !os.IsNotExist(err) {
		slog.Warn("Could not delete pythontex macros; this may cause further warnings",
			logfields.File(macros), logfields.Error(err))
	}
	if _, err := e.exec.Run(ctx, toolexec.Invocation{
		Tool:    ToolPythontex,
		Command: t.Command,
		Args:    withFile(opts, doc.Stem),
		Dir:     doc.Dir,
		Outputs: []string{macros},
	}); err != nil {
		return true, err
	}
	e.logErrs(doc, doc.File(SuffixPlg), t.Command, t.ErrorPattern)
	e.logWarns(doc, doc.File(SuffixPlg), t.Command, t.WarningPattern)
	return true, nil
}

func joinPatterns(patterns ...string) string {
	var nonEmpty []string
	for _, p := range patterns {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "|")
}
