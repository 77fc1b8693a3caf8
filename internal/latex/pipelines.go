package latex

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	foundationerrors "git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/report"
	"git.home.luguber.info/inful/texbuilder/internal/toolexec"
)

// Process creates target t from doc. The returned error is fatal for the build; tool
// failures that are not fatal are recorded in the report.
func (e *Engine) Process(ctx context.Context, doc *Document, t Target) error {
	slog.Info("Processing document",
		logfields.Document(doc.Path),
		logfields.Target(string(t)),
		logfields.DocClass(doc.DocClass))

	switch t {
	case TargetChk:
		return e.check(ctx, doc)
	case TargetDVI:
		return e.compile(ctx, doc, DeviceDVIPS)
	case TargetPDF:
		return e.toPDF(ctx, doc)
	case TargetHTML:
		return e.toHTML(ctx, doc)
	case TargetODT:
		return e.toODT(ctx, doc)
	case TargetDocx:
		if err := e.toODT(ctx, doc); err != nil {
			return err
		}
		return e.runOdt2Doc(ctx, doc)
	case TargetRTF:
		return e.toRTF(ctx, doc)
	case TargetTxt:
		return e.toTxt(ctx, doc)
	default:
		return foundationerrors.InternalError("no pipeline for target " + string(t)).Fatal().Build()
	}
}

func (e *Engine) toPDF(ctx context.Context, doc *Document) error {
	if err := e.compile(ctx, doc, e.device); err != nil {
		return err
	}
	if e.device.ViaDvi() {
		return e.runDvi2Pdf(ctx, doc)
	}
	return nil
}

func (e *Engine) toHTML(ctx context.Context, doc *Document) error {
	if _, err := e.prepare(ctx, doc, e.device); err != nil {
		return err
	}
	t := e.cfg.Tools.Tex4ht
	if _, err := e.exec.Run(ctx, toolexec.Invocation{
		Tool:    ToolTex4ht,
		Command: t.Command,
		Args:    htlatexArgs(doc.Name(), e.cfg.Latex.HTMLStyleOptions, t.Options, e.cfg.Tools.Latex.Options),
		Dir:     doc.Dir,
		Outputs: []string{doc.File(SuffixHTML)},
	}); err != nil {
		return err
	}
	e.logErrs(doc, doc.File(SuffixLog), t.Command, e.cfg.Tools.Latex.ErrorPattern)
	e.logWarns(doc, doc.File(SuffixLog), t.Command, e.cfg.Tools.Latex.WarningPattern)
	return nil
}

func (e *Engine) toODT(ctx context.Context, doc *Document) error {
	if _, err := e.prepare(ctx, doc, e.device); err != nil {
		return err
	}
	t := e.cfg.Tools.Tex4ht
	if _, err := e.exec.Run(ctx, toolexec.Invocation{
		Tool:    ToolTex4ht,
		Command: t.Command,
		Args:    odtArgs(doc.Name()),
		Dir:     doc.Dir,
		Outputs: []string{doc.File(SuffixODT)},
	}); err != nil {
		return err
	}
	e.logErrs(doc, doc.File(SuffixLog), t.Command, e.cfg.Tools.Latex.ErrorPattern)
	e.logWarns(doc, doc.File(SuffixLog), t.Command, e.cfg.Tools.Latex.WarningPattern)
	return nil
}

func (e *Engine) runOdt2Doc(ctx context.Context, doc *Document) error {
	t := e.cfg.Tools.Odt2Doc
	opts, err := e.options(ToolOdt2Doc, t)
	if err != nil {
		return err
	}
	_, err = e.exec.Run(ctx, toolexec.Invocation{
		Tool:    ToolOdt2Doc,
		Command: t.Command,
		Args:    withFile(opts, doc.File(SuffixODT)),
		Dir:     doc.Dir,
		Outputs: []string{doc.File("." + odt2docFormat(opts))},
	})
	return err
}

// toRTF prepares the auxiliary files latex2rtf reads and converts the source.
func (e *Engine) toRTF(ctx context.Context, doc *Document) error {
	if _, err := e.prepare(ctx, doc, e.device); err != nil {
		return err
	}
	t := e.cfg.Tools.Latex2Rtf
	opts, err := e.options(ToolLatex2Rtf, t)
	if err != nil {
		return err
	}
	_, err = e.exec.Run(ctx, toolexec.Invocation{
		Tool:    ToolLatex2Rtf,
		Command: t.Command,
		Args:    withFile(opts, doc.Name()),
		Dir:     doc.Dir,
		Outputs: []string{doc.File(SuffixRTF)},
	})
	return err
}

// toTxt needs a converged pdf, converted from dvi if the device asks for it.
func (e *Engine) toTxt(ctx context.Context, doc *Document) error {
	if err := e.converge(ctx, doc, e.device); err != nil {
		return err
	}
	if e.device.ViaDvi() {
		if err := e.runDvi2Pdf(ctx, doc); err != nil {
			return err
		}
	}
	t := e.cfg.Tools.Pdf2Txt
	opts, err := e.options(ToolPdf2Txt, t)
	if err != nil {
		return err
	}
	_, err = e.exec.Run(ctx, toolexec.Invocation{
		Tool:    ToolPdf2Txt,
		Command: t.Command,
		Args:    withFile(opts, doc.File(SuffixPDF)),
		Dir:     doc.Dir,
		Outputs: []string{doc.File(SuffixTxt)},
	})
	return err
}

// runDvi2Pdf converts the dvi or xdv file. The converter resolves the suffix itself,
// preferring the xdv file if both exist.
func (e *Engine) runDvi2Pdf(ctx context.Context, doc *Document) error {
	if doc.Exists(SuffixDVI) && doc.Exists(SuffixXDV) {
		e.rep.Warn(report.IssueDviXdvBoth, doc.Path, "Found both "+doc.File(SuffixDVI)+" and "+doc.File(SuffixXDV)+"; converting the latter")
	}
	t := e.cfg.Tools.Dvi2Pdf
	opts, err := e.options(ToolDvi2Pdf, t)
	if err != nil {
		return err
	}
	_, err = e.exec.Run(ctx, toolexec.Invocation{
		Tool:    ToolDvi2Pdf,
		Command: t.Command,
		Args:    withFile(opts, doc.Stem),
		Dir:     doc.Dir,
		Outputs: []string{doc.File(SuffixPDF)},
	})
	return err
}

// check runs the style checker. Exit code 1 is an execution failure, 2 means warnings
// and 3 errors were logged.
func (e *Engine) check(ctx context.Context, doc *Document) error {
	t := e.cfg.Tools.ChkTex
	opts, err := e.options(ToolChkTex, t)
	if err != nil {
		return err
	}
	clg := doc.File(SuffixClg)
	res, err := e.exec.Run(ctx, toolexec.Invocation{
		Tool:    ToolChkTex,
		Command: t.Command,
		Args:    chktexArgs(opts, clg, doc.Name()),
		Dir:     doc.Dir,
		Outputs: []string{clg},
		Policy:  toolexec.ExitIsOne,
	})
	if err != nil {
		return err
	}
	path := doc.PathOf(SuffixClg)
	switch res.ExitCode {
	case 0:
		if fi, err := os.Stat(path); err == nil && fi.Size() > 0 {
			e.rep.Info(report.IssueChkTexFindings, path, "Checker "+t.Command+" logged a message")
		}
	case 1:
		// reported by the executor
	case 2:
		e.rep.Warn(report.IssueChkTexFindings, path, "Checker "+t.Command+" logged a warning")
	case 3:
		e.rep.Error(report.IssueChkTexFindings, path, "Checker "+t.Command+" logged an error")
	default:
		e.rep.Error(report.IssueToolExit, path, "Checker "+t.Command+" returned unexpected code "+strconv.Itoa(res.ExitCode),
			logfields.ExitCode(res.ExitCode))
	}
	return nil
}
