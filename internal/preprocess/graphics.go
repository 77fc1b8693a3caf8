package preprocess

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/report"
	"git.home.luguber.info/inful/texbuilder/internal/toolexec"
)

// Suffixes of converted graphics.
const (
	suffixPDF    = ".pdf"
	suffixEPS    = ".eps"
	suffixPTX    = ".ptx" // LaTeX overlay placing the text of a graphic
	suffixMPS    = ".mps"
	suffixXBB    = ".xbb"
	suffixBB     = ".bb"
	suffixPDFTex = ".pdf_tex"
	suffixEPSTex = ".eps_tex"
)

// Headline of an overlay rewritten by the inkscape filter.
const inkscapeFilterHeadline = "%% texbuilder modified two of the following lines"

// materialize converts one graphic source in dir.
func (p *Preprocessor) materialize(ctx context.Context, dir string, src source) error {
	switch src.kind {
	case KindFig:
		return p.runFig2Dev(ctx, dir, src.name)
	case KindGnuplot:
		return p.runGnuplot(ctx, dir, src.name)
	case KindMetaPost:
		return p.runMetaPost(ctx, dir, src.name)
	case KindSVG:
		return p.runInkscape(ctx, dir, src.name)
	case KindJPG, KindPNG:
		return p.runEbb(ctx, dir, src.name)
	case KindBib:
		slog.Info("Found bibliography file", logfields.File(filepath.Join(dir, src.name)))
		return nil
	case KindTex, KindUnknown:
		return nil
	}
	return nil
}

func (p *Preprocessor) run(ctx context.Context, tool, command, dir string, args []string, outputs ...string) error {
	slog.Debug("Processing graphic", logfields.Tool(tool), logfields.Dir(dir), logfields.Args(args))
	_, err := p.exec.Run(ctx, toolexec.Invocation{
		Tool:    tool,
		Command: command,
		Args:    args,
		Dir:     dir,
		Outputs: outputs,
	})
	return err
}

// runFig2Dev writes the drawing as pdf and eps without text and the text as overlay.
func (p *Preprocessor) runFig2Dev(ctx context.Context, dir, name string) error {
	t := p.cfg.Tools.Fig2Dev
	opts, err := options(ToolFig2Dev, t)
	if err != nil {
		return err
	}
	stem := stemOf(name)
	for _, v := range []struct{ lang, suffix string }{{"pdftex", suffixPDF}, {"pstex", suffixEPS}} {
		args := append([]string{"-L", v.lang}, opts...)
		args = append(args, name, stem+v.suffix)
		if err := p.run(ctx, ToolFig2Dev, t.Command, dir, args, stem+v.suffix); err != nil {
			return err
		}
	}
	args := append([]string{"-L", "pdftex_t"}, opts...)
	args = append(args, "-p", stem, name, stem+suffixPTX)
	return p.run(ctx, ToolFig2Dev, t.Command, dir, args, stem+suffixPTX)
}

// runGnuplot plots once per device with the cairolatex terminal. Both runs write the
// same overlay.
func (p *Preprocessor) runGnuplot(ctx context.Context, dir, name string) error {
	t := p.cfg.Tools.Gnuplot
	stem := stemOf(name)
	for _, v := range []struct{ lang, suffix string }{{"eps", suffixEPS}, {"pdf", suffixPDF}} {
		terminal := "set terminal cairolatex " + v.lang
		if t.Options != "" {
			terminal += " " + t.Options
		}
		script := terminal + ";set output '" + stem + suffixPTX + "';load '" + name + "'"
		if err := p.run(ctx, ToolGnuplot, t.Command, dir, []string{"-e", script}, stem+v.suffix, stem+suffixPTX); err != nil {
			return err
		}
	}
	return nil
}

// runMetaPost runs mpost and scans its log.
func (p *Preprocessor) runMetaPost(ctx context.Context, dir, name string) error {
	t := p.cfg.Tools.MetaPost
	opts, err := options(ToolMetaPost, t)
	if err != nil {
		return err
	}
	stem := stemOf(name)
	if err := p.run(ctx, ToolMetaPost, t.Command, dir, append(opts, name), stem+suffixMPS); err != nil {
		return err
	}
	log := filepath.Join(dir, stem+".log")
	p.logs.Errors(log, t.Command, t.ErrorPattern)
	p.logs.Warnings(log, t.Command, t.WarningPattern)
	return nil
}

// runInkscape exports pdf and eps with a text overlay each. The pdf overlay is
// dropped; the eps overlay is rewritten to reference the graphic by stem so that
// one overlay serves both devices.
func (p *Preprocessor) runInkscape(ctx context.Context, dir, name string) error {
	t := p.cfg.Tools.Inkscape
	opts, err := options(ToolInkscape, t)
	if err != nil {
		return err
	}
	stem := stemOf(name)
	for _, v := range []struct{ suffix, overlay string }{{suffixPDF, suffixPDFTex}, {suffixEPS, suffixEPSTex}} {
		args := append([]string{"--export-filename=" + stem + v.suffix}, opts...)
		args = append(args, name)
		if err := p.run(ctx, ToolInkscape, t.Command, dir, args, stem+v.suffix, stem+v.overlay); err != nil {
			return err
		}
		overlay := filepath.Join(dir, stem+v.overlay)
		if v.suffix == suffixEPS {
			if err := filterInkscapeOverlay(overlay, filepath.Join(dir, stem+suffixPTX), stem); err != nil {
				p.rep.Error(report.IssueGraphicFilterFailed, overlay, "Failed to rewrite inkscape overlay",
					logfields.Error(err))
			}
		}
		removeIfExists(p.rep, overlay)
	}
	return nil
}

// filterInkscapeOverlay copies the eps overlay into the ptx file, replacing the
// references to stem.eps by references to stem.
func filterInkscapeOverlay(in, out, stem string) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	text := string(data)
	text = strings.ReplaceAll(text, stem+".eps' (pdf, eps, ps)", stem+".pdf/eps/ps'")
	text = strings.ReplaceAll(text, stem+".eps}}%", stem+"}}%")
	return os.WriteFile(out, []byte(inkscapeFilterHeadline+"\n"+text), 0o644)
}

// runEbb writes bounding boxes of a raster graphic if configured.
func (p *Preprocessor) runEbb(ctx context.Context, dir, name string) error {
	if !p.cfg.Latex.CreateBoundingBoxes {
		slog.Info("Raster graphic needs no processing", logfields.File(filepath.Join(dir, name)))
		return nil
	}
	t := p.cfg.Tools.Ebb
	opts, err := options(ToolEbb, t)
	if err != nil {
		return err
	}
	stem := stemOf(name)
	for _, v := range []struct{ flag, suffix string }{{"-x", suffixXBB}, {"-m", suffixBB}} {
		args := append([]string{v.flag}, opts...)
		args = append(args, name)
		if err := p.run(ctx, ToolEbb, t.Command, dir, args, stem+v.suffix); err != nil {
			return err
		}
	}
	return nil
}

// derived returns the names of the files materialize creates for a graphic source.
func derived(kind Kind, stem string) []string {
	switch kind {
	case KindFig, KindGnuplot, KindSVG:
		return []string{stem + suffixPTX, stem + suffixPDF, stem + suffixEPS}
	case KindMetaPost:
		return []string{stem + ".log", stem + ".fls", stem + ".mpx", stem + suffixMPS}
	case KindJPG, KindPNG:
		return []string{stem + suffixXBB, stem + suffixBB}
	case KindTex, KindBib, KindUnknown:
		return nil
	}
	return nil
}
