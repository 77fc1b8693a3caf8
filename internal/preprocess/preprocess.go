// Package preprocess converts graphic sources into the files LaTeX documents include
// and finds the main documents of a source tree.
package preprocess

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"git.home.luguber.info/inful/texbuilder/internal/config"
	foundationerrors "git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/latex"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/logscan"
	"git.home.luguber.info/inful/texbuilder/internal/report"
	"git.home.luguber.info/inful/texbuilder/internal/snapshot"
	"git.home.luguber.info/inful/texbuilder/internal/toolexec"
	"git.home.luguber.info/inful/texbuilder/internal/util/sets"
)

// Tool names as used in the configuration, logs and metrics.
const (
	ToolFig2Dev  = "fig2dev"
	ToolGnuplot  = "gnuplot"
	ToolMetaPost = "metapost"
	ToolInkscape = "inkscape"
	ToolEbb      = "ebb"
)

// Filter leaves paths out of a scan. rel is relative to the source root.
type Filter interface {
	Excluded(rel string, isDir bool) bool
}

// Preprocessor materializes graphic sources and classifies LaTeX sources.
type Preprocessor struct {
	cfg    *config.Config
	exec   *toolexec.Executor
	rep    *report.BuildReport
	logs   latex.LogChecker
	filter Filter
}

// New creates a preprocessor running tools through exec. Issues are recorded in the
// executor's report.
func New(cfg *config.Config, exec *toolexec.Executor) *Preprocessor {
	return &Preprocessor{
		cfg:  cfg,
		exec: exec,
		rep:  exec.Report(),
		logs: latex.NewLogChecker(exec.Report(), cfg.Latex.DebugWarnings),
	}
}

// WithFilter sets the filter applied to every scanned path.
func (p *Preprocessor) WithFilter(f Filter) *Preprocessor {
	p.filter = f
	return p
}

func (p *Preprocessor) excluded(rel string, isDir bool) bool {
	return p.filter != nil && rel != "" && p.filter.Excluded(rel, isDir)
}

// ProcessGraphics converts every graphic source below root and returns the main
// documents, filtered by the include and exclude lists of the output configuration
// and ordered by path. snap is the recording of root taken before the build.
func (p *Preprocessor) ProcessGraphics(ctx context.Context, root string, snap *snapshot.Dir) ([]*latex.Document, error) {
	if !snap.Valid() {
		return nil, foundationerrors.FileSystemError("source root cannot be listed").
			WithContext("path", root).
			Fatal().
			Build()
	}
	var docs []*latex.Document
	if err := p.processDir(ctx, root, "", snap, &docs); err != nil {
		return nil, err
	}
	docs = p.selectDocuments(docs)
	slog.Info("Discovered main documents", logfields.Count(len(docs)))
	return docs, nil
}

type source struct {
	name string
	kind Kind
}

// processDir classifies the files of one directory, withholds graphic sources a
// sibling main document claims, converts the rest and descends if configured.
func (p *Preprocessor) processDir(ctx context.Context, dir, rel string, node *snapshot.Dir, docs *[]*latex.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	slog.Debug("Processing directory", logfields.Dir(dir))

	skipped := sets.New[string]()
	var sources []source
	var mains []*latex.Document
	for _, name := range node.Files() {
		if strings.HasPrefix(name, ".") || p.excluded(filepath.Join(rel, name), false) {
			continue
		}
		kind := KindOf(name)
		if kind == KindUnknown {
			if ext := filepath.Ext(name); ext != "" {
				skipped.Add(ext)
			} else {
				slog.Debug("Skipping file without suffix", logfields.File(name))
			}
			continue
		}
		if kind == KindTex {
			if doc := p.classify(filepath.Join(dir, name)); doc != nil {
				mains = append(mains, doc)
			}
			continue
		}
		sources = append(sources, source{name: name, kind: kind})
	}

	claimed, err := p.claimedBy(mains, sources)
	if err != nil {
		return err
	}
	for _, src := range sources {
		if claimed.Has(src.name) {
			continue
		}
		if err := p.materialize(ctx, dir, src); err != nil {
			return err
		}
	}
	if len(skipped) > 0 {
		p.rep.Warn(report.IssueSuffixUnregistered, dir,
			"Skipped files with unregistered suffixes: "+strings.Join(sets.Sorted(skipped), ", "))
	}
	*docs = append(*docs, mains...)

	if !p.cfg.Source.Recursive {
		return nil
	}
	for _, sub := range node.Subdirs() {
		subRel := filepath.Join(rel, sub)
		if strings.HasPrefix(sub, ".") || p.excluded(subRel, true) {
			continue
		}
		if err := p.processDir(ctx, filepath.Join(dir, sub), subRel, node.Child(sub), docs); err != nil {
			return err
		}
	}
	return nil
}

// classify tests a .tex file against the main file pattern. An unreadable file is
// reported and treated as not being a main document.
func (p *Preprocessor) classify(path string) *latex.Document {
	res, err := logscan.MatchInFile(path, p.cfg.Latex.MainFilePattern)
	if err != nil {
		slog.Error("Invalid main file pattern", logfields.Error(err))
		return nil
	}
	if !res.Readable() {
		p.rep.Warn(report.IssueMainFileUnreadable, path, "Cannot read LaTeX source; not treated as main document",
			logfields.Error(res.Err))
		return nil
	}
	if !res.Matched() {
		slog.Debug("LaTeX source is no main document", logfields.File(path))
		return nil
	}
	doc, unknown := latex.NewDocument(path, res.Groups)
	if len(unknown) > 0 {
		p.rep.Warn(report.IssueTargetSkipped, path, "Unknown targets in magic comment: "+strings.Join(unknown, ", "))
	}
	slog.Info("Found main document", logfields.File(path), logfields.DocClass(doc.DocClass))
	return doc
}

// claimedBy returns the graphic sources whose names a main document in the same
// directory may create. One warning is recorded for each.
func (p *Preprocessor) claimedBy(mains []*latex.Document, sources []source) (sets.Set[string], error) {
	claimed := sets.New[string]()
	for _, doc := range mains {
		re, err := p.createdFrom(doc)
		if err != nil {
			return nil, err
		}
		for _, src := range sources {
			if !src.kind.graphic() || claimed.Has(src.name) || !re.MatchString(src.name) {
				continue
			}
			claimed.Add(src.name)
			p.rep.Warn(report.IssueSourceConflict, filepath.Join(doc.Dir, src.name),
				"Skipping processing of a file with a name a main document may create",
				logfields.Document(doc.Name()))
		}
	}
	return claimed, nil
}

func (p *Preprocessor) createdFrom(doc *latex.Document) (*regexp.Regexp, error) {
	re, err := latex.StemPattern(p.cfg.Latex.CreatedFromMainPattern, doc.Stem)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "invalid created_from_main_pattern").
			WithContext("field", "latex.created_from_main_pattern").
			Fatal().
			Build()
	}
	return re, nil
}

// selectDocuments applies the include and exclude lists of the output configuration.
func (p *Preprocessor) selectDocuments(docs []*latex.Document) []*latex.Document {
	slices.SortFunc(docs, func(a, b *latex.Document) int { return strings.Compare(a.Path, b.Path) })

	found := sets.New[string]()
	collided := sets.New[string]()
	for _, d := range docs {
		if found.Has(d.Stem) {
			collided.Add(d.Stem)
		}
		found.Add(d.Stem)
	}
	include := sets.New(p.cfg.Output.Include...)
	exclude := sets.New(p.cfg.Output.Exclude...)

	if unknown := include.Difference(found); len(unknown) > 0 {
		p.rep.Warn(report.IssueIncludeUnknown, "",
			"Included documents not found: "+strings.Join(sets.Sorted(unknown), ", "))
	}
	if unknown := exclude.Difference(found); len(unknown) > 0 {
		p.rep.Warn(report.IssueExcludeUnknown, "",
			"Excluded documents not found: "+strings.Join(sets.Sorted(unknown), ", "))
	}
	listed := include.Clone()
	for name := range exclude {
		listed.Add(name)
	}
	if ambiguous := listed.Intersect(collided); len(ambiguous) > 0 {
		p.rep.Warn(report.IssueNameCollision, "",
			"Document names in include or exclude lists match several documents: "+strings.Join(sets.Sorted(ambiguous), ", "))
	}

	out := docs[:0]
	for _, d := range docs {
		if len(include) > 0 && !include.Has(d.Stem) {
			continue
		}
		if exclude.Has(d.Stem) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// options splits the configured option string of a tool.
func options(name string, t config.Tool) ([]string, error) {
	opts, err := toolexec.SplitOptions(t.Options)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "invalid options for "+name).
			WithContext("field", "tools."+name+".options").
			Fatal().
			Build()
	}
	return opts, nil
}

func removeIfExists(rep *report.BuildReport, path string) bool {
	err := os.Remove(path)
	switch {
	case err == nil:
		slog.Debug("Deleted file", logfields.Path(path))
		return true
	case os.IsNotExist(err):
		return false
	default:
		rep.Error(report.IssueDeleteFailed, path, "Failed to delete file", logfields.Error(err))
		return false
	}
}
