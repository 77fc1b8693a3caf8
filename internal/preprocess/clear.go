package preprocess

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/texbuilder/internal/latex"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/report"
	"git.home.luguber.info/inful/texbuilder/internal/snapshot"
)

// ClearDerived deletes what graphic conversion and document runs created below root,
// subdirectories first. It returns the number of deleted entries.
func (p *Preprocessor) ClearDerived(root string, snap *snapshot.Dir) (int, error) {
	if !snap.Valid() {
		return 0, nil
	}
	return p.clearDir(root, "", snap)
}

func (p *Preprocessor) clearDir(dir, rel string, node *snapshot.Dir) (int, error) {
	deleted := 0
	for _, sub := range node.Subdirs() {
		subRel := filepath.Join(rel, sub)
		if strings.HasPrefix(sub, ".") || p.excluded(subRel, true) {
			continue
		}
		n, err := p.clearDir(filepath.Join(dir, sub), subRel, node.Child(sub))
		deleted += n
		if err != nil {
			return deleted, err
		}
	}

	slog.Debug("Clearing directory", logfields.Dir(dir))
	var plainTex []string
	for _, name := range node.Files() {
		path := filepath.Join(dir, name)
		if strings.HasPrefix(name, ".") || p.excluded(filepath.Join(rel, name), false) || !exists(path) {
			continue
		}
		switch kind := KindOf(name); kind {
		case KindTex:
			doc := p.classify(path)
			if doc == nil {
				plainTex = append(plainTex, path)
				continue
			}
			n, err := p.clearDocument(doc)
			deleted += n
			if err != nil {
				return deleted, err
			}
		case KindFig, KindGnuplot, KindMetaPost, KindSVG, KindJPG, KindPNG:
			for _, out := range derived(kind, stemOf(name)) {
				if removeIfExists(p.rep, filepath.Join(dir, out)) {
					deleted++
				}
			}
		case KindBib, KindUnknown:
		}
	}
	// A LaTeX source that is not a main document may have been deleted as part of a
	// main document's family above.
	for _, path := range plainTex {
		if !exists(path) {
			continue
		}
		if removeIfExists(p.rep, strings.TrimSuffix(path, latex.SuffixTex)+latex.SuffixAux) {
			deleted++
		}
	}
	return deleted, nil
}

// clearDocument deletes every entry next to doc that the document may have created.
// The sources of the document and of graphics named like it are kept.
func (p *Preprocessor) clearDocument(doc *latex.Document) (int, error) {
	re, err := p.createdFrom(doc)
	if err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(doc.Dir)
	if err != nil {
		p.rep.Warn(report.IssueDirUnreadable, doc.Dir, "Cannot list directory of main document",
			logfields.Error(err))
		return 0, nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	deleted := 0
	for _, name := range names {
		if !re.MatchString(name) || isSourceOf(doc.Stem, name) {
			continue
		}
		path := filepath.Join(doc.Dir, name)
		if err := os.RemoveAll(path); err != nil {
			p.rep.Error(report.IssueDeleteFailed, path, "Failed to delete file", logfields.Error(err))
			continue
		}
		slog.Debug("Deleted file", logfields.Path(path), logfields.Document(doc.Name()))
		deleted++
	}
	return deleted, nil
}

// isSourceOf reports whether name is stem with a registered source suffix.
func isSourceOf(stem, name string) bool {
	return stemOf(name) == stem && KindOf(name) != KindUnknown
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
