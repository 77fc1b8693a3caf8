// Package scanfilter decides which paths below the source root are left out of a
// scan: paths matching configured doublestar globs and, if enabled, paths ignored
// by .gitignore files.
package scanfilter

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"git.home.luguber.info/inful/texbuilder/internal/config"
	foundationerrors "git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
)

// defaultIgnores are never scanned.
var defaultIgnores = []string{
	"**/.git",
	"**/.git/**",
}

// Filter matches paths relative to the source root. The zero value excludes nothing.
type Filter struct {
	globs   []string
	ignores gitignore.Matcher
}

// New builds the filter for cfg.Source. Invalid globs are a configuration error.
func New(cfg *config.Config) (*Filter, error) {
	f := &Filter{}
	for _, pat := range cfg.Source.Exclude {
		if !doublestar.ValidatePattern(pat) {
			return nil, foundationerrors.ConfigError("invalid exclude pattern "+pat).
				WithContext("field", "source.exclude").
				Fatal().
				Build()
		}
	}
	f.globs = append(append(f.globs, defaultIgnores...), cfg.Source.Exclude...)

	if cfg.Source.RespectGitignore {
		patterns, err := gitignore.ReadPatterns(osfs.New(cfg.Source.Root), nil)
		if err != nil {
			slog.Warn("Cannot read .gitignore files; ignoring them", logfields.Dir(cfg.Source.Root), logfields.Error(err))
		} else if len(patterns) > 0 {
			f.ignores = gitignore.NewMatcher(patterns)
			slog.Debug("Loaded .gitignore patterns", logfields.Count(len(patterns)))
		}
	}
	return f, nil
}

// Excluded reports whether rel, a path relative to the source root, is left out.
func (f *Filter) Excluded(rel string, isDir bool) bool {
	if f == nil || rel == "" {
		return false
	}
	normalized := filepath.ToSlash(rel)
	for _, pat := range f.globs {
		if matched, err := doublestar.Match(pat, normalized); err == nil && matched {
			return true
		}
	}
	if f.ignores != nil && f.ignores.Match(strings.Split(normalized, "/"), isDir) {
		return true
	}
	return false
}
