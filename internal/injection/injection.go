// Package injection writes configuration files for companion tools into the source
// root and removes them again, but only files it wrote itself.
package injection

import (
	"bufio"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/texbuilder/internal/config"
	foundationerrors "git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/report"
)

//go:embed templates/*
var templates embed.FS

// Headline marks a file as generated. It follows the comment sign of the file.
const Headline = "texbuilder generated this file and may overwrite or delete it; version "

var paramRef = regexp.MustCompile(`\$\{([\w.]+)\}`)

// Injection is a file that can be written into the source root.
type Injection struct {
	Name     string // name in the command line and the template directory
	FileName string
	Comment  string
	Shebang  bool // first template line is kept above the headline
	Filter   bool // ${param} references are replaced by configuration values
}

// All lists the known injections.
func All() []Injection {
	return []Injection{
		{Name: "latexmkrc", FileName: ".latexmkrc", Comment: "#", Shebang: true, Filter: true},
		{Name: "chktexrc", FileName: ".chktexrc", Comment: "#"},
	}
}

// Lookup returns the injections named, or all if names is empty. An unknown name
// is a validation error.
func Lookup(names []string) ([]Injection, error) {
	if len(names) == 0 {
		return All(), nil
	}
	var out []Injection
	for _, name := range names {
		found := false
		for _, inj := range All() {
			if inj.Name == name {
				out = append(out, inj)
				found = true
				break
			}
		}
		if !found {
			return nil, foundationerrors.ValidationError("unknown injection "+name).
				WithContext("valid", "latexmkrc, chktexrc").
				Fatal().
				Build()
		}
	}
	return out, nil
}

// Inject writes each injection into the source root unless a file of that name
// exists that was not generated. It returns the paths written.
func Inject(cfg *config.Config, version string, injections []Injection, rep *report.BuildReport) ([]string, error) {
	params := config.ParamMap(cfg)
	var written []string
	for _, inj := range injections {
		path := filepath.Join(cfg.Source.Root, inj.FileName)
		if _, err := os.Stat(path); err == nil && !Generated(path, inj) {
			rep.Warn(report.IssueInjectionSkipped, path, "File exists and was not generated; not overwriting it")
			continue
		}
		content, err := inj.render(version, params)
		if err != nil {
			return written, err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return written, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to write "+inj.FileName).
				WithContext("path", path).
				Fatal().
				Build()
		}
		slog.Info("Injected file", logfields.Path(path))
		written = append(written, path)
	}
	return written, nil
}

func (inj Injection) render(version string, params map[string]string) (string, error) {
	data, err := templates.ReadFile("templates/" + inj.Name)
	if err != nil {
		return "", foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "missing template "+inj.Name).Build()
	}
	lines := strings.SplitAfter(string(data), "\n")
	var b strings.Builder
	if inj.Shebang && len(lines) > 0 {
		b.WriteString(lines[0])
		lines = lines[1:]
	}
	b.WriteString(inj.Comment + Headline + version + "\n")

	var missing []string
	for _, line := range lines {
		if inj.Filter {
			line = paramRef.ReplaceAllStringFunc(line, func(ref string) string {
				name := paramRef.FindStringSubmatch(ref)[1]
				v, ok := params[name]
				if !ok {
					missing = append(missing, name)
				}
				return v
			})
		}
		b.WriteString(line)
	}
	if len(missing) > 0 {
		return "", foundationerrors.InternalError(fmt.Sprintf("template %s references unknown parameters %v", inj.Name, missing)).Build()
	}
	return b.String(), nil
}

// Generated reports whether the file at path carries the headline of inj. A file
// that cannot be read counts as not generated.
func Generated(path string, inj Injection) bool {
	f, err := os.Open(path)
	if err != nil {
		slog.Warn("Cannot read file to check whether it was generated", logfields.Path(path), logfields.Error(err))
		return false
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	lines := 1
	if inj.Shebang {
		lines = 2
	}
	for i := 0; i < lines && sc.Scan(); i++ {
		if strings.HasPrefix(sc.Text(), inj.Comment+Headline) {
			return true
		}
	}
	return false
}

// Clear deletes the injections from the source root that were generated. It
// returns the number of deleted files.
func Clear(root string, rep *report.BuildReport) int {
	deleted := 0
	for _, inj := range All() {
		path := filepath.Join(root, inj.FileName)
		if _, err := os.Stat(path); err != nil || !Generated(path, inj) {
			continue
		}
		if err := os.Remove(path); err != nil {
			rep.Error(report.IssueDeleteFailed, path, "Failed to delete injected file", logfields.Error(err))
			continue
		}
		slog.Debug("Deleted injected file", logfields.Path(path))
		deleted++
	}
	return deleted
}
