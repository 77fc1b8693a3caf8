package latex

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	foundationerrors "git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/report"
)

// TargetDir returns the directory below outRoot mirroring the directory of doc below
// srcRoot and creates it. Failing to create it is fatal.
func TargetDir(doc *Document, srcRoot, outRoot string) (string, error) {
	rel, err := filepath.Rel(srcRoot, doc.Dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", foundationerrors.InternalError("document outside of source root").
			WithContext("document", doc.Path).
			WithContext("root", srcRoot).
			Fatal().
			Build()
	}
	dir := filepath.Join(outRoot, rel)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "cannot create destination directory").
			WithContext("dir", dir).
			Fatal().
			Build()
	}
	return dir, nil
}

// CopyOutputs copies the files next to doc that the output pattern of t accepts into
// targetDir and returns their names. A file that cannot be copied is reported as error.
func (e *Engine) CopyOutputs(doc *Document, t Target, targetDir string) ([]string, error) {
	pattern := t.OutputPattern()
	if pattern == "" {
		return nil, nil
	}
	re, err := StemPattern(pattern, doc.Stem)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "invalid output pattern").
			WithContext("target", string(t)).
			Fatal().
			Build()
	}
	entries, err := os.ReadDir(doc.Dir)
	if err != nil {
		e.rep.Warn(report.IssueDirUnreadable, doc.Dir, "Cannot list directory; no output copied", logfields.Error(err))
		return nil, nil
	}

	var copied []string
	for _, ent := range entries {
		name := ent.Name()
		if ent.IsDir() || name == doc.Name() || !re.MatchString(name) {
			continue
		}
		dst := filepath.Join(targetDir, name)
		if fi, err := os.Stat(dst); err == nil && fi.IsDir() {
			return copied, foundationerrors.FileSystemError("cannot overwrite directory with output").
				WithContext("path", dst).
				Fatal().
				Build()
		}
		if err := copyFile(filepath.Join(doc.Dir, name), dst); err != nil {
			e.rep.Error(report.IssueOutputCopyFailed, dst, "Cannot copy output", logfields.Error(err))
			continue
		}
		slog.Debug("Copied output", logfields.File(name), logfields.Dir(targetDir))
		copied = append(copied, name)
	}
	return copied, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	fi, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, fi.ModTime(), fi.ModTime())
}
