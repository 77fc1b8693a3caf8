package snapshot

import (
	"os"
	"path/filepath"

	foundationerrors "git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/report"
)

// Diff returns the relative paths present in after but not in before. Subdirectories
// are visited before the files of their parent, and a new directory is listed after
// its own contents, so deleting in the returned order never meets a non-empty
// directory. A directory recorded in before but missing from after is an internal error.
func Diff(before, after *Dir) ([]string, error) {
	if !before.Valid() || !after.Valid() {
		return nil, foundationerrors.InternalError("cannot diff invalid directory snapshot").Build()
	}
	var out []string
	if err := diffRec("", before, after, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func diffRec(rel string, before, after *Dir, out *[]string) error {
	for name := range before.children {
		if _, ok := after.children[name]; !ok {
			return foundationerrors.InternalError("directory vanished between snapshots").
				WithContext("dir", filepath.Join(rel, name)).
				Build()
		}
	}
	for _, name := range after.Subdirs() {
		childRel := filepath.Join(rel, name)
		if prev, ok := before.children[name]; ok {
			if err := diffRec(childRel, prev, after.children[name], out); err != nil {
				return err
			}
			continue
		}
		appendTree(childRel, after.children[name], out)
	}
	for _, f := range after.Files() {
		if !before.HasFile(f) {
			*out = append(*out, filepath.Join(rel, f))
		}
	}
	return nil
}

// appendTree lists a whole new directory, contents first.
func appendTree(rel string, d *Dir, out *[]string) {
	for _, name := range d.Subdirs() {
		appendTree(filepath.Join(rel, name), d.children[name], out)
	}
	for _, f := range d.Files() {
		*out = append(*out, filepath.Join(rel, f))
	}
	*out = append(*out, rel)
}

// CleanUp records root again and deletes everything that did not exist when before
// was recorded. Deletion failures are reported as errors and do not stop the sweep.
// It returns the number of deleted entries.
func CleanUp(root string, before *Dir, rep *report.BuildReport) (int, error) {
	after := Build(root, rep)
	paths, err := Diff(before, after)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, rel := range paths {
		p := filepath.Join(root, rel)
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			rep.Error(report.IssueDeleteFailed, p, "Cannot delete file", logfields.Error(err))
			continue
		}
		deleted++
	}
	return deleted, nil
}
