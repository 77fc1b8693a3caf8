// Package snapshot records a directory tree once so that it can be enumerated and
// later compared against a second recording of the same tree.
package snapshot

import (
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/report"
	"git.home.luguber.info/inful/texbuilder/internal/util/sets"
)

// Dir is an immutable recording of one directory: the names of the regular files it
// contains and a recording per readable subdirectory. A Dir whose listing failed is
// invalid and carries neither.
type Dir struct {
	files    sets.Set[string]
	children map[string]*Dir
}

// Build records the tree below path. Subdirectories that cannot be listed are left out
// of their parent and reported as warnings. If path itself cannot be listed the
// returned Dir is invalid.
func Build(path string, rep *report.BuildReport) *Dir {
	entries, err := os.ReadDir(path)
	if err != nil {
		rep.Warn(report.IssueDirUnreadable, path, "Cannot read directory", logfields.Error(err))
		return &Dir{}
	}
	d := &Dir{
		files:    sets.New[string](),
		children: make(map[string]*Dir),
	}
	for _, e := range entries {
		if e.IsDir() {
			child := Build(filepath.Join(path, e.Name()), rep)
			if child.Valid() {
				d.children[e.Name()] = child
			}
			continue
		}
		d.files.Add(e.Name())
	}
	return d
}

// Valid reports whether the directory listing succeeded.
func (d *Dir) Valid() bool { return d != nil && d.files != nil }

// Files returns the regular file names in ascending order.
func (d *Dir) Files() []string {
	if !d.Valid() {
		return nil
	}
	return sets.Sorted(d.files)
}

// HasFile reports whether name was a regular file when the recording was made.
func (d *Dir) HasFile(name string) bool { return d.Valid() && d.files.Has(name) }

// Subdirs returns the names of the recorded subdirectories in ascending order.
func (d *Dir) Subdirs() []string {
	if !d.Valid() {
		return nil
	}
	names := sets.New[string]()
	for name := range d.children {
		names.Add(name)
	}
	return sets.Sorted(names)
}

// Child returns the recording of subdirectory name, or nil.
func (d *Dir) Child(name string) *Dir {
	if !d.Valid() {
		return nil
	}
	return d.children[name]
}

// Walk calls fn for d and every recorded subdirectory, parents before children,
// siblings in name order. rel is the slash-free relative path below the root
// ("" for the root itself), joined with the OS separator.
func (d *Dir) Walk(fn func(rel string, dir *Dir) error) error {
	return d.walk("", fn)
}

func (d *Dir) walk(rel string, fn func(string, *Dir) error) error {
	if !d.Valid() {
		return nil
	}
	if err := fn(rel, d); err != nil {
		return err
	}
	for _, name := range d.Subdirs() {
		if err := d.children[name].walk(filepath.Join(rel, name), fn); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of files and directories below d.
func (d *Dir) Count() (files, dirs int) {
	_ = d.Walk(func(_ string, dir *Dir) error {
		files += len(dir.files)
		dirs += len(dir.children)
		return nil
	})
	return files, dirs
}
