package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/texbuilder/internal/report"
)

func writeFiles(t *testing.T, root string, rels ...string) {
	t.Helper()
	for _, rel := range rels {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(rel), 0o644))
	}
}

func TestBuildRecordsTree(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "paper.tex", "fig1.fig", "chapters/intro.tex", "chapters/img/a.svg")

	d := Build(root, nil)
	require.True(t, d.Valid())
	assert.Equal(t, []string{"fig1.fig", "paper.tex"}, d.Files())
	assert.Equal(t, []string{"chapters"}, d.Subdirs())
	assert.Equal(t, []string{"intro.tex"}, d.Child("chapters").Files())
	assert.True(t, d.Child("chapters").Child("img").HasFile("a.svg"))

	var visited []string
	require.NoError(t, d.Walk(func(rel string, _ *Dir) error {
		visited = append(visited, rel)
		return nil
	}))
	assert.Equal(t, []string{"", "chapters", filepath.Join("chapters", "img")}, visited)

	files, dirs := d.Count()
	assert.Equal(t, 4, files)
	assert.Equal(t, 2, dirs)
}

func TestBuildMissingRootIsInvalid(t *testing.T) {
	rep := report.New("b", "build", "", nil)
	d := Build(filepath.Join(t.TempDir(), "nope"), rep)
	assert.False(t, d.Valid())
	assert.Nil(t, d.Files())
	assert.Len(t, rep.IssuesWith(report.IssueDirUnreadable), 1)
}

func TestUnreadableSubdirIsExcluded(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	root := t.TempDir()
	writeFiles(t, root, "a.tex", "locked/x.tex")
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	rep := report.New("b", "build", root, nil)
	d := Build(root, rep)
	require.True(t, d.Valid())
	assert.Empty(t, d.Subdirs())
	assert.Len(t, rep.IssuesWith(report.IssueDirUnreadable), 1)
}

func TestDiffDeepestFirst(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "paper.tex", "sub/keep.tex")
	before := Build(root, nil)

	writeFiles(t, root, "paper.aux", "sub/keep.aux", "pythontex-files-paper/paper.pytxmcr", "pythontex-files-paper/deep/x.out")
	after := Build(root, nil)

	paths, err := Diff(before, after)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("pythontex-files-paper", "deep", "x.out"),
		filepath.Join("pythontex-files-paper", "deep"),
		filepath.Join("pythontex-files-paper", "paper.pytxmcr"),
		"pythontex-files-paper",
		filepath.Join("sub", "keep.aux"),
		"paper.aux",
	}, paths)
}

func TestDiffVanishedDirectoryIsInternalError(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "sub/a.tex")
	before := Build(root, nil)
	require.NoError(t, os.RemoveAll(filepath.Join(root, "sub")))

	_, err := Diff(before, Build(root, nil))
	require.Error(t, err)
}

// Cleaning up twice deletes nothing the second time and leaves the original files.
func TestCleanUpIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "paper.tex", "fig1.fig", "sub/part.tex")
	before := Build(root, nil)

	writeFiles(t, root, "paper.log", "paper.aux", "sub/part.aux", "new/dir/file.txt")

	n, err := CleanUp(root, before, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	again, err := CleanUp(root, before, nil)
	require.NoError(t, err)
	assert.Zero(t, again)

	now := Build(root, nil)
	paths, err := Diff(before, now)
	require.NoError(t, err)
	assert.Empty(t, paths)
	assert.Equal(t, before.Files(), now.Files())
}
