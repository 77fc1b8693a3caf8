package injection

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/report"
	tbtest "git.home.luguber.info/inful/texbuilder/internal/testing"
)

func TestInjectWritesHeadlineAndParameters(t *testing.T) {
	root := t.TempDir()
	cfg := tbtest.NewConfigBuilder(t).WithRoot(root).WithMaxReruns(7).Build()
	rep := report.New("test", "inject", root, nil)

	written, err := Inject(cfg, "1.2.3", All(), rep)
	require.NoError(t, err)
	assert.Len(t, written, 2)

	fa := tbtest.NewFileAssertions(t, root)
	rc := fa.GetFileContent(".latexmkrc")
	lines := strings.Split(rc, "\n")
	assert.Equal(t, "#!/usr/bin/env perl", lines[0])
	assert.Equal(t, "#"+Headline+"1.2.3", lines[1])
	assert.Contains(t, rc, "$max_repeat = 7;")
	assert.Contains(t, rc, "$lualatex = 'lualatex ")
	assert.NotContains(t, rc, "${")

	chk := fa.GetFileContent(".chktexrc")
	assert.True(t, strings.HasPrefix(chk, "#"+Headline+"1.2.3\n"))
}

func TestInjectKeepsForeignFiles(t *testing.T) {
	root := t.TempDir()
	foreign := "# my own settings\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ".chktexrc"), []byte(foreign), 0o600))
	cfg := tbtest.NewConfigBuilder(t).WithRoot(root).Build()
	rep := report.New("test", "inject", root, nil)

	written, err := Inject(cfg, "dev", All(), rep)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, ".latexmkrc")}, written)
	assert.Len(t, rep.IssuesWith(report.IssueInjectionSkipped), 1)

	data, err := os.ReadFile(filepath.Join(root, ".chktexrc"))
	require.NoError(t, err)
	assert.Equal(t, foreign, string(data))

	assert.Equal(t, 1, Clear(root, rep))
	tbtest.NewFileAssertions(t, root).AssertFileNotExists(".latexmkrc").AssertFileExists(".chktexrc")
}

func TestReinjectOverwritesGenerated(t *testing.T) {
	root := t.TempDir()
	cfg := tbtest.NewConfigBuilder(t).WithRoot(root).Build()
	rep := report.New("test", "inject", root, nil)

	_, err := Inject(cfg, "1", All(), rep)
	require.NoError(t, err)
	written, err := Inject(cfg, "2", All(), rep)
	require.NoError(t, err)
	assert.Len(t, written, 2)
	assert.Empty(t, rep.IssuesWith(report.IssueInjectionSkipped))
	tbtest.NewFileAssertions(t, root).AssertFileContains(".latexmkrc", Headline+"2")
}

func TestLookup(t *testing.T) {
	injs, err := Lookup([]string{"chktexrc"})
	require.NoError(t, err)
	require.Len(t, injs, 1)
	assert.Equal(t, ".chktexrc", injs[0].FileName)

	all, err := Lookup(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = Lookup([]string{"vimrc"})
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryValidation))
}
