package scanfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	tbtest "git.home.luguber.info/inful/texbuilder/internal/testing"
)

func TestExcludeGlobs(t *testing.T) {
	root := t.TempDir()
	cfg := tbtest.NewConfigBuilder(t).WithRoot(root).WithSourceExclude("drafts/**", "**/*.old.tex").Build()
	f, err := New(cfg)
	require.NoError(t, err)

	assert.True(t, f.Excluded("drafts/a.tex", false))
	assert.True(t, f.Excluded("ch/intro.old.tex", false))
	assert.True(t, f.Excluded(".git", true))
	assert.False(t, f.Excluded("ch/intro.tex", false))
	assert.False(t, f.Excluded("", true))
}

func TestInvalidGlobIsConfigError(t *testing.T) {
	cfg := tbtest.NewConfigBuilder(t).WithRoot(t.TempDir()).WithSourceExclude("[").Build()
	_, err := New(cfg)
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))
}

func TestGitignore(t *testing.T) {
	root := t.TempDir()
	tbtest.NewFileAssertions(t, root).WriteFiles(map[string]string{
		".gitignore":     "build/\n*.bak\n",
		"sub/.gitignore": "scratch.tex\n",
	}, ".gitignore", "sub/.gitignore")

	cfg := tbtest.NewConfigBuilder(t).WithRoot(root).Build()
	f, err := New(cfg)
	require.NoError(t, err)
	assert.True(t, f.Excluded("build", true))
	assert.True(t, f.Excluded("paper.bak", false))
	assert.True(t, f.Excluded("sub/scratch.tex", false))
	assert.False(t, f.Excluded("scratch.tex", false))
	assert.False(t, f.Excluded("paper.tex", false))

	cfg.Source.RespectGitignore = false
	f, err = New(cfg)
	require.NoError(t, err)
	assert.False(t, f.Excluded("paper.bak", false))
}

func TestNilFilterExcludesNothing(t *testing.T) {
	var f *Filter
	assert.False(t, f.Excluded("a.tex", false))
}
