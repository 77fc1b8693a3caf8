package toolexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitOptions(t *testing.T) {
	t.Setenv("TEXBUILDER_TEST_JOBS", "4")
	cases := map[string][]string{
		"":                                    nil,
		"  ":                                  nil,
		"-interaction=nonstopmode -synctex=1": {"-interaction=nonstopmode", "-synctex=1"},
		`-s prologues=2 -s outputtemplate="%j.mps"`:   {"-s", "prologues=2", "-s", "outputtemplate=%j.mps"},
		`-s prologues=2 -s 'outputtemplate="%j.mps"'`: {"-s", "prologues=2", "-s", `outputtemplate="%j.mps"`},
		`-e 'set terminal cairolatex pdf'`:            {"-e", "set terminal cairolatex pdf"},
		"-j $TEXBUILDER_TEST_JOBS":                    {"-j", "4"},
	}
	for in, want := range cases {
		got, err := SplitOptions(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestSplitOptionsRejectsShellConstructs(t *testing.T) {
	for _, in := range []string{"-a; rm -rf x", "-a > out", "X=1 -a", `-a "unterminated`} {
		_, err := SplitOptions(in)
		assert.Error(t, err, in)
	}
}
