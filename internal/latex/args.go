package latex

import "strings"

// Explicit index entries written by the splitidx package: \indexentry[ident]{...}.
// The second group is the index identifier.
const (
	idxExplicitPattern = `^(\\indexentry)\[([^\]]*)\](.*)$`
	idxExplicitGroup   = 2

	// splitindex is a perl script and gets the same expression in perl syntax.
	splitIndexPattern = `^(\\indexentry)\[([^]]*)\](.*)$`

	implicitIndexIdent = "idx"
	indexIdentSep      = "-"
)

// withFile appends the file argument to the configured options.
func withFile(opts []string, file string) []string {
	args := make([]string, 0, len(opts)+1)
	args = append(args, opts...)
	return append(args, file)
}

func latexArgs(opts []string, dev Device, xelatex bool, texName string) []string {
	args := make([]string, 0, len(opts)+2)
	args = append(args, opts...)
	args = append(args, dev.compilerArgs(xelatex)...)
	return append(args, texName)
}

// splitIndexArgs makes splitindex split stem.idx by identifier and run makeindex on
// every part, passing makeindexOpts through.
func splitIndexArgs(makeindex string, splitOpts, makeindexOpts []string, stem string) []string {
	args := []string{
		"-m", makeindex,
		"-i", splitIndexPattern,
		"-r", "$1$3",
		"-s", indexIdentSep + "$2",
	}
	args = append(args, splitOpts...)
	args = append(args, stem)
	if len(makeindexOpts) > 0 {
		args = append(args, "--")
		args = append(args, makeindexOpts...)
	}
	return args
}

// htlatexArgs builds the positional arguments of htlatex: the file, the tex4ht style
// options, the tex4ht options, the t4ht options and the compiler options.
func htlatexArgs(texName, styleOpts, tex4htOpts, latexOpts string) []string {
	return []string{texName, styleOpts, tex4htOpts, "", latexOpts}
}

// odtArgs runs htlatex with the OpenOffice configuration.
func odtArgs(texName string) []string {
	return []string{texName, "xhtml,ooffice", "ooffice/! -cmozhtf", "-coo -cvalidate"}
}

func chktexArgs(opts []string, clgName, texName string) []string {
	args := make([]string, 0, len(opts)+3)
	args = append(args, opts...)
	return append(args, "-o", clgName, texName)
}

// odt2docFormat returns the format odt2doc is asked to write with -f<format>.
func odt2docFormat(opts []string) string {
	for _, o := range opts {
		if f, ok := strings.CutPrefix(o, "-f"); ok && f != "" {
			return f
		}
	}
	return "doc"
}
