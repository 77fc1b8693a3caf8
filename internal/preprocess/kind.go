package preprocess

import (
	"path/filepath"
	"strings"
)

// Kind is the handler family of a source file, selected by its suffix.
type Kind int

const (
	KindUnknown  Kind = iota
	KindFig           // xfig drawing
	KindGnuplot       // gnuplot script
	KindMetaPost      // metapost diagram
	KindSVG
	KindJPG
	KindPNG
	KindTex // LaTeX source, possibly a main document
	KindBib // bibliography database
)

var kindBySuffix = map[string]Kind{
	".fig": KindFig,
	".gp":  KindGnuplot,
	".mp":  KindMetaPost,
	".svg": KindSVG,
	".jpg": KindJPG,
	".png": KindPNG,
	".tex": KindTex,
	".bib": KindBib,
}

// KindOf returns the kind registered for the suffix of name.
func KindOf(name string) Kind {
	return kindBySuffix[filepath.Ext(name)]
}

// Suffixes returns the registered suffixes.
func Suffixes() []string {
	out := make([]string, 0, len(kindBySuffix))
	for s := range kindBySuffix {
		out = append(out, s)
	}
	return out
}

func (k Kind) String() string {
	switch k {
	case KindFig:
		return "fig"
	case KindGnuplot:
		return "gnuplot"
	case KindMetaPost:
		return "metapost"
	case KindSVG:
		return "svg"
	case KindJPG:
		return "jpg"
	case KindPNG:
		return "png"
	case KindTex:
		return "tex"
	case KindBib:
		return "bib"
	default:
		return "unknown"
	}
}

// graphic reports whether files of the kind are converted into files a document
// includes. Only those are withheld when a sibling document claims their name.
func (k Kind) graphic() bool {
	switch k {
	case KindFig, KindGnuplot, KindMetaPost, KindSVG, KindJPG, KindPNG:
		return true
	default:
		return false
	}
}

func stemOf(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
