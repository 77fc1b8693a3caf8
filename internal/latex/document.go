package latex

import (
	"path/filepath"
	"strings"
)

// File name suffixes of the artifacts a compiler run and its auxiliary tools produce.
const (
	SuffixTex      = ".tex"
	SuffixPDF      = ".pdf"
	SuffixDVI      = ".dvi"
	SuffixXDV      = ".xdv"
	SuffixLog      = ".log"
	SuffixAux      = ".aux"
	SuffixToc      = ".toc"
	SuffixLof      = ".lof"
	SuffixLot      = ".lot"
	SuffixLol      = ".lol"
	SuffixBbl      = ".bbl"
	SuffixBlg      = ".blg"
	SuffixIdx      = ".idx"
	SuffixInd      = ".ind"
	SuffixIlg      = ".ilg"
	SuffixGlo      = ".glo"
	SuffixGls      = ".gls"
	SuffixGlg      = ".glg"
	SuffixPytxcode = ".pytxcode"
	SuffixPlg      = ".plg"
	SuffixPytxmcr  = ".pytxmcr"
	SuffixHTML     = ".html"
	SuffixODT      = ".odt"
	SuffixRTF      = ".rtf"
	SuffixTxt      = ".txt"
	SuffixClg      = ".clg"
)

// PythontexDirPrefix prefixes the stem to name the directory pythontex writes into.
const PythontexDirPrefix = "pythontex-files-"

// Document describes a main document: a .tex file that the main file pattern accepted.
// Every artifact name is derived from the stem by appending a suffix, and tools are
// run in Dir with these relative names.
type Document struct {
	Path     string // path of the .tex file, below the source root
	Dir      string
	Stem     string
	DocClass string

	// Targets is the restriction from a targets magic comment; nil means no restriction.
	Targets []Target
}

// NewDocument describes the main document at path. groups are the named groups of the
// main file pattern match: docClassMagic overrides docClass, targetsMagic restricts the
// targets. Unknown names in targetsMagic are returned so that callers can report them.
func NewDocument(path string, groups map[string]string) (*Document, []string) {
	base := filepath.Base(path)
	d := &Document{
		Path: path,
		Dir:  filepath.Dir(path),
		Stem: strings.TrimSuffix(base, filepath.Ext(base)),
	}
	d.DocClass = groups["docClass"]
	if magic := groups["docClassMagic"]; magic != "" {
		d.DocClass = magic
	}
	var unknown []string
	if magic := groups["targetsMagic"]; magic != "" {
		d.Targets = []Target{}
		for _, name := range strings.Split(magic, ",") {
			if name == "" {
				continue
			}
			t, ok := lookupTarget(name)
			if !ok {
				unknown = append(unknown, name)
				continue
			}
			d.Targets = append(d.Targets, t)
		}
	}
	return d, unknown
}

// Name returns the file name of the source, e.g. paper.tex.
func (d *Document) Name() string { return filepath.Base(d.Path) }

// File returns the name of the artifact with the given suffix, relative to Dir.
func (d *Document) File(suffix string) string { return d.Stem + suffix }

// PathOf returns the path of the artifact with the given suffix.
func (d *Document) PathOf(suffix string) string { return filepath.Join(d.Dir, d.Stem+suffix) }

// Exists reports whether the artifact with the given suffix is a regular file on disk.
func (d *Document) Exists(suffix string) bool { return isRegular(d.PathOf(suffix)) }

// Wants reports whether the document allows target t.
func (d *Document) Wants(t Target) bool {
	if d.Targets == nil {
		return true
	}
	for _, dt := range d.Targets {
		if dt == t {
			return true
		}
	}
	return false
}
