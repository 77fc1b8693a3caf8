package latex

import (
	"path/filepath"
	"regexp"
	"strings"

	foundationerrors "git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
)

// Target is a deliverable format requested for a main document.
type Target string

const (
	TargetChk  Target = "chk"
	TargetDVI  Target = "dvi"
	TargetPDF  Target = "pdf"
	TargetHTML Target = "html"
	TargetODT  Target = "odt"
	TargetDocx Target = "docx"
	TargetRTF  Target = "rtf"
	TargetTxt  Target = "txt"
)

// AllTargets lists the targets in the order they are processed for a document.
var AllTargets = []Target{TargetChk, TargetDVI, TargetPDF, TargetHTML, TargetODT, TargetDocx, TargetRTF, TargetTxt}

// StemPlaceholder stands for the document stem in file name patterns.
const StemPlaceholder = "T$T"

var targetOutputs = map[Target]string{
	TargetChk:  "",
	TargetDVI:  `^(T$T\.(dvi|xdv)|.+(\.(ptx|eps|jpg|png)|\d+\.mps))$`,
	TargetPDF:  `^T$T\.pdf$`,
	TargetHTML: `^(T$T(((ch|se|su|ap|li)?\d+)?\.x?html?|\.css|\d+x\.x?bb|\d+x\.png|-\d+\.svg)|(cmsy)\d+(-c)?-\d+c?\.png)$`,
	TargetODT:  `^T$T\.(odt|fodt|uot)$`,
	TargetDocx: `^T$T\.(doc(|6|.95|.x|.x7)|rtf)$`,
	TargetRTF:  `^T$T\.rtf$`,
	TargetTxt:  `^T$T\.txt$`,
}

func lookupTarget(name string) (Target, bool) {
	t := Target(strings.ToLower(strings.TrimSpace(name)))
	_, ok := targetOutputs[t]
	return t, ok
}

// ParseTargets validates names and returns the targets in processing order without
// duplicates. An unknown name is a fatal validation error.
func ParseTargets(names []string) ([]Target, error) {
	want := make(map[Target]bool, len(names))
	for _, n := range names {
		t, ok := lookupTarget(n)
		if !ok {
			return nil, foundationerrors.ValidationError("unknown target "+n).
				WithContext("valid", AllTargets).
				Fatal().
				Build()
		}
		want[t] = true
	}
	out := make([]Target, 0, len(want))
	for _, t := range AllTargets {
		if want[t] {
			out = append(out, t)
		}
	}
	return out, nil
}

// OutputPattern returns the pattern of the file names the target delivers, with the
// stem placeholder unresolved. Empty means the target delivers nothing.
func (t Target) OutputPattern() string { return targetOutputs[t] }

// StemPattern compiles pattern with every stem placeholder replaced by the quoted stem.
func StemPattern(pattern, stem string) (*regexp.Regexp, error) {
	return regexp.Compile(strings.ReplaceAll(pattern, StemPlaceholder, regexp.QuoteMeta(stem)))
}

// Device is the output family the compiler writes: a pdf directly, or a dvi that is
// converted afterwards.
type Device string

const (
	DevicePDF   Device = "pdf"
	DeviceDVIPS Device = "dvips"
)

// DeviceFor returns the device selected by the pdf_via_dvi setting.
func DeviceFor(pdfViaDvi bool) Device {
	if pdfViaDvi {
		return DeviceDVIPS
	}
	return DevicePDF
}

// ViaDvi reports whether the compiler output must be converted into a pdf.
func (d Device) ViaDvi() bool { return d == DeviceDVIPS }

// compilerArgs returns the option selecting the device, or nothing for the default.
func (d Device) compilerArgs(xelatex bool) []string {
	if !d.ViaDvi() {
		return nil
	}
	if xelatex {
		return []string{"-no-pdf"}
	}
	return []string{"-output-format=dvi"}
}

// targetSuffix is the suffix of the file the compiler writes for this device.
func (d Device) targetSuffix(xelatex bool) string {
	switch {
	case !d.ViaDvi():
		return SuffixPDF
	case xelatex:
		return SuffixXDV
	default:
		return SuffixDVI
	}
}

// isXelatex reports whether command runs xelatex, which has its own dvi option.
func isXelatex(command string) bool {
	return strings.TrimSuffix(filepath.Base(command), ".exe") == "xelatex"
}
