package logfields

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"BuildID", KeyBuildID, "b1", BuildID("b1")},
		{"Document", KeyDocument, "paper.tex", Document("paper.tex")},
		{"DocClass", KeyDocClass, "article", DocClass("article")},
		{"Target", KeyTarget, "pdf", Target("pdf")},
		{"Tool", KeyTool, "bibtex", Tool("bibtex")},
		{"Command", KeyCommand, "lualatex", Command("lualatex")},
		{"Dir", KeyDir, "/src", Dir("/src")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"File", KeyFile, "fig1.fig", File("fig1.fig")},
		{"LogFile", KeyLogFile, "paper.log", LogFile("paper.log")},
		{"Suffix", KeySuffix, ".svg", Suffix(".svg")},
		{"Device", KeyDevice, "pdf", Device("pdf")},
		{"Code", KeyCode, "RERUN_LIMIT", Code("RERUN_LIMIT")},
		{"Name", KeyName, "n", Name("n")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if tc.attr.Value.String() != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %s", tc.name, tc.attrVal, tc.attr.Value.String())
		}
	}
}

func TestIntHelpers(t *testing.T) {
	if a := Reruns(2); a.Key != KeyReruns || a.Value.Int64() != 2 {
		t.Fatalf("unexpected reruns attr %v", a)
	}
	if a := MaxReruns(-1); a.Key != KeyMaxReruns || a.Value.Int64() != -1 {
		t.Fatalf("unexpected max reruns attr %v", a)
	}
	if a := ExitCode(3); a.Key != KeyExitCode || a.Value.Int64() != 3 {
		t.Fatalf("unexpected exit code attr %v", a)
	}
	if a := Duration(1500 * time.Microsecond); a.Value.Float64() != 1.5 {
		t.Fatalf("unexpected duration attr %v", a)
	}
}

func TestErrorHelper(t *testing.T) {
	if a := Error(nil); a.Value.String() != "" {
		t.Fatalf("nil error should log empty string, got %q", a.Value.String())
	}
	if a := Error(errors.New("boom")); a.Value.String() != "boom" {
		t.Fatalf("unexpected error value %q", a.Value.String())
	}
}
