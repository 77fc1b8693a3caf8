// Package report collects the non-fatal diagnostics of one build pass and renders them
// as a machine readable build report.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
)

// BuildOutcome is the typed enumeration of final build result states.
type BuildOutcome string

const (
	OutcomeSuccess BuildOutcome = "success"
	OutcomeWarning BuildOutcome = "warning"
	OutcomeError   BuildOutcome = "error" // finished, but a tool reported errors
	OutcomeFailed  BuildOutcome = "failed"
)

// IssueCode enumerates machine-parseable issue identifiers.
// These codes are stable contract and should only be appended (no reuse on removal).
type IssueCode string

const (
	IssueDirUnreadable       IssueCode = "DIR_UNREADABLE"
	IssueDeleteFailed        IssueCode = "DELETE_FAILED"
	IssueLogUnreadable       IssueCode = "LOG_UNREADABLE"
	IssueLogMissing          IssueCode = "LOG_MISSING"
	IssueToolError           IssueCode = "TOOL_ERROR"
	IssueToolWarning         IssueCode = "TOOL_WARNING"
	IssueBadBoxes            IssueCode = "BAD_BOXES"
	IssueRerunLimit          IssueCode = "RERUN_LIMIT"
	IssueToolExit            IssueCode = "TOOL_EXIT"
	IssueOutputMissing       IssueCode = "OUTPUT_MISSING"
	IssueOutputStale         IssueCode = "OUTPUT_STALE"
	IssueSourceConflict      IssueCode = "SOURCE_CONFLICT"
	IssueSuffixUnregistered  IssueCode = "SUFFIX_UNREGISTERED"
	IssueMainFileUnreadable  IssueCode = "MAIN_FILE_UNREADABLE"
	IssueIncludeUnknown      IssueCode = "INCLUDE_UNKNOWN"
	IssueExcludeUnknown      IssueCode = "EXCLUDE_UNKNOWN"
	IssueNameCollision       IssueCode = "NAME_COLLISION"
	IssueIndexHeuristic      IssueCode = "INDEX_HEURISTIC"
	IssueGraphicFilterFailed IssueCode = "GRAPHIC_FILTER_FAILED"
	IssueDviXdvBoth          IssueCode = "DVI_XDV_BOTH"
	IssueChkTexFindings      IssueCode = "CHKTEX_FINDINGS"
	IssueTargetSkipped       IssueCode = "TARGET_SKIPPED"
	IssueInjectionSkipped    IssueCode = "INJECTION_SKIPPED"
	IssueOutputCopyFailed    IssueCode = "OUTPUT_COPY_FAILED"
)

// IssueSeverity represents normalized severity levels.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
	SeverityInfo    IssueSeverity = "info"
)

// Issue is a structured entry describing a discrete problem encountered.
type Issue struct {
	Code     IssueCode     `json:"code"`
	Severity IssueSeverity `json:"severity"`
	Message  string        `json:"message"`
	File     string        `json:"file,omitempty"`
}

// BuildReport captures what one pass did. A nil *BuildReport is valid: issues are
// only logged.
type BuildReport struct {
	mu sync.Mutex

	SchemaVersion int
	BuildID       string
	Command       string
	Root          string
	Targets       []string
	Start         time.Time
	End           time.Time
	Documents     []string
	ToolRuns      map[string]int
	Issues        []Issue
	Failure       string
	Outcome       BuildOutcome

	onIssue func(IssueCode)
}

// OnIssue registers fn to be called for every recorded issue, e.g. to count issues
// in metrics.
func (r *BuildReport) OnIssue(fn func(IssueCode)) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onIssue = fn
}

// New starts a report for one pass.
func New(buildID, command, root string, targets []string) *BuildReport {
	return &BuildReport{
		SchemaVersion: 1,
		BuildID:       buildID,
		Command:       command,
		Root:          root,
		Targets:       append([]string(nil), targets...),
		Start:         time.Now(),
		ToolRuns:      make(map[string]int),
	}
}

// Error records and logs an error level issue.
func (r *BuildReport) Error(code IssueCode, file, msg string, attrs ...slog.Attr) {
	r.add(code, SeverityError, file, msg, attrs)
}

// Warn records and logs a warning level issue.
func (r *BuildReport) Warn(code IssueCode, file, msg string, attrs ...slog.Attr) {
	r.add(code, SeverityWarning, file, msg, attrs)
}

// Info records and logs an informational issue.
func (r *BuildReport) Info(code IssueCode, file, msg string, attrs ...slog.Attr) {
	r.add(code, SeverityInfo, file, msg, attrs)
}

func (r *BuildReport) add(code IssueCode, sev IssueSeverity, file, msg string, attrs []slog.Attr) {
	all := make([]slog.Attr, 0, len(attrs)+2)
	all = append(all, logfields.Code(string(code)))
	if file != "" {
		all = append(all, logfields.File(file))
	}
	all = append(all, attrs...)
	slog.LogAttrs(context.Background(), levelFor(sev), msg, all...)

	if r == nil {
		return
	}
	r.mu.Lock()
	r.Issues = append(r.Issues, Issue{Code: code, Severity: sev, Message: msg, File: file})
	hook := r.onIssue
	r.mu.Unlock()
	if hook != nil {
		hook(code)
	}
}

func levelFor(sev IssueSeverity) slog.Level {
	switch sev {
	case SeverityError:
		return slog.LevelError
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// AddDocument records a processed main document.
func (r *BuildReport) AddDocument(path string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Documents = append(r.Documents, path)
}

// RecordToolRun counts one invocation of the named tool.
func (r *BuildReport) RecordToolRun(tool string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ToolRuns[tool]++
}

// Count returns the number of issues of the given severity.
func (r *BuildReport) Count(sev IssueSeverity) int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, is := range r.Issues {
		if is.Severity == sev {
			n++
		}
	}
	return n
}

// IssuesWith returns all recorded issues carrying code.
func (r *BuildReport) IssuesWith(code IssueCode) []Issue {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Issue
	for _, is := range r.Issues {
		if is.Code == code {
			out = append(out, is)
		}
	}
	return out
}

// Finish stamps the end time and derives the outcome. err is the fatal error that ended
// the pass, if any.
func (r *BuildReport) Finish(err error) {
	if r == nil {
		return
	}
	errs, warns := r.Count(SeverityError), r.Count(SeverityWarning)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.End = time.Now()
	switch {
	case err != nil:
		r.Failure = err.Error()
		r.Outcome = OutcomeFailed
	case errs > 0:
		r.Outcome = OutcomeError
	case warns > 0:
		r.Outcome = OutcomeWarning
	default:
		r.Outcome = OutcomeSuccess
	}
}

// Summary returns a human-readable single-line summary.
func (r *BuildReport) Summary() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	runs := 0
	for _, n := range r.ToolRuns {
		runs += n
	}
	errs, warns := 0, 0
	for _, is := range r.Issues {
		switch is.Severity {
		case SeverityError:
			errs++
		case SeverityWarning:
			warns++
		}
	}
	return fmt.Sprintf("build=%s command=%s documents=%d tool_runs=%d duration=%s errors=%d warnings=%d outcome=%s",
		r.BuildID, r.Command, len(r.Documents), runs, r.End.Sub(r.Start).Truncate(time.Millisecond), errs, warns, r.Outcome)
}

// JSON renders the report. Tool names are emitted in sorted order by encoding/json.
func (r *BuildReport) JSON() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	docs := append([]string(nil), r.Documents...)
	sort.Strings(docs)
	s := serializable{
		SchemaVersion: r.SchemaVersion,
		BuildID:       r.BuildID,
		Command:       r.Command,
		Root:          r.Root,
		Targets:       r.Targets,
		Start:         r.Start,
		End:           r.End,
		Documents:     docs,
		ToolRuns:      r.ToolRuns,
		Issues:        r.Issues,
		Failure:       r.Failure,
		Outcome:       string(r.Outcome),
	}
	if s.Issues == nil {
		s.Issues = []Issue{}
	}
	if s.Documents == nil {
		s.Documents = []string{}
	}
	return json.MarshalIndent(s, "", "  ")
}

type serializable struct {
	SchemaVersion int            `json:"schema_version"`
	BuildID       string         `json:"build_id"`
	Command       string         `json:"command"`
	Root          string         `json:"root"`
	Targets       []string       `json:"targets"`
	Start         time.Time      `json:"start"`
	End           time.Time      `json:"end"`
	Documents     []string       `json:"documents"`
	ToolRuns      map[string]int `json:"tool_runs"`
	Issues        []Issue        `json:"issues"`
	Failure       string         `json:"failure,omitempty"`
	Outcome       string         `json:"outcome"`
}

// Persist writes the report atomically into dir. It writes two files:
//
//	build-report.json  (machine readable)
//	build-report.txt   (human summary)
//
// Best effort; errors are returned for caller logging but do not change build outcome.
func (r *BuildReport) Persist(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir for report: %w", err)
	}
	jb, err := r.JSON()
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	if err := writeAtomic(filepath.Join(dir, "build-report.json"), jb); err != nil {
		return err
	}
	return writeAtomic(filepath.Join(dir, "build-report.txt"), []byte(r.Summary()+"\n"))
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("atomic rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
