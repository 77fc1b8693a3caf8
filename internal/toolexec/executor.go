package toolexec

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	foundationerrors "git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/metrics"
	"git.home.luguber.info/inful/texbuilder/internal/report"
)

// ExitPolicy decides which exit codes count as a failed run.
type ExitPolicy uint8

const (
	// ExitAuto is ExitNonZero if outputs are expected and ExitNever otherwise.
	ExitAuto ExitPolicy = iota
	ExitNever
	ExitNonZero
	ExitIsOne
)

func (p ExitPolicy) failed(code int, expectsOutputs bool) bool {
	switch p {
	case ExitNever:
		return false
	case ExitNonZero:
		return code != 0
	case ExitIsOne:
		return code == 1
	default:
		return expectsOutputs && code != 0
	}
}

// FreshnessWindow is the filesystem timestamp granularity assumed when deciding whether
// an output was rewritten. Outputs younger than this are waited for before a run.
const FreshnessWindow = 1001 * time.Millisecond

// Invocation describes one run of a tool.
type Invocation struct {
	Tool    string   // configuration name, used for logs, metrics and the report
	Command string   // program name or path
	Args    []string // file arguments are relative to Dir
	Dir     string
	Outputs []string // files the run must create or update, relative to Dir
	Policy  ExitPolicy
}

// Result is what a run produced.
type Result struct {
	Output    string
	ExitCode  int
	Succeeded bool // exit policy satisfied
	Fresh     bool // every expected output exists and is newer than before the run
	Duration  time.Duration
}

// Executor wraps a Runner with the freshness protocol and reporting.
type Executor struct {
	runner   Runner
	report   *report.BuildReport
	recorder metrics.Recorder
	now      func() time.Time
	sleep    func(time.Duration)
}

// NewExecutor creates an executor reporting into rep (which may be nil).
func NewExecutor(runner Runner, rep *report.BuildReport) *Executor {
	if runner == nil {
		runner = OSRunner{}
	}
	return &Executor{
		runner:   runner,
		report:   rep,
		recorder: metrics.NoopRecorder{},
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// WithRecorder sets the metrics recorder.
func (e *Executor) WithRecorder(r metrics.Recorder) *Executor {
	if r != nil {
		e.recorder = r
	}
	return e
}

// WithClock replaces time.Now and time.Sleep; used by tests.
func (e *Executor) WithClock(now func() time.Time, sleep func(time.Duration)) *Executor {
	e.now, e.sleep = now, sleep
	return e
}

// Report returns the report issues are recorded in.
func (e *Executor) Report() *report.BuildReport { return e.report }

type outputState struct {
	existed bool
	modTime time.Time
}

// Run executes inv. Before the run it waits until every existing expected output is
// at least FreshnessWindow old, so that a rewrite is visible in the modification time.
// A failed exit policy, a missing output and an output that was not rewritten are
// reported as errors and do not abort. Only a program that cannot be started returns
// an error.
func (e *Executor) Run(ctx context.Context, inv Invocation) (Result, error) {
	before := make([]outputState, len(inv.Outputs))
	now := e.now()
	minAge := time.Duration(-1)
	for i, out := range inv.Outputs {
		fi, err := os.Stat(filepath.Join(inv.Dir, out))
		if err != nil {
			continue
		}
		before[i] = outputState{existed: true, modTime: fi.ModTime()}
		age := now.Sub(fi.ModTime())
		if age < 0 {
			age = 0
		}
		if minAge < 0 || age < minAge {
			minAge = age
		}
	}
	if minAge >= 0 && minAge < FreshnessWindow {
		e.sleep(FreshnessWindow - minAge)
	}

	slog.Debug("Running tool",
		logfields.Tool(inv.Tool),
		logfields.Command(inv.Command),
		logfields.Args(inv.Args),
		logfields.Dir(inv.Dir))

	e.report.RecordToolRun(inv.Tool)
	start := e.now()
	output, code, err := e.runner.Exec(ctx, inv.Dir, inv.Command, inv.Args)
	dur := e.now().Sub(start)
	e.recorder.ObserveToolDuration(inv.Tool, dur)
	if err != nil {
		e.recorder.IncToolResult(inv.Tool, metrics.ResultLaunch)
		return Result{Output: output, ExitCode: code, Duration: dur}, foundationerrors.WrapError(err, foundationerrors.CategoryTool, "Error running "+inv.Command).
			Fatal().
			WithContext("tool", inv.Tool).
			WithContext("dir", inv.Dir).
			Build()
	}

	res := Result{Output: output, ExitCode: code, Duration: dur, Fresh: true}
	res.Succeeded = !inv.Policy.failed(code, len(inv.Outputs) > 0)
	if !res.Succeeded {
		e.report.Error(report.IssueToolExit, inv.Dir, "Running "+inv.Command+" failed with return code "+strconv.Itoa(code),
			logfields.Tool(inv.Tool), logfields.ExitCode(code))
	}
	for i, out := range inv.Outputs {
		if !e.checkUpdated(inv, out, before[i]) {
			res.Fresh = false
		}
	}
	if res.Succeeded && res.Fresh {
		e.recorder.IncToolResult(inv.Tool, metrics.ResultSuccess)
	} else {
		e.recorder.IncToolResult(inv.Tool, metrics.ResultFailed)
	}
	if output != "" {
		slog.Debug("Tool output", logfields.Tool(inv.Tool), slog.String("output", output))
	}
	return res, nil
}

func (e *Executor) checkUpdated(inv Invocation, out string, prev outputState) bool {
	path := filepath.Join(inv.Dir, out)
	fi, err := os.Stat(path)
	if err != nil {
		e.report.Error(report.IssueOutputMissing, path, "Running "+inv.Command+" failed: No target file written",
			logfields.Tool(inv.Tool))
		return false
	}
	if !prev.existed {
		return true
	}
	if !fi.ModTime().After(prev.modTime) {
		e.report.Error(report.IssueOutputStale, path, "Running "+inv.Command+" failed: Target file is not updated",
			logfields.Tool(inv.Tool))
		return false
	}
	return true
}
