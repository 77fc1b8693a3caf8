package build

import (
	"context"
	"time"

	"git.home.luguber.info/inful/texbuilder/internal/config"
	"git.home.luguber.info/inful/texbuilder/internal/report"
)

// Service is the canonical interface for running a pass over a source tree. The
// CLI and the watcher are thin wrappers over it.
type Service interface {
	Run(ctx context.Context, req Request) (*Result, error)
}

// Command selects what a pass does.
type Command string

const (
	// CommandBuild converts graphics and builds every main document for the
	// requested targets.
	CommandBuild Command = "build"
	// CommandGraphics only converts graphics and lists the main documents.
	CommandGraphics Command = "graphics"
	// CommandClear deletes what earlier passes created in the source tree.
	CommandClear Command = "clear"
	// CommandCheck runs the style checker on every main document.
	CommandCheck Command = "check"
)

// Request contains all inputs of a pass.
type Request struct {
	Config  *config.Config
	Command Command
	// Targets overrides latex.targets of the configuration if not empty.
	Targets []string
}

// Result is the outcome of a pass.
type Result struct {
	Status    Status
	Report    *report.BuildReport
	Documents []string // main documents found, source paths
	Outputs   []string // files copied into the output directory
	Deleted   int      // entries removed from the source tree
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// Status is the overall outcome of a pass.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusWarning   Status = "warning"
	StatusError     Status = "error" // finished, but issues of error level were recorded
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsSuccess reports whether the pass finished without error level issues.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess || s == StatusWarning
}

func statusOf(outcome report.BuildOutcome) Status {
	switch outcome {
	case report.OutcomeSuccess:
		return StatusSuccess
	case report.OutcomeWarning:
		return StatusWarning
	case report.OutcomeError:
		return StatusError
	default:
		return StatusFailed
	}
}
