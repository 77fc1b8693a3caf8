package latex

import (
	"log/slog"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/logscan"
	"git.home.luguber.info/inful/texbuilder/internal/report"
)

// LogChecker turns evidence in tool log files into report issues.
type LogChecker struct {
	rep      *report.BuildReport
	warnings bool
}

// NewLogChecker creates a checker recording into rep. Warnings are only searched for
// if warnings is set.
func NewLogChecker(rep *report.BuildReport, warnings bool) LogChecker {
	return LogChecker{rep: rep, warnings: warnings}
}

// Errors reports a missing log file or a log file matching the error pattern.
func (c LogChecker) Errors(path, command, pattern string) {
	if !isRegular(path) {
		c.rep.Error(report.IssueLogMissing, path, "Running "+command+" failed: no log file written",
			logfields.Command(command))
		return
	}
	if pattern != "" && c.Matches(path, pattern, command) {
		c.rep.Error(report.IssueToolError, path, "Running "+command+" failed: errors logged",
			logfields.Command(command))
	}
}

// Warnings reports a log file matching the warning pattern. A missing log file is
// silent here since Errors reports it.
func (c LogChecker) Warnings(path, command, pattern string) {
	if !c.warnings || pattern == "" || !isRegular(path) {
		return
	}
	if c.Matches(path, pattern, command) {
		c.rep.Warn(report.IssueToolWarning, path, "Running "+command+" emitted warnings",
			logfields.Command(command))
	}
}

// Matches searches a log file. An unreadable file is reported and counts as no match.
func (c LogChecker) Matches(path, pattern, command string) bool {
	res, err := logscan.MatchInFile(path, pattern)
	if err != nil {
		slog.Error("Invalid log pattern", logfields.Command(command), logfields.Error(err))
		return false
	}
	if !res.Readable() {
		c.rep.Warn(report.IssueLogUnreadable, path, "Cannot read log file; it may hide warnings or errors",
			logfields.Command(command), logfields.Error(res.Err))
		return false
	}
	return res.Matched()
}
