package build

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/texbuilder/internal/config"
	"git.home.luguber.info/inful/texbuilder/internal/eventstore"
	foundationerrors "git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/injection"
	"git.home.luguber.info/inful/texbuilder/internal/latex"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/metrics"
	"git.home.luguber.info/inful/texbuilder/internal/preprocess"
	"git.home.luguber.info/inful/texbuilder/internal/report"
	"git.home.luguber.info/inful/texbuilder/internal/scanfilter"
	"git.home.luguber.info/inful/texbuilder/internal/snapshot"
	"git.home.luguber.info/inful/texbuilder/internal/toolexec"
)

// Publisher sends a finished report somewhere. *notify.Publisher implements it.
type Publisher interface {
	Publish(rep *report.BuildReport) error
}

// textfileWriter is implemented by recorders that can export to the node exporter
// textfile collector.
type textfileWriter interface {
	WriteTextfile(path string) error
}

// DefaultService is the standard implementation of Service.
type DefaultService struct {
	runner    toolexec.Runner
	recorder  metrics.Recorder
	history   eventstore.Store
	publisher Publisher
	now       func() time.Time
	sleep     func(time.Duration)
}

// NewService creates a DefaultService that runs the real programs.
func NewService() *DefaultService {
	return &DefaultService{
		runner:   toolexec.OSRunner{},
		recorder: metrics.NoopRecorder{},
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// WithRunner replaces the process runner (for testing).
func (s *DefaultService) WithRunner(r toolexec.Runner) *DefaultService {
	s.runner = r
	return s
}

// WithRecorder sets the metrics recorder.
func (s *DefaultService) WithRecorder(r metrics.Recorder) *DefaultService {
	if r != nil {
		s.recorder = r
	}
	return s
}

// WithHistory sets the store build events are appended to. nil disables history.
func (s *DefaultService) WithHistory(store eventstore.Store) *DefaultService {
	s.history = store
	return s
}

// WithPublisher sets where finished reports are published. nil disables publishing.
func (s *DefaultService) WithPublisher(p Publisher) *DefaultService {
	s.publisher = p
	return s
}

// WithClock replaces the clock the executor uses for freshness checks (for testing).
func (s *DefaultService) WithClock(now func() time.Time, sleep func(time.Duration)) *DefaultService {
	s.now = now
	s.sleep = sleep
	return s
}

// pass carries the state of one Run.
type pass struct {
	cfg    *config.Config
	root   string
	rep    *report.BuildReport
	exec   *toolexec.Executor
	result *Result
}

// Run executes one pass. The returned error is the fatal error that ended it; issues
// found along the way are recorded in the report and reflected by Result.Status.
func (s *DefaultService) Run(ctx context.Context, req Request) (*Result, error) {
	result := &Result{StartTime: time.Now()}
	if req.Config == nil {
		result.Status = StatusFailed
		result.EndTime = time.Now()
		s.recorder.IncBuildOutcome(string(StatusFailed))
		return result, foundationerrors.ConfigError("config required").Build()
	}
	cfg := req.Config
	if len(req.Targets) > 0 {
		copied := *cfg
		copied.Latex.Targets = req.Targets
		cfg = &copied
	}
	if req.Command == CommandCheck {
		copied := *cfg
		copied.Latex.Targets = []string{string(latex.TargetChk)}
		cfg = &copied
	}

	buildID := uuid.NewString()
	rep := report.New(buildID, string(req.Command), cfg.Source.Root, cfg.Latex.Targets)
	rep.OnIssue(func(code report.IssueCode) { s.recorder.IncIssue(string(code)) })
	result.Report = rep

	exec := toolexec.NewExecutor(s.runner, rep).WithRecorder(s.recorder).WithClock(s.now, s.sleep)
	p := &pass{cfg: cfg, root: cfg.Source.Root, rep: rep, exec: exec, result: result}

	slog.Info("Starting pass",
		logfields.BuildID(buildID),
		logfields.Command(string(req.Command)),
		logfields.Path(p.root),
		slog.Any("targets", cfg.Latex.Targets))
	s.appendHistory(ctx, buildID, func() (eventstore.Event, error) { return eventstore.NewBuildStarted(rep) })

	err := s.dispatch(ctx, p, req.Command)

	rep.Finish(err)
	result.EndTime = rep.End
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.Status = statusOf(rep.Outcome)
	if err != nil && errors.Is(err, context.Canceled) {
		result.Status = StatusCancelled
	}
	s.recorder.ObserveBuildDuration(result.Duration)
	s.recorder.IncBuildOutcome(string(rep.Outcome))
	s.recorder.SetDocuments(len(result.Documents))

	s.appendHistory(context.WithoutCancel(ctx), buildID, func() (eventstore.Event, error) { return eventstore.NewBuildFinished(rep) })
	s.finish(cfg, rep)

	if err != nil {
		slog.Error("Pass failed", logfields.BuildID(buildID), logfields.Error(err))
		return result, err
	}
	slog.Info("Pass finished", logfields.BuildID(buildID), slog.String("summary", rep.Summary()))
	return result, nil
}

func (s *DefaultService) dispatch(ctx context.Context, p *pass, cmd Command) error {
	switch cmd {
	case CommandBuild, CommandCheck:
		return s.build(ctx, p, true)
	case CommandGraphics:
		return s.build(ctx, p, false)
	case CommandClear:
		return s.clear(p)
	default:
		return foundationerrors.ValidationError("unknown command " + string(cmd)).Fatal().Build()
	}
}

// CheckRoot returns a fatal error unless root is an existing directory.
func CheckRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryNotFound, "source root not found").
			WithContext("root", root).
			Fatal().
			Build()
	}
	if !info.IsDir() {
		return foundationerrors.ValidationError("source root is not a directory").
			WithContext("root", root).
			Fatal().
			Build()
	}
	return nil
}

// within reports whether path is root or lies below it.
func within(root, path string) bool {
	absRoot, err1 := filepath.Abs(root)
	absPath, err2 := filepath.Abs(path)
	if err1 != nil || err2 != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, absPath)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// build converts graphics and, if documents is set, processes every main document
// for each requested target it allows.
func (s *DefaultService) build(ctx context.Context, p *pass, documents bool) (err error) {
	if err := CheckRoot(p.root); err != nil {
		return err
	}
	if p.cfg.Output.CleanUp && within(p.root, p.cfg.Output.Directory) {
		return foundationerrors.ConfigError("output directory lies inside the source root; clean up would delete the outputs").
			WithContext("root", p.root).
			WithContext("output", p.cfg.Output.Directory).
			Fatal().
			Build()
	}
	targets, err := latex.ParseTargets(p.cfg.Latex.Targets)
	if err != nil {
		return err
	}
	filter, err := scanfilter.New(p.cfg)
	if err != nil {
		return err
	}

	before := snapshot.Build(p.root, p.rep)
	if !before.Valid() {
		return foundationerrors.FileSystemError("cannot record source tree").
			WithContext("root", p.root).
			Fatal().
			Build()
	}
	files, dirs := before.Count()
	slog.Debug("Recorded source tree", logfields.Path(p.root), slog.Int("files", files), slog.Int("dirs", dirs))
	if p.cfg.Output.CleanUp {
		defer func() {
			n, cleanErr := snapshot.CleanUp(p.root, before, p.rep)
			p.result.Deleted += n
			if cleanErr != nil && err == nil {
				err = cleanErr
			}
			slog.Info("Cleaned up source tree", logfields.Count(n))
		}()
	}

	docs, err := preprocess.New(p.cfg, p.exec).WithFilter(filter).ProcessGraphics(ctx, p.root, before)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		p.result.Documents = append(p.result.Documents, doc.Path)
	}
	if !documents {
		return nil
	}

	engine := latex.NewEngine(p.cfg, p.exec).WithRecorder(s.recorder)
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.rep.AddDocument(doc.Path)
		targetDir, err := latex.TargetDir(doc, p.root, p.cfg.Output.Directory)
		if err != nil {
			return err
		}
		for _, t := range targets {
			if !doc.Wants(t) {
				slog.Debug("Target not wanted by document", logfields.Document(doc.Path), logfields.Target(string(t)))
				continue
			}
			if err := s.process(ctx, p, engine, doc, t, targetDir); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *DefaultService) process(ctx context.Context, p *pass, engine *latex.Engine, doc *latex.Document, t latex.Target, targetDir string) error {
	start := time.Now()
	if err := engine.Process(ctx, doc, t); err != nil {
		return err
	}
	copied, err := engine.CopyOutputs(doc, t, targetDir)
	if err != nil {
		return err
	}
	for _, name := range copied {
		p.result.Outputs = append(p.result.Outputs, filepath.Join(targetDir, name))
	}
	d := time.Since(start)
	s.appendHistory(ctx, p.rep.BuildID, func() (eventstore.Event, error) {
		return eventstore.NewDocumentProcessed(p.rep.BuildID, doc.Path, string(t), len(copied), d)
	})
	return nil
}

// clear deletes derived files and generated injections from the source tree.
func (s *DefaultService) clear(p *pass) error {
	if err := CheckRoot(p.root); err != nil {
		return err
	}
	filter, err := scanfilter.New(p.cfg)
	if err != nil {
		return err
	}
	snap := snapshot.Build(p.root, p.rep)
	n, err := preprocess.New(p.cfg, p.exec).WithFilter(filter).ClearDerived(p.root, snap)
	p.result.Deleted += n
	if err != nil {
		return err
	}
	p.result.Deleted += injection.Clear(p.root, p.rep)
	slog.Info("Cleared source tree", logfields.Count(p.result.Deleted))
	return nil
}

func (s *DefaultService) appendHistory(ctx context.Context, buildID string, event func() (eventstore.Event, error)) {
	if s.history == nil {
		return
	}
	e, err := event()
	if err == nil {
		err = s.history.Append(ctx, e)
	}
	if err != nil {
		slog.Warn("Failed to record build history", logfields.BuildID(buildID), logfields.Error(err))
	}
}

// finish persists, publishes and exports the finished report. Failures are logged
// and do not change the outcome.
func (s *DefaultService) finish(cfg *config.Config, rep *report.BuildReport) {
	if cfg.Output.Directory != "" {
		if err := rep.Persist(cfg.Output.Directory); err != nil {
			slog.Warn("Failed to persist build report", logfields.Dir(cfg.Output.Directory), logfields.Error(err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(rep); err != nil {
			slog.Warn("Failed to publish build report", logfields.Error(err))
		}
	}
	if path := cfg.Metrics.TextfilePath; path != "" {
		if w, ok := s.recorder.(textfileWriter); ok {
			if err := w.WriteTextfile(path); err != nil {
				slog.Warn("Failed to write metrics textfile", logfields.Path(path), logfields.Error(err))
			}
		}
	}
}
