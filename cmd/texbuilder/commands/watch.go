package commands

import (
	"context"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"git.home.luguber.info/inful/texbuilder/internal/build"
	"git.home.luguber.info/inful/texbuilder/internal/config"
	"git.home.luguber.info/inful/texbuilder/internal/preprocess"
	"git.home.luguber.info/inful/texbuilder/internal/scanfilter"
	"git.home.luguber.info/inful/texbuilder/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Targets  []string      `short:"t" sep:"," help:"Targets to build; overrides latex.targets"`
	Interval time.Duration `help:"Also rebuild periodically, e.g. 10m; 0 disables"`
	Debounce time.Duration `default:"500ms" help:"Quiet period after the last change before rebuilding"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if err := build.CheckRoot(cfg.Source.Root); err != nil {
		return err
	}
	filter, err := scanfilter.New(cfg)
	if err != nil {
		return err
	}
	s, err := newServices(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	watcher, err := watch.New(watch.Config{
		Root:     cfg.Source.Root,
		Debounce: w.Debounce,
		Interval: w.Interval,
		Suffixes: preprocess.Suffixes(),
		Ignore:   ignoreFunc(cfg, filter),
		Build: func(ctx context.Context, _ string) error {
			res, err := s.svc.Run(ctx, build.Request{Config: cfg, Command: build.CommandBuild, Targets: w.Targets})
			if err != nil {
				return err
			}
			printResult(res)
			return nil
		},
	})
	if err != nil {
		return err
	}
	return watcher.Run(ctx)
}

// ignoreFunc leaves out hidden entries, excluded entries and the output directory
// if it lies below the source root.
func ignoreFunc(cfg *config.Config, filter *scanfilter.Filter) func(rel string, isDir bool) bool {
	outRel := ""
	if rel, err := filepath.Rel(cfg.Source.Root, cfg.Output.Directory); err == nil && !strings.HasPrefix(rel, "..") {
		outRel = rel
	}
	return func(rel string, isDir bool) bool {
		for _, part := range strings.Split(rel, string(filepath.Separator)) {
			if strings.HasPrefix(part, ".") {
				return true
			}
		}
		if outRel != "" && (rel == outRel || strings.HasPrefix(rel, outRel+string(filepath.Separator))) {
			return true
		}
		return filter.Excluded(rel, isDir)
	}
}
