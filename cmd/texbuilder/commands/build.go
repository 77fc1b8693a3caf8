package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/texbuilder/internal/build"
	"git.home.luguber.info/inful/texbuilder/internal/config"
	foundationerrors "git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Targets   []string `short:"t" sep:"," help:"Targets to build (chk,dvi,pdf,html,odt,docx,rtf,txt); overrides latex.targets"`
	NoCleanUp bool     `name:"no-clean-up" help:"Keep files created in the source tree"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if b.NoCleanUp {
		cfg.Output.CleanUp = false
	}
	return RunPass(cfg, build.Request{Command: build.CommandBuild, Targets: b.Targets})
}

// GraphicsCmd implements the 'graphics' command.
type GraphicsCmd struct{}

func (g *GraphicsCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	// Converted graphics are the result of this command.
	cfg.Output.CleanUp = false
	return RunPass(cfg, build.Request{Command: build.CommandGraphics})
}

// ClearCmd implements the 'clear' command.
type ClearCmd struct{}

func (c *ClearCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	return RunPass(cfg, build.Request{Command: build.CommandClear})
}

// CheckCmd implements the 'check' command.
type CheckCmd struct{}

func (c *CheckCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	return RunPass(cfg, build.Request{Command: build.CommandCheck})
}

// RunPass runs one pass until done or interrupted and prints its summary.
func RunPass(cfg *config.Config, req build.Request) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	s, err := newServices(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	req.Config = cfg
	res, err := s.svc.Run(ctx, req)
	if err != nil {
		return err
	}
	printResult(res)
	return resultError(res)
}

func printResult(res *build.Result) {
	if res.Report == nil {
		return
	}
	fmt.Fprintln(os.Stdout, res.Report.Summary())
	for _, doc := range res.Documents {
		fmt.Fprintf(os.Stdout, "document %s\n", doc)
	}
	for _, out := range res.Outputs {
		fmt.Fprintf(os.Stdout, "output   %s\n", out)
	}
}

// resultError turns a pass that finished with error level issues into a
// non-fatal build error so the exit code reflects it.
func resultError(res *build.Result) error {
	if res.Status.IsSuccess() {
		return nil
	}
	return foundationerrors.BuildError("pass finished with errors").
		WithContext("build_id", res.Report.BuildID).
		Build()
}
