package commands

import (
	"fmt"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/texbuilder/internal/build"
	"git.home.luguber.info/inful/texbuilder/internal/injection"
	"git.home.luguber.info/inful/texbuilder/internal/report"
	"git.home.luguber.info/inful/texbuilder/internal/version"
)

// InjectCmd implements the 'inject' command.
type InjectCmd struct {
	Names []string `arg:"" optional:"" help:"Files to inject (latexmkrc, chktexrc); all if omitted"`
}

func (i *InjectCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if err := build.CheckRoot(cfg.Source.Root); err != nil {
		return err
	}
	injections, err := injection.Lookup(i.Names)
	if err != nil {
		return err
	}
	rep := report.New(uuid.NewString(), "inject", cfg.Source.Root, nil)
	written, err := injection.Inject(cfg, version.Version, injections, rep)
	for _, path := range written {
		fmt.Printf("injected %s\n", path)
	}
	return err
}
