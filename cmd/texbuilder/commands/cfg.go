package commands

import (
	"fmt"
	"io"
	"os"

	"git.home.luguber.info/inful/texbuilder/internal/config"
)

// CfgCmd implements the 'cfg' command.
type CfgCmd struct{}

func (c *CfgCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	PrintParams(os.Stdout, cfg)
	return nil
}

// PrintParams writes one "name = value" line per configuration parameter.
func PrintParams(w io.Writer, cfg *config.Config) {
	for _, p := range config.Params() {
		_, _ = fmt.Fprintf(w, "%s = %s\n", p.Name, p.Get(cfg))
	}
}
