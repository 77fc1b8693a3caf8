// Command texbuilder builds LaTeX documents and the graphics they include.
package main

import (
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/texbuilder/cmd/texbuilder/commands"
	foundationerrors "git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/version"
)

func main() {
	var cli commands.CLI
	global := &commands.Global{}
	parser := kong.Parse(&cli,
		kong.Name("texbuilder"),
		kong.Description("Build LaTeX documents: convert graphics, rerun the compiler and its helpers until stable, copy the results."),
		kong.UsageOnError(),
		kong.Bind(global),
		kong.Vars{"version": version.Version},
	)
	err := parser.Run(&cli)
	adapter := foundationerrors.NewCLIErrorAdapter(cli.Verbose, global.Logger)
	os.Exit(adapter.HandleError(err))
}
