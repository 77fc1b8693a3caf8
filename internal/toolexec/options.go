package toolexec

import (
	"fmt"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"
)

// SplitOptions turns a configured option string into arguments using POSIX shell
// word rules: quotes group words and $VAR is expanded from the environment.
// Globbing and command substitution are not performed.
func SplitOptions(opts string) ([]string, error) {
	if strings.TrimSpace(opts) == "" {
		return nil, nil
	}
	file, err := syntax.NewParser().Parse(strings.NewReader(opts), "options")
	if err != nil {
		return nil, fmt.Errorf("parse options %q: %w", opts, err)
	}
	if len(file.Stmts) != 1 {
		return nil, fmt.Errorf("options %q must be a single list of words", opts)
	}
	call, ok := file.Stmts[0].Cmd.(*syntax.CallExpr)
	if !ok || len(call.Assigns) > 0 || file.Stmts[0].Background || len(file.Stmts[0].Redirs) > 0 {
		return nil, fmt.Errorf("options %q must be a plain list of words", opts)
	}
	cfg := &expand.Config{Env: expand.ListEnviron(os.Environ()...)}
	fields, err := expand.Fields(cfg, call.Args...)
	if err != nil {
		return nil, fmt.Errorf("expand options %q: %w", opts, err)
	}
	return fields, nil
}
