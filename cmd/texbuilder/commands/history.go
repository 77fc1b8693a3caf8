package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/texbuilder/internal/eventstore"
	foundationerrors "git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit   int    `short:"n" default:"20" help:"Number of passes to list"`
	BuildID string `arg:"" optional:"" name:"build-id" help:"Show the details of one pass"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if cfg.History.Path == "" {
		return foundationerrors.ConfigError("build history is disabled").
			WithContext("hint", "set history.path in the configuration").
			Build()
	}
	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	p := eventstore.NewHistoryProjection(store, h.Limit)
	if err := p.Rebuild(context.Background()); err != nil {
		return err
	}
	if h.BuildID != "" {
		s, ok := p.Get(h.BuildID)
		if !ok {
			return foundationerrors.NotFoundError("no such build").WithContext("build_id", h.BuildID).Build()
		}
		out, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "failed to render summary").Build()
		}
		fmt.Println(string(out))
		return nil
	}
	PrintHistory(os.Stdout, p.History())
	return nil
}

// PrintHistory writes one row per pass, newest first.
func PrintHistory(w io.Writer, builds []eventstore.BuildSummary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "BUILD\tSTARTED\tCOMMAND\tSTATUS\tDOCUMENTS\tERRORS\tWARNINGS\tDURATION")
	for _, b := range builds {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			b.BuildID,
			b.StartedAt.Local().Format(time.DateTime),
			b.Command,
			strings.ToUpper(b.Status),
			b.Documents,
			b.Errors,
			b.Warnings,
			b.Duration.Truncate(time.Millisecond))
	}
	_ = tw.Flush()
}
