package commands

import (
	"fmt"

	"git.home.luguber.info/inful/tcide/internal/history"
	"git.home.luguber.info/inful/tcide/internal/render"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int `short:"n" help:"Number of attempts to show" default:"20"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	if !cfg.History.IsEnabled() {
		_, _ = fmt.Fprintln(g.Out, "Submission history is disabled.")
		return nil
	}
	store, err := history.NewSQLiteStore(cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	events, err := store.Recent(g.Ctx, h.Limit)
	if err != nil {
		return err
	}
	return render.History(g.Out, history.Summarize(events))
}
