package commands

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/tcide/internal/archive"
	"git.home.luguber.info/inful/tcide/internal/history"
	"git.home.luguber.info/inful/tcide/internal/logfields"
	"git.home.luguber.info/inful/tcide/internal/metrics"
	"git.home.luguber.info/inful/tcide/internal/submission"
)

// SubmitCmd implements the 'submit' command.
type SubmitCmd struct {
	Dir string `short:"d" help:"Workspace directory" default:"." type:"path"`
}

func (s *SubmitCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	client, token, id, err := root.session(g.Ctx)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	opts := []submission.Option{
		submission.WithRecorder(metrics.NewPrometheusRecorder(reg)),
		submission.WithArchiveOptions(archive.WithWarningHandler(func(w archive.Warning) {
			_, _ = fmt.Fprintf(g.Err, "warning: %s: %s\n", w.File, w.Message)
		})),
	}
	if cfg.History.IsEnabled() {
		store, err := history.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			// Submitting works without history.
			slog.Warn("Submission history unavailable", logfields.Path(cfg.History.Path), logfields.Error(err))
		} else {
			defer func() { _ = store.Close() }()
			opts = append(opts, submission.WithHistory(store))
		}
	}

	sub, err := submission.New(client, opts...).Run(g.Ctx, submission.Request{
		Workspace: s.Dir,
		Token:     token,
		Identity:  id,
	})
	writeMetrics(cfg.Metrics.Textfile, reg)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.Out, "Submitted to challenge %s (submission %s)\n", sub.ChallengeID, sub.ID)
	return nil
}

// writeMetrics exports reg to the node-exporter textfile at path, if any.
func writeMetrics(path string, reg *prometheus.Registry) {
	if path == "" {
		return
	}
	if err := metrics.WriteTextfile(path, reg); err != nil {
		slog.Warn("Failed to write metrics textfile", logfields.Path(path), logfields.Error(err))
	}
}
