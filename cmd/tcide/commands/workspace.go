package commands

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/tcide/internal/foundation/errors"
	"git.home.luguber.info/inful/tcide/internal/metrics"
	"git.home.luguber.info/inful/tcide/internal/starterpack"
	"git.home.luguber.info/inful/tcide/internal/workspace"
)

// EnvGitToken holds an optional token for cloning private starter packs.
const EnvGitToken = "TCIDE_GIT_TOKEN"

// InitCmd implements the 'init' command.
type InitCmd struct {
	ID    string `arg:"" name:"challenge-id" help:"Challenge ID"`
	Dir   string `short:"d" help:"Workspace directory" default:"." type:"path"`
	Force bool   `help:"Overwrite an existing workspace marker"`
}

func (i *InitCmd) Run(g *Global, _ *CLI) error {
	if err := os.MkdirAll(i.Dir, 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to create workspace directory").
			WithContext("path", i.Dir).
			Build()
	}
	path, err := workspace.InitMarker(i.Dir, i.ID, i.Force)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.Out, "Initialized workspace for challenge %s at %s\n", i.ID, path)
	return nil
}

// StarterPackCmd implements the 'starter-pack' command.
type StarterPackCmd struct {
	ID   string `arg:"" name:"challenge-id" help:"Challenge ID"`
	Dir  string `short:"d" help:"Workspace directory" default:"." type:"path"`
	List bool   `short:"l" help:"List matching starter packs without cloning"`
	Repo int    `short:"r" help:"Number of the starter repository to use, as shown by --list" default:"1"`
}

func (s *StarterPackCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	client, token, _, err := root.session(g.Ctx)
	if err != nil {
		return err
	}
	details, err := client.ChallengeDetails(g.Ctx, s.ID, token)
	if err != nil {
		return err
	}

	var repos []starterpack.Repo
	for _, p := range starterpack.ForTechnologies(starterpack.FromConfig(cfg.StarterPacks), details.Technologies) {
		repos = append(repos, p.Repos...)
	}
	if len(repos) == 0 {
		return errors.NewError(errors.CategoryNotFound, "no starter pack matches the challenge technologies").
			WithContext("challenge_id", s.ID).
			WithContext("technologies", details.Technologies).
			Build()
	}
	if s.List {
		for i, r := range repos {
			_, _ = fmt.Fprintf(g.Out, "%d. %s (%s)\n", i+1, r.Title, r.URL)
		}
		return nil
	}
	if s.Repo < 1 || s.Repo > len(repos) {
		return errors.ValidationError(fmt.Sprintf("--repo must be between 1 and %d", len(repos))).Build()
	}

	reg := prometheus.NewRegistry()
	cloner := starterpack.NewCloner(
		starterpack.WithToken(os.Getenv(EnvGitToken)),
		starterpack.WithRecorder(metrics.NewPrometheusRecorder(reg)),
	)
	repo := repos[s.Repo-1]
	n, err := cloner.Clone(g.Ctx, s.Dir, repo)
	writeMetrics(cfg.Metrics.Textfile, reg)
	if err != nil {
		return err
	}

	if _, err := workspace.InitMarker(s.Dir, s.ID, false); err != nil && !stderrors.Is(err, workspace.ErrMarkerExists) {
		return err
	}
	_, _ = fmt.Fprintf(g.Out, "Added %d files from %s\n", n, repo.Title)
	return nil
}
