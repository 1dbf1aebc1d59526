package commands

import (
	"fmt"

	"git.home.luguber.info/inful/tcide/internal/eligibility"
	"git.home.luguber.info/inful/tcide/internal/foundation/errors"
	"git.home.luguber.info/inful/tcide/internal/render"
)

// ChallengesCmd implements the 'challenges' command.
type ChallengesCmd struct{}

func (ChallengesCmd) Run(g *Global, root *CLI) error {
	client, token, _, err := root.session(g.Ctx)
	if err != nil {
		return err
	}
	list, err := client.ActiveChallenges(g.Ctx, token)
	if err != nil {
		return err
	}
	return render.ChallengeList(g.Out, list)
}

// ShowCmd implements the 'show' command.
type ShowCmd struct {
	ID string `arg:"" name:"challenge-id" help:"Challenge ID"`
}

func (s *ShowCmd) Run(g *Global, root *CLI) error {
	client, token, id, err := root.session(g.Ctx)
	if err != nil {
		return err
	}
	details, err := client.ChallengeDetails(g.Ctx, s.ID, token)
	if err != nil {
		return err
	}
	return render.ChallengeDetails(g.Out, details, id)
}

// RegisterCmd implements the 'register' command.
type RegisterCmd struct {
	ID string `arg:"" name:"challenge-id" help:"Challenge ID"`
}

func (r *RegisterCmd) Run(g *Global, root *CLI) error {
	client, token, id, err := root.session(g.Ctx)
	if err != nil {
		return err
	}
	details, err := client.ChallengeDetails(g.Ctx, r.ID, token)
	if err != nil {
		return err
	}
	if details.HasRegistrant(id.Handle) {
		_, _ = fmt.Fprintf(g.Out, "Already registered for %s\n", details.Title)
		return nil
	}
	if !eligibility.InApplyPhase(details) {
		return errors.EligibilityError("challenge is not accepting registrations").
			WithContext("challenge_id", r.ID).
			WithContext("phase", details.CurrentPhaseName).
			Build()
	}

	if _, err := client.Register(g.Ctx, r.ID, token); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.Out, "Registered for %s\n", details.Title)
	return nil
}
